package account

// Merge applies a partial-update document to current and returns the new
// canonical document. current is not mutated; keys absent from update are
// left untouched. There is no failure mode: malformed values degrade per
// the per-key rules below.
func Merge(current Account, update map[string]any) Account {
	out := make(Account, len(current)+len(update))
	for k, v := range current {
		out[k] = v
	}

	for key, value := range update {
		switch key {
		case "prefs":
			out["prefs"] = mergePrefs(mapOf(current["prefs"]), mapOf(value))
		case "favorites", "likes", "readProgress", "stats":
			cur := current[key]
			curMap, curIsMap := cur.(map[string]any)
			valMap, valIsMap := value.(map[string]any)
			if curIsMap && valIsMap {
				merged := make(map[string]any, len(curMap)+len(valMap))
				for k, v := range curMap {
					merged[k] = v
				}
				for k, v := range valMap {
					merged[k] = v
				}
				out[key] = merged
				continue
			}
			_, curIsList := cur.([]any)
			_, valIsList := value.([]any)
			if curIsList && valIsList {
				out[key] = value
				continue
			}
			out[key] = value
		default:
			out[key] = value
		}
	}
	return out
}

// mergePrefs applies the prefs field rules: direction carries over when not
// updated, continuous is forced true for manhwa, and comments falls back to
// "after" on anything outside the enumeration.
func mergePrefs(current, update map[string]any) map[string]any {
	prefs := make(map[string]any, len(current)+3)
	for k, v := range current {
		prefs[k] = v
	}

	direction, ok := stringOf(update["direction"])
	if !ok {
		if direction, ok = stringOf(current["direction"]); !ok {
			direction = DirectionManhwa
		}
	}
	prefs["direction"] = direction

	if direction == DirectionManhwa {
		prefs["continuous"] = true
	} else if v, exists := update["continuous"]; exists {
		prefs["continuous"] = truthy(v)
	} else {
		prefs["continuous"] = truthy(current["continuous"])
	}

	var comments string
	if v, exists := update["comments"]; exists {
		comments, _ = stringOf(v)
	} else {
		comments, _ = stringOf(current["comments"])
	}
	if comments == "" {
		comments = CommentsAfter
	}
	switch comments {
	case CommentsAfter, CommentsAlways, CommentsOff:
	default:
		comments = CommentsAfter
	}
	prefs["comments"] = comments

	return prefs
}

func mapOf(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func stringOf(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// truthy mirrors loose JSON truthiness: false, nil, zero numbers and empty
// strings/collections are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
