// Package account owns the per-user account document: its default shape,
// JSON encoding, and the partial-update merge rules.
package account

import (
	"encoding/json"
	"net/url"
	"time"
)

// Reading direction values for prefs.direction.
const (
	DirectionManhwa = "manhwa"
	DirectionLTR    = "ltr"
	DirectionRTL    = "rtl"
)

// Comment display modes for prefs.comments.
const (
	CommentsAfter  = "after"
	CommentsAlways = "always"
	CommentsOff    = "off"
)

// Account is the JSON-like per-user document stored in users.data_json.
type Account map[string]any

// Default builds the account document provisioned on first contact.
func Default(tgID, username, photoURL string, now time.Time) Account {
	name := username
	if name == "" {
		name = "user" + tgID
	}
	avatar := photoURL
	if avatar == "" {
		avatar = placeholderAvatar(name)
	}
	return Account{
		"username":     name,
		"avatarUrl":    avatar,
		"since":        now.UTC().Format(time.RFC3339),
		"favorites":    []any{},
		"likes":        map[string]any{},
		"readProgress": map[string]any{},
		"stats":        map[string]any{"chaptersRead": 0},
		"prefs": map[string]any{
			"direction":  DirectionManhwa,
			"continuous": true,
			"comments":   CommentsAfter,
		},
	}
}

func placeholderAvatar(seed string) string {
	return "https://api.dicebear.com/7.x/thumbs/svg?seed=" + url.QueryEscape(seed) + "&backgroundType=gradientLinear"
}

// Decode parses a stored account document.
func Decode(dataJSON string) (Account, error) {
	if dataJSON == "" {
		dataJSON = "{}"
	}
	var a Account
	if err := json.Unmarshal([]byte(dataJSON), &a); err != nil {
		return nil, err
	}
	if a == nil {
		a = Account{}
	}
	return a, nil
}

// Encode serializes the document for storage.
func (a Account) Encode() (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Username returns the stored display name, if any.
func (a Account) Username() string {
	s, _ := a["username"].(string)
	return s
}

// Likes returns the like-flag mapping, never nil.
func (a Account) Likes() map[string]any {
	if m, ok := a["likes"].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// LikedKeys returns the series keys whose like flag is set.
func (a Account) LikedKeys() []string {
	var keys []string
	for k, v := range a.Likes() {
		if truthy(v) {
			keys = append(keys, k)
		}
	}
	return keys
}

// ToggleLike flips the like flag for seriesKey and returns the new state.
func (a Account) ToggleLike(seriesKey string) bool {
	likes := a.Likes()
	liked := !truthy(likes[seriesKey])
	likes[seriesKey] = liked
	a["likes"] = likes
	return liked
}
