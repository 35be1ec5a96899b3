package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Verification failures. All of them surface to clients as "not
// authenticated"; the specific reason is for logs only.
var (
	ErrEmptyInitData   = errors.New("empty initData")
	ErrHashMissing     = errors.New("hash missing")
	ErrAuthDateInvalid = errors.New("auth_date invalid")
	ErrExpired         = errors.New("initData expired")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Pairs holds the decoded key/value fields of a signed payload.
type Pairs map[string]string

// Verifier checks Telegram WebApp initData signatures.
//
// Telegram has used two key derivations for the same HMAC-SHA256 scheme
// across protocol versions: HMAC-SHA256("WebAppData", bot_token) and the
// older SHA256(bot_token). Both require possession of the bot token, so
// accepting either is backward compatibility, not a weakening.
type Verifier struct {
	BotToken string
	// TTLSeconds bounds payload age; 0 disables the freshness check.
	TTLSeconds int64
	Debug      bool
	Log        zerolog.Logger
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func secretWebAppData(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func secretLegacy(botToken string) []byte {
	sum := sha256.Sum256([]byte(botToken))
	return sum[:]
}

func hexHMACSHA256(msg string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// parsePairs decodes a query-string payload. Duplicate keys: last wins.
// Blank values are kept; components that fail to unescape are carried raw
// rather than aborting the whole parse.
func parsePairs(raw string) Pairs {
	pairs := Pairs{}
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		if dk, err := url.QueryUnescape(k); err == nil {
			k = dk
		}
		if dv, err := url.QueryUnescape(v); err == nil {
			v = dv
		}
		pairs[k] = v
	}
	return pairs
}

// checkString builds the canonical data-check-string: every pair except
// "hash", sorted by key, joined as key=value with newlines.
func checkString(pairs Pairs) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(pairs[k])
	}
	return b.String()
}

func hashEqual(supplied, calc string) bool {
	return hmac.Equal([]byte(strings.ToLower(supplied)), []byte(calc))
}

// ParseAndVerify validates a raw initData payload and returns its decoded
// fields, including non-authentication fields such as "user".
func (v *Verifier) ParseAndVerify(raw string) (Pairs, error) {
	if raw == "" {
		return nil, ErrEmptyInitData
	}
	pairs := parsePairs(raw)

	hashValue, ok := pairs["hash"]
	if !ok || hashValue == "" {
		return nil, ErrHashMissing
	}

	authDate, err := strconv.ParseInt(pairs["auth_date"], 10, 64)
	if err != nil || authDate < 0 || strings.HasPrefix(pairs["auth_date"], "+") {
		return nil, ErrAuthDateInvalid
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	if v.TTLSeconds > 0 && now().Unix()-authDate > v.TTLSeconds {
		return nil, ErrExpired
	}

	dcs := checkString(pairs)

	calcWebApp := hexHMACSHA256(dcs, secretWebAppData(v.BotToken))
	if hashEqual(hashValue, calcWebApp) {
		if v.Debug {
			v.Log.Debug().Str("dcs", dcs).Msg("initData OK via WebAppData")
		}
		return pairs, nil
	}

	calcLegacy := hexHMACSHA256(dcs, secretLegacy(v.BotToken))
	if hashEqual(hashValue, calcLegacy) {
		if v.Debug {
			v.Log.Debug().Str("dcs", dcs).Msg("initData OK via legacy SHA256(bot_token)")
		}
		return pairs, nil
	}

	if v.Debug {
		v.Log.Debug().
			Str("dcs", dcs).
			Str("provided", hashValue).
			Str("calc_webappdata", calcWebApp).
			Str("calc_legacy", calcLegacy).
			Msg("initData hash mismatch")
	}
	return nil, ErrHashMismatch
}
