package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mangalair/internal/account"
	"mangalair/internal/user"
	"mangalair/pkg/models"
)

// ErrIdentityMissing means the verified payload carried no usable user field.
var ErrIdentityMissing = errors.New("user missing in initData")

// IsAuthFailure reports whether err is a request-authentication failure, as
// opposed to a storage or encoding fault.
func IsAuthFailure(err error) bool {
	for _, target := range []error{
		ErrEmptyInitData, ErrHashMissing, ErrAuthDateInvalid,
		ErrExpired, ErrHashMismatch, ErrIdentityMissing,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Identity is the external user identity embedded in a verified payload.
type Identity struct {
	TgID      string
	Username  string
	FirstName string
	LastName  string
	PhotoURL  string
}

// Resolver turns a raw signed payload into an authenticated (user, account)
// pair, provisioning the user record on first contact. It is the single
// authentication entry point for every protected operation.
type Resolver struct {
	Verifier *Verifier
	Users    user.Store
	Log      zerolog.Logger
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve verifies raw initData and returns the stored user together with
// its decoded account document.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*models.User, account.Account, error) {
	pairs, err := r.Verifier.ParseAndVerify(raw)
	if err != nil {
		return nil, nil, err
	}

	ident, err := parseIdentity(pairs["user"])
	if err != nil {
		return nil, nil, err
	}

	u, err := r.Users.FindByTgID(ctx, ident.TgID)
	if err != nil {
		return nil, nil, err
	}
	if u == nil {
		u, err = r.provision(ctx, ident)
		if err != nil {
			return nil, nil, err
		}
	}

	acc, err := account.Decode(u.DataJSON)
	if err != nil {
		// Self-healing: a corrupt stored document is replaced by the
		// default, not treated as fatal.
		r.Log.Warn().Str("tg_id", u.TgID).Err(err).Msg("corrupt account document, using default")
		acc = account.Default(ident.TgID, ident.Username, ident.PhotoURL, r.now())
	}
	return u, acc, nil
}

func (r *Resolver) provision(ctx context.Context, ident Identity) (*models.User, error) {
	dataJSON, err := account.Default(ident.TgID, ident.Username, ident.PhotoURL, r.now()).Encode()
	if err != nil {
		return nil, err
	}
	u := &models.User{
		TgID:      ident.TgID,
		Username:  ident.Username,
		FirstName: ident.FirstName,
		LastName:  ident.LastName,
		PhotoURL:  ident.PhotoURL,
		DataJSON:  dataJSON,
	}
	if err := r.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	r.Log.Info().Str("tg_id", u.TgID).Str("username", u.Username).Msg("provisioned user")
	return u, nil
}

// parseIdentity decodes the embedded user JSON. Telegram sends the id as a
// number; a string id is accepted as well.
func parseIdentity(userJSON string) (Identity, error) {
	if userJSON == "" {
		return Identity{}, ErrIdentityMissing
	}
	dec := json.NewDecoder(strings.NewReader(userJSON))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return Identity{}, ErrIdentityMissing
	}

	var id string
	switch v := m["id"].(type) {
	case json.Number:
		id = v.String()
	case string:
		id = v
	}
	if id == "" {
		return Identity{}, ErrIdentityMissing
	}

	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	return Identity{
		TgID:      id,
		Username:  str("username"),
		FirstName: str("first_name"),
		LastName:  str("last_name"),
		PhotoURL:  str("photo_url"),
	}, nil
}
