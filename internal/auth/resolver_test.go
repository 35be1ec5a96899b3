package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"mangalair/pkg/models"
)

type memStore struct {
	users map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*models.User{}}
}

func (s *memStore) FindByTgID(_ context.Context, tgID string) (*models.User, error) {
	u, ok := s.users[tgID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, u *models.User) error {
	u.ID = int64(len(s.users) + 1)
	cp := *u
	s.users[u.TgID] = &cp
	return nil
}

func (s *memStore) Save(_ context.Context, u *models.User) error {
	cp := *u
	s.users[u.TgID] = &cp
	return nil
}

func (s *memStore) ListAll(_ context.Context) ([]models.User, error) {
	var res []models.User
	for _, u := range s.users {
		res = append(res, *u)
	}
	return res, nil
}

func testResolver(store *memStore, now time.Time) *Resolver {
	return &Resolver{
		Verifier: testVerifier(now, 86400),
		Users:    store,
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return now },
	}
}

func signedPayload(t *testing.T, userJSON string, now time.Time) string {
	t.Helper()
	fields := map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()),
	}
	if userJSON != "" {
		fields["user"] = userJSON
	}
	return signInitData(t, fields, secretWebAppData(testBotToken))
}

func TestResolve_ProvisionsOnFirstContact(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	store := newMemStore()
	r := testResolver(store, now)

	u, acc, err := r.Resolve(context.Background(), signedPayload(t, `{"id":"42","username":"ann"}`, now))
	require.NoError(t, err)
	require.Equal(t, "42", u.TgID)
	require.Equal(t, "ann", u.Username)

	require.Equal(t, "ann", acc["username"])
	require.Equal(t, []any{}, acc["favorites"])
	require.Equal(t, map[string]any{}, acc["likes"])
	prefs := acc["prefs"].(map[string]any)
	require.Equal(t, "manhwa", prefs["direction"])
	require.Equal(t, true, prefs["continuous"])
	require.Equal(t, "after", prefs["comments"])

	// stored record decodes to the same document
	require.Contains(t, store.users, "42")
}

func TestResolve_SecondContactReusesRecord(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	store := newMemStore()
	r := testResolver(store, now)

	u1, _, err := r.Resolve(context.Background(), signedPayload(t, `{"id":7,"username":"bob"}`, now))
	require.NoError(t, err)
	u2, _, err := r.Resolve(context.Background(), signedPayload(t, `{"id":7,"username":"bob"}`, now))
	require.NoError(t, err)

	require.Equal(t, u1.ID, u2.ID)
	require.Len(t, store.users, 1)
}

func TestResolve_SynthesizedUsername(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	r := testResolver(newMemStore(), now)

	_, acc, err := r.Resolve(context.Background(), signedPayload(t, `{"id":99}`, now))
	require.NoError(t, err)
	require.Equal(t, "user99", acc["username"])
}

func TestResolve_IdentityMissing(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	r := testResolver(newMemStore(), now)

	for _, userJSON := range []string{"", "not json", `{"username":"noid"}`} {
		_, _, err := r.Resolve(context.Background(), signedPayload(t, userJSON, now))
		require.ErrorIs(t, err, ErrIdentityMissing, "user=%q", userJSON)
	}
}

func TestResolve_SelfHealsCorruptDocument(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	store := newMemStore()
	store.users["42"] = &models.User{ID: 1, TgID: "42", Username: "ann", DataJSON: "{corrupt"}
	r := testResolver(store, now)

	_, acc, err := r.Resolve(context.Background(), signedPayload(t, `{"id":42,"username":"ann"}`, now))
	require.NoError(t, err)
	require.Equal(t, "ann", acc["username"])
	prefs := acc["prefs"].(map[string]any)
	require.Equal(t, "manhwa", prefs["direction"])
}

func TestResolve_PropagatesVerifierFailure(t *testing.T) {
	t.Parallel()

	r := testResolver(newMemStore(), time.Unix(1700000000, 0))
	_, _, err := r.Resolve(context.Background(), "hash=deadbeef&auth_date=abc")
	require.ErrorIs(t, err, ErrAuthDateInvalid)
}
