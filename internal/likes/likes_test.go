package likes

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"mangalair/internal/account"
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

func addUser(t *testing.T, store *memStore, tgID string, likedKeys ...string) *models.User {
	t.Helper()
	acc := account.Account{"likes": map[string]any{}}
	for _, k := range likedKeys {
		acc.Likes()[k] = true
	}
	dataJSON, err := acc.Encode()
	require.NoError(t, err)
	u := &models.User{TgID: tgID, DataJSON: dataJSON}
	require.NoError(t, store.Create(context.Background(), u))
	return u
}

func TestSeriesKey(t *testing.T) {
	t.Parallel()
	require.Equal(t, "sr_7-my-slug", SeriesKey("sr_7", "my-slug"))
}

func TestCountAll(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	addUser(t, store, "1", "sr_7-my-slug", "sr_2-b")
	addUser(t, store, "2", "sr_7-my-slug")
	addUser(t, store, "3")

	svc := &Service{Users: store, Log: zerolog.Nop()}
	counts, err := svc.CountAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{"sr_7-my-slug": 2, "sr_2-b": 1}, counts)
}

func TestCountAll_SkipsMalformedDocuments(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	addUser(t, store, "1", "sr_7-my-slug")
	store.users["2"] = &models.User{TgID: "2", DataJSON: "{corrupt"}
	store.users["3"] = &models.User{TgID: "3", DataJSON: `{"likes":"not a map"}`}

	svc := &Service{Users: store, Log: zerolog.Nop()}
	counts, err := svc.CountAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{"sr_7-my-slug": 1}, counts)
}

func TestCountAll_FalseFlagsNotCounted(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	u := addUser(t, store, "1", "sr_7-my-slug")
	acc, err := account.Decode(u.DataJSON)
	require.NoError(t, err)
	acc.Likes()["sr_9-x"] = false
	u.DataJSON, err = acc.Encode()
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), u))

	svc := &Service{Users: store, Log: zerolog.Nop()}
	counts, err := svc.CountAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{"sr_7-my-slug": 1}, counts)
}

func TestToggle_FlipAndCount(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	addUser(t, store, "other", "sr_7-my-slug")
	u := addUser(t, store, "42")

	svc := &Service{Users: store, Log: zerolog.Nop()}
	acc, err := account.Decode(u.DataJSON)
	require.NoError(t, err)

	liked, count, err := svc.Toggle(context.Background(), u, acc, "sr_7-my-slug")
	require.NoError(t, err)
	require.True(t, liked)
	require.Equal(t, 2, count)
}

func TestToggle_IsOwnInverse(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	u := addUser(t, store, "42")
	svc := &Service{Users: store, Log: zerolog.Nop()}

	before, err := svc.CountAll(context.Background())
	require.NoError(t, err)

	acc, err := account.Decode(u.DataJSON)
	require.NoError(t, err)

	liked, _, err := svc.Toggle(context.Background(), u, acc, "sr_7-my-slug")
	require.NoError(t, err)
	require.True(t, liked)

	liked, count, err := svc.Toggle(context.Background(), u, acc, "sr_7-my-slug")
	require.NoError(t, err)
	require.False(t, liked)
	require.Equal(t, before["sr_7-my-slug"], count)

	after, err := svc.CountAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, before, after)
}
