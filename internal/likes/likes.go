// Package likes computes per-series like counts across the whole user
// population and handles the per-user toggle.
package likes

import (
	"context"

	"github.com/rs/zerolog"

	"mangalair/internal/account"
	"mangalair/internal/user"
	"mangalair/pkg/models"
)

// SeriesKey joins a series id and slug into the canonical "<sid>-<slug>" key.
func SeriesKey(sid, slug string) string {
	return sid + "-" + slug
}

type Service struct {
	Users user.Store
	Log   zerolog.Logger
}

// Toggle flips the actor's like flag for seriesKey, persists the account and
// returns the new state together with the recomputed global count.
func (s *Service) Toggle(ctx context.Context, u *models.User, acc account.Account, seriesKey string) (liked bool, count int, err error) {
	liked = acc.ToggleLike(seriesKey)

	dataJSON, err := acc.Encode()
	if err != nil {
		return false, 0, err
	}
	u.DataJSON = dataJSON
	if err := s.Users.Save(ctx, u); err != nil {
		return false, 0, err
	}

	counts, err := s.CountAll(ctx)
	if err != nil {
		return false, 0, err
	}
	return liked, counts[seriesKey], nil
}

// CountAll recomputes like counts from every stored account document. The
// brute-force scan is deliberate: no counter to drift, and the population is
// small. Malformed documents are skipped, not counted as errors.
func (s *Service) CountAll(ctx context.Context) (map[string]int, error) {
	users, err := s.Users.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, u := range users {
		acc, err := account.Decode(u.DataJSON)
		if err != nil {
			s.Log.Debug().Str("tg_id", u.TgID).Err(err).Msg("skipping malformed account in like scan")
			continue
		}
		for _, k := range acc.LikedKeys() {
			counts[k]++
		}
	}
	return counts, nil
}
