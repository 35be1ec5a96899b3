package main

import (
	"os"
	"path/filepath"
	"time"

	"mangalair/internal/api"
	"mangalair/internal/auth"
	"mangalair/internal/catalog"
	"mangalair/internal/comments"
	"mangalair/internal/config"
	"mangalair/internal/likes"
	"mangalair/internal/ratelimit"
	"mangalair/internal/user"
	"mangalair/pkg/database"
	"mangalair/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New("info")
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatal().Err(err).Msg("create data dir")
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	users := user.NewSQLStore(db)
	resolver := &auth.Resolver{
		Verifier: &auth.Verifier{
			BotToken:   cfg.BotToken,
			TTLSeconds: cfg.InitDataTTL,
			Debug:      cfg.DebugInitData,
			Log:        log,
		},
		Users: users,
		Log:   log,
	}

	srv := &api.Server{
		Cfg:      cfg,
		Log:      log,
		Resolver: resolver,
		Users:    users,
		Likes:    &likes.Service{Users: users, Log: log},
		Comments: comments.NewStore(db),
		Catalog:  catalog.NewClient(cfg.PublicBase),

		CommentGate: ratelimit.New(5, 30*time.Second),
		LikeGate:    ratelimit.New(5, 10*time.Second),
	}

	// Only serve the frontend dir when it actually exists; Pages hosts the
	// real one in production.
	if _, err := os.Stat(cfg.FrontendDir); err != nil {
		srv.Cfg.FrontendDir = ""
	}

	r := api.NewRouter(srv)
	log.Info().Str("addr", cfg.Addr()).Msg("HTTP API listening")
	if err := r.Run(cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
