package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/stairworks/timeclock/internal/auth"
	"github.com/stairworks/timeclock/internal/database"
	"github.com/stairworks/timeclock/internal/env"
	"github.com/stairworks/timeclock/internal/version"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

type config struct {
	httpHost string
	httpPort int
	db       struct {
		dsn         string
		automigrate bool
	}
	token struct {
		secret    string
		workerTTL time.Duration
		adminTTL  time.Duration
	}
}

type application struct {
	config config
	db     *database.DB
	logger *slog.Logger
	hasher auth.Hasher
	tokens *auth.TokenService
	wg     sync.WaitGroup
}

func run(logger *slog.Logger) error {
	cfgFile := flag.String("cfg", "", "path to config file")
	showVersion := flag.Bool("version", false, "display version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	if *cfgFile != "" {
		err := env.Load(*cfgFile)
		if err != nil {
			return err
		}
	}

	var cfg config

	cfg.httpHost = env.GetString("HTTP_HOST", "localhost")
	cfg.httpPort = env.GetInt("HTTP_PORT", 8080)
	cfg.db.dsn = env.GetString("DB_DSN", "postgres:postgres@localhost:5432/postgres")
	cfg.db.automigrate = env.GetBool("DB_AUTOMIGRATE", true)
	cfg.token.secret = env.GetString("JWT_SECRET", "")
	cfg.token.workerTTL = env.GetDuration("WORKER_TOKEN_TTL", time.Hour)
	cfg.token.adminTTL = env.GetDuration("ADMIN_TOKEN_TTL", 24*time.Hour)

	if cfg.token.secret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	db, err := database.New(logger, cfg.db.dsn, cfg.db.automigrate)
	if err != nil {
		return err
	}
	defer db.Close()

	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
		hasher: auth.NewHasher(),
		tokens: auth.NewTokenService([]byte(cfg.token.secret), cfg.token.workerTTL, cfg.token.adminTTL),
	}

	return app.serveHTTP()
}
