package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/stairworks/timeclock/internal/auth"
	"github.com/stairworks/timeclock/internal/database"
	"github.com/stairworks/timeclock/internal/env"
	"github.com/stairworks/timeclock/internal/model"
)

// create-admin seeds an admin account so the first operator can log in and
// register devices.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	err := run(logger)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	var (
		cfgFile  = flag.String("cfg", "", "path to config file")
		username = flag.String("username", "", "admin username")
		password = flag.String("password", "", "admin password")
	)

	flag.Parse()

	if *username == "" || *password == "" {
		return errors.New("both -username and -password must be provided")
	}

	if *cfgFile != "" {
		if err := env.Load(*cfgFile); err != nil {
			return err
		}
	}

	dsn := env.GetString("DB_DSN", "postgres:postgres@localhost:5432/postgres")
	automigrate := env.GetBool("DB_AUTOMIGRATE", true)

	db, err := database.New(logger, dsn, automigrate)
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := auth.NewHasher().Hash(*password)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := database.NewAdminDAO(logger, db).Insert(ctx, database.InsertAdminDTO{
		Username:     *username,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, model.ErrExists) {
			return fmt.Errorf("admin %q already exists", *username)
		}
		return err
	}

	fmt.Printf("created admin %q (id %d)\n", *username, id)
	return nil
}
