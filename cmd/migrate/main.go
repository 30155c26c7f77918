package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/brewops/brewops-backend/pkg/config"
	"github.com/brewops/brewops-backend/pkg/database"
	"github.com/brewops/brewops-backend/pkg/logger"
	"github.com/brewops/brewops-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

func main() {
	command := flag.String("cmd", "up", "migration command: up, down, status or version")
	service := flag.String("service", "brewery-service", "service whose configuration names the database")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("migrate", cfg.Server.Environment, cfg.Server.LogLevel)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m, err := migrate.New(db.DB.DB, db.Driver(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare migrations")
	}

	if err := m.Run(context.Background(), *command); err != nil {
		log.Error().Err(err).Str("cmd", *command).Msg("migration failed")
		db.Close()
		os.Exit(1)
	}
}
