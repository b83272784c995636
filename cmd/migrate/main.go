package main

import (
	"database/sql"
	"flag"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"audiencesync/internal/config"
	"audiencesync/migrations"
)

func main() {
	command := flag.String("command", "up", "migration command: up, up-by-one, down, status")
	flag.Parse()

	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)

	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		log.Error().Err(err).Msg("open database")
		os.Exit(1)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Error().Err(err).Msg("set dialect")
		os.Exit(1)
	}

	switch *command {
	case "up":
		err = migrations.Run(db)
	case "up-by-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	default:
		log.Error().Str("command", *command).Msg("unknown migration command")
		os.Exit(1)
	}
	if err != nil {
		log.Error().Err(err).Str("command", *command).Msg("migration failed")
		os.Exit(1)
	}
	log.Info().Str("command", *command).Msg("migrations applied")
}
