// Command migrate applies or rolls back the catalog schema.
//
//	migrate up          apply all pending migrations
//	migrate down -n 1   roll back one migration
//	migrate version     print the current schema version
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/pflag"

	"github.com/utafrali/catalog-search/internal/app"
	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/internal/repository/postgres/migrations"
	"github.com/utafrali/catalog-search/pkg/database"
	"github.com/utafrali/catalog-search/pkg/logger"
)

const stepsFlag = "steps"

func main() {
	steps := pflag.IntP(stepsFlag, "n", 0, "number of migrations to apply or roll back (0 means all for up)")
	pflag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(app.ServiceName+"-migrate", cfg.LogLevel)

	command := "up"
	if pflag.NArg() > 0 {
		command = pflag.Arg(0)
	}

	if err := run(command, *steps, &cfg.Postgres, log); err != nil {
		log.Error("migration failed", slog.String("command", command), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(command string, steps int, pgCfg *database.PostgresConfig, log *slog.Logger) error {
	m, err := database.NewMigrator(migrations.FS, ".", pgCfg, log)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps < 1 {
			return fmt.Errorf("down requires --%s greater than zero", stepsFlag)
		}
		err = m.Steps(-steps)
	case "version":
		version, dirty, verr := m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			log.Info("no migrations applied")
			return nil
		}
		if verr != nil {
			return verr
		}
		log.Info("schema version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unknown command %q: want up, down or version", command)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migrations to apply")
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("migrations applied", slog.String("command", command))
	return nil
}
