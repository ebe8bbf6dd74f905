package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/events-aggregator/pkg/config"
	"github.com/angelmondragon/events-aggregator/pkg/db"
	"github.com/angelmondragon/events-aggregator/pkg/instance"
	"github.com/angelmondragon/events-aggregator/pkg/logger"
	"github.com/angelmondragon/events-aggregator/pkg/migrate"
	"github.com/joho/godotenv"
)

const serviceName = "aggregator-migrate"

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|redo|status|current|version|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded schema")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	ctx := context.Background()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	src := migrate.EmbeddedSource()
	srcName := "embedded"
	if *dir != "" {
		src = migrate.DirSource(*dir)
		srcName = *dir
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
		"cmd":      *cmd,
		"source":   srcName,
	})

	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(target, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return

	case "validate":
		var err error
		if *dir != "" {
			err = migrate.ValidateDir(*dir)
		} else {
			err = migrate.ValidateFS(src.FS)
		}
		if err != nil {
			fail("migration validation failed: %v", err)
		}
		logg.Info(ctx, "migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	switch *cmd {
	case "up", "down", "redo", "status":
		err = migrate.Run(ctx, sqlDB, src, *cmd)

	case "current":
		var v int64
		v, err = migrate.Version(ctx, sqlDB)
		if err == nil {
			fmt.Println(v)
		}

	case "version":
		if *version == "" {
			fail("missing -version for version command")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, src, *version)

	default:
		fail("unknown -cmd value: %s", *cmd)
	}
	if err != nil {
		dbClient.Close()
		requireResource(ctx, logg, "goose "+*cmd, err)
	}

	logg.Info(ctx, "migrate finished")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
