package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/workboard-backend/pkg/config"
	"github.com/angelmondragon/workboard-backend/pkg/db"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
	"github.com/angelmondragon/workboard-backend/pkg/migrate"
)

const (
	commandCreate   = "create"
	commandValidate = "validate"
	commandVersion  = "version"
)

type options struct {
	command string
	dir     string
	name    string
	version string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:], os.Stdout, logg); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logg.Error(context.Background(), "migrate failed", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.command, "cmd", migrate.CommandUp, "up|down|status|version|create|validate")
	fs.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations directory")
	fs.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	fs.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments %v", fs.Args())
	}
	return opts, nil
}

// run executes one migration command. create and validate only touch the
// migrations directory; everything else loads config and opens the database.
func run(ctx context.Context, args []string, out io.Writer, logg *logger.Logger) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	switch opts.command {
	case commandCreate:
		if opts.name == "" {
			return errors.New("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "created", path)
		return nil

	case commandValidate:
		source, err := migrate.Source(opts.dir)
		if err != nil {
			return err
		}
		versions, err := migrate.Versions(source)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d migrations valid\n", len(versions))
		return nil

	case migrate.CommandUp, migrate.CommandDown, migrate.CommandStatus, commandVersion:
	default:
		return fmt.Errorf("unknown -cmd %q", opts.command)
	}

	if opts.command == commandVersion && opts.version == "" {
		return errors.New("-version is required for version")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.command,
		"dir": opts.dir,
	})
	return migrateDatabase(ctx, cfg, opts, logg)
}

func migrateDatabase(ctx context.Context, cfg *config.Config, opts options, logg *logger.Logger) (err error) {
	client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, client.Close())
	}()

	// The SQL files target Postgres; sqlite schemas come from the models.
	if cfg.FeatureFlags.UseSQLite {
		if opts.command != migrate.CommandUp {
			return fmt.Errorf("-cmd=%s is not supported with sqlite", opts.command)
		}
		if err := client.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("sqlite auto migrate: %w", err)
		}
		logg.Info(ctx, "sqlite schema migrated")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	source, err := migrate.Source(opts.dir)
	if err != nil {
		return err
	}

	if opts.command == commandVersion {
		return migrate.MigrateToVersion(ctx, sqlDB, source, opts.version, logg)
	}
	return migrate.Run(ctx, sqlDB, source, opts.command, logg)
}
