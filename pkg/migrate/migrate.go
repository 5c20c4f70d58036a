package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

// Commands accepted by Run.
const (
	CommandUp     = "up"
	CommandDown   = "down"
	CommandStatus = "status"
)

// Run applies a goose command against a Postgres database using the
// migrations in fsys. Results are reported through logg.
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, command string, logg *logger.Logger) error {
	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}

	switch command {
	case CommandUp:
		results, err := provider.Up(ctx)
		logResults(ctx, logg, results)
		if err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		if len(results) == 0 {
			info(ctx, logg, "schema already up to date")
		}
		return nil

	case CommandDown:
		result, err := provider.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			info(ctx, logg, "no migration to roll back")
			return nil
		}
		if result != nil {
			logResults(ctx, logg, []*goose.MigrationResult{result})
		}
		if err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil

	case CommandStatus:
		statuses, err := provider.Status(ctx)
		if err != nil {
			return fmt.Errorf("goose status: %w", err)
		}
		for _, st := range statuses {
			if logg == nil || st.Source == nil {
				continue
			}
			fields := map[string]any{
				"version": st.Source.Version,
				"file":    st.Source.Path,
				"state":   string(st.State),
			}
			if !st.AppliedAt.IsZero() {
				fields["applied_at"] = st.AppliedAt.UTC()
			}
			logg.Info(logg.WithFields(ctx, fields), "migration status")
		}
		return nil

	default:
		return fmt.Errorf("unsupported migrate command %q", command)
	}
}

// MigrateToVersion moves the schema up or down until the database reports
// targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, fsys fs.FS, targetVersion string, logg *logger.Logger) error {
	target, err := ParseVersion(targetVersion)
	if err != nil {
		return err
	}

	provider, err := newProvider(db, fsys)
	if err != nil {
		return err
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		info(ctx, logg, "schema already at requested version")
		return nil
	case current < target:
		results, err = provider.UpTo(ctx, target)
	default:
		results, err = provider.DownTo(ctx, target)
	}
	logResults(ctx, logg, results)
	if err != nil {
		return fmt.Errorf("goose migrate %d -> %d: %w", current, target, err)
	}
	return nil
}

// ParseVersion parses a YYYYMMDDHHMMSS migration version.
func ParseVersion(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("version is required")
	}
	if len(raw) != versionLayoutLen {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	return v, nil
}

// The SQL migrations target Postgres; sqlite schemas come from the models.
func newProvider(db *sql.DB, fsys fs.FS) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if fsys == nil {
		return nil, fmt.Errorf("migrations source is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return provider, nil
}

func logResults(ctx context.Context, logg *logger.Logger, results []*goose.MigrationResult) {
	if logg == nil {
		return
	}
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		fields := map[string]any{
			"version":     res.Source.Version,
			"file":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.Error != nil {
			logg.Error(logg.WithFields(ctx, fields), "migration failed", res.Error)
			continue
		}
		logg.Info(logg.WithFields(ctx, fields), "migration applied")
	}
}

func info(ctx context.Context, logg *logger.Logger, msg string) {
	if logg != nil {
		logg.Info(ctx, msg)
	}
}
