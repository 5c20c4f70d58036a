package migrate

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDir is where the SQL migrations live in the source tree.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source resolves the migration files for dir. An empty dir or DefaultDir
// uses the set compiled into the binary so deployed images do not need the
// source tree.
func Source(dir string) (fs.FS, error) {
	clean := strings.TrimSpace(dir)
	if clean == "" || filepath.Clean(clean) == filepath.Clean(DefaultDir) {
		sub, err := fs.Sub(embedded, "migrations")
		if err != nil {
			return nil, fmt.Errorf("embedded migrations: %w", err)
		}
		return sub, nil
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", clean, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %q is not a directory", clean)
	}
	return os.DirFS(clean), nil
}
