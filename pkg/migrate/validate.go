package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const versionLayoutLen = len("20060102150405")

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations under dir. See Versions.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	_, err := Versions(os.DirFS(dir))
	return err
}

// Versions validates every .sql file in fsys and returns their versions in
// ascending order. A file must be named YYYYMMDDHHMMSS_name.sql, carry one
// Up and one Down section with Up first, and balance its StatementBegin and
// StatementEnd markers.
func Versions(fsys fs.FS) ([]int64, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	seen := map[int64]string{}
	versions := make([]int64, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".sql" {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", name, err)
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", name, err)
		}
		if err := checkAnnotations(string(body)); err != nil {
			return nil, fmt.Errorf("migration %q: %w", name, err)
		}
		versions = append(versions, version)
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

func checkAnnotations(txt string) error {
	up, down := -1, -1
	depth := 0
	for i, line := range strings.Split(txt, "\n") {
		switch strings.TrimSpace(line) {
		case "-- +goose Up":
			if up >= 0 {
				return fmt.Errorf("duplicate \"-- +goose Up\" on line %d", i+1)
			}
			up = i
		case "-- +goose Down":
			if down >= 0 {
				return fmt.Errorf("duplicate \"-- +goose Down\" on line %d", i+1)
			}
			if depth != 0 {
				return fmt.Errorf("unterminated StatementBegin before \"-- +goose Down\"")
			}
			down = i
		case "-- +goose StatementBegin":
			if depth != 0 {
				return fmt.Errorf("nested StatementBegin on line %d", i+1)
			}
			depth++
		case "-- +goose StatementEnd":
			if depth == 0 {
				return fmt.Errorf("StatementEnd without StatementBegin on line %d", i+1)
			}
			depth--
		}
	}
	switch {
	case up < 0:
		return fmt.Errorf("missing \"-- +goose Up\"")
	case down < 0:
		return fmt.Errorf("missing \"-- +goose Down\"")
	case down < up:
		return fmt.Errorf("\"-- +goose Down\" precedes \"-- +goose Up\"")
	case depth != 0:
		return fmt.Errorf("unterminated StatementBegin")
	}
	return nil
}
