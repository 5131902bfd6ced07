// Package migrate keeps the MySQL journal schema current.
package migrate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migration is one versioned schema file, e.g. 0001_billing_journal.sql.
type Migration struct {
	Version  int
	Name     string // file name without version prefix and extension
	File     string
	SQL      string
	Checksum string // hex sha256 of SQL
}

// Run opens dsn and applies the embedded journal migrations. Each file is
// sent as one batch, so the DSN must include multiStatements=true.
func Run(ctx context.Context, dsn string, log *slog.Logger) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		return err
	}

	ms, err := List()
	if err != nil {
		return err
	}
	return Apply(ctx, db, ms, log)
}

// List returns the embedded migrations ordered by version.
func List() ([]Migration, error) {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Load reads every *.sql file at the root of fsys.
func Load(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}
	out := make([]Migration, 0, len(files))
	for _, f := range files {
		version, name, err := parseName(f)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", f, err)
		}
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}
		sum := sha256.Sum256(b)
		out = append(out, Migration{
			Version:  version,
			Name:     name,
			File:     f,
			SQL:      string(b),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}
	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", out[i].Version, out[i-1].File, out[i].File)
		}
	}
	return out, nil
}

// Pending returns the migrations not yet in applied (version -> checksum).
// A migration whose file changed after it was applied is an error; the
// journal tables it created would no longer match the code.
func Pending(ms []Migration, applied map[int]string) ([]Migration, error) {
	var todo []Migration
	for _, m := range ms {
		sum, ok := applied[m.Version]
		switch {
		case !ok:
			todo = append(todo, m)
		case sum != m.Checksum:
			return nil, fmt.Errorf("migration %s was modified after it was applied", m.File)
		}
	}
	return todo, nil
}

// Apply runs the pending migrations of ms against db in version order.
func Apply(ctx context.Context, db *sql.DB, ms []Migration, log *slog.Logger) error {
	const ddl = `CREATE TABLE IF NOT EXISTS journal_schema_versions (
    version    INT          NOT NULL PRIMARY KEY,
    name       VARCHAR(255) NOT NULL,
    checksum   CHAR(64)     NOT NULL,
    applied_at DATETIME(6)  NOT NULL
) ENGINE=InnoDB;`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return err
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	todo, err := Pending(ms, applied)
	if err != nil {
		return err
	}

	for _, m := range todo {
		log.Info("applying journal migration", slog.Int("version", m.Version), slog.String("name", m.Name))
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("applying %s: %w", m.File, err)
		}
		if _, err := db.ExecContext(ctx,
			"INSERT INTO journal_schema_versions (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)",
			m.Version, m.Name, m.Checksum, time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("recording %s: %w", m.File, err)
		}
	}
	log.Info("journal schema up to date", slog.Int("applied", len(todo)), slog.Int("total", len(ms)))
	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, checksum FROM journal_schema_versions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int]string)
	for rows.Next() {
		var (
			v   int
			sum string
		)
		if err := rows.Scan(&v, &sum); err != nil {
			return nil, err
		}
		out[v] = sum
	}
	return out, rows.Err()
}

// parseName splits "0001_billing_journal.sql" into 1 and "billing_journal".
func parseName(file string) (int, string, error) {
	base := strings.TrimSuffix(path.Base(file), ".sql")
	num, name, ok := strings.Cut(base, "_")
	if !ok || num == "" || name == "" {
		return 0, "", fmt.Errorf("want NNNN_name.sql")
	}
	v, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", fmt.Errorf("bad version prefix: %w", err)
	}
	return v, name, nil
}
