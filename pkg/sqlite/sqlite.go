// Package sqlite implements a metadata index for locally stored media,
// backed by SQLite or libSQL.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/Acr4niu5/beatsync-local/pkg/object"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config defines how the index should be initialized.
type Config struct {
	// Source is the DSN/connection string, e.g. file:media.db?cache=shared.
	Source string
	// Driver name registered with database/sql: "sqlite" (default) or "libsql".
	Driver string
	// Table holding index rows. Defaults to "media".
	Table string
	// DB lets callers supply an existing *sql.DB connection.
	DB *sql.DB
}

// Entry is one indexed object.
type Entry struct {
	Key         string
	ContentType string
	Size        int64
	CreatedAt   time.Time
	Meta        map[string]string
}

// Index records content types and upload times for objects whose backend
// cannot store them alongside the bytes.
type Index struct {
	db     *sql.DB
	table  string
	ownsDB bool
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Init opens the database and ensures the backing table exists.
func (x *Index) Init(ctx context.Context, param any) error {
	cfg, ok := param.(Config)
	if !ok {
		if p, ok := param.(*Config); ok && p != nil {
			cfg = *p
		} else {
			return fmt.Errorf("sqlite: unexpected config type %T", param)
		}
	}

	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.Table == "" {
		cfg.Table = "media"
	}
	if cfg.Source == "" && cfg.DB == nil {
		return errors.New("sqlite: Source is required")
	}
	if !tableName.MatchString(cfg.Table) {
		return fmt.Errorf("sqlite: invalid table name %q", cfg.Table)
	}
	x.table = cfg.Table

	if cfg.DB != nil {
		x.db = cfg.DB
	} else {
		db, err := sql.Open(cfg.Driver, cfg.Source)
		if err != nil {
			return fmt.Errorf("sqlite: open database: %w", err)
		}
		x.db = db
		x.ownsDB = true
	}

	createStmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		content_type TEXT,
		size INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		meta TEXT
	)`, x.table)

	if _, err := x.db.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}
	return nil
}

// Close releases the DB connection when owned by the index.
func (x *Index) Close(_ context.Context) error {
	if x.db != nil && x.ownsDB {
		return x.db.Close()
	}
	return nil
}

// Record inserts or replaces the entry for e.Key.
func (x *Index) Record(ctx context.Context, e Entry) error {
	if err := x.ensureDB(); err != nil {
		return err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	metaJSON, err := encodeMeta(e.Meta)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (key, content_type, size, created_at, meta) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET content_type=excluded.content_type, size=excluded.size, created_at=excluded.created_at, meta=excluded.meta`, x.table)
	_, err = x.db.ExecContext(ctx, query,
		e.Key,
		nullIfEmpty(e.ContentType),
		e.Size,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		nullIfEmpty(metaJSON),
	)
	if err != nil {
		return fmt.Errorf("sqlite: record %s: %w", e.Key, err)
	}
	return nil
}

// Lookup returns the entry for key or object.ErrNotFound.
func (x *Index) Lookup(ctx context.Context, key string) (Entry, error) {
	if err := x.ensureDB(); err != nil {
		return Entry{}, err
	}

	query := fmt.Sprintf(`SELECT content_type, size, created_at, meta FROM %s WHERE key = ?`, x.table)
	var (
		contentType sql.NullString
		size        int64
		createdAt   string
		metaJSON    sql.NullString
	)
	err := x.db.QueryRowContext(ctx, query, key).Scan(&contentType, &size, &createdAt, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, object.ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("sqlite: lookup %s: %w", key, err)
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	meta, err := decodeMeta(metaJSON.String)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Key:         key,
		ContentType: contentType.String,
		Size:        size,
		CreatedAt:   t,
		Meta:        meta,
	}, nil
}

// Remove deletes the entry for key. Removing a missing key is not an error.
func (x *Index) Remove(ctx context.Context, key string) error {
	if err := x.ensureDB(); err != nil {
		return err
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, x.table)
	if _, err := x.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("sqlite: remove %s: %w", key, err)
	}
	return nil
}

func (x *Index) ensureDB() error {
	if x.db == nil {
		return errors.New("sqlite: index not initialized")
	}
	return nil
}

func encodeMeta(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("sqlite: marshal metadata: %w", err)
	}
	return string(b), nil
}

func decodeMeta(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal metadata: %w", err)
	}
	c := make(map[string]string, len(out))
	maps.Copy(c, out)
	return c, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
