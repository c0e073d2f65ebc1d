package tokencache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/bkashgate/internal/cryptox"
	"github.com/dmitrijs2005/bkashgate/internal/dbx"
	"github.com/dmitrijs2005/bkashgate/internal/filex"
	"github.com/dmitrijs2005/bkashgate/internal/tokencache/migrations"
)

// SQLiteStore persists entries in a SQLite table so tokens survive restarts.
// With a Sealer, values are encrypted and bound to their key.
type SQLiteStore struct {
	db     dbx.DBTX
	sealer *cryptox.Sealer
}

func NewSQLiteStore(db dbx.DBTX, sealer *cryptox.Sealer) *SQLiteStore {
	return &SQLiteStore{db: db, sealer: sealer}
}

// OpenSQLite opens the database at dsn and applies the token cache migrations.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	if path := filex.SQLitePath(dsn); path != "" {
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

func (s *SQLiteStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	var (
		value     string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, expires_at FROM token_cache WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to get token_cache[%s]: %w", key, err)
	}

	if s.sealer != nil {
		plain, err := s.sealer.Open(value, []byte(key))
		if err != nil {
			return Entry{}, false, fmt.Errorf("failed to open token_cache[%s]: %w", key, err)
		}
		value = string(plain)
	}

	return Entry{Value: value, ExpiresAt: time.Unix(0, expiresAt)}, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, e Entry) error {
	value := e.Value
	if s.sealer != nil {
		value = s.sealer.Seal([]byte(e.Value), []byte(key))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO token_cache (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, e.ExpiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to set token_cache[%s]: %w", key, err)
	}
	return nil
}
