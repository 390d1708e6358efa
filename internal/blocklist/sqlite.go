package blocklist

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
)

const schema = `CREATE TABLE IF NOT EXISTS blacklist (
	address    TEXT PRIMARY KEY,
	blocked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore keeps the block-list in a single file.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", errs.ErrStorage, path, err)
	}
	// one writer at a time keeps sqlite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create table: %w", errs.ErrStorage, err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) IsBlocked(ctx context.Context, addr string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM blacklist WHERE address = ?`, addr).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: is blocked: %w", errs.ErrStorage, err)
	}
	return true, nil
}

func (s *SQLiteStore) Block(ctx context.Context, addr string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO blacklist (address) VALUES (?)`, addr); err != nil {
		return fmt.Errorf("%w: block: %w", errs.ErrStorage, err)
	}
	return nil
}

func (s *SQLiteStore) Unblock(ctx context.Context, addr string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("%w: begin: %w", errs.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM blacklist WHERE address = ?`, addr)
	if err != nil {
		return false, fmt.Errorf("%w: unblock: %w", errs.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: unblock: %w", errs.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit: %w", errs.ErrStorage, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
