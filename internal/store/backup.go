package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Backup struct {
	ID          int64     `json:"id"`
	Document    string    `json:"-"`
	LastUpdated string    `json:"lastUpdated"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Backups keeps the most recent document snapshots, newest first.
type Backups interface {
	Push(ctx context.Context, document, lastUpdated string) error
	List(ctx context.Context) ([]Backup, error)
}

type SQLiteBackups struct {
	db     *sql.DB
	keep   int
	logger zerolog.Logger
}

func NewSQLiteBackups(db *sql.DB, keep int, logger zerolog.Logger) *SQLiteBackups {
	return &SQLiteBackups{db: db, keep: keep, logger: logger}
}

func (b *SQLiteBackups) Push(ctx context.Context, document, lastUpdated string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO document_backups (document, last_updated, created_at) VALUES (?, ?, ?)`,
		document, lastUpdated, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert backup: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM document_backups WHERE id NOT IN (SELECT id FROM document_backups ORDER BY id DESC LIMIT ?)`,
		b.keep,
	)
	if err != nil {
		return fmt.Errorf("failed to prune backups: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit backup: %w", err)
	}

	pruned, _ := res.RowsAffected()
	b.logger.Debug().Str("last_updated", lastUpdated).Int64("pruned", pruned).Msg("document backup created")
	return nil
}

func (b *SQLiteBackups) List(ctx context.Context) ([]Backup, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, document, last_updated, created_at FROM document_backups ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var out []Backup
	for rows.Next() {
		var bk Backup
		if err := rows.Scan(&bk.ID, &bk.Document, &bk.LastUpdated, &bk.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		out = append(out, bk)
	}
	return out, rows.Err()
}

type MemoryBackups struct {
	mu      sync.Mutex
	keep    int
	nextID  int64
	backups []Backup
}

func NewMemoryBackups(keep int) *MemoryBackups {
	return &MemoryBackups{keep: keep}
}

func (m *MemoryBackups) Push(_ context.Context, document, lastUpdated string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.backups = append([]Backup{{
		ID:          m.nextID,
		Document:    document,
		LastUpdated: lastUpdated,
		CreatedAt:   time.Now().UTC(),
	}}, m.backups...)
	if len(m.backups) > m.keep {
		m.backups = m.backups[:m.keep]
	}
	return nil
}

func (m *MemoryBackups) List(_ context.Context) ([]Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Backup, len(m.backups))
	copy(out, m.backups)
	return out, nil
}
