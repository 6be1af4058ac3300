package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type SQLiteKV struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLiteKV(db *sql.DB, logger zerolog.Logger) *SQLiteKV {
	return &SQLiteKV{db: db, logger: logger}
}

const upsertEntry = `
INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (s *SQLiteKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Debug().Str("key", key).Msg("kv entry not found")
		return "", false, nil
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to read kv entry")
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// GetMany reads inside one transaction so a concurrent Update is seen whole or not at all.
func (s *SQLiteKV) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	out := make(map[string]string, len(keys))
	for _, key := range keys {
		var value string
		err := tx.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("failed to read kv entry")
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		out[key] = value
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to finish read transaction: %w", err)
	}
	return out, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, upsertEntry, key, value, time.Now().UTC()); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to write kv entry")
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteKV) Update(ctx context.Context, entries map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, value := range entries {
		if _, err := tx.ExecContext(ctx, upsertEntry, key, value, now); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit kv update: %w", err)
	}
	s.logger.Debug().Int("entries", len(entries)).Msg("kv entries updated")
	return nil
}
