package store

import (
	"context"
	"fmt"
	"sync"
	"tfm-tracker/internal/constants"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// TimestampLayout matches JavaScript's Date.toISOString.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

type Snapshot struct {
	Data        string // raw JSON document, without lastUpdated
	LastUpdated string
	Exists      bool
}

// DocumentStore holds the single shared document under two keys: the JSON body
// and its lastUpdated timestamp. Writes are serialized within the process and
// each write stamps a strictly newer timestamp.
type DocumentStore struct {
	kv      KV
	backups Backups
	logger  zerolog.Logger
	now     func() time.Time

	mu sync.Mutex
}

func NewDocumentStore(kv KV, backups Backups, logger zerolog.Logger) *DocumentStore {
	return &DocumentStore{kv: kv, backups: backups, logger: logger, now: time.Now}
}

func (d *DocumentStore) WithClock(now func() time.Time) *DocumentStore {
	d.now = now
	return d
}

// Load reads the body and its timestamp as one pair. It waits for an ongoing
// write so a reader never sees a body from one write stamped by another.
func (d *DocumentStore) Load(ctx context.Context) (Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := d.kv.GetMany(ctx, constants.DataKey, constants.LastUpdatedKey)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load document: %w", err)
	}
	data, ok := entries[constants.DataKey]
	ts := entries[constants.LastUpdatedKey]
	if !ok {
		return Snapshot{LastUpdated: ts}, nil
	}
	if !gjson.Valid(data) || !gjson.Parse(data).IsObject() {
		d.logger.Error().Int("bytes", len(data)).Msg("stored document is corrupt")
		return Snapshot{}, ErrCorruptDocument
	}
	return Snapshot{Data: data, LastUpdated: ts, Exists: true}, nil
}

// Save overwrites the document unconditionally. The latest writer wins.
func (d *DocumentStore) Save(ctx context.Context, data string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write(ctx, data)
}

// CompareAndSet writes only when the stored timestamp still equals expected.
func (d *DocumentStore) CompareAndSet(ctx context.Context, expected, data string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current, _, err := d.kv.Get(ctx, constants.LastUpdatedKey)
	if err != nil {
		return "", fmt.Errorf("failed to load timestamp: %w", err)
	}
	if current != expected {
		d.logger.Info().Str("expected", expected).Str("current", current).Msg("document compare-and-set rejected")
		return "", ErrConflict
	}
	return d.write(ctx, data)
}

func (d *DocumentStore) write(ctx context.Context, data string) (string, error) {
	if !gjson.Valid(data) {
		return "", ErrCorruptDocument
	}

	current, err := d.kv.GetMany(ctx, constants.DataKey, constants.LastUpdatedKey)
	if err != nil {
		return "", fmt.Errorf("failed to load previous document: %w", err)
	}
	prev, hadPrev := current[constants.DataKey]
	prevTS := current[constants.LastUpdatedKey]

	ts := d.nextTimestamp(prevTS)
	if err := d.kv.Update(ctx, map[string]string{
		constants.DataKey:        data,
		constants.LastUpdatedKey: ts,
	}); err != nil {
		return "", fmt.Errorf("failed to save document: %w", err)
	}

	if hadPrev && d.backups != nil {
		if err := d.backups.Push(ctx, prev, prevTS); err != nil {
			d.logger.Warn().Err(err).Msg("failed to back up previous document")
		}
	}
	return ts, nil
}

// Backups lists retained snapshots, empty when the store keeps none.
func (d *DocumentStore) Backups(ctx context.Context) ([]Backup, error) {
	if d.backups == nil {
		return []Backup{}, nil
	}
	list, err := d.backups.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	if list == nil {
		list = []Backup{}
	}
	return list, nil
}

func (d *DocumentStore) nextTimestamp(prev string) string {
	now := d.now().UTC().Truncate(time.Millisecond)
	if p, err := time.Parse(TimestampLayout, prev); err == nil && !now.After(p) {
		now = p.Add(time.Millisecond)
	}
	return now.Format(TimestampLayout)
}
