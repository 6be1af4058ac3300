package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"tfm-tracker/internal/constants"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/metrics"
	"tfm-tracker/internal/stats"
	"tfm-tracker/internal/store"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNoDocument     = errors.New("no data found")
)

const emptyDocument = `{"players":[],"games":[],"selectedMap":"` + domain.DefaultMap + `","selectedColonies":[]}`

type SaveResult struct {
	LastUpdated string
	Players     int
	Games       int
}

type SyncResult struct {
	NeedsUpdate bool            `json:"needsUpdate"`
	Data        json.RawMessage `json:"data"`
	LastUpdated *string         `json:"lastUpdated"`
}

type Export struct {
	Filename string
	Body     []byte
}

type RecalculateResult struct {
	LastUpdated string
	Players     int
	Games       int
}

type Archiver interface {
	Store(ctx context.Context, filename string, body []byte) (string, error)
	Enabled() bool
}

// DocumentService owns the server's view of the shared document. It works on raw
// JSON so that fields it does not model survive a round trip.
type DocumentService struct {
	docs     *store.DocumentStore
	archiver Archiver
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

func NewDocumentService(docs *store.DocumentStore, archiver Archiver, m *metrics.Metrics, logger zerolog.Logger) *DocumentService {
	return &DocumentService{docs: docs, archiver: archiver, metrics: m, logger: logger, now: time.Now}
}

func (s *DocumentService) WithClock(now func() time.Time) *DocumentService {
	s.now = now
	return s
}

func (s *DocumentService) timestamp() string {
	return s.now().UTC().Format(store.TimestampLayout)
}

// Current returns the stored document with lastUpdated attached, or the empty
// document when nothing has been saved yet.
func (s *DocumentService) Current(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snap, err := s.docs.Load(ctx)
	if err != nil {
		return nil, err
	}
	data := snap.Data
	if !snap.Exists {
		data = emptyDocument
	}
	ts := snap.LastUpdated
	if ts == "" {
		ts = s.timestamp()
	}
	out, err := sjson.SetBytes([]byte(data), "lastUpdated", ts)
	if err != nil {
		return nil, fmt.Errorf("failed to attach lastUpdated: %w", err)
	}
	return out, nil
}

// Save validates and normalizes an incoming document and overwrites the stored one.
func (s *DocumentService) Save(ctx context.Context, payload []byte) (SaveResult, error) {
	if !gjson.ValidBytes(payload) {
		return SaveResult{}, fmt.Errorf("%w: body is not valid JSON", ErrInvalidPayload)
	}
	root := gjson.ParseBytes(payload)
	players := root.Get("players")
	if !players.IsArray() {
		return SaveResult{}, fmt.Errorf("%w: players must be an array", ErrInvalidPayload)
	}
	games := root.Get("games")
	if !games.IsArray() {
		return SaveResult{}, fmt.Errorf("%w: games must be an array", ErrInvalidPayload)
	}

	doc, err := normalize(root)
	if err != nil {
		return SaveResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	res := SaveResult{Players: len(players.Array()), Games: len(games.Array())}
	res.LastUpdated, err = s.docs.Save(ctx, doc)
	s.metrics.ObserveSave(err, res.Players, res.Games)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to save document")
		return SaveResult{}, fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.Info().
		Int("players", res.Players).
		Int("games", res.Games).
		Str("last_updated", res.LastUpdated).
		Msg("document saved")
	return res, nil
}

// normalize builds the stored form: players, games, a selectedMap reduced from
// the older {value} object form and defaulted when missing, and an array of
// selected colonies. Any lastUpdated in the payload is dropped.
func normalize(root gjson.Result) (string, error) {
	doc := "{}"
	var err error
	set := func(path, raw string) {
		if err == nil {
			doc, err = sjson.SetRaw(doc, path, raw)
		}
	}

	set("players", root.Get("players").Raw)
	set("games", root.Get("games").Raw)

	selected := root.Get("selectedMap")
	switch {
	case !selected.Exists() || selected.Type == gjson.Null:
		set("selectedMap", `"`+domain.DefaultMap+`"`)
	case selected.IsObject() && selected.Get("value").Exists():
		set("selectedMap", selected.Get("value").Raw)
	default:
		set("selectedMap", selected.Raw)
	}

	if colonies := root.Get("selectedColonies"); colonies.IsArray() {
		set("selectedColonies", colonies.Raw)
	} else {
		set("selectedColonies", "[]")
	}

	if err != nil {
		return "", fmt.Errorf("failed to build document: %w", err)
	}
	return doc, nil
}

// Sync reports whether a client holding timestamp is stale and, if so, ships
// the current document.
func (s *DocumentService) Sync(ctx context.Context, timestamp string) (SyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snap, err := s.docs.Load(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{
		NeedsUpdate: timestamp == "" || timestamp != snap.LastUpdated,
		Data:        json.RawMessage("null"),
	}
	if snap.LastUpdated != "" {
		ts := snap.LastUpdated
		res.LastUpdated = &ts
	}
	if res.NeedsUpdate && snap.Exists {
		data, err := sjson.Set(snap.Data, "lastUpdated", snap.LastUpdated)
		if err != nil {
			return SyncResult{}, fmt.Errorf("failed to attach lastUpdated: %w", err)
		}
		res.Data = json.RawMessage(data)
	}
	s.metrics.ObserveSync(res.NeedsUpdate)
	return res, nil
}

// Export produces the downloadable document and, when configured, archives it.
// Archive failures are logged and do not fail the export.
func (s *DocumentService) Export(ctx context.Context) (Export, error) {
	loadCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	snap, err := s.docs.Load(loadCtx)
	cancel()
	if err != nil {
		return Export{}, err
	}
	data := snap.Data
	if !snap.Exists {
		data = emptyDocument
	}
	now := s.now().UTC()
	body, err := sjson.SetBytes([]byte(data), "exportDate", now.Format(store.TimestampLayout))
	if err == nil {
		body, err = sjson.SetBytes(body, "exportedBy", constants.ExportedBy)
	}
	if err != nil {
		return Export{}, fmt.Errorf("failed to build export: %w", err)
	}
	exp := Export{
		Filename: fmt.Sprintf(constants.ExportFilename, now.Format("2006-01-02")),
		Body:     body,
	}

	if s.archiver != nil && s.archiver.Enabled() {
		_, err := s.archiver.Store(ctx, exp.Filename, exp.Body)
		s.metrics.ObserveArchive(err)
		if err != nil {
			s.logger.Warn().Err(err).Str("filename", exp.Filename).Msg("export served without archive copy")
		}
	}
	return exp, nil
}

// Recalculate rebuilds every stored player's games and stats from the stored log.
func (s *DocumentService) Recalculate(ctx context.Context) (RecalculateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snap, err := s.docs.Load(ctx)
	if err != nil {
		return RecalculateResult{}, err
	}
	if !snap.Exists {
		return RecalculateResult{}, ErrNoDocument
	}

	var doc struct {
		Players []domain.Player `json:"players"`
		Games   []domain.Game   `json:"games"`
	}
	if err := json.Unmarshal([]byte(snap.Data), &doc); err != nil {
		return RecalculateResult{}, fmt.Errorf("%w: %w", store.ErrCorruptDocument, err)
	}

	players := stats.Recalculate(doc.Players, doc.Games)
	data, err := sjson.Set(snap.Data, "players", players)
	if err != nil {
		return RecalculateResult{}, fmt.Errorf("failed to patch players: %w", err)
	}

	ts, err := s.docs.Save(ctx, data)
	s.metrics.ObserveSave(err, len(players), len(doc.Games))
	if err != nil {
		return RecalculateResult{}, fmt.Errorf("failed to save recalculated document: %w", err)
	}

	s.logger.Info().Int("players", len(players)).Int("games", len(doc.Games)).Msg("player stats recalculated")
	return RecalculateResult{LastUpdated: ts, Players: len(players), Games: len(doc.Games)}, nil
}

// Games decodes the stored game log, empty when nothing is stored.
func (s *DocumentService) Games(ctx context.Context) ([]domain.Game, error) {
	_, games, err := s.Log(ctx)
	return games, err
}

// Log decodes the stored players and games from one read. Both are empty when
// nothing is stored.
func (s *DocumentService) Log(ctx context.Context) ([]domain.Player, []domain.Game, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snap, err := s.docs.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	players, games := []domain.Player{}, []domain.Game{}
	if !snap.Exists {
		return players, games, nil
	}
	if raw := gjson.Get(snap.Data, "players"); raw.IsArray() {
		if err := json.Unmarshal([]byte(raw.Raw), &players); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", store.ErrCorruptDocument, err)
		}
	}
	if raw := gjson.Get(snap.Data, "games"); raw.IsArray() {
		if err := json.Unmarshal([]byte(raw.Raw), &games); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", store.ErrCorruptDocument, err)
		}
	}
	return players, games, nil
}

// Backups lists the retained snapshots of earlier documents, newest first.
func (s *DocumentService) Backups(ctx context.Context) ([]store.Backup, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	backups, err := s.docs.Backups(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list backups")
		return nil, err
	}
	return backups, nil
}
