package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"tfm-tracker/internal/api"
	"tfm-tracker/internal/constants"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/tracker"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNotPropagated means a mutation was applied locally but the server did not
// accept it. The next successful push or poll reconciles.
var ErrNotPropagated = errors.New("change not propagated to server")

type Phase int

const (
	Idle Phase = iota
	Polling
	Sending
)

func (p Phase) String() string {
	switch p {
	case Polling:
		return "polling"
	case Sending:
		return "sending"
	default:
		return "idle"
	}
}

type Remote interface {
	FetchData(ctx context.Context) (*domain.Document, error)
	CheckSync(ctx context.Context, lastUpdated string) (*api.SyncResponse, error)
	PushData(ctx context.Context, doc domain.Document) (string, error)
}

type Cache interface {
	Load(ctx context.Context) (domain.Document, bool, error)
	Save(ctx context.Context, doc domain.Document) error
}

type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceEmpty  Source = "empty"
)

// Reconciler keeps a tracker session in step with the server. Local mutations
// are pushed immediately; a periodic poll pulls remote changes when no push is
// in flight. The mutation generation lets a poll detect that its answer is
// older than local state and drop it.
type Reconciler struct {
	remote  Remote
	cache   Cache
	session *tracker.Session
	logger  zerolog.Logger

	mu          sync.Mutex
	lastUpdated string
	inFlight    int
	polling     bool
	generation  uint64
	connected   bool

	// pushMu orders pushes to the server.
	pushMu sync.Mutex

	scheduler gocron.Scheduler
}

func New(remote Remote, cache Cache, session *tracker.Session, logger zerolog.Logger) *Reconciler {
	return &Reconciler{remote: remote, cache: cache, session: session, logger: logger}
}

func (r *Reconciler) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phaseLocked()
}

func (r *Reconciler) phaseLocked() Phase {
	switch {
	case r.inFlight > 0:
		return Sending
	case r.polling:
		return Polling
	default:
		return Idle
	}
}

func (r *Reconciler) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

func (r *Reconciler) LastUpdated() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUpdated
}

// View runs fn with the session locked. fn must not keep the session.
func (r *Reconciler) View(fn func(s *tracker.Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.session)
}

func (r *Reconciler) Snapshot() domain.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc := r.session.Snapshot()
	doc.LastUpdated = r.lastUpdated
	return doc
}

// Load bootstraps the session. The server copy wins; the local cache is used
// when the server cannot be reached.
func (r *Reconciler) Load(ctx context.Context) (Source, error) {
	var (
		remoteDoc *domain.Document
		remoteErr error
		cached    domain.Document
		hasCache  bool
		cacheErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetchCtx, cancel := context.WithTimeout(gctx, constants.ExternalAPITimeout)
		defer cancel()
		remoteDoc, remoteErr = r.remote.FetchData(fetchCtx)
		return nil
	})
	g.Go(func() error {
		cached, hasCache, cacheErr = r.cache.Load(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return SourceEmpty, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case remoteErr == nil:
		r.session.Replace(*remoteDoc)
		r.lastUpdated = remoteDoc.LastUpdated
		r.connected = true
		r.saveCacheLocked(ctx)
		r.logger.Info().
			Int("players", len(remoteDoc.Players)).
			Int("games", len(remoteDoc.Games)).
			Str("last_updated", r.lastUpdated).
			Msg("loaded document from server")
		return SourceRemote, nil
	case cacheErr == nil && hasCache:
		r.session.Replace(cached)
		r.connected = false
		r.logger.Warn().Err(remoteErr).Msg("server unreachable, loaded local cache")
		return SourceCache, nil
	default:
		r.connected = false
		if cacheErr != nil {
			r.logger.Warn().Err(cacheErr).Msg("local cache unreadable")
		}
		r.logger.Warn().Err(remoteErr).Msg("server unreachable and no local cache, starting empty")
		return SourceEmpty, nil
	}
}

// Poll asks the server whether the local copy is stale and adopts the server's
// document if so. It reports whether local state was replaced.
func (r *Reconciler) Poll(ctx context.Context) (bool, error) {
	r.mu.Lock()
	if r.inFlight > 0 || r.polling {
		r.mu.Unlock()
		r.logger.Debug().Msg("poll skipped")
		return false, nil
	}
	r.polling = true
	gen := r.generation
	since := r.lastUpdated
	r.mu.Unlock()

	resp, err := r.remote.CheckSync(ctx, since)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.polling = false

	if err != nil {
		if r.connected {
			r.logger.Warn().Err(err).Msg("lost connection to server")
		}
		r.connected = false
		return false, fmt.Errorf("failed to check sync: %w", err)
	}
	r.connected = true

	if !resp.NeedsUpdate || resp.Data == nil {
		return false, nil
	}
	if gen != r.generation || r.inFlight > 0 {
		r.logger.Debug().Uint64("generation", gen).Uint64("current", r.generation).Msg("discarding poll raced by local change")
		return false, nil
	}

	r.session.Replace(*resp.Data)
	r.lastUpdated = resp.LastUpdated
	if r.lastUpdated == "" {
		r.lastUpdated = resp.Data.LastUpdated
	}
	r.saveCacheLocked(ctx)
	r.logger.Info().
		Str("last_updated", r.lastUpdated).
		Int("games", len(resp.Data.Games)).
		Msg("applied remote document")
	return true, nil
}

// Mutate applies fn to the session, caches the result and pushes it. If fn
// fails nothing changes. If the push fails the change stays applied locally
// and ErrNotPropagated is returned. Pushes go out one at a time and each
// carries the session as it is when the push starts, so the last push to
// finish always holds the latest local state.
func (r *Reconciler) Mutate(ctx context.Context, action string, fn func(s *tracker.Session) error) error {
	r.mu.Lock()
	if err := fn(r.session); err != nil {
		r.mu.Unlock()
		return err
	}
	r.generation++
	r.inFlight++
	r.saveCacheLocked(ctx)
	r.mu.Unlock()

	r.pushMu.Lock()
	defer r.pushMu.Unlock()

	r.mu.Lock()
	doc := r.session.Snapshot()
	r.mu.Unlock()

	ts, err := r.remote.PushData(ctx, doc)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight--

	if err != nil {
		r.connected = false
		r.logger.Error().Err(err).Str("action", action).Msg("failed to push change")
		return fmt.Errorf("%w: %s: %w", ErrNotPropagated, action, err)
	}
	r.connected = true
	r.lastUpdated = ts
	r.logger.Info().Str("action", action).Str("last_updated", ts).Msg("change pushed")
	return nil
}

// Import merges a legacy export into the session and pushes the result.
func (r *Reconciler) Import(ctx context.Context, legacy domain.Document) (tracker.MergeReport, error) {
	var report tracker.MergeReport
	err := r.Mutate(ctx, "import", func(s *tracker.Session) error {
		var err error
		report, err = s.MergeLegacy(legacy)
		return err
	})
	return report, err
}

func (r *Reconciler) saveCacheLocked(ctx context.Context) {
	if err := r.cache.Save(ctx, r.session.Snapshot()); err != nil {
		r.logger.Warn().Err(err).Msg("failed to write local cache")
	}
}

// Start schedules Poll every interval. A slow poll delays the next one rather
// than overlapping it.
func (r *Reconciler) Start(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), constants.ExternalAPITimeout)
			defer cancel()
			if _, err := r.Poll(ctx); err != nil {
				r.logger.Debug().Err(err).Msg("poll failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("sync-poll"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule poll: %w", err)
	}

	sched.Start()
	r.mu.Lock()
	r.scheduler = sched
	r.mu.Unlock()
	r.logger.Info().Dur("interval", interval).Msg("sync polling started")
	return nil
}

func (r *Reconciler) Stop() error {
	r.mu.Lock()
	sched := r.scheduler
	r.scheduler = nil
	r.mu.Unlock()
	if sched == nil {
		return nil
	}
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	r.logger.Info().Msg("sync polling stopped")
	return nil
}
