package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"tfm-tracker/internal/api"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/store"
	"tfm-tracker/internal/tracker"
	"time"

	"github.com/rs/zerolog"
)

type fakeRemote struct {
	mu       sync.Mutex
	doc      *domain.Document
	fetchErr error
	sync     *api.SyncResponse
	syncErr  error
	pushErr  error
	pushed   []domain.Document
	stamp    string
	// consumed in order before falling back to stamp
	stamps []string

	active, maxActive int

	// when set, PushData signals entered and waits for release
	entered chan struct{}
	release chan struct{}
	// when set, CheckSync runs hook before answering
	hook func()
}

func (f *fakeRemote) FetchData(context.Context) (*domain.Document, error) {
	return f.doc, f.fetchErr
}

func (f *fakeRemote) CheckSync(_ context.Context, since string) (*api.SyncResponse, error) {
	if f.hook != nil {
		f.hook()
	}
	return f.sync, f.syncErr
}

func (f *fakeRemote) PushData(_ context.Context, doc domain.Document) (string, error) {
	f.mu.Lock()
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	if f.pushErr != nil {
		return "", f.pushErr
	}
	f.pushed = append(f.pushed, doc)
	if len(f.stamps) > 0 {
		ts := f.stamps[0]
		f.stamps = f.stamps[1:]
		return ts, nil
	}
	return f.stamp, nil
}

func newReconciler(remote *fakeRemote) (*Reconciler, *store.LocalCache) {
	cache := store.NewLocalCache(store.NewMemoryKV())
	return New(remote, cache, tracker.New(tracker.WithLocation(time.UTC)), zerolog.Nop()), cache
}

func remoteDoc(names ...string) *domain.Document {
	doc := &domain.Document{Games: []domain.Game{}, SelectedMap: domain.DefaultMap, LastUpdated: "2024-03-01T00:00:00.000Z"}
	for i, n := range names {
		doc.Players = append(doc.Players, domain.Player{ID: i + 1, Name: n})
	}
	return doc
}

func TestLoadPrefersRemote(t *testing.T) {
	remote := &fakeRemote{doc: remoteDoc("Alice", "Bob")}
	r, cache := newReconciler(remote)
	cache.Save(context.Background(), *remoteDoc("Stale"))

	src, err := r.Load(context.Background())
	if err != nil || src != SourceRemote {
		t.Fatalf("expected remote source, got %s (%v)", src, err)
	}
	if !r.Connected() || r.LastUpdated() != "2024-03-01T00:00:00.000Z" {
		t.Errorf("unexpected state connected=%v last=%s", r.Connected(), r.LastUpdated())
	}
	cached, _, _ := cache.Load(context.Background())
	if len(cached.Players) != 2 {
		t.Errorf("remote document should refresh the cache, got %+v", cached.Players)
	}
}

func TestLoadFallsBackToCache(t *testing.T) {
	remote := &fakeRemote{fetchErr: errors.New("connection refused")}
	r, cache := newReconciler(remote)
	cache.Save(context.Background(), *remoteDoc("Alice"))

	src, err := r.Load(context.Background())
	if err != nil || src != SourceCache {
		t.Fatalf("expected cache source, got %s (%v)", src, err)
	}
	if r.Connected() || r.LastUpdated() != "" {
		t.Error("cache load must leave the client disconnected and stale")
	}
	if got := r.Snapshot().Players; len(got) != 1 || got[0].Name != "Alice" {
		t.Errorf("unexpected players %+v", got)
	}
}

func TestLoadEmpty(t *testing.T) {
	r, _ := newReconciler(&fakeRemote{fetchErr: errors.New("down")})
	if src, err := r.Load(context.Background()); err != nil || src != SourceEmpty {
		t.Errorf("expected empty source, got %s (%v)", src, err)
	}
}

func TestPollAppliesRemote(t *testing.T) {
	remote := &fakeRemote{sync: &api.SyncResponse{
		NeedsUpdate: true,
		Data:        remoteDoc("Carol"),
		LastUpdated: "2024-03-02T00:00:00.000Z",
	}}
	r, _ := newReconciler(remote)

	updated, err := r.Poll(context.Background())
	if err != nil || !updated {
		t.Fatalf("expected update, got %v (%v)", updated, err)
	}
	if r.LastUpdated() != "2024-03-02T00:00:00.000Z" || r.Snapshot().Players[0].Name != "Carol" {
		t.Errorf("remote document not applied: %+v", r.Snapshot())
	}
	if r.Phase() != Idle {
		t.Errorf("expected idle after poll, got %s", r.Phase())
	}

	remote.sync = &api.SyncResponse{NeedsUpdate: false, LastUpdated: "2024-03-02T00:00:00.000Z"}
	if updated, _ := r.Poll(context.Background()); updated {
		t.Error("up-to-date poll should not replace state")
	}
}

func TestPollFailureMarksDisconnected(t *testing.T) {
	r, _ := newReconciler(&fakeRemote{doc: remoteDoc(), syncErr: errors.New("timeout")})
	r.Load(context.Background())
	if _, err := r.Poll(context.Background()); err == nil {
		t.Fatal("expected poll error")
	}
	if r.Connected() {
		t.Error("expected disconnected after failed poll")
	}
}

func TestPollSkippedWhilePushInFlight(t *testing.T) {
	remote := &fakeRemote{
		stamp:   "2024-03-05T00:00:00.000Z",
		entered: make(chan struct{}),
		release: make(chan struct{}),
		sync:    &api.SyncResponse{NeedsUpdate: true, Data: remoteDoc("Intruder")},
	}
	r, _ := newReconciler(remote)

	done := make(chan error)
	go func() {
		done <- r.Mutate(context.Background(), "setup", func(s *tracker.Session) error {
			return s.SetupPlayers([]string{"Alice", "Bob"})
		})
	}()
	<-remote.entered

	if r.Phase() != Sending {
		t.Errorf("expected sending phase, got %s", r.Phase())
	}
	if updated, err := r.Poll(context.Background()); updated || err != nil {
		t.Errorf("poll during push must be skipped, got %v (%v)", updated, err)
	}

	close(remote.release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if got := r.Snapshot().Players; len(got) != 2 || got[0].Name != "Alice" {
		t.Errorf("local change lost: %+v", got)
	}
	if r.LastUpdated() != "2024-03-05T00:00:00.000Z" {
		t.Errorf("expected push timestamp, got %s", r.LastUpdated())
	}
}

func TestPollDiscardedWhenRacedByMutation(t *testing.T) {
	remote := &fakeRemote{
		stamp: "2024-03-05T00:00:00.000Z",
		sync:  &api.SyncResponse{NeedsUpdate: true, Data: remoteDoc("Old")},
	}
	r, _ := newReconciler(remote)
	remote.hook = func() {
		remote.hook = nil
		if err := r.Mutate(context.Background(), "setup", func(s *tracker.Session) error {
			return s.SetupPlayers([]string{"New"})
		}); err != nil {
			t.Error(err)
		}
	}

	if updated, err := r.Poll(context.Background()); updated || err != nil {
		t.Errorf("raced poll should be discarded, got %v (%v)", updated, err)
	}
	if got := r.Snapshot().Players; len(got) != 1 || got[0].Name != "New" {
		t.Errorf("local mutation overwritten: %+v", got)
	}
}

func TestMutate(t *testing.T) {
	remote := &fakeRemote{stamp: "2024-03-05T00:00:00.000Z"}
	r, cache := newReconciler(remote)
	ctx := context.Background()

	invalid := errors.New("nope")
	if err := r.Mutate(ctx, "noop", func(*tracker.Session) error { return invalid }); !errors.Is(err, invalid) {
		t.Errorf("expected fn error, got %v", err)
	}
	if len(remote.pushed) != 0 {
		t.Error("failed mutation must not push")
	}

	if err := r.Mutate(ctx, "setup", func(s *tracker.Session) error {
		return s.SetupPlayers([]string{"Alice"})
	}); err != nil {
		t.Fatal(err)
	}
	if len(remote.pushed) != 1 || remote.pushed[0].Players[0].Name != "Alice" {
		t.Errorf("unexpected push %+v", remote.pushed)
	}

	remote.pushErr = errors.New("503")
	err := r.Mutate(ctx, "map", func(s *tracker.Session) error { return s.SelectMap("HELLAS") })
	if !errors.Is(err, ErrNotPropagated) {
		t.Fatalf("expected ErrNotPropagated, got %v", err)
	}
	if r.Connected() {
		t.Error("failed push should mark the connection down")
	}
	if r.Snapshot().SelectedMap != "HELLAS" {
		t.Error("local change must survive a failed push")
	}
	cached, _, _ := cache.Load(ctx)
	if cached.SelectedMap != "HELLAS" {
		t.Error("local change must reach the cache")
	}
}

func TestConcurrentMutationsPushInOrder(t *testing.T) {
	remote := &fakeRemote{
		stamps:  []string{"2024-03-05T00:00:00.001Z", "2024-03-05T00:00:00.002Z"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	r, _ := newReconciler(remote)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := r.Mutate(ctx, "setup", func(s *tracker.Session) error {
			return s.SetupPlayers([]string{"Alice", "Bob"})
		}); err != nil {
			t.Error(err)
		}
	}()
	<-remote.entered

	go func() {
		defer wg.Done()
		if err := r.Mutate(ctx, "map", func(s *tracker.Session) error { return s.SelectMap("HELLAS") }); err != nil {
			t.Error(err)
		}
	}()
	time.Sleep(20 * time.Millisecond)
	close(remote.release)
	<-remote.entered
	wg.Wait()

	if remote.maxActive != 1 {
		t.Errorf("pushes overlapped: %d at once", remote.maxActive)
	}
	if len(remote.pushed) != 2 {
		t.Fatalf("expected two pushes, got %d", len(remote.pushed))
	}
	last := remote.pushed[1]
	if last.SelectedMap != "HELLAS" || len(last.Players) != 2 {
		t.Errorf("last push must carry the latest session, got map %s with %d players", last.SelectedMap, len(last.Players))
	}
	if r.LastUpdated() != "2024-03-05T00:00:00.002Z" {
		t.Errorf("expected the last push's timestamp, got %s", r.LastUpdated())
	}
	if r.Phase() != Idle {
		t.Errorf("expected idle after both pushes, got %s", r.Phase())
	}
}

func TestImport(t *testing.T) {
	remote := &fakeRemote{stamp: "2024-03-05T00:00:00.000Z"}
	r, _ := newReconciler(remote)
	legacy := domain.Document{
		Players: []domain.Player{{ID: 7, Name: "Alice"}},
		Games: []domain.Game{{ID: 1, Date: "2023. 5. 1.", Map: "THARSIS", Results: []domain.GameResult{
			{PlayerID: 7, PlayerName: "Alice", Corporation: "Ecoline", Score: 70, Rank: 1},
		}}},
	}

	report, err := r.Import(context.Background(), legacy)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.NewPlayers) != 1 || report.Games != 1 {
		t.Errorf("unexpected report %+v", report)
	}
	alice := r.Snapshot().Players[0]
	if alice.ID != 1 || alice.Stats.Wins != 1 {
		t.Errorf("imported player not rebuilt: %+v", alice)
	}
}

func TestStartStop(t *testing.T) {
	remote := &fakeRemote{sync: &api.SyncResponse{NeedsUpdate: false}}
	r, _ := newReconciler(remote)
	if err := r.Start(10 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := r.Stop(); err != nil {
		t.Fatal(err)
	}
	if !r.Connected() {
		t.Error("scheduled polls should have reached the server")
	}
	if err := r.Stop(); err != nil {
		t.Errorf("second stop should be a no-op, got %v", err)
	}
}
