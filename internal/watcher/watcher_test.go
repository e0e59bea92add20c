package watcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"menuscout/internal/cache"
	"menuscout/internal/events"
	"menuscout/internal/menu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// countingStore wraps a Store and tracks concurrent writers.
type countingStore struct {
	cache.Store
	writes    atomic.Int32
	active    atomic.Int32
	maxActive atomic.Int32
}

func (s *countingStore) Set(ctx context.Context, key string, value []byte) error {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxActive.Load()
		if n <= m || s.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	s.writes.Add(1)
	return s.Store.Set(ctx, key, value)
}

type notices struct {
	mu   sync.Mutex
	list []Level
}

func (n *notices) Notify(message string, level Level) {
	n.mu.Lock()
	n.list = append(n.list, level)
	n.mu.Unlock()
}

func (n *notices) levels() []Level {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Level(nil), n.list...)
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	store, err := cache.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &countingStore{Store: store}
}

func snapshotWith(n int) menu.Snapshot {
	snap := menu.NewSnapshot("https://rostics.ru/menu", time.Now())
	for i := 0; i < n; i++ {
		snap.Items = append(snap.Items, menu.MenuItem{ID: "item-1", Name: "Шефбургер"})
	}
	return snap
}

func testConfig() Config {
	return Config{
		Delay:        20 * time.Millisecond,
		Cooldown:     time.Minute,
		InitialDelay: 10 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}
}

func TestRun_SavesAndPublishes(t *testing.T) {
	store := newStore(t)
	bus := events.NewBus()
	sub, cancel := bus.Subscribe()
	defer cancel()
	n := &notices{}

	w := New(testConfig(), func(ctx context.Context) (menu.Snapshot, error) {
		return snapshotWith(3), nil
	}, cache.New(store, 0), WithBus(bus), WithNotifier(n), WithURL("https://rostics.ru/menu"))

	rec, err := w.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Items, 3)
	assert.EqualValues(t, 1, store.writes.Load())

	select {
	case ev := <-sub:
		assert.Equal(t, events.SnapshotUpdated, ev.Kind)
		assert.Equal(t, 3, ev.Items)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	st := w.Status()
	assert.Equal(t, 1, st.Runs)
	assert.False(t, st.InFlight)
	assert.False(t, st.LastRun.IsZero())
	assert.Equal(t, "https://rostics.ru/menu", st.URL)
	assert.Equal(t, []Level{LevelSuccess}, n.levels())
}

func TestRun_NoItemsIsNotSaved(t *testing.T) {
	store := newStore(t)
	n := &notices{}
	w := New(testConfig(), func(ctx context.Context) (menu.Snapshot, error) {
		return snapshotWith(0), nil
	}, cache.New(store, 0), WithNotifier(n))

	rec, err := w.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Nil(t, rec)
	assert.Zero(t, store.writes.Load())
	assert.Equal(t, []Level{LevelWarning}, n.levels())
	assert.True(t, w.Status().LastRun.IsZero())
}

func TestRun_ExtractFailure(t *testing.T) {
	store := newStore(t)
	n := &notices{}
	boom := errors.New("page crashed")
	w := New(testConfig(), func(ctx context.Context) (menu.Snapshot, error) {
		return menu.Snapshot{}, boom
	}, cache.New(store, 0), WithNotifier(n))

	_, err := w.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.writes.Load())
	assert.Equal(t, []Level{LevelError}, n.levels())
}

func TestRun_RejectsConcurrentRuns(t *testing.T) {
	store := newStore(t)
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	w := New(testConfig(), func(ctx context.Context) (menu.Snapshot, error) {
		once.Do(func() { close(started) })
		<-release
		return snapshotWith(1), nil
	}, cache.New(store, 0), WithNotifier(&notices{}))

	done := make(chan error, 1)
	go func() {
		_, err := w.Run(context.Background())
		done <- err
	}()
	<-started

	assert.True(t, w.Status().InFlight)
	for i := 0; i < 5; i++ {
		_, err := w.Run(context.Background())
		assert.ErrorIs(t, err, ErrBusy)
	}

	close(release)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, store.writes.Load())
	assert.EqualValues(t, 1, store.maxActive.Load())
}

func TestTrigger_Debounces(t *testing.T) {
	store := newStore(t)
	var calls atomic.Int32
	w := New(testConfig(), func(ctx context.Context) (menu.Snapshot, error) {
		calls.Add(1)
		return snapshotWith(1), nil
	}, cache.New(store, 0), WithNotifier(&notices{}))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		w.Trigger(ctx, "mutation")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
	assert.False(t, w.Status().Pending)
}

func TestTrigger_RespectsCooldown(t *testing.T) {
	store := newStore(t)
	clk := &clock{t: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)}
	var calls atomic.Int32
	w := New(testConfig(), func(ctx context.Context) (menu.Snapshot, error) {
		calls.Add(1)
		return snapshotWith(1), nil
	}, cache.New(store, 0), WithNotifier(&notices{}), WithClock(clk.now))

	ctx := context.Background()
	_, err := w.Run(ctx)
	require.NoError(t, err)

	clk.advance(30 * time.Second)
	w.Trigger(ctx, "scroll")
	require.Eventually(t, func() bool { return !w.Status().Pending }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())

	clk.advance(30 * time.Second)
	w.Trigger(ctx, "scroll")
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestStop_CancelsPending(t *testing.T) {
	var calls atomic.Int32
	cfg := testConfig()
	cfg.Delay = 50 * time.Millisecond
	w := New(cfg, func(ctx context.Context) (menu.Snapshot, error) {
		calls.Add(1)
		return snapshotWith(1), nil
	}, cache.New(newStore(t), 0), WithNotifier(&notices{}))

	w.Trigger(context.Background(), "mutation")
	assert.True(t, w.Status().Pending)
	w.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

type fakeProbe struct {
	mu       sync.Mutex
	added    []bool
	near     []bool
	scrolled int
}

func (p *fakeProbe) next(list *[]bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(*list) == 0 {
		return false
	}
	v := (*list)[0]
	*list = (*list)[1:]
	return v
}

func (p *fakeProbe) ItemsAdded() (bool, error) { return p.next(&p.added), nil }
func (p *fakeProbe) NearBottom() (bool, error) { return p.next(&p.near), nil }

func (p *fakeProbe) ScrollToBottom() error {
	p.mu.Lock()
	p.scrolled++
	p.mu.Unlock()
	return nil
}

func TestWatch_InitialRunThenMutation(t *testing.T) {
	store := newStore(t)
	cfg := testConfig()
	cfg.Cooldown = 0
	cfg.AutoScroll = true

	var calls atomic.Int32
	w := New(cfg, func(ctx context.Context) (menu.Snapshot, error) {
		calls.Add(1)
		return snapshotWith(2), nil
	}, cache.New(store, 0), WithNotifier(&notices{}))

	probe := &fakeProbe{added: []bool{false, true}, near: []bool{false, false, true}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, probe) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	probe.mu.Lock()
	assert.Positive(t, probe.scrolled)
	probe.mu.Unlock()
	assert.EqualValues(t, 1, store.maxActive.Load())
}

func TestWatch_StopsBeforeInitialRun(t *testing.T) {
	cfg := testConfig()
	cfg.InitialDelay = time.Hour
	var calls atomic.Int32
	w := New(cfg, func(ctx context.Context) (menu.Snapshot, error) {
		calls.Add(1)
		return snapshotWith(1), nil
	}, cache.New(newStore(t), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Watch(ctx, &fakeProbe{}))
	assert.Zero(t, calls.Load())
}
