package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"menuscout/internal/cache"
	"menuscout/internal/events"
	"menuscout/internal/menu"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrBusy is returned by Run while another extraction is in flight.
	ErrBusy = errors.New("extraction already in progress")
	// ErrNoItems is returned by Run when the page yielded no items; nothing is saved.
	ErrNoItems = errors.New("no menu items found")
)

// ExtractFunc produces a fresh snapshot of the watched page.
type ExtractFunc func(ctx context.Context) (menu.Snapshot, error)

// Probe reports page activity that may mean more items were loaded.
type Probe interface {
	ItemsAdded() (bool, error)
	NearBottom() (bool, error)
}

// Scroller is implemented by probes that can drive lazy loading themselves.
type Scroller interface {
	ScrollToBottom() error
}

// Config holds the watcher timings.
type Config struct {
	Delay        time.Duration // debounce between a trigger and the extraction
	Cooldown     time.Duration // minimum time since the last completed extraction
	InitialDelay time.Duration // wait after page load before the first extraction
	PollInterval time.Duration // how often the probe is read
	AutoScroll   bool
}

func DefaultConfig() Config {
	return Config{
		Delay:        2 * time.Second,
		Cooldown:     5 * time.Second,
		InitialDelay: 2 * time.Second,
		PollInterval: time.Second,
	}
}

// Status is a point in time view of the watcher.
type Status struct {
	URL      string    `json:"url"`
	InFlight bool      `json:"isParsing"`
	LastRun  time.Time `json:"lastParseTime"`
	Runs     int       `json:"runs"`
	Pending  bool      `json:"pending"`
}

// Watcher re-extracts a page when it changes and stores the result.
// At most one extraction runs at a time.
type Watcher struct {
	cfg      Config
	extract  ExtractFunc
	cache    *cache.Cache
	bus      *events.Bus
	notifier Notifier
	url      string
	now      func() time.Time

	mu       sync.Mutex
	inFlight bool
	lastDone time.Time
	timer    *time.Timer
	gen      int
	runs     int
}

type Option func(*Watcher)

func WithBus(bus *events.Bus) Option {
	return func(w *Watcher) { w.bus = bus }
}

func WithNotifier(n Notifier) Option {
	return func(w *Watcher) { w.notifier = n }
}

func WithURL(url string) Option {
	return func(w *Watcher) { w.url = url }
}

func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

func New(cfg Config, extract ExtractFunc, c *cache.Cache, opts ...Option) *Watcher {
	w := &Watcher{
		cfg:      cfg,
		extract:  extract,
		cache:    c,
		notifier: LogNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Trigger schedules an extraction after the debounce delay. A later trigger
// replaces a pending one. When the delay elapses the extraction runs only if
// the cooldown since the last completed extraction has passed.
func (w *Watcher) Trigger(ctx context.Context, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	log.WithField("reason", reason).Debug("scheduling reparse")
	w.gen++
	gen := w.gen
	w.timer = time.AfterFunc(w.cfg.Delay, func() {
		w.fire(ctx, reason, gen)
	})
}

func (w *Watcher) fire(ctx context.Context, reason string, gen int) {
	w.mu.Lock()
	if w.gen == gen {
		w.timer = nil
	}
	last := w.lastDone
	w.mu.Unlock()

	if !last.IsZero() && w.now().Sub(last) < w.cfg.Cooldown {
		log.WithField("reason", reason).Debug("skipping reparse, last one was too recent")
		return
	}

	if _, err := w.Run(ctx); err != nil {
		switch {
		case errors.Is(err, ErrBusy):
			log.Debug("parse already in progress, skipping")
		case errors.Is(err, ErrNoItems):
		default:
			log.WithError(err).WithField("reason", reason).Warn("reparse failed")
		}
	}
}

// Run extracts and saves immediately. It returns ErrBusy when an extraction
// is already in flight, ErrNoItems when the page had nothing to save, and the
// storage error when saving failed.
func (w *Watcher) Run(ctx context.Context) (*cache.Record, error) {
	w.mu.Lock()
	if w.inFlight {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	w.inFlight = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.inFlight = false
		w.mu.Unlock()
	}()

	logger := log.WithField("url", w.url)
	logger.Debug("starting parse")

	snap, err := w.extract(ctx)
	if err != nil {
		w.notifier.Notify("Failed to parse menu", LevelError)
		return nil, fmt.Errorf("failed to extract menu: %w", err)
	}
	if len(snap.Items) == 0 {
		w.notifier.Notify("No menu items found on this page", LevelWarning)
		return nil, ErrNoItems
	}

	rec, err := w.cache.Save(ctx, snap)
	if err != nil {
		w.notifier.Notify("Failed to save menu", LevelError)
		return nil, err
	}

	w.mu.Lock()
	w.lastDone = w.now()
	w.runs++
	w.mu.Unlock()

	if w.bus != nil {
		w.bus.Publish(events.Event{Kind: events.SnapshotUpdated, At: rec.CachedAt, Items: len(rec.Items)})
	}
	w.notifier.Notify(fmt.Sprintf("Menu updated: %d items", len(rec.Items)), LevelSuccess)
	logger.WithField("items", len(rec.Items)).Info("parsed menu")

	return &rec, nil
}

// Watch runs the initial extraction after InitialDelay, then polls probe until
// ctx is done, triggering a reparse on inserted items or a scroll near the bottom.
func (w *Watcher) Watch(ctx context.Context, probe Probe) error {
	defer w.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-time.After(w.cfg.InitialDelay):
	}

	if _, err := w.Run(ctx); err != nil && !errors.Is(err, ErrNoItems) {
		log.WithError(err).Warn("initial parse failed")
	}

	interval := w.cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.poll(ctx, probe)
		}
	}
}

func (w *Watcher) poll(ctx context.Context, probe Probe) {
	if s, ok := probe.(Scroller); ok && w.cfg.AutoScroll {
		if err := s.ScrollToBottom(); err != nil {
			log.WithError(err).Debug("auto scroll failed")
		}
	}

	added, err := probe.ItemsAdded()
	if err != nil {
		log.WithError(err).Debug("mutation probe failed")
	}
	if added {
		log.Debug("new content detected")
		w.Trigger(ctx, "mutation")
		return
	}

	near, err := probe.NearBottom()
	if err != nil {
		log.WithError(err).Debug("scroll probe failed")
	}
	if near {
		log.Debug("scrolled to bottom, checking for new content")
		w.Trigger(ctx, "scroll")
	}
}

// Stop cancels a pending, not yet started extraction.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		URL:      w.url,
		InFlight: w.inFlight,
		LastRun:  w.lastDone,
		Runs:     w.runs,
		Pending:  w.timer != nil,
	}
}
