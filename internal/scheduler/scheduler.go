// Package scheduler drives the poll loop. It owns the authoritative
// snapshot: adapters and parsing run on a worker goroutine, but every
// merge, artwork application, and publication happens on the loop
// goroutine, so the snapshot needs no locking for correctness — a
// mutex guards only the read-side accessor.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/playhead-dev/playhead/internal/artwork"
	"github.com/playhead-dev/playhead/internal/color"
	"github.com/playhead-dev/playhead/internal/config"
	"github.com/playhead-dev/playhead/internal/domain"
	"github.com/playhead-dev/playhead/internal/reconcile"
	"github.com/playhead-dev/playhead/internal/source"
)

// Scheduler polls the configured sources, reconciles their replies into
// the authoritative snapshot, and publishes updates to subscribers.
type Scheduler struct {
	logger     *zap.Logger
	cfg        *config.Config
	reconciler *reconcile.Reconciler
	cache      *artwork.Cache

	adapters  map[string]domain.SourceAdapter
	universal domain.SourceAdapter

	runCtx context.Context
	done   chan struct{}

	curMu   sync.RWMutex
	current domain.Snapshot

	subMu    sync.Mutex
	subs     []chan domain.Snapshot
	lastWarn time.Time

	pollNow chan time.Duration
}

// pollOutcome is the worker goroutine's answer for one cycle. A nil
// snapshot means every source was exhausted.
type pollOutcome struct {
	snap    *domain.Snapshot
	adapter domain.SourceAdapter
}

// New creates the scheduler over the given adapters. The adapter named
// source.UniversalName serves universal mode; the rest are addressed by
// name from the configured priority order.
func New(
	logger *zap.Logger,
	cfg *config.Config,
	reconciler *reconcile.Reconciler,
	cache *artwork.Cache,
	adapters []domain.SourceAdapter,
) *Scheduler {
	s := &Scheduler{
		logger:     logger,
		cfg:        cfg,
		reconciler: reconciler,
		cache:      cache,
		adapters:   make(map[string]domain.SourceAdapter, len(adapters)),
		done:       make(chan struct{}),
		current:    domain.Idle(),
		pollNow:    make(chan time.Duration, 1),
	}
	for _, a := range adapters {
		s.adapters[strings.ToLower(a.Name())] = a
		if a.Name() == source.UniversalName {
			s.universal = a
		}
	}
	return s
}

// Run executes poll cycles until the context is cancelled. Cycles are
// strictly sequential: the next one is scheduled only after the current
// cycle's merge has been applied and its delay computed, so a hung
// external process self-limits the polling rate without corrupting
// state.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)
	s.runCtx = ctx
	s.logger.Info("scheduler started")

	for {
		delay := s.cycle(ctx)
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped")
			return
		}

		timer := time.NewTimer(delay)
	wait:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Info("scheduler stopped")
				return
			case <-timer.C:
				break wait
			case d := <-s.pollNow:
				// A playback command was just sent; re-poll shortly to
				// reconcile with whatever actually happened.
				stopTimer(timer)
				timer.Reset(d)
			case <-s.cfg.Changes():
				s.logger.Info("configuration changed, polling immediately")
				stopTimer(timer)
				timer.Reset(0)
			case res := <-s.cache.Results():
				s.applyArtwork(res)
			}
		}
	}
}

// Done is closed when Run has fully exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Current returns a copy of the authoritative snapshot.
func (s *Scheduler) Current() domain.Snapshot {
	s.curMu.RLock()
	defer s.curMu.RUnlock()
	return s.current
}

// PollSoon schedules the next poll cycle after the given delay,
// superseding the adaptive interval for this one cycle.
func (s *Scheduler) PollSoon(d time.Duration) {
	select {
	case s.pollNow <- d:
	default:
	}
}

// Subscribe returns a channel receiving every published snapshot.
// Sends never block; a slow subscriber misses intermediate states, not
// the final one, because the next cycle publishes again.
func (s *Scheduler) Subscribe() <-chan domain.Snapshot {
	ch := make(chan domain.Snapshot, 8)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

// cycle performs one full poll: config read, priority fallback, merge,
// artwork dispatch, and returns the delay before the next cycle.
func (s *Scheduler) cycle(ctx context.Context) time.Duration {
	cfg := s.cfg.Snapshot()

	// Adapter I/O may block on subprocesses or file reads; it runs on a
	// worker goroutine while this goroutine keeps ownership of the
	// snapshot.
	outc := make(chan pollOutcome, 1)
	go func() {
		outc <- s.poll(ctx, cfg)
	}()

	var out pollOutcome
	select {
	case <-ctx.Done():
		return 0
	case out = <-outc:
	}

	if out.snap != nil {
		s.apply(*out.snap, out.adapter)
	} else {
		s.goIdle()
	}

	return s.nextDelay(cfg)
}

// poll tries sources according to the configured mode. In priority-list
// mode the first adapter yielding a non-idle result wins: a paused but
// active high-priority source deliberately shadows a playing
// low-priority one.
func (s *Scheduler) poll(ctx context.Context, cfg config.Snapshot) pollOutcome {
	if cfg.Mode == config.ModeUniversal {
		return s.tryAdapter(ctx, s.universal)
	}

	for _, name := range cfg.Priority {
		key := strings.ToLower(strings.TrimSpace(name))
		if !cfg.EnabledSource(key) {
			continue
		}
		a, ok := s.adapters[key]
		if !ok {
			s.logger.Warn("unknown source in priority list", zap.String("source", name))
			continue
		}
		if out := s.tryAdapter(ctx, a); out.snap != nil {
			return out
		}
	}
	return pollOutcome{}
}

// tryAdapter fetches from one adapter, demoting errors to "no result"
// so a single broken source never aborts the cycle. There is no retry
// within a cycle; the next scheduled poll is the retry.
func (s *Scheduler) tryAdapter(ctx context.Context, a domain.SourceAdapter) pollOutcome {
	if a == nil {
		return pollOutcome{}
	}
	snap, err := a.Fetch(ctx)
	if err != nil {
		s.logger.Warn("source fetch failed, falling through",
			zap.String("source", a.Name()),
			zap.Error(err))
		return pollOutcome{}
	}
	if snap == nil {
		return pollOutcome{}
	}
	return pollOutcome{snap: snap, adapter: a}
}

// apply merges the polled snapshot into the authoritative one and
// carries out the reconciler's artwork decision.
func (s *Scheduler) apply(next domain.Snapshot, adapter domain.SourceAdapter) {
	merged, action := s.reconciler.Merge(next, s.Current())

	// Inline artwork (universal family) is adopted directly; derive its
	// colors once and seed the cache so the track hits on re-visits.
	if merged.Artwork != nil && merged.DominantColor == nil {
		dominant, palette := color.Extract(merged.Artwork)
		merged.DominantColor = &dominant
		merged.Palette = palette
		s.cache.Put(merged.ArtworkKey(), merged.Artwork, dominant, palette)
	}

	s.setCurrent(merged)

	switch action.Kind {
	case domain.ArtworkFetch, domain.ArtworkInvalidate:
		querier, _ := adapter.(domain.ArtworkQuerier)
		s.cache.Request(s.requestCtx(), artwork.Request{
			Hint:    action.Hint,
			Key:     merged.ArtworkKey(),
			Querier: querier,
		})
	}

	s.publish(merged)
}

// goIdle resets the authoritative snapshot to the idle sentinel,
// exactly once: repeated exhausted cycles while already idle publish
// nothing.
func (s *Scheduler) goIdle() {
	if s.Current().IsIdle() {
		return
	}
	s.logger.Info("all sources exhausted, resetting to idle")
	idle := domain.Idle()
	s.setCurrent(idle)
	s.publish(idle)
}

// applyArtwork applies a resolved artwork delivery, dropping it
// silently when the track has moved on since the fetch was issued.
func (s *Scheduler) applyArtwork(res artwork.Result) {
	cur := s.Current()
	if res.Key != cur.ArtworkKey() {
		s.logger.Debug("dropping stale artwork result", zap.String("key", res.Key))
		return
	}
	cur.Artwork = res.Image
	dominant := res.Dominant
	cur.DominantColor = &dominant
	cur.Palette = res.Palette
	s.setCurrent(cur)
	s.publish(cur)
}

// nextDelay adapts the polling cadence to playback state: fast while
// playing, slower when idle, slower still in universal mode where an
// idle poll is cheap but pointless.
func (s *Scheduler) nextDelay(cfg config.Snapshot) time.Duration {
	if s.Current().IsPlaying {
		return cfg.ActiveInterval
	}
	if cfg.Mode == config.ModeUniversal {
		return cfg.UniversalIdleInterval
	}
	return cfg.IdleInterval
}

// requestCtx is the lifetime context artwork fetches run under; they
// outlive the poll cycle that issued them.
func (s *Scheduler) requestCtx() context.Context {
	if s.runCtx != nil {
		return s.runCtx
	}
	return context.Background()
}

func (s *Scheduler) setCurrent(snap domain.Snapshot) {
	s.curMu.Lock()
	s.current = snap
	s.curMu.Unlock()
}

func (s *Scheduler) publish(snap domain.Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			if time.Since(s.lastWarn) >= 5*time.Second {
				s.logger.Warn("subscriber channel full, dropping snapshot")
				s.lastWarn = time.Now()
			}
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
