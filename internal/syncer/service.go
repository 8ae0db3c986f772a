package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/wardsync/internal/alert"
	"github.com/linnemanlabs/wardsync/internal/alert/store"
)

const (
	// DefaultInterval matches the backend's expectation of one poll per
	// dashboard every 30 seconds.
	DefaultInterval = 30 * time.Second

	// DefaultReconcileDelay gives the backend time to settle its own
	// derived state before the post-mutation consistency fetch.
	DefaultReconcileDelay = 500 * time.Millisecond
)

// Client is the backend surface the service needs.
type Client interface {
	ActiveAlerts(ctx context.Context) ([]alert.Alert, error)
	Acknowledge(ctx context.Context, id string) error
	Dismiss(ctx context.Context, id string) error
}

// Notifier receives alerts that newly entered the critical tier in a sync
// cycle.
type Notifier interface {
	NotifyCritical(ctx context.Context, alerts []alert.Alert) error
}

// Options tunes the sync loop. Zero values select the defaults.
type Options struct {
	Interval       time.Duration
	ReconcileDelay time.Duration
}

// Status is the sync state surfaced to callers. Loading is a single flag:
// initial load and refresh are deliberately not distinguished.
type Status struct {
	Syncing     bool      `json:"syncing"`
	LastUpdated time.Time `json:"last_updated"`
	LastError   string    `json:"last_error,omitempty"`
}

// RefreshResult is the outcome of one refresh attempt.
type RefreshResult struct {
	// Skipped is true when another fetch was already in flight (the
	// trigger was coalesced) or the store was closed before the snapshot
	// could be applied.
	Skipped bool
	Count   int
}

// Service drives synchronization between the store and the backend.
type Service struct {
	store    *store.Store
	client   Client
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier

	interval       time.Duration
	reconcileDelay time.Duration

	mu          sync.Mutex
	syncing     bool
	lastUpdated time.Time
	lastErr     string

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewService creates a sync service. store and client are required; logger,
// metrics, and notifier may be nil.
func NewService(st *store.Store, client Client, logger log.Logger, metrics *Metrics, notifier Notifier, opts Options) *Service {
	if st == nil {
		panic(xerrors.New("store is required"))
	}
	if client == nil {
		panic(xerrors.New("backend client is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ReconcileDelay <= 0 {
		opts.ReconcileDelay = DefaultReconcileDelay
	}
	return &Service{
		store:          st,
		client:         client,
		logger:         logger,
		metrics:        metrics,
		notifier:       notifier,
		interval:       opts.Interval,
		reconcileDelay: opts.ReconcileDelay,
		stop:           make(chan struct{}),
	}
}

// Start fetches immediately and then polls on the configured interval until
// Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Error(ctx, err, "initial sync failed")
		}

		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if _, err := s.Refresh(ctx); err != nil {
					s.logger.Error(ctx, err, "scheduled sync failed")
				}
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels future poll fires and pending reconciliation fetches. It does
// not abort an in-flight request; a late response is dropped by the store's
// own close guard.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// Status reports the current sync state.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Syncing:     s.syncing,
		LastUpdated: s.lastUpdated,
		LastError:   s.lastErr,
	}
}

// Refresh fetches the active alert list and replaces the store contents.
// Manual triggers and timer fires share this path, guarded single-flight:
// overlapping triggers are skipped, not queued. On failure the store keeps
// its last good snapshot (stale-while-error) and the error string is
// recorded in Status.
//
// Known gap, inherited from the dashboard this replaces: fetches are not
// sequenced against optimistic edits. A slow fetch started before an edit
// can resolve after it and overwrite it with the older server snapshot
// (last-snapshot-wins); the edit's own reconciliation fetch repairs the
// view shortly after.
func (s *Service) Refresh(ctx context.Context) (*RefreshResult, error) {
	if !s.begin() {
		return &RefreshResult{Skipped: true}, nil
	}
	defer s.end()

	cycle := ulid.Make().String()
	start := time.Now()

	alerts, err := s.client.ActiveAlerts(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()

		s.metrics.observeSync("error", time.Since(start).Seconds())
		s.logger.Error(ctx, err, "sync failed, keeping last snapshot", "cycle", cycle)
		return nil, fmt.Errorf("sync alerts: %w", err)
	}

	prevCritical := ids(s.store.Critical())

	if !s.store.Replace(alerts) {
		s.logger.Info(ctx, "store closed, dropping snapshot", "cycle", cycle)
		return &RefreshResult{Skipped: true}, nil
	}

	s.mu.Lock()
	s.lastUpdated = time.Now()
	s.lastErr = ""
	s.mu.Unlock()

	s.metrics.observeSync("success", time.Since(start).Seconds())
	s.metrics.setAlertGauges(s.store.Stats())

	if s.notifier != nil {
		if fresh := excluding(s.store.Critical(), prevCritical); len(fresh) > 0 {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.notify(context.WithoutCancel(ctx), fresh)
			}()
		}
	}

	s.logger.Info(ctx, "sync complete", "cycle", cycle, "alerts", len(alerts))
	return &RefreshResult{Count: len(alerts)}, nil
}

// Acknowledge marks the alert acknowledged locally before the backend
// confirms it, then issues the remote call. Success schedules a delayed
// reconciliation fetch; failure triggers an immediate full resync and
// returns the error.
func (s *Service) Acknowledge(ctx context.Context, id string) error {
	s.store.Acknowledge(id)

	if err := s.client.Acknowledge(ctx, id); err != nil {
		s.metrics.observeMutation("acknowledge", "error")
		s.resync(ctx, "acknowledge", id)
		return fmt.Errorf("acknowledge %s: %w", id, err)
	}

	s.metrics.observeMutation("acknowledge", "success")
	s.scheduleReconcile()
	return nil
}

// Dismiss removes the alert locally before the backend confirms it, then
// issues the remote delete. Recovery shape is identical to Acknowledge.
func (s *Service) Dismiss(ctx context.Context, id string) error {
	s.store.Remove(id)

	if err := s.client.Dismiss(ctx, id); err != nil {
		s.metrics.observeMutation("dismiss", "error")
		s.resync(ctx, "dismiss", id)
		return fmt.Errorf("dismiss %s: %w", id, err)
	}

	s.metrics.observeMutation("dismiss", "success")
	s.scheduleReconcile()
	return nil
}

// resync is the coarse recovery path after a failed mutation: refetch the
// whole canonical list instead of rolling back the one optimistic edit.
// Other pending optimistic edits are overwritten by the snapshot too;
// precision is traded for simplicity.
func (s *Service) resync(ctx context.Context, op, id string) {
	s.metrics.incResync()
	if _, err := s.Refresh(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn(ctx, "resync after failed mutation also failed", "op", op, "id", id, "error", err)
	}
}

// scheduleReconcile runs a best-effort consistency fetch shortly after a
// successful mutation so backend-derived state settles into the store. Two
// mutations racing their reconciliation fetches is benign: the fetch is an
// idempotent overwrite and single-flight coalesces overlap.
func (s *Service) scheduleReconcile() {
	time.AfterFunc(s.reconcileDelay, func() {
		select {
		case <-s.stop:
			return
		default:
		}
		s.metrics.incReconcile()
		ctx := context.Background()
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warn(ctx, "reconcile fetch failed", "error", err)
		}
	})
}

func (s *Service) notify(ctx context.Context, fresh []alert.Alert) {
	if err := s.notifier.NotifyCritical(ctx, fresh); err != nil {
		s.logger.Warn(ctx, "critical alert notification failed", "count", len(fresh), "error", err)
	}
}

func (s *Service) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncing {
		return false
	}
	s.syncing = true
	return true
}

func (s *Service) end() {
	s.mu.Lock()
	s.syncing = false
	s.mu.Unlock()
}

func ids(alerts []alert.Alert) map[string]struct{} {
	out := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		out[a.ID] = struct{}{}
	}
	return out
}

func excluding(alerts []alert.Alert, seen map[string]struct{}) []alert.Alert {
	var out []alert.Alert
	for _, a := range alerts {
		if _, ok := seen[a.ID]; !ok {
			out = append(out, a)
		}
	}
	return out
}
