package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotesync/internal/app"

	// DefaultSyncInterval is the polling period when none is configured.
	DefaultSyncInterval = 10 * time.Second

	syncEntity = "sync"
)

// SyncPhase is the coordinator's position in its state machine.
type SyncPhase string

const (
	// SyncPhaseIdle means no fetch is in flight and nothing awaits a decision.
	SyncPhaseIdle SyncPhase = "idle"

	// SyncPhaseChecking means a remote fetch is in flight.
	SyncPhaseChecking SyncPhase = "checking"

	// SyncPhaseConflictPending means a diverging snapshot awaits Resolve.
	SyncPhaseConflictPending SyncPhase = "conflict_pending"
)

// CheckResult is the outcome of a single sync tick.
type CheckResult string

const (
	// CheckSkipped means no fetch was issued because one is in flight or a
	// conflict is pending.
	CheckSkipped CheckResult = "skipped"

	// CheckFailed means the remote fetch returned an error.
	CheckFailed CheckResult = "failed"

	// CheckInSync means the remote snapshot equals the local collection.
	CheckInSync CheckResult = "in_sync"

	// CheckConflict means the snapshot differs and a conflict is now pending.
	CheckConflict CheckResult = "conflict"
)

// SyncState is a point-in-time copy of the coordinator state.
type SyncState struct {
	Phase           SyncPhase
	ConflictPending bool

	// RemoteSnapshot is the diverging collection, nil unless a conflict is pending.
	RemoteSnapshot domain.Collection

	LastCheckedAt time.Time
	LastError     string
}

// SyncCoordinator periodically compares the local collection with a remote
// snapshot and holds a detected divergence until the user resolves it.
type SyncCoordinator struct {
	store        *QuoteStore
	remote       ports.RemoteSource
	notifier     ports.ConflictNotifier
	interval     time.Duration
	checkOnStart bool
	logger       *slog.Logger
	now          func() time.Time

	tracer trace.Tracer
	checks metric.Int64Counter

	mu    sync.Mutex
	state SyncState

	// version counts ConflictPending changes; guarded by mu.
	version uint64

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
}

// SyncCoordinatorConfig contains configuration for the sync coordinator.
type SyncCoordinatorConfig struct {
	// Store, Remote and Notifier are required.
	Store    *QuoteStore
	Remote   ports.RemoteSource
	Notifier ports.ConflictNotifier

	// Interval between checks. Defaults to DefaultSyncInterval.
	Interval time.Duration

	// CheckOnStart runs one check as soon as Run begins.
	CheckOnStart bool

	Logger *slog.Logger
}

// NewSyncCoordinator creates an idle coordinator.
func NewSyncCoordinator(cfg SyncCoordinatorConfig) *SyncCoordinator {
	if cfg.Store == nil {
		panic("app: SyncCoordinator requires a Store")
	}

	if cfg.Remote == nil {
		panic("app: SyncCoordinator requires a Remote source")
	}

	if cfg.Notifier == nil {
		panic("app: SyncCoordinator requires a Notifier")
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	checks, err := otel.Meter(instrumentationName).Int64Counter(
		"quotesync.sync.checks",
		metric.WithDescription("Number of sync checks by result"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return &SyncCoordinator{
		store:        cfg.Store,
		remote:       cfg.Remote,
		notifier:     cfg.Notifier,
		interval:     interval,
		checkOnStart: cfg.CheckOnStart,
		logger:       logger.With(slog.String("component", "app.SyncCoordinator")),
		now:          time.Now,
		tracer:       otel.Tracer(instrumentationName),
		checks:       checks,
		state:        SyncState{Phase: SyncPhaseIdle},
	}
}

// Check runs one sync tick. While a fetch is in flight or a conflict is
// pending no fetch is issued and CheckSkipped is returned. A fetch failure
// returns CheckFailed with an UnavailableError and leaves the coordinator idle.
func (c *SyncCoordinator) Check(ctx context.Context) (CheckResult, error) {
	ctx, span := c.tracer.Start(ctx, "sync.check")
	defer span.End()

	c.mu.Lock()
	if c.state.Phase != SyncPhaseIdle {
		phase := c.state.Phase
		c.mu.Unlock()

		c.logger.DebugContext(ctx, "sync check skipped", slog.String("phase", string(phase)))
		c.finish(ctx, span, CheckSkipped)

		return CheckSkipped, nil
	}

	c.state.Phase = SyncPhaseChecking
	c.mu.Unlock()

	remote, err := c.remote.FetchQuotes(ctx)
	checkedAt := c.now()

	if err != nil {
		if !domain.IsUnavailable(err) {
			err = fmt.Errorf("%w: %w", domain.NewUnavailableError(domain.SourceRemote, "fetch failed"), err)
		}

		err = fmt.Errorf("fetching remote quotes: %w", err)

		c.mu.Lock()
		c.state.Phase = SyncPhaseIdle
		c.state.LastCheckedAt = checkedAt
		c.state.LastError = err.Error()
		c.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WarnContext(ctx, "sync check failed", slog.Any("error", err))
		c.finish(ctx, span, CheckFailed)

		return CheckFailed, err
	}

	local := c.store.Current()

	if local.Equal(remote) {
		c.mu.Lock()
		c.state.Phase = SyncPhaseIdle
		c.state.RemoteSnapshot = nil
		c.state.LastCheckedAt = checkedAt
		c.state.LastError = ""
		c.mu.Unlock()

		c.logger.InfoContext(ctx, "no conflict, data is already in sync", slog.Int("count", len(local)))
		c.finish(ctx, span, CheckInSync)

		return CheckInSync, nil
	}

	c.mu.Lock()
	c.state.Phase = SyncPhaseConflictPending
	c.state.ConflictPending = true
	c.state.RemoteSnapshot = remote.Clone()
	c.state.LastCheckedAt = checkedAt
	c.state.LastError = ""
	c.version++
	c.mu.Unlock()

	c.publishConflict(ctx)

	c.logger.InfoContext(ctx, "sync conflict detected",
		slog.Int("local_count", len(local)),
		slog.Int("remote_count", len(remote)),
	)
	c.finish(ctx, span, CheckConflict)

	return CheckConflict, nil
}

// Resolve settles a pending conflict. useRemote replaces the local
// collection with the snapshot captured by the check; otherwise the local
// collection is kept. If saving the snapshot fails the conflict stays pending.
func (c *SyncCoordinator) Resolve(ctx context.Context, useRemote bool) error {
	c.mu.Lock()

	if c.state.Phase != SyncPhaseConflictPending {
		c.mu.Unlock()

		return domain.NewConflictError(syncEntity, "no pending conflict")
	}

	if useRemote {
		if err := c.store.ReplaceAll(ctx, c.state.RemoteSnapshot); err != nil {
			c.mu.Unlock()

			return fmt.Errorf("resolving conflict: %w", err)
		}
	}

	c.state.Phase = SyncPhaseIdle
	c.state.ConflictPending = false
	c.state.RemoteSnapshot = nil
	c.version++
	c.mu.Unlock()

	c.publishConflict(ctx)

	c.logger.InfoContext(ctx, "sync conflict resolved", slog.Bool("use_remote", useRemote))

	return nil
}

// State returns a copy of the current state.
func (c *SyncCoordinator) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := c.state
	if state.RemoteSnapshot != nil {
		state.RemoteSnapshot = state.RemoteSnapshot.Clone()
	}

	return state
}

// Interval returns the polling period.
func (c *SyncCoordinator) Interval() time.Duration {
	return c.interval
}

// Run checks on every interval until ctx is cancelled. Check failures are
// logged and never stop the loop. Returns nil on cancellation.
func (c *SyncCoordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.InfoContext(ctx, "sync loop started", slog.Duration("interval", c.interval))

	if c.checkOnStart {
		c.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "sync loop stopped")

			return nil
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// Start runs the loop in a background goroutine. Calling Start while the
// loop is running has no effect.
func (c *SyncCoordinator) Start(ctx context.Context) {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)

		_ = c.Run(runCtx)
	}()
}

// Stop cancels the loop started by Start and waits for it to return.
// Calling Stop when nothing runs has no effect.
func (c *SyncCoordinator) Stop() {
	c.lifecycleMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.lifecycleMu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// publishConflict pushes the current ConflictPending value to the notifier.
// The notifier runs without mu held, so a Check and a Resolve may deliver
// out of order; a caller whose value went stale meanwhile publishes again
// until the notifier has seen the latest state.
func (c *SyncCoordinator) publishConflict(ctx context.Context) {
	for {
		c.mu.Lock()
		pending, version := c.state.ConflictPending, c.version
		c.mu.Unlock()

		c.notifier.SetConflict(ctx, pending)

		c.mu.Lock()
		current := c.version == version
		c.mu.Unlock()

		if current {
			return
		}
	}
}

func (c *SyncCoordinator) tick(ctx context.Context) {
	// Failures are already logged and recorded by Check.
	_, _ = c.Check(ctx)
}

func (c *SyncCoordinator) finish(ctx context.Context, span trace.Span, result CheckResult) {
	attr := attribute.String("result", string(result))

	span.SetAttributes(attr)

	if c.checks != nil {
		c.checks.Add(ctx, 1, metric.WithAttributes(attr))
	}
}
