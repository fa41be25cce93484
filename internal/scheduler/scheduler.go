package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// ErrShutdown is returned when registering work on a scheduler that has been shut down.
var ErrShutdown = errors.New("scheduler is shut down")

// Outcome is the completion signal a Worker returns for one run.
type Outcome int

const (
	Success Outcome = iota
	Retry
)

func (o Outcome) String() string {
	if o == Retry {
		return "retry"
	}
	return "success"
}

// Worker is one unit of periodic work.
type Worker interface {
	Run(ctx context.Context) Outcome
}

// WorkerFunc adapts a function into a Worker.
type WorkerFunc func(ctx context.Context) Outcome

// Run calls f(ctx).
func (f WorkerFunc) Run(ctx context.Context) Outcome { return f(ctx) }

// Registration describes a unique periodic work request.
type Registration struct {
	Name        string
	Tags        []string
	Period      time.Duration
	Flex        time.Duration // Runs are placed in the last Flex of each Period
	Constraints []Constraint
	Backoff     BackoffPolicy
	// ConstraintPollInterval controls how often unmet constraints are re-checked and
	// how often they are watched while a run is in flight.
	ConstraintPollInterval time.Duration
}

func (r Registration) validate() error {
	if r.Name == "" {
		return errors.New("registration name is required")
	}
	if r.Period <= 0 {
		return fmt.Errorf("registration %s: period must be positive", r.Name)
	}
	if r.Flex < 0 || r.Flex > r.Period {
		return fmt.Errorf("registration %s: flex must be within [0, period]", r.Name)
	}
	if len(r.Constraints) > 0 && r.ConstraintPollInterval <= 0 {
		return fmt.Errorf("registration %s: constraint poll interval must be positive", r.Name)
	}
	return nil
}

// State is the lifecycle state of a registration.
type State string

const (
	StateEnqueued  State = "enqueued"
	StateBlocked   State = "blocked"
	StateRunning   State = "running"
	StateCancelled State = "cancelled"
)

// WorkInfo is a snapshot of a registration.
type WorkInfo struct {
	ID          string
	Name        string
	Tags        []string
	State       State
	RunAttempt  int
	Runs        int
	LastOutcome Outcome
	LastRunAt   time.Time
	NextRunAt   time.Time
}

type entry struct {
	id     string
	reg    Registration
	tags   map[string]struct{}
	worker Worker
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	info WorkInfo
}

func (e *entry) update(fn func(info *WorkInfo)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.info)
}

func (e *entry) snapshot() WorkInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	info := e.info
	info.Tags = append([]string(nil), e.info.Tags...)
	return info
}

// Scheduler runs registered workers periodically, at most one live worker per name.
type Scheduler struct {
	logger  zerolog.Logger
	entries cmap.ConcurrentMap[string, *entry]

	// mu serialises register/cancel so a replaced worker has fully stopped
	// before its successor starts.
	mu     sync.Mutex
	closed bool
}

// NewScheduler creates an empty Scheduler.
func NewScheduler(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		logger:  logger,
		entries: cmap.New[*entry](),
	}
}

// EnqueueUniquePeriodic registers w under reg.Name, cancelling and waiting for any
// worker already registered under that name first. It returns the new work id.
func (s *Scheduler) EnqueueUniquePeriodic(reg Registration, w Worker) (string, error) {
	if err := reg.validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrShutdown
	}

	if old, ok := s.entries.Pop(reg.Name); ok {
		s.logger.Info().Str("work", reg.Name).Str("id", old.id).Msg("Replacing existing registration")
		s.stop(old)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{
		id:     uuid.New().String(),
		reg:    reg,
		tags:   tagSet(reg.Tags),
		worker: w,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.info = WorkInfo{ID: e.id, Name: reg.Name, Tags: append([]string(nil), reg.Tags...), State: StateEnqueued}
	s.entries.Set(reg.Name, e)

	go func() {
		defer close(e.done)
		s.loop(ctx, e)
	}()

	s.logger.Info().
		Str("work", reg.Name).
		Str("id", e.id).
		Dur("period", reg.Period).
		Dur("flex", reg.Flex).
		Str("backoff", string(reg.Backoff.Kind)).
		Int("constraints", len(reg.Constraints)).
		Msg("Periodic work enqueued")
	return e.id, nil
}

// Cancel stops the worker registered under name. It reports whether one existed.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries.Pop(name)
	if !ok {
		return false
	}
	s.stop(e)
	return true
}

// CancelByTag stops every worker carrying tag and returns how many were stopped.
func (s *Scheduler) CancelByTag(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []string
	for item := range s.entries.IterBuffered() {
		if _, ok := item.Val.tags[tag]; ok {
			matched = append(matched, item.Key)
		}
	}

	for _, name := range matched {
		if e, ok := s.entries.Pop(name); ok {
			s.stop(e)
		}
	}
	if len(matched) > 0 {
		s.logger.Info().Str("tag", tag).Int("count", len(matched)).Msg("Cancelled work by tag")
	}
	return len(matched)
}

// Info returns a snapshot of the registration under name.
func (s *Scheduler) Info(name string) (WorkInfo, bool) {
	e, ok := s.entries.Get(name)
	if !ok {
		return WorkInfo{}, false
	}
	return e.snapshot(), true
}

// Shutdown cancels every registration and waits for in-flight runs to return.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for _, name := range s.entries.Keys() {
		if e, ok := s.entries.Pop(name); ok {
			s.stop(e)
		}
	}
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) stop(e *entry) {
	e.cancel()
	<-e.done
	e.update(func(info *WorkInfo) { info.State = StateCancelled })
	s.logger.Info().Str("work", e.reg.Name).Str("id", e.id).Msg("Work cancelled")
}

// loop drives one registration until ctx is cancelled.
func (s *Scheduler) loop(ctx context.Context, e *entry) {
	logger := s.logger.With().Str("work", e.reg.Name).Str("id", e.id).Logger()

	var delay time.Duration
	var periodStart time.Time
	attempt := 0

	for {
		e.update(func(info *WorkInfo) { info.NextRunAt = time.Now().Add(delay) })
		if !sleep(ctx, delay) {
			return
		}

		if unmet := s.unmetConstraint(ctx, e.reg); unmet != "" {
			e.update(func(info *WorkInfo) { info.State = StateBlocked })
			logger.Debug().Str("constraint", unmet).Msg("Constraint not met, deferring run")
			delay = e.reg.ConstraintPollInterval
			continue
		}

		if periodStart.IsZero() || time.Since(periodStart) >= e.reg.Period {
			periodStart = time.Now()
		}

		outcome, interrupted := s.runOnce(ctx, e, attempt)
		if ctx.Err() != nil {
			return
		}
		if interrupted {
			logger.Info().Msg("Run stopped because a constraint is no longer met")
			delay = e.reg.ConstraintPollInterval
			continue
		}

		if outcome == Retry {
			attempt++
			if d, ok := e.reg.Backoff.Delay(attempt); ok {
				logger.Warn().Int("attempt", attempt).Dur("retry_in", d).Msg("Run requested retry")
				delay = d
				e.update(func(info *WorkInfo) { info.RunAttempt = attempt; info.State = StateEnqueued })
				continue
			}
			logger.Warn().Int("attempt", attempt).Msg("Run requested retry, waiting for next period")
		}

		attempt = 0
		next := nextRunAt(periodStart, e.reg.Period, e.reg.Flex)
		delay = time.Until(next)
		periodStart = time.Time{}
		e.update(func(info *WorkInfo) { info.RunAttempt = 0; info.State = StateEnqueued })
	}
}

// runOnce executes the worker, cancelling it if a constraint stops being met.
func (s *Scheduler) runOnce(ctx context.Context, e *entry, attempt int) (outcome Outcome, interrupted bool) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lost atomic.Bool
	if len(e.reg.Constraints) > 0 {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			ticker := time.NewTicker(e.reg.ConstraintPollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-runCtx.Done():
					return
				case <-ticker.C:
					if s.unmetConstraint(runCtx, e.reg) != "" {
						lost.Store(true)
						cancel()
						return
					}
				}
			}
		}()
	}

	e.update(func(info *WorkInfo) {
		info.State = StateRunning
		info.RunAttempt = attempt
		info.LastRunAt = time.Now()
	})

	outcome = s.safeRun(runCtx, e)

	e.update(func(info *WorkInfo) {
		info.Runs++
		info.LastOutcome = outcome
	})
	return outcome, lost.Load()
}

// safeRun turns a panicking worker into a Retry.
func (s *Scheduler) safeRun(ctx context.Context, e *entry) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("work", e.reg.Name).Interface("panic", r).Msg("Worker panicked")
			outcome = Retry
		}
	}()
	return e.worker.Run(ctx)
}

func (s *Scheduler) unmetConstraint(ctx context.Context, reg Registration) string {
	for _, c := range reg.Constraints {
		if !c.Satisfied(ctx) {
			return c.Name()
		}
	}
	return ""
}

// nextRunAt places the next run uniformly within the last flex of the period
// that follows periodStart.
func nextRunAt(periodStart time.Time, period, flex time.Duration) time.Time {
	offset := period - flex
	if flex > 0 {
		offset += time.Duration(rand.Int63n(int64(flex) + 1))
	}
	return periodStart.Add(offset)
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	return set
}

// sleep waits for d or until ctx is done, reporting whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
