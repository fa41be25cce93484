package location

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FusedSource routes fix requests to the provider registered for a priority and
// remembers the most recent successful fix as the last-known position.
type FusedSource struct {
	fixTimeout time.Duration
	maxAge     time.Duration
	logger     zerolog.Logger
	now        func() time.Time

	providers map[Priority]Provider

	mu   sync.RWMutex
	last *Position
}

// NewFusedSource creates a FusedSource. A zero fixTimeout leaves fixes bounded only by
// the caller's context; a zero maxAge never expires the last-known position.
func NewFusedSource(fixTimeout, maxAge time.Duration, logger zerolog.Logger) *FusedSource {
	return &FusedSource{
		fixTimeout: fixTimeout,
		maxAge:     maxAge,
		logger:     logger,
		now:        time.Now,
		providers:  make(map[Priority]Provider),
	}
}

// AddProvider registers provider for priority, replacing any previous one.
func (f *FusedSource) AddProvider(priority Priority, provider Provider) {
	f.providers[priority] = provider
}

// LastKnown returns the cached fix if one exists and is not older than maxAge.
func (f *FusedSource) LastKnown() (Position, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.last == nil {
		return Position{}, false
	}
	if f.maxAge > 0 && f.now().Sub(f.last.ObservedAt) > f.maxAge {
		return Position{}, false
	}
	return *f.last, true
}

// Fresh requests a fix and waits for its single result.
func (f *FusedSource) Fresh(ctx context.Context, priority Priority) (Position, error) {
	result := <-f.RequestFix(ctx, priority)
	return result.Position, result.Err
}

// RequestFix starts a fix and returns a channel that receives exactly one result.
// The result is delivered no later than the fix timeout, even if the provider ignores ctx.
func (f *FusedSource) RequestFix(ctx context.Context, priority Priority) <-chan FixResult {
	out := make(chan FixResult, 1)

	provider, ok := f.providerFor(priority)
	if !ok {
		out <- FixResult{Err: ErrNoProvider}
		return out
	}

	go func() {
		fixCtx, cancel := ctx, context.CancelFunc(func() {})
		if f.fixTimeout > 0 {
			fixCtx, cancel = context.WithTimeout(ctx, f.fixTimeout)
		}
		defer cancel()

		inner := make(chan FixResult, 1)
		go func() {
			loc, err := provider.GetLocation(fixCtx)
			if err != nil {
				inner <- FixResult{Err: err}
				return
			}
			pos := Position{
				Latitude:   loc.Latitude,
				Longitude:  loc.Longitude,
				Accuracy:   loc.Accuracy,
				ObservedAt: f.now(),
			}
			f.remember(pos)
			inner <- FixResult{Position: pos}
		}()

		select {
		case r := <-inner:
			if r.Err != nil {
				r.Err = fmt.Errorf("%s fix failed: %w", priority, r.Err)
			}
			out <- r
		case <-fixCtx.Done():
			out <- FixResult{Err: fmt.Errorf("%s fix failed: %w", priority, fixCtx.Err())}
		}
	}()

	return out
}

// Close closes every registered provider.
func (f *FusedSource) Close() error {
	var errs []error
	for priority, provider := range f.providers {
		if err := provider.Close(); err != nil {
			f.logger.Error().Err(err).Str("priority", priority.String()).Msg("Failed to close location provider")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FusedSource) remember(pos Position) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.last != nil && f.last.ObservedAt.After(pos.ObservedAt) {
		return
	}
	f.last = &pos
}

// providerFor returns the provider for priority, falling back to the others in
// PriorityHighAccuracy, PriorityBalanced, PriorityLowPower order.
func (f *FusedSource) providerFor(priority Priority) (Provider, bool) {
	if p, ok := f.providers[priority]; ok {
		return p, true
	}
	for _, fallback := range []Priority{PriorityHighAccuracy, PriorityBalanced, PriorityLowPower} {
		if p, ok := f.providers[fallback]; ok {
			f.logger.Debug().
				Str("requested", priority.String()).
				Str("using", fallback.String()).
				Msg("No provider for requested priority, falling back")
			return p, true
		}
	}
	return nil, false
}
