package location

import (
	"context"
	"errors"
)

var (
	// ErrNoFix is returned when a provider ran to completion without a usable fix.
	ErrNoFix = errors.New("no valid location fix")
	// ErrNoProvider is returned when no provider is configured for any priority.
	ErrNoProvider = errors.New("no location provider configured")
)

// Provider interface defines the methods for location providers
type Provider interface {
	GetLocation(ctx context.Context) (Location, error)
	Close() error
}

// FixResult is the single outcome of a fix request.
type FixResult struct {
	Position Position
	Err      error
}

// Source is what the tracking job samples positions from.
type Source interface {
	// LastKnown returns a cached position without engaging any sensor.
	LastKnown() (Position, bool)
	// Fresh actively requests a position and blocks until it resolves or the bound elapses.
	Fresh(ctx context.Context, priority Priority) (Position, error)
}
