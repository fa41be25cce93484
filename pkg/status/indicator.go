package status

import (
	"context"

	"github.com/rs/zerolog"
)

// Notice is the user-visible text of the status indicator.
type Notice struct {
	Title      string
	Body       string
	Importance string
}

// Release tears the indicator down. It is safe to call once.
type Release func()

// Indicator raises a visible notice that tracking is in progress.
type Indicator interface {
	Show(ctx context.Context, notice Notice) (Release, error)
}

// LogIndicator reports the notice through the agent log only.
type LogIndicator struct {
	logger zerolog.Logger
}

// NewLogIndicator creates a LogIndicator.
func NewLogIndicator(logger zerolog.Logger) *LogIndicator {
	return &LogIndicator{logger: logger}
}

// Show logs the notice and returns a release that logs its removal.
func (l *LogIndicator) Show(_ context.Context, notice Notice) (Release, error) {
	l.logger.Info().Str("title", notice.Title).Str("body", notice.Body).Msg("Status indicator shown")
	return func() {
		l.logger.Info().Str("title", notice.Title).Msg("Status indicator cleared")
	}, nil
}
