package services

import (
	"context"
	"time"

	"github.com/benmeehan/tracking-agent/internal/scheduler"
	"github.com/benmeehan/tracking-agent/pkg/credentials"
	"github.com/benmeehan/tracking-agent/pkg/location"
	"github.com/benmeehan/tracking-agent/pkg/status"
	"github.com/rs/zerolog"
)

// TrackingJob samples the device position and reports it once per scheduled cycle.
// It keeps no state between cycles.
type TrackingJob struct {
	// Configuration
	notice   status.Notice
	priority location.Priority

	// Dependencies
	store     credentials.Store
	source    location.Source
	reporter  Reporter
	indicator status.Indicator
	logger    zerolog.Logger
	now       func() time.Time
}

// Ensure TrackingJob can be registered with the scheduler
var _ scheduler.Worker = (*TrackingJob)(nil)

// NewTrackingJob creates a TrackingJob with the provided dependencies.
func NewTrackingJob(notice status.Notice, priority location.Priority, store credentials.Store, source location.Source,
	reporter Reporter, indicator status.Indicator, logger zerolog.Logger) *TrackingJob {
	return &TrackingJob{
		notice:    notice,
		priority:  priority,
		store:     store,
		source:    source,
		reporter:  reporter,
		indicator: indicator,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one cycle. Only a failure to show the status indicator or to obtain
// a fresh fix yields Retry; delivery problems are logged and never change the outcome.
func (j *TrackingJob) Run(ctx context.Context) scheduler.Outcome {
	started := j.now()
	j.logger.Debug().Msg("Tracking cycle started")

	release, err := j.indicator.Show(ctx, j.notice)
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to show status indicator")
		return scheduler.Retry
	}
	defer release()

	creds := j.loadCredentials()

	if last, ok := j.source.LastKnown(); ok {
		j.report(ctx, creds, last, "last_known")
	} else {
		j.logger.Debug().Msg("No last known position available")
	}

	fix, err := j.source.Fresh(ctx, j.priority)
	if err != nil {
		j.logger.Error().
			Err(err).
			Str("priority", j.priority.String()).
			Msg("Failed to obtain fresh location fix")
		return scheduler.Retry
	}
	j.report(ctx, creds, fix, "fresh")

	j.logger.Info().Dur("elapsed", j.now().Sub(started)).Msg("Tracking cycle completed")
	return scheduler.Success
}

// loadCredentials returns nil when delivery must be skipped for this cycle.
func (j *TrackingJob) loadCredentials() *credentials.Credentials {
	creds, err := j.store.Read()
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to read credentials, skipping delivery")
		return nil
	}
	if !creds.Complete() {
		j.logger.Warn().Err(credentials.ErrIncomplete).Msg("Skipping delivery until the user signs in")
		return nil
	}
	if creds.Expired(j.now()) {
		j.logger.Warn().Msg("Bearer token appears to be expired")
	}
	return creds
}

func (j *TrackingJob) report(ctx context.Context, creds *credentials.Credentials, sample location.Position, kind string) {
	if creds == nil {
		j.logger.Debug().Str("sample", kind).Msg("Delivery skipped, no credentials")
		return
	}

	result := j.reporter.Deliver(ctx, creds.SessionID, sample, *creds)
	switch result.Status {
	case Delivered:
		j.logger.Info().
			Str("sample", kind).
			Int("status", result.StatusCode).
			Time("observed_at", sample.ObservedAt).
			Msg("Location delivered")
	case Rejected:
		j.logger.Error().
			Err(result.Err).
			Str("sample", kind).
			Int("status", result.StatusCode).
			Msg("Location rejected by server")
	default:
		j.logger.Error().
			Err(result.Err).
			Str("sample", kind).
			Msg("Failed to deliver location")
	}
}
