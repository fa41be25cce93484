package services

import (
	"errors"
	"io"

	"github.com/benmeehan/tracking-agent/internal/scheduler"
	"github.com/rs/zerolog"
)

// TrackingService owns the unique periodic tracking registration.
type TrackingService struct {
	scheduler    *scheduler.Scheduler
	registration scheduler.Registration
	job          scheduler.Worker
	source       io.Closer
	logger       zerolog.Logger

	workID string
}

// NewTrackingService creates a TrackingService. source is closed when the service stops.
func NewTrackingService(sched *scheduler.Scheduler, registration scheduler.Registration, job scheduler.Worker,
	source io.Closer, logger zerolog.Logger) *TrackingService {
	return &TrackingService{
		scheduler:    sched,
		registration: registration,
		job:          job,
		source:       source,
		logger:       logger,
	}
}

// Start clears any work left under the tracking tags and enqueues the job, replacing
// an existing registration with the same name.
func (s *TrackingService) Start() error {
	if s.workID != "" {
		return errors.New("tracking service is already running")
	}

	for _, tag := range s.registration.Tags {
		s.scheduler.CancelByTag(tag)
	}

	id, err := s.scheduler.EnqueueUniquePeriodic(s.registration, s.job)
	if err != nil {
		return err
	}
	s.workID = id

	s.logger.Info().Str("work", s.registration.Name).Str("id", id).Msg("TrackingService started successfully")
	return nil
}

// Stop cancels the tracking registration and releases the location source.
func (s *TrackingService) Stop() error {
	if s.workID == "" {
		return errors.New("tracking service is not running")
	}

	s.scheduler.Cancel(s.registration.Name)
	s.workID = ""

	var err error
	if s.source != nil {
		err = s.source.Close()
	}
	s.logger.Info().Msg("TrackingService stopped successfully")
	return err
}

// WorkID returns the id of the current registration, or "" when stopped.
func (s *TrackingService) WorkID() string {
	return s.workID
}
