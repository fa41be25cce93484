package constants

import "time"

const (
	// LocationsPath is appended to the credential base URL for location reports.
	LocationsPath = "/api/locations"

	// TrackingWorkName identifies the unique periodic tracking registration.
	TrackingWorkName = "location_work"
	// TrackingWorkTag groups every registration created for location tracking.
	TrackingWorkTag = "location_tracking"

	DefaultTrackingPeriod = 5 * time.Minute
	DefaultTrackingFlex   = 1 * time.Minute

	// DefaultBackoffDelay matches the minimum backoff of platform job schedulers.
	DefaultBackoffDelay = 10 * time.Second
	DefaultMaxBackoff   = 5 * time.Hour

	DefaultConstraintPollInterval = 30 * time.Second
	DefaultRequestTimeout         = 30 * time.Second
	DefaultFixTimeout             = 60 * time.Second
	DefaultMaxLastKnownAge        = 30 * time.Minute
)

// Status notice shown while a tracking cycle runs.
const (
	StatusTitle      = "BM Security"
	StatusBody       = "Tracking your location"
	StatusImportance = "low"
)

// Status states published by the status indicator.
const (
	// StatusStateActive indicates a tracking cycle is running
	StatusStateActive = "active"
	// StatusStateIdle indicates no tracking cycle is running
	StatusStateIdle = "idle"
	// StatusStateOffline is the broker will message for an unclean disconnect
	StatusStateOffline = "offline"
)
