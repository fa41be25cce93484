package models

import "time"

// Heartbeat is the periodic liveness message published alongside status notices.
type Heartbeat struct {
	ClientID     string      `json:"client_id"`
	AgentVersion string      `json:"agent_version"`
	Timestamp    time.Time   `json:"timestamp"`
	Work         *WorkStatus `json:"work,omitempty"`
}

// WorkStatus summarises the tracking registration at the time of a heartbeat.
type WorkStatus struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	State       string    `json:"state"`
	RunAttempt  int       `json:"run_attempt"`
	Runs        int       `json:"runs"`
	LastOutcome string    `json:"last_outcome,omitempty"`
	LastRunAt   time.Time `json:"last_run_at,omitempty"`
	NextRunAt   time.Time `json:"next_run_at,omitempty"`
}
