package models

import "time"

// StatusMessage is the retained payload describing whether tracking is active.
type StatusMessage struct {
	State      string    `json:"state"`
	Title      string    `json:"title,omitempty"`
	Body       string    `json:"body,omitempty"`
	Importance string    `json:"importance,omitempty"`
	Ongoing    bool      `json:"ongoing"`
	Timestamp  time.Time `json:"timestamp"`
}
