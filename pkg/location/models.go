package location

import "time"

// Location represents the geographical coordinates reported by a provider
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Position is a location sample stamped with the time it was observed.
type Position struct {
	Latitude   float64
	Longitude  float64
	Accuracy   float64
	ObservedAt time.Time
}

// Priority selects the trade-off between accuracy and cost of a fresh fix.
type Priority int

const (
	PriorityHighAccuracy Priority = iota
	PriorityBalanced
	PriorityLowPower
)

// String returns the configuration name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHighAccuracy:
		return "high_accuracy"
	case PriorityBalanced:
		return "balanced"
	case PriorityLowPower:
		return "low_power"
	default:
		return "unknown"
	}
}

// ParsePriority maps a configuration name onto a Priority.
func ParsePriority(name string) (Priority, bool) {
	switch name {
	case "high_accuracy", "":
		return PriorityHighAccuracy, true
	case "balanced":
		return PriorityBalanced, true
	case "low_power":
		return PriorityLowPower, true
	default:
		return PriorityHighAccuracy, false
	}
}
