package scheduler

import (
	"fmt"
	"time"
)

// BackoffKind selects how the delay grows between retried runs.
type BackoffKind string

const (
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
	// BackoffNone waits for the next period instead of retrying early.
	BackoffNone BackoffKind = "none"
)

// ParseBackoffKind validates a configured backoff policy name.
func ParseBackoffKind(name string) (BackoffKind, error) {
	switch kind := BackoffKind(name); kind {
	case BackoffLinear, BackoffExponential, BackoffNone:
		return kind, nil
	case "":
		return BackoffLinear, nil
	default:
		return "", fmt.Errorf("unknown backoff policy %q", name)
	}
}

// BackoffPolicy computes the delay before retry attempt n (1-based).
type BackoffPolicy struct {
	Kind         BackoffKind
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Delay returns the wait before the given retry attempt. ok is false when the
// policy does not retry early and the next run should follow the period.
func (b BackoffPolicy) Delay(attempt int) (delay time.Duration, ok bool) {
	if b.Kind == BackoffNone || b.InitialDelay <= 0 {
		return 0, false
	}
	if attempt < 1 {
		attempt = 1
	}

	switch b.Kind {
	case BackoffExponential:
		delay = b.InitialDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
			if b.MaxDelay > 0 && delay >= b.MaxDelay {
				return b.MaxDelay, true
			}
			if delay <= 0 { // overflow
				return b.MaxDelay, true
			}
		}
	default:
		delay = b.InitialDelay * time.Duration(attempt)
		if delay/time.Duration(attempt) != b.InitialDelay { // overflow
			return b.MaxDelay, true
		}
	}

	if b.MaxDelay > 0 && delay > b.MaxDelay {
		delay = b.MaxDelay
	}
	return delay, true
}
