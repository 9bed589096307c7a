package domain

import "time"

// transitions is the complete legal edge set of the task state machine.
// Anything not listed here is an invalid transition.
var transitions = map[string]map[string]struct{}{
	StatusScheduled: {
		StatusPending: {}, // activate
	},
	StatusPending: {
		StatusInProgress: {}, // start
		StatusPaused:     {},
	},
	StatusInProgress: {
		StatusCompleted: {},
		StatusFailed:    {},
		StatusPaused:    {},
	},
	StatusFailed: {
		StatusPending: {}, // retry (automatic or manual)
	},
	StatusPaused: {
		StatusPending: {}, // resume
	},
}

// CanTransition reports whether from → to is a legal task transition.
func CanTransition(from, to string) bool {
	targets, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// Backoff computes the delay before automatic retry number retryCount+1:
// base * 2^retryCount, capped at max. retryCount is the number of failures
// already recorded for the task.
func Backoff(base, max time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= max || delay <= 0 {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
