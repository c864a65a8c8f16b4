package core

import "time"

// PacingCounter captures per-category pacing state.
type PacingCounter struct {
	LastRequestAt time.Time `json:"last_request_at"`
	Count         int       `json:"count"`
}

// PacingSnapshot reports a category counter alongside its effective delay.
type PacingSnapshot struct {
	Category Category      `json:"category"`
	MinDelay time.Duration `json:"min_delay"`
	PacingCounter
}
