package model

import (
	"time"

	"github.com/google/uuid"
)

// TestSeries groups related mock tests under a single banner.
type TestSeries struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}
