package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. There is no transition out of
// a terminal state.
type AttemptStatus string

const (
	AttemptStatusStarted   AttemptStatus = "started"
	AttemptStatusCompleted AttemptStatus = "completed"
	AttemptStatusAbandoned AttemptStatus = "abandoned"
)

// Attempt is one user's in-progress or finished run of a mock test.
// Responses are keyed by question ID; the attempt exclusively owns them.
type Attempt struct {
	ID         uuid.UUID              `json:"id"`
	UserID     int                    `json:"user_id"`
	MockTestID uuid.UUID              `json:"mock_test_id"`
	Status     AttemptStatus          `json:"status"`
	StartTime  time.Time              `json:"start_time"`
	EndTime    *time.Time             `json:"end_time,omitempty"`
	Responses  map[uuid.UUID]Response `json:"responses,omitempty"`
}

// Response is a recorded answer to one question. A nil SelectedOptionIndex
// is treated as unattempted by grading.
type Response struct {
	QuestionID          uuid.UUID `json:"question_id"`
	SelectedOptionIndex *int      `json:"selected_option_index"`
	TimeTakenSeconds    int       `json:"time_taken_seconds"`
}

// StartAttemptRequest is the payload for starting or resuming an attempt.
type StartAttemptRequest struct {
	MockTestID uuid.UUID `json:"mock_test_id" binding:"required"`
}

// ResponseEntry is one entry of a section response batch.
type ResponseEntry struct {
	QuestionID          uuid.UUID `json:"question_id" binding:"required"`
	SelectedOptionIndex *int      `json:"selected_option_index"`
	TimeTakenSeconds    int       `json:"time_taken_seconds" binding:"min=0"`
}

// SubmitSectionRequest is the payload for a section-scoped response batch.
type SubmitSectionRequest struct {
	Responses []ResponseEntry `json:"responses" binding:"required,dive"`
}

// AttemptState is the reload view of a running attempt: what was saved so
// far and how many seconds remain on the overall clock.
type AttemptState struct {
	AttemptID        uuid.UUID              `json:"attempt_id"`
	MockTestID       uuid.UUID              `json:"mock_test_id"`
	Status           AttemptStatus          `json:"status"`
	Responses        map[uuid.UUID]Response `json:"responses"`
	RemainingSeconds float64                `json:"remaining_seconds"`
}
