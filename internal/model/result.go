package model

import (
	"time"

	"github.com/google/uuid"
)

// SectionStat is the graded breakdown of one section. The slice order in
// Result.SectionAnalysis follows the test definition's section order, so a
// section with zero questions still gets a (zeroed) entry.
type SectionStat struct {
	SectionName string  `json:"section_name"`
	Score       float64 `json:"score"`
	Correct     int     `json:"correct"`
	Wrong       int     `json:"wrong"`
	Unattempted int     `json:"unattempted"`
}

// Result is the immutable graded outcome of a completed attempt.
// At most one Result exists per attempt, enforced by a unique constraint.
type Result struct {
	ID               uuid.UUID     `json:"id"`
	AttemptID        uuid.UUID     `json:"attempt_id"`
	UserID           int           `json:"user_id"`
	MockTestID       uuid.UUID     `json:"mock_test_id"`
	Score            float64       `json:"score"`
	TotalCorrect     int           `json:"total_correct"`
	TotalWrong       int           `json:"total_wrong"`
	TotalUnattempted int           `json:"total_unattempted"`
	SectionAnalysis  []SectionStat `json:"section_analysis"`
	CreatedAt        time.Time     `json:"created_at"`
}

// LeaderboardEntry is one row of a test's ranking: score descending,
// earliest completion breaking ties.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      int       `json:"user_id"`
	FullName    string    `json:"full_name"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}
