package model

import (
	"time"

	"github.com/google/uuid"
)

// Section is one named, time-boxed slice of a mock test.
// Sections are consumed sequentially in the order they appear.
type Section struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	QuestionCount   int    `json:"question_count"`
}

// MockTest is a sectioned, time-boxed examination definition.
type MockTest struct {
	ID               uuid.UUID `json:"id"`
	TestSeriesID     uuid.UUID `json:"test_series_id"`
	Title            string    `json:"title"`
	TotalTimeMinutes int       `json:"total_time_minutes"`
	// Price is display data only; purchase flows live outside this service.
	Price     float64   `json:"price"`
	Sections  []Section `json:"sections"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// SectionWithCount is a section annotated with how many questions actually
// exist in the bank, for the test details view.
type SectionWithCount struct {
	Section
	AddedQuestions int `json:"added_questions"`
}

// SectionByName returns the section with the given name, or false.
func (t *MockTest) SectionByName(name string) (Section, bool) {
	for _, s := range t.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// TestPaper is the Redis-cached payload sent to test-takers (no correct answers).
type TestPaper struct {
	TestID           uuid.UUID          `json:"test_id"`
	Title            string             `json:"title"`
	TotalTimeMinutes int                `json:"total_time_minutes"`
	Sections         []Section          `json:"sections"`
	Questions        []QuestionForTaker `json:"questions"`
}
