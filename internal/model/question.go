package model

import (
	"github.com/google/uuid"
)

// Question is a single multiple-choice question in a mock test's bank.
// CorrectOptionIndex must never reach the test-taking client; use
// QuestionForTaker for that view.
type Question struct {
	ID                 uuid.UUID `json:"id"`
	MockTestID         uuid.UUID `json:"mock_test_id"`
	SectionName        string    `json:"section_name"`
	Text               string    `json:"text"`
	Options            []string  `json:"options"`
	CorrectOptionIndex int       `json:"correct_option_index"`
	Marks              float64   `json:"marks"`
	NegativeMarks      float64   `json:"negative_marks"`
	OrderNum           int       `json:"order_num"`
}

// QuestionForTaker is a question with the answer stripped, sent to test-takers.
type QuestionForTaker struct {
	ID          uuid.UUID `json:"id"`
	SectionName string    `json:"section_name"`
	Text        string    `json:"text"`
	Options     []string  `json:"options"`
	OrderNum    int       `json:"order_num"`
}

// ForTaker strips the grading fields from a question.
func (q Question) ForTaker() QuestionForTaker {
	return QuestionForTaker{
		ID:          q.ID,
		SectionName: q.SectionName,
		Text:        q.Text,
		Options:     q.Options,
		OrderNum:    q.OrderNum,
	}
}
