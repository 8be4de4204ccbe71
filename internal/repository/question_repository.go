package repository

import (
	"context"

	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves the full question records of a mock test, ordered by
// order_num. Includes correct_option_index for grading; strip it before
// serving the test-taking client.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, mock_test_id, section_name, text, options, correct_option_index, marks, negative_marks, order_num
		 FROM questions
		 WHERE mock_test_id = $1
		 ORDER BY order_num`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.MockTestID, &q.SectionName, &q.Text, &q.Options, &q.CorrectOptionIndex, &q.Marks, &q.NegativeMarks, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountBySection returns question counts grouped by section name.
func (r *QuestionRepository) CountBySection(ctx context.Context, testID uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT section_name, COUNT(*)
		 FROM questions
		 WHERE mock_test_id = $1
		 GROUP BY section_name`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// Create inserts a new question. Used by seeding tooling.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (mock_test_id, section_name, text, options, correct_option_index, marks, negative_marks, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		q.MockTestID, q.SectionName, q.Text, q.Options, q.CorrectOptionIndex, q.Marks, q.NegativeMarks, q.OrderNum,
	).Scan(&q.ID)
}
