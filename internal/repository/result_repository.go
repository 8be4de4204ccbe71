package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TopPerformer is a leaderboard row joined with user and test titles, for
// the admin overview.
type TopPerformer struct {
	UserID    int       `json:"user_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	TestTitle string    `json:"test_title"`
	Score     float64   `json:"score"`
	GradedAt  time.Time `json:"graded_at"`
}

// ResultRepository handles graded result data access. Results are written
// once and never updated.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a result unless one already exists for the attempt.
// Returns inserted=false when the unique constraint on attempt_id kicked
// in; the caller should then fetch the existing row.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) (inserted bool, err error) {
	err = r.pool.QueryRow(ctx,
		`INSERT INTO results (attempt_id, user_id, mock_test_id, score, total_correct, total_wrong, total_unattempted, section_analysis)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (attempt_id) DO NOTHING
		 RETURNING id, created_at`,
		res.AttemptID, res.UserID, res.MockTestID, res.Score,
		res.TotalCorrect, res.TotalWrong, res.TotalUnattempted, res.SectionAnalysis,
	).Scan(&res.ID, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByAttempt retrieves the result of an attempt.
func (r *ResultRepository) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, user_id, mock_test_id, score, total_correct, total_wrong, total_unattempted, section_analysis, created_at
		 FROM results WHERE attempt_id = $1`, attemptID,
	))
}

// GetByID retrieves a result by its own ID.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, user_id, mock_test_id, score, total_correct, total_wrong, total_unattempted, section_analysis, created_at
		 FROM results WHERE id = $1`, id,
	))
}

func (r *ResultRepository) scanOne(row pgx.Row) (*model.Result, error) {
	res := &model.Result{}
	err := row.Scan(&res.ID, &res.AttemptID, &res.UserID, &res.MockTestID, &res.Score,
		&res.TotalCorrect, &res.TotalWrong, &res.TotalUnattempted, &res.SectionAnalysis, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Leaderboard returns the top results of a mock test: score descending,
// earliest grading first on ties.
func (r *ResultRepository) Leaderboard(ctx context.Context, testID uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT res.user_id, TRIM(u.first_name || ' ' || u.last_name), res.score, res.created_at
		 FROM results res
		 JOIN users u ON u.id = res.user_id
		 WHERE res.mock_test_id = $1
		 ORDER BY res.score DESC, res.created_at ASC
		 LIMIT $2`, testID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.FullName, &e.Score, &e.CompletedAt); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TopPerformers returns the highest-scoring results across all tests.
func (r *ResultRepository) TopPerformers(ctx context.Context, limit int) ([]TopPerformer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT res.user_id, TRIM(u.first_name || ' ' || u.last_name), u.email, t.title, res.score, res.created_at
		 FROM results res
		 JOIN users u ON u.id = res.user_id
		 JOIN mock_tests t ON t.id = res.mock_test_id
		 ORDER BY res.score DESC, res.created_at ASC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var performers []TopPerformer
	for rows.Next() {
		var p TopPerformer
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Email, &p.TestTitle, &p.Score, &p.GradedAt); err != nil {
			return nil, err
		}
		performers = append(performers, p)
	}
	return performers, rows.Err()
}
