package repository

import (
	"context"

	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestSeriesRepository handles test series data access.
type TestSeriesRepository struct {
	pool *pgxpool.Pool
}

// NewTestSeriesRepository creates a new TestSeriesRepository.
func NewTestSeriesRepository(pool *pgxpool.Pool) *TestSeriesRepository {
	return &TestSeriesRepository{pool: pool}
}

// ListActive retrieves all active test series, newest first.
func (r *TestSeriesRepository) ListActive(ctx context.Context) ([]model.TestSeries, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, is_active, created_at
		 FROM test_series
		 WHERE is_active
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []model.TestSeries
	for rows.Next() {
		var s model.TestSeries
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, rows.Err()
}

// GetActive retrieves an active test series by ID.
func (r *TestSeriesRepository) GetActive(ctx context.Context, id uuid.UUID) (*model.TestSeries, error) {
	s := &model.TestSeries{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, is_active, created_at
		 FROM test_series
		 WHERE id = $1 AND is_active`, id,
	).Scan(&s.ID, &s.Name, &s.Description, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new test series. Used by seeding tooling.
func (r *TestSeriesRepository) Create(ctx context.Context, s *model.TestSeries) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO test_series (name, description, is_active)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		s.Name, s.Description, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt)
}
