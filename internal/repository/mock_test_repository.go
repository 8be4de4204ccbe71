package repository

import (
	"context"

	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MockTestRepository handles mock test definition data access.
type MockTestRepository struct {
	pool *pgxpool.Pool
}

// NewMockTestRepository creates a new MockTestRepository.
func NewMockTestRepository(pool *pgxpool.Pool) *MockTestRepository {
	return &MockTestRepository{pool: pool}
}

// ListActiveBySeries retrieves all active mock tests of a series.
func (r *MockTestRepository) ListActiveBySeries(ctx context.Context, seriesID uuid.UUID) ([]model.MockTest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_series_id, title, total_time_minutes, price, sections, is_active, created_at
		 FROM mock_tests
		 WHERE test_series_id = $1 AND is_active
		 ORDER BY created_at ASC`, seriesID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.MockTest
	for rows.Next() {
		var t model.MockTest
		if err := rows.Scan(&t.ID, &t.TestSeriesID, &t.Title, &t.TotalTimeMinutes, &t.Price, &t.Sections, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// GetByID retrieves a mock test (active or not) by ID.
func (r *MockTestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MockTest, error) {
	t := &model.MockTest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_series_id, title, total_time_minutes, price, sections, is_active, created_at
		 FROM mock_tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.TestSeriesID, &t.Title, &t.TotalTimeMinutes, &t.Price, &t.Sections, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new mock test. Used by seeding tooling.
func (r *MockTestRepository) Create(ctx context.Context, t *model.MockTest) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO mock_tests (test_series_id, title, total_time_minutes, price, sections, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		t.TestSeriesID, t.Title, t.TotalTimeMinutes, t.Price, t.Sections, t.IsActive,
	).Scan(&t.ID, &t.CreatedAt)
}
