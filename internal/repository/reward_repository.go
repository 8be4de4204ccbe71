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

// RewardRepository handles reward data access.
type RewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository creates a new RewardRepository.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// Create inserts a reward unless the user already has one for this test.
// Returns inserted=false on the unique-constraint no-op.
func (r *RewardRepository) Create(ctx context.Context, w *model.Reward) (inserted bool, err error) {
	err = r.pool.QueryRow(ctx,
		`INSERT INTO rewards (user_id, mock_test_id, rank, reward_type, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, mock_test_id) DO NOTHING
		 RETURNING id, created_at`,
		w.UserID, w.MockTestID, w.Rank, w.RewardType, w.Status,
	).Scan(&w.ID, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByUser retrieves a user's rewards, newest first.
func (r *RewardRepository) ListByUser(ctx context.Context, userID int) ([]model.Reward, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, mock_test_id, rank, reward_type, status, claimed_at, distributed_at, created_at
		 FROM rewards
		 WHERE user_id = $1
		 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		var w model.Reward
		if err := rows.Scan(&w.ID, &w.UserID, &w.MockTestID, &w.Rank, &w.RewardType, &w.Status, &w.ClaimedAt, &w.DistributedAt, &w.CreatedAt); err != nil {
			return nil, err
		}
		rewards = append(rewards, w)
	}
	return rewards, rows.Err()
}

// GetByID retrieves a reward.
func (r *RewardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reward, error) {
	w := &model.Reward{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, mock_test_id, rank, reward_type, status, claimed_at, distributed_at, created_at
		 FROM rewards WHERE id = $1`, id,
	).Scan(&w.ID, &w.UserID, &w.MockTestID, &w.Rank, &w.RewardType, &w.Status, &w.ClaimedAt, &w.DistributedAt, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ClaimIfEligible atomically transitions eligible→claimed for the owner.
// Returns false when the reward is not the user's or not eligible.
func (r *RewardRepository) ClaimIfEligible(ctx context.Context, id uuid.UUID, userID int, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rewards
		 SET status = $1, claimed_at = $2
		 WHERE id = $3 AND user_id = $4 AND status = $5`,
		model.RewardStatusClaimed, at, id, userID, model.RewardStatusEligible,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkDistributed sets a reward's status to distributed.
func (r *RewardRepository) MarkDistributed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rewards
		 SET status = $1, distributed_at = $2
		 WHERE id = $3 AND status <> $1`,
		model.RewardStatusDistributed, at, id,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
