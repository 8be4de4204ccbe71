package repository

import (
	"context"
	"time"

	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository handles attempt and response data access. The attempt
// row plus its attempt_responses rows are owned exclusively by the
// lifecycle service; nothing else mutates them.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// GetByID retrieves an attempt without its responses.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, mock_test_id, status, start_time, end_time
		 FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.UserID, &a.MockTestID, &a.Status, &a.StartTime, &a.EndTime)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetActiveByUserAndTest retrieves the started attempt for a (user, test)
// pair, if one exists.
func (r *AttemptRepository) GetActiveByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, mock_test_id, status, start_time, end_time
		 FROM attempts
		 WHERE user_id = $1 AND mock_test_id = $2 AND status = $3`,
		userID, testID, model.AttemptStatusStarted,
	).Scan(&a.ID, &a.UserID, &a.MockTestID, &a.Status, &a.StartTime, &a.EndTime)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateActive inserts a new started attempt. The partial unique index on
// (user_id, mock_test_id) WHERE status='started' serializes concurrent
// creates: the loser gets pgx.ErrNoRows and must re-fetch the winner's row.
func (r *AttemptRepository) CreateActive(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (user_id, mock_test_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, mock_test_id) WHERE status = 'started' DO NOTHING
		 RETURNING id, status, start_time`,
		a.UserID, a.MockTestID, model.AttemptStatusStarted,
	).Scan(&a.ID, &a.Status, &a.StartTime)
}

// MergeResponses upserts a batch of responses into the attempt. Re-sending
// the same batch is a no-op beyond updated_at; a later value for the same
// question overwrites the earlier one. Each statement is gated on the
// attempt still being started, so a merge racing a completion cannot land
// rows after the attempt was finalized.
func (r *AttemptRepository) MergeResponses(ctx context.Context, attemptID uuid.UUID, responses []model.Response) error {
	if len(responses) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, resp := range responses {
		batch.Queue(
			`INSERT INTO attempt_responses (attempt_id, question_id, selected_option_index, time_taken_seconds)
			 SELECT $1, $2, $3, $4
			 WHERE EXISTS (SELECT 1 FROM attempts WHERE id = $1 AND status = 'started')
			 ON CONFLICT (attempt_id, question_id) DO UPDATE
			 SET selected_option_index = EXCLUDED.selected_option_index,
			     time_taken_seconds = EXCLUDED.time_taken_seconds,
			     updated_at = NOW()`,
			attemptID, resp.QuestionID, resp.SelectedOptionIndex, resp.TimeTakenSeconds,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range responses {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListResponses retrieves all responses of an attempt keyed by question ID.
func (r *AttemptRepository) ListResponses(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, selected_option_index, time_taken_seconds
		 FROM attempt_responses
		 WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := make(map[uuid.UUID]model.Response)
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(&resp.QuestionID, &resp.SelectedOptionIndex, &resp.TimeTakenSeconds); err != nil {
			return nil, err
		}
		responses[resp.QuestionID] = resp
	}
	return responses, rows.Err()
}

// CompleteIfStarted atomically transitions started→completed. Returns false
// when the attempt was not in started state, which is how a SubmitTest
// racer learns it lost.
func (r *AttemptRepository) CompleteIfStarted(ctx context.Context, attemptID uuid.UUID, endTime time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, end_time = $2
		 WHERE id = $3 AND status = $4`,
		model.AttemptStatusCompleted, endTime, attemptID, model.AttemptStatusStarted,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Stats returns the total attempt count and the number of distinct users
// who have attempted anything.
func (r *AttemptRepository) Stats(ctx context.Context) (totalAttempts int64, uniqueUsers int64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM attempts`,
	).Scan(&totalAttempts, &uniqueUsers)
	return totalAttempts, uniqueUsers, err
}
