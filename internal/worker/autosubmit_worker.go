package worker

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Priyanshu1283/quizzer-backend/internal/config"
	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/Priyanshu1283/quizzer-backend/internal/service"
)

const SweepBatchSize = 100

// TestSubmitter finalizes attempts. Implemented by service.AttemptService.
type TestSubmitter interface {
	SubmitTest(ctx context.Context, attemptID uuid.UUID) (*model.Result, bool, error)
}

// AutoSubmitWorker closes out attempts whose time limit expired while the
// taker was away. Deadlines live in a Redis sorted set scored by unix
// seconds; each sweep submits everything scored at or before now.
// Submission is idempotent, so racing a manual submit is harmless.
type AutoSubmitWorker struct {
	attempts TestSubmitter
	rdb      *redis.Client
	interval time.Duration
	log      zerolog.Logger
}

func NewAutoSubmitWorker(attempts TestSubmitter, rdb *redis.Client, interval time.Duration, log zerolog.Logger) *AutoSubmitWorker {
	return &AutoSubmitWorker{
		attempts: attempts,
		rdb:      rdb,
		interval: interval,
		log:      log.With().Str("component", "autosubmit_worker").Logger(),
	}
}

func (w *AutoSubmitWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("AutoSubmitWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Running final sweep...")
			w.Sweep(context.Background())
			return

		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep submits every attempt whose deadline has passed. Returns how
// many attempts were finalized this pass.
func (w *AutoSubmitWorker) Sweep(ctx context.Context) int {
	now := time.Now().Unix()
	members, err := w.rdb.ZRangeByScore(ctx, config.WorkerKey.AttemptDeadlines, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: SweepBatchSize,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Deadline scan failed")
		}
		return 0
	}

	submitted := 0
	for _, member := range members {
		attemptID, err := uuid.Parse(member)
		if err != nil {
			w.log.Warn().Str("member", member).Msg("Dropping malformed deadline entry")
			w.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlines, member)
			continue
		}

		_, already, err := w.attempts.SubmitTest(ctx, attemptID)
		switch {
		case err == nil:
			if !already {
				w.log.Info().Str("attempt_id", member).Msg("Attempt auto-submitted")
				submitted++
			}
			w.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlines, member)

		case errors.Is(err, service.ErrAttemptNotFound),
			errors.Is(err, service.ErrAttemptNotActive):
			// Attempt is gone or terminal, the deadline is stale.
			w.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlines, member)

		default:
			// Transient failure, keep the entry for the next sweep.
			w.log.Error().Err(err).Str("attempt_id", member).Msg("Auto-submit failed")
		}
	}
	return submitted
}
