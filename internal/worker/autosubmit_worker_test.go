package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Priyanshu1283/quizzer-backend/internal/config"
	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/Priyanshu1283/quizzer-backend/internal/service"
)

type fakeSubmitter struct {
	mu        sync.Mutex
	submitted []uuid.UUID
	errs      map[uuid.UUID]error
	already   map[uuid.UUID]bool
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{
		errs:    make(map[uuid.UUID]error),
		already: make(map[uuid.UUID]bool),
	}
}

func (f *fakeSubmitter) SubmitTest(ctx context.Context, attemptID uuid.UUID) (*model.Result, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[attemptID]; err != nil {
		return nil, false, err
	}
	f.submitted = append(f.submitted, attemptID)
	return &model.Result{AttemptID: attemptID}, f.already[attemptID], nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

func newWorkerEnv(t *testing.T) (*miniredis.Miniredis, *redis.Client, *fakeSubmitter, *AutoSubmitWorker) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	submitter := newFakeSubmitter()
	w := NewAutoSubmitWorker(submitter, rdb, time.Second, zerolog.Nop())
	return mr, rdb, submitter, w
}

func schedule(t *testing.T, mr *miniredis.Miniredis, id uuid.UUID, deadline time.Time) {
	t.Helper()
	if _, err := mr.ZAdd(config.WorkerKey.AttemptDeadlines, float64(deadline.Unix()), id.String()); err != nil {
		t.Fatalf("seed deadline: %v", err)
	}
}

func hasDeadline(t *testing.T, rdb *redis.Client, id uuid.UUID) bool {
	t.Helper()
	_, err := rdb.ZScore(context.Background(), config.WorkerKey.AttemptDeadlines, id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}
	return true
}

func TestSweepSubmitsExpiredAttempts(t *testing.T) {
	mr, rdb, submitter, w := newWorkerEnv(t)

	expired := uuid.New()
	future := uuid.New()
	schedule(t, mr, expired, time.Now().Add(-time.Minute))
	schedule(t, mr, future, time.Now().Add(time.Hour))

	if got := w.Sweep(context.Background()); got != 1 {
		t.Errorf("expected 1 submission, got %d", got)
	}
	if submitter.count() != 1 {
		t.Errorf("submitter called %d times, want 1", submitter.count())
	}
	if hasDeadline(t, rdb, expired) {
		t.Error("expired deadline not removed")
	}
	if !hasDeadline(t, rdb, future) {
		t.Error("future deadline removed too early")
	}
}

func TestSweepSkipsAlreadySubmitted(t *testing.T) {
	mr, rdb, submitter, w := newWorkerEnv(t)

	id := uuid.New()
	submitter.already[id] = true
	schedule(t, mr, id, time.Now().Add(-time.Minute))

	if got := w.Sweep(context.Background()); got != 0 {
		t.Errorf("already-submitted attempt counted: %d", got)
	}
	if hasDeadline(t, rdb, id) {
		t.Error("stale deadline for submitted attempt not removed")
	}
}

func TestSweepDropsStaleAndMalformedEntries(t *testing.T) {
	mr, rdb, submitter, w := newWorkerEnv(t)

	gone := uuid.New()
	abandoned := uuid.New()
	submitter.errs[gone] = service.ErrAttemptNotFound
	submitter.errs[abandoned] = service.ErrAttemptNotActive
	schedule(t, mr, gone, time.Now().Add(-time.Minute))
	schedule(t, mr, abandoned, time.Now().Add(-time.Minute))
	if _, err := mr.ZAdd(config.WorkerKey.AttemptDeadlines, float64(time.Now().Add(-time.Minute).Unix()), "not-a-uuid"); err != nil {
		t.Fatalf("seed malformed member: %v", err)
	}

	if got := w.Sweep(context.Background()); got != 0 {
		t.Errorf("expected 0 submissions, got %d", got)
	}
	if hasDeadline(t, rdb, gone) || hasDeadline(t, rdb, abandoned) {
		t.Error("stale deadlines not removed")
	}
	if err := rdb.ZScore(context.Background(), config.WorkerKey.AttemptDeadlines, "not-a-uuid").Err(); !errors.Is(err, redis.Nil) {
		t.Errorf("malformed member not removed: %v", err)
	}
}

func TestSweepRetainsEntriesOnTransientFailure(t *testing.T) {
	mr, rdb, submitter, w := newWorkerEnv(t)

	id := uuid.New()
	submitter.errs[id] = errors.New("connection refused")
	schedule(t, mr, id, time.Now().Add(-time.Minute))

	if got := w.Sweep(context.Background()); got != 0 {
		t.Errorf("expected 0 submissions, got %d", got)
	}
	if !hasDeadline(t, rdb, id) {
		t.Error("entry dropped despite transient failure")
	}

	// Once the failure clears, the next sweep finishes the job.
	submitter.mu.Lock()
	delete(submitter.errs, id)
	submitter.mu.Unlock()

	if got := w.Sweep(context.Background()); got != 1 {
		t.Errorf("expected 1 submission after recovery, got %d", got)
	}
	if hasDeadline(t, rdb, id) {
		t.Error("deadline not removed after successful submit")
	}
}
