package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Priyanshu1283/quizzer-backend/internal/config"
	"github.com/Priyanshu1283/quizzer-backend/internal/model"
)

var (
	ErrTestNotFound     = errors.New("mock test not found")
	ErrTestNotAvailable = errors.New("mock test is not active")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrAttemptNotActive = errors.New("attempt is not in progress")
	ErrSectionNotFound  = errors.New("section does not belong to this test")
)

// AttemptStore is the persistence surface the attempt lifecycle needs.
// Implemented by repository.AttemptRepository.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetActiveByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) (*model.Attempt, error)
	CreateActive(ctx context.Context, a *model.Attempt) error
	MergeResponses(ctx context.Context, attemptID uuid.UUID, responses []model.Response) error
	ListResponses(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]model.Response, error)
	CompleteIfStarted(ctx context.Context, attemptID uuid.UUID, endTime time.Time) (bool, error)
}

// MockTestStore provides test definitions. Implemented by repository.MockTestRepository.
type MockTestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.MockTest, error)
}

// QuestionStore provides the question bank of a test. Implemented by
// repository.QuestionRepository.
type QuestionStore interface {
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
}

// ResultStore persists graded outcomes. Implemented by repository.ResultRepository.
type ResultStore interface {
	Create(ctx context.Context, res *model.Result) (inserted bool, err error)
	GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Result, error)
}

// AttemptService drives the attempt lifecycle: start or resume, merge
// section responses, submit and grade, and reload in-progress state.
type AttemptService struct {
	attempts  AttemptStore
	tests     MockTestStore
	questions QuestionStore
	results   ResultStore
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	tests MockTestStore,
	questions QuestionStore,
	results ResultStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		tests:     tests,
		questions: questions,
		results:   results,
		rdb:       rdb,
		log:       log.With().Str("component", "attempt_service").Logger(),
	}
}

// StartOrResumeAttempt returns the user's active attempt on the test,
// creating one if none exists. Two concurrent starts for the same
// (user, test) converge on a single attempt: the partial unique index on
// active attempts makes the insert a no-op for the loser, which then
// re-reads the winner's row.
func (s *AttemptService) StartOrResumeAttempt(ctx context.Context, userID int, testID uuid.UUID) (*model.Attempt, bool, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrTestNotFound
		}
		return nil, false, fmt.Errorf("get mock test: %w", err)
	}
	if !test.IsActive {
		return nil, false, ErrTestNotAvailable
	}

	existing, err := s.attempts.GetActiveByUserAndTest(ctx, userID, testID)
	if err == nil {
		if err := s.loadResponses(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("find active attempt: %w", err)
	}

	attempt := &model.Attempt{
		UserID:     userID,
		MockTestID: testID,
	}
	err = s.attempts.CreateActive(ctx, attempt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race: another request created the active attempt
		// between our lookup and insert. Resume that one.
		winner, err := s.attempts.GetActiveByUserAndTest(ctx, userID, testID)
		if err != nil {
			return nil, false, fmt.Errorf("resume concurrent attempt: %w", err)
		}
		if err := s.loadResponses(ctx, winner); err != nil {
			return nil, false, err
		}
		return winner, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create attempt: %w", err)
	}

	attempt.Responses = map[uuid.UUID]model.Response{}
	s.scheduleAutoSubmit(ctx, attempt, test)
	return attempt, false, nil
}

// SubmitSectionResponses merges a batch of answers for one section into
// the attempt. Validation is per entry: an entry referencing an unknown
// question, a question outside the named section, or an out-of-range
// option index is dropped while the rest of the batch is still saved.
// Re-sent entries overwrite earlier ones for the same question.
func (s *AttemptService) SubmitSectionResponses(ctx context.Context, attemptID uuid.UUID, sectionName string, entries []model.ResponseEntry) (saved int, dropped int, err error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrAttemptNotFound
		}
		return 0, 0, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusStarted {
		return 0, 0, ErrAttemptNotActive
	}

	test, err := s.tests.GetByID(ctx, attempt.MockTestID)
	if err != nil {
		return 0, 0, fmt.Errorf("get mock test: %w", err)
	}
	if _, ok := test.SectionByName(sectionName); !ok {
		return 0, 0, ErrSectionNotFound
	}

	bank, err := s.questions.ListByTest(ctx, attempt.MockTestID)
	if err != nil {
		return 0, 0, fmt.Errorf("list questions: %w", err)
	}
	byID := make(map[uuid.UUID]model.Question, len(bank))
	for _, q := range bank {
		byID[q.ID] = q
	}

	valid := make([]model.Response, 0, len(entries))
	for _, e := range entries {
		q, ok := byID[e.QuestionID]
		if !ok || q.SectionName != sectionName {
			dropped++
			continue
		}
		if e.SelectedOptionIndex != nil &&
			(*e.SelectedOptionIndex < 0 || *e.SelectedOptionIndex >= len(q.Options)) {
			dropped++
			continue
		}
		valid = append(valid, model.Response{
			QuestionID:          e.QuestionID,
			SelectedOptionIndex: e.SelectedOptionIndex,
			TimeTakenSeconds:    e.TimeTakenSeconds,
		})
	}

	if len(valid) > 0 {
		if err := s.attempts.MergeResponses(ctx, attemptID, valid); err != nil {
			return 0, dropped, fmt.Errorf("merge responses: %w", err)
		}
	}
	if dropped > 0 {
		s.log.Warn().
			Str("attempt_id", attemptID.String()).
			Str("section", sectionName).
			Int("dropped", dropped).
			Msg("Dropped invalid response entries")
	}
	return len(valid), dropped, nil
}

// SubmitTest finalizes the attempt and returns its graded result. The
// call is idempotent: the first caller wins the started->completed
// transition and grades; later callers get the already-persisted result.
// If a previous winner crashed between completing the attempt and
// persisting the result, the next caller re-grades from the saved
// responses, which is deterministic.
func (s *AttemptService) SubmitTest(ctx context.Context, attemptID uuid.UUID) (*model.Result, bool, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrAttemptNotFound
		}
		return nil, false, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status == model.AttemptStatusAbandoned {
		return nil, false, ErrAttemptNotActive
	}

	now := time.Now()
	won, err := s.attempts.CompleteIfStarted(ctx, attemptID, now)
	if err != nil {
		return nil, false, fmt.Errorf("complete attempt: %w", err)
	}

	if !won {
		attempt, err = s.attempts.GetByID(ctx, attemptID)
		if err != nil {
			return nil, false, fmt.Errorf("reload attempt: %w", err)
		}
		if attempt.Status != model.AttemptStatusCompleted {
			return nil, false, ErrAttemptNotActive
		}
		res, err := s.results.GetByAttempt(ctx, attemptID)
		if err == nil {
			return res, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("get result: %w", err)
		}
		// Completed but never graded. Fall through and grade now.
	}

	test, err := s.tests.GetByID(ctx, attempt.MockTestID)
	if err != nil {
		return nil, false, fmt.Errorf("get mock test: %w", err)
	}
	questions, err := s.questions.ListByTest(ctx, attempt.MockTestID)
	if err != nil {
		return nil, false, fmt.Errorf("list questions: %w", err)
	}
	attempt.Responses, err = s.attempts.ListResponses(ctx, attemptID)
	if err != nil {
		return nil, false, fmt.Errorf("list responses: %w", err)
	}

	result := GradeAttempt(attempt, questions, test.Sections)
	inserted, err := s.results.Create(ctx, result)
	if err != nil {
		return nil, false, fmt.Errorf("persist result: %w", err)
	}
	if !inserted {
		// Someone else graded first. The stored row is authoritative.
		stored, err := s.results.GetByAttempt(ctx, attemptID)
		if err != nil {
			return nil, false, fmt.Errorf("get result: %w", err)
		}
		return stored, true, nil
	}

	s.cancelAutoSubmit(ctx, attemptID)
	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("score", result.Score).
		Msg("Attempt graded")
	return result, !won, nil
}

// GetAttemptState rebuilds the view a taker needs after a page reload:
// saved responses plus the remaining seconds on the overall clock. The
// deadline is read from Redis first; on a miss it is recomputed from the
// database and written back.
func (s *AttemptService) GetAttemptState(ctx context.Context, attemptID uuid.UUID, userID int) (*model.AttemptState, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptNotFound
	}

	state := &model.AttemptState{
		AttemptID:  attempt.ID,
		MockTestID: attempt.MockTestID,
		Status:     attempt.Status,
	}

	state.Responses, err = s.attempts.ListResponses(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	if attempt.Status != model.AttemptStatusStarted {
		return state, nil
	}

	deadline, err := s.deadlineFor(ctx, attempt)
	if err != nil {
		return nil, err
	}
	remaining := time.Until(deadline).Seconds()
	if remaining < 0 {
		remaining = 0
	}
	state.RemainingSeconds = remaining
	return state, nil
}

// deadlineFor resolves the attempt's absolute auto-submit deadline,
// preferring the worker's Redis schedule and falling back to the test
// definition when Redis lost it.
func (s *AttemptService) deadlineFor(ctx context.Context, attempt *model.Attempt) (time.Time, error) {
	if s.rdb != nil {
		score, err := s.rdb.ZScore(ctx, config.WorkerKey.AttemptDeadlines, attempt.ID.String()).Result()
		if err == nil {
			return time.Unix(int64(score), 0), nil
		}
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Redis deadline lookup failed, falling back to database")
		}
	}

	test, err := s.tests.GetByID(ctx, attempt.MockTestID)
	if err != nil {
		return time.Time{}, fmt.Errorf("get mock test: %w", err)
	}
	deadline := attempt.StartTime.Add(time.Duration(test.TotalTimeMinutes) * time.Minute)
	s.scheduleDeadline(ctx, attempt.ID, deadline)
	return deadline, nil
}

// GetOwnedAttempt returns the attempt if it belongs to the user.
// Foreign attempts surface as not found, ownership is never leaked.
func (s *AttemptService) GetOwnedAttempt(ctx context.Context, attemptID uuid.UUID, userID int) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

// VerifyActiveAttempt reports whether the user currently holds an active
// attempt on the test. Used to gate paper downloads.
func (s *AttemptService) VerifyActiveAttempt(ctx context.Context, userID int, testID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attempts.GetActiveByUserAndTest(ctx, userID, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotActive
		}
		return nil, fmt.Errorf("find active attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptService) loadResponses(ctx context.Context, attempt *model.Attempt) error {
	responses, err := s.attempts.ListResponses(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("list responses: %w", err)
	}
	attempt.Responses = responses
	return nil
}

func (s *AttemptService) scheduleAutoSubmit(ctx context.Context, attempt *model.Attempt, test *model.MockTest) {
	deadline := attempt.StartTime.Add(time.Duration(test.TotalTimeMinutes) * time.Minute)
	s.scheduleDeadline(ctx, attempt.ID, deadline)
}

// scheduleDeadline registers the attempt in the auto-submit schedule.
// Best effort: a Redis outage must not block the attempt itself, the
// state endpoint re-registers on its database fallback path.
func (s *AttemptService) scheduleDeadline(ctx context.Context, attemptID uuid.UUID, deadline time.Time) {
	if s.rdb == nil {
		return
	}
	err := s.rdb.ZAdd(ctx, config.WorkerKey.AttemptDeadlines, redis.Z{
		Score:  float64(deadline.Unix()),
		Member: attemptID.String(),
	}).Err()
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to schedule auto-submit deadline")
	}
}

func (s *AttemptService) cancelAutoSubmit(ctx context.Context, attemptID uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.ZRem(ctx, config.WorkerKey.AttemptDeadlines, attemptID.String()).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to clear auto-submit deadline")
	}
}
