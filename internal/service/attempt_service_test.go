package service

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Priyanshu1283/quizzer-backend/internal/config"
	"github.com/Priyanshu1283/quizzer-backend/internal/model"
)

type attemptTestEnv struct {
	svc       *AttemptService
	attempts  *fakeAttemptStore
	tests     *fakeTestStore
	questions *fakeQuestionStore
	results   *fakeResultStore
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	test      *model.MockTest
	bank      []model.Question
}

func newAttemptTestEnv(t *testing.T) *attemptTestEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	attempts := newFakeAttemptStore()
	tests := newFakeTestStore()
	questions := newFakeQuestionStore()
	results := newFakeResultStore()

	test, bank := twoSectionFixture()
	tests.tests[test.ID] = test
	questions.questions[test.ID] = bank

	svc := NewAttemptService(attempts, tests, questions, results, rdb, zerolog.Nop())
	return &attemptTestEnv{
		svc:       svc,
		attempts:  attempts,
		tests:     tests,
		questions: questions,
		results:   results,
		mr:        mr,
		rdb:       rdb,
		test:      test,
		bank:      bank,
	}
}

// hasDeadline reports whether the attempt is scheduled for auto-submit.
func (e *attemptTestEnv) hasDeadline(t *testing.T, attemptID uuid.UUID) bool {
	t.Helper()
	_, err := e.rdb.ZScore(context.Background(), config.WorkerKey.AttemptDeadlines, attemptID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}
	return true
}

func TestStartOrResumeAttempt(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	attempt, resumed, err := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if resumed {
		t.Error("fresh attempt reported as resumed")
	}
	if attempt.Status != model.AttemptStatusStarted {
		t.Errorf("expected started, got %s", attempt.Status)
	}

	// The auto-submit deadline must be scheduled.
	if !env.hasDeadline(t, attempt.ID) {
		t.Error("deadline not scheduled")
	}

	again, resumed, err := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}
	if !resumed {
		t.Error("second start not reported as resumed")
	}
	if again.ID != attempt.ID {
		t.Errorf("resume returned a different attempt: %s != %s", again.ID, attempt.ID)
	}

	// A different user on the same test gets their own attempt.
	other, resumed, err := env.svc.StartOrResumeAttempt(ctx, 2, env.test.ID)
	if err != nil {
		t.Fatalf("other user start failed: %v", err)
	}
	if resumed || other.ID == attempt.ID {
		t.Errorf("user 2 did not get a fresh attempt: %+v", other)
	}
}

func TestStartOrResumeAttemptLosesCreateRace(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	winner, _, err := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Make the next lookup miss so the service goes down the insert path
	// and hits the uniqueness conflict, as a concurrent starter would.
	env.attempts.hideActiveIdx = 1

	attempt, resumed, err := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)
	if err != nil {
		t.Fatalf("racing start failed: %v", err)
	}
	if !resumed {
		t.Error("race loser did not resume the winner's attempt")
	}
	if attempt.ID != winner.ID {
		t.Errorf("race loser got a different attempt: %s != %s", attempt.ID, winner.ID)
	}
}

func TestStartOrResumeAttemptUnknownTest(t *testing.T) {
	env := newAttemptTestEnv(t)

	_, _, err := env.svc.StartOrResumeAttempt(context.Background(), 1, uuid.New())
	if !errors.Is(err, ErrTestNotFound) {
		t.Fatalf("expected ErrTestNotFound, got %v", err)
	}

	env.test.IsActive = false
	_, _, err = env.svc.StartOrResumeAttempt(context.Background(), 1, env.test.ID)
	if !errors.Is(err, ErrTestNotAvailable) {
		t.Fatalf("expected ErrTestNotAvailable, got %v", err)
	}
}

func TestSubmitSectionResponsesLenientValidation(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	attempt, _, err := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	entries := []model.ResponseEntry{
		{QuestionID: env.bank[0].ID, SelectedOptionIndex: intPtr(1), TimeTakenSeconds: 10}, // valid
		{QuestionID: uuid.New(), SelectedOptionIndex: intPtr(0)},                           // unknown question
		{QuestionID: env.bank[2].ID, SelectedOptionIndex: intPtr(0)},                       // section B question
		{QuestionID: env.bank[1].ID, SelectedOptionIndex: intPtr(9)},                       // out of range
	}
	saved, dropped, err := env.svc.SubmitSectionResponses(ctx, attempt.ID, "A", entries)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if saved != 1 || dropped != 3 {
		t.Errorf("expected saved=1 dropped=3, got saved=%d dropped=%d", saved, dropped)
	}

	stored, _ := env.attempts.ListResponses(ctx, attempt.ID)
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored response, got %d", len(stored))
	}
	if *stored[env.bank[0].ID].SelectedOptionIndex != 1 {
		t.Errorf("stored wrong selection: %+v", stored[env.bank[0].ID])
	}
}

func TestSubmitSectionResponsesLastWriteWins(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	attempt, _, _ := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)

	first := []model.ResponseEntry{{QuestionID: env.bank[0].ID, SelectedOptionIndex: intPtr(0), TimeTakenSeconds: 5}}
	if _, _, err := env.svc.SubmitSectionResponses(ctx, attempt.ID, "A", first); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	second := []model.ResponseEntry{{QuestionID: env.bank[0].ID, SelectedOptionIndex: intPtr(3), TimeTakenSeconds: 25}}
	if _, _, err := env.svc.SubmitSectionResponses(ctx, attempt.ID, "A", second); err != nil {
		t.Fatalf("second submit failed: %v", err)
	}

	stored, _ := env.attempts.ListResponses(ctx, attempt.ID)
	got := stored[env.bank[0].ID]
	if *got.SelectedOptionIndex != 3 || got.TimeTakenSeconds != 25 {
		t.Errorf("resave did not overwrite: %+v", got)
	}
}

func TestMergeDiscardedAfterCompletion(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	attempt, _, _ := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)
	entries := []model.ResponseEntry{
		{QuestionID: env.bank[0].ID, SelectedOptionIndex: intPtr(1), TimeTakenSeconds: 30},
	}
	if _, _, err := env.svc.SubmitSectionResponses(ctx, attempt.ID, "A", entries); err != nil {
		t.Fatalf("responses failed: %v", err)
	}
	if _, _, err := env.svc.SubmitTest(ctx, attempt.ID); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// A merge whose status check raced the completion still reaches the
	// store; the status-gated upsert must drop it.
	late := []model.Response{
		{QuestionID: env.bank[1].ID, SelectedOptionIndex: intPtr(0), TimeTakenSeconds: 5},
	}
	if err := env.attempts.MergeResponses(ctx, attempt.ID, late); err != nil {
		t.Fatalf("late merge errored: %v", err)
	}

	stored, _ := env.attempts.ListResponses(ctx, attempt.ID)
	if len(stored) != 1 {
		t.Fatalf("expected 1 stored response after completion, got %d", len(stored))
	}
	if _, ok := stored[env.bank[1].ID]; ok {
		t.Error("late merge landed on a completed attempt")
	}
}

func TestSubmitSectionResponsesRejectsUnknownSection(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	attempt, _, _ := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)

	_, _, err := env.svc.SubmitSectionResponses(ctx, attempt.ID, "Nope", nil)
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("expected ErrSectionNotFound, got %v", err)
	}
}

func TestSubmitTestGradesOnce(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	attempt, _, _ := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)
	entries := []model.ResponseEntry{
		{QuestionID: env.bank[0].ID, SelectedOptionIndex: intPtr(1), TimeTakenSeconds: 30}, // correct
		{QuestionID: env.bank[1].ID, SelectedOptionIndex: intPtr(0), TimeTakenSeconds: 45}, // wrong
	}
	if _, _, err := env.svc.SubmitSectionResponses(ctx, attempt.ID, "A", entries); err != nil {
		t.Fatalf("responses failed: %v", err)
	}

	result, already, err := env.svc.SubmitTest(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if already {
		t.Error("first submit reported as already submitted")
	}
	if result.Score != 1.5 {
		t.Errorf("expected score 1.5, got %v", result.Score)
	}

	// Deadline cleared after completion.
	if env.hasDeadline(t, attempt.ID) {
		t.Error("deadline not cleared after submit")
	}

	// Second submit returns the stored result untouched.
	resubmit, already, err := env.svc.SubmitTest(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if !already {
		t.Error("second submit not reported as already submitted")
	}
	if resubmit.ID != result.ID || resubmit.Score != result.Score {
		t.Errorf("resubmit returned a different result: %+v vs %+v", resubmit, result)
	}

	// Answers after completion are rejected.
	_, _, err = env.svc.SubmitSectionResponses(ctx, attempt.ID, "A", entries)
	if !errors.Is(err, ErrAttemptNotActive) {
		t.Fatalf("expected ErrAttemptNotActive, got %v", err)
	}
}

func TestSubmitTestRecoversMissingResult(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	attempt, _, _ := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)
	entries := []model.ResponseEntry{
		{QuestionID: env.bank[0].ID, SelectedOptionIndex: intPtr(1), TimeTakenSeconds: 30},
	}
	if _, _, err := env.svc.SubmitSectionResponses(ctx, attempt.ID, "A", entries); err != nil {
		t.Fatalf("responses failed: %v", err)
	}

	// Simulate a submitter that won the status transition and then died
	// before persisting the result.
	won, err := env.attempts.CompleteIfStarted(ctx, attempt.ID, attempt.StartTime)
	if err != nil || !won {
		t.Fatalf("setup transition failed: won=%v err=%v", won, err)
	}

	result, already, err := env.svc.SubmitTest(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("recovery submit failed: %v", err)
	}
	if !already {
		t.Error("recovery submit should report already submitted")
	}
	if result.Score != 2 {
		t.Errorf("expected recovered score 2, got %v", result.Score)
	}
}

func TestSubmitTestUnknownAttempt(t *testing.T) {
	env := newAttemptTestEnv(t)

	_, _, err := env.svc.SubmitTest(context.Background(), uuid.New())
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound, got %v", err)
	}
}

func TestGetAttemptState(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	attempt, _, _ := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)
	entries := []model.ResponseEntry{
		{QuestionID: env.bank[0].ID, SelectedOptionIndex: intPtr(1), TimeTakenSeconds: 30},
	}
	if _, _, err := env.svc.SubmitSectionResponses(ctx, attempt.ID, "A", entries); err != nil {
		t.Fatalf("responses failed: %v", err)
	}

	state, err := env.svc.GetAttemptState(ctx, attempt.ID, 1)
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}
	if len(state.Responses) != 1 {
		t.Errorf("expected 1 response in state, got %d", len(state.Responses))
	}
	if state.RemainingSeconds <= 0 || state.RemainingSeconds > float64(env.test.TotalTimeMinutes)*60 {
		t.Errorf("implausible remaining time: %v", state.RemainingSeconds)
	}

	// Another user cannot see the attempt.
	if _, err := env.svc.GetAttemptState(ctx, attempt.ID, 99); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("expected ErrAttemptNotFound for foreign user, got %v", err)
	}
}

func TestGetAttemptStateRebuildsLostDeadline(t *testing.T) {
	env := newAttemptTestEnv(t)
	ctx := context.Background()

	attempt, _, _ := env.svc.StartOrResumeAttempt(ctx, 1, env.test.ID)

	// Redis lost the schedule (flush, restart).
	env.mr.FlushAll()

	state, err := env.svc.GetAttemptState(ctx, attempt.ID, 1)
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}
	if state.RemainingSeconds <= 0 {
		t.Errorf("expected positive remaining time after fallback, got %v", state.RemainingSeconds)
	}

	// The fallback path re-registers the deadline for the worker.
	if !env.hasDeadline(t, attempt.ID) {
		t.Error("deadline not re-registered")
	}
}
