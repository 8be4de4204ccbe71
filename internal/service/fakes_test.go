package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Priyanshu1283/quizzer-backend/internal/model"
)

// In-memory stores mirroring the repository contracts, including the
// pgx.ErrNoRows sentinel and the active-attempt uniqueness the partial
// index provides in PostgreSQL.

type fakeAttemptStore struct {
	mu            sync.Mutex
	attempts      map[uuid.UUID]*model.Attempt
	responses     map[uuid.UUID]map[uuid.UUID]model.Response
	hideActiveIdx int // countdown of GetActiveByUserAndTest calls returning no rows
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		attempts:  make(map[uuid.UUID]*model.Attempt),
		responses: make(map[uuid.UUID]map[uuid.UUID]model.Response),
	}
}

func (s *fakeAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAttemptStore) GetActiveByUserAndTest(ctx context.Context, userID int, testID uuid.UUID) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hideActiveIdx > 0 {
		s.hideActiveIdx--
		return nil, pgx.ErrNoRows
	}
	for _, a := range s.attempts {
		if a.UserID == userID && a.MockTestID == testID && a.Status == model.AttemptStatusStarted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeAttemptStore) CreateActive(ctx context.Context, a *model.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.attempts {
		if existing.UserID == a.UserID && existing.MockTestID == a.MockTestID &&
			existing.Status == model.AttemptStatusStarted {
			// The partial unique index turns the insert into a no-op.
			return pgx.ErrNoRows
		}
	}
	a.ID = uuid.New()
	a.Status = model.AttemptStatusStarted
	a.StartTime = time.Now()
	cp := *a
	s.attempts[a.ID] = &cp
	return nil
}

func (s *fakeAttemptStore) MergeResponses(ctx context.Context, attemptID uuid.UUID, responses []model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The upsert is status-gated in SQL; writes against a finalized
	// attempt are silently discarded.
	a, ok := s.attempts[attemptID]
	if !ok || a.Status != model.AttemptStatusStarted {
		return nil
	}
	m, ok := s.responses[attemptID]
	if !ok {
		m = make(map[uuid.UUID]model.Response)
		s.responses[attemptID] = m
	}
	for _, r := range responses {
		m[r.QuestionID] = r
	}
	return nil
}

func (s *fakeAttemptStore) ListResponses(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]model.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]model.Response, len(s.responses[attemptID]))
	for k, v := range s.responses[attemptID] {
		out[k] = v
	}
	return out, nil
}

func (s *fakeAttemptStore) CompleteIfStarted(ctx context.Context, attemptID uuid.UUID, endTime time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok || a.Status != model.AttemptStatusStarted {
		return false, nil
	}
	a.Status = model.AttemptStatusCompleted
	a.EndTime = &endTime
	return true, nil
}

type fakeTestStore struct {
	mu    sync.Mutex
	tests map[uuid.UUID]*model.MockTest
}

func newFakeTestStore() *fakeTestStore {
	return &fakeTestStore{tests: make(map[uuid.UUID]*model.MockTest)}
}

func (s *fakeTestStore) GetByID(ctx context.Context, id uuid.UUID) (*model.MockTest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTestStore) ListActiveBySeries(ctx context.Context, seriesID uuid.UUID) ([]model.MockTest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.MockTest
	for _, t := range s.tests {
		if t.TestSeriesID == seriesID && t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakeQuestionStore struct {
	mu        sync.Mutex
	questions map[uuid.UUID][]model.Question
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{questions: make(map[uuid.UUID][]model.Question)}
}

func (s *fakeQuestionStore) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Question(nil), s.questions[testID]...), nil
}

func (s *fakeQuestionStore) CountBySection(ctx context.Context, testID uuid.UUID) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, q := range s.questions[testID] {
		counts[q.SectionName]++
	}
	return counts, nil
}

type fakeResultStore struct {
	mu      sync.Mutex
	results map[uuid.UUID]*model.Result
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{results: make(map[uuid.UUID]*model.Result)}
}

func (s *fakeResultStore) Create(ctx context.Context, res *model.Result) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[res.AttemptID]; exists {
		return false, nil
	}
	res.ID = uuid.New()
	res.CreatedAt = time.Now()
	cp := *res
	s.results[res.AttemptID] = &cp
	return true, nil
}

func (s *fakeResultStore) GetByAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[attemptID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}
