package service

import (
	"context"
	"encoding/json"
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

var ErrSeriesNotFound = errors.New("test series not found")

// paperCacheTTL bounds how stale a cached paper can get if the question
// bank is reseeded underneath it.
const paperCacheTTL = time.Hour

// TestSeriesStore provides series lookups. Implemented by
// repository.TestSeriesRepository.
type TestSeriesStore interface {
	ListActive(ctx context.Context) ([]model.TestSeries, error)
	GetActive(ctx context.Context, id uuid.UUID) (*model.TestSeries, error)
}

// CatalogTestStore provides test listings. Implemented by
// repository.MockTestRepository.
type CatalogTestStore interface {
	ListActiveBySeries(ctx context.Context, seriesID uuid.UUID) ([]model.MockTest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.MockTest, error)
}

// QuestionBankStore provides the question bank views the catalog needs.
// Implemented by repository.QuestionRepository.
type QuestionBankStore interface {
	ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error)
	CountBySection(ctx context.Context, testID uuid.UUID) (map[string]int, error)
}

// CatalogService serves the browse side: series, tests, test details,
// and the answer-stripped paper handed to takers.
type CatalogService struct {
	series    TestSeriesStore
	tests     CatalogTestStore
	questions QuestionBankStore
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	series TestSeriesStore,
	tests CatalogTestStore,
	questions QuestionBankStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *CatalogService {
	return &CatalogService{
		series:    series,
		tests:     tests,
		questions: questions,
		rdb:       rdb,
		log:       log.With().Str("component", "catalog_service").Logger(),
	}
}

// ListSeries returns all active test series.
func (s *CatalogService) ListSeries(ctx context.Context) ([]model.TestSeries, error) {
	return s.series.ListActive(ctx)
}

// ListTests returns the active tests of a series.
func (s *CatalogService) ListTests(ctx context.Context, seriesID uuid.UUID) ([]model.MockTest, error) {
	if _, err := s.series.GetActive(ctx, seriesID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSeriesNotFound
		}
		return nil, fmt.Errorf("get series: %w", err)
	}
	return s.tests.ListActiveBySeries(ctx, seriesID)
}

// GetTestDetails returns a test with its sections annotated by how many
// questions the bank actually holds for each.
func (s *CatalogService) GetTestDetails(ctx context.Context, testID uuid.UUID) (*model.MockTest, []model.SectionWithCount, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrTestNotFound
		}
		return nil, nil, fmt.Errorf("get mock test: %w", err)
	}

	counts, err := s.questions.CountBySection(ctx, testID)
	if err != nil {
		return nil, nil, fmt.Errorf("count questions: %w", err)
	}

	sections := make([]model.SectionWithCount, 0, len(test.Sections))
	for _, sec := range test.Sections {
		sections = append(sections, model.SectionWithCount{
			Section:        sec,
			AddedQuestions: counts[sec.Name],
		})
	}
	return test, sections, nil
}

// GetTestPaper returns the taker-facing paper: questions without correct
// answers or marking data. Papers are cached in Redis; a miss rebuilds
// from the database and repopulates the cache.
func (s *CatalogService) GetTestPaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	cacheKey := config.CacheKey.TestPaperKey(testID.String())

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var paper model.TestPaper
			if err := json.Unmarshal([]byte(cached), &paper); err == nil {
				return &paper, nil
			}
			s.log.Warn().Str("test_id", testID.String()).Msg("Corrupt cached paper, rebuilding")
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Msg("Paper cache read failed, falling back to database")
		}
	}

	paper, err := s.buildPaper(ctx, testID)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		payload, err := json.Marshal(paper)
		if err == nil {
			if err := s.rdb.Set(ctx, cacheKey, payload, paperCacheTTL).Err(); err != nil {
				s.log.Warn().Err(err).Msg("Failed to cache test paper")
			}
		}
	}
	return paper, nil
}

func (s *CatalogService) buildPaper(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	test, err := s.tests.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("get mock test: %w", err)
	}
	if !test.IsActive {
		return nil, ErrTestNotAvailable
	}

	bank, err := s.questions.ListByTest(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	questions := make([]model.QuestionForTaker, 0, len(bank))
	for _, q := range bank {
		questions = append(questions, q.ForTaker())
	}

	return &model.TestPaper{
		TestID:           test.ID,
		Title:            test.Title,
		TotalTimeMinutes: test.TotalTimeMinutes,
		Sections:         test.Sections,
		Questions:        questions,
	}, nil
}
