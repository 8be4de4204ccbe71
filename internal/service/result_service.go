package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/Priyanshu1283/quizzer-backend/internal/repository"
)

var ErrResultNotFound = errors.New("result not found")

const (
	defaultLeaderboardSize = 50
	maxLeaderboardSize     = 100
)

// ResultService serves graded outcomes: per-user results, per-test
// leaderboards, and the admin overview.
type ResultService struct {
	resultRepo  *repository.ResultRepository
	attemptRepo *repository.AttemptRepository
}

// NewResultService creates a new ResultService.
func NewResultService(resultRepo *repository.ResultRepository, attemptRepo *repository.AttemptRepository) *ResultService {
	return &ResultService{resultRepo: resultRepo, attemptRepo: attemptRepo}
}

// GetResultForUser returns the attempt's result if it belongs to the
// user. Admins pass isAdmin to read any result.
func (s *ResultService) GetResultForUser(ctx context.Context, attemptID uuid.UUID, userID int, isAdmin bool) (*model.Result, error) {
	res, err := s.resultRepo.GetByAttempt(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	if !isAdmin && res.UserID != userID {
		return nil, ErrResultNotFound
	}
	return res, nil
}

// Leaderboard returns a test's ranking, highest score first with earlier
// completion breaking ties.
func (s *ResultService) Leaderboard(ctx context.Context, testID uuid.UUID, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}
	entries, err := s.resultRepo.Leaderboard(ctx, testID, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}

// Overview is the admin dashboard summary.
type Overview struct {
	TotalAttempts int64                     `json:"total_attempts"`
	UniqueUsers   int64                     `json:"unique_users"`
	TopPerformers []repository.TopPerformer `json:"top_performers"`
}

// GetOverview aggregates platform-wide attempt stats with the best
// scores across all tests.
func (s *ResultService) GetOverview(ctx context.Context, topN int) (*Overview, error) {
	total, unique, err := s.attemptRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("attempt stats: %w", err)
	}
	top, err := s.resultRepo.TopPerformers(ctx, topN)
	if err != nil {
		return nil, fmt.Errorf("top performers: %w", err)
	}
	return &Overview{
		TotalAttempts: total,
		UniqueUsers:   unique,
		TopPerformers: top,
	}, nil
}
