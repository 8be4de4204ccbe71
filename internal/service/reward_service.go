package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Priyanshu1283/quizzer-backend/internal/model"
)

var (
	ErrRewardNotFound   = errors.New("reward not found")
	ErrRewardNotOwned   = errors.New("reward belongs to another user")
	ErrRewardNotInState = errors.New("reward is not in the required state")
)

// defaultPrizeRanks is how many leaderboard ranks get a physical prize
// when the admin does not say otherwise; everyone else on the board gets
// a certificate.
const defaultPrizeRanks = 3

// RewardStore is the persistence surface for rewards. Implemented by
// repository.RewardRepository.
type RewardStore interface {
	Create(ctx context.Context, w *model.Reward) (inserted bool, err error)
	ListByUser(ctx context.Context, userID int) ([]model.Reward, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Reward, error)
	ClaimIfEligible(ctx context.Context, id uuid.UUID, userID int, at time.Time) (bool, error)
	MarkDistributed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// LeaderboardStore provides the ranking rewards are issued from.
// Implemented by repository.ResultRepository.
type LeaderboardStore interface {
	Leaderboard(ctx context.Context, testID uuid.UUID, limit int) ([]model.LeaderboardEntry, error)
}

// RewardService issues and tracks top-performer rewards for a test.
type RewardService struct {
	rewards RewardStore
	board   LeaderboardStore
	log     zerolog.Logger
}

// NewRewardService creates a new RewardService.
func NewRewardService(rewards RewardStore, board LeaderboardStore, log zerolog.Logger) *RewardService {
	return &RewardService{
		rewards: rewards,
		board:   board,
		log:     log.With().Str("component", "reward_service").Logger(),
	}
}

// GenerateRewards walks the test's leaderboard and issues a reward per
// ranked user: a prize for the top prizeCount ranks, a certificate for
// the rest of the board. Re-running is safe, users already holding a
// reward for the test are skipped.
func (s *RewardService) GenerateRewards(ctx context.Context, testID uuid.UUID, prizeCount int) (int, error) {
	if prizeCount <= 0 {
		prizeCount = defaultPrizeRanks
	}

	entries, err := s.board.Leaderboard(ctx, testID, maxLeaderboardSize)
	if err != nil {
		return 0, fmt.Errorf("leaderboard: %w", err)
	}

	issued := 0
	for _, e := range entries {
		rewardType := model.RewardTypeCertificate
		if e.Rank <= prizeCount {
			rewardType = model.RewardTypePrize
		}
		inserted, err := s.rewards.Create(ctx, &model.Reward{
			UserID:     e.UserID,
			MockTestID: testID,
			Rank:       e.Rank,
			RewardType: rewardType,
			Status:     model.RewardStatusEligible,
		})
		if err != nil {
			return issued, fmt.Errorf("create reward: %w", err)
		}
		if inserted {
			issued++
		}
	}

	s.log.Info().
		Str("test_id", testID.String()).
		Int("issued", issued).
		Int("ranked", len(entries)).
		Msg("Rewards generated")
	return issued, nil
}

// ListMyRewards returns all rewards held by the user, newest first.
func (s *RewardService) ListMyRewards(ctx context.Context, userID int) ([]model.Reward, error) {
	return s.rewards.ListByUser(ctx, userID)
}

// ClaimReward moves the user's reward from eligible to claimed. Only the
// owner can claim, and only once.
func (s *RewardService) ClaimReward(ctx context.Context, rewardID uuid.UUID, userID int) (*model.Reward, error) {
	reward, err := s.getReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward.UserID != userID {
		return nil, ErrRewardNotOwned
	}

	claimed, err := s.rewards.ClaimIfEligible(ctx, rewardID, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("claim reward: %w", err)
	}
	if !claimed {
		return nil, ErrRewardNotInState
	}
	return s.getReward(ctx, rewardID)
}

// DistributeReward marks a claimed reward as handed out. Admin only.
func (s *RewardService) DistributeReward(ctx context.Context, rewardID uuid.UUID) (*model.Reward, error) {
	if _, err := s.getReward(ctx, rewardID); err != nil {
		return nil, err
	}

	done, err := s.rewards.MarkDistributed(ctx, rewardID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("distribute reward: %w", err)
	}
	if !done {
		return nil, ErrRewardNotInState
	}
	return s.getReward(ctx, rewardID)
}

func (s *RewardService) getReward(ctx context.Context, rewardID uuid.UUID) (*model.Reward, error) {
	reward, err := s.rewards.GetByID(ctx, rewardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return reward, nil
}
