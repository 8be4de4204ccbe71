package model

import (
	"time"

	"github.com/google/uuid"
)

// RewardType distinguishes physical prizes from certificates.
type RewardType string

const (
	RewardTypePrize       RewardType = "Prize"
	RewardTypeCertificate RewardType = "Certificate"
)

// RewardStatus tracks the reward fulfilment flow.
type RewardStatus string

const (
	RewardStatusEligible    RewardStatus = "eligible"
	RewardStatusClaimed     RewardStatus = "claimed"
	RewardStatusDistributed RewardStatus = "distributed"
)

// Reward is issued to a top performer of one mock test. At most one reward
// per (user, test).
type Reward struct {
	ID            uuid.UUID    `json:"id"`
	UserID        int          `json:"user_id"`
	MockTestID    uuid.UUID    `json:"mock_test_id"`
	Rank          int          `json:"rank"`
	RewardType    RewardType   `json:"reward_type"`
	Status        RewardStatus `json:"status"`
	ClaimedAt     *time.Time   `json:"claimed_at,omitempty"`
	DistributedAt *time.Time   `json:"distributed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// GenerateRewardsRequest is the admin payload for issuing rewards.
type GenerateRewardsRequest struct {
	PrizeCount int `json:"prize_count" binding:"omitempty,min=1,max=100"`
}
