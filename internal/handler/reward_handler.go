package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Priyanshu1283/quizzer-backend/internal/middleware"
	"github.com/Priyanshu1283/quizzer-backend/internal/model"
	"github.com/Priyanshu1283/quizzer-backend/internal/response"
	"github.com/Priyanshu1283/quizzer-backend/internal/service"
	"github.com/Priyanshu1283/quizzer-backend/internal/validator"
)

// RewardHandler handles reward endpoints for both takers and admins.
type RewardHandler struct {
	rewardService *service.RewardService
}

// NewRewardHandler creates a new RewardHandler.
func NewRewardHandler(rewardService *service.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rewardService}
}

// ListMine godoc
// GET /api/v1/rewards/me
// Returns the caller's rewards, newest first.
func (h *RewardHandler) ListMine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	rewards, err := h.rewardService.ListMyRewards(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rewards": rewards})
}

// Claim godoc
// POST /api/v1/rewards/:reward_id/claim
// Moves the caller's reward from eligible to claimed.
func (h *RewardHandler) Claim(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	rewardID, err := uuid.Parse(c.Param("reward_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reward, err := h.rewardService.ClaimReward(c.Request.Context(), rewardID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrRewardNotOwned):
			response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		case errors.Is(err, service.ErrRewardNotInState):
			response.Fail(c, http.StatusConflict, response.ErrRewardNotClaimable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reward": reward})
}

// Generate godoc
// POST /api/v1/admin/tests/:test_id/rewards/generate
// Issues rewards from the test's leaderboard. Idempotent per user.
func (h *RewardHandler) Generate(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.GenerateRewardsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	issued, err := h.rewardService.GenerateRewards(c.Request.Context(), testID, req.PrizeCount)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"issued": issued})
}

// Distribute godoc
// POST /api/v1/admin/rewards/:reward_id/distribute
// Marks a claimed reward as physically handed out.
func (h *RewardHandler) Distribute(c *gin.Context) {
	rewardID, err := uuid.Parse(c.Param("reward_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reward, err := h.rewardService.DistributeReward(c.Request.Context(), rewardID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRewardNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrRewardNotInState):
			response.Fail(c, http.StatusConflict, response.ErrRewardNotClaimable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reward": reward})
}
