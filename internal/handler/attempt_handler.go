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

// AttemptHandler handles the attempt lifecycle endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
	resultService  *service.ResultService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, resultService *service.ResultService) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		resultService:  resultService,
	}
}

// StartAttempt godoc
// POST /api/v1/attempts/start
// Starts a new attempt on the test, or resumes the caller's active one.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, resumed, err := h.attemptService.StartOrResumeAttempt(c.Request.Context(), claims.UserID, req.MockTestID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrTestNotAvailable):
			response.Fail(c, http.StatusForbidden, response.ErrTestNotAvailable)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{
		"attempt": attempt,
		"resumed": resumed,
	})
}

// SubmitSection godoc
// POST /api/v1/attempts/:attempt_id/sections/:section/responses
// Merges a batch of answers for one section. Invalid entries are
// dropped individually; the rest of the batch still saves.
func (h *AttemptHandler) SubmitSection(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	section := c.Param("section")

	var req model.SubmitSectionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if !h.ownsAttempt(c, attemptID) {
		return
	}

	saved, dropped, err := h.attemptService.SubmitSectionResponses(c.Request.Context(), attemptID, section, req.Responses)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrAttemptNotActive):
			response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
		case errors.Is(err, service.ErrSectionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSectionNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"saved":   saved,
		"dropped": dropped,
	})
}

// SubmitTest godoc
// POST /api/v1/attempts/:attempt_id/submit
// Finalizes the attempt and returns its graded result. Safe to retry.
func (h *AttemptHandler) SubmitTest(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if !h.ownsAttempt(c, attemptID) {
		return
	}

	result, already, err := h.attemptService.SubmitTest(c.Request.Context(), attemptID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrAttemptNotActive):
			response.Fail(c, http.StatusConflict, response.ErrAttemptNotActive)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"result":            result,
		"already_submitted": already,
	})
}

// GetState godoc
// GET /api/v1/attempts/:attempt_id/state
// Returns saved responses and remaining time, for page reloads.
func (h *AttemptHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.attemptService.GetAttemptState(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// GetResult godoc
// GET /api/v1/attempts/:attempt_id/result
// Returns the graded result of the caller's attempt.
func (h *AttemptHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	isAdmin := claims.Role == model.RoleAdmin
	result, err := h.resultService.GetResultForUser(c.Request.Context(), attemptID, claims.UserID, isAdmin)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrResultNotReady)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// ownsAttempt rejects requests touching an attempt the caller does not
// own. It writes the error response itself and reports whether the
// handler may continue.
func (h *AttemptHandler) ownsAttempt(c *gin.Context, attemptID uuid.UUID) bool {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return false
	}

	if _, err := h.attemptService.GetOwnedAttempt(c.Request.Context(), attemptID, claims.UserID); err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return false
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return false
	}
	return true
}
