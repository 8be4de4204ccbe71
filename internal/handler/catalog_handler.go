package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Priyanshu1283/quizzer-backend/internal/middleware"
	"github.com/Priyanshu1283/quizzer-backend/internal/response"
	"github.com/Priyanshu1283/quizzer-backend/internal/service"
)

// CatalogHandler handles the browse endpoints: series, tests, papers,
// and leaderboards.
type CatalogHandler struct {
	catalogService *service.CatalogService
	attemptService *service.AttemptService
	resultService  *service.ResultService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(
	catalogService *service.CatalogService,
	attemptService *service.AttemptService,
	resultService *service.ResultService,
) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		attemptService: attemptService,
		resultService:  resultService,
	}
}

// ListSeries godoc
// GET /api/v1/series
// Returns all active test series.
func (h *CatalogHandler) ListSeries(c *gin.Context) {
	series, err := h.catalogService.ListSeries(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"series": series})
}

// ListTests godoc
// GET /api/v1/series/:series_id/tests
// Returns the active tests of a series.
func (h *CatalogHandler) ListTests(c *gin.Context) {
	seriesID, err := uuid.Parse(c.Param("series_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	tests, err := h.catalogService.ListTests(c.Request.Context(), seriesID)
	if err != nil {
		if errors.Is(err, service.ErrSeriesNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// GetTestDetails godoc
// GET /api/v1/tests/:test_id
// Returns a test with per-section question counts.
func (h *CatalogHandler) GetTestDetails(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	test, sections, err := h.catalogService.GetTestDetails(c.Request.Context(), testID)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"test":     test,
		"sections": sections,
	})
}

// GetTestPaper godoc
// GET /api/v1/tests/:test_id/paper
// Returns the answer-stripped paper. Only takers holding an active
// attempt on the test may download it.
func (h *CatalogHandler) GetTestPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.attemptService.VerifyActiveAttempt(c.Request.Context(), claims.UserID, testID); err != nil {
		if errors.Is(err, service.ErrAttemptNotActive) {
			response.Fail(c, http.StatusForbidden, response.ErrAttemptNotActive)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	paper, err := h.catalogService.GetTestPaper(c.Request.Context(), testID)
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

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// GetLeaderboard godoc
// GET /api/v1/tests/:test_id/leaderboard?limit=50
// Returns the test's ranking.
func (h *CatalogHandler) GetLeaderboard(c *gin.Context) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	entries, err := h.resultService.Leaderboard(c.Request.Context(), testID, limit)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"leaderboard": entries})
}
