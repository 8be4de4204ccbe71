package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Priyanshu1283/quizzer-backend/internal/response"
	"github.com/Priyanshu1283/quizzer-backend/internal/service"
)

// AdminHandler handles the admin overview endpoints.
type AdminHandler struct {
	resultService *service.ResultService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(resultService *service.ResultService) *AdminHandler {
	return &AdminHandler{resultService: resultService}
}

// GetOverview godoc
// GET /api/v1/admin/overview?top=10
// Returns platform-wide attempt stats and the best scores.
func (h *AdminHandler) GetOverview(c *gin.Context) {
	topN, _ := strconv.Atoi(c.DefaultQuery("top", "10"))
	if topN <= 0 || topN > 100 {
		topN = 10
	}

	overview, err := h.resultService.GetOverview(c.Request.Context(), topN)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"overview": overview})
}
