package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/collector-tracker/module/core/domain"
)

type historyService interface {
	GetDay(ctx context.Context, query *domain.DayQuery) (*domain.DayHistory, error)
}

type HistoryHandler struct {
	historySvc historyService
	loc        *time.Location
}

// NewHistoryHandler parses dates in loc, the zone flushes are labelled in.
func NewHistoryHandler(historySvc historyService, loc *time.Location) *HistoryHandler {
	if loc == nil {
		loc = time.Local
	}
	return &HistoryHandler{historySvc: historySvc, loc: loc}
}

func (h *HistoryHandler) Register(r *gin.RouterGroup) {
	r.GET("/collectors/:user_id/days/:date", h.GetDay)
}

func (h *HistoryHandler) GetDay(c *gin.Context) {
	date, err := time.ParseInLocation(domain.DateLayout, c.Param("date"), h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected yyyy-mm-dd"})
		return
	}

	day, err := h.historySvc.GetDay(c.Request.Context(), &domain.DayQuery{
		UserID: c.Param("user_id"),
		Date:   date,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, day)
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no history for day"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
	}
}
