package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/collector-tracker/module/core/domain"
	"github.com/nandanugg/collector-tracker/module/core/service"
)

type sessionManager interface {
	Start(ctx context.Context, userID string, mode domain.Mode) (domain.Session, error)
	Stop(userID string) error
	Active() []domain.Session
	Session(userID string) (*service.Session, error)
}

type samplePusher interface {
	Push(userID string, sample domain.RawSample) error
	Fail(userID string, cause error) error
}

type startRequest struct {
	Mode domain.Mode `json:"mode" binding:"required"`
}

// fixRequest mirrors what the hosted web content reports from the browser
// geolocation API. A non-empty Error reports a provider failure.
type fixRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
	Error     string   `json:"error"`
}

type sessionResponse struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Mode      domain.Mode `json:"mode"`
	StartedAt int64       `json:"started_at"`
}

type sessionDetailResponse struct {
	sessionResponse
	Points          int     `json:"points"`
	DistanceMeters  float64 `json:"distance_m"`
	ToleranceMeters float64 `json:"tolerance_m"`
}

type SessionHandler struct {
	manager sessionManager
	pusher  samplePusher
}

func NewSessionHandler(manager sessionManager, pusher samplePusher) *SessionHandler {
	return &SessionHandler{manager: manager, pusher: pusher}
}

func (h *SessionHandler) Register(r *gin.RouterGroup) {
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:user_id", h.GetSession)
	r.POST("/sessions/:user_id", h.StartSession)
	r.DELETE("/sessions/:user_id", h.StopSession)
	r.POST("/sessions/:user_id/fixes", h.PushFix)
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	active := h.manager.Active()
	results := make([]sessionResponse, len(active))
	for i, s := range active {
		results[i] = toSessionResponse(s)
	}
	c.JSON(http.StatusOK, results)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.manager.Session(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}

	stats := sess.Stats()
	c.JSON(http.StatusOK, sessionDetailResponse{
		sessionResponse: toSessionResponse(sess.Info()),
		Points:          stats.Points,
		DistanceMeters:  stats.DistanceMeters,
		ToleranceMeters: stats.ToleranceMeters,
	})
}

func (h *SessionHandler) StartSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	info, err := h.manager.Start(c.Request.Context(), c.Param("user_id"), req.Mode)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, toSessionResponse(info))
	case errors.Is(err, domain.ErrMissingIdentity), errors.Is(err, domain.ErrInvalidMode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAlreadyTracking):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrManagerClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start location provider"})
	}
}

func (h *SessionHandler) StopSession(c *gin.Context) {
	if err := h.manager.Stop(c.Param("user_id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionHandler) PushFix(c *gin.Context) {
	userID := c.Param("user_id")

	var req fixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var err error
	if req.Error != "" {
		err = h.pusher.Fail(userID, errors.New(req.Error))
	} else {
		if msg := validateFix(&req); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		sample := domain.RawSample{
			Lat:      *req.Latitude,
			Lon:      *req.Longitude,
			Accuracy: req.Accuracy,
		}
		if req.Timestamp > 0 {
			sample.Timestamp = time.UnixMilli(req.Timestamp)
		}
		err = h.pusher.Push(userID, sample)
	}
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active foreground session"})
		return
	}
	c.Status(http.StatusAccepted)
}

func validateFix(req *fixRequest) string {
	switch {
	case req.Latitude == nil:
		return "latitude: required"
	case req.Longitude == nil:
		return "longitude: required"
	case *req.Latitude < -90 || *req.Latitude > 90:
		return "latitude: must be between -90 and 90"
	case *req.Longitude < -180 || *req.Longitude > 180:
		return "longitude: must be between -180 and 180"
	case req.Accuracy != nil && *req.Accuracy < 0:
		return "accuracy: must not be negative"
	}
	return ""
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Mode:      s.Mode,
		StartedAt: s.StartedAt.Unix(),
	}
}
