package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
	"github.com/mamadbah2/aquafarm/internal/service/alerting"
)

// AlertScanner runs an alert scan for an organization.
type AlertScanner interface {
	Scan(ctx context.Context, orgID string) (alerting.Result, error)
}

// AlertHistory lists stored alerts.
type AlertHistory interface {
	ListAlerts(ctx context.Context, orgID string, since time.Time) ([]models.Alert, error)
}

// Notifier delivers a text message.
type Notifier interface {
	Send(ctx context.Context, req models.OutboundMessageRequest) (string, error)
}

// AlertsHandler exposes alert scans, history and the notification sink.
type AlertsHandler struct {
	scanner  AlertScanner
	history  AlertHistory
	notifier Notifier
	logger   *zap.Logger
}

// NewAlertsHandler constructs the HTTP handler adapter. history and notifier may be nil.
func NewAlertsHandler(scanner AlertScanner, history AlertHistory, notifier Notifier, logger *zap.Logger) *AlertsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertsHandler{scanner: scanner, history: history, notifier: notifier, logger: logger}
}

type scanRequest struct {
	OrgID string `json:"org_id" binding:"required"`
}

// Scan handles POST /api/v1/alerts/scan.
func (h *AlertsHandler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "org_id is required"})
		return
	}

	res, err := h.scanner.Scan(c.Request.Context(), req.OrgID)
	if err != nil {
		h.logger.Error("alert scan failed", zap.String("org_id", req.OrgID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "alert scan failed"})
		return
	}

	c.JSON(http.StatusOK, res)
}

// List handles GET /api/v1/alerts?org=...&since=YYYY-MM-DD.
func (h *AlertsHandler) List(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert history is not configured"})
		return
	}
	org := c.Query("org")
	if org == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "org is required"})
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -7)
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be YYYY-MM-DD"})
			return
		}
		since = parsed
	}

	alerts, err := h.history.ListAlerts(c.Request.Context(), org, since)
	if err != nil {
		h.logger.Error("list alerts failed", zap.String("org_id", org), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "alert history unavailable"})
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

// SendMessage pushes a manual message through the notification sink.
func (h *AlertsHandler) SendMessage(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifications are not configured"})
		return
	}

	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid outbound payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := h.notifier.Send(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message_id": id})
}
