package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/aquafarm/internal/analytics/aggregate"
	"github.com/mamadbah2/aquafarm/internal/analytics/period"
	"github.com/mamadbah2/aquafarm/internal/analytics/scope"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
	"github.com/mamadbah2/aquafarm/internal/service/overview"
)

// Overview result statuses.
const (
	StatusOK            = "ok"
	StatusError         = "error"
	StatusIndeterminate = "indeterminate"
)

// statusClientClosedRequest is reported when the caller went away before the overview was ready.
const statusClientClosedRequest = 499

// SessionHeader identifies a dashboard session. Overlapping requests of one
// session supersede each other.
const SessionHeader = "X-Session-ID"

// OverviewService computes dashboard overviews.
type OverviewService interface {
	ComputeLatest(ctx context.Context, key string, filter models.Filter) (models.Overview, error)
}

// OverviewResponse is the discriminated result of an overview request.
type OverviewResponse struct {
	Status   string           `json:"status"`
	Overview *models.Overview `json:"overview,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// OverviewHandler serves KPI overviews.
type OverviewHandler struct {
	svc    OverviewService
	logger *zap.Logger
}

// NewOverviewHandler constructs the HTTP handler adapter.
func NewOverviewHandler(svc OverviewService, logger *zap.Logger) *OverviewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverviewHandler{svc: svc, logger: logger}
}

// Get handles GET /api/v1/overview.
func (h *OverviewHandler) Get(c *gin.Context) {
	spec, err := period.ParseSpec(c.Query("period"), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, OverviewResponse{Status: StatusError, Error: err.Error()})
		return
	}

	filter := models.Filter{
		OrgID:   c.Query("org"),
		Stage:   c.DefaultQuery("stage", models.FilterAll),
		BatchID: c.DefaultQuery("batch", models.FilterAll),
		UnitID:  c.DefaultQuery("unit", models.FilterAll),
		Period:  spec,
	}

	key := c.GetHeader(SessionHeader)
	if key == "" {
		key = c.ClientIP() + "|" + filter.OrgID
	}

	ov, err := h.svc.ComputeLatest(c.Request.Context(), key, filter)
	if err != nil {
		status, body := h.classify(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, OverviewResponse{Status: StatusOK, Overview: &ov})
}

func (h *OverviewHandler) classify(err error) (int, OverviewResponse) {
	switch {
	case errors.Is(err, context.Canceled):
		h.logger.Debug("overview request abandoned by client", zap.Error(err))
		return statusClientClosedRequest, OverviewResponse{Status: StatusError, Error: "request cancelled"}
	case errors.Is(err, overview.ErrIndeterminate):
		return http.StatusOK, OverviewResponse{Status: StatusIndeterminate, Error: err.Error()}
	case errors.Is(err, period.ErrInvalidPeriod):
		return http.StatusBadRequest, OverviewResponse{Status: StatusError, Error: err.Error()}
	case errors.Is(err, overview.ErrSuperseded):
		return http.StatusConflict, OverviewResponse{Status: StatusError, Error: err.Error()}
	case errors.Is(err, scope.ErrScopeLookup), errors.Is(err, aggregate.ErrAggregationInput):
		h.logger.Warn("overview data unavailable", zap.Error(err))
		return http.StatusBadGateway, OverviewResponse{Status: StatusError, Error: "farm data unavailable"}
	default:
		h.logger.Error("overview failed", zap.Error(err))
		return http.StatusInternalServerError, OverviewResponse{Status: StatusError, Error: "overview failed"}
	}
}
