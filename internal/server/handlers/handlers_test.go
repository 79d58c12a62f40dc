package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/aquafarm/internal/analytics/aggregate"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
	"github.com/mamadbah2/aquafarm/internal/service/alerting"
	"github.com/mamadbah2/aquafarm/internal/service/overview"
)

func init() { gin.SetMode(gin.TestMode) }

type stubOverviews struct {
	key    string
	filter models.Filter
	err    error
}

func (s *stubOverviews) ComputeLatest(_ context.Context, key string, f models.Filter) (models.Overview, error) {
	s.key, s.filter = key, f
	if s.err != nil {
		return models.Overview{}, s.err
	}
	return models.Overview{Filter: f, KPIs: []models.KPI{{Key: models.KPIEFCR, Value: models.Float(1.4), Badge: "-3.0%"}}}, nil
}

type stubScanner struct {
	err error
}

func (s stubScanner) Scan(_ context.Context, orgID string) (alerting.Result, error) {
	if s.err != nil {
		return alerting.Result{}, s.err
	}
	return alerting.Result{OrgID: orgID, Alerts: []models.Alert{{ID: "a1", SystemID: "tank-1"}}, Stored: 1}, nil
}

type stubHistory struct {
	since time.Time
}

func (s *stubHistory) ListAlerts(_ context.Context, _ string, since time.Time) ([]models.Alert, error) {
	s.since = since
	return nil, nil
}

type stubNotifier struct{ got models.OutboundMessageRequest }

func (s *stubNotifier) Send(_ context.Context, req models.OutboundMessageRequest) (string, error) {
	s.got = req
	return "wamid.9", nil
}

func serve(method, target string, body []byte, header http.Header, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, "/t", handler)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeOverview(t *testing.T, rec *httptest.ResponseRecorder) OverviewResponse {
	t.Helper()
	var resp OverviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestOverviewOK(t *testing.T) {
	svc := &stubOverviews{}
	h := NewOverviewHandler(svc, nil)

	header := http.Header{}
	header.Set(SessionHeader, "session-7")
	rec := serve(http.MethodGet, "/t?org=farm-1&unit=tank-1&period=week", nil, header, h.Get)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeOverview(t, rec)
	assert.Equal(t, StatusOK, resp.Status)
	require.NotNil(t, resp.Overview)
	assert.Equal(t, "efcr", resp.Overview.KPIs[0].Key)

	assert.Equal(t, "session-7", svc.key)
	assert.Equal(t, models.Filter{
		OrgID:   "farm-1",
		Stage:   models.FilterAll,
		BatchID: models.FilterAll,
		UnitID:  "tank-1",
		Period:  models.PeriodSpec{Name: "week"},
	}, svc.filter)
}

func TestOverviewInvalidCustomPeriod(t *testing.T) {
	h := NewOverviewHandler(&stubOverviews{}, nil)
	rec := serve(http.MethodGet, "/t?org=farm-1&period=custom&from=2024-13-01&to=2024-03-10", nil, nil, h.Get)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, StatusError, decodeOverview(t, rec).Status)
}

func TestOverviewErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   int
		status string
	}{
		{name: "indeterminate", err: overview.ErrIndeterminate, code: http.StatusOK, status: StatusIndeterminate},
		{name: "superseded", err: overview.ErrSuperseded, code: http.StatusConflict, status: StatusError},
		{name: "aggregation input", err: fmt.Errorf("current period: %w", aggregate.ErrAggregationInput), code: http.StatusBadGateway, status: StatusError},
		{name: "client went away", err: fmt.Errorf("current period: %w", context.Canceled), code: statusClientClosedRequest, status: StatusError},
		{name: "unexpected", err: errors.New("boom"), code: http.StatusInternalServerError, status: StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOverviewHandler(&stubOverviews{err: tt.err}, nil)
			rec := serve(http.MethodGet, "/t", nil, nil, h.Get)
			assert.Equal(t, tt.code, rec.Code)
			resp := decodeOverview(t, rec)
			assert.Equal(t, tt.status, resp.Status)
			assert.Nil(t, resp.Overview)
		})
	}
}

func TestAlertScan(t *testing.T) {
	h := NewAlertsHandler(stubScanner{}, nil, nil, nil)
	rec := serve(http.MethodPost, "/t", []byte(`{"org_id":"farm-1"}`), nil, h.Scan)

	require.Equal(t, http.StatusOK, rec.Code)
	var res alerting.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "farm-1", res.OrgID)
	assert.Len(t, res.Alerts, 1)

	rec = serve(http.MethodPost, "/t", []byte(`{}`), nil, h.Scan)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h = NewAlertsHandler(stubScanner{err: errors.New("db down")}, nil, nil, nil)
	rec = serve(http.MethodPost, "/t", []byte(`{"org_id":"farm-1"}`), nil, h.Scan)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAlertList(t *testing.T) {
	history := &stubHistory{}
	h := NewAlertsHandler(stubScanner{}, history, nil, nil)

	rec := serve(http.MethodGet, "/t?org=farm-1&since=2024-03-01", nil, nil, h.List)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"alerts":[]}`, rec.Body.String())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), history.since)

	rec = serve(http.MethodGet, "/t?org=farm-1&since=yesterday", nil, nil, h.List)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(http.MethodGet, "/t", nil, nil, NewAlertsHandler(stubScanner{}, nil, nil, nil).List)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSendMessage(t *testing.T) {
	notifier := &stubNotifier{}
	h := NewAlertsHandler(stubScanner{}, nil, notifier, nil)

	rec := serve(http.MethodPost, "/t", []byte(`{"to":"224600","message":"check aerators"}`), nil, h.SendMessage)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"message_id":"wamid.9"}`, rec.Body.String())
	assert.Equal(t, "check aerators", notifier.got.Message)

	rec = serve(http.MethodPost, "/t", []byte(`{"to":"224600"}`), nil, h.SendMessage)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
