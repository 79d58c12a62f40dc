package forecaster

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/aquafarm/internal/config"
	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

// ErrNotConfigured is returned when no forecast service base URL is set.
var ErrNotConfigured = errors.New("forecast service is not configured")

const dateLayout = "2006-01-02"

// Client fetches expected feeding series from the forecast service.
type Client struct {
	httpClient *resty.Client
}

// NewClient builds a forecaster client. A client with an empty base URL
// answers every call with ErrNotConfigured.
func NewClient(cfg config.ForecasterConfig) *Client {
	if cfg.BaseURL == "" {
		return &Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: resty.New().
			SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
			SetHeader("Accept", "application/json").
			SetTimeout(timeout),
	}
}

type seriesResponse struct {
	Points []struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	} `json:"points"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ExpectedFeeding returns the forecast daily feeding amount for a unit.
func (c *Client) ExpectedFeeding(ctx context.Context, orgID, systemID string, dr models.DateRange) ([]models.MetricPoint, error) {
	if c == nil || c.httpClient == nil {
		return nil, ErrNotConfigured
	}

	result := new(seriesResponse)
	apiErr := new(errorResponse)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"org":    orgID,
			"system": systemID,
			"from":   dr.Start.Format(dateLayout),
			"to":     dr.End.Format(dateLayout),
		}).
		SetResult(result).
		SetError(apiErr).
		Get("/forecast/feeding")
	if err != nil {
		return nil, fmt.Errorf("request feeding forecast: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("forecast service error: status=%d, message=%s", resp.StatusCode(), apiErr.Error)
	}

	points := make([]models.MetricPoint, 0, len(result.Points))
	for _, p := range result.Points {
		day, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			return nil, fmt.Errorf("parse forecast date %q: %w", p.Date, err)
		}
		points = append(points, models.MetricPoint{Date: day, Value: p.Value})
	}
	return points, nil
}
