package models

import "time"

// AlertKind distinguishes forecast-based alerts from deviation flags.
type AlertKind string

const (
	AlertPredictive AlertKind = "predictive"
	AlertAnomaly    AlertKind = "anomaly"
)

// Severity grades an alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is raised by the forecast/anomaly analyzer for a single unit and parameter.
type Alert struct {
	ID        string    `json:"id" bson:"_id"`
	Kind      AlertKind `json:"kind" bson:"kind"`
	OrgID     string    `json:"org_id" bson:"org_id"`
	SystemID  string    `json:"system_id" bson:"system_id"`
	Parameter string    `json:"parameter" bson:"parameter"`
	Severity  Severity  `json:"severity" bson:"severity"`
	Message   string    `json:"message" bson:"message"`
	Observed  float64   `json:"observed" bson:"observed"`
	Reference float64   `json:"reference" bson:"reference"`
	Threshold float64   `json:"threshold,omitempty" bson:"threshold,omitempty"`
	ZScore    float64   `json:"z_score,omitempty" bson:"z_score,omitempty"`
	Date      time.Time `json:"date" bson:"date"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// OutboundMessageRequest represents a message pushed to the notification sink.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}
