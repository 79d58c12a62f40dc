package models

import "time"

// Overview is the engine's output for one filter: KPIs with trends and the bounds actually used.
type Overview struct {
	RequestID   string    `json:"request_id" bson:"request_id"`
	Filter      Filter    `json:"filter" bson:"filter"`
	KPIs        []KPI     `json:"kpis" bson:"kpis"`
	DateBounds  DateRange `json:"date_bounds" bson:"date_bounds"`
	PriorBounds DateRange `json:"prior_bounds" bson:"prior_bounds"`
	UnitCount   int       `json:"unit_count" bson:"unit_count"`
	GeneratedAt time.Time `json:"generated_at" bson:"generated_at"`
}

// OverviewSnapshot is a stored copy of an overview, written by scheduled runs.
type OverviewSnapshot struct {
	OrgID     string    `bson:"org_id" json:"org_id"`
	Overview  Overview  `bson:"overview" json:"overview"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
