package models

import (
	"strings"
	"time"
)

// FilterAll is the wildcard value for stage, batch and unit filters.
const FilterAll = "all"

// DateRange is an inclusive range of calendar days, both ends at UTC midnight.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the number of calendar days covered, both ends included.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	d := TruncateDay(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// PeriodSpec names a period, or carries explicit bounds when Name is custom.
type PeriodSpec struct {
	Name string    `json:"name"`
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Filter is the explicit selection threaded into every engine call.
type Filter struct {
	OrgID   string     `json:"org_id"`
	Stage   string     `json:"stage"`
	BatchID string     `json:"batch_id"`
	UnitID  string     `json:"unit_id"`
	Period  PeriodSpec `json:"period"`
}

// IsAll reports whether a filter value means "no restriction".
func IsAll(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, FilterAll)
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
