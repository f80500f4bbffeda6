package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	PeriodStatusPending = "pending"
	PeriodStatusSettled = "settled"
)

// FloorYear is the earliest reporting year the program accepts.
const FloorYear = 2020

// PeriodReport is one realtor's closed-transaction count for a calendar month.
// The obligation is computed once at submission from the realtor's pledge rate
// at that moment and never recomputed.
type PeriodReport struct {
	ID              uuid.UUID
	RealtorID       uuid.UUID
	Month           int
	Year            int
	ClosedCount     int
	ObligationCents int64
	Status          string
	SubmittedAt     time.Time
}

// PeriodLabel renders a month/year pair as e.g. "March 2025".
func PeriodLabel(month, year int) string {
	return fmt.Sprintf("%s %d", time.Month(month).String(), year)
}

// Label renders the report's period for notifications and responses.
func (p *PeriodReport) Label() string {
	return PeriodLabel(p.Month, p.Year)
}
