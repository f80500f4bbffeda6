package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SettlementCompleted = "completed"
	SettlementPending   = "pending"
	SettlementFailed    = "failed"
)

// Settlement records that a period report's obligation was paid. At most one
// settlement exists per period (unique period_id), which makes recording
// idempotent against duplicate submissions.
type Settlement struct {
	ID          uuid.UUID
	RealtorID   uuid.UUID
	PeriodID    uuid.UUID
	AmountCents int64
	Method      string
	Reference   string
	Status      string
	Shared      bool
	PaidAt      time.Time
	CreatedAt   time.Time
}
