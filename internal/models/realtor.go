package models

import (
	"time"

	"github.com/google/uuid"
)

// Admission lifecycle of a realtor account. Accounts are created pending and
// move exactly once, to approved or denied, by an admin decision.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalDenied   = "denied"
)

type Realtor struct {
	ID              uuid.UUID
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	Phone           string
	Brokerage       string
	LicenseNumber   string
	PledgeRateCents int64
	HeadshotURL     string
	Bio             string
	IsActive        bool
	IsAdmin         bool
	IsApproved      bool
	ApprovalStatus  string
	ApprovedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullName joins first and last name for notification and email copy.
func (r *Realtor) FullName() string {
	return r.FirstName + " " + r.LastName
}
