package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	GrantTypeSelf        = "self"
	GrantTypeSomeoneElse = "someone_else"
)

const (
	GrantStatusPending     = "pending"
	GrantStatusUnderReview = "under_review"
	GrantStatusApproved    = "approved"
	GrantStatusDenied      = "denied"
)

// GrantApplication is a homeownership grant request submitted through the
// public form, either by the applicant or on someone else's behalf.
type GrantApplication struct {
	ID                    uuid.UUID
	ApplicationType       string
	ApplicantFirstName    string
	ApplicantLastName     string
	ApplicantAddress      string
	ApplicantEmail        string
	ApplicantPhone        string
	ApplicantBirthday     time.Time
	ApplicantStory        string
	SubmitterFirstName    string
	SubmitterLastName     string
	SubmitterAddress      string
	SubmitterEmail        string
	SubmitterPhone        string
	SubmitterRelationship string
	Status                string
	AdminNotes            string
	ReviewedBy            *uuid.UUID
	ReviewedAt            *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
