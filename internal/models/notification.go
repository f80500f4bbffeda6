package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification type tags.
const (
	NotifWelcome             = "welcome"
	NotifRealtorRegistration = "new_realtor_registration"
	NotifAccountApproved     = "account_approved"
	NotifAccountDenied       = "account_denied"
	NotifPaymentRequest      = "payment_request"
	NotifThankYou            = "thank_you"
	NotifGrantApplication    = "grant_application"
	NotifReminder            = "transaction_reminder"
)

// Notification is a durable in-app record of an event raised to a realtor.
// Rows are immutable once written except for the read flag, which flips
// false→true exactly once.
type Notification struct {
	ID        uuid.UUID
	RealtorID uuid.UUID
	Type      string
	Subject   string
	Message   string
	ActionURL string
	IsRead    bool
	EmailSent bool
	SentAt    time.Time
	ReadAt    *time.Time
}
