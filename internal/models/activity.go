package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity actions recorded in the global log
const (
	ActionSignup              = "signup"
	ActionDeposit             = "deposit"
	ActionWithdrawal          = "withdrawal"
	ActionReferralSignupBonus = "referral_signup_bonus"
)

// ActivityDetails is the free-form payload of a log entry. Fields are
// optional; which ones are set depends on the action.
type ActivityDetails struct {
	Amount         float64   `json:"amount,omitempty"`
	Fee            float64   `json:"fee,omitempty"`
	Method         string    `json:"method,omitempty"`
	Bank           string    `json:"bank,omitempty"`
	Account        string    `json:"account,omitempty"`
	Email          string    `json:"email,omitempty"`
	ReferredUser   string    `json:"referred_user,omitempty"`
	ReferredUserID uuid.UUID `json:"referred_user_id,omitempty"`
	DeviceID       string    `json:"device_id,omitempty"`
}

// ActivityEntry is an audit record of a user action. Entries are
// append-only; only the status moves, pending -> approved|declined,
// exactly once, and only for deposits.
type ActivityEntry struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Action     string          `json:"action"`
	Details    ActivityDetails `json:"details"`
	Date       time.Time       `json:"date"`
	Status     string          `json:"status"`
	ApprovedBy string          `json:"approved_by,omitempty"`
	ApprovedAt *time.Time      `json:"approved_at,omitempty"`
	DeclinedBy string          `json:"declined_by,omitempty"`
	DeclinedAt *time.Time      `json:"declined_at,omitempty"`
}
