package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType identifies the kind of balance-affecting record
type TransactionType string

const (
	TransactionWelcomeBonus        TransactionType = "welcome_bonus"
	TransactionDeposit             TransactionType = "deposit"
	TransactionTaskPurchase        TransactionType = "task_purchase"
	TransactionDailyProfit         TransactionType = "daily_profit"
	TransactionWithdrawal          TransactionType = "withdrawal"
	TransactionReferralBonus       TransactionType = "referral_bonus"
	TransactionReferralSignupBonus TransactionType = "referral_signup_bonus"
)

// Status values shared by deposit transactions and activity log entries
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusDeclined  = "declined"
	StatusCompleted = "completed"
)

// Transaction is an append-only ledger record. Only the Status field is
// ever mutated after creation, and only for deposits.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	Type           TransactionType `json:"type"`
	Amount         float64         `json:"amount"`
	Fee            float64         `json:"fee,omitempty"`
	Date           time.Time       `json:"date"`
	Description    string          `json:"description"`
	Status         string          `json:"status,omitempty"`
	TaskID         *uuid.UUID      `json:"task_id,omitempty"`
	ReferralUserID *uuid.UUID      `json:"referral_user_id,omitempty"`
}
