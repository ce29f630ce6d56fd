package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an entry in a user's own notification feed
type Notification struct {
	Message string    `json:"message"`
	Date    time.Time `json:"date"`
	Type    string    `json:"type"` // success, error or info
}

// Referral records a referred user on the referrer's aggregate.
// Level 1 is a direct referral, level 2 a referral of a referral.
// TotalDeposits accumulates the referred user's approved deposits.
type Referral struct {
	UserID        uuid.UUID `json:"user_id"`
	Level         int       `json:"level"`
	JoinDate      time.Time `json:"join_date"`
	TotalDeposits float64   `json:"total_deposits"`
}

// User is the account aggregate. All mutable sub-collections (tasks,
// transactions, notifications, referrals) are owned exclusively by this
// aggregate and persisted with it as one record.
type User struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	PasswordHash  string         `json:"password_hash"`
	AccountNumber string         `json:"account_number"`
	Balance       float64        `json:"balance"`
	Tasks         []Task         `json:"tasks"`
	Transactions  []Transaction  `json:"transactions"`
	Referrals     []Referral     `json:"referrals"`
	Notifications []Notification `json:"notifications"`
	LastLogin     *time.Time     `json:"last_login,omitempty"`
	ReferralCode  string         `json:"referral_code"`
	ReferredBy    string         `json:"referred_by,omitempty"`
	DeviceID      string         `json:"device_id"`
	LastUpdate    time.Time      `json:"last_update"`
}

// LastActivity is the recency timestamp used by the sync merge: the
// later of the last login and the newest transaction date.
func (u *User) LastActivity() time.Time {
	var last time.Time
	if u.LastLogin != nil {
		last = *u.LastLogin
	}
	if n := len(u.Transactions); n > 0 {
		if d := u.Transactions[n-1].Date; d.After(last) {
			last = d
		}
	}
	return last
}

// HasPendingDeposit reports whether the user has a deposit awaiting approval
func (u *User) HasPendingDeposit() bool {
	for _, tx := range u.Transactions {
		if tx.Type == TransactionDeposit && tx.Status == StatusPending {
			return true
		}
	}
	return false
}

// ApprovedDepositCount returns the number of approved deposit transactions
func (u *User) ApprovedDepositCount() int {
	count := 0
	for _, tx := range u.Transactions {
		if tx.Type == TransactionDeposit && tx.Status == StatusApproved {
			count++
		}
	}
	return count
}

// FindTask returns the task with the given id, or nil
func (u *User) FindTask(id uuid.UUID) *Task {
	for i := range u.Tasks {
		if u.Tasks[i].ID == id {
			return &u.Tasks[i]
		}
	}
	return nil
}

// FindReferral returns the referral record for userID at level, or nil
func (u *User) FindReferral(userID uuid.UUID, level int) *Referral {
	for i := range u.Referrals {
		if u.Referrals[i].UserID == userID && u.Referrals[i].Level == level {
			return &u.Referrals[i]
		}
	}
	return nil
}

// Notify appends a notification to the user's feed
func (u *User) Notify(message, kind string, now time.Time) {
	u.Notifications = append(u.Notifications, Notification{
		Message: message,
		Date:    now,
		Type:    kind,
	})
}

// LedgerSum is the signed sum of all transaction amounts minus fees.
// The intended invariant is Balance == LedgerSum after any sequence of
// valid operations.
func (u *User) LedgerSum() float64 {
	sum := 0.0
	for _, tx := range u.Transactions {
		// A pending or declined deposit never reached the balance.
		if tx.Type == TransactionDeposit && tx.Status != StatusApproved {
			continue
		}
		sum += tx.Amount - tx.Fee
	}
	return sum
}
