package admin

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/activity"
	"github.com/shpluspower/backend/internal/clock"
	"github.com/shpluspower/backend/internal/models"
	"github.com/shpluspower/backend/internal/referral"
	"github.com/shpluspower/backend/internal/store"
)

// Workflow is the deposit approval surface: it resolves a pending
// activity log entry, credits or rejects the deposit, and triggers the
// first-deposit referral bonuses. The pending-to-resolved transition on
// the log entry is the atomic gate for both operations: it happens first,
// under the log lock, and only the caller that wins it touches the user.
// Unresolvable entries and entries that already left the pending state
// are silent no-ops, so repeated or concurrent approval attempts cannot
// double-credit.
type Workflow struct {
	repo     *store.Repository
	log      *activity.Log
	referral *referral.Engine
	clock    clock.Clock
}

// Stats summarizes the activity log for the admin panel
type Stats struct {
	TotalUsers       int `json:"total_users"`
	PendingDeposits  int `json:"pending_deposits"`
	ApprovedDeposits int `json:"approved_deposits"`
	TotalWithdrawals int `json:"total_withdrawals"`
}

// NewWorkflow creates the approval workflow
func NewWorkflow(repo *store.Repository, actLog *activity.Log, referralEngine *referral.Engine, clk clock.Clock) *Workflow {
	return &Workflow{
		repo:     repo,
		log:      actLog,
		referral: referralEngine,
		clock:    clk,
	}
}

// ApproveDeposit credits the deposit amount to the user, flips the
// matching pending transaction to approved and, if this is the user's
// first approved deposit, pays the referral bonuses.
func (w *Workflow) ApproveDeposit(entryID uuid.UUID, by string) error {
	entry, err := w.log.Find(entryID)
	if err != nil {
		return err
	}
	if entry == nil || entry.Status != models.StatusPending {
		log.Printf("approve: entry %s not found or not pending, ignoring", entryID)
		return nil
	}

	won, err := w.log.Approve(entryID, by)
	if err != nil {
		return err
	}
	if !won {
		log.Printf("approve: entry %s already resolved, ignoring", entryID)
		return nil
	}

	amount := entry.Details.Amount

	unlock := w.repo.LockUsers(entry.UserID)
	user, err := w.repo.GetUser(entry.UserID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("approve: user %s for entry %s not found, ignoring", entry.UserID, entryID)
			return nil
		}
		return err
	}

	now := w.clock.Now()
	user.Balance += amount

	// The pending transaction is matched by type, amount and status, not
	// by a stable id. Two equal-amount pending deposits are ambiguous;
	// the first match wins.
	if tx := findPendingDeposit(user, amount); tx != nil {
		tx.Status = models.StatusApproved
	} else {
		log.Printf("approve: no pending deposit transaction of ₦%.0f found for user %s", amount, user.ID)
	}

	user.Notify(fmt.Sprintf("Deposit of ₦%.0f has been approved", amount), "success", now)
	user.LastUpdate = now

	if err := w.repo.SaveUser(user); err != nil {
		unlock()
		return err
	}
	firstApproved := user.ApprovedDepositCount() == 1
	unlock()

	if firstApproved {
		if err := w.referral.OnFirstApprovedDeposit(user.ID, amount); err != nil {
			return err
		}
	}
	return nil
}

// DeclineDeposit flips the matching pending transaction to declined
// without crediting anything.
func (w *Workflow) DeclineDeposit(entryID uuid.UUID, by string) error {
	entry, err := w.log.Find(entryID)
	if err != nil {
		return err
	}
	if entry == nil || entry.Status != models.StatusPending {
		log.Printf("decline: entry %s not found or not pending, ignoring", entryID)
		return nil
	}

	won, err := w.log.Decline(entryID, by)
	if err != nil {
		return err
	}
	if !won {
		log.Printf("decline: entry %s already resolved, ignoring", entryID)
		return nil
	}

	amount := entry.Details.Amount

	unlock := w.repo.LockUsers(entry.UserID)
	defer unlock()

	user, err := w.repo.GetUser(entry.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("decline: user %s for entry %s not found, ignoring", entry.UserID, entryID)
			return nil
		}
		return err
	}

	now := w.clock.Now()
	if tx := findPendingDeposit(user, amount); tx != nil {
		tx.Status = models.StatusDeclined
	} else {
		log.Printf("decline: no pending deposit transaction of ₦%.0f found for user %s", amount, user.ID)
	}

	user.Notify(fmt.Sprintf("Deposit of ₦%.0f has been declined", amount), "error", now)
	user.LastUpdate = now

	return w.repo.SaveUser(user)
}

// Stats computes the admin panel counters
func (w *Workflow) Stats() (*Stats, error) {
	users, err := w.repo.Users()
	if err != nil {
		return nil, err
	}
	entries, err := w.repo.ActivityLog()
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalUsers: len(users)}
	for _, e := range entries {
		switch {
		case e.Action == models.ActionDeposit && e.Status == models.StatusPending:
			stats.PendingDeposits++
		case e.Action == models.ActionDeposit && e.Status == models.StatusApproved:
			stats.ApprovedDeposits++
		case e.Action == models.ActionWithdrawal:
			stats.TotalWithdrawals++
		}
	}
	return stats, nil
}

func findPendingDeposit(user *models.User, amount float64) *models.Transaction {
	for i := range user.Transactions {
		tx := &user.Transactions[i]
		if tx.Type == models.TransactionDeposit && tx.Amount == amount && tx.Status == models.StatusPending {
			return tx
		}
	}
	return nil
}
