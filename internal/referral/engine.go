package referral

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/activity"
	"github.com/shpluspower/backend/internal/clock"
	"github.com/shpluspower/backend/internal/config"
	"github.com/shpluspower/backend/internal/identity"
	"github.com/shpluspower/backend/internal/models"
	"github.com/shpluspower/backend/internal/sink"
	"github.com/shpluspower/backend/internal/store"
)

// Engine computes and applies the two-level referral bonuses: a fixed
// bonus to the direct referrer on signup, and percentage bonuses to both
// levels on the referred user's first approved deposit. Unresolvable
// referrer chains are silent no-ops at the level that fails to resolve;
// they are logged but never surfaced.
type Engine struct {
	repo     *store.Repository
	log      *activity.Log
	ids      *identity.Generator
	clock    clock.Clock
	cfg      config.LedgerConfig
	notifier *sink.Notifier
}

// NewEngine creates the referral engine
func NewEngine(repo *store.Repository, actLog *activity.Log, ids *identity.Generator, clk clock.Clock, cfg config.LedgerConfig, notifier *sink.Notifier) *Engine {
	return &Engine{
		repo:     repo,
		log:      actLog,
		ids:      ids,
		clock:    clk,
		cfg:      cfg,
		notifier: notifier,
	}
}

// OnSignup credits the direct referrer's signup bonus and records the
// new user on both referral levels. An unknown code is ignored.
func (e *Engine) OnSignup(newUserID uuid.UUID, referralCode string) error {
	referrer, err := e.repo.FindUserByReferralCode(referralCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("referral code %q did not resolve, skipping signup bonus", referralCode)
			return nil
		}
		return err
	}

	newUser, err := e.repo.GetUser(newUserID)
	if err != nil {
		return err
	}

	// Resolve the second-level referrer before taking locks.
	lockIDs := []uuid.UUID{referrer.ID}
	var secondID *uuid.UUID
	if referrer.ReferredBy != "" {
		second, err := e.repo.FindUserByReferralCode(referrer.ReferredBy)
		if err == nil {
			lockIDs = append(lockIDs, second.ID)
			secondID = &second.ID
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	unlock := e.repo.LockUsers(lockIDs...)
	defer unlock()

	referrer, err = e.repo.GetUser(referrer.ID)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	bonus := e.cfg.ReferralSignupBonus

	referrer.Balance += bonus
	referrer.Referrals = append(referrer.Referrals, models.Referral{
		UserID:   newUserID,
		Level:    1,
		JoinDate: now,
	})
	referrer.Transactions = append(referrer.Transactions, models.Transaction{
		ID:             e.ids.NewID(),
		Type:           models.TransactionReferralSignupBonus,
		Amount:         bonus,
		Date:           now,
		Description:    fmt.Sprintf("Referral signup bonus from %s", newUser.Name),
		ReferralUserID: &newUserID,
	})
	referrer.Notify(fmt.Sprintf("%s signed up using your referral code! You earned ₦%.0f bonus.", newUser.Name, bonus), "success", now)
	referrer.LastUpdate = now

	if err := e.repo.SaveUser(referrer); err != nil {
		return err
	}

	// Level 2 gets a membership record only, no bonus.
	if secondID != nil {
		second, err := e.repo.GetUser(*secondID)
		if err != nil {
			return err
		}
		second.Referrals = append(second.Referrals, models.Referral{
			UserID:   newUserID,
			Level:    2,
			JoinDate: now,
		})
		second.LastUpdate = now
		if err := e.repo.SaveUser(second); err != nil {
			return err
		}
	}

	if _, err := e.log.Record(referrer.ID, models.ActionReferralSignupBonus, models.ActivityDetails{
		Amount:         bonus,
		ReferredUser:   newUser.Name,
		ReferredUserID: newUserID,
		DeviceID:       referrer.DeviceID,
	}, models.StatusCompleted); err != nil {
		return err
	}

	e.notifier.Notify(map[string]interface{}{
		"type":          "referral_signup_bonus",
		"referrer_id":   referrer.ID,
		"referrer_name": referrer.Name,
		"new_user_id":   newUserID,
		"new_user_name": newUser.Name,
		"bonus_amount":  bonus,
	})
	return nil
}

// OnFirstApprovedDeposit credits the percentage bonuses for the referred
// user's first approved deposit: level 1 gets Level1DepositRate of the
// amount, level 2 gets Level2DepositRate. The exactly-once guard lives
// in the approval workflow, not here.
func (e *Engine) OnFirstApprovedDeposit(userID uuid.UUID, depositAmount float64) error {
	user, err := e.repo.GetUser(userID)
	if err != nil {
		return err
	}
	if user.ReferredBy == "" {
		return nil
	}

	first, err := e.repo.FindUserByReferralCode(user.ReferredBy)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("referrer code %q for user %s did not resolve, skipping deposit bonus", user.ReferredBy, userID)
			return nil
		}
		return err
	}

	lockIDs := []uuid.UUID{first.ID}
	var secondID *uuid.UUID
	if first.ReferredBy != "" {
		second, err := e.repo.FindUserByReferralCode(first.ReferredBy)
		if err == nil {
			lockIDs = append(lockIDs, second.ID)
			secondID = &second.ID
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}

	unlock := e.repo.LockUsers(lockIDs...)
	defer unlock()

	if err := e.creditDepositBonus(first.ID, user, depositAmount, 1, e.cfg.Level1DepositRate); err != nil {
		return err
	}
	if secondID != nil {
		if err := e.creditDepositBonus(*secondID, user, depositAmount, 2, e.cfg.Level2DepositRate); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) creditDepositBonus(referrerID uuid.UUID, depositor *models.User, depositAmount float64, level int, rate float64) error {
	referrer, err := e.repo.GetUser(referrerID)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	bonus := depositAmount * rate

	referrer.Balance += bonus
	referrer.Transactions = append(referrer.Transactions, models.Transaction{
		ID:             e.ids.NewID(),
		Type:           models.TransactionReferralBonus,
		Amount:         bonus,
		Date:           now,
		Description:    fmt.Sprintf("Level %d referral bonus from %s", level, depositor.Name),
		ReferralUserID: &depositor.ID,
	})
	referrer.Notify(fmt.Sprintf("Earned ₦%.0f referral bonus (Level %d)", bonus, level), "success", now)

	if record := referrer.FindReferral(depositor.ID, level); record != nil {
		record.TotalDeposits += depositAmount
	}
	referrer.LastUpdate = now

	if err := e.repo.SaveUser(referrer); err != nil {
		return err
	}

	e.notifier.Notify(map[string]interface{}{
		"type":         "referral_bonus",
		"referrer_id":  referrer.ID,
		"level":        level,
		"depositor_id": depositor.ID,
		"bonus_amount": bonus,
	})
	return nil
}
