package ledger

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/activity"
	"github.com/shpluspower/backend/internal/clock"
	"github.com/shpluspower/backend/internal/config"
	"github.com/shpluspower/backend/internal/identity"
	"github.com/shpluspower/backend/internal/models"
	"github.com/shpluspower/backend/internal/sink"
	"github.com/shpluspower/backend/internal/store"
	"github.com/shpluspower/backend/internal/utils"
)

// Engine owns user and task aggregates and executes every
// balance-affecting operation. Each operation reads the aggregate,
// mutates it and persists it inside one per-user critical section; the
// store itself has no transactions.
type Engine struct {
	repo     *store.Repository
	log      *activity.Log
	ids      *identity.Generator
	clock    clock.Clock
	cfg      config.LedgerConfig
	notifier *sink.Notifier
}

// NewEngine creates the ledger engine
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

// SignupInput is the profile submitted at account creation
type SignupInput struct {
	Name         string
	Email        string
	Phone        string
	Password     string
	ReferralCode string
}

// TaskSpec describes the task product being purchased
type TaskSpec struct {
	Name         string
	Cost         float64
	DailyProfit  float64
	DurationDays int
}

// Signup creates an account, credits the welcome bonus and records the
// signup in the global activity log. Referral bonuses are the
// ReferralEngine's job and happen after this returns.
func (e *Engine) Signup(input SignupInput) (*models.User, error) {
	unlock := e.repo.LockAll()
	defer unlock()

	if _, err := e.repo.FindUserByEmail(input.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	deviceID, err := e.repo.DeviceID()
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	user := &models.User{
		ID:            e.ids.NewID(),
		Name:          input.Name,
		Email:         input.Email,
		Phone:         input.Phone,
		PasswordHash:  hash,
		AccountNumber: e.ids.AccountNumber(),
		Balance:       e.cfg.WelcomeBonus,
		Tasks:         []models.Task{},
		Transactions: []models.Transaction{{
			ID:          e.ids.NewID(),
			Type:        models.TransactionWelcomeBonus,
			Amount:      e.cfg.WelcomeBonus,
			Date:        now,
			Description: "Welcome bonus",
		}},
		Referrals:     []models.Referral{},
		Notifications: []models.Notification{},
		ReferralCode:  e.ids.ReferralCode(input.Name),
		ReferredBy:    input.ReferralCode,
		DeviceID:      deviceID,
		LastUpdate:    now,
	}
	user.Notify(fmt.Sprintf("Welcome to SHPLUS POWER! You received ₦%.0f welcome bonus.", e.cfg.WelcomeBonus), "success", now)

	if err := e.repo.SaveUser(user); err != nil {
		return nil, err
	}

	if _, err := e.log.Record(user.ID, models.ActionSignup, models.ActivityDetails{
		Email:    user.Email,
		DeviceID: deviceID,
	}, models.StatusCompleted); err != nil {
		return nil, err
	}

	e.notifier.Notify(map[string]interface{}{
		"type":           "signup",
		"name":           user.Name,
		"email":          user.Email,
		"account_number": user.AccountNumber,
		"device_id":      deviceID,
	})

	return user, nil
}

// Login verifies credentials, stamps the session metadata and sweeps any
// profits that came due while the user was away.
func (e *Engine) Login(email, password string) (*models.User, error) {
	found, err := e.repo.FindUserByEmail(email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, found.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	unlock := e.repo.LockUsers(found.ID)
	user, err := e.repo.GetUser(found.ID)
	if err != nil {
		unlock()
		return nil, err
	}

	now := e.clock.Now()
	deviceID, err := e.repo.DeviceID()
	if err != nil {
		unlock()
		return nil, err
	}
	user.LastLogin = &now
	user.LastUpdate = now
	user.DeviceID = deviceID

	if err := e.repo.SaveUser(user); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	if _, err := e.SweepDueProfits(user.ID); err != nil {
		return nil, err
	}
	return e.repo.GetUser(user.ID)
}

// PurchaseTask debits the task cost and appends the task, its purchase
// transaction and a confirmation notification in one critical section.
// Blocked while a deposit is pending approval.
func (e *Engine) PurchaseTask(userID uuid.UUID, spec TaskSpec) (*models.Task, error) {
	unlock := e.repo.LockUsers(userID)
	defer unlock()

	user, err := e.getUser(userID)
	if err != nil {
		return nil, err
	}

	if user.HasPendingDeposit() {
		return nil, ErrPendingDeposit
	}
	if user.Balance < spec.Cost {
		return nil, ErrInsufficientBalance
	}

	now := e.clock.Now()
	task := models.Task{
		ID:           e.ids.NewID(),
		Name:         spec.Name,
		Cost:         spec.Cost,
		DailyProfit:  spec.DailyProfit,
		DurationDays: spec.DurationDays,
		StartDate:    now,
		DaysLeft:     spec.DurationDays,
	}

	user.Balance -= spec.Cost
	user.Tasks = append(user.Tasks, task)
	user.Transactions = append(user.Transactions, models.Transaction{
		ID:          e.ids.NewID(),
		Type:        models.TransactionTaskPurchase,
		Amount:      -spec.Cost,
		Date:        now,
		Description: fmt.Sprintf("Purchased %s", spec.Name),
		TaskID:      &task.ID,
	})
	user.Notify(fmt.Sprintf("Successfully purchased %s for ₦%.0f", spec.Name, spec.Cost), "success", now)
	user.LastUpdate = now

	if err := e.repo.SaveUser(user); err != nil {
		return nil, err
	}
	return &task, nil
}

// CollectDailyProfit credits one daily profit for the task if it is
// eligible. An ineligible task is a silent no-op: the returned amount is
// zero and no state changes. Re-invocation inside the 24-hour window is
// therefore safe but not deduplicated beyond the eligibility check.
func (e *Engine) CollectDailyProfit(userID, taskID uuid.UUID) (float64, error) {
	unlock := e.repo.LockUsers(userID)
	defer unlock()

	user, err := e.getUser(userID)
	if err != nil {
		return 0, err
	}

	task := user.FindTask(taskID)
	if task == nil {
		return 0, ErrTaskNotFound
	}

	now := e.clock.Now()
	if !task.CanCollect(now) {
		return 0, nil
	}

	e.applyProfit(user, task, now, fmt.Sprintf("Daily profit from %s", task.Name))
	user.Notify(fmt.Sprintf("Collected ₦%.0f daily profit from %s", task.DailyProfit, task.Name), "success", now)
	user.LastUpdate = now

	if err := e.repo.SaveUser(user); err != nil {
		return 0, err
	}
	return task.DailyProfit, nil
}

// SweepDueProfits collects every eligible task's profit in one pass and
// posts a single summary notification. Runs on login and on the
// recurring sweep job.
func (e *Engine) SweepDueProfits(userID uuid.UUID) (float64, error) {
	unlock := e.repo.LockUsers(userID)
	defer unlock()

	user, err := e.getUser(userID)
	if err != nil {
		return 0, err
	}

	now := e.clock.Now()
	total := 0.0
	for i := range user.Tasks {
		task := &user.Tasks[i]
		if !task.CanCollect(now) {
			continue
		}
		e.applyProfit(user, task, now, fmt.Sprintf("Auto-collected daily profit from %s", task.Name))
		total += task.DailyProfit
	}

	if total == 0 {
		return 0, nil
	}

	user.Notify(fmt.Sprintf("Auto-collected ₦%.0f in daily profits", total), "success", now)
	user.LastUpdate = now
	if err := e.repo.SaveUser(user); err != nil {
		return 0, err
	}
	return total, nil
}

// SweepAll runs SweepDueProfits for every known user
func (e *Engine) SweepAll() error {
	users, err := e.repo.Users()
	if err != nil {
		return err
	}
	for i := range users {
		if _, err := e.SweepDueProfits(users[i].ID); err != nil {
			log.Printf("profit sweep failed for user %s: %v", users[i].ID, err)
		}
	}
	return nil
}

func (e *Engine) applyProfit(user *models.User, task *models.Task, now time.Time, description string) {
	user.Balance += task.DailyProfit
	task.TotalEarned += task.DailyProfit
	task.DaysLeft--
	collected := now
	task.LastProfitDate = &collected

	user.Transactions = append(user.Transactions, models.Transaction{
		ID:          e.ids.NewID(),
		Type:        models.TransactionDailyProfit,
		Amount:      task.DailyProfit,
		Date:        now,
		Description: description,
		TaskID:      &task.ID,
	})
}

// InitiateDeposit records a pending deposit awaiting admin approval.
// The balance is only credited by the approval workflow.
func (e *Engine) InitiateDeposit(userID uuid.UUID, amount float64, method string) error {
	if amount < e.cfg.MinDeposit {
		return fmt.Errorf("%w of ₦%.0f", ErrBelowMinimumDeposit, e.cfg.MinDeposit)
	}

	unlock := e.repo.LockUsers(userID)
	defer unlock()

	user, err := e.getUser(userID)
	if err != nil {
		return err
	}

	now := e.clock.Now()
	user.Transactions = append(user.Transactions, models.Transaction{
		ID:          e.ids.NewID(),
		Type:        models.TransactionDeposit,
		Amount:      amount,
		Date:        now,
		Description: fmt.Sprintf("Deposit via %s", method),
		Status:      models.StatusPending,
	})
	user.Notify(fmt.Sprintf("Deposit of ₦%.0f submitted for approval", amount), "info", now)
	user.LastUpdate = now

	if err := e.repo.SaveUser(user); err != nil {
		return err
	}

	if _, err := e.log.Record(user.ID, models.ActionDeposit, models.ActivityDetails{
		Amount:   amount,
		Method:   method,
		DeviceID: user.DeviceID,
	}, models.StatusPending); err != nil {
		return err
	}

	e.notifier.Notify(map[string]interface{}{
		"type":           "deposit",
		"user_id":        user.ID,
		"name":           user.Name,
		"email":          user.Email,
		"account_number": user.AccountNumber,
		"amount":         amount,
		"method":         method,
		"device_id":      user.DeviceID,
	})
	return nil
}

// Withdraw debits the amount plus a percentage fee in a single
// transaction, subject to the minimum and the daily time window.
func (e *Engine) Withdraw(userID uuid.UUID, amount float64, account, bank string) (float64, error) {
	if amount < e.cfg.MinWithdrawal {
		return 0, fmt.Errorf("%w of ₦%.0f", ErrBelowMinimumWithdrawal, e.cfg.MinWithdrawal)
	}

	hour := e.clock.Now().Hour()
	if hour < e.cfg.WithdrawOpenHour || hour >= e.cfg.WithdrawCloseHour {
		return 0, ErrOutsideWithdrawalWindow
	}

	fee := amount * e.cfg.WithdrawalFeeRate

	unlock := e.repo.LockUsers(userID)
	defer unlock()

	user, err := e.getUser(userID)
	if err != nil {
		return 0, err
	}
	if user.Balance < amount+fee {
		return 0, ErrInsufficientBalance
	}

	now := e.clock.Now()
	user.Balance -= amount + fee
	user.Transactions = append(user.Transactions, models.Transaction{
		ID:          e.ids.NewID(),
		Type:        models.TransactionWithdrawal,
		Amount:      -amount,
		Fee:         fee,
		Date:        now,
		Description: fmt.Sprintf("Withdrawal to %s (%s)", bank, account),
		Status:      models.StatusCompleted,
	})
	user.Notify(fmt.Sprintf("Withdrawal of ₦%.0f processed (Fee: ₦%.0f)", amount, fee), "success", now)
	user.LastUpdate = now

	if err := e.repo.SaveUser(user); err != nil {
		return 0, err
	}

	if _, err := e.log.Record(user.ID, models.ActionWithdrawal, models.ActivityDetails{
		Amount:   amount,
		Fee:      fee,
		Bank:     bank,
		Account:  account,
		DeviceID: user.DeviceID,
	}, models.StatusCompleted); err != nil {
		return 0, err
	}

	e.notifier.Notify(map[string]interface{}{
		"type":           "withdrawal",
		"user_id":        user.ID,
		"name":           user.Name,
		"email":          user.Email,
		"account_number": user.AccountNumber,
		"amount":         amount,
		"fee":            fee,
		"bank_account":   account,
		"bank_name":      bank,
		"device_id":      user.DeviceID,
	})
	return fee, nil
}

// ClearNotifications empties the user's notification feed
func (e *Engine) ClearNotifications(userID uuid.UUID) error {
	unlock := e.repo.LockUsers(userID)
	defer unlock()

	user, err := e.getUser(userID)
	if err != nil {
		return err
	}

	user.Notifications = []models.Notification{}
	user.LastUpdate = e.clock.Now()
	return e.repo.SaveUser(user)
}

func (e *Engine) getUser(id uuid.UUID) (*models.User, error) {
	user, err := e.repo.GetUser(id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
