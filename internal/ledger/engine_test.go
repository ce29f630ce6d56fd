package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpluspower/backend/internal/activity"
	"github.com/shpluspower/backend/internal/clock"
	"github.com/shpluspower/backend/internal/config"
	"github.com/shpluspower/backend/internal/identity"
	"github.com/shpluspower/backend/internal/models"
	"github.com/shpluspower/backend/internal/sink"
	"github.com/shpluspower/backend/internal/store"
)

func testLedgerConfig() config.LedgerConfig {
	return config.LedgerConfig{
		WelcomeBonus:        600,
		ReferralSignupBonus: 600,
		Level1DepositRate:   0.20,
		Level2DepositRate:   0.10,
		MinDeposit:          2500,
		MinWithdrawal:       600,
		WithdrawalFeeRate:   0.05,
		WithdrawOpenHour:    10,
		WithdrawCloseHour:   19,
	}
}

// noon, comfortably inside the withdrawal window
func newTestEngine(t *testing.T) (*Engine, *store.Repository, *clock.Fake) {
	t.Helper()

	repo := store.NewRepository(store.NewMemoryStore())
	clk := clock.NewFake(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	ids := identity.New()
	notifier := sink.NewNotifier(sink.NopSink{}, 0, 0)
	actLog := activity.NewLog(repo, ids, clk)

	return NewEngine(repo, actLog, ids, clk, testLedgerConfig(), notifier), repo, clk
}

func signup(t *testing.T, e *Engine, name, email string) *models.User {
	t.Helper()

	user, err := e.Signup(SignupInput{Name: name, Email: email, Password: "password123"})
	require.NoError(t, err)
	return user
}

func TestSignupCreditsWelcomeBonus(t *testing.T) {
	e, _, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")

	assert.InDelta(t, 600, user.Balance, 0.001)
	require.Len(t, user.Transactions, 1)
	assert.Equal(t, models.TransactionWelcomeBonus, user.Transactions[0].Type)
	assert.InDelta(t, 600, user.Transactions[0].Amount, 0.001)
	assert.Len(t, user.Notifications, 1)
	assert.Len(t, user.AccountNumber, 10)
	assert.NotEmpty(t, user.ReferralCode)
	assert.InDelta(t, user.Balance, user.LedgerSum(), 0.001)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	e, _, _ := newTestEngine(t)

	signup(t, e, "Ada Obi", "ada@example.com")
	_, err := e.Signup(SignupInput{Name: "Other", Email: "ada@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e, _, _ := newTestEngine(t)

	signup(t, e, "Ada Obi", "ada@example.com")

	_, err := e.Login("ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.Login("nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginStampsSessionAndSweepsProfits(t *testing.T) {
	e, _, clk := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	_, err := e.PurchaseTask(user.ID, TaskSpec{Name: "Solar Kit", Cost: 500, DailyProfit: 100, DurationDays: 5})
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)

	logged, err := e.Login("ada@example.com", "password123")
	require.NoError(t, err)

	require.NotNil(t, logged.LastLogin)
	assert.Equal(t, clk.Now(), *logged.LastLogin)
	// 600 welcome - 500 purchase + 100 swept profit
	assert.InDelta(t, 200, logged.Balance, 0.001)
	assert.InDelta(t, logged.Balance, logged.LedgerSum(), 0.001)
}

func TestPurchaseTaskDebitsCost(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	task, err := e.PurchaseTask(user.ID, TaskSpec{Name: "Solar Kit", Cost: 500, DailyProfit: 100, DurationDays: 5})
	require.NoError(t, err)

	assert.Equal(t, 5, task.DaysLeft)

	saved, err := repo.GetUser(user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100, saved.Balance, 0.001)
	require.Len(t, saved.Tasks, 1)
	require.Len(t, saved.Transactions, 2)
	assert.Equal(t, models.TransactionTaskPurchase, saved.Transactions[1].Type)
	assert.InDelta(t, -500, saved.Transactions[1].Amount, 0.001)
	assert.InDelta(t, saved.Balance, saved.LedgerSum(), 0.001)
}

func TestPurchaseTaskRequiresSufficientBalance(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	_, err := e.PurchaseTask(user.ID, TaskSpec{Name: "Wind Farm", Cost: 1000, DailyProfit: 200, DurationDays: 10})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	saved, err := repo.GetUser(user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 600, saved.Balance, 0.001)
	assert.Empty(t, saved.Tasks)
}

func TestPurchaseTaskBlockedByPendingDeposit(t *testing.T) {
	e, _, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	require.NoError(t, e.InitiateDeposit(user.ID, 3000, "bank transfer"))

	_, err := e.PurchaseTask(user.ID, TaskSpec{Name: "Solar Kit", Cost: 500, DailyProfit: 100, DurationDays: 5})
	assert.ErrorIs(t, err, ErrPendingDeposit)
}

func TestCollectDailyProfitRespectsCooldown(t *testing.T) {
	e, repo, clk := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	task, err := e.PurchaseTask(user.ID, TaskSpec{Name: "Solar Kit", Cost: 500, DailyProfit: 100, DurationDays: 5})
	require.NoError(t, err)

	collected, err := e.CollectDailyProfit(user.ID, task.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100, collected, 0.001)

	// A second collection inside 24 hours changes nothing.
	collected, err = e.CollectDailyProfit(user.ID, task.ID)
	require.NoError(t, err)
	assert.Zero(t, collected)

	saved, err := repo.GetUser(user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 200, saved.Balance, 0.001)
	assert.Equal(t, 4, saved.Tasks[0].DaysLeft)

	clk.Advance(24 * time.Hour)

	collected, err = e.CollectDailyProfit(user.ID, task.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100, collected, 0.001)

	saved, err = repo.GetUser(user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 300, saved.Balance, 0.001)
	assert.Equal(t, 3, saved.Tasks[0].DaysLeft)
	assert.InDelta(t, saved.Balance, saved.LedgerSum(), 0.001)
}

func TestCollectDailyProfitUnknownTask(t *testing.T) {
	e, _, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	_, err := e.CollectDailyProfit(user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSweepDueProfitsAggregates(t *testing.T) {
	e, repo, clk := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	_, err := e.PurchaseTask(user.ID, TaskSpec{Name: "Solar Kit", Cost: 300, DailyProfit: 100, DurationDays: 5})
	require.NoError(t, err)
	_, err = e.PurchaseTask(user.ID, TaskSpec{Name: "Farm Plot", Cost: 200, DailyProfit: 50, DurationDays: 10})
	require.NoError(t, err)

	clk.Advance(25 * time.Hour)

	total, err := e.SweepDueProfits(user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 150, total, 0.001)

	saved, err := repo.GetUser(user.ID)
	require.NoError(t, err)
	// One summary notification on top of welcome and two purchase notes.
	assert.Len(t, saved.Notifications, 4)
	assert.InDelta(t, saved.Balance, saved.LedgerSum(), 0.001)

	// Nothing is due immediately after a sweep.
	total, err = e.SweepDueProfits(user.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestInitiateDepositBelowMinimum(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	err := e.InitiateDeposit(user.ID, 1000, "bank transfer")
	assert.ErrorIs(t, err, ErrBelowMinimumDeposit)

	saved, err := repo.GetUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, saved.Transactions, 1, "rejected deposit must not be recorded")
}

func TestInitiateDepositRecordsPendingTransaction(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	require.NoError(t, e.InitiateDeposit(user.ID, 5000, "bank transfer"))

	saved, err := repo.GetUser(user.ID)
	require.NoError(t, err)
	// Pending deposits never touch the balance.
	assert.InDelta(t, 600, saved.Balance, 0.001)
	require.Len(t, saved.Transactions, 2)
	assert.Equal(t, models.TransactionDeposit, saved.Transactions[1].Type)
	assert.Equal(t, models.StatusPending, saved.Transactions[1].Status)
	assert.True(t, saved.HasPendingDeposit())
}

func TestWithdrawBelowMinimum(t *testing.T) {
	e, _, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	_, err := e.Withdraw(user.ID, 500, "0123456789", "GTBank")
	assert.ErrorIs(t, err, ErrBelowMinimumWithdrawal)
}

func TestWithdrawOutsideWindow(t *testing.T) {
	e, repo, clk := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	seedBalance(t, repo, user.ID, 2000)

	for _, hour := range []int{9, 19, 23} {
		clk.SetTime(time.Date(2026, 3, 10, hour, 30, 0, 0, time.UTC))
		_, err := e.Withdraw(user.ID, 1000, "0123456789", "GTBank")
		assert.ErrorIs(t, err, ErrOutsideWithdrawalWindow, "hour %d", hour)
	}

	saved, err := repo.GetUser(user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2000, saved.Balance, 0.001)
}

func TestWithdrawDebitsAmountPlusFee(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	seedBalance(t, repo, user.ID, 2000)

	fee, err := e.Withdraw(user.ID, 1000, "0123456789", "GTBank")
	require.NoError(t, err)
	assert.InDelta(t, 50, fee, 0.001)

	saved, err := repo.GetUser(user.ID)
	require.NoError(t, err)
	assert.InDelta(t, 950, saved.Balance, 0.001)

	last := saved.Transactions[len(saved.Transactions)-1]
	assert.Equal(t, models.TransactionWithdrawal, last.Type)
	assert.InDelta(t, -1000, last.Amount, 0.001)
	assert.InDelta(t, 50, last.Fee, 0.001)
	assert.Equal(t, models.StatusCompleted, last.Status)
	assert.InDelta(t, saved.Balance, saved.LedgerSum(), 0.001)
}

func TestWithdrawRequiresAmountPlusFeeCovered(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	seedBalance(t, repo, user.ID, 1020)

	// 1000 + 50 fee exceeds the 1020 balance.
	_, err := e.Withdraw(user.ID, 1000, "0123456789", "GTBank")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestClearNotifications(t *testing.T) {
	e, repo, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	require.NoError(t, e.ClearNotifications(user.ID))

	saved, err := repo.GetUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, saved.Notifications)
}

func TestDashboardSummarizesEarnings(t *testing.T) {
	e, _, _ := newTestEngine(t)

	user := signup(t, e, "Ada Obi", "ada@example.com")
	task, err := e.PurchaseTask(user.ID, TaskSpec{Name: "Solar Kit", Cost: 500, DailyProfit: 100, DurationDays: 5})
	require.NoError(t, err)
	_, err = e.CollectDailyProfit(user.ID, task.ID)
	require.NoError(t, err)

	view, err := e.Dashboard(user.ID)
	require.NoError(t, err)

	assert.Equal(t, "Ada Obi", view.Name)
	assert.InDelta(t, 200, view.Balance, 0.001)
	assert.Equal(t, 1, view.ActiveTasks)
	assert.InDelta(t, 100, view.TotalEarnings, 0.001)
	assert.LessOrEqual(t, len(view.Recent), 5)
}

func TestOperationsOnUnknownUser(t *testing.T) {
	e, _, _ := newTestEngine(t)

	_, err := e.PurchaseTask(uuid.New(), TaskSpec{Name: "Solar Kit", Cost: 500, DailyProfit: 100, DurationDays: 5})
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = e.InitiateDeposit(uuid.New(), 5000, "bank transfer")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = e.Dashboard(uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// seedBalance raises the user's balance via an approved deposit so the
// ledger stays consistent with the balance.
func seedBalance(t *testing.T, repo *store.Repository, userID uuid.UUID, target float64) {
	t.Helper()

	user, err := repo.GetUser(userID)
	require.NoError(t, err)

	delta := target - user.Balance
	user.Balance = target
	user.Transactions = append(user.Transactions, models.Transaction{
		ID:     uuid.New(),
		Type:   models.TransactionDeposit,
		Amount: delta,
		Date:   user.LastUpdate,
		Status: models.StatusApproved,
	})
	require.NoError(t, repo.SaveUser(user))
}
