package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLastActivityPrefersNewestTransaction(t *testing.T) {
	login := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	txDate := login.Add(2 * time.Hour)

	user := User{
		LastLogin: &login,
		Transactions: []Transaction{
			{ID: uuid.New(), Type: TransactionWelcomeBonus, Amount: 600, Date: txDate},
		},
	}
	assert.Equal(t, txDate, user.LastActivity())
}

func TestLastActivityFallsBackToLogin(t *testing.T) {
	login := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	user := User{LastLogin: &login}
	assert.Equal(t, login, user.LastActivity())

	var never User
	assert.True(t, never.LastActivity().IsZero())
}

func TestHasPendingDeposit(t *testing.T) {
	user := User{Transactions: []Transaction{
		{Type: TransactionDeposit, Amount: 5000, Status: StatusApproved},
	}}
	assert.False(t, user.HasPendingDeposit())

	user.Transactions = append(user.Transactions, Transaction{
		Type: TransactionDeposit, Amount: 3000, Status: StatusPending,
	})
	assert.True(t, user.HasPendingDeposit())
}

func TestLedgerSumSkipsUnapprovedDeposits(t *testing.T) {
	user := User{Transactions: []Transaction{
		{Type: TransactionWelcomeBonus, Amount: 600},
		{Type: TransactionDeposit, Amount: 5000, Status: StatusApproved},
		{Type: TransactionDeposit, Amount: 3000, Status: StatusPending},
		{Type: TransactionDeposit, Amount: 2500, Status: StatusDeclined},
		{Type: TransactionWithdrawal, Amount: -1000, Fee: 50, Status: StatusCompleted},
	}}
	assert.InDelta(t, 600+5000-1000-50, user.LedgerSum(), 0.001)
}

func TestTaskCanCollect(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	task := Task{DaysLeft: 5}
	assert.True(t, task.CanCollect(now), "fresh task should be collectable")

	collected := now.Add(-23 * time.Hour)
	task.LastProfitDate = &collected
	assert.False(t, task.CanCollect(now), "collected 23h ago")

	collected = now.Add(-25 * time.Hour)
	task.LastProfitDate = &collected
	assert.True(t, task.CanCollect(now), "collected 25h ago")

	task.DaysLeft = 0
	assert.False(t, task.CanCollect(now), "expired task")
}

func TestFindReferralMatchesUserAndLevel(t *testing.T) {
	id := uuid.New()
	user := User{Referrals: []Referral{
		{UserID: id, Level: 1},
		{UserID: id, Level: 2},
	}}

	assert.NotNil(t, user.FindReferral(id, 1))
	assert.NotNil(t, user.FindReferral(id, 2))
	assert.Nil(t, user.FindReferral(uuid.New(), 1))
}
