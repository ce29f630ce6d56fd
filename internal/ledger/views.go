package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/models"
)

// DashboardView is the summary shown after login
type DashboardView struct {
	Name          string                `json:"name"`
	Balance       float64               `json:"balance"`
	AccountNumber string                `json:"account_number"`
	ActiveTasks   int                   `json:"active_tasks"`
	TotalEarnings float64               `json:"total_earnings"`
	Recent        []models.Notification `json:"recent_notifications"`
}

// TaskView decorates a task with its display state
type TaskView struct {
	models.Task
	ProgressPercent float64 `json:"progress_percent"`
	CanCollect      bool    `json:"can_collect"`
}

// ReferralEntryView is one row of the referral list
type ReferralEntryView struct {
	Name          string    `json:"name"`
	Level         int       `json:"level"`
	JoinDate      time.Time `json:"join_date"`
	TotalDeposits float64   `json:"total_deposits"`
}

// ReferralView summarizes the user's referral standing
type ReferralView struct {
	ReferralCode   string              `json:"referral_code"`
	TotalReferrals int                 `json:"total_referrals"`
	Earnings       float64             `json:"earnings"`
	Referrals      []ReferralEntryView `json:"referrals"`
}

// Dashboard builds the dashboard summary for a user. Total earnings is
// the sum of daily profits and deposit referral bonuses.
func (e *Engine) Dashboard(userID uuid.UUID) (*DashboardView, error) {
	user, err := e.getUser(userID)
	if err != nil {
		return nil, err
	}

	earnings := 0.0
	for _, tx := range user.Transactions {
		if tx.Type == models.TransactionDailyProfit || tx.Type == models.TransactionReferralBonus {
			earnings += tx.Amount
		}
	}

	recent := sortedNotifications(user.Notifications)
	if len(recent) > 5 {
		recent = recent[:5]
	}

	return &DashboardView{
		Name:          user.Name,
		Balance:       user.Balance,
		AccountNumber: user.AccountNumber,
		ActiveTasks:   len(user.Tasks),
		TotalEarnings: earnings,
		Recent:        recent,
	}, nil
}

// Tasks returns the user's tasks with progress and collectability
func (e *Engine) Tasks(userID uuid.UUID) ([]TaskView, error) {
	user, err := e.getUser(userID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	views := make([]TaskView, 0, len(user.Tasks))
	for _, task := range user.Tasks {
		progress := 0.0
		if task.DurationDays > 0 {
			progress = float64(task.DurationDays-task.DaysLeft) / float64(task.DurationDays) * 100
		}
		views = append(views, TaskView{
			Task:            task,
			ProgressPercent: progress,
			CanCollect:      task.CanCollect(now),
		})
	}
	return views, nil
}

// Referrals builds the referral summary, resolving referred user names
func (e *Engine) Referrals(userID uuid.UUID) (*ReferralView, error) {
	user, err := e.getUser(userID)
	if err != nil {
		return nil, err
	}

	earnings := 0.0
	for _, tx := range user.Transactions {
		if tx.Type == models.TransactionReferralBonus || tx.Type == models.TransactionReferralSignupBonus {
			earnings += tx.Amount
		}
	}

	all, err := e.repo.Users()
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(all))
	for i := range all {
		names[all[i].ID] = all[i].Name
	}

	entries := make([]ReferralEntryView, 0, len(user.Referrals))
	for _, ref := range user.Referrals {
		name, ok := names[ref.UserID]
		if !ok {
			name = "Unknown User"
		}
		entries = append(entries, ReferralEntryView{
			Name:          name,
			Level:         ref.Level,
			JoinDate:      ref.JoinDate,
			TotalDeposits: ref.TotalDeposits,
		})
	}

	return &ReferralView{
		ReferralCode:   user.ReferralCode,
		TotalReferrals: len(user.Referrals),
		Earnings:       earnings,
		Referrals:      entries,
	}, nil
}

// Notifications returns the user's feed, newest first
func (e *Engine) Notifications(userID uuid.UUID) ([]models.Notification, error) {
	user, err := e.getUser(userID)
	if err != nil {
		return nil, err
	}
	return sortedNotifications(user.Notifications), nil
}

func sortedNotifications(in []models.Notification) []models.Notification {
	out := make([]models.Notification, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
