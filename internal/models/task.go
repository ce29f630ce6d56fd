package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is an investment product owned by a single user. DaysLeft counts
// down by one per profit collection and floors at zero; TotalEarned only
// grows. LastProfitDate gates the next eligible collection.
type Task struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Cost           float64    `json:"cost"`
	DailyProfit    float64    `json:"daily_profit"`
	DurationDays   int        `json:"duration_days"`
	StartDate      time.Time  `json:"start_date"`
	DaysLeft       int        `json:"days_left"`
	TotalEarned    float64    `json:"total_earned"`
	LastProfitDate *time.Time `json:"last_profit_date,omitempty"`
}

// CanCollect reports whether a daily profit is collectible at now: the
// task must have days left and at least 24 hours must have elapsed since
// the previous collection.
func (t *Task) CanCollect(now time.Time) bool {
	if t.DaysLeft <= 0 {
		return false
	}
	if t.LastProfitDate == nil {
		return true
	}
	return now.Sub(*t.LastProfitDate).Hours() >= 24
}
