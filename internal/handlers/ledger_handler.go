package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/ledger"
	"github.com/shpluspower/backend/internal/syncer"
)

// LedgerHandler exposes the user-facing ledger operations and views
type LedgerHandler struct {
	ledger *ledger.Engine
	sync   *syncer.Coordinator
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerEngine *ledger.Engine, sync *syncer.Coordinator) *LedgerHandler {
	return &LedgerHandler{ledger: ledgerEngine, sync: sync}
}

// Dashboard returns the user's dashboard summary
func (h *LedgerHandler) Dashboard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := h.ledger.Dashboard(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Tasks returns the user's task list with collectability state
func (h *LedgerHandler) Tasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	views, err := h.ledger.Tasks(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// PurchaseTask buys a task product
func (h *LedgerHandler) PurchaseTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Name         string  `json:"name" binding:"required"`
		Cost         float64 `json:"cost" binding:"required,gt=0"`
		DailyProfit  float64 `json:"daily_profit" binding:"required,gt=0"`
		DurationDays int     `json:"duration_days" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.ledger.PurchaseTask(userID, ledger.TaskSpec{
		Name:         input.Name,
		Cost:         input.Cost,
		DailyProfit:  input.DailyProfit,
		DurationDays: input.DurationDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.sync.Kick()
	c.JSON(http.StatusCreated, task)
}

// CollectProfit collects one daily profit from a task
func (h *LedgerHandler) CollectProfit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task ID"})
		return
	}

	collected, err := h.ledger.CollectDailyProfit(userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.sync.Kick()
	c.JSON(http.StatusOK, gin.H{"collected": collected})
}

// Deposit initiates a deposit pending admin approval
func (h *LedgerHandler) Deposit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Amount float64 `json:"amount" binding:"required,gt=0"`
		Method string  `json:"method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ledger.InitiateDeposit(userID, input.Amount, input.Method); err != nil {
		respondError(c, err)
		return
	}

	h.sync.Kick()
	c.JSON(http.StatusAccepted, gin.H{"status": "pending approval"})
}

// Withdraw debits a withdrawal plus fee within the allowed time window
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input struct {
		Amount  float64 `json:"amount" binding:"required,gt=0"`
		Account string  `json:"account" binding:"required"`
		Bank    string  `json:"bank" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fee, err := h.ledger.Withdraw(userID, input.Amount, input.Account, input.Bank)
	if err != nil {
		respondError(c, err)
		return
	}

	h.sync.Kick()
	c.JSON(http.StatusOK, gin.H{"amount": input.Amount, "fee": fee})
}

// Referrals returns the user's referral code, earnings and list
func (h *LedgerHandler) Referrals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := h.ledger.Referrals(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ReferralCode returns just the shareable referral code
func (h *LedgerHandler) ReferralCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := h.ledger.Referrals(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"referral_code": view.ReferralCode})
}

// Notifications returns the user's notification feed, newest first
func (h *LedgerHandler) Notifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	feed, err := h.ledger.Notifications(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

// ClearNotifications empties the user's notification feed
func (h *LedgerHandler) ClearNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.ledger.ClearNotifications(userID); err != nil {
		respondError(c, err)
		return
	}

	h.sync.Kick()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
