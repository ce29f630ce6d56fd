package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/ledger"
)

// respondError maps ledger errors to HTTP statuses. Every rejection
// carries the specific human-readable reason.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, ledger.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, ledger.ErrDuplicateEmail):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrUserNotFound), errors.Is(err, ledger.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrBelowMinimumDeposit), errors.Is(err, ledger.ErrBelowMinimumWithdrawal):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrPendingDeposit),
		errors.Is(err, ledger.ErrOutsideWithdrawalWindow):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// currentUserID extracts the authenticated user id from the context
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr := c.GetString("user_id")
	if userIDStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}
