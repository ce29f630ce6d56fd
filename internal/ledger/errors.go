package ledger

import "errors"

// Errors surfaced synchronously to callers. Handlers map these to HTTP
// statuses; each one carries the specific, human-readable reason the
// operation was rejected.
var (
	ErrDuplicateEmail          = errors.New("an account with this email already exists")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrUserNotFound            = errors.New("user not found")
	ErrTaskNotFound            = errors.New("task not found")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrPendingDeposit          = errors.New("cannot buy tasks while you have pending deposits")
	ErrBelowMinimumDeposit     = errors.New("deposit amount is below the minimum")
	ErrBelowMinimumWithdrawal  = errors.New("withdrawal amount is below the minimum")
	ErrOutsideWithdrawalWindow = errors.New("withdrawals are only available between 10:00 and 19:00")
)
