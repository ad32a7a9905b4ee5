package domain

import "errors"

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Input errors
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrNegativeAmount    = errors.New("amount must not be negative")
	ErrCurrencyMismatch  = errors.New("currency mismatch")
	ErrInsufficientAmount = errors.New("subtraction would underflow amount")
	ErrInvalidOdds       = errors.New("odds must be at least 1.01")
	ErrUnknownSelection  = errors.New("unknown selection")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Contention / state errors
var (
	ErrInsufficientBalance          = errors.New("insufficient balance")
	ErrInsufficientAvailableBalance = errors.New("insufficient available balance")
	ErrDuplicateReservation         = errors.New("a reservation already exists for this bet")
	ErrReservationNotFound          = errors.New("no active reservation for this bet")
	ErrMarketSuspended              = errors.New("market is suspended")
	ErrOddsChanged                  = errors.New("current odds no longer meet the acceptable odds")
	ErrAlreadyProcessed             = errors.New("bet has already been processed")
	ErrAlreadyInitialized           = errors.New("already initialized")
	ErrAlreadyExists                = errors.New("already exists")
	ErrBetNotFound                  = errors.New("bet not found")
	ErrCannotVoidInStatus           = errors.New("bet cannot be voided in its current status")
	ErrCannotCashOutInStatus        = errors.New("bet cannot be cashed out in its current status")
)

// Infrastructure errors
var (
	ErrPersistenceError    = errors.New("persistence error")
	ErrWalletDepositFailed = errors.New("wallet deposit failed")
	ErrOperationCancelled  = errors.New("operation cancelled")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

var notFoundErrors = []error{
	ErrBetNotFound,
	ErrReservationNotFound,
	ErrUnknownSelection,
}

// IsNotFound reports whether err (or any error in its chain) represents a
// "not found" condition.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var conflictErrors = []error{
	ErrMarketSuspended,
	ErrOddsChanged,
	ErrAlreadyProcessed,
	ErrAlreadyExists,
	ErrAlreadyInitialized,
	ErrCannotVoidInStatus,
	ErrCannotCashOutInStatus,
	ErrDuplicateReservation,
	ErrInvalidTransition,
}

// IsConflict reports whether err represents a state conflict that should
// translate to an HTTP 409.
func IsConflict(err error) bool {
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var badRequestErrors = []error{
	ErrInvalidRequest,
	ErrNonPositiveAmount,
	ErrNegativeAmount,
	ErrCurrencyMismatch,
	ErrInvalidOdds,
	ErrInsufficientAmount,
	ErrInsufficientBalance,
	ErrInsufficientAvailableBalance,
}

// IsBadRequest reports whether err represents a client input error that
// should translate to an HTTP 400.
func IsBadRequest(err error) bool {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
