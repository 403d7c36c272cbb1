package ledger

import "errors"

var (
	// ErrInsufficientFunds is returned when a debit would take a balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAccountNotFound is returned for reads of users who never opened an account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrLedgerWrite wraps any storage failure during a mutation.
	ErrLedgerWrite = errors.New("ledger write failed")
	// ErrKeyConflict is returned when an idempotency key is reused for a different mutation.
	ErrKeyConflict = errors.New("idempotency key reused with different parameters")
	// ErrInvalidAmount rejects negative or zero amounts where they make no sense.
	ErrInvalidAmount = errors.New("invalid amount")
)
