package domain

import (
	"errors"
	"math"
	"time"
)

// TransactionStatus is the closed set of verification lifecycle states.
type TransactionStatus string

const (
	// StatusPending is the initial state: newly created, or awaiting a
	// screening decision, or screened clear but not yet approved.
	StatusPending TransactionStatus = "pending"
	// StatusBlocked means screening flagged the transaction and a challenge
	// must be passed before it can be approved.
	StatusBlocked TransactionStatus = "blocked"
	// StatusVerified means the owner passed the challenge; the transaction is
	// eligible for commit.
	StatusVerified TransactionStatus = "verified"
	// StatusApproved is terminal: the ledger entry has been written.
	StatusApproved TransactionStatus = "approved"
	// StatusFailed is terminal: the challenge was exhausted or rejected.
	StatusFailed TransactionStatus = "failed"
)

var legalTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:  {StatusBlocked, StatusApproved},
	StatusBlocked:  {StatusVerified, StatusFailed},
	StatusVerified: {StatusApproved},
}

// CanTransition reports whether from -> to is a legal edge of the lifecycle.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusFailed
}

// Transaction is the unit of money movement being screened. Amount, vendor,
// category and date are immutable after creation; only the status, screening
// outcome and updated_at change during the lifecycle.
type Transaction struct {
	ID           int64             `json:"id"`
	UserID       int64             `json:"user_id"`
	AmountCents  int64             `json:"amount_cents"`
	Vendor       string            `json:"vendor"`
	Category     string            `json:"category"`
	TxDate       time.Time         `json:"tx_date"`
	Status       TransactionStatus `json:"status"`
	Suspicious   bool              `json:"suspicious"`
	ScreenReason string            `json:"screen_reason,omitempty"`
	ScreenedAt   *time.Time        `json:"screened_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Screened reports whether the one-time screening decision has landed.
func (t *Transaction) Screened() bool {
	return t.ScreenedAt != nil
}

// Amount returns the amount in currency units.
func (t *Transaction) Amount() float64 {
	return float64(t.AmountCents) / 100
}

const (
	MaxVendorLen   = 120
	MaxCategoryLen = 80
)

var (
	ErrAmountNotPositive = errors.New("amount must be positive")
	ErrAmountPrecision   = errors.New("amount must have at most 2 decimal places")
)

// ParseAmount converts a currency amount into cents, rejecting non-positive
// values and sub-cent precision.
func ParseAmount(amount float64) (int64, error) {
	if amount <= 0 {
		return 0, ErrAmountNotPositive
	}
	cents := amount * 100
	rounded := math.Round(cents)
	if math.Abs(cents-rounded) > 1e-6 {
		return 0, ErrAmountPrecision
	}
	return int64(rounded), nil
}
