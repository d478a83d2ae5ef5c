// Package screening holds the rule-based suspicion check run once on every
// newly created transaction. Pure and deterministic: no I/O, no clock, no
// randomness, so callers may re-evaluate a transaction at any time and get
// the same answer.
package screening

import (
	"strings"

	"txguardian/internal/domain"
)

// Reason strings returned by Evaluate.
const (
	ReasonHighAmount         = "High transaction amount"
	ReasonSuspiciousMerchant = "Suspicious merchant"
	ReasonNormal             = "Transaction is normal"
)

// Policy configures the screening rules. Replaceable without touching the
// verification state machine.
type Policy struct {
	MaxAmountCents int64
	// VendorBlocklist entries are matched case-insensitively against the
	// exact vendor name.
	VendorBlocklist []string
}

// DefaultPolicy mirrors the production defaults: $5000 threshold plus the
// known-bad merchant list.
func DefaultPolicy() Policy {
	return Policy{
		MaxAmountCents:  500000,
		VendorBlocklist: []string{"unknown_vendor", "fraud_shop", "test_merchant"},
	}
}

// Evaluate reports whether the transaction is suspicious and the single most
// relevant reason. The amount check wins the tie-break when several rules
// match.
func Evaluate(p Policy, tx domain.Transaction) (bool, string) {
	if tx.AmountCents > p.MaxAmountCents {
		return true, ReasonHighAmount
	}

	vendor := strings.ToLower(tx.Vendor)
	for _, blocked := range p.VendorBlocklist {
		if vendor == strings.ToLower(blocked) {
			return true, ReasonSuspiciousMerchant
		}
	}

	return false, ReasonNormal
}
