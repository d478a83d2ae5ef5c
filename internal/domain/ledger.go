package domain

import "time"

// LedgerEntry is the permanent record of an approved transaction. Fields are
// snapshotted at commit time so the ledger stays historically accurate even
// if the transaction row were altered later. At most one entry exists per
// transaction id, enforced by a unique constraint.
type LedgerEntry struct {
	ID            int64     `json:"id"`
	TransactionID int64     `json:"transaction_id"`
	AmountCents   int64     `json:"amount_cents"`
	Vendor        string    `json:"vendor"`
	Category      string    `json:"category"`
	TxDate        time.Time `json:"tx_date"`
	ProviderRef   *string   `json:"provider_ref,omitempty"`
	ApprovedAt    time.Time `json:"approved_at"`
}
