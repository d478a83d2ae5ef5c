package repository

import (
	"context"
	"errors"

	"txguardian/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotEligible is returned by Commit when the row-locked status recheck
// finds the transaction in a state that cannot be committed.
var ErrNotEligible = errors.New("transaction not eligible for commit")

const uniqueViolation = "23505"

const ledgerColumns = `id, transaction_id, amount_cents, vendor, category, tx_date, provider_ref, approved_at`

type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Commit atomically moves the transaction to approved and snapshots it into
// the ledger. The status transition and the entry insert share one database
// transaction; the unique constraint on transaction_id resolves the race
// between two concurrent commits, so a duplicate insert degrades to a read
// of the existing entry instead of an error.
func (r *LedgerRepository) Commit(ctx context.Context, txID int64, eligible []domain.TransactionStatus, providerRef *string) (*domain.LedgerEntry, error) {
	dbTx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	// Lock the row and recheck eligibility under the lock.
	var (
		tx     domain.Transaction
		status string
	)
	err = dbTx.QueryRow(ctx,
		`SELECT id, user_id, amount_cents, vendor, category, tx_date, status
		 FROM transactions
		 WHERE id = $1
		 FOR UPDATE`, txID,
	).Scan(&tx.ID, &tx.UserID, &tx.AmountCents, &tx.Vendor, &tx.Category, &tx.TxDate, &status)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, s := range eligible {
		if domain.TransactionStatus(status) == s {
			allowed = true
			break
		}
	}
	if !allowed {
		// Already approved means a commit won the race earlier; resolve to
		// the existing entry for idempotency.
		if domain.TransactionStatus(status) == domain.StatusApproved {
			_ = dbTx.Rollback(ctx)
			return r.GetByTransactionID(ctx, txID)
		}
		return nil, ErrNotEligible
	}

	if _, err := dbTx.Exec(ctx,
		`UPDATE transactions SET status = $2, updated_at = now() WHERE id = $1`,
		txID, domain.StatusApproved); err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		TransactionID: tx.ID,
		AmountCents:   tx.AmountCents,
		Vendor:        tx.Vendor,
		Category:      tx.Category,
		TxDate:        tx.TxDate,
		ProviderRef:   providerRef,
	}
	err = dbTx.QueryRow(ctx,
		`INSERT INTO transaction_ledger (transaction_id, amount_cents, vendor, category, tx_date, provider_ref)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, approved_at`,
		entry.TransactionID, entry.AmountCents, entry.Vendor, entry.Category, entry.TxDate, entry.ProviderRef,
	).Scan(&entry.ID, &entry.ApprovedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// Lost the race: another commit already recorded this
			// transaction. Return the winner's entry.
			_ = dbTx.Rollback(ctx)
			return r.GetByTransactionID(ctx, txID)
		}
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// GetByTransactionID retrieves the ledger entry for a transaction
func (r *LedgerRepository) GetByTransactionID(ctx context.Context, txID int64) (*domain.LedgerEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+ledgerColumns+`
		 FROM transaction_ledger
		 WHERE transaction_id = $1`, txID)
	return scanLedgerEntry(row)
}

// RecentByUser returns the latest ledger entries for a user's transactions,
// newest first. Feeds the challenge oracle's activity context.
func (r *LedgerRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 3
	}

	rows, err := r.db.Query(ctx,
		`SELECT l.id, l.transaction_id, l.amount_cents, l.vendor, l.category, l.tx_date, l.provider_ref, l.approved_at
		 FROM transaction_ledger l
		 JOIN transactions t ON t.id = l.transaction_id
		 WHERE t.user_id = $1
		 ORDER BY l.approved_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := row.Scan(&entry.ID, &entry.TransactionID, &entry.AmountCents, &entry.Vendor,
		&entry.Category, &entry.TxDate, &entry.ProviderRef, &entry.ApprovedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
