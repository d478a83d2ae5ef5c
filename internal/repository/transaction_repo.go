package repository

import (
	"context"
	"time"

	"txguardian/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, user_id, amount_cents, vendor, category, tx_date, status,
	       suspicious, screen_reason, screened_at, created_at, updated_at`

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new pending transaction
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO transactions (user_id, amount_cents, vendor, category, tx_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		tx.UserID, tx.AmountCents, tx.Vendor, tx.Category, tx.TxDate, tx.Status,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
}

// GetByID retrieves a transaction by id
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE id = $1`, id)
	return scanTransaction(row)
}

// GetByUserID returns recent transactions for a user
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// UpdateStatus moves a transaction from one of the expected statuses to the
// new one. The WHERE clause doubles as a compare-and-set: a concurrent
// transition makes this report false and leaves the row untouched.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, from []domain.TransactionStatus, to domain.TransactionStatus) (bool, error) {
	expected := make([]string, len(from))
	for i, s := range from {
		expected[i] = string(s)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE transactions
		 SET status = $2, updated_at = now()
		 WHERE id = $1 AND status = ANY($3)`,
		id, to, expected)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkScreened records the one-time screening outcome and, when suspicious,
// moves the transaction to blocked. Guarded by screened_at IS NULL so a
// duplicate dispatch can never re-screen, and by status = 'pending' so a
// transaction approved inline before the screening write lands is left
// alone.
func (r *TransactionRepository) MarkScreened(ctx context.Context, id int64, suspicious bool, reason string, status domain.TransactionStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions
		 SET suspicious = $2, screen_reason = $3, screened_at = now(),
		     status = $4, updated_at = now()
		 WHERE id = $1 AND screened_at IS NULL AND status = $5`,
		id, suspicious, reason, status, domain.StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx         domain.Transaction
		reason     *string
		screenedAt *time.Time
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.AmountCents, &tx.Vendor, &tx.Category,
		&tx.TxDate, &tx.Status, &tx.Suspicious, &reason, &screenedAt,
		&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		tx.ScreenReason = *reason
	}
	tx.ScreenedAt = screenedAt
	return &tx, nil
}

func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var result []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}
