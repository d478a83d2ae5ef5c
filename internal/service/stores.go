package service

import (
	"context"

	"txguardian/internal/domain"
)

// Store interfaces keep the state machine off concrete storage. The pgx
// repositories satisfy them in production; tests use in-memory fakes.

type TransactionStore interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error)
	// UpdateStatus performs a compare-and-set transition and reports whether
	// the row moved.
	UpdateStatus(ctx context.Context, id int64, from []domain.TransactionStatus, to domain.TransactionStatus) (bool, error)
	// MarkScreened records the screening outcome exactly once.
	MarkScreened(ctx context.Context, id int64, suspicious bool, reason string, status domain.TransactionStatus) (bool, error)
}

type LedgerStore interface {
	// Commit atomically approves the transaction and inserts the snapshot
	// entry; a concurrent duplicate resolves to the existing entry. Returns
	// repository.ErrNotEligible when the locked status recheck fails.
	Commit(ctx context.Context, txID int64, eligible []domain.TransactionStatus, providerRef *string) (*domain.LedgerEntry, error)
	GetByTransactionID(ctx context.Context, txID int64) (*domain.LedgerEntry, error)
	RecentByUser(ctx context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id string, userID int64) (bool, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}
