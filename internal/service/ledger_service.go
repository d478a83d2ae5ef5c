package service

import (
	"context"
	"errors"
	"fmt"

	"txguardian/internal/domain"
	"txguardian/internal/logger"
	"txguardian/internal/repository"

	"github.com/jackc/pgx/v5"
)

// LedgerService is the commit engine: it materializes an approved
// transaction into its permanent ledger entry exactly once. The uniqueness
// constraint on transaction_id is the primary defense against a double
// commit; a racing caller gets the pre-existing entry, not an error.
type LedgerService struct {
	ledger   LedgerStore
	notifier *NotificationService
	emails   *EmailService
	audit    *AuditService
}

func NewLedgerService(ledger LedgerStore, notifier *NotificationService, emails *EmailService, audit *AuditService) *LedgerService {
	return &LedgerService{ledger: ledger, notifier: notifier, emails: emails, audit: audit}
}

// Commit approves the transaction and writes its ledger snapshot. eligible
// lists the statuses the caller determined commit-worthy; the store rechecks
// them under a row lock. Safe to retry and safe to race.
func (s *LedgerService) Commit(ctx context.Context, tx *domain.Transaction, eligible []domain.TransactionStatus, providerRef *string) (*domain.LedgerEntry, error) {
	entry, err := s.ledger.Commit(ctx, tx.ID, eligible, providerRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotEligible) {
			LedgerCommitsTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: transaction %d", ErrInvalidState, tx.ID)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		LedgerCommitsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	LedgerCommitsTotal.WithLabelValues("committed").Inc()
	logger.Info("transaction committed to ledger",
		"transaction_id", tx.ID, "ledger_id", entry.ID, "amount_cents", entry.AmountCents)

	s.audit.Log(ctx, tx.UserID, domain.AuditActionApproved, domain.AuditCategoryLedger, map[string]interface{}{
		"transaction_id": tx.ID,
		"ledger_id":      entry.ID,
	})
	s.notifier.Dispatch(ctx, tx.UserID,
		fmt.Sprintf("Transaction %d has been completed and sent to vendor %s", tx.ID, tx.Vendor))
	s.emails.SendApprovalNotice(ctx, tx, entry)

	return entry, nil
}

// EntryFor returns the existing ledger entry for an already approved
// transaction.
func (s *LedgerService) EntryFor(ctx context.Context, txID int64) (*domain.LedgerEntry, error) {
	entry, err := s.ledger.GetByTransactionID(ctx, txID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}
