package service

import (
	"context"
	"errors"
	"fmt"

	"txguardian/internal/domain"
	"txguardian/internal/logger"

	"github.com/jackc/pgx/v5"
)

// Mailer delivers a plain-text email. Implemented by email.SMTPSender.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailService mirrors the important in-app notifications over email. Best
// effort like NotificationService.Dispatch: a missing address or an SMTP
// failure is logged and never fails the transition that triggered it.
type EmailService struct {
	mailer Mailer
	users  UserStore
}

func NewEmailService(mailer Mailer, users UserStore) *EmailService {
	return &EmailService{mailer: mailer, users: users}
}

// SendVerificationAlert tells the owner their transaction was locked and
// needs security answers.
func (s *EmailService) SendVerificationAlert(ctx context.Context, tx *domain.Transaction, reason string) {
	subject := fmt.Sprintf("Transaction Verification Required - $%.2f", tx.Amount())
	body := fmt.Sprintf(`We detected a suspicious transaction on your account:

Transaction ID: %d
Amount: $%.2f
Vendor: %s
Category: %s
Date: %s
Reason: %s

The transaction has been temporarily locked.

Please verify this transaction by answering your security questions.

If you did not make this transaction, please contact support immediately.`,
		tx.ID, tx.Amount(), tx.Vendor, tx.Category, tx.TxDate.Format("2006-01-02"), reason)

	s.send(ctx, tx.UserID, subject, body)
}

// SendApprovalNotice confirms the payment went out to the vendor.
func (s *EmailService) SendApprovalNotice(ctx context.Context, tx *domain.Transaction, entry *domain.LedgerEntry) {
	subject := fmt.Sprintf("Transaction Approved - $%.2f to %s", tx.Amount(), tx.Vendor)
	body := fmt.Sprintf(`Your transaction has been verified and approved:

Transaction ID: %d
Amount: $%.2f
Vendor: %s
Status: Completed

The payment has been sent to the vendor successfully.`,
		tx.ID, tx.Amount(), tx.Vendor)
	if entry.ProviderRef != nil && *entry.ProviderRef != "" {
		body += fmt.Sprintf("\n\nPayment Reference: %s", *entry.ProviderRef)
	}

	s.send(ctx, tx.UserID, subject, body)
}

func (s *EmailService) send(ctx context.Context, userID int64, subject, body string) {
	if s == nil || s.mailer == nil {
		return
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			logger.Error("email recipient lookup failed", "user_id", userID, "error", err)
		}
		return
	}
	if user.Email == "" {
		return
	}

	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		logger.Error("email send failed", "user_id", userID, "error", err)
		return
	}
	logger.Info("email sent", "user_id", userID, "subject", subject)
}
