package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"txguardian/internal/domain"
	"txguardian/internal/logger"
	"txguardian/internal/oracle"
	"txguardian/internal/screening"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VerificationResult is the outcome of one answer submission.
type VerificationResult struct {
	Verified bool   `json:"verified"`
	Failed   bool   `json:"failed"`
	Correct  int    `json:"correct"`
	Required int    `json:"required"`
	Message  string `json:"message"`
}

// VerificationConfig tunes the state machine.
type VerificationConfig struct {
	Policy            screening.Policy
	MaxAnswerAttempts int
	OracleTimeout     time.Duration
}

// VerificationService owns the transaction status field and every legal
// transition: creation, one-time screening, challenge issuance, answer
// grading and handoff to the ledger commit engine.
type VerificationService struct {
	transactions TransactionStore
	users        UserStore
	ledger       *LedgerService
	ledgerStore  LedgerStore
	oracle       oracle.Oracle
	notifier     *NotificationService
	emails       *EmailService
	audit        *AuditService
	challenges   *challengeCache

	policy        screening.Policy
	maxAttempts   int
	oracleTimeout time.Duration
}

func NewVerificationService(
	transactions TransactionStore,
	users UserStore,
	ledgerStore LedgerStore,
	ledger *LedgerService,
	orc oracle.Oracle,
	notifier *NotificationService,
	emails *EmailService,
	audit *AuditService,
	cfg VerificationConfig,
) *VerificationService {
	if cfg.MaxAnswerAttempts <= 0 {
		cfg.MaxAnswerAttempts = 3
	}
	if cfg.OracleTimeout <= 0 {
		cfg.OracleTimeout = 20 * time.Second
	}
	return &VerificationService{
		transactions:  transactions,
		users:         users,
		ledger:        ledger,
		ledgerStore:   ledgerStore,
		oracle:        orc,
		notifier:      notifier,
		emails:        emails,
		audit:         audit,
		challenges:    newChallengeCache(),
		policy:        cfg.Policy,
		maxAttempts:   cfg.MaxAnswerAttempts,
		oracleTimeout: cfg.OracleTimeout,
	}
}

// Create validates input, persists a pending transaction and dispatches the
// one-time screening as an independent unit of work. The caller always sees
// the pre-screening pending state; oracle latency never delays creation.
func (s *VerificationService) Create(ctx context.Context, userID int64, amount float64, vendor, category string, txDate time.Time) (*domain.Transaction, error) {
	cents, err := domain.ParseAmount(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if vendor == "" || len(vendor) > domain.MaxVendorLen {
		return nil, fmt.Errorf("%w: vendor must be 1-%d characters", ErrInvalidInput, domain.MaxVendorLen)
	}
	if category == "" || len(category) > domain.MaxCategoryLen {
		return nil, fmt.Errorf("%w: category must be 1-%d characters", ErrInvalidInput, domain.MaxCategoryLen)
	}
	if txDate.IsZero() {
		return nil, fmt.Errorf("%w: transaction date is required", ErrInvalidInput)
	}

	tx := &domain.Transaction{
		UserID:      userID,
		AmountCents: cents,
		Vendor:      vendor,
		Category:    category,
		TxDate:      txDate,
		Status:      domain.StatusPending,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	go s.screenAsync(tx.ID)

	return tx, nil
}

// Get returns a transaction by id.
func (s *VerificationService) Get(ctx context.Context, txID int64) (*domain.Transaction, error) {
	tx, err := s.transactions.GetByID(ctx, txID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

// ListByUser returns a user's recent transactions.
func (s *VerificationService) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	return s.transactions.GetByUserID(ctx, userID, limit)
}

func (s *VerificationService) screenAsync(txID int64) {
	// Detached from the request context: cancelling the creation request
	// must not abort or corrupt the one-time screening write.
	ctx, cancel := context.WithTimeout(context.Background(), s.oracleTimeout+10*time.Second)
	defer cancel()

	if err := s.Screen(ctx, txID); err != nil {
		logger.Error("screening failed", "transaction_id", txID, "error", err)
	}
}

// Screen runs the suspicion check for a transaction. Idempotent: the
// screened_at guard in the store makes a duplicate dispatch a no-op, so
// screening side effects happen at most once per transaction.
func (s *VerificationService) Screen(ctx context.Context, txID int64) error {
	tx, err := s.Get(ctx, txID)
	if err != nil {
		return err
	}
	if tx.Screened() {
		return nil
	}

	suspicious, reason := screening.Evaluate(s.policy, *tx)

	if !suspicious {
		moved, err := s.transactions.MarkScreened(ctx, txID, false, reason, domain.StatusPending)
		if err != nil {
			return err
		}
		if moved {
			ScreeningsTotal.WithLabelValues("clear").Inc()
			s.audit.LogScreening(ctx, tx.UserID, txID, false, reason)
			logger.Info("transaction screened clear", "transaction_id", txID)
		}
		return nil
	}

	moved, err := s.transactions.MarkScreened(ctx, txID, true, reason, domain.StatusBlocked)
	if err != nil {
		return err
	}
	if !moved {
		return nil
	}

	ScreeningsTotal.WithLabelValues("suspicious").Inc()
	s.audit.LogScreening(ctx, tx.UserID, txID, true, reason)
	logger.Warn("transaction blocked", "transaction_id", txID, "reason", reason)

	s.notifier.Dispatch(ctx, tx.UserID, fmt.Sprintf(
		"Transaction %d has been temporarily locked for verification. Reason: %s. Please answer your security questions to verify it's you.",
		txID, reason))
	s.emails.SendVerificationAlert(ctx, tx, reason)

	// Pre-generate the challenge so the owner can answer immediately. Oracle
	// failure here is tolerable: the transaction stays blocked and
	// RequestVerification will regenerate on demand.
	if _, err := s.issueChallenge(ctx, tx); err != nil {
		logger.Warn("challenge pre-generation failed", "transaction_id", txID, "error", err)
	}
	return nil
}

// RequestVerification returns the active challenge for a blocked
// transaction, generating one via the oracle if none is in flight.
func (s *VerificationService) RequestVerification(ctx context.Context, txID int64) (*domain.ChallengeSet, error) {
	tx, err := s.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.StatusBlocked {
		return nil, fmt.Errorf("%w: transaction is %s, not blocked", ErrInvalidState, tx.Status)
	}

	if set := s.challenges.view(txID); set != nil {
		return set, nil
	}
	return s.issueChallenge(ctx, tx)
}

func (s *VerificationService) issueChallenge(ctx context.Context, tx *domain.Transaction) (*domain.ChallengeSet, error) {
	qc, err := s.buildQuestionContext(ctx, tx.UserID)
	if err != nil {
		return nil, err
	}

	octx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
	defer cancel()

	questions, err := s.oracle.GenerateQuestions(octx, qc)
	if err != nil {
		OracleRequestsTotal.WithLabelValues("generate", "error").Inc()
		return nil, err
	}
	OracleRequestsTotal.WithLabelValues("generate", "ok").Inc()

	set := &domain.ChallengeSet{
		ID:              uuid.NewString(),
		TransactionID:   tx.ID,
		Questions:       questions,
		RequiredCorrect: len(questions),
		IssuedAt:        time.Now(),
	}
	s.challenges.put(set)

	s.audit.LogChallenge(ctx, tx.UserID, tx.ID, domain.AuditActionChallengeIssued, map[string]interface{}{
		"questions": len(questions),
	})
	return set, nil
}

func (s *VerificationService) buildQuestionContext(ctx context.Context, userID int64) (oracle.QuestionContext, error) {
	qc := oracle.QuestionContext{ProfileFacts: map[string]string{}}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return qc, err
	}
	if user != nil {
		facts := map[string]string{
			"First Name":           user.FirstName,
			"Birth City":           user.BirthCity,
			"Mother's Maiden Name": user.MotherMaidenName,
			"First Pet Name":       user.FirstPetName,
			"First Car Make":       user.FirstCarMake,
		}
		for k, v := range facts {
			if v != "" {
				qc.ProfileFacts[k] = v
			}
		}
	}

	recent, err := s.ledgerStore.RecentByUser(ctx, userID, 3)
	if err != nil {
		return qc, err
	}
	for _, entry := range recent {
		qc.RecentActivity = append(qc.RecentActivity, oracle.ActivityItem{
			Vendor:   entry.Vendor,
			Amount:   float64(entry.AmountCents) / 100,
			Category: entry.Category,
			Date:     entry.TxDate.Format("2006-01-02"),
		})
	}
	return qc, nil
}

// SubmitAnswers grades the owner's answers against the active challenge.
// Every answer must grade correct; an indeterminate verdict counts as
// incorrect (fail closed). A transport-level oracle failure aborts without
// consuming an attempt, so "the system could not evaluate your answer" is
// never reported as "your answer was wrong".
func (s *VerificationService) SubmitAnswers(ctx context.Context, txID int64, answers map[string]string) (*VerificationResult, error) {
	mu := s.challenges.lockTx(txID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.StatusBlocked {
		return nil, fmt.Errorf("%w: transaction is %s and cannot be verified", ErrInvalidState, tx.Status)
	}

	set := s.challenges.get(txID)
	if set == nil {
		return nil, fmt.Errorf("%w: no active challenge, request verification first", ErrInvalidState)
	}

	correct := 0
	for _, q := range set.Questions {
		answer, ok := answers[q.Text]
		if !ok || answer == "" {
			continue
		}

		octx, cancel := context.WithTimeout(ctx, s.oracleTimeout)
		verdict, err := s.oracle.GradeAnswer(octx, q, answer)
		cancel()
		if err != nil {
			OracleRequestsTotal.WithLabelValues("grade", "error").Inc()
			ChallengeAttemptsTotal.WithLabelValues("unavailable").Inc()
			return nil, err
		}
		OracleRequestsTotal.WithLabelValues("grade", "ok").Inc()

		if verdict == domain.VerdictCorrect {
			correct++
		}
	}

	required := set.RequiredCorrect

	if correct == required {
		moved, err := s.transactions.UpdateStatus(ctx, txID, []domain.TransactionStatus{domain.StatusBlocked}, domain.StatusVerified)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, fmt.Errorf("%w: transaction moved concurrently", ErrInvalidState)
		}
		s.challenges.delete(txID)

		ChallengeAttemptsTotal.WithLabelValues("passed").Inc()
		s.audit.LogChallenge(ctx, tx.UserID, txID, domain.AuditActionChallengePassed, nil)
		logger.Info("transaction verified", "transaction_id", txID)

		return &VerificationResult{
			Verified: true,
			Correct:  correct,
			Required: required,
			Message:  "Transaction verified successfully",
		}, nil
	}

	set.Attempts++
	message := fmt.Sprintf("Verification failed: %d/%d answers correct", correct, required)

	if set.Attempts >= s.maxAttempts {
		moved, err := s.transactions.UpdateStatus(ctx, txID, []domain.TransactionStatus{domain.StatusBlocked}, domain.StatusFailed)
		if err != nil {
			return nil, err
		}
		if moved {
			s.challenges.delete(txID)
			ChallengeAttemptsTotal.WithLabelValues("exhausted").Inc()
			s.audit.LogChallenge(ctx, tx.UserID, txID, domain.AuditActionVerifyExhausted, map[string]interface{}{
				"attempts": set.Attempts,
			})
			s.notifier.Dispatch(ctx, tx.UserID, fmt.Sprintf(
				"Transaction %d failed verification and has been declined.", txID))
			logger.Warn("verification attempts exhausted", "transaction_id", txID)
		}

		return &VerificationResult{
			Failed:   true,
			Correct:  correct,
			Required: required,
			Message:  message + "; attempts exhausted, transaction declined",
		}, nil
	}

	ChallengeAttemptsTotal.WithLabelValues("failed").Inc()
	s.audit.LogChallenge(ctx, tx.UserID, txID, domain.AuditActionChallengeFailed, map[string]interface{}{
		"correct":  correct,
		"required": required,
		"attempts": set.Attempts,
	})
	s.notifier.Dispatch(ctx, tx.UserID, fmt.Sprintf(
		"Verification failed for transaction %d: %d/%d answers correct.", txID, correct, required))
	logger.Warn("verification attempt failed", "transaction_id", txID, "correct", correct, "required", required)

	return &VerificationResult{
		Correct:  correct,
		Required: required,
		Message:  message,
	}, nil
}

// Approve commits an eligible transaction to the ledger. A transaction that
// screened clear needs no challenge: verification is skipped, not vacuously
// passed. Calling Approve on an already approved transaction returns the
// existing ledger entry.
func (s *VerificationService) Approve(ctx context.Context, txID int64, providerRef *string) (*domain.LedgerEntry, error) {
	tx, err := s.Get(ctx, txID)
	if err != nil {
		return nil, err
	}

	var eligible []domain.TransactionStatus
	switch tx.Status {
	case domain.StatusApproved:
		return s.ledger.EntryFor(ctx, txID)

	case domain.StatusVerified:
		eligible = []domain.TransactionStatus{domain.StatusVerified}

	case domain.StatusPending:
		if tx.Screened() {
			if tx.Suspicious {
				return nil, fmt.Errorf("%w: transaction is flagged and awaiting verification", ErrInvalidState)
			}
		} else {
			// Screening hasn't landed yet; the evaluator is pure and
			// deterministic, so decide inline. A suspicious transaction is
			// rejected here and blocked when the screening write lands.
			if suspicious, _ := screening.Evaluate(s.policy, *tx); suspicious {
				return nil, fmt.Errorf("%w: transaction requires screening", ErrInvalidState)
			}
		}
		eligible = []domain.TransactionStatus{domain.StatusPending}

	default: // blocked, failed
		return nil, fmt.Errorf("%w: transaction is %s", ErrInvalidState, tx.Status)
	}

	return s.ledger.Commit(ctx, tx, eligible, providerRef)
}
