package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"txguardian/internal/domain"
	"txguardian/internal/oracle"
	"txguardian/internal/screening"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc    *VerificationService
	txs    *fakeTxStore
	ledger *fakeLedgerStore
	notifs *fakeNotificationStore
	users  *fakeUserStore
	audit  *fakeAuditStore
	oracle *fakeOracle
	mailer *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	txs := newFakeTxStore()
	ledgerStore := newFakeLedgerStore(txs)
	notifStore := &fakeNotificationStore{}
	users := newFakeUserStore()
	auditStore := &fakeAuditStore{}
	orc := &fakeOracle{
		questions: []domain.Question{
			{Text: "What city were you born in?", Context: "Springfield"},
			{Text: "What was your first pet's name?", Context: "Rex"},
		},
		verdicts: map[string]domain.Verdict{
			"Springfield": domain.VerdictCorrect,
			"Rex":         domain.VerdictCorrect,
			"maybe":       domain.VerdictIndeterminate,
		},
	}

	users.users[1] = &domain.User{
		ID: 1, Email: "test@example.com", FirstName: "Test",
		BirthCity: "Springfield", FirstPetName: "Rex",
	}

	mailer := &fakeMailer{}
	audit := NewAuditService(auditStore)
	notifier := NewNotificationService(notifStore, nil)
	emails := NewEmailService(mailer, users)
	ledger := NewLedgerService(ledgerStore, notifier, emails, audit)

	svc := NewVerificationService(txs, users, ledgerStore, ledger, orc, notifier, emails, audit,
		VerificationConfig{Policy: screening.DefaultPolicy()})

	return &testEnv{
		svc: svc, txs: txs, ledger: ledgerStore, notifs: notifStore,
		users: users, audit: auditStore, oracle: orc, mailer: mailer,
	}
}

func (e *testEnv) seedTx(t *testing.T, cents int64, vendor string) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		UserID:      1,
		AmountCents: cents,
		Vendor:      vendor,
		Category:    "shopping",
		TxDate:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Status:      domain.StatusPending,
	}
	require.NoError(t, e.txs.Create(context.Background(), tx))
	return tx
}

func correctAnswers() map[string]string {
	return map[string]string{
		"What city were you born in?":     "Springfield",
		"What was your first pet's name?": "Rex",
	}
}

func wrongAnswers() map[string]string {
	return map[string]string{
		"What city were you born in?":     "Shelbyville",
		"What was your first pet's name?": "Rex",
	}
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := env.svc.Create(ctx, 1, -5, "amazon", "shopping", date)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Create(ctx, 1, 1.005, "amazon", "shopping", date)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Create(ctx, 1, 50, "", "shopping", date)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Create(ctx, 1, 50, "amazon", "", date)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Create(ctx, 1, 50, "amazon", "shopping", time.Time{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	tx, err := env.svc.Create(ctx, 1, 49.99, "amazon", "shopping", date)
	require.NoError(t, err)
	assert.Equal(t, int64(4999), tx.AmountCents)
	assert.Equal(t, domain.StatusPending, tx.Status)
}

func TestScreenClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 4000, "amazon")

	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.True(t, got.Screened())
	assert.False(t, got.Suspicious)
	assert.Equal(t, screening.ReasonNormal, got.ScreenReason)

	assert.Empty(t, env.notifs.messages(1))
	assert.Equal(t, []string{domain.AuditActionScreenClear}, env.audit.actions())
}

func TestScreenHighAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")

	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, got.Status)
	assert.True(t, got.Suspicious)
	assert.Equal(t, screening.ReasonHighAmount, got.ScreenReason)

	msgs := env.notifs.messages(1)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "temporarily locked")
	assert.Contains(t, msgs[0], screening.ReasonHighAmount)

	// Challenge is pre-generated on block.
	assert.Equal(t, 1, env.oracle.generateCalls())
	set, err := env.svc.RequestVerification(ctx, tx.ID)
	require.NoError(t, err)
	assert.Len(t, set.Questions, 2)
	assert.Equal(t, 1, env.oracle.generateCalls(), "cached challenge should be reused")
}

func TestScreenBlocklistedVendor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 1000, "Fraud_Shop")

	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, got.Status)
	assert.Equal(t, screening.ReasonSuspiciousMerchant, got.ScreenReason)
}

func TestScreenIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")

	require.NoError(t, env.svc.Screen(ctx, tx.ID))
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	assert.Len(t, env.notifs.messages(1), 1, "duplicate screening must not re-notify")
	assert.Equal(t, 1, env.oracle.generateCalls())

	flags := 0
	for _, a := range env.audit.actions() {
		if a == domain.AuditActionScreenFlag {
			flags++
		}
	}
	assert.Equal(t, 1, flags)
}

func TestVerifyAndApproveFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "electronics_store")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	_, err := env.svc.Approve(ctx, tx.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidState, "blocked transaction must not commit")

	res, err := env.svc.SubmitAnswers(ctx, tx.ID, correctAnswers())
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, 2, res.Correct)

	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, got.Status)

	ref := "prov-123"
	entry, err := env.svc.Approve(ctx, tx.ID, &ref)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, entry.TransactionID)
	assert.Equal(t, int64(600000), entry.AmountCents)
	assert.Equal(t, "electronics_store", entry.Vendor)
	require.NotNil(t, entry.ProviderRef)
	assert.Equal(t, "prov-123", *entry.ProviderRef)

	got, err = env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)

	// Approving again returns the same entry, no duplicate.
	again, err := env.svc.Approve(ctx, tx.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID)
	assert.Equal(t, 1, env.ledger.count())
}

func TestSubmitWrongAnswersConsumesAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	res, err := env.svc.SubmitAnswers(ctx, tx.ID, wrongAnswers())
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.False(t, res.Failed)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 2, res.Required)

	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, got.Status)

	set, err := env.svc.RequestVerification(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Attempts)
}

func TestIndeterminateVerdictFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	answers := map[string]string{
		"What city were you born in?":     "maybe",
		"What was your first pet's name?": "Rex",
	}
	res, err := env.svc.SubmitAnswers(ctx, tx.ID, answers)
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, 1, res.Correct)

	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, got.Status)
}

func TestOracleOutageConsumesNoAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	env.oracle.mu.Lock()
	env.oracle.gradeErr = oracle.ErrUnavailable
	env.oracle.mu.Unlock()

	_, err := env.svc.SubmitAnswers(ctx, tx.ID, correctAnswers())
	assert.ErrorIs(t, err, oracle.ErrUnavailable)

	set, err := env.svc.RequestVerification(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Attempts, "outage must not count against the owner")

	// Oracle recovers, answers still work.
	env.oracle.mu.Lock()
	env.oracle.gradeErr = nil
	env.oracle.mu.Unlock()

	res, err := env.svc.SubmitAnswers(ctx, tx.ID, correctAnswers())
	require.NoError(t, err)
	assert.True(t, res.Verified)
}

func TestAttemptExhaustionDeclines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	for i := 0; i < 2; i++ {
		res, err := env.svc.SubmitAnswers(ctx, tx.ID, wrongAnswers())
		require.NoError(t, err)
		assert.False(t, res.Failed)
	}

	res, err := env.svc.SubmitAnswers(ctx, tx.ID, wrongAnswers())
	require.NoError(t, err)
	assert.True(t, res.Failed)

	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)

	// Terminal: no further verification or approval.
	_, err = env.svc.SubmitAnswers(ctx, tx.ID, correctAnswers())
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = env.svc.Approve(ctx, tx.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	msgs := env.notifs.messages(1)
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[len(msgs)-1], "declined")
}

func TestBlockSendsVerificationEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")

	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	sent := env.mailer.emails()
	require.Len(t, sent, 1)
	assert.Equal(t, "test@example.com", sent[0].to)
	assert.Contains(t, sent[0].subject, "Verification Required")
	assert.Contains(t, sent[0].body, screening.ReasonHighAmount)
	assert.Contains(t, sent[0].body, "temporarily locked")
}

func TestApprovalSendsEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 4000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	ref := "prov-789"
	_, err := env.svc.Approve(ctx, tx.ID, &ref)
	require.NoError(t, err)

	sent := env.mailer.emails()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].subject, "Transaction Approved")
	assert.Contains(t, sent[0].subject, "amazon")
	assert.Contains(t, sent[0].body, "Payment Reference: prov-789")
}

func TestEmailFailureDoesNotFailTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mailer.mu.Lock()
	env.mailer.err = errors.New("smtp down")
	env.mailer.mu.Unlock()

	blocked := env.seedTx(t, 600000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, blocked.ID))
	got, err := env.svc.Get(ctx, blocked.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusBlocked, got.Status)

	clear := env.seedTx(t, 4000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, clear.ID))
	_, err = env.svc.Approve(ctx, clear.ID, nil)
	require.NoError(t, err)
}

func TestChallengeViewIsDetached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	set, err := env.svc.RequestVerification(ctx, tx.ID)
	require.NoError(t, err)

	// A caller scribbling on the returned set must not affect grading.
	set.Attempts = 99
	set.Questions[0].Text = "tampered"

	res, err := env.svc.SubmitAnswers(ctx, tx.ID, correctAnswers())
	require.NoError(t, err)
	assert.True(t, res.Verified)
}

func TestSubmitWithoutChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 1000, "amazon")

	// Force blocked without going through Screen, so no challenge is cached.
	_, err := env.txs.UpdateStatus(ctx, tx.ID, []domain.TransactionStatus{domain.StatusPending}, domain.StatusBlocked)
	require.NoError(t, err)

	_, err = env.svc.SubmitAnswers(ctx, tx.ID, correctAnswers())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRequestVerificationOnNonBlocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 1000, "amazon")

	_, err := env.svc.RequestVerification(ctx, tx.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveScreenedClearPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 4000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	entry, err := env.svc.Approve(ctx, tx.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, entry.TransactionID)

	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)

	msgs := env.notifs.messages(1)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "completed and sent to vendor amazon")
}

func TestApproveBeforeScreeningLands(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Clear transaction, screening not yet landed: the deterministic rules
	// make it safe to approve inline.
	clear := env.seedTx(t, 4000, "amazon")
	entry, err := env.svc.Approve(ctx, clear.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, clear.ID, entry.TransactionID)

	// Suspicious transaction must wait for the screening write.
	sus := env.seedTx(t, 600000, "amazon")
	_, err = env.svc.Approve(ctx, sus.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestScreeningLandsAfterInlineApprove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 4000, "amazon")

	_, err := env.svc.Approve(ctx, tx.ID, nil)
	require.NoError(t, err)

	// The async screening write arrives late; it must not touch the
	// approved row.
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
}

func TestApproveNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Approve(context.Background(), 9999, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentApproveSingleEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 4000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	const n = 8
	entries := make([]*domain.LedgerEntry, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := env.svc.Approve(ctx, tx.ID, nil)
			if err == nil {
				entries[i] = entry
			} else if !errors.Is(err, ErrInvalidState) {
				t.Errorf("unexpected approve error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, env.ledger.count())
	var first *domain.LedgerEntry
	for _, e := range entries {
		if e == nil {
			continue
		}
		if first == nil {
			first = e
			continue
		}
		assert.Equal(t, first.ID, e.ID, "all successful approvals must see the same entry")
	}
	require.NotNil(t, first, "at least one approval must succeed")
}

func TestConcurrentSubmitSingleTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	var wg sync.WaitGroup
	verified := 0
	var mu sync.Mutex
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.svc.SubmitAnswers(ctx, tx.ID, correctAnswers())
			if err == nil && res.Verified {
				mu.Lock()
				verified++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, verified, "only one submission can move blocked to verified")
	got, err := env.svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusVerified, got.Status)
}

func TestUnansweredQuestionIsIncorrect(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tx := env.seedTx(t, 600000, "amazon")
	require.NoError(t, env.svc.Screen(ctx, tx.ID))

	res, err := env.svc.SubmitAnswers(ctx, tx.ID, map[string]string{
		"What city were you born in?": "Springfield",
	})
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 2, res.Required)
}
