package service

import (
	"context"
	"sync"
	"time"

	"txguardian/internal/domain"
	"txguardian/internal/oracle"
	"txguardian/internal/repository"

	"github.com/jackc/pgx/v5"
)

// In-memory store fakes. They reproduce the guarantees the pgx repositories
// get from Postgres: the screened_at write-once guard, compare-and-set status
// updates and the one-entry-per-transaction ledger constraint.

type fakeTxStore struct {
	mu     sync.Mutex
	nextID int64
	txs    map[int64]*domain.Transaction
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{txs: make(map[int64]*domain.Transaction)}
}

func (f *fakeTxStore) Create(_ context.Context, tx *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tx.ID = f.nextID
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt
	cp := *tx
	f.txs[tx.ID] = &cp
	return nil
}

func (f *fakeTxStore) GetByID(_ context.Context, id int64) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeTxStore) GetByUserID(_ context.Context, userID int64, limit int) ([]*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeTxStore) UpdateStatus(_ context.Context, id int64, from []domain.TransactionStatus, to domain.TransactionStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if tx.Status == s {
			tx.Status = to
			tx.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTxStore) MarkScreened(_ context.Context, id int64, suspicious bool, reason string, status domain.TransactionStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
	if !ok {
		return false, nil
	}
	if tx.ScreenedAt != nil || tx.Status != domain.StatusPending {
		return false, nil
	}
	now := time.Now()
	tx.ScreenedAt = &now
	tx.Suspicious = suspicious
	tx.ScreenReason = reason
	tx.Status = status
	tx.UpdatedAt = now
	return true, nil
}

type fakeLedgerStore struct {
	mu      sync.Mutex
	nextID  int64
	txs     *fakeTxStore
	entries map[int64]*domain.LedgerEntry
	byUser  map[int64][]*domain.LedgerEntry
}

func newFakeLedgerStore(txs *fakeTxStore) *fakeLedgerStore {
	return &fakeLedgerStore{
		txs:     txs,
		entries: make(map[int64]*domain.LedgerEntry),
		byUser:  make(map[int64][]*domain.LedgerEntry),
	}
}

func (f *fakeLedgerStore) Commit(ctx context.Context, txID int64, eligible []domain.TransactionStatus, providerRef *string) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx, err := f.txs.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if entry, ok := f.entries[txID]; ok {
		return entry, nil
	}

	ok := false
	for _, s := range eligible {
		if tx.Status == s {
			ok = true
			break
		}
	}
	if !ok {
		return nil, repository.ErrNotEligible
	}

	if _, err := f.txs.UpdateStatus(ctx, txID, eligible, domain.StatusApproved); err != nil {
		return nil, err
	}

	f.nextID++
	entry := &domain.LedgerEntry{
		ID:            f.nextID,
		TransactionID: txID,
		AmountCents:   tx.AmountCents,
		Vendor:        tx.Vendor,
		Category:      tx.Category,
		TxDate:        tx.TxDate,
		ProviderRef:   providerRef,
		ApprovedAt:    time.Now(),
	}
	f.entries[txID] = entry
	f.byUser[tx.UserID] = append(f.byUser[tx.UserID], entry)
	return entry, nil
}

func (f *fakeLedgerStore) GetByTransactionID(_ context.Context, txID int64) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[txID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return entry, nil
}

func (f *fakeLedgerStore) RecentByUser(_ context.Context, userID int64, limit int) ([]*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.byUser[userID]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (f *fakeLedgerStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []*domain.Notification
}

func (f *fakeNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.CreatedAt = time.Now()
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeNotificationStore) ListByUser(_ context.Context, userID int64, limit int) ([]*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, id string, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationStore) messages(userID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n.Message)
		}
	}
	return out
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[int64]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*domain.User)}
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

type fakeAuditStore struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func (f *fakeAuditStore) Create(_ context.Context, log *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, l := range f.logs {
		out = append(out, l.Action)
	}
	return out
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentEmail
}

func (f *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, body: body})
	return nil
}

func (f *fakeMailer) emails() []sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEmail(nil), f.sent...)
}

// fakeOracle grades answers from a fixed verdict table. Unknown answers are
// incorrect.
type fakeOracle struct {
	mu        sync.Mutex
	questions []domain.Question
	genErr    error
	genCalls  int
	verdicts  map[string]domain.Verdict
	gradeErr  error
}

func (f *fakeOracle) GenerateQuestions(_ context.Context, _ oracle.QuestionContext) ([]domain.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genCalls++
	if f.genErr != nil {
		return nil, f.genErr
	}
	return f.questions, nil
}

func (f *fakeOracle) GradeAnswer(_ context.Context, _ domain.Question, answer string) (domain.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gradeErr != nil {
		return "", f.gradeErr
	}
	if v, ok := f.verdicts[answer]; ok {
		return v, nil
	}
	return domain.VerdictIncorrect, nil
}

func (f *fakeOracle) generateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.genCalls
}
