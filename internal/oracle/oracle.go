// Package oracle adapts the externally hosted question generation and
// answer grading service. The oracle is non-deterministic and slow; every
// call runs under a caller-supplied context and failures surface as
// ErrUnavailable rather than corrupting transaction state.
package oracle

import (
	"context"
	"errors"

	"txguardian/internal/domain"
)

// ErrUnavailable indicates the oracle could not be reached or did not answer
// in time. Callers must treat this as recoverable and must never interpret
// it as a passing grade.
var ErrUnavailable = errors.New("challenge oracle unavailable")

// QuestionContext carries the domain facts the oracle builds questions from:
// a summary of recent ledger activity plus the owner's profile facts.
type QuestionContext struct {
	RecentActivity []ActivityItem    `json:"recent_activity"`
	ProfileFacts   map[string]string `json:"profile_facts"`
}

// ActivityItem is one recent ledger entry, summarized for the oracle.
type ActivityItem struct {
	Vendor   string  `json:"merchant"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Date     string  `json:"transaction_date"`
}

// Oracle generates security questions from context and grades free-text
// answers against it.
type Oracle interface {
	// GenerateQuestions returns a non-empty ordered sequence of questions,
	// or ErrUnavailable.
	GenerateQuestions(ctx context.Context, qc QuestionContext) ([]domain.Question, error)
	// GradeAnswer judges a free-text answer. An ambiguous oracle response
	// yields VerdictIndeterminate; transport failures yield ErrUnavailable.
	GradeAnswer(ctx context.Context, q domain.Question, answer string) (domain.Verdict, error)
}
