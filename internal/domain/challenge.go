package domain

import "time"

// Verdict is the three-valued result of grading a challenge answer.
// Indeterminate is never interpreted as a pass; verification fails closed.
type Verdict string

const (
	VerdictCorrect       Verdict = "correct"
	VerdictIncorrect     Verdict = "incorrect"
	VerdictIndeterminate Verdict = "indeterminate"
)

// Question is a natural-language security question together with the grading
// context the oracle needs to judge an answer. Context never leaves the
// server.
type Question struct {
	Text    string `json:"text"`
	Context string `json:"-"`
}

// ChallengeSet is one in-flight verification attempt for a blocked
// transaction. Ephemeral: regenerated per screening event, never persisted.
type ChallengeSet struct {
	ID            string     `json:"id"`
	TransactionID int64      `json:"transaction_id"`
	Questions     []Question `json:"questions"`
	// RequiredCorrect is always len(Questions): every answer must grade
	// correct for the challenge to pass.
	RequiredCorrect int       `json:"required_correct"`
	Attempts        int       `json:"attempts"`
	IssuedAt        time.Time `json:"issued_at"`
}
