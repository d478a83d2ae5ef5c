package domain

import "time"

// Audit actions
const (
	AuditActionScreenClear     = "screen_clear"
	AuditActionScreenFlag      = "screen_flag"
	AuditActionChallengeIssued = "challenge_issued"
	AuditActionChallengePassed = "challenge_passed"
	AuditActionChallengeFailed = "challenge_failed"
	AuditActionApproved        = "approved"
	AuditActionVerifyExhausted = "verify_exhausted"
)

// Audit categories
const (
	AuditCategoryScreening    = "screening"
	AuditCategoryVerification = "verification"
	AuditCategoryLedger       = "ledger"
)

// AuditLog records a verification lifecycle event for later review.
type AuditLog struct {
	ID        int64                  `json:"id"`
	UserID    int64                  `json:"user_id"`
	Action    string                 `json:"action"`
	Category  string                 `json:"category"`
	Details   map[string]interface{} `json:"details,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
