package service

import (
	"context"

	"txguardian/internal/domain"
	"txguardian/internal/logger"
)

// AuditService records verification lifecycle events. Failures are logged,
// never surfaced: auditing must not fail a transition.
type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	if s == nil || s.store == nil {
		return
	}

	entry := &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.store.Create(ctx, entry); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogScreening records a screening decision for a transaction
func (s *AuditService) LogScreening(ctx context.Context, userID, txID int64, suspicious bool, reason string) {
	action := domain.AuditActionScreenClear
	if suspicious {
		action = domain.AuditActionScreenFlag
	}
	s.Log(ctx, userID, action, domain.AuditCategoryScreening, map[string]interface{}{
		"transaction_id": txID,
		"reason":         reason,
	})
}

// LogChallenge records a challenge lifecycle event for a transaction
func (s *AuditService) LogChallenge(ctx context.Context, userID, txID int64, action string, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["transaction_id"] = txID
	s.Log(ctx, userID, action, domain.AuditCategoryVerification, details)
}
