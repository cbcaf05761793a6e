// internal/services/audit.go
package services

import (
	"context"
	"time"

	"abiahub/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type AuditService struct {
	logs *mongo.Collection
}

func NewAuditService(db *mongo.Database) *AuditService {
	return &AuditService{logs: db.Collection("audit_logs")}
}

// Record writes an audit entry. Audit failure must never fail the calling
// operation, so errors are logged and swallowed.
func (s *AuditService) Record(ctx context.Context, entry models.AuditLog) {
	entry.CreatedAt = time.Now()
	if _, err := s.logs.InsertOne(ctx, entry); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"action": entry.Action,
			"entity": entry.Entity,
		}).Error("failed to write audit log")
	}
}

// RecordChange is a convenience wrapper for status-like mutations.
func (s *AuditService) RecordChange(ctx context.Context, userID *primitive.ObjectID, action, entity string, entityID primitive.ObjectID, oldValue, newValue map[string]interface{}, ip, userAgent string) {
	s.Record(ctx, models.AuditLog{
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		OldValue:  oldValue,
		NewValue:  newValue,
		IPAddress: ip,
		UserAgent: userAgent,
	})
}
