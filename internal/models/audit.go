// internal/models/audit.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog records every mutating action on reports, payments, rewards and
// service requests. Entries are append-only.
type AuditLog struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    *primitive.ObjectID    `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Action    string                 `bson:"action" json:"action"`
	Entity    string                 `bson:"entity" json:"entity"`
	EntityID  primitive.ObjectID     `bson:"entity_id" json:"entity_id"`
	OldValue  map[string]interface{} `bson:"old_value,omitempty" json:"old_value,omitempty"`
	NewValue  map[string]interface{} `bson:"new_value,omitempty" json:"new_value,omitempty"`
	IPAddress string                 `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent string                 `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
}

// Audit actions
const (
	AuditReportCreated      = "Report Created"
	AuditReportUpdated      = "Report Updated"
	AuditStatusChanged      = "Status Changed"
	AuditReportAssigned     = "Report Assigned"
	AuditCommentAdded       = "Comment Added"
	AuditPaymentInitialized = "Payment Initialized"
	AuditPaymentVerified    = "Payment Verified"
	AuditRewardProcessed    = "Reward Processed"
	AuditRewardFailed       = "Reward Failed"
	AuditProposalReviewed   = "Proposal Reviewed"
	AuditRequestUpdated     = "Service Request Updated"
)
