// internal/models/reward.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reward is airtime credited to a citizen for a qualifying action. Rewards
// are written as PENDING and picked up by the batch processor.
type Reward struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID        primitive.ObjectID `bson:"user_id" json:"user_id"`
	Amount        float64            `bson:"amount" json:"amount"`
	ActionType    string             `bson:"action_type" json:"action_type"`
	ReferenceID   primitive.ObjectID `bson:"reference_id" json:"reference_id"`
	ReferenceType string             `bson:"reference_type" json:"reference_type"`
	Status        string             `bson:"status" json:"status"`
	FailureReason string             `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	Attempts      int                `bson:"attempts" json:"attempts"`
	ProcessedAt   *time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// Reward action types
const (
	RewardActionReportSubmitted  = "REPORT_SUBMITTED"
	RewardActionReportResolved   = "REPORT_RESOLVED"
	RewardActionProposalSubmitted = "PROPOSAL_SUBMITTED"
	RewardActionProposalApproved = "PROPOSAL_APPROVED"
	RewardActionServiceFeedback  = "SERVICE_FEEDBACK"
)

// Reward statuses
const (
	RewardStatusPending    = "PENDING"
	RewardStatusProcessing = "PROCESSING"
	RewardStatusProcessed  = "PROCESSED"
	RewardStatusFailed     = "FAILED"
)

func (r *Reward) IsPending() bool {
	return r.Status == RewardStatusPending
}

func (r *Reward) MarkProcessed() {
	now := time.Now()
	r.Status = RewardStatusProcessed
	r.ProcessedAt = &now
	r.UpdatedAt = now
}

func (r *Reward) MarkFailed(reason string) {
	r.Status = RewardStatusFailed
	r.FailureReason = reason
	r.UpdatedAt = time.Now()
}
