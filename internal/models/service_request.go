// internal/models/service_request.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service is an entry in the government service catalog, e.g. certificate of
// origin or business premises registration.
type Service struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name              string             `bson:"name" json:"name" validate:"required,max=200"`
	Description       string             `bson:"description" json:"description" validate:"required"`
	Category          string             `bson:"category" json:"category" validate:"required,oneof=CERTIFICATE PERMIT REGISTRATION TAX GRANT OTHER"`
	Fee               float64            `bson:"fee" json:"fee"`
	ProcessingDays    int                `bson:"processing_days" json:"processing_days"`
	RequiredDocuments []string           `bson:"required_documents" json:"required_documents"`
	IsActive          bool               `bson:"is_active" json:"is_active"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// ServiceRequest is a citizen application for a catalog service.
type ServiceRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	ServiceID   primitive.ObjectID `bson:"service_id" json:"service_id" validate:"required"`
	ApplicantID primitive.ObjectID `bson:"applicant_id" json:"applicant_id"`
	LGAID       primitive.ObjectID `bson:"lga_id" json:"lga_id" validate:"required"`

	Details   string   `bson:"details" json:"details" validate:"required,min=20"`
	Documents []string `bson:"documents" json:"documents"`

	Status        string              `bson:"status" json:"status"`
	HandledBy     *primitive.ObjectID `bson:"handled_by,omitempty" json:"handled_by,omitempty"`
	DecisionNote  string              `bson:"decision_note,omitempty" json:"decision_note,omitempty"`

	// Payment mirrors the report payment fields; fee collection goes through
	// the same Flutterwave path.
	PaymentStatus string     `bson:"payment_status" json:"payment_status"`
	PaymentAmount float64    `bson:"payment_amount,omitempty" json:"payment_amount,omitempty"`
	TxRef         string     `bson:"tx_ref,omitempty" json:"tx_ref,omitempty"`
	TransactionID string     `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	PaymentDate   *time.Time `bson:"payment_date,omitempty" json:"payment_date,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	DeletedAt   *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Service categories
const (
	ServiceCategoryCertificate  = "CERTIFICATE"
	ServiceCategoryPermit       = "PERMIT"
	ServiceCategoryRegistration = "REGISTRATION"
	ServiceCategoryTax          = "TAX"
	ServiceCategoryGrant        = "GRANT"
	ServiceCategoryOther        = "OTHER"
)

// Service request statuses
const (
	RequestStatusPending    = "PENDING"
	RequestStatusProcessing = "PROCESSING"
	RequestStatusApproved   = "APPROVED"
	RequestStatusRejected   = "REJECTED"
	RequestStatusCompleted  = "COMPLETED"
)

var requestTransitions = map[string][]string{
	RequestStatusPending:    {RequestStatusProcessing, RequestStatusRejected},
	RequestStatusProcessing: {RequestStatusApproved, RequestStatusRejected},
	RequestStatusApproved:   {RequestStatusCompleted},
	RequestStatusRejected:   {},
	RequestStatusCompleted:  {},
}

// CanTransitionRequest reports whether a service request may move between
// statuses.
func CanTransitionRequest(from, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (sr *ServiceRequest) ApplyStatus(newStatus string, handler primitive.ObjectID, note string) bool {
	if !CanTransitionRequest(sr.Status, newStatus) {
		return false
	}
	now := time.Now()
	sr.Status = newStatus
	sr.HandledBy = &handler
	sr.DecisionNote = note
	sr.UpdatedAt = now
	if newStatus == RequestStatusCompleted {
		sr.CompletedAt = &now
	}
	return true
}
