// internal/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Report struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	ReporterID *primitive.ObjectID `bson:"reporter_id,omitempty" json:"reporter_id,omitempty"`

	// Core fields
	Title       string `bson:"title" json:"title" validate:"required,min=10,max=200"`
	Description string `bson:"description" json:"description" validate:"required,min=50"`
	Category    string `bson:"category" json:"category" validate:"required,oneof=INFRASTRUCTURE SECURITY HEALTH EDUCATION ENVIRONMENT UTILITIES CORRUPTION OTHER"`
	Priority    string `bson:"priority" json:"priority" validate:"oneof=LOW MEDIUM HIGH URGENT"`
	Status      string `bson:"status" json:"status"`

	// Location
	Location *Location          `bson:"location,omitempty" json:"location,omitempty"`
	Address  string             `bson:"address" json:"address" validate:"required"`
	LGAID    primitive.ObjectID `bson:"lga_id" json:"lga_id" validate:"required"`
	Landmark string             `bson:"landmark,omitempty" json:"landmark,omitempty"`

	// Media
	Images     []string `bson:"images" json:"images"`
	Videos     []string `bson:"videos" json:"videos"`
	VoiceNotes []string `bson:"voice_notes" json:"voice_notes"`

	// Submission
	IsAnonymous        bool   `bson:"is_anonymous" json:"is_anonymous"`
	SubmissionChannel  string `bson:"submission_channel" json:"submission_channel"`
	SubmissionLanguage string `bson:"submission_language" json:"submission_language"`
	OriginalText       string `bson:"original_text,omitempty" json:"original_text,omitempty"`
	// ReporterPhone is set for USSD/SMS submissions, which have no account.
	ReporterPhone string `bson:"reporter_phone,omitempty" json:"-"`

	// Handling
	AssignedTo     *primitive.ObjectID `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	AssignedDept   string              `bson:"assigned_dept,omitempty" json:"assigned_dept,omitempty"`
	ResolutionNote string              `bson:"resolution_note,omitempty" json:"resolution_note,omitempty"`
	StatusHistory  []StatusChange      `bson:"status_history" json:"status_history"`

	// Citizen interaction
	UpVotes     []primitive.ObjectID `bson:"upvotes" json:"upvotes"`
	UpVoteCount int                  `bson:"upvote_count" json:"upvote_count"`
	Comments    []ReportComment      `bson:"comments" json:"comments"`
	Subscribers []primitive.ObjectID `bson:"subscribers" json:"subscribers"`
	ViewCount   int                  `bson:"view_count" json:"view_count"`

	// Payment
	PaymentStatus string     `bson:"payment_status" json:"payment_status"`
	PaymentAmount float64    `bson:"payment_amount,omitempty" json:"payment_amount,omitempty"`
	TxRef         string     `bson:"tx_ref,omitempty" json:"tx_ref,omitempty"`
	TransactionID string     `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	PaymentDate   *time.Time `bson:"payment_date,omitempty" json:"payment_date,omitempty"`

	// Timestamps. Reports are never hard-deleted; DeletedAt marks retirement.
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	DeletedAt  *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

type ReportComment struct {
	ID         primitive.ObjectID `bson:"id" json:"id"`
	AuthorID   primitive.ObjectID `bson:"author_id" json:"author_id"`
	Content    string             `bson:"content" json:"content"`
	IsOfficial bool               `bson:"is_official" json:"is_official"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

type StatusChange struct {
	Status    string             `bson:"status" json:"status"`
	ChangedBy primitive.ObjectID `bson:"changed_by" json:"changed_by"`
	ChangedAt time.Time          `bson:"changed_at" json:"changed_at"`
	Note      string             `bson:"note,omitempty" json:"note,omitempty"`
}

// Report categories
const (
	ReportCategoryInfrastructure = "INFRASTRUCTURE"
	ReportCategorySecurity       = "SECURITY"
	ReportCategoryHealth         = "HEALTH"
	ReportCategoryEducation      = "EDUCATION"
	ReportCategoryEnvironment    = "ENVIRONMENT"
	ReportCategoryUtilities      = "UTILITIES"
	ReportCategoryCorruption     = "CORRUPTION"
	ReportCategoryOther          = "OTHER"
)

// Report statuses
const (
	ReportStatusPending    = "PENDING"
	ReportStatusVerified   = "VERIFIED"
	ReportStatusInProgress = "IN_PROGRESS"
	ReportStatusResolved   = "RESOLVED"
	ReportStatusRejected   = "REJECTED"
)

// Priorities
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Payment statuses
const (
	PaymentNotRequired = "NOT_REQUIRED"
	PaymentPending     = "PENDING"
	PaymentPaid        = "PAID"
	PaymentFailed      = "FAILED"
	PaymentRefunded    = "REFUNDED"
)

// Submission channels
const (
	ChannelWeb      = "WEB"
	ChannelMobile   = "MOBILE"
	ChannelUSSD     = "USSD"
	ChannelSMS      = "SMS"
	ChannelWhatsApp = "WHATSAPP"
	ChannelKiosk    = "KIOSK"
	ChannelVoice    = "VOICE"
)

// allowedTransitions encodes the monotonic report workflow. Terminal states
// have no outgoing edges.
var allowedTransitions = map[string][]string{
	ReportStatusPending:    {ReportStatusVerified, ReportStatusInProgress, ReportStatusRejected},
	ReportStatusVerified:   {ReportStatusInProgress, ReportStatusResolved, ReportStatusRejected},
	ReportStatusInProgress: {ReportStatusResolved, ReportStatusRejected},
	ReportStatusResolved:   {},
	ReportStatusRejected:   {},
}

// IsValidStatus reports whether s is a known report status.
func IsValidStatus(s string) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether a report may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(s string) bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

func IsValidCategory(c string) bool {
	switch c {
	case ReportCategoryInfrastructure, ReportCategorySecurity, ReportCategoryHealth,
		ReportCategoryEducation, ReportCategoryEnvironment, ReportCategoryUtilities,
		ReportCategoryCorruption, ReportCategoryOther:
		return true
	}
	return false
}

func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func (r *Report) IsResolved() bool {
	return r.Status == ReportStatusResolved
}

func (r *Report) IsDeleted() bool {
	return r.DeletedAt != nil
}

func (r *Report) HasUserUpvoted(userID primitive.ObjectID) bool {
	for _, voterID := range r.UpVotes {
		if voterID == userID {
			return true
		}
	}
	return false
}

func (r *Report) HasSubscriber(userID primitive.ObjectID) bool {
	for _, subscriberID := range r.Subscribers {
		if subscriberID == userID {
			return true
		}
	}
	return false
}

func (r *Report) AddUpvote(userID primitive.ObjectID) bool {
	if r.HasUserUpvoted(userID) {
		return false
	}
	r.UpVotes = append(r.UpVotes, userID)
	r.UpVoteCount = len(r.UpVotes)
	r.UpdatedAt = time.Now()
	return true
}

func (r *Report) RemoveUpvote(userID primitive.ObjectID) bool {
	for i, voterID := range r.UpVotes {
		if voterID == userID {
			r.UpVotes = append(r.UpVotes[:i], r.UpVotes[i+1:]...)
			r.UpVoteCount = len(r.UpVotes)
			r.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// ApplyStatus moves the report to a new status, appending to the history.
// Returns false when the transition is not allowed by the workflow.
func (r *Report) ApplyStatus(newStatus string, changedBy primitive.ObjectID, note string) bool {
	if !CanTransition(r.Status, newStatus) {
		return false
	}
	now := time.Now()
	r.Status = newStatus
	r.UpdatedAt = now
	if newStatus == ReportStatusResolved {
		r.ResolvedAt = &now
	}
	r.StatusHistory = append(r.StatusHistory, StatusChange{
		Status:    newStatus,
		ChangedBy: changedBy,
		ChangedAt: now,
		Note:      note,
	})
	return true
}

// Anonymize strips the reporter identity. Anonymous reports must never carry
// a reporter reference, whatever the caller supplied.
func (r *Report) Anonymize() {
	r.IsAnonymous = true
	r.ReporterID = nil
}

// ResolutionTime returns how long the report took to resolve, or zero when it
// is still open.
func (r *Report) ResolutionTime() time.Duration {
	if r.IsResolved() && r.ResolvedAt != nil {
		return r.ResolvedAt.Sub(r.CreatedAt)
	}
	return 0
}

func (r *Report) CanBeEditedBy(userID primitive.ObjectID, isOfficial bool) bool {
	if isOfficial {
		return true
	}
	if r.ReporterID == nil {
		return false
	}
	return *r.ReporterID == userID && !IsTerminalStatus(r.Status)
}

func (r *Report) IsOfflineSubmission() bool {
	switch r.SubmissionChannel {
	case ChannelUSSD, ChannelSMS, ChannelKiosk:
		return true
	}
	return false
}

func (c *ReportComment) CanBeEditedBy(userID primitive.ObjectID, isOfficial bool) bool {
	if isOfficial {
		return true
	}
	// Authors get a 15 minute window to fix typos.
	if c.AuthorID == userID {
		return time.Since(c.CreatedAt) < 15*time.Minute
	}
	return false
}
