// internal/models/proposal.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Proposal is a citizen policy or project suggestion reviewed by the state
// assembly or government house.
type Proposal struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AuthorID primitive.ObjectID `bson:"author_id" json:"author_id" validate:"required"`

	Title       string `bson:"title" json:"title" validate:"required,min=10,max=200"`
	Description string `bson:"description" json:"description" validate:"required,min=50"`
	Category    string `bson:"category" json:"category" validate:"required,oneof=ECONOMIC INFRASTRUCTURE EDUCATION HEALTH AGRICULTURE TECHNOLOGY OTHER"`
	Status      string `bson:"status" json:"status"`
	LGAID       primitive.ObjectID `bson:"lga_id" json:"lga_id" validate:"required"`

	Votes     []primitive.ObjectID `bson:"votes" json:"votes"`
	VoteCount int                  `bson:"vote_count" json:"vote_count"`

	ReviewedBy *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewNote string              `bson:"review_note,omitempty" json:"review_note,omitempty"`
	ReviewedAt *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Proposal categories
const (
	ProposalCategoryEconomic       = "ECONOMIC"
	ProposalCategoryInfrastructure = "INFRASTRUCTURE"
	ProposalCategoryEducation      = "EDUCATION"
	ProposalCategoryHealth         = "HEALTH"
	ProposalCategoryAgriculture    = "AGRICULTURE"
	ProposalCategoryTechnology     = "TECHNOLOGY"
	ProposalCategoryOther          = "OTHER"
)

// Proposal statuses
const (
	ProposalStatusDraft       = "DRAFT"
	ProposalStatusSubmitted   = "SUBMITTED"
	ProposalStatusUnderReview = "UNDER_REVIEW"
	ProposalStatusApproved    = "APPROVED"
	ProposalStatusRejected    = "REJECTED"
)

var proposalTransitions = map[string][]string{
	ProposalStatusDraft:       {ProposalStatusSubmitted},
	ProposalStatusSubmitted:   {ProposalStatusUnderReview, ProposalStatusRejected},
	ProposalStatusUnderReview: {ProposalStatusApproved, ProposalStatusRejected},
	ProposalStatusApproved:    {},
	ProposalStatusRejected:    {},
}

// CanTransitionProposal reports whether a proposal may move between statuses.
func CanTransitionProposal(from, to string) bool {
	for _, next := range proposalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (p *Proposal) HasUserVoted(userID primitive.ObjectID) bool {
	for _, voterID := range p.Votes {
		if voterID == userID {
			return true
		}
	}
	return false
}

func (p *Proposal) AddVote(userID primitive.ObjectID) bool {
	if p.HasUserVoted(userID) {
		return false
	}
	p.Votes = append(p.Votes, userID)
	p.VoteCount = len(p.Votes)
	p.UpdatedAt = time.Now()
	return true
}

func (p *Proposal) RemoveVote(userID primitive.ObjectID) bool {
	for i, voterID := range p.Votes {
		if voterID == userID {
			p.Votes = append(p.Votes[:i], p.Votes[i+1:]...)
			p.VoteCount = len(p.Votes)
			p.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// Review records an official decision on the proposal.
func (p *Proposal) Review(newStatus string, reviewer primitive.ObjectID, note string) bool {
	if !CanTransitionProposal(p.Status, newStatus) {
		return false
	}
	now := time.Now()
	p.Status = newStatus
	p.ReviewedBy = &reviewer
	p.ReviewNote = note
	p.ReviewedAt = &now
	p.UpdatedAt = now
	return true
}
