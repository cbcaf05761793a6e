// internal/models/proposal_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanTransitionProposal(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{ProposalStatusDraft, ProposalStatusSubmitted, true},
		{ProposalStatusDraft, ProposalStatusApproved, false},
		{ProposalStatusSubmitted, ProposalStatusUnderReview, true},
		{ProposalStatusSubmitted, ProposalStatusRejected, true},
		{ProposalStatusSubmitted, ProposalStatusApproved, false},
		{ProposalStatusUnderReview, ProposalStatusApproved, true},
		{ProposalStatusUnderReview, ProposalStatusRejected, true},
		{ProposalStatusApproved, ProposalStatusRejected, false},
		{ProposalStatusRejected, ProposalStatusSubmitted, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, CanTransitionProposal(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestProposalReview(t *testing.T) {
	reviewer := primitive.NewObjectID()
	proposal := &Proposal{Status: ProposalStatusSubmitted}

	ok := proposal.Review(ProposalStatusUnderReview, reviewer, "forwarded to committee")
	require.True(t, ok)
	assert.Equal(t, ProposalStatusUnderReview, proposal.Status)
	require.NotNil(t, proposal.ReviewedBy)
	assert.Equal(t, reviewer, *proposal.ReviewedBy)
	assert.Equal(t, "forwarded to committee", proposal.ReviewNote)
	assert.NotNil(t, proposal.ReviewedAt)

	ok = proposal.Review(ProposalStatusApproved, reviewer, "approved")
	require.True(t, ok)
	assert.Equal(t, ProposalStatusApproved, proposal.Status)

	// Approved is terminal.
	ok = proposal.Review(ProposalStatusRejected, reviewer, "")
	assert.False(t, ok)
	assert.Equal(t, ProposalStatusApproved, proposal.Status)
}

func TestProposalVotes(t *testing.T) {
	proposal := &Proposal{}
	voter := primitive.NewObjectID()

	assert.True(t, proposal.AddVote(voter))
	assert.Equal(t, 1, proposal.VoteCount)
	assert.True(t, proposal.HasUserVoted(voter))

	assert.False(t, proposal.AddVote(voter))
	assert.Equal(t, 1, proposal.VoteCount)

	assert.True(t, proposal.RemoveVote(voter))
	assert.Equal(t, 0, proposal.VoteCount)
	assert.False(t, proposal.RemoveVote(voter))
}
