// internal/models/report_test.go
package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{ReportStatusPending, ReportStatusVerified, true},
		{ReportStatusPending, ReportStatusInProgress, true},
		{ReportStatusPending, ReportStatusRejected, true},
		{ReportStatusPending, ReportStatusResolved, false},
		{ReportStatusVerified, ReportStatusInProgress, true},
		{ReportStatusVerified, ReportStatusResolved, true},
		{ReportStatusVerified, ReportStatusRejected, true},
		{ReportStatusVerified, ReportStatusPending, false},
		{ReportStatusInProgress, ReportStatusResolved, true},
		{ReportStatusInProgress, ReportStatusRejected, true},
		{ReportStatusInProgress, ReportStatusVerified, false},
		{ReportStatusResolved, ReportStatusInProgress, false},
		{ReportStatusResolved, ReportStatusRejected, false},
		{ReportStatusRejected, ReportStatusPending, false},
		{"UNKNOWN", ReportStatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(ReportStatusResolved))
	assert.True(t, IsTerminalStatus(ReportStatusRejected))
	assert.False(t, IsTerminalStatus(ReportStatusPending))
	assert.False(t, IsTerminalStatus(ReportStatusVerified))
	assert.False(t, IsTerminalStatus(ReportStatusInProgress))
	assert.False(t, IsTerminalStatus("UNKNOWN"))
}

func TestApplyStatus(t *testing.T) {
	official := primitive.NewObjectID()

	report := &Report{
		Status:    ReportStatusPending,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}

	ok := report.ApplyStatus(ReportStatusVerified, official, "confirmed on site")
	require.True(t, ok)
	assert.Equal(t, ReportStatusVerified, report.Status)
	require.Len(t, report.StatusHistory, 1)
	assert.Equal(t, ReportStatusVerified, report.StatusHistory[0].Status)
	assert.Equal(t, official, report.StatusHistory[0].ChangedBy)
	assert.Equal(t, "confirmed on site", report.StatusHistory[0].Note)
	assert.Nil(t, report.ResolvedAt)

	// Skipping straight to resolved from verified is allowed.
	ok = report.ApplyStatus(ReportStatusResolved, official, "fixed")
	require.True(t, ok)
	assert.Equal(t, ReportStatusResolved, report.Status)
	require.NotNil(t, report.ResolvedAt)
	assert.Len(t, report.StatusHistory, 2)
	assert.Greater(t, report.ResolutionTime(), time.Duration(0))

	// Terminal state: nothing moves anymore.
	ok = report.ApplyStatus(ReportStatusInProgress, official, "")
	assert.False(t, ok)
	assert.Equal(t, ReportStatusResolved, report.Status)
	assert.Len(t, report.StatusHistory, 2)
}

func TestApplyStatusInvalidTransitionLeavesReportUntouched(t *testing.T) {
	report := &Report{Status: ReportStatusPending}

	ok := report.ApplyStatus(ReportStatusResolved, primitive.NewObjectID(), "")

	assert.False(t, ok)
	assert.Equal(t, ReportStatusPending, report.Status)
	assert.Empty(t, report.StatusHistory)
	assert.Nil(t, report.ResolvedAt)
}

func TestAnonymize(t *testing.T) {
	reporterID := primitive.NewObjectID()
	report := &Report{
		ReporterID:  &reporterID,
		IsAnonymous: false,
	}

	report.Anonymize()

	assert.True(t, report.IsAnonymous)
	assert.Nil(t, report.ReporterID)
}

func TestUpvotes(t *testing.T) {
	report := &Report{}
	userA := primitive.NewObjectID()
	userB := primitive.NewObjectID()

	assert.True(t, report.AddUpvote(userA))
	assert.True(t, report.AddUpvote(userB))
	assert.Equal(t, 2, report.UpVoteCount)

	// Double vote is a no-op.
	assert.False(t, report.AddUpvote(userA))
	assert.Equal(t, 2, report.UpVoteCount)

	assert.True(t, report.RemoveUpvote(userA))
	assert.Equal(t, 1, report.UpVoteCount)
	assert.False(t, report.HasUserUpvoted(userA))
	assert.True(t, report.HasUserUpvoted(userB))

	// Removing a vote that is not there.
	assert.False(t, report.RemoveUpvote(userA))
	assert.Equal(t, 1, report.UpVoteCount)
}

func TestCanBeEditedBy(t *testing.T) {
	reporterID := primitive.NewObjectID()
	other := primitive.NewObjectID()

	report := &Report{
		ReporterID: &reporterID,
		Status:     ReportStatusPending,
	}

	assert.True(t, report.CanBeEditedBy(reporterID, false))
	assert.False(t, report.CanBeEditedBy(other, false))
	assert.True(t, report.CanBeEditedBy(other, true))

	// Terminal reports are frozen for the reporter but not for officials.
	report.Status = ReportStatusResolved
	assert.False(t, report.CanBeEditedBy(reporterID, false))
	assert.True(t, report.CanBeEditedBy(reporterID, true))

	// Anonymous reports have no owner to edit them.
	anonymous := &Report{Status: ReportStatusPending}
	anonymous.Anonymize()
	assert.False(t, anonymous.CanBeEditedBy(reporterID, false))
}

func TestCommentEditWindow(t *testing.T) {
	author := primitive.NewObjectID()
	other := primitive.NewObjectID()

	fresh := &ReportComment{
		AuthorID:  author,
		CreatedAt: time.Now().Add(-5 * time.Minute),
	}
	assert.True(t, fresh.CanBeEditedBy(author, false))
	assert.False(t, fresh.CanBeEditedBy(other, false))
	assert.True(t, fresh.CanBeEditedBy(other, true))

	stale := &ReportComment{
		AuthorID:  author,
		CreatedAt: time.Now().Add(-16 * time.Minute),
	}
	assert.False(t, stale.CanBeEditedBy(author, false))
	assert.True(t, stale.CanBeEditedBy(author, true))
}

func TestIsOfflineSubmission(t *testing.T) {
	for channel, offline := range map[string]bool{
		ChannelUSSD:     true,
		ChannelSMS:      true,
		ChannelKiosk:    true,
		ChannelWeb:      false,
		ChannelMobile:   false,
		ChannelWhatsApp: false,
	} {
		report := &Report{SubmissionChannel: channel}
		assert.Equal(t, offline, report.IsOfflineSubmission(), channel)
	}
}

func TestValidators(t *testing.T) {
	assert.True(t, IsValidCategory(ReportCategoryInfrastructure))
	assert.True(t, IsValidCategory(ReportCategoryCorruption))
	assert.False(t, IsValidCategory("POTHOLES"))

	assert.True(t, IsValidPriority(PriorityUrgent))
	assert.False(t, IsValidPriority("CRITICAL"))

	assert.True(t, IsValidStatus(ReportStatusInProgress))
	assert.False(t, IsValidStatus("OPEN"))
}
