// internal/models/service_request_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanTransitionRequest(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{RequestStatusPending, RequestStatusProcessing, true},
		{RequestStatusPending, RequestStatusRejected, true},
		{RequestStatusPending, RequestStatusApproved, false},
		{RequestStatusPending, RequestStatusCompleted, false},
		{RequestStatusProcessing, RequestStatusApproved, true},
		{RequestStatusProcessing, RequestStatusRejected, true},
		{RequestStatusApproved, RequestStatusCompleted, true},
		{RequestStatusApproved, RequestStatusRejected, false},
		{RequestStatusRejected, RequestStatusPending, false},
		{RequestStatusCompleted, RequestStatusApproved, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, CanTransitionRequest(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestServiceRequestApplyStatus(t *testing.T) {
	handler := primitive.NewObjectID()
	request := &ServiceRequest{Status: RequestStatusPending}

	ok := request.ApplyStatus(RequestStatusProcessing, handler, "documents verified")
	require.True(t, ok)
	assert.Equal(t, RequestStatusProcessing, request.Status)
	require.NotNil(t, request.HandledBy)
	assert.Equal(t, handler, *request.HandledBy)
	assert.Nil(t, request.CompletedAt)

	require.True(t, request.ApplyStatus(RequestStatusApproved, handler, ""))
	require.True(t, request.ApplyStatus(RequestStatusCompleted, handler, "certificate issued"))
	assert.NotNil(t, request.CompletedAt)

	// Completed is terminal.
	assert.False(t, request.ApplyStatus(RequestStatusProcessing, handler, ""))
}
