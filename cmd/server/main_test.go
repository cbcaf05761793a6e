// cmd/server/main_test.go
package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDetailPath(t *testing.T) {
	tests := []struct {
		path   string
		detail bool
	}{
		{"/api/v1/reports/68b0f1c2a3d4e5f601234567", true},
		{"/api/v1/proposals/68b0f1c2a3d4e5f601234567", true},
		{"/api/v1/reports", false},
		{"/api/v1/reports/nearby", false},
		{"/api/v1/reports/68b0f1c2a3d4e5f601234567/similar", false},
		{"/api/v1/lgas/68b0f1c2a3d4e5f601234567/wards", false},
		{"/api/v1/lgas/68b0f1c2a3d4e5f601234567/landmarks", false},
		{"/api/v1/lgas", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.detail, isDetailPath(tt.path), tt.path)
	}
}
