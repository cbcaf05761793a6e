// internal/services/verifyme_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"abiahub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifyMeTestService(handler http.HandlerFunc) (*VerifyMeService, *httptest.Server) {
	server := httptest.NewServer(handler)
	cfg := &config.Config{
		VerifyMeBaseURL: server.URL,
		VerifyMeAPIKey:  "vm-test-key",
	}
	return NewVerifyMeService(cfg), server
}

func TestVerifyNIN(t *testing.T) {
	svc, server := newVerifyMeTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/verifications/identities/nin/12345678901", r.URL.Path)
		assert.Equal(t, "Bearer vm-test-key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ada", body["firstname"])
		assert.Equal(t, "Obi", body["lastname"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]string{
				"firstname": "Ada",
				"lastname":  "Obi",
				"birthdate": "1990-04-12",
			},
		})
	})
	defer server.Close()

	result, err := svc.VerifyNIN(context.Background(), "12345678901", "Ada", "Obi")
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, "Ada", result.FirstName)
	assert.Equal(t, "Obi", result.LastName)
	assert.Equal(t, "1990-04-12", result.BirthDate)
}

func TestVerifyNINNotFound(t *testing.T) {
	svc, server := newVerifyMeTestService(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"status": "failed"})
	})
	defer server.Close()

	// A registry miss is not a transport error, just an unverified identity.
	result, err := svc.VerifyNIN(context.Background(), "00000000000", "Ada", "Obi")
	require.NoError(t, err)
	assert.False(t, result.Verified)
}

func TestVerifyBVN(t *testing.T) {
	svc, server := newVerifyMeTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verifications/identities/bvn/22212345678", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data": map[string]string{
				"firstname": "Chinedu",
				"lastname":  "Eze",
			},
		})
	})
	defer server.Close()

	result, err := svc.VerifyBVN(context.Background(), "22212345678", "Chinedu", "Eze")
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, "Chinedu", result.FirstName)
}
