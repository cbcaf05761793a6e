// internal/services/africastalking_test.go
package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newATTestService(handler http.HandlerFunc) (*AfricasTalkingService, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := resty.New().
		SetBaseURL(server.URL).
		SetTimeout(5 * time.Second).
		SetHeader("apiKey", "at-test-key").
		SetHeader("Accept", "application/json")

	svc := &AfricasTalkingService{
		client:   client,
		username: "sandbox",
		senderID: "ABIAHUB",
	}
	return svc, server
}

func TestSendSMS(t *testing.T) {
	svc, server := newATTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/version1/messaging", r.URL.Path)
		assert.Equal(t, "at-test-key", r.Header.Get("apiKey"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "sandbox", r.PostForm.Get("username"))
		assert.Equal(t, "+2348031234567", r.PostForm.Get("to"))
		assert.Equal(t, "ABIAHUB", r.PostForm.Get("from"))
		assert.Equal(t, "test message", r.PostForm.Get("message"))

		w.WriteHeader(http.StatusCreated)
	})
	defer server.Close()

	// Local-format numbers get normalized before hitting the gateway.
	err := svc.SendSMS(context.Background(), "08031234567", "test message")
	assert.NoError(t, err)
}

func TestSendSMSInvalidNumber(t *testing.T) {
	svc, server := newATTestService(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called for an invalid number")
	})
	defer server.Close()

	err := svc.SendSMS(context.Background(), "12345", "test")
	assert.Error(t, err)
}

func TestSendAirtime(t *testing.T) {
	svc, server := newATTestService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/version1/airtime/send", r.URL.Path)

		require.NoError(t, r.ParseForm())
		recipients := r.PostForm.Get("recipients")
		assert.Contains(t, recipients, `"phoneNumber":"+2348031234567"`)
		assert.Contains(t, recipients, `"amount":"NGN 100.00"`)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"responses": []map[string]string{{"status": "Sent"}},
		})
	})
	defer server.Close()

	err := svc.SendAirtime(context.Background(), "08031234567", 100)
	assert.NoError(t, err)
}

func TestSendAirtimeRejected(t *testing.T) {
	svc, server := newATTestService(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"responses": []map[string]string{{
				"status":       "Failed",
				"errorMessage": "Insufficient balance",
			}},
		})
	})
	defer server.Close()

	err := svc.SendAirtime(context.Background(), "08031234567", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient balance")
}

func TestCategoryMenu(t *testing.T) {
	menu := categoryMenu()
	lines := strings.Split(menu, "\n")

	require.Len(t, lines, len(ussdCategories))
	assert.Equal(t, "1. Roads/Infrastructure", lines[0])
	assert.Equal(t, "7. Other", lines[6])
	assert.False(t, strings.HasSuffix(menu, "\n"))
}

func TestParseSMSReport(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		category    string
		description string
		ok          bool
	}{
		{"known category", "REPORT SECURITY armed robbery near Ariaria gate", "SECURITY", "armed robbery near Ariaria gate", true},
		{"lowercase command and category", "report health no nurses at the clinic", "HEALTH", "no nurses at the clinic", true},
		{"unknown category folds into description", "REPORT pothole on Aba road", "OTHER", "pothole on Aba road", true},
		{"not a command", "hello there", "", "", false},
		{"command without description", "REPORT SECURITY", "", "", false},
		{"description too short", "REPORT SECURITY bad", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, description, ok := ParseSMSReport(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.description, description)
		})
	}
}

func TestHandleInboundSMSIgnoresNonCommands(t *testing.T) {
	svc, server := newATTestService(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called for ignored messages")
	})
	defer server.Close()

	// Chatter that is not a report command is dropped without a reply.
	report, err := svc.HandleInboundSMS(context.Background(), "08031234567", "hello is this working")
	assert.NoError(t, err)
	assert.Nil(t, report)
}

func TestHandleInboundSMSRejectsBadSender(t *testing.T) {
	svc, server := newATTestService(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway must not be called for an invalid sender")
	})
	defer server.Close()

	_, err := svc.HandleInboundSMS(context.Background(), "12345", "REPORT SECURITY armed robbery at the park")
	assert.Error(t, err)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Infrastructure", titleCase("INFRASTRUCTURE"))
	assert.Equal(t, "Health", titleCase("health"))
	assert.Equal(t, "", titleCase(""))
}
