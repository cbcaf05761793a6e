// internal/services/flutterwave.go
package services

import (
	"context"
	"fmt"
	"time"

	"abiahub/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// FlutterwaveService wraps the Flutterwave v3 payments API. All amounts
// are in NGN.
type FlutterwaveService struct {
	client    *resty.Client
	secretKey string
	baseURL   string
}

type PaymentInitRequest struct {
	TxRef       string  `json:"tx_ref"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	RedirectURL string  `json:"redirect_url"`
	Customer    struct {
		Email       string `json:"email"`
		PhoneNumber string `json:"phonenumber,omitempty"`
		Name        string `json:"name"`
	} `json:"customer"`
	Customizations struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"customizations"`
}

type paymentInitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type PaymentVerification struct {
	TransactionID string
	TxRef         string
	Amount        float64
	Currency      string
	Status        string
}

type verifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
		Status   string  `json:"status"`
	} `json:"data"`
}

func NewFlutterwaveService(cfg *config.Config) *FlutterwaveService {
	client := resty.New().
		SetBaseURL(cfg.FlutterwaveBaseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetHeader("Authorization", "Bearer "+cfg.FlutterwaveSecretKey).
		SetHeader("Content-Type", "application/json")

	return &FlutterwaveService{
		client:    client,
		secretKey: cfg.FlutterwaveSecretKey,
		baseURL:   cfg.FlutterwaveBaseURL,
	}
}

// NewTxRef produces a unique transaction reference.
func NewTxRef() string {
	return fmt.Sprintf("abiahub_%d", time.Now().UnixNano())
}

// InitializePayment creates a hosted payment link for the given reference.
func (s *FlutterwaveService) InitializePayment(ctx context.Context, req PaymentInitRequest) (string, error) {
	if req.Currency == "" {
		req.Currency = "NGN"
	}

	var result paymentInitResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/payments")

	if err != nil {
		return "", fmt.Errorf("initializing payment: %w", err)
	}
	if resp.IsError() || result.Status != "success" {
		return "", fmt.Errorf("payment initialization rejected: %s", result.Message)
	}

	logrus.WithField("tx_ref", req.TxRef).Info("payment initialized")
	return result.Data.Link, nil
}

// VerifyPayment checks a transaction's final state with Flutterwave.
// The caller must compare the verified amount against the expected amount
// before marking anything paid.
func (s *FlutterwaveService) VerifyPayment(ctx context.Context, transactionID string) (*PaymentVerification, error) {
	var result verifyResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/transactions/" + transactionID + "/verify")

	if err != nil {
		return nil, fmt.Errorf("verifying payment: %w", err)
	}
	if resp.IsError() || result.Status != "success" {
		return nil, fmt.Errorf("payment verification rejected: %s", result.Message)
	}

	return &PaymentVerification{
		TransactionID: fmt.Sprintf("%d", result.Data.ID),
		TxRef:         result.Data.TxRef,
		Amount:        result.Data.Amount,
		Currency:      result.Data.Currency,
		Status:        result.Data.Status,
	}, nil
}

// RefundPayment issues a full refund for a transaction.
func (s *FlutterwaveService) RefundPayment(ctx context.Context, transactionID string) error {
	var result struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&result).
		Post("/transactions/" + transactionID + "/refund")

	if err != nil {
		return fmt.Errorf("refunding payment: %w", err)
	}
	if resp.IsError() || result.Status != "success" {
		return fmt.Errorf("refund rejected: %s", result.Message)
	}

	logrus.WithField("transaction_id", transactionID).Info("payment refunded")
	return nil
}
