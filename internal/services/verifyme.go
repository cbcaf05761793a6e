// internal/services/verifyme.go
package services

import (
	"context"
	"fmt"
	"time"

	"abiahub/internal/config"

	"github.com/go-resty/resty/v2"
)

// VerifyMeService validates NIN and BVN numbers against the VerifyMe API.
type VerifyMeService struct {
	client *resty.Client
}

type IdentityResult struct {
	Verified  bool
	FirstName string
	LastName  string
	BirthDate string
}

type verifyMeResponse struct {
	Status string `json:"status"`
	Data   struct {
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
		BirthDate string `json:"birthdate"`
	} `json:"data"`
}

func NewVerifyMeService(cfg *config.Config) *VerifyMeService {
	client := resty.New().
		SetBaseURL(cfg.VerifyMeBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Authorization", "Bearer "+cfg.VerifyMeAPIKey).
		SetHeader("Content-Type", "application/json")

	return &VerifyMeService{client: client}
}

// VerifyNIN checks a National Identification Number against the registry.
// The supplied names must match the registered identity.
func (s *VerifyMeService) VerifyNIN(ctx context.Context, nin, firstName, lastName string) (*IdentityResult, error) {
	var result verifyMeResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"firstname": firstName,
			"lastname":  lastName,
		}).
		SetResult(&result).
		Post("/verifications/identities/nin/" + nin)

	if err != nil {
		return nil, fmt.Errorf("verifying NIN: %w", err)
	}
	if resp.IsError() {
		return &IdentityResult{Verified: false}, nil
	}

	return &IdentityResult{
		Verified:  result.Status == "success",
		FirstName: result.Data.FirstName,
		LastName:  result.Data.LastName,
		BirthDate: result.Data.BirthDate,
	}, nil
}

// VerifyBVN checks a Bank Verification Number.
func (s *VerifyMeService) VerifyBVN(ctx context.Context, bvn, firstName, lastName string) (*IdentityResult, error) {
	var result verifyMeResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"firstname": firstName,
			"lastname":  lastName,
		}).
		SetResult(&result).
		Post("/verifications/identities/bvn/" + bvn)

	if err != nil {
		return nil, fmt.Errorf("verifying BVN: %w", err)
	}
	if resp.IsError() {
		return &IdentityResult{Verified: false}, nil
	}

	return &IdentityResult{
		Verified:  result.Status == "success",
		FirstName: result.Data.FirstName,
		LastName:  result.Data.LastName,
		BirthDate: result.Data.BirthDate,
	}, nil
}
