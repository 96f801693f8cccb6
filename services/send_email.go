package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rpupo63/round/config"
	"github.com/rs/zerolog/log"
)

const resendEndpoint = "https://api.resend.com/emails"

// Mailer delivers one HTML email to a list of recipients.
type Mailer interface {
	Send(ctx context.Context, subject, body string, recipients []string) error
}

// ResendEmailRequest represents the request payload for Resend API
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Html    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// ResendEmailResponse represents the response from Resend API
type ResendEmailResponse struct {
	ID string `json:"id"`
}

// ResendErrorResponse represents an error response from Resend API
type ResendErrorResponse struct {
	Message string `json:"message"`
}

// ResendMailer sends email through the Resend API.
type ResendMailer struct {
	APIKey    string
	FromEmail string
	Endpoint  string
	Client    *http.Client
}

// NewResendMailer reads RESEND_API_KEY and RESEND_FROM_EMAIL from cfg. It
// returns nil when either is missing, which disables email.
func NewResendMailer(cfg map[string]string) *ResendMailer {
	apiKey := config.GetString(cfg, "RESEND_API_KEY", "")
	fromEmail := config.GetString(cfg, "RESEND_FROM_EMAIL", "")
	if apiKey == "" || fromEmail == "" {
		log.Warn().Msg("RESEND_API_KEY or RESEND_FROM_EMAIL not set, invitation emails are disabled")
		return nil
	}
	return &ResendMailer{
		APIKey:    apiKey,
		FromEmail: fromEmail,
		Endpoint:  resendEndpoint,
		Client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Send sends an email using the Resend API
// Parameters:
//   - subject: The email subject line
//   - body: The email body (HTML)
//   - recipients: A list of recipient email addresses
func (m *ResendMailer) Send(ctx context.Context, subject, body string, recipients []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	// Build the Resend API payload
	payload := ResendEmailRequest{
		From:    m.FromEmail,
		To:      recipients,
		Subject: subject,
		Html:    body,
	}

	jsonPayload, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	endpoint := m.Endpoint
	if endpoint == "" {
		endpoint = resendEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create Resend API request: %w", err)
	}

	// Set headers
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to Resend API: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Resend API response: %w", err)
	}

	// Check response status
	if resp.StatusCode != http.StatusOK {
		var errorResp ResendErrorResponse
		if err := sonic.Unmarshal(bodyBytes, &errorResp); err == nil && errorResp.Message != "" {
			return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, errorResp.Message)
		}
		return fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	// Parse successful response
	var emailResponse ResendEmailResponse
	if err := sonic.Unmarshal(bodyBytes, &emailResponse); err != nil {
		log.Warn().Err(err).Msg("Failed to parse Resend email response, but email was sent")
	} else {
		log.Info().Str("emailId", emailResponse.ID).Msg("Successfully sent email via Resend")
	}

	return nil
}
