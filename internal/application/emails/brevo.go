package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender `json:"sender"`
	To          []BrevoTo   `json:"to"`
	Subject     string      `json:"subject"`
	HTMLContent string      `json:"htmlContent"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Sender sends transactional emails.
type Sender interface {
	SendWelcome(ctx context.Context, toEmail, firstName string) error
	SendDonationNotice(ctx context.Context, toEmail, firstName, listingTitle string) error
}

// BrevoClient sends emails via the Brevo (Sendinblue) API. Without an API key
// every send is a no-op.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	// SiteURL is linked from every email.
	SiteURL string
	// Endpoint overrides the Brevo URL in tests.
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@handover.app"
}

func (c *BrevoClient) site() string {
	if c.SiteURL != "" {
		return strings.TrimRight(c.SiteURL, "/")
	}
	return "https://handover.app"
}

func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	bodyBytes, err := json.Marshal(BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "Handover"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
	})
	if err != nil {
		return err
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = brevoAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

// SendWelcome sends the welcome email after registration.
func (c *BrevoClient) SendWelcome(ctx context.Context, toEmail, firstName string) error {
	if firstName == "" {
		firstName = "there"
	}
	return c.send(ctx, toEmail, "Welcome to Handover!", EmailLayout(welcomeContent(firstName, c.site()), c.site()))
}

// SendDonationNotice tells a recipient that a listing was donated to them.
func (c *BrevoClient) SendDonationNotice(ctx context.Context, toEmail, firstName, listingTitle string) error {
	if firstName == "" {
		firstName = "there"
	}
	subject := fmt.Sprintf("%s is yours", listingTitle)
	return c.send(ctx, toEmail, subject, EmailLayout(donationContent(firstName, listingTitle, c.site()+"/messages"), c.site()))
}
