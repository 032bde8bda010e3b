package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Sender notifies issuers about role decisions. Nil = no-op.
type Sender interface {
	SendIssuerApproved(ctx context.Context, toEmail, issuerName string) error
	SendIssuerRejected(ctx context.Context, toEmail, issuerName string) error
}

// BrevoClient sends emails via the Brevo (Sendinblue) API.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@certchain.io"
}

// send sends one email via Brevo API.
func (c *BrevoClient) send(ctx context.Context, toEmail, subject, html string) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: "CertChain"},
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     subject,
		HTMLContent: html,
		ReplyTo:     &BrevoReplyTo{Email: "support@certchain.io", Name: "CertChain Support"},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoAPI, bytes.NewReader(bodyBytes))
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

// SendIssuerApproved notifies an issuer their signing address now holds
// the issuer role on the certificate contract.
func (c *BrevoClient) SendIssuerApproved(ctx context.Context, toEmail, issuerName string) error {
	if c.APIKey == "" {
		return nil
	}
	if issuerName == "" {
		issuerName = "there"
	}
	content := approvedContent(issuerName)
	return c.send(ctx, toEmail, "Your CertChain Issuer Account Has Been Approved", EmailLayout(content))
}

// SendIssuerRejected notifies an issuer their application was declined
// or their issuing rights revoked.
func (c *BrevoClient) SendIssuerRejected(ctx context.Context, toEmail, issuerName string) error {
	if c.APIKey == "" {
		return nil
	}
	if issuerName == "" {
		issuerName = "there"
	}
	content := rejectedContent(issuerName)
	return c.send(ctx, toEmail, "Update on Your CertChain Issuer Application", EmailLayout(content))
}

func approvedContent(issuerName string) string {
	return fmt.Sprintf(`
    <h1>Welcome Aboard, %s!</h1>
    <p>Your issuer account on <strong>CertChain</strong> has been approved. Your signing address has been granted the issuer role on the certificate contract, and you can start issuing blockchain-anchored certificates right away.</p>
    <center>
      <a href="https://certchain.io/issue" class="cc-button">Issue Your First Certificate</a>
    </center>
    <p style="margin-top: 20px; font-size: 14px; color: #666;">
      If you did not apply for an issuer account, please contact our support team immediately.
    </p>
    <p>— The CertChain Team</p>
`, EscapeHTML(issuerName))
}

func rejectedContent(issuerName string) string {
	return fmt.Sprintf(`
    <h1>Issuer Application Update</h1>
    <p>Hi %s,</p>
    <p>After review, your <strong>CertChain</strong> issuer application has not been approved at this time. Any issuer role previously attached to your signing address has been revoked.</p>
    <p>If you believe this is a mistake or would like more detail, reach out to <a href="mailto:support@certchain.io">support</a> and we will take another look.</p>
    <p>— The CertChain Team</p>
`, EscapeHTML(issuerName))
}
