// ABOUTME: Resend email client and the team invitation mailer built on it.
// ABOUTME: Sends transactional mail through the resend-go SDK.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harperreed/goalpro/internal/models"
	"github.com/resend/resend-go/v2"
)

// Message is one outgoing email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// Sender delivers email.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

// Client sends mail through Resend.
type Client struct {
	apiKey string
	resend *resend.Client
}

// NewClient creates a Resend client. An empty baseURL uses Resend's API.
func NewClient(apiKey, baseURL string) (*Client, error) {
	rc := resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("resend: invalid base url: %w", err)
		}
		rc.BaseURL = u
	}
	return &Client{apiKey: apiKey, resend: rc}, nil
}

// Send delivers m and returns the Resend message id.
func (c *Client) Send(ctx context.Context, m Message) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("resend: api key not configured")
	}
	if len(m.To) == 0 {
		return "", errors.New("resend: no recipients")
	}

	sent, err := c.resend.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.From,
		To:      m.To,
		Subject: m.Subject,
		Html:    m.HTML,
		Text:    m.Text,
		ReplyTo: m.ReplyTo,
	})
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	return sent.Id, nil
}

// InviteMailer emails team invitations with an accept link.
type InviteMailer struct {
	sender Sender
	from   string
	appURL string
}

// NewInviteMailer creates an invitation mailer. appURL is the public web app
// address the accept link points to.
func NewInviteMailer(sender Sender, from, appURL string) *InviteMailer {
	return &InviteMailer{sender: sender, from: from, appURL: strings.TrimRight(appURL, "/")}
}

// AcceptURL returns the link an invitee follows to accept.
func (m *InviteMailer) AcceptURL(token string) string {
	return m.appURL + "/team/accept?token=" + url.QueryEscape(token)
}

// SendInvite emails the invitation for a pending team member.
func (m *InviteMailer) SendInvite(ctx context.Context, member *models.TeamMember) error {
	link := m.AcceptURL(member.InviteToken)
	_, err := m.sender.Send(ctx, Message{
		From:    m.from,
		To:      []string{member.Email},
		Subject: "You've been invited to a Goal Achiever Pro team",
		HTML: fmt.Sprintf(`<p>You've been invited to collaborate as a <strong>%s</strong>.</p>
<p><a href="%s">Accept the invitation</a></p>`, member.Role, link),
		Text: fmt.Sprintf("You've been invited to collaborate as a %s.\nAccept the invitation: %s\n", member.Role, link),
	})
	if err != nil {
		return fmt.Errorf("send invitation: %w", err)
	}
	return nil
}
