package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v2"

	"growth-engine/internal/models"
)

// EmailSender is the part of the Resend client used here.
type EmailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Email sends transactional mail through Resend. Profiles without an email
// address are skipped.
type Email struct {
	sender    EmailSender
	from      string
	publicURL string
}

func NewEmail(apiKey, from, publicURL string) *Email {
	return NewEmailWithSender(resend.NewClient(apiKey).Emails, from, publicURL)
}

func NewEmailWithSender(sender EmailSender, from, publicURL string) *Email {
	return &Email{sender: sender, from: from, publicURL: strings.TrimSuffix(publicURL, "/")}
}

func (e *Email) Welcome(ctx context.Context, p *models.Profile) error {
	return e.send(ctx, p, "Welcome to your 30-day growth program",
		"Your profile is set up and day 1 is waiting for you.",
		"Open today's tasks")
}

func (e *Email) DayCompleted(ctx context.Context, p *models.Profile, day int) error {
	return e.send(ctx, p, fmt.Sprintf("Day %d complete", day),
		fmt.Sprintf("Great work finishing day %d. Day %d is unlocked.", day, day+1),
		"See tomorrow's tasks")
}

func (e *Email) Upgraded(ctx context.Context, p *models.Profile) error {
	return e.send(ctx, p, "You're on PRO now",
		"AI generations are now free for you and the 60-day PRO program is open once you finish your current one.",
		"Go to dashboard")
}

func (e *Email) send(ctx context.Context, p *models.Profile, subject, body, cta string) error {
	if p.Email == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	link := e.publicURL + "/dashboard"
	htmlBody := fmt.Sprintf(
		`<p>%s</p><p><a href="%s">%s</a></p>`,
		html.EscapeString(body), html.EscapeString(link), html.EscapeString(cta),
	)

	_, err := e.sender.Send(&resend.SendEmailRequest{
		From:    e.from,
		To:      []string{p.Email},
		Subject: subject,
		Html:    htmlBody,
		Text:    body + "\n\n" + link,
	})
	if err != nil {
		return fmt.Errorf("failed to send %q email: %w", subject, err)
	}
	return nil
}
