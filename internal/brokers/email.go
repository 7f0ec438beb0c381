package brokers

import (
	"context"
	"fmt"
	"strings"

	"github.com/incognish/incognish/internal/app/domain"
)

const defaultEmailTemplate = `Hello,

I am requesting the removal of my personal information from your database under applicable privacy regulations (CCPA / GDPR).

Name: {full_name}
Email: {email}
Phone: {phone}
Address: {address}, {city}, {state} {zip}
Date of Birth: {dob}

Please confirm the removal of my data at your earliest convenience.

Thank you.`

// Mail is one outgoing opt-out message.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers opt-out mail.
type Mailer interface {
	Configured() bool
	Send(ctx context.Context, mail Mail) error
}

// EmailHandler sends the broker's opt-out email.
type EmailHandler struct {
	Mailer Mailer
}

// Attempt renders the broker's template against profile and sends it.
func (h EmailHandler) Attempt(ctx context.Context, profile domain.Profile, broker domain.Broker) (domain.Outcome, error) {
	to := strings.TrimSpace(broker.EmailAddress)
	if to == "" {
		return domain.Outcome{Status: domain.StatusError, Notes: "No opt-out email configured for this broker."}, nil
	}
	if h.Mailer == nil || !h.Mailer.Configured() {
		return manual("Send opt-out email to %s. Configure SMTP_USER and SMTP_PASS in .env to automate this.", to), nil
	}

	subject := strings.TrimSpace(broker.EmailSubject)
	if subject == "" {
		subject = "Opt-Out Request — {full_name}"
	}
	body := broker.EmailTemplate
	if strings.TrimSpace(body) == "" {
		body = defaultEmailTemplate
	}

	fill := templateReplacer(profile)
	err := h.Mailer.Send(ctx, Mail{To: to, Subject: fill.Replace(subject), Body: fill.Replace(body)})
	if err != nil {
		if ctx.Err() != nil {
			return domain.Outcome{}, ctx.Err()
		}
		return domain.Outcome{Status: domain.StatusError, Notes: fmt.Sprintf("SMTP error: %v", err)}, nil
	}
	return domain.Outcome{Status: domain.StatusSubmitted, Notes: "Opt-out email sent to " + to}, nil
}

func templateReplacer(profile domain.Profile) *strings.Replacer {
	return strings.NewReplacer(
		"{full_name}", profile.FullName(),
		"{email}", profile.Get(domain.FieldEmail),
		"{phone}", profile.Get(domain.FieldPhone),
		"{address}", profile.Get(domain.FieldAddress),
		"{city}", profile.Get(domain.FieldCity),
		"{state}", profile.Get(domain.FieldState),
		"{zip}", profile.Get(domain.FieldZipCode),
		"{dob}", profile.Get(domain.FieldDateOfBirth),
	)
}
