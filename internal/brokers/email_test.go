package brokers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/incognish/incognish/internal/app/domain"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Configured() bool {
	return m.Called().Bool(0)
}

func (m *mockMailer) Send(ctx context.Context, mail Mail) error {
	return m.Called(ctx, mail).Error(0)
}

var janeDoe = domain.Profile{
	domain.FieldFirstName: "Jane",
	domain.FieldLastName:  "Doe",
	domain.FieldEmail:     "jane@example.test",
	domain.FieldState:     "CA",
	domain.FieldZipCode:   "94110",
}

func TestEmailHandlerRendersTemplateAndSends(t *testing.T) {
	t.Parallel()

	mailer := &mockMailer{}
	mailer.On("Configured").Return(true)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(mail Mail) bool {
		return mail.To == "privacy@broker.test" &&
			mail.Subject == "Remove Jane Doe" &&
			mail.Body == "Name=Jane Doe zip=94110 unknown={other}"
	})).Return(nil)

	outcome, err := EmailHandler{Mailer: mailer}.Attempt(context.Background(), janeDoe, domain.Broker{
		EmailAddress:  "privacy@broker.test",
		EmailSubject:  "Remove {full_name}",
		EmailTemplate: "Name={full_name} zip={zip} unknown={other}",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, outcome.Status)
	assert.Equal(t, "Opt-out email sent to privacy@broker.test", outcome.Notes)
	mailer.AssertExpectations(t)
}

func TestEmailHandlerDefaultsTemplate(t *testing.T) {
	t.Parallel()

	mailer := &mockMailer{}
	mailer.On("Configured").Return(true)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(mail Mail) bool {
		return mail.Subject == "Opt-Out Request — Jane Doe" &&
			strings.Contains(mail.Body, "Email: jane@example.test") &&
			strings.Contains(mail.Body, "CCPA / GDPR")
	})).Return(nil)

	outcome, err := EmailHandler{Mailer: mailer}.Attempt(context.Background(), janeDoe, domain.Broker{EmailAddress: "x@broker.test"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, outcome.Status)
	mailer.AssertExpectations(t)
}

func TestEmailHandlerDegradesWithoutSMTP(t *testing.T) {
	t.Parallel()

	mailer := &mockMailer{}
	mailer.On("Configured").Return(false)

	outcome, err := EmailHandler{Mailer: mailer}.Attempt(context.Background(), janeDoe, domain.Broker{EmailAddress: "x@broker.test"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusManualRequired, outcome.Status)
	assert.Contains(t, outcome.Notes, "x@broker.test")
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEmailHandlerErrors(t *testing.T) {
	t.Parallel()

	outcome, err := EmailHandler{}.Attempt(context.Background(), janeDoe, domain.Broker{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, outcome.Status)

	mailer := &mockMailer{}
	mailer.On("Configured").Return(true)
	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("535 bad credentials"))

	outcome, err = EmailHandler{Mailer: mailer}.Attempt(context.Background(), janeDoe, domain.Broker{EmailAddress: "x@broker.test"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusError, outcome.Status)
	assert.Equal(t, "SMTP error: 535 bad credentials", outcome.Notes)
}

func TestBuildMessageUsesCRLFAndEncodesSubject(t *testing.T) {
	t.Parallel()

	raw := string(buildMessage("me@example.test", Mail{
		To:      "privacy@broker.test",
		Subject: "Opt-Out Request — Jane",
		Body:    "line one\nline two",
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

	assert.Contains(t, raw, "To: privacy@broker.test\r\n")
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.True(t, strings.HasSuffix(raw, "line one\r\nline two\r\n"))
}

func TestSMTPMailerConfigured(t *testing.T) {
	t.Parallel()

	assert.False(t, SMTPMailer{Host: "smtp.example.test"}.Configured())
	assert.True(t, SMTPMailer{Host: "smtp.example.test", Username: "u", Password: "p"}.Configured())
}
