package brokers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPMailer sends mail with STARTTLS, retrying over implicit TLS when the
// STARTTLS attempt fails for any reason other than rejected credentials.
type SMTPMailer struct {
	Host     string
	Port     int
	SSLPort  int
	Username string
	Password string
	Timeout  time.Duration
}

var _ Mailer = SMTPMailer{}

type authError struct{ err error }

func (e authError) Error() string { return "authentication failed: " + e.err.Error() }
func (e authError) Unwrap() error { return e.err }

// Configured reports whether credentials are present.
func (m SMTPMailer) Configured() bool {
	return strings.TrimSpace(m.Host) != "" && m.Username != "" && m.Password != ""
}

// Send delivers mail from the configured account.
func (m SMTPMailer) Send(ctx context.Context, mail Mail) error {
	raw := buildMessage(m.Username, mail, time.Now())

	err := m.send(ctx, raw, mail.To, false)
	if err == nil {
		return nil
	}
	var auth authError
	if errors.As(err, &auth) || ctx.Err() != nil {
		return err
	}
	if sslErr := m.send(ctx, raw, mail.To, true); sslErr != nil {
		return fmt.Errorf("starttls: %v; ssl: %w", err, sslErr)
	}
	return nil
}

func (m SMTPMailer) send(ctx context.Context, raw []byte, to string, implicitTLS bool) error {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	port := m.Port
	if implicitTLS {
		port = m.SSLPort
		if port <= 0 {
			port = 465
		}
	}
	addr := net.JoinHostPort(m.Host, strconv.Itoa(port))
	tlsConfig := &tls.Config{ServerName: m.Host, MinVersion: tls.VersionTLS12}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if implicitTLS {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return fmt.Errorf("tls handshake: %w", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp greeting: %w", err)
	}
	defer client.Close()

	if !implicitTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if err := client.Auth(smtp.PlainAuth("", m.Username, m.Password, m.Host)); err != nil {
		return authError{err: err}
	}
	if err := client.Mail(m.Username); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish body: %w", err)
	}
	return client.Quit()
}

func buildMessage(from string, mail Mail, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + mail.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", mail.Subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	body := strings.ReplaceAll(mail.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
