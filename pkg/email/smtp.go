package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"time"
)

// SMTPConfig holds SMTP server configuration
type SMTPConfig struct {
	// Disabled swaps the SMTP transport for a no-op sender; intended
	// for dev environments without a mail relay.
	Disabled bool

	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string

	// TLS settings
	UseTLS      bool // Use STARTTLS
	SkipVerify  bool // Skip TLS certificate verification (for testing)
	UseImplicit bool // Use implicit TLS (port 465)

	Timeout time.Duration
}

// DefaultSMTPConfig returns a configuration with sensible defaults
func DefaultSMTPConfig() SMTPConfig {
	return SMTPConfig{
		Host:     "localhost",
		Port:     25,
		From:     "billing@localhost",
		FromName: "Billing",
		UseTLS:   true,
		Timeout:  30 * time.Second,
	}
}

// SMTPSender implements Sender using SMTP
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender creates a new SMTP invoice email sender
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &SMTPSender{config: config}
}

var _ Sender = (*SMTPSender)(nil)

// SendInvoiceEmail sends an invoice email with the PDF at
// attachmentPath attached. The attachment is read before dialing so a
// missing file fails without touching the mail server.
func (s *SMTPSender) SendInvoiceEmail(ctx context.Context, msg Message, attachmentPath string) (bool, error) {
	attachment, err := os.ReadFile(attachmentPath)
	if err != nil {
		return false, fmt.Errorf("read attachment: %w", err)
	}

	body := s.buildMessage(msg, filepath.Base(attachmentPath), attachment)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if s.config.UseImplicit {
		err = s.sendImplicitTLS(ctx, addr, msg.To, body)
	} else {
		err = s.sendSTARTTLS(ctx, addr, msg.To, body)
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// buildMessage assembles a multipart/mixed MIME message with a plain
// text part and a base64-encoded PDF attachment.
func (s *SMTPSender) buildMessage(msg Message, filename string, attachment []byte) []byte {
	boundary := fmt.Sprintf("boundary-%d", time.Now().UnixNano())

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From))
	if msg.ToName != "" {
		buf.WriteString(fmt.Sprintf("To: %s <%s>\r\n", msg.ToName, msg.To))
	} else {
		buf.WriteString(fmt.Sprintf("To: %s\r\n", msg.To))
	}
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%s\r\n", boundary))
	buf.WriteString("\r\n")

	// Text part
	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.TextBody)
	buf.WriteString("\r\n")

	// PDF attachment, base64 in 76-character lines
	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString(fmt.Sprintf("Content-Type: application/pdf; name=%q\r\n", filename))
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=%q\r\n", filename))
	buf.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return buf.Bytes()
}

// sendSTARTTLS sends email using STARTTLS (port 587/25)
func (s *SMTPSender) sendSTARTTLS(ctx context.Context, addr, to string, message []byte) error {
	dialer := &net.Dialer{Timeout: s.config.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if s.config.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{
				ServerName:         s.config.Host,
				InsecureSkipVerify: s.config.SkipVerify,
			}
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	return s.transact(client, to, message)
}

// sendImplicitTLS sends email using implicit TLS (port 465)
func (s *SMTPSender) sendImplicitTLS(ctx context.Context, addr, to string, message []byte) error {
	tlsConfig := &tls.Config{
		ServerName:         s.config.Host,
		InsecureSkipVerify: s.config.SkipVerify,
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: s.config.Timeout},
		Config:    tlsConfig,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial tls: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	return s.transact(client, to, message)
}

func (s *SMTPSender) transact(client *smtp.Client, to string, message []byte) error {
	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := client.Mail(s.config.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(message); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}

	return client.Quit()
}
