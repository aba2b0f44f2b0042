// Package email delivers invoice notifications over SMTP.
//
// The Sender interface abstracts the transport so the delivery
// pipeline can be tested without a mail server. SMTPSender is the
// production implementation and supports STARTTLS, implicit TLS, and
// plain connections for local relays.
package email
