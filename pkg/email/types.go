package email

import "context"

// Message describes one outgoing invoice email
type Message struct {
	To            string
	ToName        string
	Subject       string
	TextBody      string
	InvoiceNumber string
}

// Sender sends invoice emails with a PDF attachment. The boolean
// result reports whether the transport accepted the message; a false
// result with a nil error means the provider rejected the delivery
// without a transport failure.
type Sender interface {
	SendInvoiceEmail(ctx context.Context, msg Message, attachmentPath string) (bool, error)
}
