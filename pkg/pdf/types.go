package pdf

import (
	"context"
	"errors"

	"github.com/platinummonkey/mspbill/pkg/billing"
	"github.com/platinummonkey/mspbill/pkg/invoices"
)

// ErrFileNotFound indicates no stored artifact matched the file id
var ErrFileNotFound = errors.New("file not found")

// Service defines the interface for invoice artifact operations
type Service interface {
	// GenerateAndStore renders the invoice and persists the PDF,
	// returning the file id of the stored artifact.
	GenerateAndStore(ctx context.Context, tenantID, invoiceID int64, invoiceNumber string, version int) (string, error)

	// DownloadFile retrieves a stored PDF by file id.
	DownloadFile(ctx context.Context, tenantID int64, fileID string) ([]byte, error)
}

// RenderRequest carries everything a Renderer needs for one invoice
type RenderRequest struct {
	Invoice *invoices.Invoice
	Company *billing.Company
	Version int
}

// Renderer produces PDF bytes for an invoice
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) ([]byte, error)
}

// RendererFunc adapts a function to the Renderer interface
type RendererFunc func(ctx context.Context, req RenderRequest) ([]byte, error)

// Render calls f
func (f RendererFunc) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	return f(ctx, req)
}

// ObjectStore persists rendered artifacts under opaque keys
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}
