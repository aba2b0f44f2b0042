package pdf

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/platinummonkey/mspbill/pkg/invoices"
	"github.com/platinummonkey/mspbill/pkg/observability"
)

// StorageService implements Service by rendering through an injected
// Renderer and persisting artifacts in an ObjectStore.
type StorageService struct {
	invoices invoices.Service
	renderer Renderer
	store    ObjectStore
	logger   *observability.Logger
}

// NewStorageService creates a new artifact service
func NewStorageService(invoiceService invoices.Service, renderer Renderer, store ObjectStore, logger *observability.Logger) *StorageService {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &StorageService{
		invoices: invoiceService,
		renderer: renderer,
		store:    store,
		logger:   logger,
	}
}

var _ Service = (*StorageService)(nil)

// GenerateAndStore renders the invoice and persists the PDF,
// returning the file id of the stored artifact
func (s *StorageService) GenerateAndStore(ctx context.Context, tenantID, invoiceID int64, invoiceNumber string, version int) (string, error) {
	detail, err := s.invoices.GetInvoiceDetail(ctx, tenantID, invoiceID)
	if err != nil {
		return "", fmt.Errorf("failed to load invoice %d: %w", invoiceID, err)
	}

	body, err := s.renderer.Render(ctx, RenderRequest{
		Invoice: detail.Invoice,
		Company: detail.Company,
		Version: version,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render invoice %s: %w", invoiceNumber, err)
	}

	fileID := uuid.New().String()
	if err := s.store.PutObject(ctx, s.objectKey(tenantID, fileID), body, "application/pdf"); err != nil {
		return "", fmt.Errorf("failed to store invoice %s: %w", invoiceNumber, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"tenant_id":      tenantID,
		"invoice_number": invoiceNumber,
		"file_id":        fileID,
		"size_bytes":     len(body),
	}).Info("stored invoice pdf")

	return fileID, nil
}

// DownloadFile retrieves a stored PDF by file id
func (s *StorageService) DownloadFile(ctx context.Context, tenantID int64, fileID string) ([]byte, error) {
	body, err := s.store.GetObject(ctx, s.objectKey(tenantID, fileID))
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	return body, nil
}

func (s *StorageService) objectKey(tenantID int64, fileID string) string {
	return fmt.Sprintf("invoices/%d/%s.pdf", tenantID, fileID)
}
