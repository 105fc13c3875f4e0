package app

import (
	"context"
	"log/slog"

	"fuellog/internal/domain"
	applog "fuellog/internal/log"
)

// ReceiptService turns receipt photos into form pre-fills. It never writes
// records; the user confirms every field first.
type ReceiptService struct {
	extractor domain.ReceiptExtractor
	log       *slog.Logger
}

// NewReceiptService creates a ReceiptService. A nil extractor leaves every
// field for manual entry.
func NewReceiptService(extractor domain.ReceiptExtractor, logger *slog.Logger) *ReceiptService {
	if extractor == nil {
		extractor = ManualExtractor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptService{extractor: extractor, log: applog.WithComponent(logger, applog.ComponentReceipt)}
}

// Extract decodes the data URI and asks the extractor for the fields it can
// read. Only a malformed image is an error; extractor failures return empty
// fields.
func (s *ReceiptService) Extract(ctx context.Context, userID int64, photoDataURI string) (domain.ReceiptFields, error) {
	img, err := domain.ParseDataURI(photoDataURI)
	if err != nil {
		return domain.ReceiptFields{}, err
	}
	fields, err := s.extractor.ExtractReceipt(ctx, img)
	if err != nil {
		s.log.WarnContext(ctx, "receipt extraction failed", "user_id", userID, "mime", img.MIMEType, "bytes", len(img.Data), "error", err)
		return domain.ReceiptFields{}, nil
	}
	fields = fields.Sanitize()
	s.log.InfoContext(ctx, "receipt extracted", "user_id", userID,
		"liters", fields.Liters != nil, "price", fields.Price != nil, "date", fields.Date != nil)
	return fields, nil
}

// ManualExtractor reads nothing; every field is left for the user.
type ManualExtractor struct{}

// ExtractReceipt returns empty fields.
func (ManualExtractor) ExtractReceipt(context.Context, domain.Image) (domain.ReceiptFields, error) {
	return domain.ReceiptFields{}, nil
}
