package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"fuellog/internal/domain"
	applog "fuellog/internal/log"
)

// FuelService encapsulates fuel record use cases.
type FuelService struct {
	repo domain.FuelRepository
	feed *Feed
	log  *slog.Logger
}

// NewFuelService creates a FuelService. feed may be nil when nobody listens
// for changes.
func NewFuelService(repo domain.FuelRepository, feed *Feed, logger *slog.Logger) *FuelService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FuelService{repo: repo, feed: feed, log: applog.WithComponent(logger, applog.ComponentFuel)}
}

// List returns every record of the user, newest first.
func (s *FuelService) List(ctx context.Context, userID int64) ([]domain.FuelRecord, error) {
	records, err := s.repo.ListFuelRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	sorted := NewestFirst(records)
	if len(sorted) < len(records) {
		s.log.WarnContext(ctx, "records with unparseable dates hidden", "user_id", userID, "count", len(records)-len(sorted))
	}
	return sorted, nil
}

// NewestFirst returns the records with parseable dates, latest date first.
func NewestFirst(records []domain.FuelRecord) []domain.FuelRecord {
	sorted := domain.SortByDate(records)
	slices.Reverse(sorted)
	return sorted
}

// Create validates and stores a new fill-up, returning its id.
func (s *FuelService) Create(ctx context.Context, userID int64, in domain.FuelRecordInput) (string, error) {
	in, err := in.Normalize()
	if err != nil {
		return "", err
	}
	id, err := s.repo.CreateFuelRecord(ctx, userID, in)
	if err != nil {
		s.log.ErrorContext(ctx, "create fuel record", "user_id", userID, "error", err)
		return "", fmt.Errorf("create fuel record: %w", err)
	}
	s.log.InfoContext(ctx, "fuel record created", "user_id", userID, "id", id, "date", in.Date, "liters", in.Liters, "mileage", in.Mileage)
	s.publish(ctx, userID)
	return id, nil
}

// Update applies a partial change to one of the user's records.
func (s *FuelService) Update(ctx context.Context, userID int64, id string, patch domain.FuelRecordPatch) error {
	if patch.Empty() {
		return fmt.Errorf("%w: nothing to update", domain.ErrInvalidRecord)
	}
	// Validate against a neutral record so bad fields fail before the store
	// is touched; the store re-applies the patch to the real record.
	sample := domain.FuelRecord{Date: "2000-01-01", Liters: 1}
	if _, err := patch.Apply(sample); err != nil {
		return err
	}
	if err := s.repo.UpdateFuelRecord(ctx, userID, id, patch); err != nil {
		s.log.ErrorContext(ctx, "update fuel record", "user_id", userID, "id", id, "error", err)
		return err
	}
	s.log.InfoContext(ctx, "fuel record updated", "user_id", userID, "id", id)
	s.publish(ctx, userID)
	return nil
}

// Delete removes one of the user's records.
func (s *FuelService) Delete(ctx context.Context, userID int64, id string) error {
	if err := s.repo.DeleteFuelRecord(ctx, userID, id); err != nil {
		s.log.ErrorContext(ctx, "delete fuel record", "user_id", userID, "id", id, "error", err)
		return err
	}
	s.log.InfoContext(ctx, "fuel record deleted", "user_id", userID, "id", id)
	s.publish(ctx, userID)
	return nil
}

func (s *FuelService) publish(ctx context.Context, userID int64) {
	if s.feed == nil {
		return
	}
	// Subscribers outlive the request that caused the change.
	s.feed.Publish(context.WithoutCancel(ctx), userID)
}
