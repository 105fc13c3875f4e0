package app

import (
	"context"
	"errors"
	"time"

	"fuellog/internal/domain"
)

// maxWindowDays bounds the rolling window a caller may request.
const maxWindowDays = 3660

var (
	// ErrInvalidUnit is returned for an unknown efficiency unit.
	ErrInvalidUnit = errors.New(`unit must be "km/L", "L/100km" or "mpg"`)
	// ErrInvalidMonth is returned for a calendar month not in yyyy-MM form.
	ErrInvalidMonth = errors.New("month must be yyyy-MM")
)

// StatsService derives dashboard statistics from a user's records.
type StatsService struct {
	repo   domain.FuelRepository
	policy domain.StatsPolicy
	now    func() time.Time
}

// NewStatsService creates a StatsService backed by the given repository.
func NewStatsService(repo domain.FuelRepository, policy domain.StatsPolicy) *StatsService {
	if policy.WindowDays <= 0 {
		policy.WindowDays = domain.DefaultStatsPolicy().WindowDays
	}
	return &StatsService{repo: repo, policy: policy, now: time.Now}
}

// WithClock replaces the time source used for rolling windows.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

// Policy returns the engine policy in use.
func (s *StatsService) Policy() domain.StatsPolicy {
	return s.policy
}

// Summary returns every dashboard statistic. days <= 0 selects the policy
// window; unit "" selects km/L.
func (s *StatsService) Summary(ctx context.Context, userID int64, days int, unit string) (domain.Summary, error) {
	unit, err := checkUnit(unit)
	if err != nil {
		return domain.Summary{}, err
	}
	records, err := s.repo.ListFuelRecords(ctx, userID)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.ConvertSummary(domain.Summarize(records, s.now(), s.windowPolicy(days)), unit), nil
}

// FromSnapshot summarises a pushed snapshot. A failed snapshot yields the
// summary of an empty record set.
func (s *StatsService) FromSnapshot(snap Snapshot) domain.Summary {
	records := snap.Records
	if snap.Err != nil {
		records = nil
	}
	return domain.Summarize(records, s.now(), s.policy)
}

// MonthlyUsage returns liters purchased per month.
func (s *StatsService) MonthlyUsage(ctx context.Context, userID int64) ([]domain.MonthlyTotal, error) {
	records, err := s.repo.ListFuelRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.MonthlyUsage(records), nil
}

// EfficiencyTrend returns the per-pair efficiencies and the monthly trend in
// the requested unit.
func (s *StatsService) EfficiencyTrend(ctx context.Context, userID int64, unit string) ([]domain.PairEfficiency, []domain.TrendPoint, error) {
	unit, err := checkUnit(unit)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.repo.ListFuelRecords(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	sum := domain.ConvertSummary(domain.Summary{
		Efficiencies:    domain.IndividualEfficiencies(records),
		EfficiencyTrend: domain.EfficiencyTrend(records, s.policy.DropFirstTrendPoint),
	}, unit)
	return sum.Efficiencies, sum.EfficiencyTrend, nil
}

// UsageTrend returns distance and fuel per month.
func (s *StatsService) UsageTrend(ctx context.Context, userID int64) ([]domain.UsagePoint, error) {
	records, err := s.repo.ListFuelRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.UsageTrend(records), nil
}

// Calendar returns fill-ups grouped by day for month (yyyy-MM). An empty
// month selects the current one; the result carries the month used.
func (s *StatsService) Calendar(ctx context.Context, userID int64, month string) (domain.CalendarMonth, error) {
	if month == "" {
		month = s.now().Format(domain.MonthLayout)
	}
	if _, err := time.Parse(domain.MonthLayout, month); err != nil {
		return domain.CalendarMonth{}, ErrInvalidMonth
	}
	records, err := s.repo.ListFuelRecords(ctx, userID)
	if err != nil {
		return domain.CalendarMonth{}, err
	}
	return domain.CalendarMonth{Month: month, Days: domain.FillUpsByDay(records, month)}, nil
}

func (s *StatsService) windowPolicy(days int) domain.StatsPolicy {
	p := s.policy
	if days > 0 {
		p.WindowDays = min(days, maxWindowDays)
	}
	return p
}

func checkUnit(unit string) (string, error) {
	if unit == "" {
		return domain.UnitKmPerLiter, nil
	}
	if !domain.ValidEfficiencyUnit(unit) {
		return "", ErrInvalidUnit
	}
	return unit, nil
}
