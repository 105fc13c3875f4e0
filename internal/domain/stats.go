package domain

import (
	"sort"
	"time"
)

// avgDaysPerMonth converts a window length in days to months.
const avgDaysPerMonth = 30.4375

// StatsPolicy tunes the statistics engine.
type StatsPolicy struct {
	// WindowDays is the length of the trailing window used by Summarize.
	WindowDays int
	// DropFirstTrendPoint removes the earliest month from the efficiency
	// trend. That month usually starts from a partial anchor.
	DropFirstTrendPoint bool
}

// DefaultStatsPolicy returns the policy used by the dashboard.
func DefaultStatsPolicy() StatsPolicy {
	return StatsPolicy{WindowDays: 90, DropFirstTrendPoint: true}
}

// WindowStats aggregates the records falling inside [Start, End].
type WindowStats struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Days  int    `json:"days"`
	// Records is the number of records dated inside the window.
	Records  int   `json:"records"`
	Distance int64 `json:"distance"`
	// Fuel is the volume consumed over Distance: every fill-up in the window
	// except the most recent one.
	Fuel float64 `json:"fuel"`
	// TotalFuel is every liter purchased inside the window.
	TotalFuel       float64 `json:"totalFuel"`
	Efficiency      float64 `json:"efficiency"`
	MonthlyDistance float64 `json:"monthlyDistance"`
	MonthlyFuel     float64 `json:"monthlyFuel"`
}

// MonthlyTotal is the fuel purchased in one calendar month.
type MonthlyTotal struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// PairEfficiency is the efficiency between two chronologically adjacent
// fill-ups, reported against the later one.
type PairEfficiency struct {
	RecordID   string  `json:"recordId"`
	Date       string  `json:"date"`
	Distance   int64   `json:"distance"`
	Liters     float64 `json:"liters"`
	Efficiency float64 `json:"efficiency"`
}

// TrendPoint is the mean pair efficiency of one calendar month.
type TrendPoint struct {
	Month      string  `json:"month"`
	Efficiency float64 `json:"efficiency"`
	Samples    int     `json:"samples"`
}

// UsagePoint is the distance driven and fuel purchased in one calendar month.
type UsagePoint struct {
	Month    string  `json:"month"`
	Distance int64   `json:"distance"`
	Fuel     float64 `json:"fuel"`
}

// Summary bundles every dashboard statistic for one record set.
type Summary struct {
	RecordCount      int              `json:"recordCount"`
	LifetimeDistance int64            `json:"lifetimeDistance"`
	Window           WindowStats      `json:"window"`
	MonthlyUsage     []MonthlyTotal   `json:"monthlyUsage"`
	Efficiencies     []PairEfficiency `json:"efficiencies"`
	EfficiencyTrend  []TrendPoint     `json:"efficiencyTrend"`
	UsageTrend       []UsagePoint     `json:"usageTrend"`
}

type datedRecord struct {
	FuelRecord
	day time.Time
}

// sortRecords returns the parseable records ascending by date. Records
// sharing a date keep their input order.
func sortRecords(records []FuelRecord) []datedRecord {
	out := make([]datedRecord, 0, len(records))
	for _, r := range records {
		day, ok := r.Day()
		if !ok {
			continue
		}
		out = append(out, datedRecord{FuelRecord: r, day: day})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].day.Before(out[j].day)
	})
	return out
}

// SortByDate returns a copy of records ascending by date, dropping records
// whose date does not parse.
func SortByDate(records []FuelRecord) []FuelRecord {
	sorted := sortRecords(records)
	out := make([]FuelRecord, len(sorted))
	for i, r := range sorted {
		out[i] = r.FuelRecord
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RollingWindow computes WindowStats for the days-long window ending on the
// calendar day of now.
func RollingWindow(records []FuelRecord, now time.Time, days int) WindowStats {
	if days <= 0 {
		days = DefaultStatsPolicy().WindowDays
	}
	end := truncateDay(now)
	start := end.AddDate(0, 0, -days)
	return WindowStatsBetween(records, start, end)
}

// WindowStatsBetween computes distance, fuel and efficiency over the
// inclusive calendar-day range [start, end].
func WindowStatsBetween(records []FuelRecord, start, end time.Time) WindowStats {
	start, end = truncateDay(start), truncateDay(end)
	days := int(end.Sub(start).Hours() / 24)
	ws := WindowStats{
		Start: start.Format(DayLayout),
		End:   end.Format(DayLayout),
		Days:  days,
	}

	sorted := sortRecords(records)
	var (
		anchor   *datedRecord
		inWindow []datedRecord
	)
	for i := range sorted {
		r := sorted[i]
		switch {
		case r.day.Before(start):
			anchor = &sorted[i]
		case !r.day.After(end):
			inWindow = append(inWindow, r)
		}
	}
	ws.Records = len(inWindow)
	if len(sorted) < 2 || len(inWindow) == 0 {
		return ws
	}
	if anchor == nil {
		anchor = &inWindow[0]
	}

	last := inWindow[len(inWindow)-1]
	if d := last.Mileage - anchor.Mileage; d > 0 {
		ws.Distance = d
	}

	for i, r := range inWindow {
		ws.TotalFuel += r.Liters
		if i < len(inWindow)-1 {
			ws.Fuel += r.Liters
		}
	}
	if ws.Fuel > 0 {
		ws.Efficiency = float64(ws.Distance) / ws.Fuel
	}
	if days > 0 {
		months := float64(days) / avgDaysPerMonth
		ws.MonthlyDistance = float64(ws.Distance) / months
		ws.MonthlyFuel = ws.TotalFuel / months
	}
	return ws
}

// MonthlyUsage sums liters purchased per calendar month, ascending.
func MonthlyUsage(records []FuelRecord) []MonthlyTotal {
	sorted := sortRecords(records)
	out := make([]MonthlyTotal, 0)
	for _, r := range sorted {
		month := r.day.Format(MonthLayout)
		if n := len(out); n > 0 && out[n-1].Month == month {
			out[n-1].Total += r.Liters
			continue
		}
		out = append(out, MonthlyTotal{Month: month, Total: r.Liters})
	}
	return out
}

// IndividualEfficiencies returns the efficiency of every adjacent pair with a
// positive distance and a positive fill volume on the earlier record.
func IndividualEfficiencies(records []FuelRecord) []PairEfficiency {
	sorted := sortRecords(records)
	out := make([]PairEfficiency, 0)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		distance := cur.Mileage - prev.Mileage
		if distance <= 0 || !(prev.Liters > 0) {
			continue
		}
		out = append(out, PairEfficiency{
			RecordID:   cur.ID,
			Date:       cur.day.Format(DayLayout),
			Distance:   distance,
			Liters:     prev.Liters,
			Efficiency: float64(distance) / prev.Liters,
		})
	}
	return out
}

// EfficiencyTrend averages pair efficiencies per calendar month of the later
// record, ascending. With dropFirst the earliest month is omitted.
func EfficiencyTrend(records []FuelRecord, dropFirst bool) []TrendPoint {
	pairs := IndividualEfficiencies(records)
	out := make([]TrendPoint, 0)
	for _, p := range pairs {
		month := p.Date[:len(MonthLayout)]
		if n := len(out); n > 0 && out[n-1].Month == month {
			out[n-1].Efficiency += p.Efficiency
			out[n-1].Samples++
			continue
		}
		out = append(out, TrendPoint{Month: month, Efficiency: p.Efficiency, Samples: 1})
	}
	for i := range out {
		out[i].Efficiency /= float64(out[i].Samples)
	}
	if dropFirst && len(out) > 0 {
		out = out[1:]
	}
	return out
}

// UsageTrend reports per calendar month the distance driven, attributed to
// the month of the later record of each pair, and the fuel purchased.
func UsageTrend(records []FuelRecord) []UsagePoint {
	sorted := sortRecords(records)
	out := make([]UsagePoint, 0)
	if len(sorted) < 2 {
		return out
	}
	point := func(month string) *UsagePoint {
		if n := len(out); n > 0 && out[n-1].Month == month {
			return &out[n-1]
		}
		out = append(out, UsagePoint{Month: month})
		return &out[len(out)-1]
	}
	for i, r := range sorted {
		p := point(r.day.Format(MonthLayout))
		p.Fuel += r.Liters
		if i == 0 {
			continue
		}
		if d := r.Mileage - sorted[i-1].Mileage; d > 0 {
			p.Distance += d
		}
	}
	return out
}

// LifetimeDistance is the odometer span between the lowest and highest
// readings among records with a parseable date.
func LifetimeDistance(records []FuelRecord) int64 {
	sorted := sortRecords(records)
	if len(sorted) < 2 {
		return 0
	}
	lo, hi := sorted[0].Mileage, sorted[0].Mileage
	for _, r := range sorted[1:] {
		lo = min(lo, r.Mileage)
		hi = max(hi, r.Mileage)
	}
	return hi - lo
}

// Summarize computes every dashboard statistic for records as of now.
func Summarize(records []FuelRecord, now time.Time, policy StatsPolicy) Summary {
	return Summary{
		RecordCount:      len(sortRecords(records)),
		LifetimeDistance: LifetimeDistance(records),
		Window:           RollingWindow(records, now, policy.WindowDays),
		MonthlyUsage:     MonthlyUsage(records),
		Efficiencies:     IndividualEfficiencies(records),
		EfficiencyTrend:  EfficiencyTrend(records, policy.DropFirstTrendPoint),
		UsageTrend:       UsageTrend(records),
	}
}
