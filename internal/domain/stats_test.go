package domain_test

import (
	"reflect"
	"testing"
	"time"

	"fuellog/internal/domain"
)

func rec(id, date string, mileage int64, liters float64) domain.FuelRecord {
	return domain.FuelRecord{ID: id, UserID: 1, Date: date, Mileage: mileage, Liters: liters, Price: liters * 1700, Currency: "KRW"}
}

func day(s string) time.Time {
	t, err := time.Parse(domain.DayLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// fiveFillUps spans three months; pair efficiencies are
// Jan 10, Feb 16 and 10, Mar 20.
func fiveFillUps() []domain.FuelRecord {
	return []domain.FuelRecord{
		rec("a", "2024-01-01", 1000, 30),
		rec("b", "2024-01-20", 1300, 25),
		rec("c", "2024-02-10", 1700, 30),
		rec("d", "2024-02-25", 2000, 20),
		rec("e", "2024-03-15", 2400, 40),
	}
}

func TestIndividualEfficiencies_TwoRecords(t *testing.T) {
	records := []domain.FuelRecord{
		rec("feb", "2024-02-01", 1400, 28),
		rec("jan", "2024-01-01", 1000, 30),
	}
	got := domain.IndividualEfficiencies(records)
	if len(got) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(got))
	}
	if got[0].RecordID != "feb" || got[0].Date != "2024-02-01" {
		t.Errorf("pair attributed to %s/%s; want feb/2024-02-01", got[0].RecordID, got[0].Date)
	}
	if !almostEqual(got[0].Efficiency, 13.333, 0.001) {
		t.Errorf("efficiency = %v; want 13.333", got[0].Efficiency)
	}
	if got[0].Distance != 400 || got[0].Liters != 30 {
		t.Errorf("distance/liters = %d/%v; want 400/30", got[0].Distance, got[0].Liters)
	}
}

func TestIndividualEfficiencies_ExcludesDegeneratePairs(t *testing.T) {
	tests := []struct {
		name    string
		records []domain.FuelRecord
	}{
		{"equal mileage", []domain.FuelRecord{rec("a", "2024-01-01", 1000, 30), rec("b", "2024-01-10", 1000, 20)}},
		{"decreasing mileage", []domain.FuelRecord{rec("a", "2024-01-01", 1000, 30), rec("b", "2024-01-10", 900, 20)}},
		{"zero liters on earlier record", []domain.FuelRecord{rec("a", "2024-01-01", 1000, 0), rec("b", "2024-01-10", 1300, 20)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.IndividualEfficiencies(tc.records); len(got) != 0 {
				t.Errorf("expected no pairs, got %+v", got)
			}
			if got := domain.EfficiencyTrend(tc.records, false); len(got) != 0 {
				t.Errorf("expected empty trend, got %+v", got)
			}
		})
	}
}

func TestEfficiencyTrend(t *testing.T) {
	t.Run("drops first month", func(t *testing.T) {
		got := domain.EfficiencyTrend(fiveFillUps(), true)
		if len(got) != 2 {
			t.Fatalf("expected 2 points, got %+v", got)
		}
		if got[0].Month != "2024-02" || !almostEqual(got[0].Efficiency, 13, 0.001) || got[0].Samples != 2 {
			t.Errorf("first point = %+v; want 2024-02 13 (2 samples)", got[0])
		}
		if got[1].Month != "2024-03" || !almostEqual(got[1].Efficiency, 20, 0.001) {
			t.Errorf("second point = %+v; want 2024-03 20", got[1])
		}
	})

	t.Run("keeps first month", func(t *testing.T) {
		got := domain.EfficiencyTrend(fiveFillUps(), false)
		if len(got) != 3 {
			t.Fatalf("expected 3 points, got %+v", got)
		}
		if got[0].Month != "2024-01" || !almostEqual(got[0].Efficiency, 10, 0.001) {
			t.Errorf("first point = %+v; want 2024-01 10", got[0])
		}
	})
}

func TestMonthlyUsage(t *testing.T) {
	records := []domain.FuelRecord{
		rec("c", "2024-02-03", 1600, 15),
		rec("a", "2024-01-05", 1000, 10),
		rec("b", "2024-01-25", 1300, 12),
	}
	got := domain.MonthlyUsage(records)
	want := []domain.MonthlyTotal{{Month: "2024-01", Total: 22}, {Month: "2024-02", Total: 15}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MonthlyUsage = %+v; want %+v", got, want)
	}
}

func TestMonthlyUsage_ConservesTotal(t *testing.T) {
	sets := [][]domain.FuelRecord{
		fiveFillUps(),
		{rec("only", "2023-12-31", 500, 41.7)},
		{rec("a", "2022-11-30", 1, 0.5), rec("b", "2023-11-30", 2, 12.25), rec("c", "2022-11-01", 3, 7.75)},
	}
	for _, records := range sets {
		var raw, grouped float64
		for _, r := range records {
			raw += r.Liters
		}
		for _, m := range domain.MonthlyUsage(records) {
			grouped += m.Total
		}
		if !almostEqual(raw, grouped, 1e-9) {
			t.Errorf("grouped total %v != raw total %v", grouped, raw)
		}
	}
}

func TestUsageTrend(t *testing.T) {
	got := domain.UsageTrend(fiveFillUps())
	want := []domain.UsagePoint{
		{Month: "2024-01", Distance: 300, Fuel: 55},
		{Month: "2024-02", Distance: 700, Fuel: 50},
		{Month: "2024-03", Distance: 400, Fuel: 40},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UsageTrend = %+v; want %+v", got, want)
	}
}

func TestRollingWindow_AnchorBeforeWindow(t *testing.T) {
	records := []domain.FuelRecord{
		rec("jan", "2024-01-01", 1000, 40),
		rec("mar", "2024-03-10", 1500, 30),
		rec("apr", "2024-04-05", 1900, 35),
	}
	ws := domain.RollingWindow(records, day("2024-04-10").Add(15*time.Hour), 90)

	if ws.Start != "2024-01-11" || ws.End != "2024-04-10" || ws.Days != 90 {
		t.Errorf("window = %s..%s (%d days)", ws.Start, ws.End, ws.Days)
	}
	if ws.Records != 2 {
		t.Errorf("records = %d; want 2", ws.Records)
	}
	if ws.Distance != 900 {
		t.Errorf("distance = %d; want 900", ws.Distance)
	}
	if !almostEqual(ws.Fuel, 30, 1e-9) || !almostEqual(ws.TotalFuel, 65, 1e-9) {
		t.Errorf("fuel = %v total = %v; want 30 and 65", ws.Fuel, ws.TotalFuel)
	}
	if !almostEqual(ws.Efficiency, 30, 1e-9) {
		t.Errorf("efficiency = %v; want 30", ws.Efficiency)
	}
	if !almostEqual(ws.MonthlyDistance, 304.375, 0.001) {
		t.Errorf("monthly distance = %v; want 304.375", ws.MonthlyDistance)
	}
	if !almostEqual(ws.MonthlyFuel, 21.9826, 0.001) {
		t.Errorf("monthly fuel = %v; want 21.9826", ws.MonthlyFuel)
	}
}

func TestRollingWindow_AnchorInsideWindow(t *testing.T) {
	records := []domain.FuelRecord{
		rec("a", "2024-03-01", 1000, 20),
		rec("b", "2024-03-20", 1300, 25),
		rec("c", "2024-04-08", 1600, 30),
	}
	ws := domain.RollingWindow(records, day("2024-04-10"), 90)
	if ws.Distance != 600 {
		t.Errorf("distance = %d; want 600", ws.Distance)
	}
	if !almostEqual(ws.Fuel, 45, 1e-9) {
		t.Errorf("fuel = %v; want 45", ws.Fuel)
	}
	if !almostEqual(ws.Efficiency, 13.333, 0.001) {
		t.Errorf("efficiency = %v; want 13.333", ws.Efficiency)
	}
}

func TestRollingWindow_NegativeDistanceClamped(t *testing.T) {
	records := []domain.FuelRecord{
		rec("a", "2024-03-01", 5000, 20),
		rec("b", "2024-03-20", 4000, 25),
	}
	ws := domain.RollingWindow(records, day("2024-04-10"), 90)
	if ws.Distance != 0 || ws.Efficiency != 0 {
		t.Errorf("distance/efficiency = %d/%v; want 0/0", ws.Distance, ws.Efficiency)
	}
}

func TestRollingWindow_NoRecordsInWindow(t *testing.T) {
	records := []domain.FuelRecord{
		rec("a", "2020-03-01", 1000, 20),
		rec("b", "2020-03-20", 1300, 25),
	}
	ws := domain.RollingWindow(records, day("2024-04-10"), 90)
	if ws.Records != 0 || ws.Distance != 0 || ws.Fuel != 0 || ws.Efficiency != 0 {
		t.Errorf("expected zero stats, got %+v", ws)
	}
}

func TestFewerThanTwoRecords(t *testing.T) {
	now := day("2024-04-10")
	sets := map[string][]domain.FuelRecord{
		"empty":  nil,
		"single": {rec("only", "2024-04-01", 1000, 30)},
	}
	for name, records := range sets {
		t.Run(name, func(t *testing.T) {
			s := domain.Summarize(records, now, domain.DefaultStatsPolicy())
			if len(s.Efficiencies) != 0 || len(s.EfficiencyTrend) != 0 || len(s.UsageTrend) != 0 {
				t.Errorf("expected empty trends, got %+v", s)
			}
			if s.Efficiencies == nil || s.EfficiencyTrend == nil || s.UsageTrend == nil || s.MonthlyUsage == nil {
				t.Error("expected non-nil empty slices")
			}
			w := s.Window
			if w.Distance != 0 || w.Fuel != 0 || w.Efficiency != 0 || w.MonthlyDistance != 0 || w.MonthlyFuel != 0 {
				t.Errorf("expected zero rate stats, got %+v", w)
			}
			if s.LifetimeDistance != 0 {
				t.Errorf("lifetime distance = %d; want 0", s.LifetimeDistance)
			}
		})
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	records := fiveFillUps()
	now := day("2024-04-01")
	first := domain.Summarize(records, now, domain.DefaultStatsPolicy())
	second := domain.Summarize(records, now, domain.DefaultStatsPolicy())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("summaries differ:\n%+v\n%+v", first, second)
	}

	reversed := make([]domain.FuelRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	third := domain.Summarize(reversed, now, domain.DefaultStatsPolicy())
	if !reflect.DeepEqual(first, third) {
		t.Errorf("input order changed the summary:\n%+v\n%+v", first, third)
	}
	if records[0].ID != "a" {
		t.Error("Summarize reordered its input")
	}
}

func TestSummarize_LifetimeDistance(t *testing.T) {
	s := domain.Summarize(fiveFillUps(), day("2024-04-01"), domain.DefaultStatsPolicy())
	if s.LifetimeDistance != 1400 {
		t.Errorf("lifetime distance = %d; want 1400", s.LifetimeDistance)
	}
	if s.RecordCount != 5 {
		t.Errorf("record count = %d; want 5", s.RecordCount)
	}
}

func TestSummarize_IgnoresUnparseableDates(t *testing.T) {
	records := []domain.FuelRecord{
		rec("x", "garbage", 0, 10),
		rec("a", "2024-01-01", 1000, 30),
	}
	s := domain.Summarize(records, day("2024-04-01"), domain.DefaultStatsPolicy())
	if s.RecordCount != 1 {
		t.Errorf("record count = %d; want 1", s.RecordCount)
	}
	if s.LifetimeDistance != 0 {
		t.Errorf("lifetime distance = %d; want 0", s.LifetimeDistance)
	}
	if got := domain.LifetimeDistance(append(records, rec("b", "2024-02-01", 1500, 20))); got != 500 {
		t.Errorf("LifetimeDistance = %d; want 500", got)
	}
}

func TestSortByDate_DateFormats(t *testing.T) {
	records := []domain.FuelRecord{
		rec("bad", "yesterday", 1, 1),
		rec("iso", "2024-02-01T09:30:00Z", 2, 1),
		rec("day", "2024-01-15", 3, 1),
	}
	got := domain.SortByDate(records)
	if len(got) != 2 {
		t.Fatalf("expected unparseable record to be dropped, got %d records", len(got))
	}
	if got[0].ID != "day" || got[1].ID != "iso" {
		t.Errorf("order = %s,%s; want day,iso", got[0].ID, got[1].ID)
	}
}

func TestFillUpsByDay(t *testing.T) {
	records := []domain.FuelRecord{
		rec("a", "2024-03-02", 1000, 20),
		rec("b", "2024-03-02", 1010, 5),
		rec("c", "2024-03-15", 1300, 25),
		rec("d", "2024-04-01", 1600, 30),
	}
	got := domain.FillUpsByDay(records, "2024-03")
	if len(got) != 2 {
		t.Fatalf("expected 2 days, got %d", len(got))
	}
	if got[0].Day != "2024-03-02" || len(got[0].Records) != 2 || !almostEqual(got[0].Liters, 25, 1e-9) {
		t.Errorf("first day = %+v", got[0])
	}
	if all := domain.FillUpsByDay(records, ""); len(all) != 3 {
		t.Errorf("expected 3 days without a month filter, got %d", len(all))
	}
}
