package domain

// CalendarDay lists the fill-ups recorded on one calendar day.
type CalendarDay struct {
	Day     string       `json:"day"`
	Liters  float64      `json:"liters"`
	Price   float64      `json:"price"`
	Records []FuelRecord `json:"records"`
}

// CalendarMonth is one month of fill-ups. Month is always resolved to
// yyyy-MM.
type CalendarMonth struct {
	Month string        `json:"month"`
	Days  []CalendarDay `json:"days"`
}

// FillUpsByDay groups records by calendar day, ascending. A non-empty month
// (yyyy-MM) restricts the result to that month.
func FillUpsByDay(records []FuelRecord, month string) []CalendarDay {
	out := make([]CalendarDay, 0)
	for _, r := range sortRecords(records) {
		if month != "" && r.day.Format(MonthLayout) != month {
			continue
		}
		day := r.day.Format(DayLayout)
		rec := r.FuelRecord
		rec.Date = day
		if n := len(out); n > 0 && out[n-1].Day == day {
			out[n-1].Liters += rec.Liters
			out[n-1].Price += rec.Price
			out[n-1].Records = append(out[n-1].Records, rec)
			continue
		}
		out = append(out, CalendarDay{Day: day, Liters: rec.Liters, Price: rec.Price, Records: []FuelRecord{rec}})
	}
	return out
}
