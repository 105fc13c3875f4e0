package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DayLayout is the calendar-day format used for record dates.
const DayLayout = "2006-01-02"

// MonthLayout is the calendar-month key format used by aggregations.
const MonthLayout = "2006-01"

// DefaultCurrency is applied when a record is created without a currency.
const DefaultCurrency = "KRW"

var (
	// ErrInvalidRecord is wrapped by every fuel record validation failure.
	ErrInvalidRecord = errors.New("invalid fuel record")
	// ErrRecordNotFound is returned when a record does not exist for the user.
	ErrRecordNotFound = errors.New("fuel record not found")
)

// FuelRecord is a single fill-up: fuel purchased at a known odometer reading.
type FuelRecord struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Date      string    `json:"date"`
	Liters    float64   `json:"liters"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Mileage   int64     `json:"mileage"`
	CreatedAt time.Time `json:"createdAt"`
}

// Day parses the record date. Full RFC 3339 timestamps are accepted for
// records written before dates were normalised.
func (r FuelRecord) Day() (time.Time, bool) {
	t, err := ParseDay(r.Date)
	return t, err == nil
}

// FuelRecordInput holds the user-supplied fields of a new record.
type FuelRecordInput struct {
	Date     string  `json:"date"`
	Liters   float64 `json:"liters"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Mileage  int64   `json:"mileage"`
}

// Normalize validates the input and returns a copy with the date reduced to
// yyyy-MM-dd and the currency defaulted.
func (in FuelRecordInput) Normalize() (FuelRecordInput, error) {
	var problems []string

	day, err := ParseDay(in.Date)
	if err != nil {
		problems = append(problems, "date must be yyyy-MM-dd")
	}
	if !(in.Liters > 0) || math.IsInf(in.Liters, 0) {
		problems = append(problems, "liters must be > 0")
	}
	if !(in.Price >= 0) || math.IsInf(in.Price, 0) {
		problems = append(problems, "price must be >= 0")
	}
	if in.Mileage < 0 {
		problems = append(problems, "mileage must be >= 0")
	}
	if len(problems) > 0 {
		return in, fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(problems, "; "))
	}

	out := in
	out.Date = day.Format(DayLayout)
	out.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	return out, nil
}

// FuelRecordPatch is a partial update; nil fields are left unchanged.
type FuelRecordPatch struct {
	Date     *string  `json:"date,omitempty"`
	Liters   *float64 `json:"liters,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Currency *string  `json:"currency,omitempty"`
	Mileage  *int64   `json:"mileage,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p FuelRecordPatch) Empty() bool {
	return p.Date == nil && p.Liters == nil && p.Price == nil && p.Currency == nil && p.Mileage == nil
}

// Apply returns rec with the patch applied, validated as a whole.
func (p FuelRecordPatch) Apply(rec FuelRecord) (FuelRecord, error) {
	in := FuelRecordInput{
		Date:     rec.Date,
		Liters:   rec.Liters,
		Price:    rec.Price,
		Currency: rec.Currency,
		Mileage:  rec.Mileage,
	}
	if p.Date != nil {
		in.Date = *p.Date
	}
	if p.Liters != nil {
		in.Liters = *p.Liters
	}
	if p.Price != nil {
		in.Price = *p.Price
	}
	if p.Currency != nil {
		in.Currency = *p.Currency
	}
	if p.Mileage != nil {
		in.Mileage = *p.Mileage
	}
	in, err := in.Normalize()
	if err != nil {
		return rec, err
	}
	rec.Date = in.Date
	rec.Liters = in.Liters
	rec.Price = in.Price
	rec.Currency = in.Currency
	rec.Mileage = in.Mileage
	return rec, nil
}

// ParseDay parses a yyyy-MM-dd date, falling back to RFC 3339. The result is
// midnight UTC of that calendar day.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// FuelRepository is the port for per-user fuel record persistence.
type FuelRepository interface {
	ListFuelRecords(ctx context.Context, userID int64) ([]FuelRecord, error)
	CreateFuelRecord(ctx context.Context, userID int64, in FuelRecordInput) (string, error)
	UpdateFuelRecord(ctx context.Context, userID int64, id string, patch FuelRecordPatch) error
	DeleteFuelRecord(ctx context.Context, userID int64, id string) error
}
