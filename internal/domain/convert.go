package domain

const (
	// UnitKmPerLiter is the native efficiency unit of the statistics engine.
	UnitKmPerLiter = "km/L"
	// UnitLitersPer100Km is the consumption unit common in Europe.
	UnitLitersPer100Km = "L/100km"
	// UnitMPG is US miles per gallon.
	UnitMPG = "mpg"
)

const kmPerLToMPG = 2.352145833

// ValidEfficiencyUnit reports whether unit is one ConvertEfficiency knows.
func ValidEfficiencyUnit(unit string) bool {
	switch unit {
	case UnitKmPerLiter, UnitLitersPer100Km, UnitMPG:
		return true
	}
	return false
}

// ConvertEfficiency converts an efficiency value from km/L to unit.
// Returns v unchanged for km/L or unrecognised units; zero stays zero.
func ConvertEfficiency(v float64, unit string) float64 {
	if v == 0 {
		return 0
	}
	switch unit {
	case UnitLitersPer100Km:
		return 100 / v
	case UnitMPG:
		return v * kmPerLToMPG
	}
	return v
}

// ConvertSummary returns a copy of s with every efficiency in unit.
func ConvertSummary(s Summary, unit string) Summary {
	if unit == UnitKmPerLiter || !ValidEfficiencyUnit(unit) {
		return s
	}
	s.Window.Efficiency = ConvertEfficiency(s.Window.Efficiency, unit)

	pairs := make([]PairEfficiency, len(s.Efficiencies))
	for i, p := range s.Efficiencies {
		p.Efficiency = ConvertEfficiency(p.Efficiency, unit)
		pairs[i] = p
	}
	s.Efficiencies = pairs

	trend := make([]TrendPoint, len(s.EfficiencyTrend))
	for i, p := range s.EfficiencyTrend {
		p.Efficiency = ConvertEfficiency(p.Efficiency, unit)
		trend[i] = p
	}
	s.EfficiencyTrend = trend
	return s
}
