package delivery

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FeeTable prices home deliveries per destination city. Fees are flat amounts
// in XOF. The table is plain data so deployments can override pricing without
// touching the fee computation itself.
type FeeTable struct {
	// Cities maps a city name to its flat delivery fee.
	Cities map[string]decimal.Decimal
	// Default applies to home deliveries to cities absent from the table.
	Default decimal.Decimal
}

// DefaultFeeTable returns the standard AgriTeranga city pricing.
func DefaultFeeTable() FeeTable {
	return FeeTable{
		Cities: map[string]decimal.Decimal{
			"Dakar":       decimal.NewFromInt(500),
			"Pikine":      decimal.NewFromInt(500),
			"Guédiawaye":  decimal.NewFromInt(500),
			"Rufisque":    decimal.NewFromInt(1000),
			"Thiès":       decimal.NewFromInt(1000),
			"Mbour":       decimal.NewFromInt(1500),
			"Kaolack":     decimal.NewFromInt(1500),
			"Touba":       decimal.NewFromInt(2000),
			"Saint-Louis": decimal.NewFromInt(2000),
			"Ziguinchor":  decimal.NewFromInt(3000),
		},
		Default: decimal.NewFromInt(2000),
	}
}

// Fee computes the delivery fee for the given selection. It is a pure function
// of the info and the table: pickup variants are always free, home deliveries
// use the per-city fee and fall back to the table default for unknown cities.
func (t FeeTable) Fee(info Info) decimal.Decimal {
	if info.Method != MethodHomeDelivery {
		return decimal.Zero
	}
	return t.CityFee(info.City)
}

// CityFee returns the home-delivery fee for a city, matching the city name
// with surrounding whitespace ignored and a case-insensitive second pass.
func (t FeeTable) CityFee(city string) decimal.Decimal {
	c := strings.TrimSpace(city)
	if fee, ok := t.Cities[c]; ok {
		return fee
	}
	lc := strings.ToLower(c)
	for name, fee := range t.Cities {
		if strings.ToLower(name) == lc {
			return fee
		}
	}
	return t.Default
}
