package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNegativeRate is returned when a tariff is constructed with a negative rate.
var ErrNegativeRate = errors.New("pricing: negative rate")

// Tariff is the per-kWh rate used to derive reading costs. It is passed
// explicitly into the ingest path rather than read from process globals.
type Tariff struct {
	ratePerKWh decimal.Decimal
}

// NewTariff constructs a tariff from a non-negative rate.
func NewTariff(ratePerKWh decimal.Decimal) (Tariff, error) {
	if ratePerKWh.IsNegative() {
		return Tariff{}, ErrNegativeRate
	}
	return Tariff{ratePerKWh: ratePerKWh}, nil
}

// MustTariff constructs a tariff and panics on a negative rate. Intended for
// wiring and tests with constant rates.
func MustTariff(ratePerKWh decimal.Decimal) Tariff {
	tariff, err := NewTariff(ratePerKWh)
	if err != nil {
		panic(err)
	}
	return tariff
}

// RatePerKWh returns the configured rate.
func (t Tariff) RatePerKWh() decimal.Decimal { return t.ratePerKWh }

// Cost converts an energy quantity to a monetary cost, rounded to two
// decimal places half-up (quantities are non-negative, so rounding away
// from zero is half-up). Rounding happens exactly once here; stored costs
// are never recomputed when the configured rate changes later.
func (t Tariff) Cost(energyKWh decimal.Decimal) decimal.Decimal {
	return energyKWh.Mul(t.ratePerKWh).Round(2)
}
