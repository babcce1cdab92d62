package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// amountScale is the number of decimal places amounts are rounded to
// (currency minor unit).
const amountScale = 2

// InvalidReadingError is returned when a submitted reading is lower than
// the previous one for the same meter. It is user-correctable: callers
// should re-prompt rather than persist anything.
type InvalidReadingError struct {
	Previous decimal.Decimal
	Current  decimal.Decimal
}

func (e *InvalidReadingError) Error() string {
	return fmt.Sprintf("invalid reading: current value %s is less than previous value %s",
		e.Current.String(), e.Previous.String())
}

// Charge is the result of computing a meter charge from a pair of
// consecutive readings.
type Charge struct {
	Consumption decimal.Decimal
	Amount      decimal.Decimal
}

// Compute derives consumption and the amount due from a (previous, current)
// reading pair and a per-unit rate. The amount is rounded half-up to the
// currency minor unit; the computation is pure and deterministic, so
// repeated calls with identical inputs yield identical results.
//
// Returns *InvalidReadingError when current < previous.
func Compute(previous, current, rate decimal.Decimal) (Charge, error) {
	if current.LessThan(previous) {
		return Charge{}, &InvalidReadingError{Previous: previous, Current: current}
	}

	consumption := current.Sub(previous)
	return Charge{
		Consumption: consumption,
		Amount:      consumption.Mul(rate).Round(amountScale),
	}, nil
}
