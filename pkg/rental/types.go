package rental

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tenant is a user of the bot, identified by their Telegram user ID.
// The owner is a tenant row with IsOwner set; it is the only identity
// allowed to run management commands.
type Tenant struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Unit    string `json:"unit"`
	IsOwner bool   `json:"is_owner"`
}

// Meter is a tracked utility consumption source owned by a single tenant.
// Ownership never transfers once created.
type Meter struct {
	TenantID int64           `json:"tenant_id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Rate     decimal.Decimal `json:"rate"`
	Unit     string          `json:"unit"`
}

// Reading is one billing-period record for a meter. Consumption and
// Amount are computed once at creation and never recomputed afterwards.
type Reading struct {
	Date        time.Time       `json:"date"`
	TenantID    int64           `json:"tenant_id"`
	MeterName   string          `json:"meter_name"`
	Previous    decimal.Decimal `json:"previous"`
	Current     decimal.Decimal `json:"current"`
	Consumption decimal.Decimal `json:"consumption"`
	Amount      decimal.Decimal `json:"amount"`
	Paid        bool            `json:"paid"`
	ReceiptURL  string          `json:"receipt_url,omitempty"`
}

// InPeriod reports whether the reading belongs to the billing period
// (calendar month) containing t.
func (r *Reading) InPeriod(t time.Time) bool {
	return r.Date.Year() == t.Year() && r.Date.Month() == t.Month()
}

// Meter types recognized by the bot. Free-form values are accepted in
// the Meters table; these are just the common ones.
const (
	MeterTypeElectricity = "electricity"
	MeterTypeWater       = "water"
	MeterTypeGas         = "gas"
)

// Settings keys used by the bot.
const (
	// SettingPaymentDetails holds the payment-instructions text included
	// in payment reminders.
	SettingPaymentDetails = "payment_details"
)
