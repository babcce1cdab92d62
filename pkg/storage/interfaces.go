package storage

import (
	"context"
	"errors"

	"github.com/rentalops/meterbot/pkg/rental"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// TenantReader provides read access to the Tenants table.
type TenantReader interface {
	// GetTenant returns the tenant with the given Telegram ID, or
	// ErrNotFound if no such row exists.
	GetTenant(ctx context.Context, id int64) (*rental.Tenant, error)

	// ListTenants returns all tenants, owner included.
	ListTenants(ctx context.Context) ([]*rental.Tenant, error)
}

// MeterReader provides read access to the Meters table.
type MeterReader interface {
	// ListMeters returns the meters owned by the given tenant, in table order.
	ListMeters(ctx context.Context, tenantID int64) ([]*rental.Meter, error)
}

// ReadingStore provides read/append access to the Readings table.
// Rows are append-only; the only mutation is flipping Paid and attaching
// a receipt URL.
type ReadingStore interface {
	// LastReading returns the most recent reading for the tenant's meter,
	// or nil if the meter has never been read.
	LastReading(ctx context.Context, tenantID int64, meterName string) (*rental.Reading, error)

	// ListReadings returns all readings for the tenant, oldest first.
	ListReadings(ctx context.Context, tenantID int64) ([]*rental.Reading, error)

	// AppendReading appends a new reading row.
	AppendReading(ctx context.Context, reading *rental.Reading) error

	// MarkPaid sets Paid=true and attaches receiptURL on every unpaid
	// reading belonging to the tenant, returning the number of rows updated.
	MarkPaid(ctx context.Context, tenantID int64, receiptURL string) (int, error)
}

// SettingsReader provides read access to the Settings key/value table.
type SettingsReader interface {
	// Setting returns the value for key, or "" when the key is absent.
	Setting(ctx context.Context, key string) (string, error)
}

// Repository is the narrow persistence surface the bot depends on. The
// production implementation is backed by a Google Sheets spreadsheet
// (pkg/storage/sheets); tests use the in-memory implementation below.
type Repository interface {
	TenantReader
	MeterReader
	ReadingStore
	SettingsReader
}
