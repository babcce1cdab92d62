package storage

import (
	"context"
	"sync"

	"github.com/rentalops/meterbot/pkg/rental"
)

// Memory is an in-memory Repository used by tests and local development.
// It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	tenants  []*rental.Tenant
	meters   []*rental.Meter
	readings []*rental.Reading
	settings map[string]string
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{settings: make(map[string]string)}
}

// AddTenant registers a tenant. Test setup helper.
func (m *Memory) AddTenant(t *rental.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants = append(m.tenants, t)
}

// AddMeter registers a meter. Test setup helper.
func (m *Memory) AddMeter(meter *rental.Meter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meters = append(m.meters, meter)
}

// SetSetting sets a settings key. Test setup helper.
func (m *Memory) SetSetting(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
}

// GetTenant implements TenantReader.
func (m *Memory) GetTenant(ctx context.Context, id int64) (*rental.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tenants {
		if t.ID == id {
			copied := *t
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// ListTenants implements TenantReader.
func (m *Memory) ListTenants(ctx context.Context) ([]*rental.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*rental.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

// ListMeters implements MeterReader.
func (m *Memory) ListMeters(ctx context.Context, tenantID int64) ([]*rental.Meter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*rental.Meter
	for _, meter := range m.meters {
		if meter.TenantID == tenantID {
			copied := *meter
			out = append(out, &copied)
		}
	}
	return out, nil
}

// LastReading implements ReadingStore.
func (m *Memory) LastReading(ctx context.Context, tenantID int64, meterName string) (*rental.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.readings) - 1; i >= 0; i-- {
		r := m.readings[i]
		if r.TenantID == tenantID && r.MeterName == meterName {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

// ListReadings implements ReadingStore.
func (m *Memory) ListReadings(ctx context.Context, tenantID int64) ([]*rental.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*rental.Reading
	for _, r := range m.readings {
		if r.TenantID == tenantID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

// AppendReading implements ReadingStore.
func (m *Memory) AppendReading(ctx context.Context, reading *rental.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *reading
	m.readings = append(m.readings, &copied)
	return nil
}

// MarkPaid implements ReadingStore.
func (m *Memory) MarkPaid(ctx context.Context, tenantID int64, receiptURL string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	updated := 0
	for _, r := range m.readings {
		if r.TenantID == tenantID && !r.Paid {
			r.Paid = true
			r.ReceiptURL = receiptURL
			updated++
		}
	}
	return updated, nil
}

// Setting implements SettingsReader.
func (m *Memory) Setting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

var _ Repository = (*Memory)(nil)
