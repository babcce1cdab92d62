package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentalops/meterbot/pkg/rental"
)

func TestMemoryTenants(t *testing.T) {
	repo := NewMemory()
	repo.AddTenant(&rental.Tenant{ID: 100, Name: "Alice", Unit: "1A"})
	repo.AddTenant(&rental.Tenant{ID: 200, Name: "Landlord", IsOwner: true})

	ctx := context.Background()

	tenant, err := repo.GetTenant(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Alice", tenant.Name)

	_, err = repo.GetTenant(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := repo.ListTenants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryReadings(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	first := &rental.Reading{
		Date:      time.Date(2025, 6, 26, 12, 0, 0, 0, time.UTC),
		TenantID:  100,
		MeterName: "electricity",
		Previous:  decimal.Zero,
		Current:   decimal.NewFromInt(100),
	}
	second := &rental.Reading{
		Date:      time.Date(2025, 7, 26, 12, 0, 0, 0, time.UTC),
		TenantID:  100,
		MeterName: "electricity",
		Previous:  decimal.NewFromInt(100),
		Current:   decimal.NewFromInt(142),
	}
	require.NoError(t, repo.AppendReading(ctx, first))
	require.NoError(t, repo.AppendReading(ctx, second))

	last, err := repo.LastReading(ctx, 100, "electricity")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Current.Equal(decimal.NewFromInt(142)))

	// No prior reading for an unknown meter.
	last, err = repo.LastReading(ctx, 100, "water")
	require.NoError(t, err)
	assert.Nil(t, last)

	all, err := repo.ListReadings(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryMarkPaid(t *testing.T) {
	repo := NewMemory()
	ctx := context.Background()

	require.NoError(t, repo.AppendReading(ctx, &rental.Reading{TenantID: 100, MeterName: "electricity"}))
	require.NoError(t, repo.AppendReading(ctx, &rental.Reading{TenantID: 100, MeterName: "water"}))
	require.NoError(t, repo.AppendReading(ctx, &rental.Reading{TenantID: 200, MeterName: "electricity"}))

	updated, err := repo.MarkPaid(ctx, 100, "https://receipts.example.com/r.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	readings, err := repo.ListReadings(ctx, 100)
	require.NoError(t, err)
	for _, r := range readings {
		assert.True(t, r.Paid)
		assert.Equal(t, "https://receipts.example.com/r.jpg", r.ReceiptURL)
	}

	// Other tenant untouched.
	other, err := repo.ListReadings(ctx, 200)
	require.NoError(t, err)
	assert.False(t, other[0].Paid)

	// Second call is a no-op: nothing unpaid remains.
	updated, err = repo.MarkPaid(ctx, 100, "ignored")
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestMemorySettings(t *testing.T) {
	repo := NewMemory()
	repo.SetSetting(rental.SettingPaymentDetails, "Bank 1234 5678")

	value, err := repo.Setting(context.Background(), rental.SettingPaymentDetails)
	require.NoError(t, err)
	assert.Equal(t, "Bank 1234 5678", value)

	missing, err := repo.Setting(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}
