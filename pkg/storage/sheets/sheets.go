package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/rentalops/meterbot/pkg/rental"
	"github.com/rentalops/meterbot/pkg/storage"
)

// Worksheet names. Column order within each sheet is a compatibility
// contract shared with the spreadsheet; see codec.go.
const (
	tenantsSheet  = "Tenants"
	metersSheet   = "Meters"
	readingsSheet = "Readings"
	settingsSheet = "Settings"
)

// readCacheTTL bounds how stale a cached table read may be. Writes
// invalidate the affected table immediately.
const readCacheTTL = 2 * time.Minute

// Config holds Google Sheets connection settings.
type Config struct {
	// SpreadsheetID identifies the spreadsheet holding the four tables.
	SpreadsheetID string
	// CredentialsJSON is the raw service-account key JSON.
	CredentialsJSON string
}

// Repository is a storage.Repository backed by a Google Sheets
// spreadsheet. Table reads are cached with a short TTL to keep Sheets
// API usage within quota; every write invalidates the written table.
type Repository struct {
	svc           *sheets.Service
	spreadsheetID string
	cache         *expirable.LRU[string, [][]interface{}]
	log           *logrus.Logger
}

// New creates a Sheets-backed repository using service-account
// credentials.
func New(ctx context.Context, cfg Config, log *logrus.Logger) (*Repository, error) {
	if log == nil {
		log = logrus.New()
	}

	jwtConfig, err := google.JWTConfigFromJSON([]byte(cfg.CredentialsJSON), sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	return &Repository{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		cache:         expirable.NewLRU[string, [][]interface{}](8, nil, readCacheTTL),
		log:           log,
	}, nil
}

// readRows returns all data rows of a worksheet (header excluded),
// serving from cache when fresh.
func (r *Repository) readRows(ctx context.Context, sheet string) ([][]interface{}, error) {
	if rows, ok := r.cache.Get(sheet); ok {
		return rows, nil
	}

	resp, err := r.svc.Spreadsheets.Values.
		Get(r.spreadsheetID, sheet+"!A2:Z").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	r.cache.Add(sheet, resp.Values)
	return resp.Values, nil
}

func (r *Repository) invalidate(sheet string) {
	r.cache.Remove(sheet)
}

// GetTenant implements storage.TenantReader.
func (r *Repository) GetTenant(ctx context.Context, id int64) (*rental.Tenant, error) {
	tenants, err := r.ListTenants(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListTenants implements storage.TenantReader.
func (r *Repository) ListTenants(ctx context.Context) ([]*rental.Tenant, error) {
	rows, err := r.readRows(ctx, tenantsSheet)
	if err != nil {
		return nil, err
	}

	tenants := make([]*rental.Tenant, 0, len(rows))
	for i, row := range rows {
		tenant, err := tenantFromRow(row)
		if err != nil {
			r.log.WithError(err).WithField("row", i+2).Warn("skipping malformed tenant row")
			continue
		}
		tenants = append(tenants, tenant)
	}
	return tenants, nil
}

// ListMeters implements storage.MeterReader.
func (r *Repository) ListMeters(ctx context.Context, tenantID int64) ([]*rental.Meter, error) {
	rows, err := r.readRows(ctx, metersSheet)
	if err != nil {
		return nil, err
	}

	var meters []*rental.Meter
	for i, row := range rows {
		meter, err := meterFromRow(row)
		if err != nil {
			r.log.WithError(err).WithField("row", i+2).Warn("skipping malformed meter row")
			continue
		}
		if meter.TenantID == tenantID {
			meters = append(meters, meter)
		}
	}
	return meters, nil
}

// LastReading implements storage.ReadingStore.
func (r *Repository) LastReading(ctx context.Context, tenantID int64, meterName string) (*rental.Reading, error) {
	rows, err := r.readRows(ctx, readingsSheet)
	if err != nil {
		return nil, err
	}

	// Readings are append-only, so the last matching row is the latest.
	for i := len(rows) - 1; i >= 0; i-- {
		reading, err := readingFromRow(rows[i])
		if err != nil {
			r.log.WithError(err).WithField("row", i+2).Warn("skipping malformed reading row")
			continue
		}
		if reading.TenantID == tenantID && reading.MeterName == meterName {
			return reading, nil
		}
	}
	return nil, nil
}

// ListReadings implements storage.ReadingStore.
func (r *Repository) ListReadings(ctx context.Context, tenantID int64) ([]*rental.Reading, error) {
	rows, err := r.readRows(ctx, readingsSheet)
	if err != nil {
		return nil, err
	}

	var readings []*rental.Reading
	for i, row := range rows {
		reading, err := readingFromRow(row)
		if err != nil {
			r.log.WithError(err).WithField("row", i+2).Warn("skipping malformed reading row")
			continue
		}
		if reading.TenantID == tenantID {
			readings = append(readings, reading)
		}
	}
	return readings, nil
}

// AppendReading implements storage.ReadingStore.
func (r *Repository) AppendReading(ctx context.Context, reading *rental.Reading) error {
	_, err := r.svc.Spreadsheets.Values.
		Append(r.spreadsheetID, readingsSheet+"!A:I", &sheets.ValueRange{
			Values: [][]interface{}{readingToRow(reading)},
		}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append reading: %w", err)
	}

	r.invalidate(readingsSheet)
	return nil
}

// MarkPaid implements storage.ReadingStore. It updates the paid flag and
// receipt URL cells of every unpaid row for the tenant in a single batch
// call.
func (r *Repository) MarkPaid(ctx context.Context, tenantID int64, receiptURL string) (int, error) {
	// Bypass the cache: paid-state updates must see current rows.
	r.invalidate(readingsSheet)
	rows, err := r.readRows(ctx, readingsSheet)
	if err != nil {
		return 0, err
	}

	var data []*sheets.ValueRange
	for i, row := range rows {
		reading, err := readingFromRow(row)
		if err != nil {
			continue
		}
		if reading.TenantID == tenantID && !reading.Paid {
			// Columns H:I = paid, receipt_url; data rows start at 2.
			data = append(data, &sheets.ValueRange{
				Range:  fmt.Sprintf("%s!H%d:I%d", readingsSheet, i+2, i+2),
				Values: [][]interface{}{{"TRUE", receiptURL}},
			})
		}
	}

	if len(data) == 0 {
		return 0, nil
	}

	_, err = r.svc.Spreadsheets.Values.
		BatchUpdate(r.spreadsheetID, &sheets.BatchUpdateValuesRequest{
			ValueInputOption: "RAW",
			Data:             data,
		}).
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to mark readings paid: %w", err)
	}

	r.invalidate(readingsSheet)
	return len(data), nil
}

// Setting implements storage.SettingsReader.
func (r *Repository) Setting(ctx context.Context, key string) (string, error) {
	rows, err := r.readRows(ctx, settingsSheet)
	if err != nil {
		return "", err
	}

	for _, row := range rows {
		if len(row) >= 2 && cellString(row[0]) == key {
			return cellString(row[1]), nil
		}
	}
	return "", nil
}

// HealthCheck verifies the spreadsheet is reachable.
func (r *Repository) HealthCheck(ctx context.Context) error {
	_, err := r.svc.Spreadsheets.
		Get(r.spreadsheetID).
		Fields("spreadsheetId").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets health check failed: %w", err)
	}
	return nil
}

var _ storage.Repository = (*Repository)(nil)
