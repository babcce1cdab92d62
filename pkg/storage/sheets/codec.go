package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentalops/meterbot/pkg/rental"
)

// readingDateLayout is the timestamp format written to the Readings
// sheet. Part of the column contract; do not change without migrating
// the spreadsheet.
const readingDateLayout = "2006-01-02 15:04"

// Column contracts, one row per record, header in row 1:
//
//	Tenants:  id | name | unit | is_owner
//	Meters:   tenant_id | name | type | rate | unit
//	Readings: date | tenant_id | meter_name | previous | current |
//	          consumption | amount | paid | receipt_url
//	Settings: key | value

func tenantFromRow(row []interface{}) (*rental.Tenant, error) {
	if len(row) < 2 {
		return nil, fmt.Errorf("tenant row has %d columns, want at least 2", len(row))
	}

	id, err := cellInt64(row[0])
	if err != nil {
		return nil, fmt.Errorf("bad tenant id: %w", err)
	}

	tenant := &rental.Tenant{ID: id, Name: cellString(row[1])}
	if len(row) > 2 {
		tenant.Unit = cellString(row[2])
	}
	if len(row) > 3 {
		tenant.IsOwner = cellBool(row[3])
	}
	return tenant, nil
}

func meterFromRow(row []interface{}) (*rental.Meter, error) {
	if len(row) < 4 {
		return nil, fmt.Errorf("meter row has %d columns, want at least 4", len(row))
	}

	tenantID, err := cellInt64(row[0])
	if err != nil {
		return nil, fmt.Errorf("bad meter tenant id: %w", err)
	}
	rate, err := cellDecimal(row[3])
	if err != nil {
		return nil, fmt.Errorf("bad meter rate: %w", err)
	}

	meter := &rental.Meter{
		TenantID: tenantID,
		Name:     cellString(row[1]),
		Type:     cellString(row[2]),
		Rate:     rate,
	}
	if len(row) > 4 {
		meter.Unit = cellString(row[4])
	}
	return meter, nil
}

func readingFromRow(row []interface{}) (*rental.Reading, error) {
	if len(row) < 8 {
		return nil, fmt.Errorf("reading row has %d columns, want at least 8", len(row))
	}

	date, err := time.Parse(readingDateLayout, cellString(row[0]))
	if err != nil {
		return nil, fmt.Errorf("bad reading date: %w", err)
	}
	tenantID, err := cellInt64(row[1])
	if err != nil {
		return nil, fmt.Errorf("bad reading tenant id: %w", err)
	}
	previous, err := cellDecimal(row[3])
	if err != nil {
		return nil, fmt.Errorf("bad previous value: %w", err)
	}
	current, err := cellDecimal(row[4])
	if err != nil {
		return nil, fmt.Errorf("bad current value: %w", err)
	}
	consumption, err := cellDecimal(row[5])
	if err != nil {
		return nil, fmt.Errorf("bad consumption: %w", err)
	}
	amount, err := cellDecimal(row[6])
	if err != nil {
		return nil, fmt.Errorf("bad amount: %w", err)
	}

	reading := &rental.Reading{
		Date:        date,
		TenantID:    tenantID,
		MeterName:   cellString(row[2]),
		Previous:    previous,
		Current:     current,
		Consumption: consumption,
		Amount:      amount,
		Paid:        cellBool(row[7]),
	}
	if len(row) > 8 {
		reading.ReceiptURL = cellString(row[8])
	}
	return reading, nil
}

func readingToRow(r *rental.Reading) []interface{} {
	paid := "FALSE"
	if r.Paid {
		paid = "TRUE"
	}
	return []interface{}{
		r.Date.Format(readingDateLayout),
		strconv.FormatInt(r.TenantID, 10),
		r.MeterName,
		r.Previous.String(),
		r.Current.String(),
		r.Consumption.String(),
		r.Amount.StringFixed(2),
		paid,
		r.ReceiptURL,
	}
}

// cellString renders any cell value the API hands back as a trimmed string.
func cellString(v interface{}) string {
	return strings.TrimSpace(fmt.Sprint(v))
}

func cellInt64(v interface{}) (int64, error) {
	return strconv.ParseInt(cellString(v), 10, 64)
}

func cellDecimal(v interface{}) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(cellString(v), ",", "."))
}

// cellBool treats TRUE/true/1 as true, anything else as false, matching
// how Sheets renders checkbox and boolean cells.
func cellBool(v interface{}) bool {
	s := strings.ToUpper(cellString(v))
	return s == "TRUE" || s == "1"
}
