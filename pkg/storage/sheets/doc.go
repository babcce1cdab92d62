// Package sheets implements storage.Repository on top of a Google Sheets
// spreadsheet with four worksheets: Tenants, Meters, Readings, Settings.
// Column order is a compatibility contract; there is no schema migration.
package sheets
