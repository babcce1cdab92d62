// Package storage defines the repository abstraction over the bot's
// tabular backend.
//
// The interfaces are segregated by capability (TenantReader, MeterReader,
// ReadingStore, SettingsReader) and compose into Repository. Core logic
// (billing, conversation flow, reminders) depends only on these
// interfaces, so the spreadsheet backend in pkg/storage/sheets can be
// replaced with any persistent store without touching it. An in-memory
// implementation backs tests and local runs.
package storage
