// Package billing computes consumption and amounts due from consecutive
// meter readings.
//
// The package is intentionally pure: it performs no I/O and holds no
// state, so the same inputs always produce the same outputs. Amounts are
// decimal.Decimal values rounded half-up to two decimal places (the
// currency minor unit); callers persist the rounded result once and never
// recompute it.
package billing
