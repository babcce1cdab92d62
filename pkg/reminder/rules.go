package reminder

import "time"

// Reminder trigger days. Readings are collected near month end; payment
// follow-ups land just after the new billing period opens.
var (
	readingsDays = map[int]bool{25: true, 28: true}
	paymentDays  = map[int]bool{1: true, 5: true}
)

// ReadingsDue reports whether t falls on a submit-your-readings reminder
// day.
func ReadingsDue(t time.Time) bool {
	return readingsDays[t.Day()]
}

// PaymentDue reports whether t falls on a payment reminder day.
func PaymentDue(t time.Time) bool {
	return paymentDays[t.Day()]
}
