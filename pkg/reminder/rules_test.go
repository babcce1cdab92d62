package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2025, 7, d, 10, 0, 0, 0, time.UTC)
}

func TestReadingsDue(t *testing.T) {
	assert.True(t, ReadingsDue(day(25)))
	assert.True(t, ReadingsDue(day(28)))

	for _, d := range []int{1, 5, 15, 24, 26, 27, 29, 31} {
		assert.False(t, ReadingsDue(day(d)), "day %d", d)
	}
}

func TestPaymentDue(t *testing.T) {
	assert.True(t, PaymentDue(day(1)))
	assert.True(t, PaymentDue(day(5)))

	for _, d := range []int{2, 4, 6, 25, 28} {
		assert.False(t, PaymentDue(day(d)), "day %d", d)
	}
}
