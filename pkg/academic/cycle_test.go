package academic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestCycleYear(t *testing.T) {
	testCases := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{"January belongs to previous cycle", date(2026, time.January, 15), 2025},
		{"June 30 belongs to previous cycle", date(2026, time.June, 30), 2025},
		{"July 1 starts new cycle", date(2026, time.July, 1), 2026},
		{"December stays in cycle", date(2026, time.December, 31), 2026},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CycleYear(tc.now))
		})
	}
}

func TestPointExpiry(t *testing.T) {
	testCases := []struct {
		name     string
		now      time.Time
		expected time.Time
	}{
		{
			name:     "Earned in window expires at cycle cutoff",
			now:      date(2026, time.August, 3),
			expected: time.Date(2026, time.November, 30, 23, 59, 59, 0, time.UTC),
		},
		{
			name:     "Earned on cutoff day",
			now:      date(2026, time.November, 30),
			expected: time.Date(2026, time.November, 30, 23, 59, 59, 0, time.UTC),
		},
		{
			name:     "Earned in December carries to next cutoff",
			now:      date(2026, time.December, 2),
			expected: time.Date(2027, time.November, 30, 23, 59, 59, 0, time.UTC),
		},
		{
			name:     "Earned in spring carries to same calendar year cutoff",
			now:      date(2027, time.March, 10),
			expected: time.Date(2027, time.November, 30, 23, 59, 59, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, PointExpiry(tc.now))
		})
	}
}

func TestInEarningWindow(t *testing.T) {
	assert.True(t, InEarningWindow(date(2026, time.July, 1)))
	assert.True(t, InEarningWindow(date(2026, time.November, 30)))
	assert.False(t, InEarningWindow(date(2026, time.December, 1)))
	assert.False(t, InEarningWindow(date(2027, time.June, 15)))
}

func TestCycleBounds(t *testing.T) {
	assert.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), CycleStart(2026, time.UTC))
	assert.Equal(t, time.Date(2027, time.June, 30, 23, 59, 59, 0, time.UTC), CycleEnd(2026, time.UTC))
}
