package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMonthDays(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, testZone)
	end := start.AddDate(0, 1, 0)

	days := buildMonthDays(monthLogs(), start, end, testZone)
	require.Len(t, days, 31)

	assert.Equal(t, "2026-03-01", days[0].Date)
	assert.Equal(t, "2026-03-31", days[30].Date)

	day3 := days[2]
	assert.Equal(t, "09:00:00 AM", day3.In)
	assert.Equal(t, "08:00:00 PM", day3.Out)

	day5 := days[4]
	assert.Equal(t, "08:45:00 AM", day5.In)
	assert.Equal(t, "", day5.Out)

	day1 := days[0]
	assert.Equal(t, "", day1.In)
	assert.Equal(t, "", day1.Out)
}

func TestBuildMonthDaysFebruaryLength(t *testing.T) {
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, testZone)
	end := start.AddDate(0, 1, 0)

	days := buildMonthDays(nil, start, end, testZone)
	require.Len(t, days, 28)
	assert.Equal(t, "2026-02-28", days[27].Date)
}
