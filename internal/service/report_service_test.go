package service

import (
	"testing"
	"time"

	"clinic-attendance-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthLogs() []models.AttendanceLog {
	return []models.AttendanceLog{
		{Action: models.ActionIn, TimestampUTC: localTime(2026, 3, 3, 9, 0).UTC()},
		{Action: models.ActionOut, TimestampUTC: localTime(2026, 3, 3, 17, 30).UTC()},
		// second session the same day: first IN / last OUT win
		{Action: models.ActionIn, TimestampUTC: localTime(2026, 3, 3, 18, 0).UTC()},
		{Action: models.ActionOut, TimestampUTC: localTime(2026, 3, 3, 20, 0).UTC()},
		// day with an IN but no OUT
		{Action: models.ActionIn, TimestampUTC: localTime(2026, 3, 5, 8, 45).UTC()},
	}
}

func TestBucketByLocalDay(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, testZone)
	end := start.AddDate(0, 1, 0)

	buckets := bucketByLocalDay(monthLogs(), start, end, testZone)
	require.Len(t, buckets, 31)

	day3 := buckets[2]
	require.NotNil(t, day3.firstIn)
	require.NotNil(t, day3.lastOut)
	assert.Equal(t, 9, day3.firstIn.Hour())
	assert.Equal(t, 20, day3.lastOut.Hour())

	day5 := buckets[4]
	require.NotNil(t, day5.firstIn)
	assert.Nil(t, day5.lastOut)

	day1 := buckets[0]
	assert.Nil(t, day1.firstIn)
	assert.Nil(t, day1.lastOut)
}

func TestWorkedMinutes(t *testing.T) {
	in := localTime(2026, 3, 3, 9, 0)
	out := localTime(2026, 3, 3, 17, 30)

	assert.Equal(t, 510, workedMinutes(dayBucket{firstIn: &in, lastOut: &out}))
	assert.Equal(t, 0, workedMinutes(dayBucket{firstIn: &in}))
	assert.Equal(t, 0, workedMinutes(dayBucket{lastOut: &out}))
	// OUT before IN (manual edits can produce this) counts nothing
	assert.Equal(t, 0, workedMinutes(dayBucket{firstIn: &out, lastOut: &in}))
}

func TestBucketByLocalDayAcrossMonths(t *testing.T) {
	logs := []models.AttendanceLog{
		{Action: models.ActionIn, TimestampUTC: localTime(2026, 3, 30, 9, 0).UTC()},
		{Action: models.ActionOut, TimestampUTC: localTime(2026, 3, 30, 17, 0).UTC()},
		{Action: models.ActionIn, TimestampUTC: localTime(2026, 4, 2, 8, 0).UTC()},
	}
	start := time.Date(2026, 3, 28, 0, 0, 0, 0, testZone)
	end := time.Date(2026, 4, 4, 0, 0, 0, 0, testZone)

	buckets := bucketByLocalDay(logs, start, end, testZone)
	require.Len(t, buckets, 7)

	// march 30 is the third day of the window
	require.NotNil(t, buckets[2].firstIn)
	assert.Equal(t, 9, buckets[2].firstIn.Hour())
	require.NotNil(t, buckets[2].lastOut)

	// april 2 is the sixth
	require.NotNil(t, buckets[5].firstIn)
	assert.Equal(t, 8, buckets[5].firstIn.Hour())
	assert.Nil(t, buckets[5].lastOut)

	assert.Equal(t, "2026-04-01", buckets[4].date.Format("2006-01-02"))
}

func TestValidateRange(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, testZone)

	assert.NoError(t, validateRange(start, start.AddDate(0, 0, 14)))
	assert.Error(t, validateRange(start, start))
	assert.Error(t, validateRange(start, start.AddDate(0, 0, -1)))
	assert.Error(t, validateRange(start, start.AddDate(0, 0, 121)))
	assert.NoError(t, validateRange(start, start.AddDate(0, 0, 120)))
}

func TestBuildRangeSummary(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, testZone)
	end := start.AddDate(0, 0, 5)

	buckets := bucketByLocalDay(monthLogs(), start, end, testZone)
	summary := buildRangeSummary(buckets, start, end, "Africa/Cairo")

	assert.Equal(t, "2026-03-01", summary.Start)
	assert.Equal(t, "2026-03-05", summary.End)
	assert.Equal(t, "Africa/Cairo", summary.Timezone)
	assert.Equal(t, 5, summary.TotalDays)

	// one worked day: the 3rd, 09:00 to 20:00
	assert.Equal(t, 1, summary.WorkedDays)
	assert.Equal(t, 11*60, summary.TotalMinutes)
	assert.Equal(t, "11:00", summary.TotalHours)
	assert.Equal(t, "11:00", summary.AveragePerWorkedDay)

	require.Len(t, summary.Days, 5)
	day3 := summary.Days[2]
	assert.Equal(t, "2026-03-03", day3.Date)
	assert.Equal(t, "Tue", day3.Weekday)
	assert.Equal(t, "09:00:00 AM", day3.In)
	assert.Equal(t, "08:00:00 PM", day3.Out)
	assert.Equal(t, 11*60, day3.Minutes)

	// the 5th has an IN but no OUT: present, zero minutes, no hours string
	day5 := summary.Days[4]
	assert.Equal(t, "08:45:00 AM", day5.In)
	assert.Equal(t, "", day5.Out)
	assert.Equal(t, 0, day5.Minutes)
	assert.Equal(t, "", day5.Hours)
}

func TestFormatHelpers(t *testing.T) {
	at := localTime(2026, 3, 3, 17, 30)
	assert.Equal(t, "05:30:00 PM", formatClock(&at))
	assert.Equal(t, "", formatClock(nil))

	assert.Equal(t, "08:30", formatMinutes(510))
	assert.Equal(t, "00:00", formatMinutes(0))
	assert.Equal(t, "00:00", formatMinutes(-5))
	assert.Equal(t, "26:00", formatMinutes(26*60))
}
