package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"clinic-attendance-backend/internal/models"
	"clinic-attendance-backend/internal/repository"
)

type ReportService struct {
	logRepo  *repository.AttendanceRepository
	userRepo *repository.UserRepository
	tz       *time.Location
}

func NewReportService(
	logRepo *repository.AttendanceRepository,
	userRepo *repository.UserRepository,
	tz *time.Location,
) *ReportService {
	return &ReportService{
		logRepo:  logRepo,
		userRepo: userRepo,
		tz:       tz,
	}
}

// dayBucket accumulates the first IN and last OUT of one local day
type dayBucket struct {
	date    time.Time
	firstIn *time.Time
	lastOut *time.Time
}

// MyMonthCSV renders one line per clinic-local day of a month with the
// user's first IN and last OUT.
func (s *ReportService) MyMonthCSV(userID uint, year, month int) ([]byte, error) {
	if year < 2000 || month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid year or month")
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.tz)
	end := start.AddDate(0, 1, 0)

	logs, err := s.logRepo.ListByUserBetween(userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch month logs: %w", err)
	}

	buckets := bucketByLocalDay(logs, start, end, s.tz)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Date", "IN", "OUT", "Worked"})
	for _, b := range buckets {
		_ = w.Write([]string{
			b.date.Format("01/02/06"),
			formatClock(b.firstIn),
			formatClock(b.lastOut),
			formatMinutes(workedMinutes(b)),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ClinicMonthCSV renders all raw rows of a month across users, one line
// per attendance row.
func (s *ReportService) ClinicMonthCSV(year, month int) ([]byte, error) {
	if year < 2000 || month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid year or month")
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.tz)
	return s.clinicCSV(start, start.AddDate(0, 1, 0))
}

// ClinicRangeCSV is ClinicMonthCSV over an arbitrary [start, end) window.
func (s *ReportService) ClinicRangeCSV(start, end time.Time) ([]byte, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	return s.clinicCSV(start, end)
}

func (s *ReportService) clinicCSV(start, end time.Time) ([]byte, error) {
	logs, err := s.logRepo.ListBetween(start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Doctor", "Email", "Date", "Time", "Action", "Source", "Device", "Notes"})
	for _, log := range logs {
		local := log.TimestampUTC.In(s.tz)
		deviceName := ""
		if log.Device != nil {
			deviceName = log.Device.Name
		}
		_ = w.Write([]string{
			log.User.FullName,
			log.User.Email,
			local.Format("01/02/06"),
			local.Format("03:04:05 PM"),
			log.Action,
			log.Source,
			deviceName,
			log.Notes,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UserRangeCSV renders one line per local day of [start, end) with the
// user's first IN, last OUT and worked time, plus a totals line.
func (s *ReportService) UserRangeCSV(userID uint, start, end time.Time) ([]byte, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	logs, err := s.logRepo.ListByUserBetween(userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch range logs: %w", err)
	}

	buckets := bucketByLocalDay(logs, start, end, s.tz)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Date", "IN", "OUT", "Worked"})
	total := 0
	for _, b := range buckets {
		worked := workedMinutes(b)
		total += worked
		_ = w.Write([]string{
			b.date.Format("01/02/06"),
			formatClock(b.firstIn),
			formatClock(b.lastOut),
			formatMinutes(worked),
		})
	}
	_ = w.Write([]string{"Total", "", "", formatMinutes(total)})
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RangeDay is one local day of a range summary
type RangeDay struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Weekday string `json:"weekday"`
	In      string `json:"in"`
	Out     string `json:"out"`
	Hours   string `json:"hours"` // HH:MM, empty when nothing was worked
	Minutes int    `json:"minutes"`
}

// RangeSummary is the per-day digest of an arbitrary range with totals
type RangeSummary struct {
	Start               string     `json:"start"` // first included local day
	End                 string     `json:"end"`   // last included local day
	Timezone            string     `json:"timezone"`
	TotalDays           int        `json:"total_days"`
	TotalMinutes        int        `json:"total_minutes"`
	TotalHours          string     `json:"total_hours"`
	WorkedDays          int        `json:"worked_days"`
	AveragePerWorkedDay string     `json:"average_per_worked_day"`
	Days                []RangeDay `json:"days"`
}

// UserRangeSummary returns the user's per-day digest of [start, end) with
// worked-day totals and the average per worked day.
func (s *ReportService) UserRangeSummary(userID uint, start, end time.Time) (*RangeSummary, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}

	logs, err := s.logRepo.ListByUserBetween(userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch range logs: %w", err)
	}

	buckets := bucketByLocalDay(logs, start, end, s.tz)
	return buildRangeSummary(buckets, start, end, s.tz.String()), nil
}

func buildRangeSummary(buckets []dayBucket, start, end time.Time, tzName string) *RangeSummary {
	summary := &RangeSummary{
		Start:     start.Format("2006-01-02"),
		End:       end.AddDate(0, 0, -1).Format("2006-01-02"),
		Timezone:  tzName,
		TotalDays: len(buckets),
		Days:      make([]RangeDay, 0, len(buckets)),
	}
	for _, b := range buckets {
		worked := workedMinutes(b)
		day := RangeDay{
			Date:    b.date.Format("2006-01-02"),
			Weekday: b.date.Format("Mon"),
			In:      formatClock(b.firstIn),
			Out:     formatClock(b.lastOut),
			Minutes: worked,
		}
		if worked > 0 {
			day.Hours = formatMinutes(worked)
			summary.WorkedDays++
		}
		summary.TotalMinutes += worked
		summary.Days = append(summary.Days, day)
	}
	summary.TotalHours = formatMinutes(summary.TotalMinutes)
	if summary.WorkedDays > 0 {
		summary.AveragePerWorkedDay = formatMinutes(summary.TotalMinutes / summary.WorkedDays)
	}
	return summary
}

// LocalDate parses a YYYY-MM-DD query value as a clinic-local midnight.
func (s *ReportService) LocalDate(v string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", v, s.tz)
}

// maxRangeDays bounds custom report windows
const maxRangeDays = 120

func validateRange(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("invalid range")
	}
	if localDayIndex(start, end) > maxRangeDays {
		return fmt.Errorf("range too large")
	}
	return nil
}

// localDayIndex counts the calendar days from start's local date to t's
// local date. Computed on the dates alone so DST shifts cannot skew it.
func localDayIndex(start, t time.Time) int {
	sy, sm, sd := start.Date()
	ty, tm, td := t.Date()
	a := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// bucketByLocalDay folds rows into one bucket per local calendar day of
// [start, end), keeping the earliest IN and latest OUT of each day. start
// is a local midnight; the range may span month boundaries.
func bucketByLocalDay(logs []models.AttendanceLog, start, end time.Time, loc *time.Location) []dayBucket {
	totalDays := localDayIndex(start, end.In(loc))

	buckets := make([]dayBucket, totalDays)
	for i := range buckets {
		buckets[i].date = start.AddDate(0, 0, i)
	}

	for _, log := range logs {
		local := log.TimestampUTC.In(loc)
		idx := localDayIndex(start, local)
		if idx < 0 || idx >= totalDays {
			continue
		}
		switch log.Action {
		case models.ActionIn:
			if buckets[idx].firstIn == nil || local.Before(*buckets[idx].firstIn) {
				t := local
				buckets[idx].firstIn = &t
			}
		case models.ActionOut:
			if buckets[idx].lastOut == nil || local.After(*buckets[idx].lastOut) {
				t := local
				buckets[idx].lastOut = &t
			}
		}
	}
	return buckets
}

func workedMinutes(b dayBucket) int {
	if b.firstIn == nil || b.lastOut == nil || !b.lastOut.After(*b.firstIn) {
		return 0
	}
	return int(b.lastOut.Sub(*b.firstIn).Minutes())
}

func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("03:04:05 PM")
}

func formatMinutes(total int) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
