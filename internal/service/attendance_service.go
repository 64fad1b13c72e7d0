package service

import (
	"fmt"
	"time"

	"clinic-attendance-backend/internal/models"
	"clinic-attendance-backend/internal/repository"
)

// EventRecorder appends audit events. *repository.EventLogRepository
// satisfies it.
type EventRecorder interface {
	CreateEvent(userID *uint, action, details string) error
}

type AttendanceService struct {
	store     ScanStore
	logs      *repository.AttendanceRepository
	kiosk     *KioskService
	events    EventRecorder
	tz        *time.Location
	autoClose bool
	now       func() time.Time
}

func NewAttendanceService(
	store ScanStore,
	logs *repository.AttendanceRepository,
	kiosk *KioskService,
	events EventRecorder,
	tz *time.Location,
	autoClose bool,
) *AttendanceService {
	return &AttendanceService{
		store:     store,
		logs:      logs,
		kiosk:     kiosk,
		events:    events,
		tz:        tz,
		autoClose: autoClose,
		now:       time.Now,
	}
}

// ScanResult is the outcome of one accepted scan
type ScanResult struct {
	Action     string    `json:"action"`
	At         time.Time `json:"at"`
	AutoClosed bool      `json:"auto_closed,omitempty"`
	Note       string    `json:"note,omitempty"`
}

// RecordScan validates the code, then runs the toggle decision while
// holding an exclusive lock on the user row. Two concurrent scans for the
// same user serialize on that lock; the second sees the first's committed
// rows before deciding. Nothing is committed on any failure, so a failed
// scan is always safe to resubmit.
func (s *AttendanceService) RecordScan(userID uint, code string) (*ScanResult, error) {
	device, err := s.kiosk.ResolveCode(code)
	if err != nil {
		return nil, err
	}

	var result *ScanResult

	err = s.store.WithLockedUser(userID, func(user *models.User, logs ScanLogView) error {
		if !user.IsActive {
			return ErrUserInactive
		}

		// Stamp the scan only after the lock is held: serialized scans then
		// carry timestamps in commit order, which the most-recent-row read
		// and the alternation of IN/OUT depend on.
		now := s.now()

		last, err := logs.Last()
		if err != nil {
			return fmt.Errorf("failed to read last log: %w", err)
		}

		plan, err := decideTransition(last, now, s.tz, s.autoClose)
		if err != nil {
			return err
		}

		deviceID := device.ID
		for _, entry := range plan.Entries {
			row := &models.AttendanceLog{
				UserID:       userID,
				DeviceID:     &deviceID,
				TimestampUTC: entry.At,
				Action:       entry.Action,
				Source:       entry.Source,
				Notes:        entry.Notes,
			}
			if err := logs.Append(row); err != nil {
				return fmt.Errorf("failed to append attendance log: %w", err)
			}
		}

		result = &ScanResult{
			Action:     plan.Action,
			At:         now.UTC(),
			AutoClosed: plan.AutoClosed,
			Note:       plan.Note,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.events.CreateEvent(&userID, "attendance_scan",
		fmt.Sprintf("Scan on device %d recorded %s", device.ID, result.Action))

	return result, nil
}

// HistoryItem is one row of a user's raw history
type HistoryItem struct {
	ID     uint           `json:"id"`
	Action string         `json:"action"`
	At     time.Time      `json:"at"`
	Device *HistoryDevice `json:"device"`
}

type HistoryDevice struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// HistoryPage is a page of raw history, newest first
type HistoryPage struct {
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Items  []HistoryItem `json:"items"`
}

// MyHistory returns a page of the user's raw rows, newest first
func (s *AttendanceService) MyHistory(userID uint, limit, offset int) (*HistoryPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	logs, total, err := s.logs.ListByUser(userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	items := make([]HistoryItem, 0, len(logs))
	for _, log := range logs {
		item := HistoryItem{
			ID:     log.ID,
			Action: log.Action,
			At:     log.TimestampUTC.UTC(),
		}
		if log.Device != nil {
			item.Device = &HistoryDevice{ID: log.Device.ID, Name: log.Device.Name}
		}
		items = append(items, item)
	}

	return &HistoryPage{Total: total, Limit: limit, Offset: offset, Items: items}, nil
}

// DaySummary is one local calendar day with its first IN and last OUT
type DaySummary struct {
	Date string `json:"date"` // YYYY-MM-DD
	In   string `json:"in"`   // hh:mm:ss AM/PM, empty when absent
	Out  string `json:"out"`
}

// MonthSummary is the per-day digest of one month in the clinic timezone
type MonthSummary struct {
	Year     int          `json:"year"`
	Month    int          `json:"month"`
	Timezone string       `json:"timezone"`
	Days     []DaySummary `json:"days"`
}

// MyMonthSummary returns first-IN/last-OUT per clinic-local day of a month
func (s *AttendanceService) MyMonthSummary(userID uint, year, month int) (*MonthSummary, error) {
	if year < 2000 || month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid year or month")
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.tz)
	end := start.AddDate(0, 1, 0)

	logs, err := s.logs.ListByUserBetween(userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch month logs: %w", err)
	}

	days := buildMonthDays(logs, start, end, s.tz)
	return &MonthSummary{
		Year:     year,
		Month:    month,
		Timezone: s.tz.String(),
		Days:     days,
	}, nil
}

// buildMonthDays buckets rows into local days keeping the earliest IN and
// latest OUT of each day.
func buildMonthDays(logs []models.AttendanceLog, start, end time.Time, loc *time.Location) []DaySummary {
	daysInMonth := localDayIndex(start, end.In(loc))

	firstIn := make([]*time.Time, daysInMonth)
	lastOut := make([]*time.Time, daysInMonth)

	for _, log := range logs {
		local := log.TimestampUTC.In(loc)
		idx := localDayIndex(start, local)
		if idx < 0 || idx >= daysInMonth {
			continue
		}
		switch log.Action {
		case models.ActionIn:
			if firstIn[idx] == nil || local.Before(*firstIn[idx]) {
				t := local
				firstIn[idx] = &t
			}
		case models.ActionOut:
			if lastOut[idx] == nil || local.After(*lastOut[idx]) {
				t := local
				lastOut[idx] = &t
			}
		}
	}

	days := make([]DaySummary, daysInMonth)
	for i := 0; i < daysInMonth; i++ {
		date := start.AddDate(0, 0, i)
		day := DaySummary{Date: date.Format("2006-01-02")}
		if firstIn[i] != nil {
			day.In = firstIn[i].Format("03:04:05 PM")
		}
		if lastOut[i] != nil {
			day.Out = lastOut[i].Format("03:04:05 PM")
		}
		days[i] = day
	}
	return days
}
