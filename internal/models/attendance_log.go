package models

import "time"

// Attendance actions
const (
	ActionIn  = "IN"
	ActionOut = "OUT"
)

// Attendance sources
const (
	SourceKiosk = "KIOSK"
	SourceAdmin = "ADMIN"
	SourceAPI   = "API"
)

// AttendanceLog represents the attendance_logs table
// Rows are append-only from the scan path; only admin edits may change them.
// A user's status is never stored: it is derived from the most recent row.
type AttendanceLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:idx_attendance_user_ts" json:"user_id"`
	DeviceID     *uint     `gorm:"index" json:"device_id"` // nil for admin-entered rows
	TimestampUTC time.Time `gorm:"column:timestamp_utc;not null;index:idx_attendance_user_ts" json:"timestamp_utc"`
	Action       string    `gorm:"size:6;not null" json:"action"`
	Source       string    `gorm:"size:10;default:'KIOSK'" json:"source"`
	Notes        string    `gorm:"size:240" json:"notes,omitempty"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	User   User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Device *Device `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
}

// TableName specifies the table name for AttendanceLog model
func (AttendanceLog) TableName() string {
	return "attendance_logs"
}
