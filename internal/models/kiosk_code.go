package models

import "time"

// KioskCode represents the kiosk_codes table
// Legacy single-use scan codes, kept so older kiosk builds keep working
// while devices migrate to the offline code protocol. Each code is
// consumed at most once; a background sweep removes stale rows.
type KioskCode struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Code      string     `gorm:"size:300;not null;uniqueIndex" json:"code"`
	DeviceID  uint       `gorm:"not null;index" json:"device_id"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null;index" json:"expires_at"`
	IsUsed    bool       `gorm:"column:is_used;default:false" json:"is_used"`
	UsedAt    *time.Time `gorm:"column:used_at" json:"used_at"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`

	Device Device `gorm:"foreignKey:DeviceID" json:"device,omitempty"`
}

// TableName specifies the table name for KioskCode model
func (KioskCode) TableName() string {
	return "kiosk_codes"
}
