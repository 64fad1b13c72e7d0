package models

import "time"

// Device represents the devices table
// A device is a physical kiosk (phone or tablet) mounted at the clinic entrance
type Device struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:120;not null" json:"name"`
	Location string `gorm:"size:160" json:"location,omitempty"`
	APIKey   string `gorm:"column:api_key;size:200;not null;uniqueIndex" json:"api_key"`

	// OfflineSecret is the symmetric key for offline code generation,
	// base64url encoded. Provisioned once on first issuance and handed to
	// the device only through the bootstrap endpoint. Never serialized.
	OfflineSecret string `gorm:"column:offline_secret;size:255" json:"-"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName specifies the table name for Device model
func (Device) TableName() string {
	return "devices"
}
