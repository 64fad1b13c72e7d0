package repository

import (
	"errors"

	"clinic-attendance-backend/internal/models"

	"gorm.io/gorm"
)

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepo(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// FindActiveByAPIKey retrieves an active device by its API key
func (r *DeviceRepository) FindActiveByAPIKey(apiKey string) (*models.Device, error) {
	var device models.Device
	err := r.db.Where("api_key = ? AND is_active = ?", apiKey, true).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("device not found or inactive")
		}
		return nil, err
	}
	return &device, nil
}

// FindActiveByID retrieves an active device by id
func (r *DeviceRepository) FindActiveByID(id uint) (*models.Device, error) {
	var device models.Device
	err := r.db.Where("id = ? AND is_active = ?", id, true).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("device not found or inactive")
		}
		return nil, err
	}
	return &device, nil
}

// FindByID retrieves a device regardless of active state
func (r *DeviceRepository) FindByID(id uint) (*models.Device, error) {
	var device models.Device
	err := r.db.First(&device, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("device not found")
		}
		return nil, err
	}
	return &device, nil
}

// ListDevices returns all devices ordered by name
func (r *DeviceRepository) ListDevices() ([]models.Device, error) {
	var devices []models.Device
	err := r.db.Order("name ASC").Find(&devices).Error
	return devices, err
}

// CreateDevice creates a new device
func (r *DeviceRepository) CreateDevice(device *models.Device) error {
	return r.db.Create(device).Error
}

// SaveDevice persists changes to an existing device
func (r *DeviceRepository) SaveDevice(device *models.Device) error {
	return r.db.Save(device).Error
}

// DeleteDevice removes a device
func (r *DeviceRepository) DeleteDevice(id uint) error {
	result := r.db.Delete(&models.Device{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("device not found")
	}
	return nil
}

// ProvisionOfflineSecret installs secret on the device only if no secret is
// present, as a single conditional UPDATE. When two first-ever issuances
// race, exactly one write wins; the loser re-reads and returns the winning
// value so both requests hand out the same secret.
func (r *DeviceRepository) ProvisionOfflineSecret(id uint, secret string) (string, error) {
	result := r.db.Model(&models.Device{}).
		Where("id = ? AND (offline_secret IS NULL OR offline_secret = '')", id).
		Update("offline_secret", secret)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected > 0 {
		return secret, nil
	}

	var device models.Device
	if err := r.db.First(&device, id).Error; err != nil {
		return "", err
	}
	return device.OfflineSecret, nil
}

// RotateOfflineSecret unconditionally replaces the device secret.
// Codes derived from the old secret stop verifying immediately.
func (r *DeviceRepository) RotateOfflineSecret(id uint, secret string) error {
	result := r.db.Model(&models.Device{}).
		Where("id = ?", id).
		Update("offline_secret", secret)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("device not found")
	}
	return nil
}
