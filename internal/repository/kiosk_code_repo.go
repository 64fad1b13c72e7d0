package repository

import (
	"errors"
	"time"

	"clinic-attendance-backend/internal/models"

	"gorm.io/gorm"
)

type KioskCodeRepository struct {
	db *gorm.DB
}

func NewKioskCodeRepo(db *gorm.DB) *KioskCodeRepository {
	return &KioskCodeRepository{db: db}
}

// CreateCode stores a new legacy single-use code
func (r *KioskCodeRepository) CreateCode(code *models.KioskCode) error {
	return r.db.Create(code).Error
}

// FindByCode retrieves a legacy code with its device by exact code string
func (r *KioskCodeRepository) FindByCode(code string) (*models.KioskCode, error) {
	var kc models.KioskCode
	err := r.db.Where("code = ?", code).Preload("Device").First(&kc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("kiosk code not found")
		}
		return nil, err
	}
	return &kc, nil
}

// MarkUsed consumes a legacy code. The WHERE clause on is_used makes the
// consumption atomic: if another request already consumed it, zero rows
// are affected and this call reports the code as spent.
func (r *KioskCodeRepository) MarkUsed(id uint, at time.Time) error {
	result := r.db.Model(&models.KioskCode{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("kiosk code already used")
	}
	return nil
}

// DeleteStale removes expired never-used codes older than expiredBefore and
// used codes consumed before usedBefore. Returns the number of rows removed.
func (r *KioskCodeRepository) DeleteStale(expiredBefore, usedBefore time.Time) (int64, error) {
	var removed int64

	result := r.db.Where("is_used = ? AND expires_at < ?", false, expiredBefore).
		Delete(&models.KioskCode{})
	if result.Error != nil {
		return removed, result.Error
	}
	removed += result.RowsAffected

	result = r.db.Where("used_at IS NOT NULL AND used_at < ?", usedBefore).
		Delete(&models.KioskCode{})
	if result.Error != nil {
		return removed, result.Error
	}
	removed += result.RowsAffected

	return removed, nil
}
