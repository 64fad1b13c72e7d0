package repository

import (
	"errors"
	"time"

	"clinic-attendance-backend/internal/models"

	"gorm.io/gorm"
)

type AttendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// LastLog returns the user's most recent attendance row inside tx, or nil
// when the user has never scanned. Runs under the caller's transaction so
// the decision it feeds stays consistent with the rows committed in it.
func (r *AttendanceRepository) LastLog(tx *gorm.DB, userID uint) (*models.AttendanceLog, error) {
	var log models.AttendanceLog
	err := tx.Where("user_id = ?", userID).
		Order("timestamp_utc DESC").
		First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// CreateLog appends an attendance row inside tx
func (r *AttendanceRepository) CreateLog(tx *gorm.DB, log *models.AttendanceLog) error {
	return tx.Create(log).Error
}

// CreateLogDirect appends an attendance row outside any caller transaction.
// Used by the admin path only; kiosk rows always go through CreateLog.
func (r *AttendanceRepository) CreateLogDirect(log *models.AttendanceLog) error {
	return r.db.Create(log).Error
}

// FindLogByID retrieves a single attendance row
func (r *AttendanceRepository) FindLogByID(id uint) (*models.AttendanceLog, error) {
	var log models.AttendanceLog
	err := r.db.First(&log, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("attendance log not found")
		}
		return nil, err
	}
	return &log, nil
}

// SaveLog persists admin edits to an attendance row
func (r *AttendanceRepository) SaveLog(log *models.AttendanceLog) error {
	return r.db.Save(log).Error
}

// DeleteLog removes an attendance row (admin corrections only)
func (r *AttendanceRepository) DeleteLog(id uint) error {
	result := r.db.Delete(&models.AttendanceLog{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("attendance log not found")
	}
	return nil
}

// ListByUser returns a page of the user's rows, newest first, with the total count
func (r *AttendanceRepository) ListByUser(userID uint, limit, offset int) ([]models.AttendanceLog, int64, error) {
	var total int64
	if err := r.db.Model(&models.AttendanceLog{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AttendanceLog
	err := r.db.Where("user_id = ?", userID).
		Order("timestamp_utc DESC").
		Limit(limit).
		Offset(offset).
		Preload("Device").
		Find(&logs).Error
	return logs, total, err
}

// ListByUserBetween returns the user's rows in [start, end), oldest first
func (r *AttendanceRepository) ListByUserBetween(userID uint, start, end time.Time) ([]models.AttendanceLog, error) {
	var logs []models.AttendanceLog
	err := r.db.Where("user_id = ? AND timestamp_utc >= ? AND timestamp_utc < ?", userID, start, end).
		Order("timestamp_utc ASC").
		Preload("Device").
		Find(&logs).Error
	return logs, err
}

// ListBetween returns all rows in [start, end) across users, oldest first
func (r *AttendanceRepository) ListBetween(start, end time.Time) ([]models.AttendanceLog, error) {
	var logs []models.AttendanceLog
	err := r.db.Where("timestamp_utc >= ? AND timestamp_utc < ?", start, end).
		Order("timestamp_utc ASC").
		Preload("User").
		Preload("Device").
		Find(&logs).Error
	return logs, err
}
