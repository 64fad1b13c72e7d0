package service

import (
	"errors"
	"fmt"

	"clinic-attendance-backend/internal/models"
	"clinic-attendance-backend/internal/repository"

	"gorm.io/gorm"
)

// ScanStore serializes scan decisions per user: fn runs while an exclusive
// lock on the user row is held, and the log view it receives shares that
// lock's transaction, so a concurrent scan for the same user sees either
// all of fn's rows or none of them.
type ScanStore interface {
	WithLockedUser(userID uint, fn func(user *models.User, logs ScanLogView) error) error
}

// ScanLogView is the slice of the attendance log fn may touch under the
// lock. Appends are discarded when fn returns an error.
type ScanLogView interface {
	Last() (*models.AttendanceLog, error)
	Append(log *models.AttendanceLog) error
}

type gormScanStore struct {
	db    *gorm.DB
	users *repository.UserRepository
	logs  *repository.AttendanceRepository
}

// NewScanStore builds the MySQL-backed ScanStore: one transaction per call
// with SELECT ... FOR UPDATE on the user row. Locking the user row rather
// than a log row also serializes scans for users with no rows yet.
func NewScanStore(
	db *gorm.DB,
	users *repository.UserRepository,
	logs *repository.AttendanceRepository,
) ScanStore {
	return &gormScanStore{db: db, users: users, logs: logs}
}

func (s *gormScanStore) WithLockedUser(userID uint, fn func(*models.User, ScanLogView) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		user, err := s.users.LockUserForUpdate(tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}
		return fn(user, &gormScanLogView{tx: tx, logs: s.logs, userID: userID})
	})
}

type gormScanLogView struct {
	tx     *gorm.DB
	logs   *repository.AttendanceRepository
	userID uint
}

func (v *gormScanLogView) Last() (*models.AttendanceLog, error) {
	return v.logs.LastLog(v.tx, v.userID)
}

func (v *gormScanLogView) Append(log *models.AttendanceLog) error {
	return v.logs.CreateLog(v.tx, log)
}
