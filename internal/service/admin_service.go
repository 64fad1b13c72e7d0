package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"clinic-attendance-backend/internal/models"
	"clinic-attendance-backend/internal/repository"
	"clinic-attendance-backend/pkg/utils"
)

type AdminService struct {
	userRepo   *repository.UserRepository
	deviceRepo *repository.DeviceRepository
	logRepo    *repository.AttendanceRepository
	eventRepo  *repository.EventLogRepository
}

func NewAdminService(
	userRepo *repository.UserRepository,
	deviceRepo *repository.DeviceRepository,
	logRepo *repository.AttendanceRepository,
	eventRepo *repository.EventLogRepository,
) *AdminService {
	return &AdminService{
		userRepo:   userRepo,
		deviceRepo: deviceRepo,
		logRepo:    logRepo,
		eventRepo:  eventRepo,
	}
}

// ---- Users ----

// CreateUser registers a doctor or admin account
func (s *AdminService) CreateUser(fullName, email, password, role string, adminID uint) (*models.User, error) {
	if existing, err := s.userRepo.FindUserByEmail(email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	_ = s.eventRepo.CreateEvent(&adminID, "user_create", fmt.Sprintf("Created user %s (%s)", user.Email, user.Role))

	return user, nil
}

// ListUsers returns users, optionally filtered by role
func (s *AdminService) ListUsers(role string) ([]models.User, error) {
	return s.userRepo.ListUsers(role)
}

// UserUpdate holds the admin-editable user fields
type UserUpdate struct {
	FullName *string
	Role     *string
	IsActive *bool
}

// UpdateUser applies a partial update to a user
func (s *AdminService) UpdateUser(id uint, update UserUpdate, adminID uint) error {
	user, err := s.userRepo.FindUserByID(id)
	if err != nil {
		return ErrUserNotFound
	}

	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Role != nil {
		user.Role = *update.Role
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}

	if err := s.userRepo.SaveUser(user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	_ = s.eventRepo.CreateEvent(&adminID, "user_update", fmt.Sprintf("Updated user %d", id))
	return nil
}

// ResetUserPassword replaces a user's password
func (s *AdminService) ResetUserPassword(id uint, password string, adminID uint) error {
	user, err := s.userRepo.FindUserByID(id)
	if err != nil {
		return ErrUserNotFound
	}

	passwordHash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = passwordHash

	if err := s.userRepo.SaveUser(user); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	_ = s.eventRepo.CreateEvent(&adminID, "user_password_reset", fmt.Sprintf("Reset password for user %d", id))
	return nil
}

// DeleteUser removes a user account
func (s *AdminService) DeleteUser(id uint, adminID uint) error {
	if err := s.userRepo.DeleteUser(id); err != nil {
		return ErrUserNotFound
	}
	_ = s.eventRepo.CreateEvent(&adminID, "user_delete", fmt.Sprintf("Deleted user %d", id))
	return nil
}

// ---- Devices ----

// CreateDevice registers a kiosk device and generates its API key. The
// plain key is returned once here; afterwards it is only usable, not
// readable.
func (s *AdminService) CreateDevice(name, location string, adminID uint) (*models.Device, error) {
	apiKey, err := utils.GenerateDeviceAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}

	device := &models.Device{
		Name:     name,
		Location: location,
		APIKey:   apiKey,
		IsActive: true,
	}
	if err := s.deviceRepo.CreateDevice(device); err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	_ = s.eventRepo.CreateEvent(&adminID, "device_create", fmt.Sprintf("Created device %s", device.Name))
	return device, nil
}

// ListDevices returns all registered devices
func (s *AdminService) ListDevices() ([]models.Device, error) {
	return s.deviceRepo.ListDevices()
}

// DeviceUpdate holds the admin-editable device fields
type DeviceUpdate struct {
	Name     *string
	Location *string
	IsActive *bool
}

// UpdateDevice applies a partial update to a device
func (s *AdminService) UpdateDevice(id uint, update DeviceUpdate, adminID uint) error {
	device, err := s.deviceRepo.FindByID(id)
	if err != nil {
		return ErrDeviceNotFound
	}

	if update.Name != nil {
		device.Name = *update.Name
	}
	if update.Location != nil {
		device.Location = *update.Location
	}
	if update.IsActive != nil {
		device.IsActive = *update.IsActive
	}

	if err := s.deviceRepo.SaveDevice(device); err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}

	_ = s.eventRepo.CreateEvent(&adminID, "device_update", fmt.Sprintf("Updated device %d", id))
	return nil
}

// DeleteDevice removes a device
func (s *AdminService) DeleteDevice(id uint, adminID uint) error {
	if err := s.deviceRepo.DeleteDevice(id); err != nil {
		return ErrDeviceNotFound
	}
	_ = s.eventRepo.CreateEvent(&adminID, "device_delete", fmt.Sprintf("Deleted device %d", id))
	return nil
}

// RotateDeviceSecret replaces the device's offline secret with a fresh
// one. The kiosk must re-bootstrap before its codes verify again.
func (s *AdminService) RotateDeviceSecret(id uint, adminID uint) error {
	fresh := make([]byte, 32)
	if _, err := rand.Read(fresh); err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}

	if err := s.deviceRepo.RotateOfflineSecret(id, base64.RawURLEncoding.EncodeToString(fresh)); err != nil {
		return ErrDeviceNotFound
	}

	_ = s.eventRepo.CreateEvent(&adminID, "device_secret_rotate", fmt.Sprintf("Rotated offline secret for device %d", id))
	return nil
}

// ---- Attendance corrections ----

// resolveLogRange turns optional bounds into a concrete [start, end)
// window: start alone covers the following 24 hours, end alone is an
// open-start range from the epoch. bounded is false when neither bound was
// given and the caller should page recent rows instead.
func resolveLogRange(start, end *time.Time) (from, to time.Time, bounded bool, err error) {
	switch {
	case start == nil && end == nil:
		return time.Time{}, time.Time{}, false, nil
	case start != nil && end != nil:
		if end.Before(*start) {
			return time.Time{}, time.Time{}, false, errors.New("invalid range")
		}
		return *start, *end, true, nil
	case start != nil:
		return *start, start.Add(24 * time.Hour), true, nil
	default:
		return time.Unix(0, 0).UTC(), *end, true, nil
	}
}

// ListUserLogs returns a user's rows in an optional time range, oldest first
func (s *AdminService) ListUserLogs(userID uint, start, end *time.Time) ([]models.AttendanceLog, error) {
	if _, err := s.userRepo.FindUserByID(userID); err != nil {
		return nil, ErrUserNotFound
	}

	from, to, bounded, err := resolveLogRange(start, end)
	if err != nil {
		return nil, err
	}
	if !bounded {
		logs, _, err := s.logRepo.ListByUser(userID, 100, 0)
		return logs, err
	}
	return s.logRepo.ListByUserBetween(userID, from, to)
}

// CreateLog inserts an admin-entered attendance row (no device reference)
func (s *AdminService) CreateLog(userID uint, action string, at time.Time, notes string, adminID uint) (*models.AttendanceLog, error) {
	if _, err := s.userRepo.FindUserByID(userID); err != nil {
		return nil, ErrUserNotFound
	}

	log := &models.AttendanceLog{
		UserID:       userID,
		TimestampUTC: at.UTC(),
		Action:       action,
		Source:       models.SourceAdmin,
		Notes:        notes,
	}
	if err := s.logRepo.CreateLogDirect(log); err != nil {
		return nil, fmt.Errorf("failed to create attendance log: %w", err)
	}

	_ = s.eventRepo.CreateEvent(&adminID, "attendance_create",
		fmt.Sprintf("Added %s row for user %d", action, userID))
	return log, nil
}

// LogUpdate holds the admin-editable attendance fields
type LogUpdate struct {
	Action    *string
	Timestamp *time.Time
	Notes     *string
}

// UpdateLog applies an admin correction; the row's source becomes ADMIN
func (s *AdminService) UpdateLog(id uint, update LogUpdate, adminID uint) (*models.AttendanceLog, error) {
	log, err := s.logRepo.FindLogByID(id)
	if err != nil {
		return nil, errors.New("attendance log not found")
	}

	if update.Action != nil {
		log.Action = *update.Action
	}
	if update.Timestamp != nil {
		log.TimestampUTC = update.Timestamp.UTC()
	}
	if update.Notes != nil {
		log.Notes = *update.Notes
	}
	log.Source = models.SourceAdmin

	if err := s.logRepo.SaveLog(log); err != nil {
		return nil, fmt.Errorf("failed to update attendance log: %w", err)
	}

	_ = s.eventRepo.CreateEvent(&adminID, "attendance_update", fmt.Sprintf("Edited attendance log %d", id))
	return log, nil
}

// DeleteLog removes an attendance row
func (s *AdminService) DeleteLog(id uint, adminID uint) error {
	if err := s.logRepo.DeleteLog(id); err != nil {
		return errors.New("attendance log not found")
	}
	_ = s.eventRepo.CreateEvent(&adminID, "attendance_delete", fmt.Sprintf("Deleted attendance log %d", id))
	return nil
}

// ListEvents returns a page of the event log
func (s *AdminService) ListEvents(limit, offset int) ([]models.EventLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.ListEvents(limit, offset)
}
