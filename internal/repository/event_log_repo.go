package repository

import (
	"clinic-attendance-backend/internal/models"

	"gorm.io/gorm"
)

type EventLogRepository struct {
	db *gorm.DB
}

func NewEventLogRepo(db *gorm.DB) *EventLogRepository {
	return &EventLogRepository{db: db}
}

// CreateEvent creates a new event log entry
func (r *EventLogRepository) CreateEvent(userID *uint, action string, details string) error {
	event := &models.EventLog{
		UserID:  userID,
		Action:  action,
		Details: details,
	}
	return r.db.Create(event).Error
}

// ListEvents returns a page of event entries, newest first
func (r *EventLogRepository) ListEvents(limit, offset int) ([]models.EventLog, error) {
	var events []models.EventLog
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Preload("User").
		Find(&events).Error
	return events, err
}
