package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"clinic-attendance-backend/internal/service"
	"clinic-attendance-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func adminID(c *gin.Context) uint {
	id, _ := c.Get("userID")
	return id.(uint)
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

// WhoAmI echoes the authenticated admin's token claims
func (h *AdminHandler) WhoAmI(c *gin.Context) {
	userID, _ := c.Get("userID")
	role, _ := c.Get("role")
	utils.SuccessResponse(c, gin.H{
		"user_id": userID,
		"role":    role,
	})
}

// ---- Users ----

type CreateUserRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=doctor admin"`
}

// CreateUser registers a new doctor or admin account
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = "doctor"
	}

	user, err := h.adminService.CreateUser(req.FullName, req.Email, req.Password, req.Role, adminID(c))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"id":        user.ID,
		"full_name": user.FullName,
		"email":     user.Email,
		"role":      user.Role,
	})
}

// ListUsers returns users, optionally filtered by ?role=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	role := c.Query("role")
	if role != "" && role != "doctor" && role != "admin" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid role filter")
		return
	}

	users, err := h.adminService.ListUsers(role)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"users": users,
		"count": len(users),
	})
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,min=2,max=120"`
	Role     *string `json:"role" binding:"omitempty,oneof=doctor admin"`
	IsActive *bool   `json:"is_active"`
}

// UpdateUser applies a partial update to a user
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := service.UserUpdate{FullName: req.FullName, Role: req.Role, IsActive: req.IsActive}
	if err := h.adminService.UpdateUser(id, update, adminID(c)); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		} else {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update user")
		}
		return
	}

	utils.MessageResponse(c, "User updated successfully")
}

type ResetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

// ResetPassword replaces a user's password
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.adminService.ResetUserPassword(id, req.Password, adminID(c)); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		} else {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to reset password")
		}
		return
	}

	utils.MessageResponse(c, "Password reset successfully")
}

// DeleteUser removes a user account
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.adminService.DeleteUser(id, adminID(c)); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	utils.MessageResponse(c, "User deleted successfully")
}

// ---- Devices ----

type CreateDeviceRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=120"`
	Location string `json:"location" binding:"omitempty,max=160"`
}

// CreateDevice registers a kiosk device; the response is the only place
// the plain API key is shown
func (h *AdminHandler) CreateDevice(c *gin.Context) {
	var req CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	device, err := h.adminService.CreateDevice(req.Name, req.Location, adminID(c))
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create device")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"id":       device.ID,
		"name":     device.Name,
		"location": device.Location,
		"api_key":  device.APIKey,
	})
}

// ListDevices returns all registered devices
func (h *AdminHandler) ListDevices(c *gin.Context) {
	devices, err := h.adminService.ListDevices()
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch devices")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"devices": devices,
		"count":   len(devices),
	})
}

type UpdateDeviceRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=120"`
	Location *string `json:"location" binding:"omitempty,max=160"`
	IsActive *bool   `json:"is_active"`
}

// UpdateDevice applies a partial update to a device
func (h *AdminHandler) UpdateDevice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := service.DeviceUpdate{Name: req.Name, Location: req.Location, IsActive: req.IsActive}
	if err := h.adminService.UpdateDevice(id, update, adminID(c)); err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		} else {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to update device")
		}
		return
	}

	utils.MessageResponse(c, "Device updated successfully")
}

// DeleteDevice removes a device
func (h *AdminHandler) DeleteDevice(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.adminService.DeleteDevice(id, adminID(c)); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	utils.MessageResponse(c, "Device deleted successfully")
}

// RotateDeviceSecret replaces the device's offline secret
func (h *AdminHandler) RotateDeviceSecret(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.adminService.RotateDeviceSecret(id, adminID(c)); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	utils.MessageResponse(c, "Device secret rotated; device must bootstrap again")
}

// ---- Attendance corrections ----

// ListLogs returns a user's rows in an optional ?start=&end= range
func (h *AdminHandler) ListLogs(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("userId"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "userId is required")
		return
	}

	var start, end *time.Time
	if v := c.Query("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid start timestamp")
			return
		}
		start = &parsed
	}
	if v := c.Query("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid end timestamp")
			return
		}
		end = &parsed
	}

	logs, err := h.adminService.ListUserLogs(uint(userID), start, end)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		} else {
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

type CreateLogRequest struct {
	UserID    uint   `json:"user_id" binding:"required"`
	Action    string `json:"action" binding:"required,oneof=IN OUT"`
	Timestamp string `json:"timestamp" binding:"required"`
	Notes     string `json:"notes" binding:"omitempty,max=240"`
}

// CreateLog inserts an admin-entered attendance row
func (h *AdminHandler) CreateLog(c *gin.Context) {
	var req CreateLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	at, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid timestamp")
		return
	}

	log, err := h.adminService.CreateLog(req.UserID, req.Action, at, req.Notes, adminID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		} else {
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to create attendance log")
		}
		return
	}

	utils.SuccessResponse(c, log)
}

type UpdateLogRequest struct {
	Action    *string `json:"action" binding:"omitempty,oneof=IN OUT"`
	Timestamp *string `json:"timestamp"`
	Notes     *string `json:"notes" binding:"omitempty,max=240"`
}

// UpdateLog applies an admin correction to an attendance row
func (h *AdminHandler) UpdateLog(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UpdateLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	update := service.LogUpdate{Action: req.Action, Notes: req.Notes}
	if req.Timestamp != nil {
		at, err := time.Parse(time.RFC3339, *req.Timestamp)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid timestamp")
			return
		}
		update.Timestamp = &at
	}

	log, err := h.adminService.UpdateLog(id, update, adminID(c))
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	utils.SuccessResponse(c, log)
}

// DeleteLog removes an attendance row
func (h *AdminHandler) DeleteLog(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := h.adminService.DeleteLog(id, adminID(c)); err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	utils.MessageResponse(c, "Attendance log deleted successfully")
}

// ListEvents returns a page of the event log
func (h *AdminHandler) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, err := h.adminService.ListEvents(limit, offset)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch events")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"events": events,
		"count":  len(events),
	})
}
