package handler

import (
	"errors"
	"net/http"
	"strconv"

	"clinic-attendance-backend/internal/service"
	"clinic-attendance-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AttendanceHandler struct {
	attendanceService *service.AttendanceService
}

func NewAttendanceHandler(attendanceService *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
	}
}

type ScanRequest struct {
	Code string `json:"code" binding:"required,min=10,max=300"`
}

// Scan records an IN/OUT toggle for the authenticated doctor
func (h *AttendanceHandler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, _ := c.Get("userID")

	result, err := h.attendanceService.RecordScan(userID.(uint), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCode),
			errors.Is(err, service.ErrCodeExpired),
			errors.Is(err, service.ErrUserNotFound),
			errors.Is(err, service.ErrUserInactive),
			errors.Is(err, service.ErrDailyLimitReached):
			utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to record scan")
		}
		return
	}

	utils.SuccessResponse(c, result)
}

// My returns a page of the doctor's raw history, newest first
func (h *AttendanceHandler) My(c *gin.Context) {
	userID, _ := c.Get("userID")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.attendanceService.MyHistory(userID.(uint), limit, offset)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch history")
		return
	}

	utils.SuccessResponse(c, page)
}

// MyMonth returns the doctor's per-day month summary
func (h *AttendanceHandler) MyMonth(c *gin.Context) {
	userID, _ := c.Get("userID")

	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))
	if year == 0 || month < 1 || month > 12 {
		utils.ErrorResponse(c, http.StatusBadRequest, "year and month are required")
		return
	}

	summary, err := h.attendanceService.MyMonthSummary(userID.(uint), year, month)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to build month summary")
		return
	}

	utils.SuccessResponse(c, summary)
}
