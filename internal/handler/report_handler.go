package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"clinic-attendance-backend/internal/service"
	"clinic-attendance-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

func parseYearMonth(c *gin.Context) (int, int, bool) {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))
	if year == 0 || month < 1 || month > 12 {
		utils.ErrorResponse(c, http.StatusBadRequest, "year and month are required")
		return 0, 0, false
	}
	return year, month, true
}

// MyMonthCSV streams the doctor's month summary as CSV
func (h *ReportHandler) MyMonthCSV(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	userID, _ := c.Get("userID")

	data, err := h.reportService.MyMonthCSV(userID.(uint), year, month)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to build report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=attendance-%04d-%02d.csv", year, month))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ClinicMonthCSV streams all raw rows of a month across the clinic as CSV
func (h *ReportHandler) ClinicMonthCSV(c *gin.Context) {
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	data, err := h.reportService.ClinicMonthCSV(year, month)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to build report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=clinic-%04d-%02d.csv", year, month))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

func parseUserIDQuery(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Query("userId"), 10, 32)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "userId is required")
		return 0, false
	}
	return uint(id), true
}

// parseDateRange reads ?start=YYYY-MM-DD&end=YYYY-MM-DD as clinic-local
// days, end inclusive: the returned upper bound is the following midnight.
func (h *ReportHandler) parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := h.reportService.LocalDate(c.Query("start"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid start date")
		return time.Time{}, time.Time{}, false
	}
	end, err := h.reportService.LocalDate(c.Query("end"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid end date")
		return time.Time{}, time.Time{}, false
	}
	return start, end.AddDate(0, 0, 1), true
}

// DoctorMonthCSV streams one doctor's month summary as CSV (admin)
func (h *ReportHandler) DoctorMonthCSV(c *gin.Context) {
	userID, ok := parseUserIDQuery(c)
	if !ok {
		return
	}
	year, month, ok := parseYearMonth(c)
	if !ok {
		return
	}

	data, err := h.reportService.MyMonthCSV(userID, year, month)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to build report")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=doctor-%d-%04d-%02d.csv", userID, year, month))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// DoctorRangeCSV streams one doctor's per-day digest over a date range (admin)
func (h *ReportHandler) DoctorRangeCSV(c *gin.Context) {
	userID, ok := parseUserIDQuery(c)
	if !ok {
		return
	}
	start, end, ok := h.parseDateRange(c)
	if !ok {
		return
	}

	data, err := h.reportService.UserRangeCSV(userID, start, end)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=doctor-%d-%s-%s.csv",
		userID, start.Format("20060102"), end.AddDate(0, 0, -1).Format("20060102")))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// DoctorRangeSummary returns one doctor's range digest as JSON (admin)
func (h *ReportHandler) DoctorRangeSummary(c *gin.Context) {
	userID, ok := parseUserIDQuery(c)
	if !ok {
		return
	}
	start, end, ok := h.parseDateRange(c)
	if !ok {
		return
	}

	summary, err := h.reportService.UserRangeSummary(userID, start, end)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	utils.SuccessResponse(c, summary)
}

// ClinicRangeCSV streams all raw rows of a date range across the clinic (admin)
func (h *ReportHandler) ClinicRangeCSV(c *gin.Context) {
	start, end, ok := h.parseDateRange(c)
	if !ok {
		return
	}

	data, err := h.reportService.ClinicRangeCSV(start, end)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=clinic-%s-%s.csv",
		start.Format("20060102"), end.AddDate(0, 0, -1).Format("20060102")))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
