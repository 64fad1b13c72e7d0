package handler

import (
	"net/http"

	"clinic-attendance-backend/internal/service"
	"clinic-attendance-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

type KioskHandler struct {
	kioskService *service.KioskService
}

func NewKioskHandler(kioskService *service.KioskService) *KioskHandler {
	return &KioskHandler{
		kioskService: kioskService,
	}
}

// GetCode issues the current offline code for the calling device
func (h *KioskHandler) GetCode(c *gin.Context) {
	deviceKey := c.GetString("deviceKey")

	issued, err := h.kioskService.IssueCode(deviceKey)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid device key")
		return
	}

	utils.SuccessResponse(c, issued)
}

// GetCodePNG issues the current offline code rendered as a QR image for
// the kiosk screen
func (h *KioskHandler) GetCodePNG(c *gin.Context) {
	deviceKey := c.GetString("deviceKey")

	issued, err := h.kioskService.IssueCode(deviceKey)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid device key")
		return
	}

	png, err := qrcode.Encode(issued.Code, qrcode.Medium, 256)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to render QR code")
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// Bootstrap hands the device its offline secret and protocol parameters
func (h *KioskHandler) Bootstrap(c *gin.Context) {
	deviceKey := c.GetString("deviceKey")

	info, err := h.kioskService.Bootstrap(deviceKey)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid device key")
		return
	}

	utils.SuccessResponse(c, info)
}

// GetLegacyCode issues a single-use code for kiosk builds that have not
// migrated to the offline protocol
func (h *KioskHandler) GetLegacyCode(c *gin.Context) {
	deviceKey := c.GetString("deviceKey")

	kc, err := h.kioskService.IssueLegacyCode(deviceKey)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid device key")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"code":       kc.Code,
		"expires_at": kc.ExpiresAt,
	})
}
