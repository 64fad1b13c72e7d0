package middleware

import (
	"net/http"
	"strings"

	"clinic-attendance-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// DeviceKeyMiddleware extracts the kiosk's bearer credential from the
// X-Device-Key header. Resolution against the device table happens in the
// kiosk service so an unknown key and an inactive device fail identically.
func DeviceKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceKey := strings.TrimSpace(c.GetHeader("X-Device-Key"))
		if deviceKey == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Device key is required in X-Device-Key header")
			c.Abort()
			return
		}

		c.Set("deviceKey", deviceKey)

		c.Next()
	}
}
