package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"clinic-attendance-backend/internal/config"
	"clinic-attendance-backend/internal/database"
	"clinic-attendance-backend/internal/handler"
	"clinic-attendance-backend/internal/middleware"
	"clinic-attendance-backend/internal/models"
	"clinic-attendance-backend/internal/repository"
	"clinic-attendance-backend/internal/service"
	"clinic-attendance-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. Load configuration
	cfg := config.LoadConfig()
	log.Println("Configuration loaded successfully")

	// 2. Initialize JWT utilities with config
	utils.InitJWT(
		cfg.JWT.AccessSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// 3. Initialize database connection
	db := database.Connect(cfg)

	if err := db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Device{},
		&models.AttendanceLog{},
		&models.KioskCode{},
		&models.EventLog{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 4. Initialize repositories
	userRepo := repository.NewUserRepo(db)
	deviceRepo := repository.NewDeviceRepo(db)
	attendanceRepo := repository.NewAttendanceRepo(db)
	kioskCodeRepo := repository.NewKioskCodeRepo(db)
	eventRepo := repository.NewEventLogRepo(db)

	// 5. Initialize services
	authService := service.NewAuthService(userRepo, eventRepo)
	kioskService := service.NewKioskService(deviceRepo, kioskCodeRepo, cfg.OTP, cfg.Kiosk.LegacyCodeTTL)
	scanStore := service.NewScanStore(db, userRepo, attendanceRepo)
	attendanceService := service.NewAttendanceService(
		scanStore, attendanceRepo, kioskService, eventRepo,
		cfg.Attendance.Timezone, cfg.Attendance.AutoClose,
	)
	adminService := service.NewAdminService(userRepo, deviceRepo, attendanceRepo, eventRepo)
	reportService := service.NewReportService(attendanceRepo, userRepo, cfg.Attendance.Timezone)
	workerService := service.NewWorkerService(kioskService, db)

	// 6. Start background worker in goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go workerService.Start(ctx)

	// 7. Setup Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// 8. Setup Gin router
	r := gin.Default()

	// Apply CORS middleware
	r.Use(middleware.CORS(cfg))

	// 9. Register handlers
	authHandler := handler.NewAuthHandler(authService)
	kioskHandler := handler.NewKioskHandler(kioskService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	adminHandler := handler.NewAdminHandler(adminService)
	reportHandler := handler.NewReportHandler(reportService)

	// 10. Define routes
	// Health check endpoints
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"status":  "healthy",
			"service": "clinic-attendance-backend",
		})
	})
	r.GET("/health/db", func(c *gin.Context) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database unreachable")
			return
		}
		utils.SuccessResponse(c, gin.H{"db": "up"})
	})

	// Auth routes (public)
	auth := r.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
	}

	// Kiosk routes (device key authenticated)
	kiosk := r.Group("/kiosk")
	kiosk.Use(middleware.DeviceKeyMiddleware())
	{
		kiosk.GET("/code", kioskHandler.GetCode)
		kiosk.GET("/code.png", kioskHandler.GetCodePNG)
		kiosk.POST("/bootstrap", kioskHandler.Bootstrap)
		kiosk.GET("/legacy-code", kioskHandler.GetLegacyCode)
	}

	// Attendance routes (authenticated doctors)
	attendance := r.Group("/attendance")
	attendance.Use(middleware.AuthMiddleware())
	{
		attendance.POST("/scan", attendanceHandler.Scan)
		attendance.GET("/my", attendanceHandler.My)
		attendance.GET("/my-month", attendanceHandler.MyMonth)
	}

	// Report routes (authenticated)
	reports := r.Group("/reports")
	reports.Use(middleware.AuthMiddleware())
	{
		reports.GET("/my-month.csv", reportHandler.MyMonthCSV)
		reports.GET("/clinic-month.csv", middleware.RequireAdmin(), reportHandler.ClinicMonthCSV)
		reports.GET("/clinic-range.csv", middleware.RequireAdmin(), reportHandler.ClinicRangeCSV)
		reports.GET("/doctor-month.csv", middleware.RequireAdmin(), reportHandler.DoctorMonthCSV)
		reports.GET("/doctor-range.csv", middleware.RequireAdmin(), reportHandler.DoctorRangeCSV)
		reports.GET("/doctor-range-summary", middleware.RequireAdmin(), reportHandler.DoctorRangeSummary)
	}

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireAdmin())
	{
		admin.GET("/whoami", adminHandler.WhoAmI)

		admin.POST("/users", adminHandler.CreateUser)
		admin.GET("/users", adminHandler.ListUsers)
		admin.PATCH("/users/:id", adminHandler.UpdateUser)
		admin.PATCH("/users/:id/password", adminHandler.ResetPassword)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)

		admin.POST("/devices", adminHandler.CreateDevice)
		admin.GET("/devices", adminHandler.ListDevices)
		admin.PATCH("/devices/:id", adminHandler.UpdateDevice)
		admin.DELETE("/devices/:id", adminHandler.DeleteDevice)
		admin.POST("/devices/:id/rotate-secret", adminHandler.RotateDeviceSecret)

		admin.GET("/attendance/logs", adminHandler.ListLogs)
		admin.POST("/attendance/logs", adminHandler.CreateLog)
		admin.PATCH("/attendance/logs/:id", adminHandler.UpdateLog)
		admin.DELETE("/attendance/logs/:id", adminHandler.DeleteLog)

		admin.GET("/events", adminHandler.ListEvents)
	}

	// 11. Setup graceful shutdown
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := r.Run(":" + cfg.Server.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel background worker context
	cancel()
	log.Println("Server exited")
}
