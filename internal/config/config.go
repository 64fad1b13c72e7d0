package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"clinic-attendance-backend/pkg/otp"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	JWT        JWTConfig
	Server     ServerConfig
	CORS       CORSConfig
	OTP        otp.Params
	Kiosk      KioskConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

type JWTConfig struct {
	AccessSecret       string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type ServerConfig struct {
	Port    string
	GinMode string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type KioskConfig struct {
	// TTL of legacy single-use codes. Only the compatibility path uses it;
	// offline codes derive their validity from the OTP interval.
	LegacyCodeTTL time.Duration
}

type AttendanceConfig struct {
	// Timezone is the single clinic-local timezone used for day-boundary
	// decisions. Not user-configurable per request.
	Timezone *time.Location
	// AutoClose closes a stale open session at end of its day instead of
	// letting the next scan emit an OUT across days.
	AutoClose bool
}

func LoadConfig() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "clinic_attendance"),
		},
		JWT: JWTConfig{
			AccessSecret:       getEnv("JWT_ACCESS_SECRET", "your-access-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("ACCESS_TOKEN_EXPIRY", "15m")),
			RefreshTokenExpiry: parseDuration(getEnv("REFRESH_TOKEN_EXPIRY", "720h")),
		},
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		},
		OTP: otp.Params{
			IntervalSeconds: parseInt(getEnv("OTP_INTERVAL_SECONDS", ""), otp.DefaultIntervalSeconds),
			Digits:          parseInt(getEnv("OTP_DIGITS", ""), otp.DefaultDigits),
			DriftSteps:      parseInt(getEnv("OTP_DRIFT_STEPS", ""), otp.DefaultDriftSteps),
		}.Normalize(),
		Kiosk: KioskConfig{
			LegacyCodeTTL: parseDuration(getEnv("KIOSK_CODE_TTL", "30s")),
		},
		Attendance: AttendanceConfig{
			Timezone:  parseTimezone(getEnv("CLINIC_TIMEZONE", "Africa/Cairo")),
			AutoClose: parseBool(getEnv("ATTENDANCE_AUTO_CLOSE", "true")),
		},
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		fmt.Printf("Warning: Invalid duration format '%s', using default\n", s)
		return 15 * time.Minute
	}
	return duration
}

func parseInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("Warning: Invalid integer '%s', using default\n", s)
		return defaultValue
	}
	return value
}

func parseBool(s string) bool {
	value, err := strconv.ParseBool(s)
	if err != nil {
		return true
	}
	return value
}

func parseTimezone(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Warning: Unknown timezone '%s', using UTC", name)
		return time.UTC
	}
	return loc
}

func parseOrigins(s string) []string {
	origins := []string{}
	for _, origin := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
