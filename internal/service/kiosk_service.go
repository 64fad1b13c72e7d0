package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"clinic-attendance-backend/internal/models"
	"clinic-attendance-backend/internal/repository"
	"clinic-attendance-backend/pkg/otp"

	"github.com/google/uuid"
)

const minSecretBytes = 16

// DeviceStore is the device lookup surface the kiosk service needs.
// *repository.DeviceRepository satisfies it.
type DeviceStore interface {
	FindActiveByAPIKey(apiKey string) (*models.Device, error)
	FindActiveByID(id uint) (*models.Device, error)
	ProvisionOfflineSecret(id uint, secret string) (string, error)
}

type KioskService struct {
	devices DeviceStore
	codes   *repository.KioskCodeRepository
	params  otp.Params
	// legacyTTL bounds newly issued compatibility codes
	legacyTTL time.Duration
	// now is swappable in tests
	now func() time.Time
}

func NewKioskService(
	devices DeviceStore,
	codes *repository.KioskCodeRepository,
	params otp.Params,
	legacyTTL time.Duration,
) *KioskService {
	return &KioskService{
		devices:   devices,
		codes:     codes,
		params:    params.Normalize(),
		legacyTTL: legacyTTL,
		now:       time.Now,
	}
}

// IssuedCode is what the kiosk screen displays
type IssuedCode struct {
	Code            string    `json:"code"`
	DeviceID        uint      `json:"device_id"`
	ValidUntil      time.Time `json:"valid_until"` // advisory display hint
	IntervalSeconds int       `json:"interval_seconds"`
	Digits          int       `json:"digits"`
	ServerTime      time.Time `json:"server_time"`
}

// BootstrapInfo is the one-time hand-off that lets an offline-capable
// kiosk derive codes locally. The only response that carries the secret.
type BootstrapInfo struct {
	DeviceID        uint      `json:"device_id"`
	Secret          string    `json:"secret"`
	Algorithm       string    `json:"algorithm"`
	IntervalSeconds int       `json:"interval_seconds"`
	Digits          int       `json:"digits"`
	DriftAllowance  int       `json:"drift_allowance"`
	ServerTime      time.Time `json:"server_time"`
}

// IssueCode resolves the device by API key and computes the wire code for
// the current time step. The validity hint is advisory: verification
// re-derives counters from its own clock and absorbs skew via the drift
// window, so issue and verify may disagree near a step boundary.
func (s *KioskService) IssueCode(deviceAPIKey string) (*IssuedCode, error) {
	device, err := s.devices.FindActiveByAPIKey(deviceAPIKey)
	if err != nil {
		return nil, ErrDeviceNotFound
	}

	secret, err := s.ensureSecret(device)
	if err != nil {
		return nil, fmt.Errorf("failed to provision device secret: %w", err)
	}

	now := s.now()
	counter := otp.Counter(now, s.params.IntervalSeconds)
	code := otp.Generate(secret, counter, s.params.Digits)

	return &IssuedCode{
		Code:            otp.Compose(strconv.FormatUint(uint64(device.ID), 10), code),
		DeviceID:        device.ID,
		ValidUntil:      otp.NextWindowBoundary(now, s.params.IntervalSeconds),
		IntervalSeconds: s.params.IntervalSeconds,
		Digits:          s.params.Digits,
		ServerTime:      now.UTC(),
	}, nil
}

// Bootstrap hands the device its symmetric secret and the protocol
// parameters so it can generate codes without a round trip per scan.
func (s *KioskService) Bootstrap(deviceAPIKey string) (*BootstrapInfo, error) {
	device, err := s.devices.FindActiveByAPIKey(deviceAPIKey)
	if err != nil {
		return nil, ErrDeviceNotFound
	}

	secret, err := s.ensureSecret(device)
	if err != nil {
		return nil, fmt.Errorf("failed to provision device secret: %w", err)
	}

	return &BootstrapInfo{
		DeviceID:        device.ID,
		Secret:          base64.RawURLEncoding.EncodeToString(secret),
		Algorithm:       "HMAC-SHA1",
		IntervalSeconds: s.params.IntervalSeconds,
		Digits:          s.params.Digits,
		DriftAllowance:  s.params.DriftSteps,
		ServerTime:      s.now().UTC(),
	}, nil
}

// IssueLegacyCode creates a single-use opaque code for kiosk builds that
// predate the offline protocol.
func (s *KioskService) IssueLegacyCode(deviceAPIKey string) (*models.KioskCode, error) {
	device, err := s.devices.FindActiveByAPIKey(deviceAPIKey)
	if err != nil {
		return nil, ErrDeviceNotFound
	}

	kc := &models.KioskCode{
		Code:      uuid.New().String(),
		DeviceID:  device.ID,
		ExpiresAt: s.now().Add(s.legacyTTL).UTC(),
	}
	if err := s.codes.CreateCode(kc); err != nil {
		return nil, fmt.Errorf("failed to store kiosk code: %w", err)
	}
	return kc, nil
}

// scanCode is the parsed form of a candidate code: either an offline
// protocol code or an opaque legacy token. Produced by one parsing step
// so prefix dispatch happens exactly once.
type scanCode struct {
	offline  bool
	deviceID uint
	otpCode  string
	raw      string
}

func (s *KioskService) parseCandidate(code string) scanCode {
	if otp.IsWireFormat(code) {
		idPart, otpPart, ok := otp.Parse(code, s.params.Digits)
		if !ok {
			return scanCode{offline: true, raw: code} // malformed offline code
		}
		id, err := strconv.ParseUint(idPart, 10, 32)
		if err != nil {
			return scanCode{offline: true, raw: code}
		}
		return scanCode{offline: true, deviceID: uint(id), otpCode: otpPart, raw: code}
	}
	return scanCode{raw: code}
}

// ResolveCode validates a candidate scan code through whichever protocol
// generation it belongs to and returns the device that presented it.
func (s *KioskService) ResolveCode(code string) (*models.Device, error) {
	candidate := s.parseCandidate(code)
	if candidate.offline {
		return s.verifyOffline(candidate)
	}
	return s.verifyLegacy(candidate)
}

// verifyOffline checks the candidate against every counter in the drift
// window around the verifier's current step. No counter is ever marked
// consumed: replay of a still-fresh code is accepted here and bounded
// downstream by the toggle engine's same-state and daily-limit rules.
func (s *KioskService) verifyOffline(candidate scanCode) (*models.Device, error) {
	if candidate.otpCode == "" {
		return nil, ErrInvalidCode
	}

	device, err := s.devices.FindActiveByID(candidate.deviceID)
	if err != nil {
		return nil, ErrInvalidCode
	}

	secret, err := decodeSecret(device.OfflineSecret)
	if err != nil {
		// device never bootstrapped, or garbage in the column
		return nil, ErrInvalidCode
	}

	center := otp.Counter(s.now(), s.params.IntervalSeconds)
	for delta := -s.params.DriftSteps; delta <= s.params.DriftSteps; delta++ {
		counter := int64(center) + int64(delta)
		if counter < 0 {
			continue
		}
		expected := otp.Generate(secret, uint64(counter), s.params.Digits)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(candidate.otpCode)) == 1 {
			return device, nil
		}
	}

	return nil, ErrInvalidCode
}

// verifyLegacy consumes a single-use code. Unlike the offline path this
// one does enforce single use, in the same call that validates it.
func (s *KioskService) verifyLegacy(candidate scanCode) (*models.Device, error) {
	kc, err := s.codes.FindByCode(candidate.raw)
	if err != nil || kc.IsUsed {
		return nil, ErrInvalidCode
	}

	now := s.now()
	if kc.ExpiresAt.Before(now) {
		return nil, ErrCodeExpired
	}

	if err := s.codes.MarkUsed(kc.ID, now.UTC()); err != nil {
		// lost the race to another scan of the same code
		return nil, ErrInvalidCode
	}

	return &kc.Device, nil
}

// SweepLegacyCodes drops stale single-use rows: expired never-used codes
// after one hour, consumed codes after seven days.
func (s *KioskService) SweepLegacyCodes() (int64, error) {
	expiredBefore, usedBefore := legacySweepCutoffs(s.now())
	return s.codes.DeleteStale(expiredBefore, usedBefore)
}

func legacySweepCutoffs(now time.Time) (expiredBefore, usedBefore time.Time) {
	return now.Add(-1 * time.Hour), now.Add(-7 * 24 * time.Hour)
}

// ensureSecret returns the device's offline secret, provisioning one on
// first use. Provisioning is an atomic set-if-absent in the store, so two
// racing first issuances converge on a single secret.
func (s *KioskService) ensureSecret(device *models.Device) ([]byte, error) {
	if secret, err := decodeSecret(device.OfflineSecret); err == nil {
		return secret, nil
	}

	fresh := make([]byte, 32)
	if _, err := rand.Read(fresh); err != nil {
		return nil, err
	}

	winner, err := s.devices.ProvisionOfflineSecret(device.ID, base64.RawURLEncoding.EncodeToString(fresh))
	if err != nil {
		return nil, err
	}
	device.OfflineSecret = winner

	return decodeSecret(winner)
}

func decodeSecret(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty secret")
	}
	secret, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("secret too short: %d bytes", len(secret))
	}
	return secret, nil
}
