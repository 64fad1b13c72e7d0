package service

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"clinic-attendance-backend/internal/models"
	"clinic-attendance-backend/pkg/otp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeviceStore is an in-memory DeviceStore with the same set-if-absent
// provisioning semantics as the repository.
type fakeDeviceStore struct {
	devices map[uint]*models.Device
}

func newFakeDeviceStore(devices ...*models.Device) *fakeDeviceStore {
	store := &fakeDeviceStore{devices: make(map[uint]*models.Device)}
	for _, d := range devices {
		store.devices[d.ID] = d
	}
	return store
}

func (f *fakeDeviceStore) FindActiveByAPIKey(apiKey string) (*models.Device, error) {
	for _, d := range f.devices {
		if d.APIKey == apiKey && d.IsActive {
			copied := *d
			return &copied, nil
		}
	}
	return nil, errors.New("device not found or inactive")
}

func (f *fakeDeviceStore) FindActiveByID(id uint) (*models.Device, error) {
	d, exists := f.devices[id]
	if !exists || !d.IsActive {
		return nil, errors.New("device not found or inactive")
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDeviceStore) ProvisionOfflineSecret(id uint, secret string) (string, error) {
	d, exists := f.devices[id]
	if !exists {
		return "", errors.New("device not found")
	}
	if d.OfflineSecret == "" {
		d.OfflineSecret = secret
	}
	return d.OfflineSecret, nil
}

func newTestKioskService(store *fakeDeviceStore, at time.Time) *KioskService {
	s := NewKioskService(store, nil, otp.Params{
		IntervalSeconds: 12,
		Digits:          8,
		DriftSteps:      1,
	}, 30*time.Second)
	s.now = func() time.Time { return at }
	return s
}

func testDevice(id uint) *models.Device {
	return &models.Device{
		ID:       id,
		Name:     fmt.Sprintf("Kiosk %d", id),
		APIKey:   fmt.Sprintf("dev_key_%d", id),
		IsActive: true,
	}
}

func TestIssueCodeProvisionsSecret(t *testing.T) {
	store := newFakeDeviceStore(testDevice(7))
	svc := newTestKioskService(store, time.Unix(1_700_000_000, 0))

	issued, err := svc.IssueCode("dev_key_7")
	require.NoError(t, err)
	assert.Equal(t, uint(7), issued.DeviceID)
	assert.Equal(t, 12, issued.IntervalSeconds)
	assert.Equal(t, 8, issued.Digits)
	assert.True(t, otp.IsWireFormat(issued.Code))

	// the stored secret decodes to at least 16 bytes
	raw, err := base64.RawURLEncoding.DecodeString(store.devices[7].OfflineSecret)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(raw), 16)

	// a second issuance reuses the provisioned secret
	secretBefore := store.devices[7].OfflineSecret
	_, err = svc.IssueCode("dev_key_7")
	require.NoError(t, err)
	assert.Equal(t, secretBefore, store.devices[7].OfflineSecret)
}

func TestIssueCodeUnknownDevice(t *testing.T) {
	svc := newTestKioskService(newFakeDeviceStore(), time.Unix(1_700_000_000, 0))

	_, err := svc.IssueCode("dev_key_missing")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestIssueCodeInactiveDevice(t *testing.T) {
	device := testDevice(3)
	device.IsActive = false
	svc := newTestKioskService(newFakeDeviceStore(device), time.Unix(1_700_000_000, 0))

	_, err := svc.IssueCode("dev_key_3")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestVerifyAfterIssue(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 0)
	store := newFakeDeviceStore(testDevice(7))
	svc := newTestKioskService(store, issuedAt)

	issued, err := svc.IssueCode("dev_key_7")
	require.NoError(t, err)

	// immediately
	device, err := svc.ResolveCode(issued.Code)
	require.NoError(t, err)
	assert.Equal(t, uint(7), device.ID)

	// anywhere inside the drift window of one step either side
	for _, offset := range []time.Duration{-12 * time.Second, 11 * time.Second, 12 * time.Second} {
		svc.now = func() time.Time { return issuedAt.Add(offset) }
		_, err := svc.ResolveCode(issued.Code)
		assert.NoError(t, err, "offset %v", offset)
	}
}

func TestVerifyReplayWithinWindow(t *testing.T) {
	// offline codes are deliberately not consumed; the toggle engine's
	// daily-limit rules bound the damage of a replay
	issuedAt := time.Unix(1_700_000_000, 0)
	svc := newTestKioskService(newFakeDeviceStore(testDevice(7)), issuedAt)

	issued, err := svc.IssueCode("dev_key_7")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.ResolveCode(issued.Code)
		assert.NoError(t, err, "replay %d", i)
	}
}

func TestVerifyOutsideDriftWindow(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 0)
	svc := newTestKioskService(newFakeDeviceStore(testDevice(7)), issuedAt)

	issued, err := svc.IssueCode("dev_key_7")
	require.NoError(t, err)

	for _, offset := range []time.Duration{-24 * time.Second, 24 * time.Second, time.Hour} {
		svc.now = func() time.Time { return issuedAt.Add(offset) }
		_, err := svc.ResolveCode(issued.Code)
		assert.ErrorIs(t, err, ErrInvalidCode, "offset %v", offset)
	}
}

func TestVerifyAgainstBootstrapSecret(t *testing.T) {
	// a kiosk deriving codes locally from its bootstrap hand-off must
	// produce codes the server accepts
	at := time.Unix(1_700_000_123, 0)
	svc := newTestKioskService(newFakeDeviceStore(testDevice(9)), at)

	info, err := svc.Bootstrap("dev_key_9")
	require.NoError(t, err)
	assert.Equal(t, "HMAC-SHA1", info.Algorithm)
	assert.Equal(t, 1, info.DriftAllowance)

	secret, err := base64.RawURLEncoding.DecodeString(info.Secret)
	require.NoError(t, err)

	counter := otp.Counter(at, info.IntervalSeconds)
	local := otp.Compose("9", otp.Generate(secret, counter, info.Digits))

	device, err := svc.ResolveCode(local)
	require.NoError(t, err)
	assert.Equal(t, uint(9), device.ID)
}

func TestVerifyRejectsMalformedOfflineCodes(t *testing.T) {
	svc := newTestKioskService(newFakeDeviceStore(testDevice(7)), time.Unix(1_700_000_000, 0))
	_, err := svc.IssueCode("dev_key_7")
	require.NoError(t, err)

	tests := []struct {
		name string
		code string
	}{
		{"missing otp part", "O1.7"},
		{"short otp", "O1.7.1234567"},
		{"non-numeric device id", "O1.seven.12345678"},
		{"unknown device id", "O1.999.12345678"},
		{"wrong code", "O1.7.00000000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ResolveCode(tc.code)
			assert.ErrorIs(t, err, ErrInvalidCode)
		})
	}
}

func TestVerifyUnprovisionedDevice(t *testing.T) {
	// device exists but was never issued a secret: nothing can verify
	svc := newTestKioskService(newFakeDeviceStore(testDevice(5)), time.Unix(1_700_000_000, 0))

	_, err := svc.ResolveCode("O1.5.12345678")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestVerifyInactiveDevice(t *testing.T) {
	issuedAt := time.Unix(1_700_000_000, 0)
	store := newFakeDeviceStore(testDevice(7))
	svc := newTestKioskService(store, issuedAt)

	issued, err := svc.IssueCode("dev_key_7")
	require.NoError(t, err)

	store.devices[7].IsActive = false
	_, err = svc.ResolveCode(issued.Code)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestLegacySweepCutoffs(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	expiredBefore, usedBefore := legacySweepCutoffs(now)

	assert.Equal(t, now.Add(-time.Hour), expiredBefore)
	assert.Equal(t, now.Add(-7*24*time.Hour), usedBefore)
}
