package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clinic-attendance-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScanStore is an in-memory ScanStore with the same per-user mutual
// exclusion and discard-on-error semantics as the MySQL-backed one.
type fakeScanStore struct {
	mu      sync.Mutex
	locks   map[uint]*sync.Mutex
	holding map[uint]bool
	users   map[uint]*models.User
	rows    map[uint][]models.AttendanceLog
}

func newFakeScanStore(users ...*models.User) *fakeScanStore {
	store := &fakeScanStore{
		locks:   make(map[uint]*sync.Mutex),
		holding: make(map[uint]bool),
		users:   make(map[uint]*models.User),
		rows:    make(map[uint][]models.AttendanceLog),
	}
	for _, u := range users {
		store.users[u.ID] = u
		store.locks[u.ID] = &sync.Mutex{}
	}
	return store
}

func (f *fakeScanStore) WithLockedUser(userID uint, fn func(*models.User, ScanLogView) error) error {
	f.mu.Lock()
	user, exists := f.users[userID]
	lock := f.locks[userID]
	f.mu.Unlock()
	if !exists {
		return ErrUserNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	f.setHolding(userID, true)
	defer f.setHolding(userID, false)

	copied := *user
	view := &fakeScanLogView{store: f, userID: userID}
	if err := fn(&copied, view); err != nil {
		return err // staged appends discarded
	}

	f.mu.Lock()
	f.rows[userID] = append(f.rows[userID], view.staged...)
	f.mu.Unlock()
	return nil
}

func (f *fakeScanStore) setHolding(userID uint, v bool) {
	f.mu.Lock()
	f.holding[userID] = v
	f.mu.Unlock()
}

// holdingLock reports whether a WithLockedUser body for userID is running
func (f *fakeScanStore) holdingLock(userID uint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holding[userID]
}

func (f *fakeScanStore) seedRow(userID uint, row models.AttendanceLog) {
	f.mu.Lock()
	f.rows[userID] = append(f.rows[userID], row)
	f.mu.Unlock()
}

func (f *fakeScanStore) userRows(userID uint) []models.AttendanceLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AttendanceLog(nil), f.rows[userID]...)
}

type fakeScanLogView struct {
	store  *fakeScanStore
	userID uint
	staged []models.AttendanceLog
}

func (v *fakeScanLogView) Last() (*models.AttendanceLog, error) {
	v.store.mu.Lock()
	all := append([]models.AttendanceLog(nil), v.store.rows[v.userID]...)
	v.store.mu.Unlock()
	all = append(all, v.staged...)

	var last *models.AttendanceLog
	for i := range all {
		if last == nil || all[i].TimestampUTC.After(last.TimestampUTC) {
			last = &all[i]
		}
	}
	if last == nil {
		return nil, nil
	}
	copied := *last
	return &copied, nil
}

func (v *fakeScanLogView) Append(row *models.AttendanceLog) error {
	v.staged = append(v.staged, *row)
	return nil
}

type nopEventRecorder struct{}

func (nopEventRecorder) CreateEvent(userID *uint, action, details string) error { return nil }

var scanTestBase = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// newScanTestService wires an AttendanceService over the fake store and a
// kiosk service with one issued code. Its clock ticks one second per call.
func newScanTestService(store *fakeScanStore) (*AttendanceService, string) {
	kiosk := newTestKioskService(newFakeDeviceStore(testDevice(7)), scanTestBase)
	issued, err := kiosk.IssueCode("dev_key_7")
	if err != nil {
		panic(err)
	}

	svc := NewAttendanceService(store, nil, kiosk, nopEventRecorder{}, testZone, true)
	var ticks int64
	svc.now = func() time.Time {
		return scanTestBase.Add(time.Duration(atomic.AddInt64(&ticks, 1)) * time.Second)
	}
	return svc, issued.Code
}

func activeUser(id uint) *models.User {
	return &models.User{ID: id, FullName: "Dr. Test", IsActive: true}
}

func TestRecordScanFirstScan(t *testing.T) {
	store := newFakeScanStore(activeUser(1))
	svc, code := newScanTestService(store)

	result, err := svc.RecordScan(1, code)
	require.NoError(t, err)
	assert.Equal(t, models.ActionIn, result.Action)
	assert.False(t, result.AutoClosed)

	rows := store.userRows(1)
	require.Len(t, rows, 1)
	assert.Equal(t, models.ActionIn, rows[0].Action)
	assert.Equal(t, models.SourceKiosk, rows[0].Source)
	require.NotNil(t, rows[0].DeviceID)
	assert.Equal(t, uint(7), *rows[0].DeviceID)
}

func TestRecordScanTogglesWithinDay(t *testing.T) {
	store := newFakeScanStore(activeUser(1))
	svc, code := newScanTestService(store)

	first, err := svc.RecordScan(1, code)
	require.NoError(t, err)
	second, err := svc.RecordScan(1, code)
	require.NoError(t, err)

	assert.Equal(t, models.ActionIn, first.Action)
	assert.Equal(t, models.ActionOut, second.Action)

	rows := store.userRows(1)
	require.Len(t, rows, 2)
	assert.True(t, rows[1].TimestampUTC.After(rows[0].TimestampUTC))
}

func TestRecordScanSameDayLimit(t *testing.T) {
	store := newFakeScanStore(activeUser(1))
	svc, code := newScanTestService(store)
	store.seedRow(1, models.AttendanceLog{
		UserID:       1,
		Action:       models.ActionOut,
		Source:       models.SourceKiosk,
		TimestampUTC: scanTestBase,
	})

	_, err := svc.RecordScan(1, code)
	assert.ErrorIs(t, err, ErrDailyLimitReached)
	// nothing committed on rejection
	assert.Len(t, store.userRows(1), 1)
}

func TestRecordScanInactiveUser(t *testing.T) {
	user := activeUser(1)
	user.IsActive = false
	store := newFakeScanStore(user)
	svc, code := newScanTestService(store)

	_, err := svc.RecordScan(1, code)
	assert.ErrorIs(t, err, ErrUserInactive)
	assert.Empty(t, store.userRows(1))
}

func TestRecordScanUnknownUser(t *testing.T) {
	store := newFakeScanStore()
	svc, code := newScanTestService(store)

	_, err := svc.RecordScan(99, code)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRecordScanInvalidCode(t *testing.T) {
	store := newFakeScanStore(activeUser(1))
	svc, _ := newScanTestService(store)

	_, err := svc.RecordScan(1, "O1.7.00000000")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Empty(t, store.userRows(1))
}

func TestRecordScanStampsTimeUnderLock(t *testing.T) {
	// the stamped time must be taken while the user lock is held, so that
	// two serialized scans cannot commit rows whose timestamps are ordered
	// against their commits
	store := newFakeScanStore(activeUser(1))
	svc, code := newScanTestService(store)

	svc.now = func() time.Time {
		assert.True(t, store.holdingLock(1))
		return scanTestBase
	}

	_, err := svc.RecordScan(1, code)
	require.NoError(t, err)
}

func TestRecordScanConcurrentSameUser(t *testing.T) {
	// two racing scans starting from no prior rows commit exactly one IN;
	// the loser of the lock race sees the winner's row and toggles OUT
	store := newFakeScanStore(activeUser(1))
	svc, code := newScanTestService(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RecordScan(1, code)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	rows := store.userRows(1)
	require.Len(t, rows, 2)
	assert.Equal(t, models.ActionIn, rows[0].Action)
	assert.Equal(t, models.ActionOut, rows[1].Action)
	assert.True(t, rows[1].TimestampUTC.After(rows[0].TimestampUTC),
		"OUT must be stamped after the IN it closes")
}
