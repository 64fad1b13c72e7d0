package otp

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rfcSecret is the shared secret of the RFC 4226 / RFC 6238 test vectors
var rfcSecret = []byte("12345678901234567890")

func TestGenerateKnownVectors(t *testing.T) {
	// RFC 4226 appendix D, 6-digit codes for counters 0-9
	sixDigit := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}
	for counter, want := range sixDigit {
		got := Generate(rfcSecret, uint64(counter), 6)
		assert.Equal(t, want, got, "counter %d", counter)
	}

	// RFC 6238 appendix B SHA1 rows, expressed as 30s counters
	eightDigit := []struct {
		counter uint64
		want    string
	}{
		{59 / 30, "94287082"},
		{1111111109 / 30, "07081804"},
		{1111111111 / 30, "14050471"},
		{1234567890 / 30, "89005924"},
		{2000000000 / 30, "69279037"},
		{20000000000 / 30, "65353130"},
	}
	for _, tc := range eightDigit {
		got := Generate(rfcSecret, tc.counter, 8)
		assert.Equal(t, tc.want, got, "counter %d", tc.counter)
	}
}

func TestGenerateShape(t *testing.T) {
	for digits := 6; digits <= 8; digits++ {
		for counter := uint64(0); counter < 50; counter++ {
			code := Generate(rfcSecret, counter, digits)
			require.Len(t, code, digits)
			for _, r := range code {
				require.True(t, r >= '0' && r <= '9', "non-digit %q in %s", r, code)
			}
		}
	}
}

func TestCounter(t *testing.T) {
	tests := []struct {
		name     string
		unix     int64
		interval int
		want     uint64
	}{
		{"epoch", 0, 12, 0},
		{"just before boundary", 11, 12, 0},
		{"on boundary", 12, 12, 1},
		{"mid step", 125, 12, 10},
		{"thirty second interval", 59, 30, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Counter(time.Unix(tc.unix, 0), tc.interval)
			assert.Equal(t, tc.want, got)
		})
	}

	// times before the epoch clamp to counter zero
	assert.Equal(t, uint64(0), Counter(time.Unix(-100, 0), 12))
}

func TestNextWindowBoundary(t *testing.T) {
	at := time.Unix(125, 500_000_000)
	next := NextWindowBoundary(at, 12)
	assert.Equal(t, int64(132), next.Unix())

	// a time exactly on a boundary still advances a full step
	next = NextWindowBoundary(time.Unix(132, 0), 12)
	assert.Equal(t, int64(144), next.Unix())
}

func TestComposeParseRoundTrip(t *testing.T) {
	for _, id := range []string{"1", "42", "9001"} {
		code := fmt.Sprintf("%08d", 12345678)
		wire := Compose(id, code)

		deviceID, otpCode, ok := Parse(wire, 8)
		require.True(t, ok, "wire=%s", wire)
		assert.Equal(t, id, deviceID)
		assert.Equal(t, code, otpCode)
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"no dots", "O1123456789"},
		{"two parts", "O1.12345678"},
		{"four parts", "O1.42.12345678.extra"},
		{"wrong prefix", "O2.42.12345678"},
		{"lowercase prefix", "o1.42.12345678"},
		{"empty device id", "O1..12345678"},
		{"short otp", "O1.42.1234567"},
		{"legacy token", "3f2504e0-4f89-11d3-9a0c-0305e82c3301"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, ok := Parse(tc.code, 8)
			assert.False(t, ok)
		})
	}
}

func TestIsWireFormat(t *testing.T) {
	assert.True(t, IsWireFormat("O1.42.12345678"))
	assert.True(t, IsWireFormat("O1.garbage"))
	assert.False(t, IsWireFormat("O2.42.12345678"))
	assert.False(t, IsWireFormat("3f2504e0-4f89-11d3-9a0c-0305e82c3301"))
}

func TestParamsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Params
		want Params
	}{
		{
			"zero value gets defaults",
			Params{},
			Params{IntervalSeconds: 12, Digits: 8, DriftSteps: 1},
		},
		{
			"valid values unchanged",
			Params{IntervalSeconds: 30, Digits: 6, DriftSteps: 2},
			Params{IntervalSeconds: 30, Digits: 6, DriftSteps: 2},
		},
		{
			"interval below minimum",
			Params{IntervalSeconds: 3, Digits: 7, DriftSteps: 0},
			Params{IntervalSeconds: 12, Digits: 7, DriftSteps: 0},
		},
		{
			"digits and drift out of range",
			Params{IntervalSeconds: 12, Digits: 10, DriftSteps: 9},
			Params{IntervalSeconds: 12, Digits: 8, DriftSteps: 1},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.in.Normalize())
		})
	}
}
