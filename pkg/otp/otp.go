// Package otp implements the offline kiosk code derivation: an HMAC-SHA1
// one-time code computed over a wall-clock time-step counter, wrapped in the
// "O1.<deviceID>.<code>" wire format shown as a QR on the kiosk screen.
package otp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// WirePrefix is the protocol-version discriminator for offline codes.
// Codes without it fall through to the legacy single-use path.
const WirePrefix = "O1"

const (
	DefaultIntervalSeconds = 12
	DefaultDigits          = 8
	DefaultDriftSteps      = 1
)

// Params holds the tunable knobs of the offline code protocol.
type Params struct {
	IntervalSeconds int // time-step length, >= 5
	Digits          int // code length, 6-8
	DriftSteps      int // accepted steps either side of now, 0-3
}

// Normalize clamps out-of-range values back to the defaults so a bad
// environment variable can never produce an unverifiable code stream.
func (p Params) Normalize() Params {
	if p.IntervalSeconds < 5 {
		p.IntervalSeconds = DefaultIntervalSeconds
	}
	if p.Digits < 6 || p.Digits > 8 {
		p.Digits = DefaultDigits
	}
	if p.DriftSteps < 0 || p.DriftSteps > 3 {
		p.DriftSteps = DefaultDriftSteps
	}
	return p
}

// Counter returns the time-step counter for t: floor(unix(t) / interval).
func Counter(t time.Time, intervalSeconds int) uint64 {
	secs := t.Unix()
	if secs < 0 {
		return 0
	}
	return uint64(secs) / uint64(intervalSeconds)
}

// NextWindowBoundary returns the start of the time step following t.
// Advisory only: verification always re-derives counters from the
// verifier's own clock.
func NextWindowBoundary(t time.Time, intervalSeconds int) time.Time {
	interval := int64(intervalSeconds)
	next := (t.Unix()/interval + 1) * interval
	return time.Unix(next, 0).UTC()
}

// Generate computes the one-time code for a secret and counter using the
// RFC 4226 dynamic truncation of HMAC-SHA1 over the 8-byte big-endian
// counter, reduced to the requested number of decimal digits.
func Generate(secret []byte, counter uint64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, value%mod)
}

// Compose builds the wire-format code string for a device.
func Compose(deviceID string, code string) string {
	return WirePrefix + "." + deviceID + "." + code
}

// Parse splits a candidate wire code into its device id and one-time code.
// ok is false for anything that is not a well-formed offline code; the
// caller then treats the string as a legacy token. Never panics.
func Parse(code string, digits int) (deviceID, otp string, ok bool) {
	parts := strings.Split(code, ".")
	if len(parts) != 3 {
		return "", "", false
	}
	if parts[0] != WirePrefix || parts[1] == "" || len(parts[2]) < digits {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// IsWireFormat reports whether a candidate code carries the offline
// protocol prefix. Used by the validation facade to dispatch.
func IsWireFormat(code string) bool {
	return strings.HasPrefix(code, WirePrefix+".")
}
