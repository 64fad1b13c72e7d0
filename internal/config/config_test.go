package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseInt(t *testing.T) {
	assert.Equal(t, 12, parseInt("", 12))
	assert.Equal(t, 8, parseInt("8", 12))
	assert.Equal(t, 12, parseInt("eight", 12))
}

func TestParseBool(t *testing.T) {
	assert.True(t, parseBool("true"))
	assert.True(t, parseBool("1"))
	assert.False(t, parseBool("false"))
	// unparseable falls back to enabled
	assert.True(t, parseBool("yes please"))
}

func TestParseTimezone(t *testing.T) {
	assert.Equal(t, time.UTC, parseTimezone("UTC"))
	assert.Equal(t, time.UTC, parseTimezone("Not/AZone"))
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t,
		[]string{"http://localhost:3000", "https://clinic.example.com"},
		parseOrigins("http://localhost:3000, https://clinic.example.com,"))
	assert.Empty(t, parseOrigins(""))
}
