package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPluralizeAttempts(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "попыток"},
		{1, "попытка"},
		{2, "попытки"},
		{4, "попытки"},
		{5, "попыток"},
		{11, "попыток"},
		{12, "попыток"},
		{21, "попытка"},
		{22, "попытки"},
		{-1, "попытка"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PluralizeAttempts(tt.n), "n=%d", tt.n)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", FormatNumber(0))
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "2 350", FormatNumber(2350))
	assert.Equal(t, "1 000 000", FormatNumber(1000000))
	assert.Equal(t, "-1 005", FormatNumber(-1005))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "1 участник", FormatCount(1))
	assert.Equal(t, "3 участника", FormatCount(3))
	assert.Equal(t, "1 200 участников", FormatCount(1200))
}

func TestSameDay(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	a := time.Date(2024, 1, 1, 22, 30, 0, 0, time.UTC) // 01:30 02.01 по Москве
	b := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	assert.True(t, SameDay(a, b, loc))
	assert.False(t, SameDay(a, b, time.UTC))
}

func TestLoadLocation_Fallback(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation("Nowhere/Invalid"))
	assert.NotNil(t, LoadLocation("Europe/Moscow"))
}
