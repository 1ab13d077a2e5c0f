package members

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSeen(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		seen time.Time
		want string
	}{
		{"zero", time.Time{}, Placeholder},
		{"today", time.Date(2024, 5, 10, 9, 5, 0, 0, time.UTC), "09:05"},
		{"yesterday", time.Date(2024, 5, 9, 23, 59, 0, 0, time.UTC), "Вчера, 23:59"},
		{"three days", time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC), "3 дн. назад"},
		{"old", time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC), "01.04.2024"},
		{"future", time.Date(2024, 5, 12, 12, 0, 0, 0, time.UTC), "12.05.2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatSeen(tt.seen, now, time.UTC))
		})
	}
}

func TestFormatSeen_UsesLocation(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	now := time.Date(2024, 5, 10, 1, 0, 0, 0, msk)
	// 21:30 UTC 9 мая — это 00:30 MSK 10 мая, тот же день
	seen := time.Date(2024, 5, 9, 21, 30, 0, 0, time.UTC)
	assert.Equal(t, "00:30", FormatSeen(seen, now, msk))
}

func TestFormatUpdated(t *testing.T) {
	assert.Equal(t, Placeholder, FormatUpdated(time.Time{}, time.UTC))
	assert.Equal(t, "10:00:00", FormatUpdated(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), time.UTC))
}
