package members

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortMembers_StableByRank(t *testing.T) {
	members := []Member{
		{Username: "u1", RawStatus: "banned"},
		{Username: "u2", RawStatus: "admin"},
		{Username: "u3", RawStatus: "online"},
		{Username: "u4", RawStatus: "active"},
	}

	sorted := SortMembers(members)

	var got []string
	for _, m := range sorted {
		got = append(got, m.Username)
	}
	assert.Equal(t, []string{"u2", "u3", "u4", "u1"}, got)
	// исходный срез не меняется
	assert.Equal(t, "u1", members[0].Username)
}

func TestSortMembers_UnknownLast(t *testing.T) {
	sorted := SortMembers([]Member{
		{Username: "x", RawStatus: "muted"},
		{Username: "y", RawStatus: "banned"},
	})
	assert.Equal(t, "y", sorted[0].Username)
	assert.Equal(t, "x", sorted[1].Username)
}

func TestBuildRows_Defaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := BuildRows([]Member{
		{Username: "ghost", RawStatus: "muted"},
		{
			Username:  "troll",
			RawStatus: "banned",
			BannedAt:  Timestamp{time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)},
			JoinedAt:  Timestamp{time.Date(2023, 1, 15, 9, 0, 0, 0, time.UTC)},
			Role:      "Модератор",
		},
	}, now, time.UTC)
	require.Len(t, rows, 2)

	troll := rows[0]
	assert.True(t, troll.Banned)
	assert.Equal(t, "Причина не указана", troll.BanReason)
	assert.Equal(t, "02.04.2024", troll.BannedAt)
	assert.Equal(t, "15.01.2023", troll.JoinedAt)
	assert.Equal(t, "Модератор", troll.Role)
	assert.Contains(t, string(troll.Icon), "<svg")

	ghost := rows[1]
	assert.Equal(t, "@ghost", ghost.DisplayName)
	assert.Equal(t, DefaultAvatar, ghost.Avatar)
	assert.Equal(t, DefaultRole, ghost.Role)
	assert.Equal(t, "unknown", ghost.StatusClass)
	assert.Equal(t, "muted", ghost.StatusLabel)
	assert.False(t, ghost.Banned)
	assert.Equal(t, Placeholder, ghost.JoinedAt)
}
