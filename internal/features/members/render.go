package members

import (
	"html/template"
	"sort"
	"time"
)

// DefaultAvatar подставляется, если в документе нет аватара.
const DefaultAvatar = "https://avatars.githubusercontent.com/u/583231?s=64&v=4"

// DefaultRole — роль по умолчанию.
const DefaultRole = "Участник"

// Row — строка таблицы участников, готовая к выводу.
type Row struct {
	Username    string        `json:"username"`
	DisplayName string        `json:"display_name"`
	Avatar      string        `json:"avatar"`
	Status      Status        `json:"status"`
	StatusClass string        `json:"status_class"`
	StatusLabel string        `json:"status_label"`
	Icon        template.HTML `json:"icon"`
	LastSeen    string        `json:"last_seen"`
	Banned      bool          `json:"banned"`
	BanReason   string        `json:"ban_reason,omitempty"`
	BannedAt    string        `json:"banned_at,omitempty"`
	JoinedAt    string        `json:"joined_at"`
	Role        string        `json:"role"`
}

var statusIcons = map[Status]template.HTML{
	StatusAdmin:   `<svg viewBox="0 0 24 24" width="16" height="16" aria-hidden="true"><path d="M12 2l3 6 6 .9-4.5 4.3 1 6.3L12 16.6 6.5 19.5l1-6.3L3 8.9 9 8z" fill="currentColor"/></svg>`,
	StatusActive:  `<svg viewBox="0 0 24 24" width="16" height="16" aria-hidden="true"><circle cx="12" cy="12" r="6" fill="currentColor"/></svg>`,
	StatusOffline: `<svg viewBox="0 0 24 24" width="16" height="16" aria-hidden="true"><circle cx="12" cy="12" r="6" fill="none" stroke="currentColor" stroke-width="2"/></svg>`,
	StatusBanned:  `<svg viewBox="0 0 24 24" width="16" height="16" aria-hidden="true"><circle cx="12" cy="12" r="8" fill="none" stroke="currentColor" stroke-width="2"/><path d="M6.5 6.5l11 11" stroke="currentColor" stroke-width="2"/></svg>`,
}

const unknownIcon template.HTML = `<svg viewBox="0 0 24 24" width="16" height="16" aria-hidden="true"><circle cx="12" cy="12" r="2" fill="currentColor"/></svg>`

// SortMembers возвращает копию списка, упорядоченную по Rank.
// Сортировка стабильная: внутри одного статуса порядок документа сохраняется.
func SortMembers(members []Member) []Member {
	sorted := make([]Member, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Status().Rank() < sorted[j].Status().Rank()
	})
	return sorted
}

// BuildRows сортирует участников и готовит строки таблицы.
func BuildRows(members []Member, now time.Time, loc *time.Location) []Row {
	sorted := SortMembers(members)
	rows := make([]Row, 0, len(sorted))
	for i := range sorted {
		rows = append(rows, buildRow(&sorted[i], now, loc))
	}
	return rows
}

func buildRow(m *Member, now time.Time, loc *time.Location) Row {
	status := m.Status()

	class := string(status)
	icon, ok := statusIcons[status]
	if !ok {
		class = "unknown"
		icon = unknownIcon
	}

	avatar := m.Avatar
	if avatar == "" {
		avatar = DefaultAvatar
	}
	role := m.Role
	if role == "" {
		role = DefaultRole
	}

	row := Row{
		Username:    m.Username,
		DisplayName: m.Name(),
		Avatar:      avatar,
		Status:      status,
		StatusClass: class,
		StatusLabel: status.Label(),
		Icon:        icon,
		LastSeen:    FormatSeen(m.LastSeen.Time, now, loc),
		JoinedAt:    FormatDay(m.JoinedAt.Time, loc),
		Role:        role,
	}

	if status == StatusBanned {
		row.Banned = true
		row.BanReason = m.BanReason
		if row.BanReason == "" {
			row.BanReason = "Причина не указана"
		}
		row.BannedAt = FormatDay(m.BannedAt.Time, loc)
	}
	return row
}
