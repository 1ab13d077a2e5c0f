package members

import (
	"fmt"
	"time"

	"serotonyl.ru/aelum-status/internal/common"
)

// Placeholder для пустых дат.
const Placeholder = "—"

// FormatSeen форматирует "последний раз в сети":
// сегодня — "15:04", вчера — "Вчера, 15:04", до недели — "N дн. назад", иначе дата.
func FormatSeen(t, now time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Placeholder
	}
	t = t.In(loc)
	now = now.In(loc)

	if common.SameDay(t, now, loc) {
		return t.Format("15:04")
	}
	if common.SameDay(t, now.AddDate(0, 0, -1), loc) {
		return "Вчера, " + t.Format("15:04")
	}
	if t.Before(now) {
		days := int(now.Sub(t).Hours() / 24)
		if days < 7 {
			return fmt.Sprintf("%d дн. назад", days)
		}
	}
	return t.Format("02.01.2006")
}

// FormatUpdated — время обновления документа, "15:04:05".
func FormatUpdated(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.In(loc).Format("15:04:05")
}

// FormatDay — дата без времени, для вступления и блокировки.
func FormatDay(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Placeholder
	}
	return common.FormatDate(t, loc)
}
