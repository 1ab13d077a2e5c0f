package bot

import (
	"fmt"
	"strings"
	"time"

	"serotonyl.ru/aelum-status/internal/common"
	"serotonyl.ru/aelum-status/internal/features/gate"
	"serotonyl.ru/aelum-status/internal/features/members"
)

// formatChallenge показывает код через пробелы, чтобы его нельзя было просто скопировать.
func formatChallenge(v gate.View) string {
	chars := make([]string, 0, len(v.Glyphs))
	for _, g := range v.Glyphs {
		chars = append(chars, g.Char)
	}

	var sb strings.Builder
	sb.WriteString("🤖 Проверка на бота\n\n")
	fmt.Fprintf(&sb, "Введите код: %s\n", strings.Join(chars, " "))
	sb.WriteString("(без пробелов, регистр не важен)")
	if w := v.AttemptsWarning(); w != "" {
		sb.WriteString("\n⚠️ " + w)
	} else {
		fmt.Fprintf(&sb, "\nУ вас %d %s", v.AttemptsLeft, common.PluralizeAttempts(v.AttemptsLeft))
	}
	sb.WriteString("\n\n/new — другой код")
	return sb.String()
}

// formatStatus собирает сводку для /status.
func formatStatus(snap members.Snapshot, now time.Time, loc *time.Location, limit int) string {
	var sb strings.Builder

	if !snap.Loaded {
		if snap.Error != "" {
			return "⚠️ Не удалось загрузить данные: " + snap.Error
		}
		return "⏳ Данные ещё загружаются, попробуйте через пару секунд"
	}

	c := snap.Counts
	sb.WriteString("📊 Статус участников Aelum\n\n")
	fmt.Fprintf(&sb, "Всего: %s\n", common.FormatCount(c.Total))
	fmt.Fprintf(&sb, "👑 Администраторы: %d\n", c.Admins)
	fmt.Fprintf(&sb, "🟢 Состоят: %d\n", c.Active)
	fmt.Fprintf(&sb, "⚪ Не в сети: %d\n", c.Offline)
	fmt.Fprintf(&sb, "⛔ Заблокированы: %d\n", c.Banned)

	rows := members.BuildRows(snap.Members, now, loc)
	if len(rows) > 0 {
		sb.WriteString("\n")
	}
	for i, r := range rows {
		if limit > 0 && i >= limit {
			fmt.Fprintf(&sb, "… и ещё %s\n", common.FormatCount(len(rows)-limit))
			break
		}
		fmt.Fprintf(&sb, "%s %s — %s", statusEmoji(r.Status), r.DisplayName, r.StatusLabel)
		if r.Banned {
			fmt.Fprintf(&sb, " (%s)", r.BanReason)
		} else if r.LastSeen != members.Placeholder {
			fmt.Fprintf(&sb, ", был(а): %s", r.LastSeen)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nОбновлено: %s", members.FormatUpdated(snap.LastUpdated, loc))
	if snap.Error != "" {
		fmt.Fprintf(&sb, "\n⚠️ Последняя загрузка не удалась: %s", snap.Error)
	}
	return sb.String()
}

func statusEmoji(s members.Status) string {
	switch s {
	case members.StatusAdmin:
		return "👑"
	case members.StatusActive:
		return "🟢"
	case members.StatusOffline:
		return "⚪"
	case members.StatusBanned:
		return "⛔"
	}
	return "•"
}
