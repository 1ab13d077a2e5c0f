// Package common — pluralize.go содержит форматирование чисел
// и счётчиков для панели статусов.
package common

import "fmt"

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Рекурсивно добавляем разделители
	rest := n / 1000
	last := n % 1000
	return fmt.Sprintf("%s %03d", FormatNumber(rest), last)
}

// FormatCount создаёт строку вида "12 участников".
func FormatCount(n int) string {
	return fmt.Sprintf("%s %s", FormatNumber(int64(n)), PluralizeMembers(n))
}
