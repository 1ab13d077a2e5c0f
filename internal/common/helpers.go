// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, работа с часовыми поясами и датами.
package common

import (
	"fmt"
	"math"
	"time"
)

// pluralForm выбирает одну из трёх форм слова для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func pluralForm(n int, one, few, many string) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeAttempts возвращает правильную форму слова «попытка» для числа n.
//
// Примеры:
//
//	PluralizeAttempts(1) → "попытка"
//	PluralizeAttempts(3) → "попытки"
//	PluralizeAttempts(5) → "попыток"
func PluralizeAttempts(n int) string {
	return pluralForm(n, "попытка", "попытки", "попыток")
}

// PluralizeSymbols возвращает правильную форму слова «символ».
func PluralizeSymbols(n int) string {
	return pluralForm(n, "символ", "символа", "символов")
}

// PluralizeMembers возвращает правильную форму слова «участник».
func PluralizeMembers(n int) string {
	return pluralForm(n, "участник", "участника", "участников")
}

// LoadLocation загружает часовой пояс по имени.
// Если tzdata недоступна (минимальный Docker-образ), для Europe/Moscow
// используется UTC+3 вручную, для остальных — UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	if name == "Europe/Moscow" {
		return time.FixedZone("MSK", 3*60*60)
	}
	return time.UTC
}

// SameDay сообщает, приходятся ли a и b на один календарный день в поясе loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// FormatDate форматирует только дату: "02.01.2006".
func FormatDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006")
}

// FormatAttemptsLeft создаёт строку вида "Осталось попыток: 3".
func FormatAttemptsLeft(n int) string {
	return fmt.Sprintf("Осталось попыток: %d", n)
}
