// Package gate реализует проверку на бота перед показом панели статусов.
// models.go описывает состояния проверки, результат отправки кода и настройки CAPTCHA.
//
// CAPTCHA косметическая: это UX-барьер от случайных скриптов, а не защита.
package gate

import (
	"fmt"
	"time"

	"serotonyl.ru/aelum-status/internal/common"
)

// Ключи в сессионном хранилище (совпадают с ключами sessionStorage старой версии сайта).
const (
	VerifiedKey = "aelum_bot_check_passed"
	AttemptsKey = "aelum_bot_check_attempts"
)

// State — состояние проверки для одной сессии.
type State int

const (
	StateUnverified State = iota // Ждём ввод кода
	StateGranted                 // Проверка пройдена
	StateBlocked                 // Попытки исчерпаны, выход только через сброс сессии
)

func (s State) String() string {
	switch s {
	case StateUnverified:
		return "unverified"
	case StateGranted:
		return "granted"
	case StateBlocked:
		return "blocked"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Reason — причина отказа.
type Reason int

const (
	ReasonNone        Reason = iota
	ReasonEmpty              // Пустой ввод, попытка не тратится
	ReasonWrongLength        // Длина не совпадает, попытка не тратится
	ReasonMismatch           // Неверный код, попытка потрачена
	ReasonBlocked            // Попытки исчерпаны
	ReasonBusy               // Предыдущая отправка ещё проверяется
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonEmpty:
		return "empty"
	case ReasonWrongLength:
		return "wrong_length"
	case ReasonMismatch:
		return "mismatch"
	case ReasonBlocked:
		return "blocked"
	case ReasonBusy:
		return "busy"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Result — итог одной отправки кода.
type Result struct {
	Granted      bool
	Reason       Reason
	AttemptsLeft int
	// Length — ожидаемая длина кода (для сообщения о неверной длине)
	Length int
}

// Message возвращает текст ошибки для показа под полем ввода.
// Для успешной проверки — пустая строка.
func (r Result) Message() string {
	switch r.Reason {
	case ReasonEmpty:
		return "Введите код с картинки"
	case ReasonWrongLength:
		return fmt.Sprintf("Код должен содержать %d %s", r.Length, common.PluralizeSymbols(r.Length))
	case ReasonMismatch:
		return fmt.Sprintf("Неверный код. %s", common.FormatAttemptsLeft(r.AttemptsLeft))
	case ReasonBlocked:
		return "Превышено количество попыток. Доступ заблокирован."
	case ReasonBusy:
		return "Код уже проверяется, подождите"
	}
	return ""
}

// Severity возвращает CSS-модификатор предупреждения об оставшихся попытках:
// "danger" при 2 и меньше, "warning" при 3, иначе пусто.
func Severity(attemptsLeft int) string {
	switch {
	case attemptsLeft <= 2:
		return "danger"
	case attemptsLeft <= 3:
		return "warning"
	}
	return ""
}

// Config — параметры CAPTCHA.
type Config struct {
	Length      int           // Длина кода
	Characters  string        // Алфавит без похожих символов (0/O, 1/I)
	MaxAttempts int           // Попыток на сессию
	DelayMin    time.Duration // Искусственная задержка перед проверкой
	DelayMax    time.Duration
	RapidWindow time.Duration // Отправки чаще этого окна считаются подозрительными
	RapidLimit  int           // После стольких подозрительных подряд код меняется
}

// DefaultConfig возвращает настройки старой версии сайта.
func DefaultConfig() Config {
	return Config{
		Length:      6,
		Characters:  "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
		MaxAttempts: 5,
		DelayMin:    800 * time.Millisecond,
		DelayMax:    1200 * time.Millisecond,
		RapidWindow: 500 * time.Millisecond,
		RapidLimit:  3,
	}
}

// View — снимок состояния проверки для отрисовки страницы или сообщения бота.
type View struct {
	State        State
	Challenge    string
	Glyphs       []Glyph
	AttemptsLeft int
	MaxAttempts  int
	Length       int
}

// AttemptsWarning возвращает "Осталось попыток: N", если хотя бы одна попытка потрачена.
func (v View) AttemptsWarning() string {
	if v.AttemptsLeft >= v.MaxAttempts {
		return ""
	}
	return common.FormatAttemptsLeft(v.AttemptsLeft)
}

// Severity — см. функцию Severity.
func (v View) Severity() string {
	return Severity(v.AttemptsLeft)
}
