// Package admin реализует ручной сброс заблокированной проверки на бота.
// Доступ — по паролю (Argon2id), с защитой от перебора.
// models.go описывает попытки входа и лимиты.
package admin

import "time"

// LoginAttempt — попытка входа (для защиты от brute-force).
// Key — кто пытается: IP веб-клиента или "tg:<id>".
type LoginAttempt struct {
	Key         string    `db:"key"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

const (
	// MaxFailedAttempts — неудачных попыток до блокировки.
	MaxFailedAttempts = 3
	// LockoutPeriod — окно, в котором считаются неудачные попытки.
	LockoutPeriod = time.Hour
)

// ResetRequest — запрос на сброс сессии проверки.
type ResetRequest struct {
	Key       string // источник запроса
	Password  string
	SessionID string // сессия, которую надо разблокировать
}
