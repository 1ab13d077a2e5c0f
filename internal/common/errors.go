// Package common — errors.go определяет общие ошибки,
// которые используются во всех модулях сервиса.
// Эти ошибки позволяют обработчикам различать типы проблем
// и показывать пользователю понятные сообщения.
package common

import "errors"

// Ошибки проверки на бота
var (
	// ErrGateBlocked — попытки исчерпаны, проверка заблокирована до сброса сессии
	ErrGateBlocked = errors.New("превышено количество попыток")
	// ErrNotVerified — сессия не прошла проверку на бота
	ErrNotVerified = errors.New("проверка на бота не пройдена")
	// ErrSessionNotFound — сессия не найдена в хранилище
	ErrSessionNotFound = errors.New("сессия не найдена")
)

// Ошибки загрузки данных
var (
	// ErrStaleResponse — ответ устарел: после него уже был отправлен более новый запрос
	ErrStaleResponse = errors.New("ответ устарел, используется более новый запрос")
)

// Ошибки админки
var (
	// ErrAdminDisabled — ADMIN_PASSWORD_HASH не задан, сброс недоступен
	ErrAdminDisabled = errors.New("админ-доступ отключён")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
)
