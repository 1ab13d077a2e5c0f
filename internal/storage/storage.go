// Package storage реализует серверный аналог sessionStorage браузера:
// key/value хранилище, привязанное к идентификатору сессии.
// Записи живут, пока сессия активна; неактивные сессии вычищаются по расписанию.
package storage

import (
	"context"
	"time"
)

// Store — хранилище значений в рамках одной сессии.
// Реализации: Memory (по умолчанию) и Postgres.
type Store interface {
	// Get возвращает значение ключа; ok=false, если ключа нет.
	Get(ctx context.Context, sessionID, key string) (value string, ok bool, err error)
	// Set записывает значение и продлевает жизнь сессии.
	Set(ctx context.Context, sessionID, key, value string) error
	// Remove удаляет один ключ. Отсутствие ключа — не ошибка.
	Remove(ctx context.Context, sessionID, key string) error
	// Clear удаляет все ключи сессии (аналог очистки sessionStorage).
	Clear(ctx context.Context, sessionID string) error
	// PurgeIdle удаляет сессии, в которые не писали с момента idleSince.
	PurgeIdle(ctx context.Context, idleSince time.Time) (int64, error)
}
