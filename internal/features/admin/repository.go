// Package admin — repository.go хранит журнал попыток входа:
// в памяти или в таблице admin_login_attempts.
package admin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AttemptLog — журнал попыток входа.
type AttemptLog interface {
	LogAttempt(ctx context.Context, key string, success bool) error
	RecentFailures(ctx context.Context, key string, since time.Time) (int, error)
}

// DB — подмножество методов *pgxpool.Pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository работает с таблицей admin_login_attempts.
type Repository struct {
	db DB
}

// NewRepository создаёт репозиторий.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, key string, success bool) error {
	query := `INSERT INTO admin_login_attempts (key, success) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, key, success); err != nil {
		return fmt.Errorf("ошибка записи попытки входа: %w", err)
	}
	return nil
}

// RecentFailures возвращает количество неудачных попыток начиная с since.
func (r *Repository) RecentFailures(ctx context.Context, key string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE key = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	if err := r.db.QueryRow(ctx, query, key, since.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта попыток входа: %w", err)
	}
	return count, nil
}

// MemoryRepository — журнал попыток в памяти, для STORAGE_DRIVER=memory.
type MemoryRepository struct {
	mu       sync.Mutex
	attempts []LoginAttempt
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (m *MemoryRepository) LogAttempt(_ context.Context, key string, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	// Старше окна блокировки записи не нужны
	kept := m.attempts[:0]
	for _, a := range m.attempts {
		if now.Sub(a.AttemptTime) < LockoutPeriod {
			kept = append(kept, a)
		}
	}
	m.attempts = append(kept, LoginAttempt{Key: key, AttemptTime: now, Success: success})
	return nil
}

func (m *MemoryRepository) RecentFailures(_ context.Context, key string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, a := range m.attempts {
		if a.Key == key && !a.Success && !a.AttemptTime.Before(since) {
			count++
		}
	}
	return count, nil
}
