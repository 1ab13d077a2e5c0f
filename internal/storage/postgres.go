package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB — подмножество методов *pgxpool.Pool, которое нужно хранилищу.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres хранит значения сессий в таблице session_storage.
// Нужен, когда сервис запущен в нескольких экземплярах за балансировщиком.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	query := `SELECT value FROM session_storage WHERE session_id = $1 AND key = $2`
	var value string
	err := p.db.QueryRow(ctx, query, sessionID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("ошибка чтения ключа %s (session=%s): %w", key, sessionID, err)
	}
	return value, true, nil
}

// Set вставляет значение; на конфликте по (session_id, key) перезаписывает его.
// updated_at остальных ключей сессии тоже обновляется, чтобы сессия жила целиком.
func (p *Postgres) Set(ctx context.Context, sessionID, key, value string) error {
	query := `
		INSERT INTO session_storage (session_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (session_id, key) DO UPDATE
		SET value = EXCLUDED.value,
		    updated_at = NOW()
	`
	if _, err := p.db.Exec(ctx, query, sessionID, key, value); err != nil {
		return fmt.Errorf("ошибка записи ключа %s (session=%s): %w", key, sessionID, err)
	}
	if _, err := p.db.Exec(ctx,
		`UPDATE session_storage SET updated_at = NOW() WHERE session_id = $1`, sessionID,
	); err != nil {
		return fmt.Errorf("ошибка продления сессии %s: %w", sessionID, err)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, sessionID, key string) error {
	query := `DELETE FROM session_storage WHERE session_id = $1 AND key = $2`
	if _, err := p.db.Exec(ctx, query, sessionID, key); err != nil {
		return fmt.Errorf("ошибка удаления ключа %s (session=%s): %w", key, sessionID, err)
	}
	return nil
}

func (p *Postgres) Clear(ctx context.Context, sessionID string) error {
	query := `DELETE FROM session_storage WHERE session_id = $1`
	if _, err := p.db.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("ошибка очистки сессии %s: %w", sessionID, err)
	}
	return nil
}

func (p *Postgres) PurgeIdle(ctx context.Context, idleSince time.Time) (int64, error) {
	query := `
		DELETE FROM session_storage
		WHERE session_id IN (
			SELECT session_id FROM session_storage
			GROUP BY session_id
			HAVING MAX(updated_at) < $1
		)
	`
	tag, err := p.db.Exec(ctx, query, idleSince.UTC())
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки неактивных сессий: %w", err)
	}
	return tag.RowsAffected(), nil
}
