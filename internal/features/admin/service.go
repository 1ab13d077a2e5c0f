// Package admin — service.go проверяет пароль и сбрасывает сессии проверки.
package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/common"
)

// Resetter очищает хранилище сессии. В проде это *gate.Service.
type Resetter interface {
	Reset(ctx context.Context, sessionID string) error
}

// Service управляет ручным сбросом.
type Service struct {
	attempts     AttemptLog
	resetter     Resetter
	passwordHash string
	now          func() time.Time
}

// NewService создаёт сервис. Пустой passwordHash выключает админ-доступ.
func NewService(attempts AttemptLog, resetter Resetter, passwordHash string) *Service {
	return &Service{
		attempts:     attempts,
		resetter:     resetter,
		passwordHash: passwordHash,
		now:          time.Now,
	}
}

// Enabled сообщает, задан ли пароль администратора.
func (s *Service) Enabled() bool {
	return s.passwordHash != ""
}

// VerifyPassword проверяет пароль с использованием Argon2id.
// Включает защиту от brute-force: 3 неудачные попытки = блокировка на 1 час.
func (s *Service) VerifyPassword(ctx context.Context, key, password string) error {
	if !s.Enabled() {
		return common.ErrAdminDisabled
	}

	failures, err := s.attempts.RecentFailures(ctx, key, s.now().Add(-LockoutPeriod))
	if err != nil {
		return err
	}
	if failures >= MaxFailedAttempts {
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.passwordHash)

	if err := s.attempts.LogAttempt(ctx, key, match); err != nil {
		log.WithError(err).Warn("Не удалось записать попытку входа")
	}

	if !match {
		log.WithFields(log.Fields{
			"component": "admin",
			"key":       key,
		}).Warn("Неверный пароль администратора")
		return common.ErrWrongPassword
	}
	return nil
}

// ResetSession проверяет пароль и очищает хранилище указанной сессии.
func (s *Service) ResetSession(ctx context.Context, req ResetRequest) error {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return common.ErrSessionNotFound
	}
	if err := s.VerifyPassword(ctx, req.Key, req.Password); err != nil {
		return err
	}
	if err := s.resetter.Reset(ctx, sessionID); err != nil {
		return fmt.Errorf("ошибка сброса сессии %s: %w", sessionID, err)
	}

	log.WithFields(log.Fields{
		"component": "admin",
		"key":       req.Key,
		"session":   sessionID,
	}).Info("Сессия проверки сброшена администратором")
	return nil
}
