// Package gate — service.go держит по одному экземпляру Gate на сессию.
// Код CAPTCHA живёт только в памяти, поэтому и сами экземпляры хранятся здесь,
// а флаг проверки и счётчик попыток — в сессионном хранилище.
package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/storage"
)

type entry struct {
	gate     *Gate
	lastUsed time.Time
}

// Service управляет проверками всех сессий.
type Service struct {
	cfg   Config
	store storage.Store
	opts  []Option

	mu    sync.Mutex
	gates map[string]*entry
	now   func() time.Time
}

// NewService создаёт сервис. opts применяются к каждому создаваемому Gate.
func NewService(cfg Config, store storage.Store, opts ...Option) *Service {
	return &Service{
		cfg:   cfg,
		store: store,
		opts:  opts,
		gates: make(map[string]*entry),
		now:   time.Now,
	}
}

// Gate возвращает проверку сессии, создавая её при первом обращении.
func (s *Service) Gate(ctx context.Context, sessionID string) (*Gate, error) {
	s.mu.Lock()
	if e, ok := s.gates[sessionID]; ok {
		e.lastUsed = s.now()
		s.mu.Unlock()
		return e.gate, nil
	}
	s.mu.Unlock()

	g, err := New(ctx, sessionID, s.cfg, s.store, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания проверки (session=%s): %w", sessionID, err)
	}

	s.mu.Lock()
	// Параллельный запрос мог успеть создать экземпляр раньше нас
	if e, ok := s.gates[sessionID]; ok {
		e.lastUsed = s.now()
		s.mu.Unlock()
		return e.gate, nil
	}
	s.gates[sessionID] = &entry{gate: g, lastUsed: s.now()}
	s.mu.Unlock()

	// Сессия уже проходила проверку: запускаем то же, что и после ввода кода
	if g.State() == StateGranted {
		runHooks(g.hooks)
	}
	return g, nil
}

// IsVerified сообщает, прошла ли сессия проверку. Экземпляр Gate не создаётся.
func (s *Service) IsVerified(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	e, ok := s.gates[sessionID]
	s.mu.Unlock()
	if ok {
		return e.gate.State() == StateGranted, nil
	}

	v, _, err := s.store.Get(ctx, sessionID, VerifiedKey)
	if err != nil {
		return false, fmt.Errorf("ошибка чтения флага проверки: %w", err)
	}
	return v == "true", nil
}

// Reset очищает сессионное хранилище и забывает экземпляр Gate.
// Это единственный выход из состояния Blocked.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.gates, sessionID)
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"component": "gate",
		"session":   sessionID,
	}).Info("Проверка сессии сброшена")
	return nil
}

// PurgeIdle забывает экземпляры, к которым не обращались дольше ttl,
// и удаляет такие же сессии из хранилища.
func (s *Service) PurgeIdle(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	dropped := 0
	for id, e := range s.gates {
		if e.lastUsed.Before(cutoff) {
			delete(s.gates, id)
			dropped++
		}
	}
	s.mu.Unlock()

	purged, err := s.store.PurgeIdle(ctx, cutoff)
	if err != nil {
		return dropped, err
	}
	log.WithFields(log.Fields{
		"component": "gate",
		"gates":     dropped,
		"sessions":  purged,
	}).Debug("Очистка неактивных сессий")
	return dropped, nil
}

// Touch продлевает жизнь сессии без создания проверки.
// Нужен открытым панелям, которые живут на websocket и не делают HTTP-запросов.
func (s *Service) Touch(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.gates[sessionID]
	if ok {
		e.lastUsed = s.now()
	}
	return ok
}

// Len возвращает число экземпляров в памяти.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.gates)
}
