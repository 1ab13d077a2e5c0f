package members

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/common"
)

// Fetcher — источник документа. В проде это *Repository.
type Fetcher interface {
	Fetch(ctx context.Context) (*Feed, error)
}

// Service хранит последнее состояние панели и раздаёт его подписчикам.
// Каждая загрузка получает номер; ответ, обогнанный более новым запросом, отбрасывается.
type Service struct {
	fetcher Fetcher
	now     func() time.Time

	issued atomic.Uint64

	mu   sync.RWMutex
	snap Snapshot
	// version растёт при каждом изменении snap
	version uint64

	subsMu  sync.Mutex
	subs    map[uint64]func(Snapshot)
	nextSub uint64

	// notifyMu упорядочивает рассылку; notified — последняя разосланная версия
	notifyMu sync.Mutex
	notified uint64
}

// NewService создаёт сервис поверх fetcher.
func NewService(fetcher Fetcher) *Service {
	return &Service{
		fetcher: fetcher,
		now:     time.Now,
		subs:    make(map[uint64]func(Snapshot)),
	}
}

// Load загружает документ и обновляет снимок.
// Устаревший ответ даёт common.ErrStaleResponse и не меняет состояние.
// При ошибке прежние данные сохраняются, в снимок пишется текст ошибки.
func (s *Service) Load(ctx context.Context) (*Feed, error) {
	token := s.issued.Add(1)
	feed, err := s.fetcher.Fetch(ctx)

	s.mu.Lock()
	if token != s.issued.Load() {
		s.mu.Unlock()
		log.WithFields(log.Fields{
			"component": "members",
			"token":     token,
		}).Debug("Ответ устарел, отброшен")
		return nil, common.ErrStaleResponse
	}

	if err != nil {
		// Отмена — не ошибка источника, баннер не показываем
		if errors.Is(err, context.Canceled) {
			s.mu.Unlock()
			return nil, err
		}
		s.snap.Error = err.Error()
		s.version++
		snap, version := s.snap, s.version
		s.mu.Unlock()
		s.notify(snap, version)
		return nil, err
	}

	members := make([]Member, len(feed.Members))
	copy(members, feed.Members)
	s.snap = Snapshot{
		Members:     members,
		Counts:      CountMembers(members),
		LastUpdated: feed.LastUpdated.Time,
		FetchedAt:   s.now(),
		Loaded:      true,
	}
	s.version++
	snap, version := s.snap, s.version
	s.mu.Unlock()

	s.notify(snap, version)
	return feed, nil
}

// Refresh — Load без возврата результата, для cron и хуков доступа.
// Ошибки только логируются.
func (s *Service) Refresh(ctx context.Context) {
	_, err := s.Load(ctx)
	switch {
	case err == nil:
		log.WithField("component", "members").Debug("Статусы обновлены")
	case errors.Is(err, common.ErrStaleResponse):
	case errors.Is(err, context.Canceled):
		log.WithField("component", "members").Debug("Загрузка отменена")
	default:
		log.WithFields(log.Fields{
			"component": "members",
			"error":     err,
		}).Warn("Не удалось загрузить статусы")
	}
}

// Snapshot возвращает текущее состояние.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe регистрирует fn на каждое изменение снимка.
// Возвращает функцию отписки.
func (s *Service) Subscribe(fn func(Snapshot)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// notify рассылает снимок подписчикам. Снимок старше уже разосланного
// пропускается, иначе подписчики увидели бы откат.
func (s *Service) notify(snap Snapshot, version uint64) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.notified {
		return
	}
	s.notified = version

	s.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
