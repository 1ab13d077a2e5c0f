// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: автообновление статусов
// и очистку простаивающих сессий.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/middleware"
)

// Refresher перезагружает статусы. В проде это *members.Service.
type Refresher interface {
	Refresh(ctx context.Context)
}

// SessionPurger удаляет сессии, не использовавшиеся дольше ttl. В проде это *gate.Service.
type SessionPurger interface {
	PurgeIdle(ctx context.Context, ttl time.Duration) (int, error)
	// Len — сколько сессий осталось
	Len() int
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	refresher Refresher
	purger    SessionPurger
	interval  time.Duration
	ttl       time.Duration

	mu          sync.Mutex
	refreshID   cron.EntryID
	refreshOn   bool
	cleanupOn   bool
	cleanupSpec string
}

// NewScheduler создаёт планировщик задач в часовом поясе loc.
// interval — период автообновления, ttl — время жизни неактивной сессии.
func NewScheduler(loc *time.Location, refresher Refresher, purger SessionPurger, interval, ttl time.Duration) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(loc)),
		refresher:   refresher,
		purger:      purger,
		interval:    interval,
		ttl:         ttl,
		cleanupSpec: "@every 10m",
	}
}

// Start запускает cron и задачу очистки сессий.
// Автообновление включается отдельно, после прохождения проверки.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cleanupOn && s.purger != nil {
		_, err := s.cron.AddFunc(s.cleanupSpec, func() {
			defer middleware.RecoverFromPanic()
			s.cleanup(ctx)
		})
		if err != nil {
			return fmt.Errorf("ошибка добавления задачи очистки: %w", err)
		}
		s.cleanupOn = true
	}

	s.cron.Start()
	log.WithField("location", s.cron.Location().String()).Info("Планировщик задач запущен")
	return nil
}

// cleanup удаляет неактивные сессии. Когда не осталось ни одной,
// автообновление выключается до следующей успешной проверки.
func (s *Scheduler) cleanup(ctx context.Context) {
	n, err := s.purger.PurgeIdle(ctx, s.ttl)
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка очистки сессий")
		return
	}
	if n > 0 {
		log.WithField("sessions", n).Info("[CRON] Удалены неактивные сессии")
	}
	if s.purger.Len() == 0 && s.AutoRefreshEnabled() {
		s.StopAutoRefresh()
	}
}

// StartAutoRefresh включает периодическое обновление статусов.
// Повторный вызов заменяет прежнюю задачу, поэтому таймер всегда один.
func (s *Scheduler) StartAutoRefresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshOn {
		s.cron.Remove(s.refreshID)
		s.refreshOn = false
	}

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		defer middleware.RecoverFromPanic()
		log.Debug("[CRON] Автообновление статусов")
		s.refresher.Refresh(ctx)
	})
	if err != nil {
		return fmt.Errorf("ошибка добавления автообновления: %w", err)
	}
	s.refreshID = id
	s.refreshOn = true

	log.WithField("interval", s.interval).Info("Автообновление включено")
	return nil
}

// StopAutoRefresh выключает автообновление. Без активной задачи ничего не делает.
func (s *Scheduler) StopAutoRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.refreshOn {
		return
	}
	s.cron.Remove(s.refreshID)
	s.refreshOn = false
	log.Info("Автообновление выключено")
}

// AutoRefreshEnabled сообщает, запланировано ли автообновление.
func (s *Scheduler) AutoRefreshEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshOn
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
