// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт хранилище сессий, сервисы, HTTP-сервер,
// планировщик и (если задан токен) Telegram-бота.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/bot"
	"serotonyl.ru/aelum-status/internal/common"
	"serotonyl.ru/aelum-status/internal/config"
	"serotonyl.ru/aelum-status/internal/db/postgres"
	"serotonyl.ru/aelum-status/internal/features/admin"
	"serotonyl.ru/aelum-status/internal/features/gate"
	"serotonyl.ru/aelum-status/internal/features/members"
	"serotonyl.ru/aelum-status/internal/jobs"
	"serotonyl.ru/aelum-status/internal/storage"
	"serotonyl.ru/aelum-status/internal/web"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *web.Server
	Scheduler *jobs.Scheduler
	Members   *members.Service
	// Bot — nil, если TELEGRAM_BOT_TOKEN не задан
	Bot *bot.Bot
	// DB — nil при STORAGE_DRIVER=memory
	DB *pgxpool.Pool
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	// === 1. Хранилище сессий ===
	var (
		store    storage.Store
		attempts admin.AttemptLog
	)
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		a.DB = pool
		store = storage.NewPostgres(pool)
		attempts = admin.NewRepository(pool)
	default:
		store = storage.NewMemory()
		attempts = admin.NewMemoryRepository()
	}
	log.WithField("driver", cfg.StorageDriver).Info("Хранилище сессий готово")

	// === 2. Источник статусов ===
	a.Members = members.NewService(members.NewRepository(cfg.StatsURL, cfg.StatsTimeout))

	// === 3. Проверка доступа ===
	// Хуки вызываются уже после сборки, когда планировщик создан.
	var scheduler *jobs.Scheduler
	gates := gate.NewService(gateConfig(cfg), store, gate.WithGrantHooks(
		func() { go a.Members.Refresh(ctx) },
		func() {
			if err := scheduler.StartAutoRefresh(ctx); err != nil {
				log.WithError(err).Error("Не удалось включить автообновление")
			}
		},
	))

	// === 4. Планировщик задач ===
	scheduler = jobs.NewScheduler(
		common.LoadLocation(cfg.AppTimezone),
		a.Members, gates,
		cfg.AutoRefreshInterval, cfg.SessionTTL,
	)
	a.Scheduler = scheduler

	// === 5. Админ-сброс ===
	adminService := admin.NewService(attempts, gates, cfg.AdminPasswordHash)
	if !cfg.AdminEnabled() {
		log.Info("ADMIN_PASSWORD_HASH не задан, сброс сессий отключён")
	}

	// === 6. HTTP-сервер ===
	server, err := web.New(ctx, cfg, gates, a.Members, adminService)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка создания HTTP-сервера: %w", err)
	}
	a.Server = server

	// === 7. Telegram Bot ===
	if cfg.TelegramEnabled() {
		client, err := bot.NewTelegoClient(ctx, cfg.TelegramBotToken, cfg.AppEnv == "development")
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
		}
		a.Bot = bot.New(client, cfg, gates, a.Members)
	} else {
		log.Info("TELEGRAM_BOT_TOKEN не задан, бот не запускается")
	}

	return a, nil
}

// Close освобождает ресурсы, которые не останавливаются сами.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func gateConfig(cfg *config.Config) gate.Config {
	return gate.Config{
		Length:      cfg.CaptchaLength,
		Characters:  cfg.CaptchaCharacters,
		MaxAttempts: cfg.CaptchaMaxAttempts,
		DelayMin:    cfg.CaptchaDelayMin,
		DelayMax:    cfg.CaptchaDelayMax,
		RapidWindow: cfg.CaptchaRapidWindow,
		RapidLimit:  cfg.CaptchaRapidLimit,
	}
}

// SQL-миграции встроены в код для упрощения деплоя.
var migrations = []postgres.Migration{
	{Version: 1, SQL: migration001SessionStorage},
	{Version: 2, SQL: migration002AdminAttempts},
}

var migration001SessionStorage = `
CREATE TABLE IF NOT EXISTS session_storage (
    session_id VARCHAR(255) NOT NULL,
    key VARCHAR(64) NOT NULL,
    value TEXT NOT NULL,
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (session_id, key)
);
CREATE INDEX IF NOT EXISTS idx_session_storage_updated_at ON session_storage(updated_at);
`

var migration002AdminAttempts = `
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    key VARCHAR(255) NOT NULL,
    attempt_time TIMESTAMPTZ DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_key ON admin_login_attempts(key, attempt_time DESC);
`
