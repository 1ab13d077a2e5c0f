// Package bot — Telegram-версия панели статусов.
// bot.go принимает обновления, проводит пользователя через проверку на бота
// и отвечает сводкой статусов.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/bot/filters"
	"serotonyl.ru/aelum-status/internal/common"
	"serotonyl.ru/aelum-status/internal/config"
	"serotonyl.ru/aelum-status/internal/features/gate"
	"serotonyl.ru/aelum-status/internal/features/members"
	"serotonyl.ru/aelum-status/internal/middleware"
)

const helpText = `Я показываю статусы участников чата Aelum.

/start — начать
/new — новый код проверки
/status — статусы участников
/help — эта справка

Чтобы пройти проверку, просто отправьте код из сообщения.`

// StatusSource — источник снимка статусов. В проде это *members.Service.
type StatusSource interface {
	Snapshot() members.Snapshot
	Refresh(ctx context.Context)
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	client Client
	cfg    *config.Config
	loc    *time.Location

	gates   *gate.Service
	members StatusSource

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter
	parser      *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	now      func() time.Time
}

// New создаёт бота со всеми зависимостями.
func New(client Client, cfg *config.Config, gates *gate.Service, statuses StatusSource) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	b := &Bot{
		client:      client,
		cfg:         cfg,
		loc:         common.LoadLocation(cfg.AppTimezone),
		gates:       gates,
		members:     statuses,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		parser:      NewCommandParser(),
		inflight:    make(chan struct{}, maxInFlight),
		now:         time.Now,
	}
	b.chatFilter = filters.NewChatFilter(client.Username(), func(chatID int64) {
		b.sendMessage(context.Background(), chatID, "Напишите мне в личные сообщения 🙂")
	})
	return b
}

// SessionID — ключ сессии проверки для пользователя Telegram.
func SessionID(userID int64) string {
	return fmt.Sprintf("tg:%d", userID)
}

// Start запускает polling обновлений от Telegram. Блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.client.Updates(ctx, b.cfg.BotUpdateTimeoutSeconds)
	if err != nil {
		return err
	}
	defer b.rateLimiter.Close()

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return nil
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd telego.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic()

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(message) {
		return
	}

	chatID := message.Chat.ID
	sessionID := SessionID(message.From.ID)

	if !b.rateLimiter.Allow(sessionID) {
		log.WithField("session", sessionID).Debug("rate limited")
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if isCommand {
		log.WithFields(log.Fields{
			"cmd":  cmd,
			"args": args,
		}).Debug("routing command")
		b.routeCommand(ctx, chatID, sessionID, cmd)
		return
	}

	b.handleCode(ctx, chatID, sessionID, message.Text)
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID int64, sessionID, cmd string) {
	switch cmd {
	case "start":
		b.handleStart(ctx, chatID, sessionID)
	case "help":
		b.sendMessage(ctx, chatID, helpText)
	case "new":
		b.handleNew(ctx, chatID, sessionID)
	case "status":
		b.handleStatus(ctx, chatID, sessionID)
	default:
		b.sendMessage(ctx, chatID, "Неизвестная команда. /help — список команд")
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64, sessionID string) {
	g, ok := b.gate(ctx, chatID, sessionID)
	if !ok {
		return
	}
	switch g.State() {
	case gate.StateGranted:
		b.sendMessage(ctx, chatID, "✅ Проверка уже пройдена. /status — статусы участников")
	case gate.StateBlocked:
		b.sendMessage(ctx, chatID, "⛔ "+common.ErrGateBlocked.Error()+". Обратитесь к администратору.")
	default:
		b.sendMessage(ctx, chatID, formatChallenge(g.View()))
	}
}

func (b *Bot) handleNew(ctx context.Context, chatID int64, sessionID string) {
	g, ok := b.gate(ctx, chatID, sessionID)
	if !ok {
		return
	}
	if g.State() != gate.StateUnverified {
		b.handleStart(ctx, chatID, sessionID)
		return
	}
	g.Regenerate()
	b.sendMessage(ctx, chatID, formatChallenge(g.View()))
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64, sessionID string) {
	verified, err := b.gates.IsVerified(ctx, sessionID)
	if err != nil {
		log.WithError(err).WithField("session", sessionID).Error("Ошибка проверки доступа")
		b.sendMessage(ctx, chatID, "⚠️ Внутренняя ошибка, попробуйте позже")
		return
	}
	if !verified {
		b.sendMessage(ctx, chatID, "🔒 "+common.ErrNotVerified.Error()+". Отправьте /start")
		return
	}

	snap := b.members.Snapshot()
	if !snap.Loaded {
		// Первая загрузка ещё не завершилась (или упала) — пробуем сами
		b.members.Refresh(ctx)
		snap = b.members.Snapshot()
	}
	b.sendMessage(ctx, chatID, formatStatus(snap, b.now(), b.loc, b.cfg.BotStatusLimit))
}

// handleCode — любой текст, кроме команд, считается вводом кода.
func (b *Bot) handleCode(ctx context.Context, chatID int64, sessionID, text string) {
	g, ok := b.gate(ctx, chatID, sessionID)
	if !ok {
		return
	}
	if g.State() == gate.StateGranted {
		b.sendMessage(ctx, chatID, "✅ Проверка уже пройдена. /status — статусы участников")
		return
	}

	res, err := g.Submit(ctx, text)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.WithError(err).WithField("session", sessionID).Error("Ошибка проверки кода")
		}
		return
	}

	switch {
	case res.Granted:
		b.sendMessage(ctx, chatID, "✅ Проверка пройдена! /status — статусы участников")
	case res.Reason == gate.ReasonMismatch:
		b.sendMessage(ctx, chatID, "❌ "+res.Message()+"\n\n"+formatChallenge(g.View()))
	case res.Reason == gate.ReasonBlocked:
		b.sendMessage(ctx, chatID, "⛔ "+res.Message())
	default:
		b.sendMessage(ctx, chatID, "⚠️ "+res.Message())
	}
}

func (b *Bot) gate(ctx context.Context, chatID int64, sessionID string) (*gate.Gate, bool) {
	g, err := b.gates.Gate(ctx, sessionID)
	if err != nil {
		log.WithError(err).WithField("session", sessionID).Error("Не удалось получить проверку")
		b.sendMessage(ctx, chatID, "⚠️ Внутренняя ошибка, попробуйте позже")
		return nil, false
	}
	return g, true
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	if err := b.client.SendText(ctx, chatID, strings.TrimSpace(text)); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
