// Package gate — gate.go содержит конечный автомат проверки для одной сессии.
// Unverified → Granted при верном коде; Unverified → Unverified с новым кодом
// при ошибке; Unverified → Blocked, когда попытки кончились.
package gate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"

	"serotonyl.ru/aelum-status/internal/storage"
)

// GrantHook вызывается один раз после успешной проверки.
// Обычно это загрузка данных и запуск автообновления.
type GrantHook func()

// Option настраивает Gate.
type Option func(*Gate)

// WithGrantHooks регистрирует хуки успешной проверки. nil-хуки пропускаются.
func WithGrantHooks(hooks ...GrantHook) Option {
	return func(g *Gate) { g.hooks = append(g.hooks, hooks...) }
}

// WithSeed делает генерацию кода детерминированной (для тестов).
func WithSeed(seed1, seed2 uint64) Option {
	return func(g *Gate) { g.rnd = rand.New(rand.NewPCG(seed1, seed2)) }
}

// WithClock подменяет источник времени (для эвристики быстрых отправок).
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithSleep подменяет ожидание искусственной задержки.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gate) { g.sleep = sleep }
}

// Gate — проверка на бота для одной сессии.
type Gate struct {
	mu sync.Mutex

	cfg       Config
	sessionID string
	store     storage.Store
	hooks     []GrantHook

	rnd   *rand.Rand
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	state        State
	challenge    string
	attemptsLeft int
	busy         bool

	lastSubmit  time.Time
	rapidStreak int
}

// New создаёт проверку для сессии и восстанавливает её состояние из хранилища:
// флаг пройденной проверки и счётчик оставшихся попыток.
func New(ctx context.Context, sessionID string, cfg Config, store storage.Store, opts ...Option) (*Gate, error) {
	g := &Gate{
		cfg:          cfg,
		sessionID:    sessionID,
		store:        store,
		rnd:          rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:          time.Now,
		sleep:        sleepContext,
		state:        StateUnverified,
		attemptsLeft: cfg.MaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}

	verified, _, err := store.Get(ctx, sessionID, VerifiedKey)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения флага проверки: %w", err)
	}
	if verified == "true" {
		g.state = StateGranted
		return g, nil
	}

	saved, ok, err := store.Get(ctx, sessionID, AttemptsKey)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения счётчика попыток: %w", err)
	}
	if ok {
		n, err := strconv.Atoi(saved)
		if err != nil {
			log.WithFields(log.Fields{
				"component": "gate",
				"session":   sessionID,
				"value":     saved,
			}).Warn("Некорректный счётчик попыток в хранилище, сбрасываем")
		} else if n < g.attemptsLeft {
			g.attemptsLeft = n
		}
	}
	if g.attemptsLeft <= 0 {
		g.attemptsLeft = 0
		g.state = StateBlocked
	}

	g.challenge = GenerateChallenge(g.rnd, cfg.Characters, cfg.Length)
	return g, nil
}

// State возвращает текущее состояние.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Challenge возвращает текущий код. Пустая строка — проверка уже пройдена.
func (g *Gate) Challenge() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateGranted {
		return ""
	}
	return g.challenge
}

// AttemptsLeft возвращает число оставшихся попыток.
func (g *Gate) AttemptsLeft() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attemptsLeft
}

// Regenerate выдаёт новый код (клик по картинке, повторная отрисовка страницы).
// Во время проверки и в конечных состояниях ничего не делает.
func (g *Gate) Regenerate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy || g.state != StateUnverified {
		return
	}
	g.challenge = GenerateChallenge(g.rnd, g.cfg.Characters, g.cfg.Length)
}

// View возвращает снимок для отрисовки. Искажения символов каждый раз новые.
func (g *Gate) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()

	v := View{
		State:        g.state,
		AttemptsLeft: g.attemptsLeft,
		MaxAttempts:  g.cfg.MaxAttempts,
		Length:       g.cfg.Length,
	}
	if g.state != StateGranted {
		v.Challenge = g.challenge
		v.Glyphs = Jitter(g.rnd, g.challenge)
	}
	return v
}

// Submit проверяет введённый код.
//
// Пустой ввод и ввод неверной длины отклоняются сразу и попытку не тратят.
// Остальное сравнивается без учёта регистра после случайной задержки
// DelayMin..DelayMax; пока идёт задержка, новые отправки получают ReasonBusy.
// Ошибка возвращается только при отмене ctx во время задержки.
func (g *Gate) Submit(ctx context.Context, input string) (Result, error) {
	logger := log.WithFields(log.Fields{
		"component": "gate",
		"session":   g.sessionID,
	})

	g.mu.Lock()
	switch g.state {
	case StateBlocked:
		g.mu.Unlock()
		return Result{Reason: ReasonBlocked}, nil
	case StateGranted:
		g.mu.Unlock()
		return Result{Granted: true, AttemptsLeft: g.cfg.MaxAttempts}, nil
	}

	g.trackRapidLocked()

	if g.busy {
		left := g.attemptsLeft
		g.mu.Unlock()
		return Result{Reason: ReasonBusy, AttemptsLeft: left}, nil
	}

	code := strings.TrimSpace(input)
	if code == "" {
		left := g.attemptsLeft
		g.mu.Unlock()
		return Result{Reason: ReasonEmpty, AttemptsLeft: left}, nil
	}
	expected := g.challenge
	if utf8.RuneCountInString(code) != utf8.RuneCountInString(expected) {
		left := g.attemptsLeft
		g.mu.Unlock()
		return Result{Reason: ReasonWrongLength, AttemptsLeft: left, Length: utf8.RuneCountInString(expected)}, nil
	}

	g.busy = true
	delay := g.randomDelayLocked()
	g.mu.Unlock()

	err := g.sleep(ctx, delay)

	g.mu.Lock()
	g.busy = false
	if err != nil {
		g.mu.Unlock()
		return Result{}, fmt.Errorf("проверка кода прервана: %w", err)
	}

	if fold(code) == fold(expected) {
		g.state = StateGranted
		g.attemptsLeft = g.cfg.MaxAttempts
		hooks := g.hooks

		if err := g.store.Set(ctx, g.sessionID, VerifiedKey, "true"); err != nil {
			logger.WithError(err).Warn("Не удалось сохранить флаг проверки")
		}
		if err := g.store.Remove(ctx, g.sessionID, AttemptsKey); err != nil {
			logger.WithError(err).Warn("Не удалось сбросить счётчик попыток")
		}
		g.mu.Unlock()

		logger.Info("Проверка на бота пройдена")
		runHooks(hooks)
		return Result{Granted: true, AttemptsLeft: g.cfg.MaxAttempts}, nil
	}

	g.attemptsLeft--
	if g.attemptsLeft < 0 {
		g.attemptsLeft = 0
	}
	left := g.attemptsLeft
	if err := g.store.Set(ctx, g.sessionID, AttemptsKey, strconv.Itoa(left)); err != nil {
		logger.WithError(err).Warn("Не удалось сохранить счётчик попыток")
	}

	if left == 0 {
		g.state = StateBlocked
		g.mu.Unlock()
		logger.Warn("Попытки исчерпаны, проверка заблокирована")
		return Result{Reason: ReasonBlocked}, nil
	}

	g.challenge = GenerateChallenge(g.rnd, g.cfg.Characters, g.cfg.Length)
	g.mu.Unlock()

	logger.WithField("attempts_left", left).Debug("Неверный код")
	return Result{Reason: ReasonMismatch, AttemptsLeft: left}, nil
}

// trackRapidLocked считает отправки, идущие чаще RapidWindow.
// Когда их больше RapidLimit подряд, код меняется.
func (g *Gate) trackRapidLocked() {
	now := g.now()
	if !g.lastSubmit.IsZero() && now.Sub(g.lastSubmit) < g.cfg.RapidWindow {
		g.rapidStreak++
		if g.cfg.RapidLimit > 0 && g.rapidStreak > g.cfg.RapidLimit {
			if !g.busy {
				g.challenge = GenerateChallenge(g.rnd, g.cfg.Characters, g.cfg.Length)
			}
			g.rapidStreak = 0
			log.WithFields(log.Fields{
				"component": "gate",
				"session":   g.sessionID,
			}).Info("Слишком частые отправки, код заменён")
		}
	} else {
		g.rapidStreak = 0
	}
	g.lastSubmit = now
}

func (g *Gate) randomDelayLocked() time.Duration {
	spread := g.cfg.DelayMax - g.cfg.DelayMin
	if spread <= 0 {
		return g.cfg.DelayMin
	}
	return g.cfg.DelayMin + time.Duration(g.rnd.Int64N(int64(spread)))
}

func runHooks(hooks []GrantHook) {
	for _, hook := range hooks {
		if hook != nil {
			hook()
		}
	}
}

func fold(s string) string {
	// Caser хранит состояние, поэтому создаём новый на каждый вызов
	return cases.Fold().String(s)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
