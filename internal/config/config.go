// Package config загружает конфигурацию сервиса из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Драйверы хранилища сессий.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Источник данных ---
	// URL JSON-документа со статусами участников (stat.json)
	StatsURL     string        `envconfig:"STATS_URL" required:"true"`
	StatsTimeout time.Duration `envconfig:"STATS_TIMEOUT" default:"10s"`
	// Интервал автообновления (в оригинале 30 секунд)
	AutoRefreshInterval time.Duration `envconfig:"AUTO_REFRESH_INTERVAL" default:"30s"`

	// --- HTTP ---
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	// Сессионная cookie живёт до закрытия браузера, серверная запись — SessionTTL с последнего обращения
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"aelum_session"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	// Адреса обратных прокси (IP или CIDR через запятую). X-Forwarded-For
	// учитывается только от них, иначе клиент — RemoteAddr.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	// --- CAPTCHA ---
	CaptchaLength      int           `envconfig:"CAPTCHA_LENGTH" default:"6"`
	CaptchaCharacters  string        `envconfig:"CAPTCHA_CHARACTERS" default:"ABCDEFGHJKLMNPQRSTUVWXYZ23456789"`
	CaptchaMaxAttempts int           `envconfig:"CAPTCHA_MAX_ATTEMPTS" default:"5"`
	CaptchaDelayMin    time.Duration `envconfig:"CAPTCHA_DELAY_MIN" default:"800ms"`
	CaptchaDelayMax    time.Duration `envconfig:"CAPTCHA_DELAY_MAX" default:"1200ms"`
	CaptchaRapidWindow time.Duration `envconfig:"CAPTCHA_RAPID_WINDOW" default:"500ms"`
	CaptchaRapidLimit  int           `envconfig:"CAPTCHA_RAPID_LIMIT" default:"3"`

	// --- Storage ---
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"memory"`

	// --- Database (только для STORAGE_DRIVER=postgres) ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"statususer"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"aelum_status"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Telegram (пустой токен — бот не запускается) ---
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	// Сколько апдейтов обрабатываем параллельно. Проверка кода спит ~1с, без лимита флуд съест память.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`
	// Сколько участников показывать в ответе на /status
	BotStatusLimit int `envconfig:"BOT_STATUS_LIMIT" default:"30"`

	// --- Admin (пустой хеш — сброс сессий отключён) ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// TelegramEnabled сообщает, нужно ли запускать Telegram-бота.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// AdminEnabled сообщает, доступен ли сброс сессий администратором.
func (c *Config) AdminEnabled() bool {
	return c.AdminPasswordHash != ""
}

// TrustedProxyNets разбирает TRUSTED_PROXIES. Одиночный IP становится сетью /32 (/128).
func (c *Config) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, n, err := net.ParseCIDR(raw); err == nil {
			nets = append(nets, n)
			continue
		}
		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: некорректный адрес %q", raw)
		}
		bits := 128
		if ip4 := ip.To4(); ip4 != nil {
			ip, bits = ip4, 32
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.StatsURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("STATS_URL должен быть абсолютным URL, получено %q", c.StatsURL)
	}
	if c.StatsTimeout <= 0 {
		return fmt.Errorf("STATS_TIMEOUT должен быть > 0")
	}
	if c.AutoRefreshInterval < time.Second {
		return fmt.Errorf("AUTO_REFRESH_INTERVAL должен быть >= 1s")
	}
	if c.CaptchaLength <= 0 {
		return fmt.Errorf("CAPTCHA_LENGTH должен быть > 0")
	}
	if len([]rune(c.CaptchaCharacters)) < 2 {
		return fmt.Errorf("CAPTCHA_CHARACTERS должен содержать хотя бы 2 символа")
	}
	if c.CaptchaMaxAttempts <= 0 {
		return fmt.Errorf("CAPTCHA_MAX_ATTEMPTS должен быть > 0")
	}
	if c.CaptchaDelayMin < 0 || c.CaptchaDelayMax < c.CaptchaDelayMin {
		return fmt.Errorf("некорректные CAPTCHA_DELAY_MIN/CAPTCHA_DELAY_MAX")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL должен быть > 0")
	}
	if _, err := c.TrustedProxyNets(); err != nil {
		return err
	}
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен для STORAGE_DRIVER=postgres")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	default:
		return fmt.Errorf("неизвестный STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.TelegramEnabled() {
		if c.BotMaxInflight <= 0 {
			return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
		}
		if c.BotUpdateTimeoutSeconds <= 0 {
			return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
		}
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("некорректные RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
