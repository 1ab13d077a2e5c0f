package config

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STATS_URL", "https://example.org/stat.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.AutoRefreshInterval)
	assert.Equal(t, 6, cfg.CaptchaLength)
	assert.Equal(t, "ABCDEFGHJKLMNPQRSTUVWXYZ23456789", cfg.CaptchaCharacters)
	assert.Equal(t, 5, cfg.CaptchaMaxAttempts)
	assert.Equal(t, 800*time.Millisecond, cfg.CaptchaDelayMin)
	assert.Equal(t, 1200*time.Millisecond, cfg.CaptchaDelayMax)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.AdminEnabled())
}

func TestLoad_MissingStatsURL(t *testing.T) {
	t.Setenv("STATS_URL", "")
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StatsURL:            "http://localhost/stat.json",
			StatsTimeout:        time.Second,
			AutoRefreshInterval: 30 * time.Second,
			CaptchaLength:       6,
			CaptchaCharacters:   "ABC",
			CaptchaMaxAttempts:  5,
			CaptchaDelayMin:     800 * time.Millisecond,
			CaptchaDelayMax:     1200 * time.Millisecond,
			SessionTTL:          time.Hour,
			StorageDriver:       StorageMemory,
			RateLimitRequests:   10,
			RateLimitWindow:     time.Minute,
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"relative url", func(c *Config) { c.StatsURL = "stat.json" }},
		{"zero length", func(c *Config) { c.CaptchaLength = 0 }},
		{"one char alphabet", func(c *Config) { c.CaptchaCharacters = "A" }},
		{"zero attempts", func(c *Config) { c.CaptchaMaxAttempts = 0 }},
		{"delay inverted", func(c *Config) { c.CaptchaDelayMax = 100 * time.Millisecond }},
		{"refresh too fast", func(c *Config) { c.AutoRefreshInterval = 10 * time.Millisecond }},
		{"unknown storage", func(c *Config) { c.StorageDriver = "redis" }},
		{"bad proxy", func(c *Config) { c.TrustedProxies = []string{"proxy.local"} }},
		{"postgres without password", func(c *Config) { c.StorageDriver = StoragePostgres }},
		{"bot without inflight", func(c *Config) {
			c.TelegramBotToken = "token"
			c.BotUpdateTimeoutSeconds = 60
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	c := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: 5432, DBName: "d", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/d?sslmode=disable", c.DatabaseDSN())
}

func TestTrustedProxyNets(t *testing.T) {
	c := &Config{TrustedProxies: []string{"10.0.0.0/8", " 192.168.1.5 ", "", "::1"}}
	nets, err := c.TrustedProxyNets()
	require.NoError(t, err)
	require.Len(t, nets, 3)

	assert.True(t, nets[0].Contains(net.ParseIP("10.1.2.3")))
	assert.True(t, nets[1].Contains(net.ParseIP("192.168.1.5")))
	assert.False(t, nets[1].Contains(net.ParseIP("192.168.1.6")))
	assert.True(t, nets[2].Contains(net.ParseIP("::1")))
}
