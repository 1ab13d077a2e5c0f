// Package members показывает статусы участников чата из внешнего JSON-документа (stat.json).
// models.go описывает формат документа, единый словарь статусов и агрегаты для панели.
package members

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status — статус участника. В старых версиях stat.json встречались
// и "active", и "online"; оба приводятся к StatusActive.
type Status string

const (
	StatusAdmin   Status = "admin"
	StatusActive  Status = "active"
	StatusOffline Status = "offline"
	StatusBanned  Status = "banned"
)

// ParseStatus нормализует статус из документа. Неизвестные значения
// возвращаются как есть (в нижнем регистре) и сортируются в конец списка.
func ParseStatus(raw string) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "online":
		return StatusActive
	}
	return Status(s)
}

// Known сообщает, входит ли статус в словарь.
func (s Status) Known() bool {
	switch s {
	case StatusAdmin, StatusActive, StatusOffline, StatusBanned:
		return true
	}
	return false
}

// Rank задаёт порядок в списке: админы → активные → не в сети → заблокированные → прочие.
func (s Status) Rank() int {
	switch s {
	case StatusAdmin:
		return 0
	case StatusActive:
		return 1
	case StatusOffline:
		return 2
	case StatusBanned:
		return 3
	}
	return 4
}

// Label возвращает подпись статуса на русском.
func (s Status) Label() string {
	switch s {
	case StatusAdmin:
		return "Администратор"
	case StatusActive:
		return "Состоит"
	case StatusOffline:
		return "Не в сети"
	case StatusBanned:
		return "Заблокирован"
	}
	return string(s)
}

// Timestamp — время из документа. null и пустая строка дают нулевое время,
// чтобы необязательные поля не ломали разбор всего документа.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("время должно быть строкой: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := parseTime(s)
	if err != nil {
		return fmt.Errorf("некорректное время %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// timeLayouts — форматы ISO-8601, которые встречаются в документе.
// Время без пояса считается UTC. Дробные секунды разбираются любым из них.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		parsed, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return parsed, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Member — участник из документа. Ключ — Username.
type Member struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar"`
	RawStatus   string    `json:"status"`
	LastSeen    Timestamp `json:"last_seen"`
	JoinedAt    Timestamp `json:"joined_at"`
	BannedAt    Timestamp `json:"banned_at"`
	BanReason   string    `json:"ban_reason,omitempty"`
	Role        string    `json:"role,omitempty"`
}

// Status возвращает нормализованный статус.
func (m *Member) Status() Status {
	return ParseStatus(m.RawStatus)
}

// Name возвращает отображаемое имя.
// Если display_name пустой — "@username".
func (m *Member) Name() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return "@" + m.Username
}

// Feed — документ целиком.
type Feed struct {
	LastUpdated Timestamp `json:"last_updated"`
	Members     []Member  `json:"members"`
}

// Counts — агрегаты для карточек статистики.
type Counts struct {
	Total   int `json:"total"`
	Admins  int `json:"admins"`
	Active  int `json:"active"`
	Offline int `json:"offline"`
	Banned  int `json:"banned"`
}

// CountMembers считает участников по статусам.
func CountMembers(members []Member) Counts {
	c := Counts{Total: len(members)}
	for i := range members {
		switch members[i].Status() {
		case StatusAdmin:
			c.Admins++
		case StatusActive:
			c.Active++
		case StatusOffline:
			c.Offline++
		case StatusBanned:
			c.Banned++
		}
	}
	return c
}

// Snapshot — последнее известное состояние панели.
// При ошибке загрузки Members/Counts остаются от прошлой удачной загрузки,
// а Error содержит текст ошибки.
type Snapshot struct {
	Members     []Member  `json:"members"`
	Counts      Counts    `json:"counts"`
	LastUpdated time.Time `json:"last_updated"`
	FetchedAt   time.Time `json:"fetched_at"`
	Error       string    `json:"error,omitempty"`
	Loaded      bool      `json:"loaded"`
}
