package web

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/features/gate"
	"serotonyl.ru/aelum-status/internal/features/members"
)

// gatePage — данные страницы проверки.
type gatePage struct {
	Theme   string
	View    gate.View
	Message string
	Blocked bool
	// SessionRef — идентификатор сессии для сброса администратором, только при блокировке
	SessionRef string
}

// dashboardPage — данные панели статусов.
type dashboardPage struct {
	Theme     string
	Status    statusPayload
	RefreshMS int64
}

// statusPayload — ответ /api/status и сообщения websocket.
type statusPayload struct {
	Loaded      bool           `json:"loaded"`
	Counts      members.Counts `json:"counts"`
	Rows        []members.Row  `json:"rows"`
	LastUpdated string         `json:"last_updated"`
	Error       string         `json:"error,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func (s *Server) payload(snap members.Snapshot) statusPayload {
	p := statusPayload{
		Loaded:      snap.Loaded,
		Counts:      snap.Counts,
		Rows:        members.BuildRows(snap.Members, s.now(), s.loc),
		LastUpdated: members.FormatUpdated(snap.LastUpdated, s.loc),
	}
	if snap.Error != "" {
		p.Error = "Не удалось загрузить данные: " + snap.Error
	}
	return p
}

func glyphStyle(g gate.Glyph) template.CSS {
	return template.CSS(fmt.Sprintf(
		"transform: rotate(%.1fdeg) scale(%.2f); color: rgb(%d, %d, %d)",
		g.Rotation, g.Scale, g.Shade, g.Shade, g.Shade,
	))
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		log.WithError(err).WithField("template", name).Error("Ошибка отрисовки шаблона")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		log.WithError(err).Error("Ошибка сериализации ответа")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	log.WithError(err).WithField("status", status).Error("Ошибка обработки запроса")
	s.writeJSON(w, status, errorPayload{Error: "внутренняя ошибка"})
}
