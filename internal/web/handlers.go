package web

import (
	"context"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/common"
	"serotonyl.ru/aelum-status/internal/features/admin"
	"serotonyl.ru/aelum-status/internal/features/gate"
)

// handleIndex показывает панель прошедшим проверку, остальным — CAPTCHA.
// Каждый показ страницы проверки даёт новый код.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	g, err := s.gates.Gate(r.Context(), sessionFrom(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if g.State() == gate.StateGranted {
		s.render(w, http.StatusOK, "dashboard", dashboardPage{
			Theme:     themeFrom(r),
			Status:    s.payload(s.members.Snapshot()),
			RefreshMS: s.cfg.AutoRefreshInterval.Milliseconds(),
		})
		return
	}

	g.Regenerate()
	s.renderGate(w, r, g, http.StatusOK, "")
}

func (s *Server) renderGate(w http.ResponseWriter, r *http.Request, g *gate.Gate, status int, message string) {
	view := g.View()
	page := gatePage{
		Theme:   themeFrom(r),
		View:    view,
		Message: message,
		Blocked: view.State == gate.StateBlocked,
	}
	if page.Blocked {
		page.SessionRef = sessionFrom(r)
		if page.Message == "" {
			page.Message = gate.Result{Reason: gate.ReasonBlocked}.Message()
		}
	}
	s.render(w, status, "gate", page)
}

// handleVerify принимает код из формы.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFrom(r)
	g, err := s.gates.Gate(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if !s.limiter.Allow(sessionID) {
		s.renderGate(w, r, g, http.StatusTooManyRequests, "Слишком много попыток, подождите немного")
		return
	}

	res, err := g.Submit(r.Context(), r.PostFormValue("code"))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if res.Granted {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	status := http.StatusOK
	if res.Reason == gate.ReasonBlocked {
		status = http.StatusForbidden
	}
	s.renderGate(w, r, g, status, res.Message())
}

// handleRegenerate — клик по картинке с кодом.
func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	g, err := s.gates.Gate(r.Context(), sessionFrom(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	g.Regenerate()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.payload(s.members.Snapshot()))
}

// handleRefresh — кнопка "Обновить" и "Повторить" в баннере ошибки.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	_, err := s.members.Load(r.Context())
	payload := s.payload(s.members.Snapshot())
	switch {
	case err == nil, errors.Is(err, common.ErrStaleResponse):
		s.writeJSON(w, http.StatusOK, payload)
	case errors.Is(err, context.Canceled):
	default:
		log.WithError(err).Warn("Ручное обновление не удалось")
		s.writeJSON(w, http.StatusBadGateway, payload)
	}
}

// handleTheme переключает тему и возвращает пользователя назад.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	next := themeDark
	if themeFrom(r) == themeDark {
		next = themeLight
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    next,
		Path:     "/",
		MaxAge:   themeMaxAge,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	ip := s.clientIP(r)
	limitKey := "admin:" + ip
	if !s.limiter.Allow(limitKey) {
		s.writeJSON(w, http.StatusTooManyRequests, errorPayload{Error: "Слишком много запросов, подождите немного"})
		return
	}

	err := s.admin.ResetSession(r.Context(), admin.ResetRequest{
		Key:       ip,
		Password:  r.PostFormValue("password"),
		SessionID: r.PostFormValue("session"),
	})
	switch {
	case err == nil:
		// Пароль верный — окно ограничителя для этого адреса начинается заново
		s.limiter.Reset(limitKey)
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, common.ErrSessionNotFound):
		s.writeJSON(w, http.StatusBadRequest, errorPayload{Error: err.Error()})
	case errors.Is(err, common.ErrWrongPassword):
		s.writeJSON(w, http.StatusUnauthorized, errorPayload{Error: err.Error()})
	case errors.Is(err, common.ErrTooManyAttempts):
		s.writeJSON(w, http.StatusTooManyRequests, errorPayload{Error: err.Error()})
	case errors.Is(err, common.ErrAdminDisabled):
		s.writeJSON(w, http.StatusNotFound, errorPayload{Error: err.Error()})
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.members.Snapshot()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"loaded":   snap.Loaded,
		"sessions": s.gates.Len(),
	})
}
