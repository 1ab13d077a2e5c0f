package web

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ctxKey int

const sessionKey ctxKey = iota

const (
	themeCookie = "theme"
	themeDark   = "dark"
	themeLight  = "light"
	// год, как у localStorage старой версии — "навсегда"
	themeMaxAge = 365 * 24 * 60 * 60
)

// withSession выдаёт браузеру идентификатор сессии.
// Cookie без Max-Age живёт до закрытия браузера, как sessionStorage.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cfg.SessionCookie); err == nil {
			if _, err := uuid.Parse(c.Value); err == nil {
				id = c.Value
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cfg.SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, id)))
	})
}

func sessionFrom(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey).(string)
	return id
}

// requireVerified пропускает только сессии, прошедшие проверку.
func (s *Server) requireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.gates.IsVerified(r.Context(), sessionFrom(r))
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			s.writeJSON(w, http.StatusForbidden, errorPayload{Error: "проверка на бота не пройдена"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func themeFrom(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil && c.Value == themeDark {
		return themeDark
	}
	return themeLight
}

// clientIP — ключ для ограничения попыток входа в админку.
// X-Forwarded-For читается только если запрос пришёл от доверенного прокси:
// берётся самый правый адрес, который сам не является прокси.
func (s *Server) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !s.trusted(host) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !s.trusted(hop) {
			return hop
		}
		host = hop
	}
	return host
}

func (s *Server) trusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range s.proxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
