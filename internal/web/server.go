// Package web — HTTP-версия панели: страница проверки на бота, панель статусов,
// JSON API и websocket для живых обновлений.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/common"
	"serotonyl.ru/aelum-status/internal/config"
	"serotonyl.ru/aelum-status/internal/features/admin"
	"serotonyl.ru/aelum-status/internal/features/gate"
	"serotonyl.ru/aelum-status/internal/features/members"
	"serotonyl.ru/aelum-status/internal/middleware"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server — HTTP-сервер панели.
type Server struct {
	ctx context.Context
	cfg *config.Config
	loc *time.Location

	gates   *gate.Service
	members *members.Service
	admin   *admin.Service

	hub         *Hub
	unsubscribe func()
	limiter     *middleware.RateLimiter
	proxies     []*net.IPNet
	pages       *template.Template
	router      *mux.Router
	srv         *http.Server
	now         func() time.Time
}

// New собирает сервер. ctx — контекст приложения: на нём выполняются загрузки,
// запущенные из websocket, чтобы они не обрывались вместе с соединением.
func New(ctx context.Context, cfg *config.Config, gates *gate.Service, statuses *members.Service, adminSvc *admin.Service) (*Server, error) {
	pages, err := template.New("").Funcs(template.FuncMap{
		"glyphStyle": glyphStyle,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора шаблонов: %w", err)
	}
	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return nil, err
	}

	s := &Server{
		ctx:     ctx,
		cfg:     cfg,
		loc:     common.LoadLocation(cfg.AppTimezone),
		gates:   gates,
		members: statuses,
		admin:   adminSvc,
		limiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		proxies: proxies,
		pages:   pages,
		now:     time.Now,
	}
	s.hub = NewHub(func() { s.members.Refresh(s.ctx) })
	s.unsubscribe = statuses.Subscribe(func(snap members.Snapshot) {
		s.hub.Broadcast(s.payload(snap))
	})
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Recover, middleware.LogRequests, s.withSession)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/gate/verify", s.handleVerify).Methods(http.MethodPost)
	r.HandleFunc("/gate/refresh", s.handleRegenerate).Methods(http.MethodPost)
	r.HandleFunc("/theme", s.handleTheme).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireVerified)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)

	r.Handle("/ws", s.requireVerified(http.HandlerFunc(s.handleWS))).Methods(http.MethodGet)

	if s.admin != nil && s.admin.Enabled() {
		r.HandleFunc("/admin/reset", s.handleAdminReset).Methods(http.MethodPost)
	}
	return r
}

// Handler возвращает корневой обработчик (для тестов и встраивания).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start слушает HTTP_ADDR. Блокируется до Stop.
func (s *Server) Start() error {
	log.WithField("addr", s.srv.Addr).Info("HTTP-сервер запущен")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка HTTP-сервера: %w", err)
	}
	return nil
}

// Stop закрывает websocket-соединения и дожидается завершения запросов (до 5 секунд).
func (s *Server) Stop() error {
	s.unsubscribe()
	s.hub.Close()
	s.limiter.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
	}
	log.Info("HTTP-сервер остановлен")
	return nil
}
