package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/aelum-status/internal/middleware"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsSendBuffer = 8
)

// wsMessage — сообщение в обе стороны.
// Сервер шлёт {"type":"snapshot","data":...}, клиент — {"type":"visible"} или {"type":"refresh"}.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	// touch отмечает активность сессии клиента
	touch func()
}

// Hub рассылает снимки всем открытым панелям.
type Hub struct {
	upgrader websocket.Upgrader
	refresh  func()

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

// NewHub создаёт хаб. refresh вызывается, когда вкладка снова стала видимой.
func NewHub(refresh func()) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		refresh: refresh,
		clients: make(map[*wsClient]struct{}),
	}
}

// Broadcast отправляет payload всем клиентам. Медленные клиенты отключаются.
func (h *Hub) Broadcast(payload any) {
	msg, err := sonic.ConfigStd.Marshal(wsMessage{Type: "snapshot", Data: payload})
	if err != nil {
		log.WithError(err).Error("Ошибка сериализации снимка для websocket")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Debug("websocket-клиент не успевает, отключаем")
			h.removeLocked(c)
		}
	}
}

// Len — число подключённых клиентов.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close отключает всех клиентов.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) removeLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

// Serve апгрейдит соединение и обслуживает его до закрытия. initial уходит клиенту первым.
// touch вызывается на каждое сообщение и pong клиента, может быть nil.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial any, touch func()) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("Ошибка апгрейда websocket")
		return
	}

	if touch == nil {
		touch = func() {}
	}
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer), touch: touch}

	first, err := sonic.ConfigStd.Marshal(wsMessage{Type: "snapshot", Data: initial})
	if err == nil {
		c.send <- first
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *wsClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg wsMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("websocket закрыт с ошибкой")
			}
			return
		}
		c.touch()
		switch msg.Type {
		case "visible", "refresh":
			// Загрузка идёт вне цикла чтения; результат придёт через Broadcast
			go func() {
				defer middleware.RecoverFromPanic()
				h.refresh()
			}()
		default:
			log.WithField("type", msg.Type).Debug("Неизвестное сообщение websocket")
		}
	}
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFrom(r)
	s.hub.Serve(w, r, s.payload(s.members.Snapshot()), func() {
		s.gates.Touch(sessionID)
	})
}
