package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/petems/chronoghost/internal/events"
)

const (
	writeDeadline = 5 * time.Second
	// readDeadline allows ~3 missed pings before the client is considered dead.
	readDeadline = 90 * time.Second
	pingInterval = 30 * time.Second
	// Keybind payloads for a handful of timer slots stay far below this.
	maxReadMessageSize = 256 * 1024
)

type HubOptions struct {
	// Addr is the listen address. Use "127.0.0.1:0" for an OS-assigned port.
	Addr    string
	Handler Handler
	Logger  zerolog.Logger

	// AllowedOrigins lists the browser origins that may connect, compared
	// case-insensitively. Requests without an Origin header come from native
	// clients and are accepted; any other origin is refused, since browsers
	// let every page open WebSockets to loopback.
	AllowedOrigins []string
}

// Hub serves one WebSocket client at a time (the app's single webview).
// A new connection replaces the current one so page reloads just work.
//
// Lock ordering: writeMu -> mu. mu guards conn; writeMu serializes writes,
// which gorilla/websocket does not allow concurrently.
type Hub struct {
	opts HubOptions
	log  zerolog.Logger

	upgrader websocket.Upgrader

	mu   sync.RWMutex
	conn *websocket.Conn

	writeMu sync.Mutex

	server *http.Server
	url    string

	closeOnce sync.Once
}

func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	h := &Hub{
		opts: opts,
		log:  opts.Logger.With().Str("component", "bridge").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     h.checkOrigin,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	h.log.Warn().Str("origin", origin).Str("remote", r.RemoteAddr).Msg("Rejected connection from foreign origin")
	return false
}

// Start listens on the configured address. ctx becomes the base context of
// command handlers; the server itself stops only via Stop.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return fmt.Errorf("bridge: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("bridge: listen: %w", err)
	}
	h.url = fmt.Sprintf("ws://%s/ws", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)

	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			h.log.Error().Err(serveErr).Msg("Bridge server error")
		}
	}()

	h.log.Info().Str("url", h.url).Msg("Bridge started")
	return nil
}

// Stop closes the active connection and shuts the server down. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		conn := h.conn
		h.conn = nil
		h.mu.Unlock()

		if conn != nil {
			h.closeConn(conn, "hub stop")
		}

		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("bridge: shutdown: %w", err)
			}
		}
		h.log.Info().Msg("Bridge stopped")
	})
	return stopErr
}

// URL returns the WebSocket URL, or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

func (h *Hub) HasActiveConnection() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn != nil
}

// Publish forwards a bus event to the connected client. Without a client
// the event is dropped; the UI re-reads state when it connects.
func (h *Hub) Publish(ev events.Event) {
	h.mu.RLock()
	conn := h.conn
	h.mu.RUnlock()
	if conn == nil {
		h.log.Debug().Str("event", ev.Name).Msg("No client connected, dropping event")
		return
	}

	frame, err := EncodeEvent(ev)
	if err != nil {
		h.log.Warn().Err(err).Str("event", ev.Name).Msg("Failed to encode event")
		return
	}
	h.write(conn, frame, "publish")
}

// write sends one text frame. Any failure drops the connection; the client
// is expected to reconnect.
func (h *Hub) write(conn *websocket.Conn, frame []byte, what string) {
	h.writeMu.Lock()
	err := conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, frame)
	}
	h.writeMu.Unlock()

	if err != nil {
		h.log.Warn().Err(err).Str("op", what).Msg("Write failed, closing connection")
		h.clearIfCurrent(conn)
		h.closeConn(conn, "write error")
	}
}

func (h *Hub) writeJSON(conn *websocket.Conn, v any, what string) {
	frame, err := json.Marshal(v)
	if err != nil {
		h.log.Warn().Err(err).Str("op", what).Msg("Failed to marshal message")
		return
	}
	h.write(conn, frame, what)
}

func (h *Hub) clearIfCurrent(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != conn {
		return false
	}
	h.conn = nil
	return true
}

// closeConn tolerates double close; gorilla returns an error and nothing else.
func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if err := conn.Close(); err != nil {
		h.log.Debug().Err(err).Str("reason", reason).Msg("Connection close")
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Upgrade failed")
		return
	}
	connLog := h.log.With().Str("conn", uuid.NewString()).Logger()

	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		connLog.Warn().Err(err).Msg("SetReadDeadline failed on new connection")
		h.closeConn(conn, "initial read deadline")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	h.mu.Lock()
	old := h.conn
	h.conn = conn
	h.mu.Unlock()
	if old != nil {
		h.closeConn(old, "replaced by new connection")
	}

	connLog.Info().Str("remote", conn.RemoteAddr().String()).Msg("Client connected")

	pingDone := make(chan struct{})
	go h.pingLoop(conn, pingDone, connLog)

	defer func() {
		if rec := recover(); rec != nil {
			connLog.Error().Interface("panic", rec).Str("stack", string(debug.Stack())).Msg("Bridge connection handler panicked")
		}
		close(pingDone)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "read loop exit")
		connLog.Info().Msg("Client disconnected")
	}()

	for {
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				connLog.Warn().Err(err).Msg("Read error")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		msg, err := decodeCommand(frame)
		if err != nil {
			connLog.Debug().Err(err).Msg("Bad command frame")
			h.writeJSON(conn, errorMsg{Type: "error", Message: err.Error()}, "error")
			continue
		}
		h.runCommand(r.Context(), conn, msg, connLog)
	}
}

func (h *Hub) runCommand(ctx context.Context, conn *websocket.Conn, msg commandMsg, log zerolog.Logger) {
	reply := replyMsg{Type: "reply", ID: msg.ID}
	if h.opts.Handler == nil {
		reply.Error = "no command handler"
		h.writeJSON(conn, reply, "reply")
		return
	}

	result, err := h.opts.Handler.HandleCommand(ctx, msg.Command, msg.Args)
	if err != nil {
		log.Warn().Err(err).Str("command", msg.Command).Msg("Command failed")
		reply.Error = err.Error()
	} else {
		reply.OK = true
		reply.Result = result
	}
	h.writeJSON(conn, reply, "reply")
}

func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}, log zerolog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline))
			h.writeMu.Unlock()
			if err != nil {
				log.Debug().Err(err).Msg("Ping failed, connection likely dead")
				h.clearIfCurrent(conn)
				h.closeConn(conn, "ping failure")
				return
			}
		}
	}
}
