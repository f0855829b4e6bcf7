package hub

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSConfig holds the gorilla websocket transport settings.
type WSConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultWSConfig returns default websocket settings.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     90 * time.Second,
		MaxMessageSize:  64 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      256,
		CheckOrigin: func(r *http.Request) bool {
			// Overlay surfaces load from arbitrary local origins.
			return true
		},
	}
}

// errTransportClosed is returned for sends on a closed transport.
var errTransportClosed = errors.New("transport closed")

// errSendBufferFull is returned when a slow client's buffer overflows.
var errSendBufferFull = errors.New("send buffer full")

// wsTransport adapts a gorilla connection to the hub Transport: sends and
// pings are enqueued and drained by a single write pump goroutine.
type wsTransport struct {
	conn    *websocket.Conn
	config  WSConfig
	send    chan []byte
	ping    chan struct{}
	closeCh chan struct{}
	once    sync.Once
}

func newWSTransport(conn *websocket.Conn, config WSConfig) *wsTransport {
	return &wsTransport{
		conn:    conn,
		config:  config,
		send:    make(chan []byte, config.SendBuffer),
		ping:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

func (t *wsTransport) Send(data []byte) error {
	select {
	case <-t.closeCh:
		return errTransportClosed
	default:
	}
	select {
	case t.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

func (t *wsTransport) Ping() error {
	select {
	case <-t.closeCh:
		return errTransportClosed
	case t.ping <- struct{}{}:
	default:
		// A probe is already queued.
	}
	return nil
}

func (t *wsTransport) Close() error {
	t.once.Do(func() { close(t.closeCh) })
	return nil
}

func (t *wsTransport) Open() bool {
	select {
	case <-t.closeCh:
		return false
	default:
		return true
	}
}

// writePump drains queued frames and probes onto the wire.
func (t *wsTransport) writePump() {
	defer t.conn.Close()

	for {
		select {
		case <-t.closeCh:
			t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
			t.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
			if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				t.Close()
				return
			}
		case <-t.ping:
			t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Msg("websocket ping failed")
				t.Close()
				return
			}
		}
	}
}

// WSHandler upgrades HTTP requests into hub connections.
type WSHandler struct {
	hub      *Hub
	config   WSConfig
	upgrader websocket.Upgrader
}

// NewWSHandler creates the websocket endpoint handler for the hub.
func NewWSHandler(h *Hub, config WSConfig) *WSHandler {
	return &WSHandler{
		hub:    h,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
}

// ServeHTTP upgrades the request and wires the connection into the hub.
func (wh *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := wh.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		return
	}

	transport := newWSTransport(wsConn, wh.config)
	connID := wh.hub.OnConnect(transport)

	go transport.writePump()
	go wh.readPump(wsConn, transport, connID)

	log.Info().Str("conn_id", connID).Str("remote", r.RemoteAddr).Msg("websocket connection established")
}

// readPump feeds inbound frames into the hub protocol until the
// connection drops, then releases it.
func (wh *WSHandler) readPump(wsConn *websocket.Conn, transport *wsTransport, connID string) {
	defer func() {
		transport.Close()
		wh.hub.OnDisconnect(connID)
	}()

	wsConn.SetReadLimit(wh.config.MaxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(wh.config.ReadTimeout))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(wh.config.ReadTimeout))
		wh.hub.MarkAlive(connID)
		return nil
	})

	for {
		_, message, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn_id", connID).Msg("unexpected websocket close")
			}
			return
		}
		wh.hub.HandleInbound(connID, message)
		wsConn.SetReadDeadline(time.Now().Add(wh.config.ReadTimeout))
	}
}
