// Package hub is the realtime core: it owns every live connection,
// groups them into broadcast channels and rooms with presence tracking,
// sweeps dead connections via heartbeat, and fans published events out to
// subscribers. The phase engine publishes through it; inbound socket
// messages flow the other way, into subscriptions and room membership.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quizdeck/quizdeck/internal/events"
	"github.com/quizdeck/quizdeck/internal/ratelimit"
)

// RoomChannelPrefix derives a room's implicit channel name.
const RoomChannelPrefix = "room:"

// RoomChannel returns the channel name backing a room.
func RoomChannel(roomID string) string {
	return RoomChannelPrefix + roomID
}

// Config tunes the hub.
type Config struct {
	// HeartbeatInterval is the sweep cadence. A connection that misses
	// two consecutive sweeps is terminated.
	HeartbeatInterval time.Duration
	// MessageRate/MessageBurst throttle inbound messages per connection.
	MessageRate  float64
	MessageBurst int
}

// DefaultConfig returns production hub settings.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		MessageRate:       20,
		MessageBurst:      60,
	}
}

// conn is the hub-side state of one connection. All fields are guarded by
// the hub mutex.
type conn struct {
	id           string
	transport    Transport
	alive        bool
	channels     map[string]struct{}
	roomID       string
	role         string
	lastActivity time.Time
}

// RoomJoinFunc observes room joins, e.g. to trigger a replay send.
type RoomJoinFunc func(roomID, connID, role string)

// Hub manages connections, channels, rooms and heartbeat.
type Hub struct {
	mu      sync.RWMutex
	conns   map[string]*conn
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	clock   clockwork.Clock
	config  Config
	limiter *ratelimit.Limiter

	joinObservers []RoomJoinFunc
}

// NewHub creates a hub using the real clock.
func NewHub(config Config) *Hub {
	return NewHubWithClock(config, clockwork.NewRealClock())
}

// NewHubWithClock creates a hub with an injected clock for tests.
func NewHubWithClock(config Config, clock clockwork.Clock) *Hub {
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultConfig().HeartbeatInterval
	}
	if config.MessageRate <= 0 {
		config.MessageRate = DefaultConfig().MessageRate
	}
	if config.MessageBurst <= 0 {
		config.MessageBurst = DefaultConfig().MessageBurst
	}
	return &Hub{
		conns:   make(map[string]*conn),
		clock:   clock,
		config:  config,
		limiter: ratelimit.NewLimiterWithClock(config.MessageRate, config.MessageBurst, clock),
	}
}

// Start begins the heartbeat sweep. Idempotent: a second call is a
// logged no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		log.Info().Msg("hub already started, ignoring")
		return
	}
	h.started = true
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	h.stopCh = stopCh
	h.doneCh = doneCh
	h.mu.Unlock()

	log.Info().Dur("heartbeat_interval", h.config.HeartbeatInterval).Msg("hub started")
	go h.heartbeatLoop(stopCh, doneCh)
}

// Stop halts the heartbeat, closes every connection and clears all
// subscription and presence state. Safe to call when not started.
func (h *Hub) Stop() {
	h.mu.Lock()
	stopCh, doneCh := h.stopCh, h.doneCh
	h.stopCh, h.doneCh = nil, nil
	h.started = false
	conns := h.conns
	h.conns = make(map[string]*conn)
	h.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
	for _, c := range conns {
		if err := c.transport.Close(); err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Msg("close during hub stop")
		}
		h.limiter.Forget(c.id)
	}
	log.Info().Int("connections_released", len(conns)).Msg("hub stopped")
}

// OnConnect registers a new connection around the given transport and
// returns its id. The connection starts alive with no subscriptions.
func (h *Hub) OnConnect(t Transport) string {
	c := &conn{
		id:           uuid.New().String(),
		transport:    t,
		alive:        true,
		channels:     make(map[string]struct{}),
		lastActivity: h.clock.Now(),
	}
	h.mu.Lock()
	h.conns[c.id] = c
	total := len(h.conns)
	h.mu.Unlock()

	log.Info().Str("conn_id", c.id).Int("total_connections", total).Msg("connection registered")
	return c.id
}

// OnDisconnect releases a connection, its subscriptions and its presence
// entry, rebroadcasting presence to the room it was in. Unknown ids are
// ignored.
func (h *Hub) OnDisconnect(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	var roomID string
	if ok {
		roomID = c.roomID
		delete(h.conns, connID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	h.limiter.Forget(connID)
	if err := c.transport.Close(); err != nil {
		log.Debug().Err(err).Str("conn_id", connID).Msg("close on disconnect")
	}
	if roomID != "" {
		h.BroadcastPresence(roomID)
	}
	log.Info().Str("conn_id", connID).Msg("connection released")
}

// MarkAlive records a liveness-pong from the connection.
func (h *Hub) MarkAlive(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[connID]; ok {
		c.alive = true
	}
}

// OnRoomJoin registers an observer fired after a connection joins a room.
func (h *Hub) OnRoomJoin(fn RoomJoinFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinObservers = append(h.joinObservers, fn)
}

// Publish fans an event out to every open subscriber of the channel,
// wrapped in the broadcast envelope. A failing send is logged and never
// aborts delivery to the remaining subscribers.
func (h *Hub) Publish(channel string, event events.Event) {
	data, err := json.Marshal(broadcastEnvelope{Channel: channel, Data: event})
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("failed to marshal event")
		return
	}
	h.broadcastRaw(channel, data, "")
}

// broadcastEnvelope is the outbound broadcast frame.
type broadcastEnvelope struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// broadcastRaw sends a marshaled frame to every open subscriber of the
// channel except the excluded connection.
func (h *Hub) broadcastRaw(channel string, data []byte, exclude string) {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for _, c := range h.conns {
		if c.id == exclude {
			continue
		}
		if _, subscribed := c.channels[channel]; subscribed {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if !c.transport.Open() {
			continue
		}
		if err := c.transport.Send(data); err != nil {
			log.Warn().Err(err).Str("conn_id", c.id).Str("channel", channel).Msg("send failed during broadcast")
			continue
		}
		sent++
	}
	log.Debug().Str("channel", channel).Int("delivered", sent).Msg("event broadcast")
}

// SendToClient unicasts a payload directly, unwrapped. Unknown ids and
// closed transports are silent no-ops; send errors are swallowed.
func (h *Hub) SendToClient(connID string, payload any) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok || !c.transport.Open() {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("conn_id", connID).Msg("failed to marshal unicast payload")
		return
	}
	if err := c.transport.Send(data); err != nil {
		log.Warn().Err(err).Str("conn_id", connID).Msg("unicast send failed")
	}
}

// BroadcastPresence publishes the room's presence list on the room
// channel.
func (h *Hub) BroadcastPresence(roomID string) {
	h.Publish(RoomChannel(roomID), events.NewPresence(roomID, h.Presence(roomID)))
}

// SendReplay unicasts catch-up history plus a presence snapshot to a
// client that (re)joined a room. Message content comes from the history
// collaborator, not the hub.
func (h *Hub) SendReplay(connID, roomID string, messages, pinned []any) {
	replay := events.NewReplay(roomID, messages, pinned, events.NewPresence(roomID, h.Presence(roomID)))
	h.SendToClient(connID, replay)
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ChannelSubscribers returns how many live connections subscribe to the
// channel. Unknown channels return zero.
func (h *Hub) ChannelSubscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, c := range h.conns {
		if _, ok := c.channels[channel]; ok {
			n++
		}
	}
	return n
}

// Presence returns the room's presence list. Unknown rooms return an
// empty list, never an error.
func (h *Hub) Presence(roomID string) []events.PresenceEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entries := []events.PresenceEntry{}
	for _, c := range h.conns {
		if c.roomID != roomID {
			continue
		}
		entries = append(entries, events.PresenceEntry{
			ConnID:       c.id,
			Role:         c.role,
			IsOnline:     c.alive,
			LastActivity: c.lastActivity.UnixMilli(),
		})
	}
	return entries
}

// heartbeatLoop runs the fixed-interval sweep until stopped.
func (h *Hub) heartbeatLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := h.clock.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.Chan():
			h.sweep()
		}
	}
}

// sweep terminates every connection that has not answered a probe since
// the previous sweep, then probes the survivors. A connection therefore
// survives one missed probe and dies on the second consecutive miss.
func (h *Hub) sweep() {
	h.mu.Lock()
	var dead []*conn
	var probe []*conn
	for _, c := range h.conns {
		if !c.alive {
			dead = append(dead, c)
			delete(h.conns, c.id)
			continue
		}
		c.alive = false
		probe = append(probe, c)
	}
	h.mu.Unlock()

	affectedRooms := make(map[string]struct{})
	for _, c := range dead {
		log.Info().Str("conn_id", c.id).Msg("terminating unresponsive connection")
		if err := c.transport.Close(); err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Msg("close of dead connection")
		}
		h.limiter.Forget(c.id)
		if c.roomID != "" {
			affectedRooms[c.roomID] = struct{}{}
		}
	}
	for roomID := range affectedRooms {
		h.BroadcastPresence(roomID)
	}

	for _, c := range probe {
		if err := c.transport.Ping(); err != nil {
			log.Debug().Err(err).Str("conn_id", c.id).Msg("liveness probe failed")
		}
	}
}
