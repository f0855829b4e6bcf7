package hub

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// inboundMessage is the one wire shape clients send. Type selects the
// operation; the other fields are read per type and ignored otherwise.
type inboundMessage struct {
	Type      string          `json:"type"`
	Channel   string          `json:"channel,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
	Role      string          `json:"role,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	Action    string          `json:"action,omitempty"`
}

// HandleInbound processes one raw client frame. Malformed JSON, unknown
// types and messages with missing required fields are dropped without
// disturbing the connection; over-limit senders are throttled.
func (h *Hub) HandleInbound(connID string, raw []byte) {
	if !h.limiter.Allow(connID) {
		log.Warn().Str("conn_id", connID).Msg("inbound message rate limit exceeded, dropping")
		return
	}

	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Warn().Err(err).Str("conn_id", connID).Msg("dropping malformed inbound message")
		return
	}

	switch msg.Type {
	case "subscribe":
		if msg.Channel == "" {
			return
		}
		h.subscribe(connID, msg.Channel)

	case "unsubscribe":
		if msg.Channel == "" {
			return
		}
		h.unsubscribe(connID, msg.Channel)

	case "join-room":
		if msg.RoomID == "" || msg.Role == "" {
			return
		}
		h.joinRoom(connID, msg.RoomID, msg.Role)

	case "leave-room":
		if msg.RoomID == "" {
			return
		}
		h.leaveRoom(connID, msg.RoomID)

	case "presence-ping":
		h.touchPresence(connID)

	case "cue-action":
		if msg.MessageID == "" || msg.Action == "" {
			return
		}
		h.touchPresence(connID)

	case "ack":
		// Explicitly accepted so clients can confirm receipt without
		// triggering unknown-type warnings.

	case "state":
		if msg.Channel == "" {
			return
		}
		h.mirrorState(connID, msg.Channel, msg.Data)

	default:
		log.Debug().Str("conn_id", connID).Str("type", msg.Type).Msg("ignoring unknown message type")
	}
}

func (h *Hub) subscribe(connID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[connID]; ok {
		c.channels[channel] = struct{}{}
	}
}

func (h *Hub) unsubscribe(connID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[connID]; ok {
		delete(c.channels, channel)
	}
}

// joinRoom moves the connection into a room: leaving any previous room
// first, subscribing the room channel, recording presence, broadcasting
// the updated presence lists and firing the join observers.
func (h *Hub) joinRoom(connID, roomID, role string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	previous := c.roomID
	if previous != "" && previous != roomID {
		delete(c.channels, RoomChannel(previous))
	}
	c.roomID = roomID
	c.role = role
	c.lastActivity = h.clock.Now()
	c.channels[RoomChannel(roomID)] = struct{}{}
	observers := make([]RoomJoinFunc, len(h.joinObservers))
	copy(observers, h.joinObservers)
	h.mu.Unlock()

	if previous != "" && previous != roomID {
		h.BroadcastPresence(previous)
	}
	h.BroadcastPresence(roomID)

	log.Info().Str("conn_id", connID).Str("room_id", roomID).Str("role", role).Msg("joined room")
	for _, fn := range observers {
		fn(roomID, connID, role)
	}
}

func (h *Hub) leaveRoom(connID, roomID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(c.channels, RoomChannel(roomID))
	if c.roomID == roomID {
		c.roomID = ""
		c.role = ""
	}
	h.mu.Unlock()

	h.BroadcastPresence(roomID)
	log.Info().Str("conn_id", connID).Str("room_id", roomID).Msg("left room")
}

// touchPresence refreshes the connection's last-activity timestamp in its
// room's presence entry.
func (h *Hub) touchPresence(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.conns[connID]; ok {
		c.lastActivity = h.clock.Now()
	}
}

// mirrorState re-broadcasts client-supplied UI state to every other
// subscriber of the channel.
func (h *Hub) mirrorState(connID, channel string, data json.RawMessage) {
	frame, err := json.Marshal(broadcastEnvelope{Channel: channel, Data: data})
	if err != nil {
		log.Warn().Err(err).Str("conn_id", connID).Msg("failed to marshal state mirror")
		return
	}
	h.broadcastRaw(channel, frame, connID)
}
