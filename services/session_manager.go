package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// CommandKind is the closed set of inbound realtime commands. Anything else
// gets an error frame back instead of being silently dropped.
type CommandKind string

const (
	CommandClick    CommandKind = "click"
	CommandBuyItem  CommandKind = "buy_item"
	CommandGetState CommandKind = "get_state"
	CommandGetItems CommandKind = "get_items"
)

// Outbound event types.
const (
	EventGameState         = "game_state"
	EventClickResult       = "click_result"
	EventPurchaseResult    = "purchase_result"
	EventItemsList         = "items_list"
	EventLeaderboardUpdate = "leaderboard_update"
	EventError             = "error"
)

// Command is an inbound realtime frame.
type Command struct {
	Type   CommandKind `json:"type"`
	ItemID string      `json:"item_id,omitempty"`
}

// Event is an outbound realtime frame.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SessionConn is the write side of a realtime connection. Satisfied by
// *websocket.Conn; tests plug in fakes.
type SessionConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// session binds one connection to one authenticated user. The per-session
// mutex serializes writes: the owning read loop, the broadcaster and the
// reaper may all write concurrently.
type session struct {
	userID string
	conn   SessionConn
	mu     sync.Mutex
}

func (s *session) send(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// SessionManager tracks one active connection per user id, routes inbound
// commands to the economy engine and pushes outbound events. Constructed
// once in main and injected wherever realtime is served — no package-global
// registry.
type SessionManager struct {
	game *GameService

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessionManager(game *GameService) *SessionManager {
	return &SessionManager{
		game:     game,
		sessions: make(map[string]*session),
	}
}

// Register binds a connection to a user id. A second connection for the same
// user replaces the first, and the displaced connection is forcibly closed
// so its read loop unblocks instead of lingering with undefined delivery.
func (m *SessionManager) Register(userID string, conn SessionConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[userID]; ok {
		existing.conn.Close()
		log.Printf("[WS] Replacing live session for user %s", userID)
	}
	m.sessions[userID] = &session{userID: userID, conn: conn}
}

// Deregister removes the registration, but only if the given connection is
// still the registered one — a displaced connection unwinding its read loop
// must not evict its replacement.
func (m *SessionManager) Deregister(userID string, conn SessionConn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[userID]; ok && existing.conn == conn {
		delete(m.sessions, userID)
	}
}

// ActiveCount reports the number of live sessions.
func (m *SessionManager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) snapshot() []*session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// SendToUser delivers an event to one user's session, if connected.
func (m *SessionManager) SendToUser(userID string, event Event) error {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no active session for user %s", userID)
	}
	return s.send(event)
}

// Broadcast delivers an event to every live session. Write failures are the
// failing session's problem (its read loop will notice), not the caller's.
func (m *SessionManager) Broadcast(event Event) {
	for _, s := range m.snapshot() {
		if err := s.send(event); err != nil {
			log.Printf("[WS] Broadcast to user %s failed: %v", s.userID, err)
		}
	}
}

// BroadcastLeaderboard pushes the current top-10 to every live session.
func (m *SessionManager) BroadcastLeaderboard() {
	entries, err := m.game.Leaderboard(10)
	if err != nil {
		log.Printf("[WS] Leaderboard query failed: %v", err)
		return
	}
	m.Broadcast(Event{Type: EventLeaderboardUpdate, Data: entries})
}

// PingAll writes a ping frame to every session and drops the ones whose
// transport is gone. Returns how many were dropped.
func (m *SessionManager) PingAll() int {
	dropped := 0
	for _, s := range m.snapshot() {
		s.mu.Lock()
		err := s.conn.WriteMessage(websocket.PingMessage, nil)
		s.mu.Unlock()
		if err != nil {
			s.conn.Close()
			m.Deregister(s.userID, s.conn)
			dropped++
		}
	}
	return dropped
}

// HandleMessage dispatches one inbound frame for userID. A returned error
// means the session is beyond saving and must be disconnected; handled game
// outcomes (insufficient funds, unknown item, unknown command kind) are
// answered in-band and return nil.
func (m *SessionManager) HandleMessage(userID string, raw []byte) error {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return fmt.Errorf("malformed frame from user %s: %w", userID, err)
	}

	switch cmd.Type {
	case CommandClick:
		earned, p, err := m.game.ProcessClick(userID)
		if err != nil {
			return err
		}
		return m.SendToUser(userID, Event{Type: EventClickResult, Data: map[string]interface{}{
			"points_earned":   earned,
			"new_total":       p.Points,
			"lifetime_points": p.LifetimePoints,
			"clicks":          p.Clicks,
		}})

	case CommandBuyItem:
		result, err := m.game.PurchaseItem(userID, cmd.ItemID)
		if errors.Is(err, ErrItemNotFound) {
			return m.SendToUser(userID, Event{Type: EventPurchaseResult, Data: map[string]interface{}{
				"success": false,
				"message": "Item not found",
			}})
		}
		if err != nil {
			return err
		}
		if err := m.SendToUser(userID, Event{Type: EventPurchaseResult, Data: result}); err != nil {
			return err
		}
		// Purchases only move spendable points, not lifetime points, so this
		// push is conservative. Cheap enough to keep.
		if result.Success {
			m.BroadcastLeaderboard()
		}
		return nil

	case CommandGetState:
		p, err := m.game.GetState(userID)
		if err != nil {
			return err
		}
		return m.SendToUser(userID, Event{Type: EventGameState, Data: p.GameState()})

	case CommandGetItems:
		items, err := m.game.CalculatedItems(userID)
		if err != nil {
			return err
		}
		return m.SendToUser(userID, Event{Type: EventItemsList, Data: items})

	default:
		return m.SendToUser(userID, Event{Type: EventError, Data: map[string]interface{}{
			"message": fmt.Sprintf("unknown command type %q", cmd.Type),
		}})
	}
}
