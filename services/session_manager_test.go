package services

import (
	"encoding/json"
	"sync"
	"testing"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	fail   bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errConnGone
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var errConnGone = &closedConnError{}

type closedConnError struct{}

func (*closedConnError) Error() string { return "connection gone" }

type recordedEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (f *fakeConn) events(t *testing.T) []recordedEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedEvent, 0, len(f.frames))
	for _, raw := range f.frames {
		var ev recordedEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("undecodable frame %q: %v", raw, err)
		}
		out = append(out, ev)
	}
	return out
}

func (f *fakeConn) lastEvent(t *testing.T) recordedEvent {
	t.Helper()
	events := f.events(t)
	if len(events) == 0 {
		t.Fatal("expected at least one frame")
	}
	return events[len(events)-1]
}

func newTestSessions(t *testing.T) (*SessionManager, *GameService) {
	t.Helper()
	gs := newTestGame(t)
	return NewSessionManager(gs), gs
}

func TestRegisterReplacesAndClosesOldConnection(t *testing.T) {
	sm, _ := newTestSessions(t)

	first := &fakeConn{}
	second := &fakeConn{}

	sm.Register("user-1", first)
	sm.Register("user-1", second)

	if !first.closed {
		t.Fatal("expected the displaced connection to be force-closed")
	}
	if second.closed {
		t.Fatal("replacement connection must stay open")
	}
	if sm.ActiveCount() != 1 {
		t.Fatalf("expected one live session, got %d", sm.ActiveCount())
	}

	// The displaced connection unwinding its read loop must not evict the
	// replacement.
	sm.Deregister("user-1", first)
	if sm.ActiveCount() != 1 {
		t.Fatal("stale deregister removed the live replacement")
	}

	sm.Deregister("user-1", second)
	if sm.ActiveCount() != 0 {
		t.Fatalf("expected empty registry, got %d", sm.ActiveCount())
	}
}

func TestBroadcastReachesAllSessions(t *testing.T) {
	sm, _ := newTestSessions(t)

	conns := []*fakeConn{{}, {}, {}}
	for i, c := range conns {
		sm.Register(string(rune('a'+i)), c)
	}

	sm.Broadcast(Event{Type: EventLeaderboardUpdate, Data: []int{}})

	for i, c := range conns {
		if got := c.lastEvent(t).Type; got != EventLeaderboardUpdate {
			t.Fatalf("conn %d: expected leaderboard_update, got %q", i, got)
		}
	}
}

func TestHandleMessageClick(t *testing.T) {
	sm, gs := newTestSessions(t)
	if _, err := gs.EnsurePlayer("user-1", "alice"); err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	conn := &fakeConn{}
	sm.Register("user-1", conn)

	if err := sm.HandleMessage("user-1", []byte(`{"type":"click"}`)); err != nil {
		t.Fatalf("handle click: %v", err)
	}

	ev := conn.lastEvent(t)
	if ev.Type != EventClickResult {
		t.Fatalf("expected click_result, got %q", ev.Type)
	}
	var payload struct {
		NewTotal int64 `json:"new_total"`
		Clicks   int64 `json:"clicks"`
	}
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatalf("decode click result: %v", err)
	}
	if payload.NewTotal != 1 || payload.Clicks != 1 {
		t.Fatalf("expected total=1 clicks=1, got %d/%d", payload.NewTotal, payload.Clicks)
	}
}

func TestHandleMessageGetStateAndItems(t *testing.T) {
	sm, gs := newTestSessions(t)
	if _, err := gs.EnsurePlayer("user-1", "alice"); err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	seedItem(t, gs.DB, "Cursor", 10, 1.0, 0)
	conn := &fakeConn{}
	sm.Register("user-1", conn)

	if err := sm.HandleMessage("user-1", []byte(`{"type":"get_state"}`)); err != nil {
		t.Fatalf("handle get_state: %v", err)
	}
	if got := conn.lastEvent(t).Type; got != EventGameState {
		t.Fatalf("expected game_state, got %q", got)
	}

	if err := sm.HandleMessage("user-1", []byte(`{"type":"get_items"}`)); err != nil {
		t.Fatalf("handle get_items: %v", err)
	}
	ev := conn.lastEvent(t)
	if ev.Type != EventItemsList {
		t.Fatalf("expected items_list, got %q", ev.Type)
	}
	var items []struct {
		Name        string `json:"name"`
		CurrentCost int64  `json:"current_cost"`
	}
	if err := json.Unmarshal(ev.Data, &items); err != nil {
		t.Fatalf("decode items list: %v", err)
	}
	if len(items) != 1 || items[0].CurrentCost != 10 {
		t.Fatalf("expected one item at base cost, got %+v", items)
	}
}

func TestHandleMessageBuyItemBroadcastsLeaderboard(t *testing.T) {
	sm, gs := newTestSessions(t)
	buyer, _ := gs.EnsurePlayer("buyer", "alice")
	gs.DB.Model(buyer).Update("points", 100)
	if _, err := gs.EnsurePlayer("watcher", "bob"); err != nil {
		t.Fatalf("ensure watcher: %v", err)
	}
	item := seedItem(t, gs.DB, "Auto Clicker", 10, 0, 0.1)

	buyerConn := &fakeConn{}
	watcherConn := &fakeConn{}
	sm.Register("buyer", buyerConn)
	sm.Register("watcher", watcherConn)

	if err := sm.HandleMessage("buyer", []byte(`{"type":"buy_item","item_id":"`+item.ID+`"}`)); err != nil {
		t.Fatalf("handle buy_item: %v", err)
	}

	var sawPurchase bool
	for _, ev := range buyerConn.events(t) {
		if ev.Type == EventPurchaseResult {
			sawPurchase = true
			var result struct {
				Success   bool   `json:"success"`
				NewPoints *int64 `json:"new_points"`
			}
			if err := json.Unmarshal(ev.Data, &result); err != nil {
				t.Fatalf("decode purchase result: %v", err)
			}
			if !result.Success || *result.NewPoints != 90 {
				t.Fatalf("expected successful purchase at 90 points, got %+v", result)
			}
		}
	}
	if !sawPurchase {
		t.Fatal("buyer never received a purchase_result frame")
	}

	// A successful purchase pushes the leaderboard to everyone, not just the
	// buyer.
	if got := watcherConn.lastEvent(t).Type; got != EventLeaderboardUpdate {
		t.Fatalf("expected watcher to receive leaderboard_update, got %q", got)
	}
}

func TestHandleMessageBuyUnknownItem(t *testing.T) {
	sm, gs := newTestSessions(t)
	if _, err := gs.EnsurePlayer("user-1", "alice"); err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	conn := &fakeConn{}
	sm.Register("user-1", conn)

	if err := sm.HandleMessage("user-1", []byte(`{"type":"buy_item","item_id":"missing"}`)); err != nil {
		t.Fatalf("unknown item must stay in-band, got %v", err)
	}

	ev := conn.lastEvent(t)
	if ev.Type != EventPurchaseResult {
		t.Fatalf("expected purchase_result, got %q", ev.Type)
	}
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(ev.Data, &result); err != nil {
		t.Fatalf("decode purchase result: %v", err)
	}
	if result.Success || result.Message != "Item not found" {
		t.Fatalf("expected item-not-found failure, got %+v", result)
	}
}

func TestHandleMessageUnknownKind(t *testing.T) {
	sm, gs := newTestSessions(t)
	if _, err := gs.EnsurePlayer("user-1", "alice"); err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	conn := &fakeConn{}
	sm.Register("user-1", conn)

	if err := sm.HandleMessage("user-1", []byte(`{"type":"prestige"}`)); err != nil {
		t.Fatalf("unknown kinds are answered, not fatal: %v", err)
	}
	if got := conn.lastEvent(t).Type; got != EventError {
		t.Fatalf("expected error frame for unknown kind, got %q", got)
	}
}

func TestHandleMessageMalformedFrameIsFatal(t *testing.T) {
	sm, gs := newTestSessions(t)
	if _, err := gs.EnsurePlayer("user-1", "alice"); err != nil {
		t.Fatalf("ensure player: %v", err)
	}
	sm.Register("user-1", &fakeConn{})

	if err := sm.HandleMessage("user-1", []byte(`{not json`)); err == nil {
		t.Fatal("expected a fatal error for a malformed frame")
	}
}

func TestPingAllDropsDeadSessions(t *testing.T) {
	sm, _ := newTestSessions(t)

	alive := &fakeConn{}
	dead := &fakeConn{fail: true}
	sm.Register("alive", alive)
	sm.Register("dead", dead)

	if dropped := sm.PingAll(); dropped != 1 {
		t.Fatalf("expected 1 dropped session, got %d", dropped)
	}
	if sm.ActiveCount() != 1 {
		t.Fatalf("expected 1 surviving session, got %d", sm.ActiveCount())
	}
	if !dead.closed {
		t.Fatal("expected the dead connection to be closed")
	}
}
