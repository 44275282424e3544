package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testState(round int, cars ...*Car) *SimState {
	return &SimState{
		ConfigName: "collision",
		Field:      Field{Width: 10, Height: 10},
		Cars:       cars,
		Round:      round,
		Started:    round > 0,
	}
}

func TestSessionView_ApplyAnimatesMoves(t *testing.T) {
	view := NewSessionView("ab12")
	start := time.Now()

	view.Apply(testState(0, &Car{Name: "A", Position: Position{X: 1, Y: 2}, Heading: "N"}), start)

	car := &Car{Name: "A", Position: Position{X: 1, Y: 3}, Heading: "N"}
	view.Apply(testState(1, car), start)

	x, y := view.DisplayPosition(car, start)
	if x != 1 || y != 2 {
		t.Errorf("Expected animation to start at (1,2), got (%v,%v)", x, y)
	}

	x, y = view.DisplayPosition(car, start.Add(animationDuration/2))
	if x != 1 || y != 2.5 {
		t.Errorf("Expected halfway point (1,2.5), got (%v,%v)", x, y)
	}

	x, y = view.DisplayPosition(car, start.Add(time.Second))
	if x != 1 || y != 3 {
		t.Errorf("Expected animation to end at (1,3), got (%v,%v)", x, y)
	}
}

func TestSessionView_NewCarDoesNotAnimate(t *testing.T) {
	view := NewSessionView("ab12")
	now := time.Now()

	car := &Car{Name: "B", Position: Position{X: 7, Y: 8}}
	view.Apply(testState(0, car), now)

	if x, y := view.DisplayPosition(car, now); x != 7 || y != 8 {
		t.Errorf("Expected (7,8), got (%v,%v)", x, y)
	}
	if x, y := view.DisplayPosition(&Car{Name: "unknown", Position: Position{X: 3, Y: 4}}, now); x != 3 || y != 4 {
		t.Errorf("Expected cars missing from the view at their cell, got (%v,%v)", x, y)
	}
}

func TestSessionView_CrashAnimation(t *testing.T) {
	view := NewSessionView("ab12")
	start := time.Now()

	view.Apply(testState(6, &Car{Name: "A"}, &Car{Name: "B"}), start)
	if _, crashing := view.CrashProgress("A", start); crashing {
		t.Error("No crash expected before the collision")
	}

	view.Apply(testState(7,
		&Car{Name: "A", Collided: true},
		&Car{Name: "B", Collided: true},
	), start)

	progress, crashing := view.CrashProgress("A", start.Add(crashDuration/4))
	if !crashing || progress != 0.25 {
		t.Errorf("Expected crash at 0.25, got %v (crashing=%v)", progress, crashing)
	}
	if _, crashing := view.CrashProgress("A", start.Add(crashDuration)); crashing {
		t.Error("Crash animation must end after its duration")
	}

	// A later state with the same wreck does not restart the animation
	later := start.Add(time.Second)
	view.Apply(testState(8, &Car{Name: "A", Collided: true}, &Car{Name: "B", Collided: true}), later)
	if _, crashing := view.CrashProgress("A", later); crashing {
		t.Error("Crash animation must not restart for an old collision")
	}

	// Reset clears the wreck
	view.Apply(testState(0, &Car{Name: "A"}, &Car{Name: "B"}), later)
	view.Apply(testState(1, &Car{Name: "A", Collided: true}), later)
	if _, crashing := view.CrashProgress("A", later); !crashing {
		t.Error("A new collision after a reset must animate again")
	}
}

func TestSessionView_ApplyNil(t *testing.T) {
	view := NewSessionView("ab12")
	view.Apply(nil, time.Now())

	if view.State() != nil {
		t.Error("Expected nil state")
	}
	if !view.Stale(time.Now(), time.Hour) {
		t.Error("A view without state is always stale")
	}
}

func TestStatusLine(t *testing.T) {
	if got := StatusLine(nil); got != "loading..." {
		t.Errorf("Expected loading..., got %q", got)
	}

	state := testState(7, &Car{Name: "A", Collided: true}, &Car{Name: "B", Collided: true})
	state.Finished = true
	expected := "collision 10x10 R:7 CARS:2 HIT:2 FINISHED"
	if got := StatusLine(state); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}

	if got := StatusLine(testState(0)); !strings.HasSuffix(got, "READY") {
		t.Errorf("Expected READY, got %q", got)
	}
	if got := StatusLine(testState(2)); !strings.HasSuffix(got, "RUNNING") {
		t.Errorf("Expected RUNNING, got %q", got)
	}
}

func TestNextConfig(t *testing.T) {
	configs := []ConfigListItem{{ConfigID: "classic"}, {ConfigID: "collision"}}

	steps := []string{"classic", "collision", "", "classic"}
	current := ""
	for _, expected := range steps {
		current = nextConfig(configs, current)
		if current != expected {
			t.Fatalf("Expected %q, got %q", expected, current)
		}
	}

	if got := nextConfig(nil, ""); got != "" {
		t.Errorf("Expected empty config without scenarios, got %q", got)
	}
}

func TestCellLayout(t *testing.T) {
	field := Field{Width: 10, Height: 10}
	size := cellSize(field)
	if size != maxCellSize {
		t.Errorf("Expected %d, got %d", maxCellSize, size)
	}

	// North is drawn at the top
	_, top := cellOrigin(field, size, 0, 9)
	_, bottom := cellOrigin(field, size, 0, 0)
	if top != headerHeight || bottom != headerHeight+9*float64(size) {
		t.Errorf("Unexpected rows: top=%v bottom=%v", top, bottom)
	}

	if got := cellSize(Field{Width: 1000, Height: 1000}); got != minCellSize {
		t.Errorf("Expected minimum cell size, got %d", got)
	}
	if got := cellSize(Field{Width: 100, Height: 5}); got != screenWidth/100 {
		t.Errorf("Expected width-bound cell size, got %d", got)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/api/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["config_id"] == "missing" {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "config not found"})
				return
			}
			writeJSON(w, http.StatusCreated, map[string]string{"id": "ab12"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": []map[string]interface{}{{"id": "ab12", "config_name": "collision"}},
		})
	})
	mux.HandleFunc("/api/configs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"config_id": "collision", "name": "collision", "width": 10, "height": 10, "cars": 2},
		})
	})
	mux.HandleFunc("/api/sessions/ab12/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, testState(3, &Car{Name: "A", Position: Position{X: 1, Y: 4}, Heading: "N"}))
	})
	mux.HandleFunc("/api/sessions/ab12/step", func(w http.ResponseWriter, r *http.Request) {
		state := testState(4)
		state.Message = "Round 4 complete"
		writeJSON(w, http.StatusOK, map[string]interface{}{"executed": true, "state": state})
	})
	mux.HandleFunc("/api/sessions/ab12/reset", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Simulation reset successfully"})
	})

	upgrader := websocket.Upgrader{}
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("session") != "ab12" {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(WSMessage{SessionID: "ab12", Event: "round", State: testState(5)})
		// Keep the connection open until the client goes away
		conn.ReadMessage()
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestAPIClient(t *testing.T) {
	server := newTestServer(t)
	client := NewAPIClient(server.URL + "/")

	sessions, err := client.ListSessions()
	if err != nil || len(sessions) != 1 || sessions[0].ID != "ab12" {
		t.Fatalf("Unexpected sessions %v: %v", sessions, err)
	}

	configs, err := client.ListConfigs()
	if err != nil || len(configs) != 1 || configs[0].ConfigID != "collision" || configs[0].Cars != 2 {
		t.Fatalf("Unexpected configs %v: %v", configs, err)
	}

	id, err := client.CreateSession("collision")
	if err != nil || id != "ab12" {
		t.Fatalf("Expected session ab12, got %q: %v", id, err)
	}
	if _, err := client.CreateSession("missing"); err == nil || err.Error() != "config not found" {
		t.Errorf("Expected API error message, got %v", err)
	}

	state, err := client.FetchState("ab12")
	if err != nil {
		t.Fatalf("FetchState failed: %v", err)
	}
	if state.Round != 3 || len(state.Cars) != 1 || state.Cars[0].Heading != "N" {
		t.Errorf("Unexpected state: %+v", state)
	}

	state, err = client.Action("ab12", "step")
	if err != nil || state.Round != 4 || state.Message != "Round 4 complete" {
		t.Errorf("Unexpected step result %+v: %v", state, err)
	}

	// Responses without a state fall back to fetching it
	state, err = client.Action("ab12", "reset")
	if err != nil || state.Round != 3 {
		t.Errorf("Unexpected reset result %+v: %v", state, err)
	}

	if _, err := client.Action("ab12", "jump"); err == nil {
		t.Error("Expected error for unknown action")
	}
	if _, err := client.FetchState("zz99"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Expected status error for unknown session, got %v", err)
	}
}

func TestAPIClient_WebSocketURL(t *testing.T) {
	tests := []struct {
		base     string
		expected string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws?session=ab12"},
		{"https://example.ngrok.app/", "wss://example.ngrok.app/ws?session=ab12"},
		{"http://host/prefix", "ws://host/prefix/ws?session=ab12"},
	}

	for _, tt := range tests {
		got, err := NewAPIClient(tt.base).WebSocketURL("ab12")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got != tt.expected {
			t.Errorf("WebSocketURL(%q) = %q, expected %q", tt.base, got, tt.expected)
		}
	}
}

func TestAPIClient_Watch(t *testing.T) {
	server := newTestServer(t)
	client := NewAPIClient(server.URL)

	view := NewSessionView("ab12")
	if err := client.Watch(view); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if !view.Connected() {
		t.Error("Expected view to be connected")
	}

	deadline := time.Now().Add(2 * time.Second)
	for view.State() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if state := view.State(); state == nil || state.Round != 5 {
		t.Fatalf("Expected pushed state at round 5, got %+v", state)
	}

	if err := client.Watch(NewSessionView("zz99")); err == nil {
		t.Error("Expected dial error for unknown session")
	}
}
