package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Position is a cell on the field. North increases y.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Field holds the field dimensions
type Field struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Collision describes where and with whom a car collided
type Collision struct {
	Step     int      `json:"step"`
	Position Position `json:"position"`
	Partners []string `json:"partners"`
}

// Car is a car as reported by the simulation server
type Car struct {
	Name      string     `json:"name"`
	Position  Position   `json:"position"`
	Heading   string     `json:"heading"`
	Commands  string     `json:"commands"`
	Cursor    int        `json:"cursor"`
	Collided  bool       `json:"collided"`
	Collision *Collision `json:"collision,omitempty"`
}

// SimState represents the state pushed by the simulation server
type SimState struct {
	ConfigName string `json:"config_name"`
	Field      Field  `json:"field"`
	Cars       []*Car `json:"cars"`
	Round      int    `json:"round"`
	Started    bool   `json:"started"`
	Finished   bool   `json:"finished"`
	Message    string `json:"message"`
}

// WSMessage represents WebSocket message wrapper
type WSMessage struct {
	SessionID string    `json:"session_id"`
	State     *SimState `json:"state,omitempty"`
	Event     string    `json:"event,omitempty"`
}

// SessionListItem represents a session from the server
type SessionListItem struct {
	ID         string    `json:"id"`
	ConfigName string    `json:"config_name"`
	State      *SimState `json:"state"`
}

// ConfigListItem represents a scenario the server can start sessions from
type ConfigListItem struct {
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Cars        int    `json:"cars"`
}

// SessionView holds the latest state of one watched session and the
// animation bookkeeping derived from consecutive states
type SessionView struct {
	mu         sync.RWMutex
	sessionID  string
	state      *SimState
	wsConn     *websocket.Conn
	lastUpdate time.Time

	prevPos       map[string]Position  // position before the latest update
	moveStartTime time.Time            // when the latest update arrived
	crashTime     map[string]time.Time // when each car was first seen collided
}

// NewSessionView creates an empty view for a session
func NewSessionView(sessionID string) *SessionView {
	return &SessionView{
		sessionID: sessionID,
		prevPos:   make(map[string]Position),
		crashTime: make(map[string]time.Time),
	}
}

// Apply stores a new state. Cars that moved start a move animation and cars
// that collided since the previous state start a crash animation.
func (v *SessionView) Apply(state *SimState, now time.Time) {
	if state == nil {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	prev := make(map[string]*Car)
	if v.state != nil {
		for _, car := range v.state.Cars {
			prev[car.Name] = car
		}
	}

	v.prevPos = make(map[string]Position, len(state.Cars))
	for _, car := range state.Cars {
		old, seen := prev[car.Name]
		v.prevPos[car.Name] = car.Position
		if seen {
			v.prevPos[car.Name] = old.Position
		}

		if car.Collided && (!seen || !old.Collided) {
			v.crashTime[car.Name] = now
		}
		if !car.Collided {
			delete(v.crashTime, car.Name)
		}
	}

	v.state = state
	v.moveStartTime = now
	v.lastUpdate = now
}

// State returns the latest state, or nil before the first update
func (v *SessionView) State() *SimState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// DisplayPosition interpolates a car between its previous and current cell
func (v *SessionView) DisplayPosition(car *Car, now time.Time) (float64, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	from, ok := v.prevPos[car.Name]
	if !ok {
		return float64(car.Position.X), float64(car.Position.Y)
	}

	t := animationProgress(now.Sub(v.moveStartTime), animationDuration)
	x := float64(from.X)*(1-t) + float64(car.Position.X)*t
	y := float64(from.Y)*(1-t) + float64(car.Position.Y)*t
	return x, y
}

// CrashProgress reports how far a car's crash animation has run.
// It returns false when the car is not crashing anymore.
func (v *SessionView) CrashProgress(name string, now time.Time) (float64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	start, ok := v.crashTime[name]
	if !ok || now.Sub(start) >= crashDuration {
		return 0, false
	}
	return animationProgress(now.Sub(start), crashDuration), true
}

func animationProgress(elapsed, total time.Duration) float64 {
	if total <= 0 || elapsed >= total {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(total)
}

// StatusLine summarizes a state for the header
func StatusLine(state *SimState) string {
	if state == nil {
		return "loading..."
	}

	collided := 0
	for _, car := range state.Cars {
		if car.Collided {
			collided++
		}
	}

	status := "READY"
	switch {
	case state.Finished:
		status = "FINISHED"
	case state.Started:
		status = "RUNNING"
	}
	return fmt.Sprintf("%s %dx%d R:%d CARS:%d HIT:%d %s",
		state.ConfigName, state.Field.Width, state.Field.Height, state.Round, len(state.Cars), collided, status)
}

// APIClient talks to the simulation server's REST API
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for a server such as http://localhost:8080
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *APIClient) do(method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to parse JSON: %v (body: %s)", err, string(data))
	}
	return nil
}

// ListSessions returns the sessions known to the server
func (c *APIClient) ListSessions() ([]SessionListItem, error) {
	var resp struct {
		Sessions []SessionListItem `json:"sessions"`
	}
	if err := c.do(http.MethodGet, "/api/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// ListConfigs returns the scenarios the server can start sessions from
func (c *APIClient) ListConfigs() ([]ConfigListItem, error) {
	var configs []ConfigListItem
	if err := c.do(http.MethodGet, "/api/configs", nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// CreateSession starts a session from a scenario; an empty config uses the server default
func (c *APIClient) CreateSession(configID string) (string, error) {
	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(http.MethodPost, "/api/sessions", body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// FetchState returns the current state of a session
func (c *APIClient) FetchState(sessionID string) (*SimState, error) {
	var state SimState
	if err := c.do(http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID)+"/state", nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Action sends "step", "run" or "reset" to a session and returns the resulting state
func (c *APIClient) Action(sessionID, action string) (*SimState, error) {
	switch action {
	case "step", "run", "reset":
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}

	var resp struct {
		State *SimState `json:"state"`
	}
	path := "/api/sessions/" + url.PathEscape(sessionID) + "/" + action
	if err := c.do(http.MethodPost, path, map[string]string{}, &resp); err != nil {
		return nil, err
	}
	if resp.State == nil {
		return c.FetchState(sessionID)
	}
	return resp.State, nil
}

// WebSocketURL returns the live update endpoint for a session
func (c *APIClient) WebSocketURL(sessionID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"

	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Watch connects the session's WebSocket and applies every pushed state
// until the connection closes. It returns once the connection is established.
func (c *APIClient) Watch(view *SessionView) error {
	wsURL, err := c.WebSocketURL(view.sessionID)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}

	view.mu.Lock()
	view.wsConn = conn
	view.mu.Unlock()

	go func() {
		defer func() {
			conn.Close()
			view.mu.Lock()
			view.wsConn = nil
			view.mu.Unlock()
		}()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var msg WSMessage
			if err := json.Unmarshal(message, &msg); err != nil || msg.State == nil {
				continue
			}
			view.Apply(msg.State, time.Now())
		}
	}()
	return nil
}

// Connected reports whether live updates are flowing over a WebSocket
func (v *SessionView) Connected() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.wsConn != nil
}

// Stale reports whether a polling view should fetch again
func (v *SessionView) Stale(now time.Time, every time.Duration) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state == nil || now.Sub(v.lastUpdate) > every
}
