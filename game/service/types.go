package service

import (
	"time"

	"github.com/wricardo/mcp-training/carsim/game/engine"
)

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID             string                 `json:"id"`
	ConfigName     string                 `json:"config_name"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessedAt time.Time              `json:"last_accessed_at"`
	State          *engine.SimState       `json:"state"`
	Scenario       *engine.ScenarioConfig `json:"scenario"`
}

// AddCarResult contains the outcome of adding a car to a session
type AddCarResult struct {
	Car   *engine.Car      `json:"car"`
	Entry string           `json:"entry"` // "- A, (1,2) N, FFRFFFFRRL"
	State *engine.SimState `json:"state"`
}

// StepResult contains the result of executing a single round
type StepResult struct {
	Executed bool                `json:"executed"`
	Round    *engine.RoundRecord `json:"round,omitempty"`
	State    *engine.SimState    `json:"state"`
	Events   []SimEvent          `json:"events,omitempty"`
	Message  string              `json:"message"`
}

// RunSummary contains the result of running a session (or part of it)
type RunSummary struct {
	RunID          string           `json:"run_id"`
	RoundsExecuted int              `json:"rounds_executed"`
	Truncated      bool             `json:"truncated,omitempty"` // stopped at the requested round limit
	Result         engine.RunResult `json:"result"`
	Report         []string         `json:"report"`
	Collisions     int              `json:"collisions"`
	BlockedMoves   int              `json:"blocked_moves"`
	State          *engine.SimState `json:"state"`
	Events         []SimEvent       `json:"events,omitempty"`
}

// SimulateResult is returned by a stateless simulation of a scenario
type SimulateResult struct {
	RunID     string           `json:"run_id"`
	Scenario  string           `json:"scenario"`
	Cars      []string         `json:"cars"`
	Result    engine.RunResult `json:"result"`
	Report    []string         `json:"report"`
	FieldView []string         `json:"field_view,omitempty"`
}

// SimEvent represents something that happened while a session advanced
type SimEvent struct {
	Type      string           `json:"type"` // "round", "collision", "blocked", "finished", "reset", "car_added"
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Round     int              `json:"round,omitempty"`
	Position  *engine.Position `json:"position,omitempty"`
	Cars      []string         `json:"cars,omitempty"`
}

// HistoryOptions configures round history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated round history
type HistoryResponse struct {
	Rounds      []engine.RoundRecord `json:"rounds"`
	TotalRounds int                  `json:"total_rounds"`
	Page        int                  `json:"page"`
	PageSize    int                  `json:"page_size"`
	TotalPages  int                  `json:"total_pages"`
	HasNext     bool                 `json:"has_next"`
	HasPrevious bool                 `json:"has_previous"`
}

// ConfigInfo provides information about a scenario file
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Cars        int    `json:"cars"`
}
