package session

import (
	"time"

	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// A session is restored by rebuilding its scenario and replaying Rounds rounds;
// State is kept for readers of the file and is not used when loading.
type PersistedSessionData struct {
	ID             string                 `json:"id"`
	ConfigID       string                 `json:"config_id,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	LastAccessedAt time.Time              `json:"last_accessed_at"`
	Scenario       *engine.ScenarioConfig `json:"scenario"`
	Rounds         int                    `json:"rounds"`
	State          *engine.SimState       `json:"state,omitempty"`
}
