package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/carsim/game/engine"
)

var (
	ErrConfigNotFound  = errors.New("configuration not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")

	// ErrSimulationStarted is returned when a session can no longer accept cars
	ErrSimulationStarted = engine.ErrSimulationStarted
)

// SimulationService defines all simulation operations
type SimulationService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	CreateFieldSession(ctx context.Context, width, height int) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Simulation Operations
	AddCar(ctx context.Context, sessionID string, car engine.CarConfig) (*AddCarResult, error)
	Step(ctx context.Context, sessionID string) (*StepResult, error)
	Run(ctx context.Context, sessionID string, maxRounds int) (*RunSummary, error)
	Reset(ctx context.Context, sessionID string) (*engine.SimState, error)
	Simulate(ctx context.Context, scenario *engine.ScenarioConfig) (*SimulateResult, error)

	// Simulation State
	GetState(ctx context.Context, sessionID string) (*engine.SimState, error)
	GetRoundHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.ScenarioConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.ScenarioConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.ScenarioConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, configID string, config *engine.ScenarioConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles scenario loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.ScenarioConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.ScenarioConfig
	SaveConfig(name string, config *engine.ScenarioConfig) error
}

// Session represents an active simulation session.
// ConfigID is the scenario file the session was created from, empty for ad-hoc fields.
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.SimEngine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Scenario returns the scenario the session engine runs, including cars added since creation
func (s *Session) Scenario() *engine.ScenarioConfig {
	return s.Engine.GetConfig()
}
