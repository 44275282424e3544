package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/logging"
)

var log = logging.New("service")

// simulationServiceImpl implements the SimulationService interface
type simulationServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.RWMutex
}

// NewSimulationService creates a new simulation service instance
func NewSimulationService(sessions SessionManager, configs ConfigManager) SimulationService {
	return &simulationServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// CreateSession creates a new session from a scenario file. An empty name uses the default scenario.
func (s *simulationServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.ScenarioConfig
	if configName != "" {
		loaded, err := s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, fmt.Errorf("config '%s' not found (available: %v): %w", configName, s.configIDs(), err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
		config = loaded
	} else {
		config = s.configs.GetDefault()
		configName = config.Name
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", configName, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info("session created", "id", session.ID, "config", configName, "cars", len(config.Cars))
	return sessionInfo(session), nil
}

// CreateFieldSession creates a session on an empty field of the given size
func (s *simulationServiceImpl) CreateFieldSession(ctx context.Context, width, height int) (*SessionInfo, error) {
	if _, err := engine.NewField(width, height); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	config := &engine.ScenarioConfig{
		Name:  fmt.Sprintf("field-%dx%d", width, height),
		Field: engine.FieldConfig{Width: width, Height: height},
	}

	session, err := s.sessions.Create("", "", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info("session created", "id", session.ID, "width", width, "height", height)
	return sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *simulationServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *simulationServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *simulationServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	log.Info("session deleted", "id", sessionID)
	return nil
}

// AddCar validates and adds a car to a session that has not started yet
func (s *simulationServiceImpl) AddCar(ctx context.Context, sessionID string, car engine.CarConfig) (*AddCarResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	added, err := sess.Engine.AddCar(car)
	if err != nil {
		return nil, err
	}

	s.save(sessionID)
	log.Info("car added", "session", sessionID, "car", added.Name, "position", added.Position, "heading", added.Heading, "commands", added.Commands)

	return &AddCarResult{
		Car:   added,
		Entry: engine.FormatCarEntry(added),
		State: sess.Engine.GetState(),
	}, nil
}

// Step executes a single round for a session
func (s *simulationServiceImpl) Step(ctx context.Context, sessionID string) (*StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	record, ok := sess.Engine.Step()
	state := sess.Engine.GetState()
	if !ok {
		return &StepResult{State: state, Message: state.Message}, nil
	}

	s.save(sessionID)
	logRound(sessionID, record)

	events := roundEvents(record)
	if state.Finished {
		events = append(events, finishedEvent(sess.Engine))
	}

	return &StepResult{
		Executed: true,
		Round:    record,
		State:    state,
		Events:   events,
		Message:  state.Message,
	}, nil
}

// Run executes rounds until the simulation finishes, or until maxRounds rounds ran when maxRounds > 0
func (s *simulationServiceImpl) Run(ctx context.Context, sessionID string, maxRounds int) (*RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{RunID: uuid.NewString()}
	for maxRounds <= 0 || summary.RoundsExecuted < maxRounds {
		if err := ctx.Err(); err != nil {
			break
		}
		record, ok := sess.Engine.Step()
		if !ok {
			break
		}
		summary.RoundsExecuted++
		logRound(sessionID, record)
		for _, event := range roundEvents(record) {
			if event.Type == "collision" {
				summary.Events = append(summary.Events, event)
			}
		}
	}

	if summary.RoundsExecuted > 0 {
		s.save(sessionID)
	}

	summary.State = sess.Engine.GetState()
	summary.Truncated = !summary.State.Finished
	if summary.State.Finished {
		summary.Events = append(summary.Events, finishedEvent(sess.Engine))
	}
	summary.Result = sess.Engine.Result()
	summary.Report = reportLines(summary.Result)
	summary.Collisions = engine.CountCollided(summary.State.Cars)
	summary.BlockedMoves = engine.CountBlockedMoves(sess.Engine.GetHistory())

	log.Info("run complete", "session", sessionID, "run_id", summary.RunID, "rounds", summary.RoundsExecuted,
		"total_rounds", summary.Result.Rounds, "collided", summary.Collisions, "finished", summary.State.Finished)

	return summary, nil
}

// Reset puts every car of a session back at its starting position
func (s *simulationServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.SimState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Engine.Reset()
	s.save(sessionID)
	log.Info("session reset", "session", sessionID)
	return state, nil
}

// Simulate runs a scenario to completion without creating a session
func (s *simulationServiceImpl) Simulate(ctx context.Context, scenario *engine.ScenarioConfig) (*SimulateResult, error) {
	if scenario == nil {
		return nil, fmt.Errorf("%w: scenario is required", ErrInvalidRequest)
	}

	eng, err := engine.NewEngine(scenario)
	if err != nil {
		return nil, err
	}

	entries := make([]string, 0, len(scenario.Cars))
	for _, car := range eng.GetCars() {
		entries = append(entries, engine.FormatCarEntry(car))
	}

	result := eng.Run()
	runID := uuid.NewString()
	log.Info("scenario simulated", "run_id", runID, "scenario", scenario.Name, "rounds", result.Rounds,
		"collided", engine.CountCollided(eng.GetCars()))

	return &SimulateResult{
		RunID:     runID,
		Scenario:  scenario.Name,
		Cars:      entries,
		Result:    result,
		Report:    reportLines(result),
		FieldView: eng.GetState().FieldView,
	}, nil
}

// GetState returns the current state of a session
func (s *simulationServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.SimState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetRoundHistory returns paginated round history for a session
func (s *simulationServiceImpl) GetRoundHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if opts.Order != "" && opts.Order != "asc" && opts.Order != "desc" {
		return nil, fmt.Errorf("%w: order must be 'asc' or 'desc'", ErrInvalidRequest)
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	history := sess.Engine.GetHistory()
	total := len(history)
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	ordered := make([]engine.RoundRecord, total)
	if opts.Order == "desc" {
		for i, round := range history {
			ordered[total-1-i] = round
		}
	} else {
		copy(ordered, history)
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &HistoryResponse{
		Rounds:      ordered[start:end],
		TotalRounds: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available scenarios
func (s *simulationServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific scenario
func (s *simulationServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.ScenarioConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a scenario to disk
func (s *simulationServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.ScenarioConfig) error {
	if configName == "" {
		return fmt.Errorf("%w: config name is required", ErrInvalidRequest)
	}
	return s.configs.SaveConfig(configName, config)
}

// getSession looks up a session and bumps its access time. Callers must hold
// s.mu for writing since readers of sessionInfo only hold the read lock.
func (s *simulationServiceImpl) getSession(sessionID string) (*Session, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return session, nil
}

func (s *simulationServiceImpl) save(sessionID string) {
	if err := s.sessions.Save(sessionID); err != nil {
		log.Warn("failed to persist session", "session", sessionID, "err", err)
	}
}

func (s *simulationServiceImpl) configIDs() []string {
	configs, err := s.configs.ListConfigs()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(configs))
	for _, cfg := range configs {
		ids = append(ids, cfg.ConfigID)
	}
	return ids
}

func sessionInfo(session *Session) *SessionInfo {
	configName := session.ConfigID
	if configName == "" {
		configName = session.Scenario().Name
	}
	return &SessionInfo{
		ID:             session.ID,
		ConfigName:     configName,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		State:          session.Engine.GetState(),
		Scenario:       engine.CloneScenario(session.Scenario()),
	}
}

// roundEvents turns a round record into events: one per collision and one per blocked move
func roundEvents(record *engine.RoundRecord) []SimEvent {
	now := time.Now()
	events := []SimEvent{{
		Type:      "round",
		Message:   fmt.Sprintf("Round %d: %d car(s) moved", record.Round, len(record.Moves)),
		Timestamp: now,
		Round:     record.Round,
	}}

	for _, move := range record.Moves {
		if !move.Blocked {
			continue
		}
		pos := move.From
		events = append(events, SimEvent{
			Type:      "blocked",
			Message:   fmt.Sprintf("Car %s stayed at %s, moving %s would leave the field", move.Car, pos, move.HeadingAfter),
			Timestamp: now,
			Round:     record.Round,
			Position:  &pos,
			Cars:      []string{move.Car},
		})
	}

	for _, collision := range record.Collisions {
		pos := collision.Position
		events = append(events, SimEvent{
			Type:      "collision",
			Message:   fmt.Sprintf("Cars %v collided at %s at step %d", collision.Cars, pos, record.Round),
			Timestamp: now,
			Round:     record.Round,
			Position:  &pos,
			Cars:      collision.Cars,
		})
	}

	return events
}

func finishedEvent(eng *engine.SimEngine) SimEvent {
	return SimEvent{
		Type:      "finished",
		Message:   eng.GetState().Message,
		Timestamp: time.Now(),
		Round:     eng.GetRound(),
	}
}

func reportLines(result engine.RunResult) []string {
	lines := make([]string, len(result.Reports))
	for i, report := range result.Reports {
		lines[i] = engine.FormatReport(report)
	}
	return lines
}

func logRound(sessionID string, record *engine.RoundRecord) {
	log.Debug("round executed", "session", sessionID, "round", record.Round,
		"moved", len(record.Moves), "collisions", len(record.Collisions))
}
