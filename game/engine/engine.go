package engine

import "fmt"

// Engine provides the main interface for simulation operations
type Engine interface {
	// Simulation state
	GetState() *SimState
	Reset() *SimState
	IsStarted() bool
	IsFinished() bool
	GetRound() int

	// Car management
	AddCar(car CarConfig) (*Car, error)
	GetCars() []*Car

	// Execution
	Step() (*RoundRecord, bool)
	Run() RunResult
	Advance(rounds int) int
	Result() RunResult

	// Configuration
	GetConfig() *ScenarioConfig
	GetField() Field

	// History
	GetHistory() []RoundRecord
	GetLastRound() *RoundRecord
}

// Run advances every eligible car one command per round until no car is eligible,
// then returns one report per car in insertion order. Cars are mutated in place.
func Run(field Field, cars []*Car) RunResult {
	round := 0
	for anyEligible(cars) {
		round++
		stepRound(field, cars, round)
	}
	return buildResult(cars, round)
}

// stepRound executes one command for every eligible car, in order, and then runs
// collision detection on the resulting positions.
func stepRound(field Field, cars []*Car, round int) RoundRecord {
	record := RoundRecord{Round: round}

	for _, car := range cars {
		if move, ok := car.ExecuteOne(field); ok {
			record.Moves = append(record.Moves, move)
		}
	}

	record.Collisions = detectCollisions(cars, round)
	return record
}

// detectCollisions groups cars that have not collided yet by position. Every group
// of two or more becomes a collision at this round. Groups are reported in the order
// their first car appears.
func detectCollisions(cars []*Car, round int) []CollisionGroup {
	groups := make(map[Position][]*Car)
	var order []Position

	for _, car := range cars {
		if car.Collided {
			continue
		}
		if _, seen := groups[car.Position]; !seen {
			order = append(order, car.Position)
		}
		groups[car.Position] = append(groups[car.Position], car)
	}

	var collisions []CollisionGroup
	for _, pos := range order {
		members := groups[pos]
		if len(members) < 2 {
			continue
		}

		names := make([]string, len(members))
		for i, car := range members {
			names[i] = car.Name
		}

		for _, car := range members {
			partners := make([]string, 0, len(members)-1)
			for _, name := range names {
				if name != car.Name {
					partners = append(partners, name)
				}
			}
			car.Collided = true
			car.Collision = &Collision{Step: round, Position: pos, Partners: partners}
		}

		collisions = append(collisions, CollisionGroup{Position: pos, Cars: names})
	}

	return collisions
}

func anyEligible(cars []*Car) bool {
	for _, car := range cars {
		if car.Eligible() {
			return true
		}
	}
	return false
}

func buildResult(cars []*Car, rounds int) RunResult {
	reports := make([]CarReport, len(cars))
	for i, car := range cars {
		reports[i] = car.Report()
	}
	return RunResult{Rounds: rounds, Reports: reports}
}

// SimEngine implements the Engine interface on top of a scenario
type SimEngine struct {
	config  *ScenarioConfig
	field   Field
	sim     *Simulation
	round   int
	history []RoundRecord
}

// NewEngine creates a new simulation engine from the provided scenario.
// The engine keeps its own copy of the scenario.
func NewEngine(config *ScenarioConfig) (*SimEngine, error) {
	sim, err := BuildSimulation(config)
	if err != nil {
		return nil, err
	}

	return &SimEngine{
		config: CloneScenario(config),
		field:  sim.Field(),
		sim:    sim,
	}, nil
}

// NewEngineWithDefaults creates an engine on the default empty field
func NewEngineWithDefaults() *SimEngine {
	eng, _ := NewEngine(DefaultScenario())
	return eng
}

// GetState returns a snapshot of the current simulation state
func (e *SimEngine) GetState() *SimState {
	cars := make([]*Car, len(e.sim.Cars()))
	for i, car := range e.sim.Cars() {
		cars[i] = car.clone()
	}

	state := &SimState{
		ConfigName: e.config.Name,
		Field:      e.field,
		Cars:       cars,
		Round:      e.round,
		Started:    e.IsStarted(),
		Finished:   e.IsFinished(),
		Message:    e.statusMessage(),
		LastRound:  e.GetLastRound(),
	}
	if e.field.Width <= MaxRenderSize && e.field.Height <= MaxRenderSize {
		state.FieldView = RenderField(e.field, cars)
	}
	return state
}

// Reset puts every car back at its starting position with a full command queue.
// Cars added since the engine was created are kept. e.config only ever holds
// validated cars, so a rebuild failure is a programming error and panics.
func (e *SimEngine) Reset() *SimState {
	sim, err := BuildSimulation(e.config)
	if err != nil {
		panic(fmt.Sprintf("engine: rebuilding validated scenario %q: %v", e.config.Name, err))
	}
	e.sim = sim
	e.round = 0
	e.history = nil
	return e.GetState()
}

// IsStarted returns whether at least one round has been executed
func (e *SimEngine) IsStarted() bool {
	return e.round > 0
}

// IsFinished returns whether no car can execute another command
func (e *SimEngine) IsFinished() bool {
	return !anyEligible(e.sim.Cars())
}

// GetRound returns the number of rounds executed so far
func (e *SimEngine) GetRound() int {
	return e.round
}

// AddCar validates and appends a car. Cars can only be added before the first round.
func (e *SimEngine) AddCar(car CarConfig) (*Car, error) {
	if e.IsStarted() {
		return nil, ErrSimulationStarted
	}

	added, err := e.sim.AddCar(car.Name, car.X, car.Y, car.Direction, car.Commands)
	if err != nil {
		return nil, err
	}

	car.Name = added.Name
	e.config.Cars = append(e.config.Cars, car)
	return added.clone(), nil
}

// GetCars returns snapshots of the cars in insertion order
func (e *SimEngine) GetCars() []*Car {
	return e.GetState().Cars
}

// Step executes a single round. It returns false when the simulation had already finished.
func (e *SimEngine) Step() (*RoundRecord, bool) {
	if e.IsFinished() {
		return nil, false
	}

	e.round++
	record := stepRound(e.field, e.sim.Cars(), e.round)
	e.history = append(e.history, record)
	return &record, true
}

// Run executes rounds until the simulation finishes and returns the final reports
func (e *SimEngine) Run() RunResult {
	for {
		if _, ok := e.Step(); !ok {
			break
		}
	}
	return e.Result()
}

// Advance executes up to n rounds and returns how many were executed
func (e *SimEngine) Advance(rounds int) int {
	executed := 0
	for executed < rounds {
		if _, ok := e.Step(); !ok {
			break
		}
		executed++
	}
	return executed
}

// Result returns the per-car reports for the current state
func (e *SimEngine) Result() RunResult {
	return buildResult(e.sim.Cars(), e.round)
}

// GetConfig returns the scenario the engine was built from, including added cars
func (e *SimEngine) GetConfig() *ScenarioConfig {
	return e.config
}

// GetField returns the simulation field
func (e *SimEngine) GetField() Field {
	return e.field
}

// GetHistory returns the record of every executed round
func (e *SimEngine) GetHistory() []RoundRecord {
	return e.history
}

// GetLastRound returns the last executed round, or nil if none
func (e *SimEngine) GetLastRound() *RoundRecord {
	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1]
	return &last
}

func (e *SimEngine) statusMessage() string {
	cars := e.sim.Cars()
	switch {
	case len(cars) == 0:
		return fmt.Sprintf("Field %d x %d is empty, add a car to begin", e.field.Width, e.field.Height)
	case !e.IsStarted() && e.IsFinished():
		return "No car has commands to execute"
	case !e.IsStarted():
		return fmt.Sprintf("%d car(s) ready", len(cars))
	case e.IsFinished():
		return fmt.Sprintf("Simulation finished after %d round(s), %d car(s) collided", e.round, CountCollided(cars))
	default:
		return fmt.Sprintf("Round %d complete, %d car(s) still moving", e.round, CountEligible(cars))
	}
}
