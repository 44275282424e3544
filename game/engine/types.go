package engine

import "fmt"

// Direction represents a car heading
type Direction int

// Directions are declared in clockwise order; Right and Left rely on it.
const (
	North Direction = iota
	East
	South
	West
)

// Command represents a single car instruction
type Command int

const (
	TurnLeft Command = iota
	TurnRight
	Forward
)

const (
	// Validation constants
	MinFieldSize   = 1
	MaxRenderSize  = 60
	DirectionChars = "NESW"
	CommandChars   = "LRF"
)

// Position represents x,y coordinates. North increases y, East increases x.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Field is the bounding box cars move in. It is immutable once created.
type Field struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Program is an ordered list of commands. It serializes as a letter string ("FFRL").
type Program []Command

// Collision records the round a car was taken out and who it hit
type Collision struct {
	Step     int      `json:"step"`
	Position Position `json:"position"`
	Partners []string `json:"partners"`
}

// Car represents a single car taking part in a simulation
type Car struct {
	Name      string     `json:"name"`
	Position  Position   `json:"position"`
	Heading   Direction  `json:"heading"`
	Commands  Program    `json:"commands"`
	Cursor    int        `json:"cursor"`
	Collided  bool       `json:"collided"`
	Collision *Collision `json:"collision,omitempty"`

	// Starting configuration, kept for listings and resets
	InitialPosition Position  `json:"initial_position"`
	InitialHeading  Direction `json:"initial_heading"`
}

// CarMove describes what one car did during a round
type CarMove struct {
	Car           string    `json:"car"`
	Command       Command   `json:"command"`
	From          Position  `json:"from"`
	To            Position  `json:"to"`
	HeadingBefore Direction `json:"heading_before"`
	HeadingAfter  Direction `json:"heading_after"`
	Blocked       bool      `json:"blocked,omitempty"` // forward move discarded at the field edge
}

// CollisionGroup is a set of cars that ended a round on the same cell
type CollisionGroup struct {
	Position Position `json:"position"`
	Cars     []string `json:"cars"`
}

// RoundRecord is the history entry for one round
type RoundRecord struct {
	Round      int              `json:"round"`
	Moves      []CarMove        `json:"moves"`
	Collisions []CollisionGroup `json:"collisions,omitempty"`
}

// CarReport is the final per-car outcome of a run
type CarReport struct {
	Name              string    `json:"name"`
	Position          Position  `json:"position"`
	Heading           Direction `json:"heading"`
	Collided          bool      `json:"collided"`
	CollisionStep     int       `json:"collision_step,omitempty"`
	CollisionPosition *Position `json:"collision_position,omitempty"`
	CollisionPartners []string  `json:"collision_partners,omitempty"`
	CommandsExecuted  int       `json:"commands_executed"`
	CommandsTotal     int       `json:"commands_total"`
}

// RunResult holds one report per car in insertion order
type RunResult struct {
	Rounds  int         `json:"rounds"`
	Reports []CarReport `json:"reports"`
}

// ScenarioConfig is the serializable description of a field and its cars
type ScenarioConfig struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Field       FieldConfig `json:"field" yaml:"field"`
	Cars        []CarConfig `json:"cars" yaml:"cars"`
}

// FieldConfig holds the field dimensions of a scenario
type FieldConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// CarConfig is the raw, unvalidated definition of a car
type CarConfig struct {
	Name      string `json:"name" yaml:"name"`
	X         int    `json:"x" yaml:"x"`
	Y         int    `json:"y" yaml:"y"`
	Direction string `json:"direction" yaml:"direction"`
	Commands  string `json:"commands" yaml:"commands"`
}

// SimState represents the current state of a simulation
type SimState struct {
	ConfigName string       `json:"config_name"`
	Field      Field        `json:"field"`
	Cars       []*Car       `json:"cars"`
	Round      int          `json:"round"`
	Started    bool         `json:"started"`
	Finished   bool         `json:"finished"`
	Message    string       `json:"message"`
	LastRound  *RoundRecord `json:"last_round,omitempty"`

	// Computed helper view (not required for simulation logic)
	FieldView []string `json:"field_view,omitempty"`
}
