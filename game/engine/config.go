package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// NewField creates a field; both dimensions must be positive
func NewField(width, height int) (Field, error) {
	if width < MinFieldSize || height < MinFieldSize {
		return Field{}, invalid("field", fmt.Sprintf("%d x %d", width, height), "width and height must be positive integers")
	}
	return Field{Width: width, Height: height}, nil
}

// NewCar validates raw car input against the field and builds a car ready to run.
// Heading and commands are case-insensitive. An empty command string is allowed and
// yields a parked car that never moves but can still be hit.
func NewCar(field Field, name string, x, y int, heading, commands string) (*Car, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "", "car name is required")
	}

	dir, err := ParseDirection(heading)
	if err != nil {
		return nil, err
	}

	program, err := ParseProgram(commands)
	if err != nil {
		return nil, err
	}

	pos := Position{X: x, Y: y}
	if !field.ContainsPosition(pos) {
		return nil, invalid("position", pos.String(),
			fmt.Sprintf("initial position is out of the field bounds (%d x %d)", field.Width, field.Height))
	}

	return &Car{
		Name:            name,
		Position:        pos,
		Heading:         dir,
		Commands:        program,
		InitialPosition: pos,
		InitialHeading:  dir,
	}, nil
}

// Simulation collects validated cars for a single run and enforces unique names
type Simulation struct {
	field Field
	cars  []*Car
	names map[string]struct{}
}

// NewSimulation creates an empty simulation on the given field
func NewSimulation(field Field) *Simulation {
	return &Simulation{
		field: field,
		names: make(map[string]struct{}),
	}
}

// AddCar validates and appends a car. Names are unique within the simulation.
func (s *Simulation) AddCar(name string, x, y int, heading, commands string) (*Car, error) {
	if s.HasCar(name) {
		return nil, invalid("name", strings.TrimSpace(name), "car name must be unique")
	}

	car, err := NewCar(s.field, name, x, y, heading, commands)
	if err != nil {
		return nil, err
	}

	s.cars = append(s.cars, car)
	s.names[car.Name] = struct{}{}
	return car, nil
}

// HasCar reports whether a car with this name was already added
func (s *Simulation) HasCar(name string) bool {
	_, exists := s.names[strings.TrimSpace(name)]
	return exists
}

// Field returns the simulation field
func (s *Simulation) Field() Field {
	return s.field
}

// Cars returns the cars in insertion order
func (s *Simulation) Cars() []*Car {
	return s.cars
}

// Run executes every round and returns the final reports
func (s *Simulation) Run() RunResult {
	return Run(s.field, s.cars)
}

// ScenarioProblems returns every validation problem found in a scenario
func ScenarioProblems(config *ScenarioConfig) []error {
	if config == nil {
		return []error{invalid("scenario", "", "scenario is required")}
	}

	var problems []error
	if strings.TrimSpace(config.Name) == "" {
		problems = append(problems, invalid("name", "", "scenario name is required"))
	}

	field, err := NewField(config.Field.Width, config.Field.Height)
	if err != nil {
		// Cars cannot be checked against an invalid field
		return append(problems, err)
	}

	sim := NewSimulation(field)
	for i, car := range config.Cars {
		if _, err := sim.AddCar(car.Name, car.X, car.Y, car.Direction, car.Commands); err != nil {
			problems = append(problems, withPrefix("cars["+strconv.Itoa(i)+"]", err))
		}
	}

	return problems
}

// ValidateScenario validates a scenario, joining every problem found
func ValidateScenario(config *ScenarioConfig) error {
	return errors.Join(ScenarioProblems(config)...)
}

// BuildSimulation validates a scenario and turns it into a ready-to-run simulation
func BuildSimulation(config *ScenarioConfig) (*Simulation, error) {
	if err := ValidateScenario(config); err != nil {
		return nil, err
	}

	field, _ := NewField(config.Field.Width, config.Field.Height)
	sim := NewSimulation(field)
	for _, car := range config.Cars {
		if _, err := sim.AddCar(car.Name, car.X, car.Y, car.Direction, car.Commands); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// DecodeScenario parses scenario data. Files ending in .yaml or .yml are read as YAML,
// everything else as JSON.
func DecodeScenario(filename string, data []byte) (*ScenarioConfig, error) {
	var config ScenarioConfig

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML scenario: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON scenario: %w", err)
		}
	}

	return &config, nil
}

// LoadScenario loads and validates a scenario file
func LoadScenario(filename string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := DecodeScenario(filename, data)
	if err != nil {
		return nil, err
	}

	if err := ValidateScenario(config); err != nil {
		return nil, err
	}

	return config, nil
}

// CloneScenario returns a copy whose car list can be modified independently
func CloneScenario(config *ScenarioConfig) *ScenarioConfig {
	if config == nil {
		return nil
	}
	cp := *config
	cp.Cars = append([]CarConfig(nil), config.Cars...)
	return &cp
}

// DefaultScenario returns an empty 10 x 10 field
func DefaultScenario() *ScenarioConfig {
	return &ScenarioConfig{
		Name:        "default",
		Description: "Empty 10 x 10 field",
		Field:       FieldConfig{Width: 10, Height: 10},
		Cars:        []CarConfig{},
	}
}
