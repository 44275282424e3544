package main

import (
	"math/rand/v2"
	"strconv"

	"github.com/wricardo/mcp-training/carsim/game/engine"
)

var headings = []string{"N", "E", "S", "W"}

// Generator produces random but always valid scenarios. Small fields and
// many cars make collisions likely.
type Generator struct {
	rng         *rand.Rand
	maxSize     int
	maxCars     int
	maxCommands int
}

// NewGenerator creates a generator; the same seed yields the same scenarios
func NewGenerator(seed uint64, maxSize, maxCars, maxCommands int) *Generator {
	if maxSize < 1 {
		maxSize = 1
	}
	if maxCars < 1 {
		maxCars = 1
	}
	if maxCommands < 0 {
		maxCommands = 0
	}
	return &Generator{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		maxSize:     maxSize,
		maxCars:     maxCars,
		maxCommands: maxCommands,
	}
}

// Scenario builds the n-th random scenario
func (g *Generator) Scenario(n int) *engine.ScenarioConfig {
	width := 1 + g.rng.IntN(g.maxSize)
	height := 1 + g.rng.IntN(g.maxSize)
	cars := 1 + g.rng.IntN(g.maxCars)

	scenario := &engine.ScenarioConfig{
		Name:  "bruteforce-" + strconv.Itoa(n),
		Field: engine.FieldConfig{Width: width, Height: height},
	}
	for i := 0; i < cars; i++ {
		scenario.Cars = append(scenario.Cars, engine.CarConfig{
			Name:      carName(i),
			X:         g.rng.IntN(width),
			Y:         g.rng.IntN(height),
			Direction: headings[g.rng.IntN(len(headings))],
			Commands:  g.commands(),
		})
	}
	return scenario
}

func (g *Generator) commands() string {
	n := g.rng.IntN(g.maxCommands + 1)
	program := make([]byte, n)
	for i := range program {
		program[i] = engine.CommandChars[g.rng.IntN(len(engine.CommandChars))]
	}
	return string(program)
}

// carName returns A..Z, then A1..Z1 and so on
func carName(i int) string {
	name := string(rune('A' + i%26))
	if i >= 26 {
		name += strconv.Itoa(i / 26)
	}
	return name
}
