// Package engine provides the core simulation logic for the Auto Driving Car Simulation.
//
// The engine package implements:
//   - A bounded rectangular Field
//   - Cars with a heading and a queue of L/R/F commands
//   - Lockstep rounds in which every eligible car executes one command
//   - End-of-round collision detection
//   - Scenario loading (JSON or YAML) and validation
//
// Coordinates:
//
// (0,0) is the bottom-left cell. North increases y, East increases x. A forward
// move that would leave the field is discarded and still consumes the command.
//
// Rounds:
//
// A round executes one command for every car that has not collided and still has
// commands, in insertion order. Afterwards all cars that have not collided are grouped
// by position; every group of two or more collides at that round. Collided cars never
// move again. The simulation ends when no car is eligible.
//
// Usage:
//
//	field, err := engine.NewField(10, 10)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sim := engine.NewSimulation(field)
//	if _, err := sim.AddCar("A", 1, 2, "N", "FFRFFFFRRL"); err != nil {
//		log.Fatal(err)
//	}
//
//	result := sim.Run()
//	for _, report := range result.Reports {
//		fmt.Println(engine.FormatReport(report))
//	}
//
// For stepwise execution build a SimEngine from a ScenarioConfig and call Step.
//
// Errors:
//
// Malformed input is reported as *ValidationError, which wraps ErrValidation.
// Running a validated simulation cannot fail.
package engine
