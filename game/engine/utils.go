package engine

import (
	"fmt"
	"sort"
	"strings"
)

// CountCollided counts the cars that have collided
func CountCollided(cars []*Car) int {
	count := 0
	for _, car := range cars {
		if car.Collided {
			count++
		}
	}
	return count
}

// CountEligible counts the cars that still have commands to execute
func CountEligible(cars []*Car) int {
	count := 0
	for _, car := range cars {
		if car.Eligible() {
			count++
		}
	}
	return count
}

// CountBlockedMoves counts forward moves discarded at the field edge across the history
func CountBlockedMoves(history []RoundRecord) int {
	count := 0
	for _, round := range history {
		for _, move := range round.Moves {
			if move.Blocked {
				count++
			}
		}
	}
	return count
}

// FindCar returns the car with the given name, or nil
func FindCar(cars []*Car, name string) *Car {
	for _, car := range cars {
		if car.Name == name {
			return car
		}
	}
	return nil
}

// FormatCarEntry renders a car's starting configuration: "- A, (1,2) N, FFRFFFFRRL"
func FormatCarEntry(car *Car) string {
	return fmt.Sprintf("- %s, %s %s, %s", car.Name, car.InitialPosition, car.InitialHeading, car.Commands)
}

// FormatReport renders a car's outcome: "- A, (5,4) S" or
// "- A, collides with B at (5,4) at step 7". Partners are listed alphabetically.
func FormatReport(report CarReport) string {
	if report.Collided && report.CollisionPosition != nil {
		partners := append([]string(nil), report.CollisionPartners...)
		sort.Strings(partners)
		return fmt.Sprintf("- %s, collides with %s at %s at step %d",
			report.Name, strings.Join(partners, ", "), *report.CollisionPosition, report.CollisionStep)
	}
	return fmt.Sprintf("- %s, %s %s", report.Name, report.Position, report.Heading)
}

// RenderField draws the field as text rows, top row first (highest y).
// Empty cells are '.', a single car shows the first letter of its name,
// collided cars show 'X' and several live cars on one cell show '*'.
func RenderField(field Field, cars []*Car) []string {
	grid := make([][]rune, field.Height)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(".", field.Width))
	}

	for _, car := range cars {
		if !field.ContainsPosition(car.Position) {
			continue
		}
		cell := &grid[car.Position.Y][car.Position.X]
		switch {
		case car.Collided:
			*cell = 'X'
		case *cell == '.':
			*cell = []rune(car.Name)[0]
		case *cell != 'X':
			*cell = '*'
		}
	}

	rows := make([]string, field.Height)
	for y := 0; y < field.Height; y++ {
		rows[field.Height-1-y] = string(grid[y])
	}
	return rows
}
