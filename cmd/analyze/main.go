// Command analyze dry-runs every scenario in the configs directory and prints
// quick, human-readable statistics: rounds, collisions, blocked moves and a
// small chart of how many cars are still driving after each round.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/wricardo/mcp-training/carsim/game/config"
	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/logging"
)

// Analysis summarizes one complete run of a scenario
type Analysis struct {
	Name         string
	Width        int
	Height       int
	Cars         int
	Rounds       int
	Collided     int
	BlockedMoves int
	Collisions   []string
	// Active[i] is the number of cars still driving after round i; Active[0] is the start
	Active []float64
}

func main() {
	configDir := flag.String("dir", "configs", "Directory containing scenario files")
	chart := flag.Bool("chart", true, "Plot active cars per round")
	flag.Parse()

	logging.Discard()

	if err := analyzeDir(os.Stdout, *configDir, *chart); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// analyzeDir analyzes every valid scenario known to a config manager
func analyzeDir(w io.Writer, dir string, chart bool) error {
	manager, err := config.NewManager(dir)
	if err != nil {
		return err
	}

	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return fmt.Errorf("no scenarios found in %s", dir)
	}

	for _, info := range infos {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", info.Filename)

		scenario, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			fmt.Fprintf(w, "Error loading scenario: %v\n", err)
			continue
		}

		analysis, err := analyzeScenario(scenario)
		if err != nil {
			fmt.Fprintf(w, "Error running scenario: %v\n", err)
			continue
		}
		printAnalysis(w, analysis, chart)
	}
	return nil
}

// analyzeScenario runs a scenario round by round, recording collisions and activity
func analyzeScenario(scenario *engine.ScenarioConfig) (*Analysis, error) {
	sim, err := engine.NewEngine(scenario)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		Name:   scenario.Name,
		Width:  scenario.Field.Width,
		Height: scenario.Field.Height,
		Cars:   len(scenario.Cars),
		Active: []float64{float64(engine.CountEligible(sim.GetCars()))},
	}

	for {
		record, ok := sim.Step()
		if !ok {
			break
		}
		for _, group := range record.Collisions {
			analysis.Collisions = append(analysis.Collisions,
				fmt.Sprintf("round %d at %s: %s", record.Round, group.Position, strings.Join(group.Cars, ", ")))
		}
		analysis.Active = append(analysis.Active, float64(engine.CountEligible(sim.GetCars())))
	}

	analysis.Rounds = sim.GetRound()
	analysis.Collided = engine.CountCollided(sim.GetCars())
	analysis.BlockedMoves = engine.CountBlockedMoves(sim.GetHistory())
	return analysis, nil
}

func printAnalysis(w io.Writer, a *Analysis, chart bool) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Field: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(w, "Cars: %d\n", a.Cars)
	fmt.Fprintf(w, "Rounds: %d\n", a.Rounds)
	fmt.Fprintf(w, "Collided cars: %d\n", a.Collided)
	fmt.Fprintf(w, "Blocked moves: %d\n", a.BlockedMoves)

	if len(a.Collisions) == 0 {
		fmt.Fprintln(w, "✅ No collisions")
	} else {
		fmt.Fprintf(w, "⚠️  %d collision(s):\n", len(a.Collisions))
		for _, c := range a.Collisions {
			fmt.Fprintf(w, "   %s\n", c)
		}
	}

	// A single point has nothing to plot
	if chart && len(a.Active) > 1 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, asciigraph.Plot(a.Active,
			asciigraph.Height(5),
			asciigraph.Width(40),
			asciigraph.Caption("active cars per round"),
		))
	}
}
