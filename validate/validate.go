// Command validate checks the scenario files in a configs directory
// (default ./configs). For each .json, .yaml or .yml file it reports:
//   - decoding errors
//   - every field and car problem, not just the first one
//   - cars that start on the same cell
//   - the outcome of a dry run when the scenario is valid
//
// The exit status is non-zero when any scenario is invalid.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mcp-training/carsim/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Problems make the file invalid; Notes are informational.
type ValidationResult struct {
	File     string
	Valid    bool
	Problems []string
	Warnings []string
	Notes    []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// validateScenario loads and validates a single scenario file
func validateScenario(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.DecodeScenario(filePath, data)
	if err != nil {
		result.fail("Invalid scenario: %v", err)
		return result
	}

	for _, problem := range engine.ScenarioProblems(config) {
		result.fail("%v", problem)
	}
	if !result.Valid {
		return result
	}

	result.Warnings = append(result.Warnings, sharedStarts(config.Cars)...)
	for _, car := range config.Cars {
		if car.Commands == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Car %s has no commands and stays parked", car.Name))
		}
	}

	sim, err := engine.NewEngine(config)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	run := sim.Run()

	result.Notes = append(result.Notes,
		fmt.Sprintf("Name: %s", config.Name),
		fmt.Sprintf("Field: %d x %d", config.Field.Width, config.Field.Height),
		fmt.Sprintf("Cars: %d", len(config.Cars)),
		fmt.Sprintf("Dry run: %d rounds, %d collided, %d blocked moves",
			run.Rounds, engine.CountCollided(sim.GetCars()), engine.CountBlockedMoves(sim.GetHistory())),
	)
	return result
}

// sharedStarts lists cells where more than one car starts
func sharedStarts(cars []engine.CarConfig) []string {
	byCell := make(map[engine.Position][]string)
	var cells []engine.Position
	for _, car := range cars {
		pos := engine.Position{X: car.X, Y: car.Y}
		if _, seen := byCell[pos]; !seen {
			cells = append(cells, pos)
		}
		byCell[pos] = append(byCell[pos], car.Name)
	}

	var warnings []string
	for _, pos := range cells {
		names := byCell[pos]
		if len(names) < 2 {
			continue
		}
		sort.Strings(names)
		warnings = append(warnings, fmt.Sprintf("Cars %s start on the same cell %s", strings.Join(names, ", "), pos))
	}
	return warnings
}

// scenarioFiles returns the scenario files of a directory in name order
func scenarioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// validateDir prints a report for every scenario in dir and reports whether all are valid
func validateDir(w io.Writer, dir string) (bool, error) {
	files, err := scenarioFiles(dir)
	if err != nil {
		return false, fmt.Errorf("error finding scenario files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no scenario files found in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateScenario(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, note := range result.Notes {
				fmt.Fprintln(w, "  ✓ "+note)
			}
			for _, warning := range result.Warnings {
				fmt.Fprintln(w, "  ⚠ "+warning)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, problem := range result.Problems {
				fmt.Fprintln(w, "  ❌ "+problem)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All scenarios are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some scenarios have errors")
	}
	return allValid, nil
}

func main() {
	dir := flag.String("dir", "configs", "Directory containing scenario files")
	flag.Parse()

	valid, err := validateDir(os.Stdout, *dir)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if !valid {
		os.Exit(1)
	}
}
