package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/wricardo/mcp-training/carsim/game/engine"
)

// Checker compares what the server reports for a scenario with a local run
type Checker struct {
	client *Client
}

func NewChecker(client *Client) *Checker {
	return &Checker{client: client}
}

// Check runs one scenario through every API path and returns the mismatches found.
// An error means the server could not be driven at all.
func (c *Checker) Check(ctx context.Context, scenario *engine.ScenarioConfig) ([]string, error) {
	local, err := engine.NewEngine(scenario)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	expected := local.Run()
	want := reportLines(expected)

	problems := checkResult(expected)

	simulated, err := c.client.Simulate(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	problems = append(problems, compareLines("simulate", want, simulated.Report)...)
	if simulated.Result.Rounds != expected.Rounds {
		problems = append(problems, fmt.Sprintf("simulate: expected %d rounds, got %d", expected.Rounds, simulated.Result.Rounds))
	}

	id, err := c.client.CreateFieldSession(ctx, scenario.Field.Width, scenario.Field.Height)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer c.client.DeleteSession(context.WithoutCancel(ctx), id)

	for _, car := range scenario.Cars {
		if _, err := c.client.AddCar(ctx, id, car); err != nil {
			return nil, fmt.Errorf("add car %s: %w", car.Name, err)
		}
	}

	// Step through the first half, then run the rest
	stepped := 0
	for stepped < expected.Rounds/2 {
		result, err := c.client.Step(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("step: %w", err)
		}
		if !result.Executed {
			problems = append(problems, fmt.Sprintf("step %d: finished early", stepped+1))
			break
		}
		stepped++
		if result.Round != nil && result.Round.Round != stepped {
			problems = append(problems, fmt.Sprintf("step %d: server reported round %d", stepped, result.Round.Round))
		}
	}

	summary, err := c.client.Run(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	problems = append(problems, compareLines("session", want, summary.Report)...)
	if stepped+summary.RoundsExecuted != expected.Rounds {
		problems = append(problems, fmt.Sprintf("session: expected %d rounds, stepped %d and ran %d",
			expected.Rounds, stepped, summary.RoundsExecuted))
	}

	if expected.Rounds > 0 {
		late := engine.CarConfig{Name: "late", X: 0, Y: 0, Direction: "N", Commands: "F"}
		_, err := c.client.AddCar(ctx, id, late)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
			problems = append(problems, fmt.Sprintf("add car after start: expected 409, got %v", err))
		}
	}

	if _, err := c.client.Reset(ctx, id); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	rerun, err := c.client.Run(ctx, id, 0)
	if err != nil {
		return nil, fmt.Errorf("run after reset: %w", err)
	}
	problems = append(problems, compareLines("after reset", want, rerun.Report)...)

	return problems, nil
}

func reportLines(result engine.RunResult) []string {
	lines := make([]string, len(result.Reports))
	for i, report := range result.Reports {
		lines[i] = engine.FormatReport(report)
	}
	return lines
}

func compareLines(label string, want, got []string) []string {
	if slices.Equal(want, got) {
		return nil
	}
	return []string{fmt.Sprintf("%s: report mismatch\n  expected:\n    %s\n  got:\n    %s",
		label, strings.Join(want, "\n    "), strings.Join(got, "\n    "))}
}

// checkResult verifies the invariants every finished run must satisfy
func checkResult(result engine.RunResult) []string {
	var problems []string
	byName := make(map[string]engine.CarReport, len(result.Reports))
	for _, report := range result.Reports {
		byName[report.Name] = report
	}

	for _, report := range result.Reports {
		if !report.Collided {
			if report.CommandsExecuted != report.CommandsTotal {
				problems = append(problems, fmt.Sprintf("%s: finished with %d of %d commands executed",
					report.Name, report.CommandsExecuted, report.CommandsTotal))
			}
			continue
		}

		if report.CollisionPosition == nil {
			problems = append(problems, fmt.Sprintf("%s: collided without a position", report.Name))
			continue
		}
		if report.Position != *report.CollisionPosition {
			problems = append(problems, fmt.Sprintf("%s: stopped at %s but collided at %s",
				report.Name, report.Position, *report.CollisionPosition))
		}
		if report.CollisionStep < 1 || report.CollisionStep > result.Rounds {
			problems = append(problems, fmt.Sprintf("%s: collision step %d outside 1..%d",
				report.Name, report.CollisionStep, result.Rounds))
		}
		if len(report.CollisionPartners) == 0 {
			problems = append(problems, fmt.Sprintf("%s: collided alone", report.Name))
		}

		for _, partner := range report.CollisionPartners {
			other, ok := byName[partner]
			switch {
			case !ok:
				problems = append(problems, fmt.Sprintf("%s: unknown partner %s", report.Name, partner))
			case !other.Collided || !slices.Contains(other.CollisionPartners, report.Name):
				problems = append(problems, fmt.Sprintf("%s: partner %s does not list it back", report.Name, partner))
			case other.CollisionStep != report.CollisionStep:
				problems = append(problems, fmt.Sprintf("%s and %s: collision steps %d and %d differ",
					report.Name, partner, report.CollisionStep, other.CollisionStep))
			}
		}
	}
	return problems
}
