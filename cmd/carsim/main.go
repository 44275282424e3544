// Command carsim runs the car simulation from the terminal.
//
// Without a subcommand it starts the interactive console. "run" simulates a
// scenario file and "scenarios" lists the scenarios in the config directory.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/carsim/console"
	"github.com/wricardo/mcp-training/carsim/game/config"
	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/logging"
)

const version = "1.0.0"

func main() {
	if err := newApp(os.Stdin, os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "carsim",
		Usage:   "Auto Driving Car Simulation",
		Version: version,
		Reader:  in,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing scenario files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:    "map",
				Usage:   "draw the field after each run",
				Sources: cli.EnvVars("CARSIM_MAP"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "write debug logs to stderr",
				Sources: cli.EnvVars("CARSIM_DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			// Logs would interleave with the prompts, keep them off unless asked for
			if cmd.Bool("debug") {
				logging.Configure(os.Stderr, true)
			} else {
				logging.Discard()
			}
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return console.New(cmd.Root().Reader, cmd.Root().Writer, console.WithFieldMap(cmd.Bool("map"))).Run(ctx)
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "simulate a scenario file, or a scenario from --config-dir by name",
				ArgsUsage: "<scenario>",
				Action:    runScenario,
			},
			{
				Name:   "scenarios",
				Usage:  "list the scenarios in --config-dir",
				Action: listScenarios,
			},
		},
	}
}

func runScenario(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("run expects exactly one scenario, got %d arguments", cmd.Args().Len())
	}

	scenario, err := loadScenario(cmd.String("config-dir"), cmd.Args().First())
	if err != nil {
		return err
	}

	sim, err := engine.BuildSimulation(scenario)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "Scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Fprintln(out, scenario.Description)
	}
	fmt.Fprintf(out, "Field: %d x %d\n", scenario.Field.Width, scenario.Field.Height)

	console.RunAndReport(out, sim, cmd.Bool("map"))
	return nil
}

// loadScenario accepts a path to a file or the name of a scenario in configDir
func loadScenario(configDir, arg string) (*engine.ScenarioConfig, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		scenario, err := engine.LoadScenario(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", arg, err)
		}
		if scenario.Name == "" {
			scenario.Name = config.ConfigID(filepath.Base(arg))
		}
		return scenario, nil
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		return nil, err
	}
	return manager.LoadConfig(arg)
}

func listScenarios(ctx context.Context, cmd *cli.Command) error {
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if len(configs) == 0 {
		fmt.Fprintln(out, "No scenarios found.")
		return nil
	}
	for _, c := range configs {
		fmt.Fprintf(out, "%-12s %3dx%-3d %d car(s)  %s\n", c.ConfigID, c.Width, c.Height, c.Cars, c.Description)
	}
	return nil
}
