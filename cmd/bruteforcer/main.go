// Command bruteforcer throws random scenarios at a running simulation server
// and checks every answer against a local run of the same scenario. It drives
// the one-shot simulate endpoint and full sessions (cars, steps, run, reset).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/wricardo/mcp-training/carsim/logging"
)

var log = logging.New("bruteforcer")

// Options controls a bruteforce session
type Options struct {
	Attempts    int
	Seed        uint64
	MaxSize     int
	MaxCars     int
	MaxCommands int
	Delay       time.Duration
	Verbose     bool
}

// bruteforce runs the attempts and returns the number of failed scenarios
func bruteforce(ctx context.Context, w io.Writer, client *Client, opts Options) (int, error) {
	gen := NewGenerator(opts.Seed, opts.MaxSize, opts.MaxCars, opts.MaxCommands)
	checker := NewChecker(client)

	failed := 0
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return failed, err
		}

		scenario := gen.Scenario(attempt)
		problems, err := checker.Check(ctx, scenario)
		if err != nil {
			return failed, fmt.Errorf("attempt %d: %w", attempt, err)
		}

		if opts.Verbose {
			log.Info("attempt", "n", attempt, "field", fmt.Sprintf("%dx%d", scenario.Field.Width, scenario.Field.Height),
				"cars", len(scenario.Cars), "problems", len(problems))
		}

		if len(problems) > 0 {
			failed++
			fmt.Fprintf(w, "\n❌ Attempt %d (%s, %d x %d, %d cars)\n", attempt, scenario.Name,
				scenario.Field.Width, scenario.Field.Height, len(scenario.Cars))
			for _, car := range scenario.Cars {
				fmt.Fprintf(w, "   - %s, (%d,%d) %s, %s\n", car.Name, car.X, car.Y, car.Direction, car.Commands)
			}
			for _, problem := range problems {
				fmt.Fprintf(w, "   %s\n", problem)
			}
		}

		if opts.Delay > 0 {
			time.Sleep(opts.Delay)
		}
	}

	if failed == 0 {
		fmt.Fprintf(w, "✅ %d scenarios matched (seed %d)\n", opts.Attempts, opts.Seed)
	} else {
		fmt.Fprintf(w, "\n❌ %d of %d scenarios failed (seed %d)\n", failed, opts.Attempts, opts.Seed)
	}
	return failed, nil
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Simulation server URL")
	attempts := flag.Int("attempts", 100, "Number of random scenarios to check")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed; reuse it to replay a failure")
	maxSize := flag.Int("max-size", 8, "Maximum field width and height")
	maxCars := flag.Int("max-cars", 6, "Maximum cars per scenario")
	maxCommands := flag.Int("max-commands", 12, "Maximum commands per car")
	delayMs := flag.Int("delay", 0, "Delay between scenarios in milliseconds (0 = no delay)")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	logging.Configure(os.Stderr, *verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("checking simulation server", "url", *serverURL, "seed", *seed, "attempts", *attempts)

	failed, err := bruteforce(ctx, os.Stdout, NewClient(*serverURL), Options{
		Attempts:    *attempts,
		Seed:        *seed,
		MaxSize:     *maxSize,
		MaxCars:     *maxCars,
		MaxCommands: *maxCommands,
		Delay:       time.Duration(*delayMs) * time.Millisecond,
		Verbose:     *verbose,
	})
	if err != nil {
		log.Crit("bruteforce aborted", "err", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
