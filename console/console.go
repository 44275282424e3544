package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/logging"
)

var log = logging.New("console")

// errInputClosed ends the session quietly when the input runs out
var errInputClosed = errors.New("input closed")

// Console runs the interactive simulation flow over a reader and a writer
type Console struct {
	in       *bufio.Scanner
	out      io.Writer
	fieldMap bool
}

// Option configures a Console
type Option func(*Console)

// WithFieldMap prints a rendered map of the field after every run
func WithFieldMap(enabled bool) Option {
	return func(c *Console) {
		c.fieldMap = enabled
	}
}

// New creates a console reading answers from in and writing prompts to out
func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		in:  bufio.NewScanner(in),
		out: out,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run drives the menu until the user exits, the input ends or ctx is cancelled.
// Running out of input is not an error.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		again, err := c.runOnce(ctx)
		if errors.Is(err, errInputClosed) {
			return nil
		}
		if err != nil || !again {
			return err
		}
	}
}

// runOnce runs one field from creation to the post-run menu.
// It reports whether the user chose to start over.
func (c *Console) runOnce(ctx context.Context) (bool, error) {
	c.println("\nWelcome to Auto Driving Car Simulation!")

	field, err := c.readField()
	if err != nil {
		return false, err
	}
	c.printf("You have created a field of %d x %d.\n", field.Width, field.Height)

	sim := engine.NewSimulation(field)
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		c.println("\nPlease choose from the following options:")
		c.println("[1] Add a car to field")
		c.println("[2] Run simulation")
		option, err := c.readLine()
		if err != nil {
			return false, err
		}

		switch option {
		case "1":
			if err := c.addCar(sim); err != nil {
				return false, err
			}
		case "2":
			c.runSimulation(sim)
			return c.afterRun()
		default:
			c.println("Invalid option. Please try again.")
		}
	}
}

func (c *Console) readField() (engine.Field, error) {
	for {
		line, err := c.prompt("Please enter the width and height of the simulation field in x y format:")
		if err != nil {
			return engine.Field{}, err
		}

		field, err := parseField(line)
		if err != nil {
			c.printError(err)
			continue
		}
		return field, nil
	}
}

// addCar asks for one car. Invalid answers print an error and return to the menu.
func (c *Console) addCar(sim *engine.Simulation) error {
	name, err := c.prompt("Please enter the name of the car:")
	if err != nil {
		return err
	}
	if name == "" {
		c.printError(errors.New("Car name must not be empty."))
		return nil
	}
	if sim.HasCar(name) {
		c.printError(errors.New("Car name must be unique. Please try again."))
		return nil
	}

	line, err := c.prompt(fmt.Sprintf("Please enter initial position of car %s in x y Direction format:", name))
	if err != nil {
		return err
	}
	x, y, heading, err := parsePosition(sim.Field(), line)
	if err != nil {
		c.printError(err)
		return nil
	}

	commands, err := c.prompt(fmt.Sprintf("Please enter the commands for car %s:", name))
	if err != nil {
		return err
	}
	commands = strings.ToUpper(commands)
	if commands == "" || strings.Trim(commands, engine.CommandChars) != "" {
		c.printError(errors.New("Commands must only contain the letters L, R, and F."))
		return nil
	}

	if _, err := sim.AddCar(name, x, y, heading, commands); err != nil {
		c.printError(err)
		return nil
	}

	c.printCars(sim)
	return nil
}

func (c *Console) runSimulation(sim *engine.Simulation) {
	RunAndReport(c.out, sim, c.fieldMap)
}

// afterRun shows the post-run menu. Anything but "1" ends the program.
func (c *Console) afterRun() (bool, error) {
	c.println("\nPlease choose from the following options:")
	c.println("[1] Start over")
	c.println("[2] Exit")
	option, err := c.readLine()
	if err != nil {
		return false, err
	}

	switch option {
	case "1":
		return true, nil
	case "2":
		c.println("Thank you for running the simulation. Goodbye!")
	default:
		c.println("Invalid option. Exiting.")
	}
	return false, nil
}

func (c *Console) printCars(sim *engine.Simulation) {
	printCars(c.out, sim.Cars())
}

func printCars(w io.Writer, cars []*engine.Car) {
	fmt.Fprintln(w, "\nYour current list of cars are:")
	for _, car := range cars {
		fmt.Fprintln(w, engine.FormatCarEntry(car))
	}
}

// RunAndReport prints the car list, runs the simulation and prints one
// result line per car. With fieldMap set the final field is drawn as well.
func RunAndReport(w io.Writer, sim *engine.Simulation, fieldMap bool) engine.RunResult {
	printCars(w, sim.Cars())

	result := sim.Run()
	log.Debug("simulation finished", "cars", len(result.Reports), "rounds", result.Rounds,
		"collided", engine.CountCollided(sim.Cars()))

	fmt.Fprintln(w, "\nAfter simulation, the result is:")
	for _, report := range result.Reports {
		fmt.Fprintln(w, engine.FormatReport(report))
	}

	if fieldMap {
		fmt.Fprintln(w)
		fmt.Fprintln(w, NewStyles(w).RenderFieldMap(sim.Field(), sim.Cars(), result.Rounds))
	}
	return result
}

// parseField reads "width height"
func parseField(line string) (engine.Field, error) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return engine.Field{}, errors.New("Invalid input. Please enter two integers separated by a space.")
	}

	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return engine.Field{}, fmt.Errorf("invalid width %q", parts[0])
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return engine.Field{}, fmt.Errorf("invalid height %q", parts[1])
	}
	if width <= 0 || height <= 0 {
		return engine.Field{}, errors.New("Width and height must be positive integers.")
	}

	return engine.NewField(width, height)
}

// parsePosition reads "x y Direction" and checks it against the field
func parsePosition(field engine.Field, line string) (int, int, string, error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return 0, 0, "", errors.New("Invalid format. Expected: x y Direction")
	}

	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, "", fmt.Errorf("invalid x %q", parts[0])
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, "", fmt.Errorf("invalid y %q", parts[1])
	}

	heading := strings.ToUpper(parts[2])
	if _, err := engine.ParseDirection(heading); err != nil {
		return 0, 0, "", errors.New("Direction must be one of N, S, E, W.")
	}
	if !field.Contains(x, y) {
		return 0, 0, "", errors.New("Initial position is out of the field bounds.")
	}

	return x, y, heading, nil
}

// prompt prints a question on its own line and reads the answer
func (c *Console) prompt(question string) (string, error) {
	c.println(question)
	return c.readLine()
}

func (c *Console) readLine() (string, error) {
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) printError(err error) {
	c.printf("Error: %s\n", err)
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}
