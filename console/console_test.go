package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/carsim/game/engine"
)

func runConsole(t *testing.T, input string, opts ...Option) string {
	t.Helper()
	var out bytes.Buffer
	if err := New(strings.NewReader(input), &out, opts...).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return out.String()
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

const (
	carMenu = "\nPlease choose from the following options:\n[1] Add a car to field\n[2] Run simulation"
	endMenu = "\nPlease choose from the following options:\n[1] Start over\n[2] Exit"
)

func TestConsole_TwoCarTranscript(t *testing.T) {
	input := lines(
		"10 10",
		"1", "A", "1 2 N", "FFRFFFFRRL",
		"1", "B", "7 8 W", "FFLFFFFFFF",
		"2",
		"2",
	)

	expected := lines(
		"\nWelcome to Auto Driving Car Simulation!",
		"Please enter the width and height of the simulation field in x y format:",
		"You have created a field of 10 x 10.",
		carMenu,
		"Please enter the name of the car:",
		"Please enter initial position of car A in x y Direction format:",
		"Please enter the commands for car A:",
		"\nYour current list of cars are:",
		"- A, (1,2) N, FFRFFFFRRL",
		carMenu,
		"Please enter the name of the car:",
		"Please enter initial position of car B in x y Direction format:",
		"Please enter the commands for car B:",
		"\nYour current list of cars are:",
		"- A, (1,2) N, FFRFFFFRRL",
		"- B, (7,8) W, FFLFFFFFFF",
		carMenu,
		"\nYour current list of cars are:",
		"- A, (1,2) N, FFRFFFFRRL",
		"- B, (7,8) W, FFLFFFFFFF",
		"\nAfter simulation, the result is:",
		"- A, collides with B at (5,4) at step 7",
		"- B, collides with A at (5,4) at step 7",
		endMenu,
		"Thank you for running the simulation. Goodbye!",
	)

	if got := runConsole(t, input); got != expected {
		t.Errorf("Transcript mismatch.\nExpected:\n%s\nGot:\n%s", expected, got)
	}
}

func TestConsole_SingleCarLowercaseInput(t *testing.T) {
	out := runConsole(t, lines("10 10", "1", "A", "1 2 n", "ffrffffrrl", "2", "2"))

	if !strings.Contains(out, "- A, (1,2) N, FFRFFFFRRL\n") {
		t.Errorf("Expected normalized car entry, got:\n%s", out)
	}
	if !strings.Contains(out, "After simulation, the result is:\n- A, (5,4) S\n") {
		t.Errorf("Expected final position (5,4) S, got:\n%s", out)
	}
}

func TestConsole_FieldErrorsRepeatPrompt(t *testing.T) {
	out := runConsole(t, lines("10", "a b", "0 5", "3 4", "2", "2"))

	fieldPrompt := "Please enter the width and height of the simulation field in x y format:"
	if n := strings.Count(out, fieldPrompt); n != 4 {
		t.Errorf("Expected the field prompt 4 times, got %d:\n%s", n, out)
	}
	for _, msg := range []string{
		"Error: Invalid input. Please enter two integers separated by a space.\n",
		"Error: invalid width \"a\"\n",
		"Error: Width and height must be positive integers.\n",
		"You have created a field of 3 x 4.\n",
	} {
		if !strings.Contains(out, msg) {
			t.Errorf("Expected %q in output:\n%s", msg, out)
		}
	}
}

func TestConsole_CarErrors(t *testing.T) {
	tests := []struct {
		name     string
		answers  []string
		expected string
	}{
		{"wrong position format", []string{"A", "1 2"}, "Error: Invalid format. Expected: x y Direction\n"},
		{"unknown direction", []string{"A", "1 2 Q"}, "Error: Direction must be one of N, S, E, W.\n"},
		{"outside the field", []string{"A", "5 0 N"}, "Error: Initial position is out of the field bounds.\n"},
		{"bad commands", []string{"A", "1 1 N", "FFB"}, "Error: Commands must only contain the letters L, R, and F.\n"},
		{"empty commands", []string{"A", "1 1 N", ""}, "Error: Commands must only contain the letters L, R, and F.\n"},
		{"empty name", []string{""}, "Error: Car name must not be empty.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := lines(append(append([]string{"5 5", "1"}, tt.answers...), "2", "2")...)
			out := runConsole(t, input)

			if !strings.Contains(out, tt.expected) {
				t.Errorf("Expected %q in output:\n%s", tt.expected, out)
			}
			// The rejected car is not added and the menu is shown again
			if strings.Contains(out, "- A, (") {
				t.Errorf("Rejected car must not be listed:\n%s", out)
			}
			if n := strings.Count(out, carMenu); n != 2 {
				t.Errorf("Expected the menu twice, got %d", n)
			}
		})
	}
}

func TestConsole_DuplicateNameRejectedBeforePosition(t *testing.T) {
	out := runConsole(t, lines("5 5", "1", "A", "0 0 N", "F", "1", "A", "2", "2"))

	if !strings.Contains(out, "Error: Car name must be unique. Please try again.\n") {
		t.Errorf("Expected duplicate name error:\n%s", out)
	}
	if n := strings.Count(out, "Please enter initial position of car A"); n != 1 {
		t.Errorf("Position must only be asked once, got %d", n)
	}
}

func TestConsole_InvalidMenuOption(t *testing.T) {
	out := runConsole(t, lines("5 5", "9", "2", "2"))

	if !strings.Contains(out, "Invalid option. Please try again.\n") {
		t.Errorf("Expected invalid option message:\n%s", out)
	}
}

func TestConsole_StartOver(t *testing.T) {
	out := runConsole(t, lines(
		"5 5", "1", "A", "0 0 N", "F", "2",
		"1",
		"3 3", "2", "2",
	))

	if n := strings.Count(out, "Welcome to Auto Driving Car Simulation!"); n != 2 {
		t.Errorf("Expected two welcomes, got %d", n)
	}
	if !strings.Contains(out, "You have created a field of 3 x 3.") {
		t.Errorf("Expected a new field after starting over:\n%s", out)
	}

	// Cars from the first field are gone
	second := out[strings.LastIndex(out, "Welcome"):]
	if strings.Contains(second, "- A,") {
		t.Errorf("Cars must not survive a restart:\n%s", second)
	}
}

func TestConsole_InvalidPostRunOptionExits(t *testing.T) {
	out := runConsole(t, lines("5 5", "2", "x", "10 10"))

	if !strings.HasSuffix(out, "Invalid option. Exiting.\n") {
		t.Errorf("Expected exit on invalid post-run option:\n%s", out)
	}
}

func TestConsole_InputEndsQuietly(t *testing.T) {
	out := runConsole(t, lines("5 5", "1", "A"))

	if !strings.HasSuffix(out, "Please enter initial position of car A in x y Direction format:\n") {
		t.Errorf("Expected output to stop at the pending prompt:\n%s", out)
	}
}

func TestConsole_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	if err := New(strings.NewReader("5 5\n"), &out).Run(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestConsole_FieldMap(t *testing.T) {
	out := runConsole(t, lines(
		"3 2",
		"1", "A", "0 0 E", "F",
		"1", "B", "2 0 W", "F",
		"1", "C", "0 1 E", "",
		"2", "2",
	), WithFieldMap(true))

	// C was rejected for empty commands; A and B meet at (1,0) in round 1
	for _, expected := range []string{"Field 3 x 2 after 1 rounds", "...", ".X.", ". empty  X collided  * shared"} {
		if !strings.Contains(out, expected) {
			t.Errorf("Expected %q in field map:\n%s", expected, out)
		}
	}
}

func TestConsole_FieldMapTooLarge(t *testing.T) {
	out := runConsole(t, lines(
		"100000 100000",
		"1", "A", "99999 99999 N", "F",
		"2", "2",
	), WithFieldMap(true))

	if !strings.Contains(out, "- A, (99999,99999) N") {
		t.Errorf("Expected the car to stay at the northern edge:\n%s", out)
	}
	if !strings.Contains(out, "Field 100000 x 100000 is too large to draw (limit 60 x 60)") {
		t.Errorf("Expected a size notice instead of a map:\n%s", out)
	}
}

func TestRenderFieldMap_SizeLimit(t *testing.T) {
	styles := NewStyles(&bytes.Buffer{})

	atLimit := styles.RenderFieldMap(engine.Field{Width: engine.MaxRenderSize, Height: 1}, nil, 0)
	if strings.Contains(atLimit, "too large") {
		t.Errorf("Expected a %d-wide field to be drawn", engine.MaxRenderSize)
	}

	tall := styles.RenderFieldMap(engine.Field{Width: 1, Height: engine.MaxRenderSize + 1}, nil, 0)
	if !strings.Contains(tall, "too large to draw") {
		t.Errorf("Expected a notice for a tall field, got:\n%s", tall)
	}
}

func TestRenderFieldMap_Plain(t *testing.T) {
	var buf bytes.Buffer
	styles := NewStyles(&buf)
	field := engine.Field{Width: 3, Height: 2}
	cars := []*engine.Car{
		{Name: "A", Position: engine.Position{X: 0, Y: 0}},
		{Name: "B", Position: engine.Position{X: 2, Y: 1}},
		{Name: "C", Position: engine.Position{X: 2, Y: 1}},
	}

	rendered := styles.RenderFieldMap(field, cars, 0)
	if strings.Contains(rendered, "\x1b[") {
		t.Errorf("Expected no ANSI escapes for a non-terminal writer:\n%q", rendered)
	}
	if !strings.Contains(rendered, "..*") || !strings.Contains(rendered, "A..") {
		t.Errorf("Expected north row first with shared cell:\n%s", rendered)
	}
}

func TestParsePosition(t *testing.T) {
	field := engine.Field{Width: 10, Height: 10}

	x, y, heading, err := parsePosition(field, "  1   2  s ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if x != 1 || y != 2 || heading != "S" {
		t.Errorf("Expected (1,2) S, got (%d,%d) %s", x, y, heading)
	}

	if _, _, _, err := parsePosition(field, "one 2 N"); err == nil {
		t.Error("Expected error for non-numeric x")
	}
}
