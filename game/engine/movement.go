package engine

import (
	"fmt"
	"strings"
)

// ParseDirection converts a heading letter (N, E, S, W; any case) into a Direction
func ParseDirection(s string) (Direction, error) {
	letter := strings.ToUpper(strings.TrimSpace(s))
	if len(letter) == 1 {
		if idx := strings.Index(DirectionChars, letter); idx >= 0 {
			return Direction(idx), nil
		}
	}
	return North, invalid("direction", s, "must be one of N, S, E, W")
}

// String returns the heading letter
func (d Direction) String() string {
	if d < North || d > West {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return string(DirectionChars[d])
}

// Right returns the heading after a clockwise quarter turn
func (d Direction) Right() Direction {
	return (d + 1) % 4
}

// Left returns the heading after a counter-clockwise quarter turn
func (d Direction) Left() Direction {
	return (d + 3) % 4
}

// Delta returns the one-cell offset of a forward move
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case North:
		return 0, 1
	case East:
		return 1, 0
	case South:
		return 0, -1
	case West:
		return -1, 0
	}
	return 0, 0
}

func (d Direction) MarshalText() ([]byte, error) {
	if d < North || d > West {
		return nil, fmt.Errorf("unknown direction %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseCommand converts a single command letter (L, R, F; any case) into a Command
func ParseCommand(r rune) (Command, error) {
	switch r {
	case 'L', 'l':
		return TurnLeft, nil
	case 'R', 'r':
		return TurnRight, nil
	case 'F', 'f':
		return Forward, nil
	}
	return Forward, invalid("commands", string(r), "commands must only contain the letters L, R, and F")
}

// ParseProgram converts a command string into a Program. Surrounding whitespace is ignored.
func ParseProgram(s string) (Program, error) {
	trimmed := strings.TrimSpace(s)
	program := make(Program, 0, len(trimmed))
	for _, r := range trimmed {
		cmd, err := ParseCommand(r)
		if err != nil {
			return nil, invalid("commands", s, "commands must only contain the letters L, R, and F")
		}
		program = append(program, cmd)
	}
	return program, nil
}

// String returns the command letter
func (c Command) String() string {
	if c < TurnLeft || c > Forward {
		return fmt.Sprintf("Command(%d)", int(c))
	}
	return string(CommandChars[c])
}

func (c Command) MarshalText() ([]byte, error) {
	if c < TurnLeft || c > Forward {
		return nil, fmt.Errorf("unknown command %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Command) UnmarshalText(text []byte) error {
	runes := []rune(string(text))
	if len(runes) != 1 {
		return invalid("command", string(text), "must be a single letter L, R or F")
	}
	parsed, err := ParseCommand(runes[0])
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// String returns the program as a letter string
func (p Program) String() string {
	var b strings.Builder
	b.Grow(len(p))
	for _, c := range p {
		b.WriteString(c.String())
	}
	return b.String()
}

func (p Program) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Program) UnmarshalText(text []byte) error {
	parsed, err := ParseProgram(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Contains reports whether (x, y) lies inside the field
func (f Field) Contains(x, y int) bool {
	return x >= 0 && x < f.Width && y >= 0 && y < f.Height
}

// ContainsPosition reports whether p lies inside the field
func (f Field) ContainsPosition(p Position) bool {
	return f.Contains(p.X, p.Y)
}

// Eligible reports whether the car still takes part in rounds
func (c *Car) Eligible() bool {
	return !c.Collided && c.Cursor < len(c.Commands)
}

// Remaining returns the number of commands not yet executed
func (c *Car) Remaining() int {
	if c.Cursor >= len(c.Commands) {
		return 0
	}
	return len(c.Commands) - c.Cursor
}

// ExecuteOne applies the next command in place. It returns false without touching
// the car when the car has collided or has no commands left. A forward move that
// would leave the field is discarded but still consumes the command.
func (c *Car) ExecuteOne(field Field) (CarMove, bool) {
	if !c.Eligible() {
		return CarMove{}, false
	}

	cmd := c.Commands[c.Cursor]
	c.Cursor++

	move := CarMove{
		Car:           c.Name,
		Command:       cmd,
		From:          c.Position,
		HeadingBefore: c.Heading,
	}

	switch cmd {
	case TurnLeft:
		c.Heading = c.Heading.Left()
	case TurnRight:
		c.Heading = c.Heading.Right()
	case Forward:
		dx, dy := c.Heading.Delta()
		candidate := Position{X: c.Position.X + dx, Y: c.Position.Y + dy}
		if field.ContainsPosition(candidate) {
			c.Position = candidate
		} else {
			move.Blocked = true
		}
	}

	move.To = c.Position
	move.HeadingAfter = c.Heading
	return move, true
}

// Report builds the final report for the car
func (c *Car) Report() CarReport {
	report := CarReport{
		Name:             c.Name,
		Position:         c.Position,
		Heading:          c.Heading,
		Collided:         c.Collided,
		CommandsExecuted: c.Cursor,
		CommandsTotal:    len(c.Commands),
	}
	if c.Collision != nil {
		pos := c.Collision.Position
		report.CollisionStep = c.Collision.Step
		report.CollisionPosition = &pos
		report.CollisionPartners = append([]string(nil), c.Collision.Partners...)
	}
	return report
}

// clone returns a deep copy safe to hand out as a snapshot
func (c *Car) clone() *Car {
	cp := *c
	cp.Commands = append(Program(nil), c.Commands...)
	if c.Collision != nil {
		col := *c.Collision
		col.Partners = append([]string(nil), c.Collision.Partners...)
		cp.Collision = &col
	}
	return &cp
}
