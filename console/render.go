package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/wricardo/mcp-training/carsim/game/engine"
)

// Styles holds the lipgloss styles used for the field map
type Styles struct {
	Panel    lipgloss.Style
	Title    lipgloss.Style
	Empty    lipgloss.Style
	Car      lipgloss.Style
	Collided lipgloss.Style
	Shared   lipgloss.Style
	Legend   lipgloss.Style
}

// NewStyles builds styles bound to the renderer of w, so colors are only
// emitted when w is a terminal
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		Title:    r.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		Empty:    r.NewStyle().Foreground(lipgloss.Color("238")),
		Car:      r.NewStyle().Foreground(lipgloss.Color("82")).Bold(true),
		Collided: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Shared:   r.NewStyle().Foreground(lipgloss.Color("220")),
		Legend:   r.NewStyle().Foreground(lipgloss.Color("242")),
	}
}

// RenderFieldMap draws the field with cars inside a bordered panel.
// The top row is the northern edge. Fields wider or taller than
// engine.MaxRenderSize get a one-line notice instead.
func (s Styles) RenderFieldMap(field engine.Field, cars []*engine.Car, rounds int) string {
	if field.Width > engine.MaxRenderSize || field.Height > engine.MaxRenderSize {
		return s.Legend.Render(fmt.Sprintf("Field %d x %d is too large to draw (limit %d x %d)",
			field.Width, field.Height, engine.MaxRenderSize, engine.MaxRenderSize))
	}

	rows := engine.RenderField(field, cars)

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, cell := range row {
			b.WriteString(s.styleCell(cell).Render(string(cell)))
		}
	}

	title := s.Title.Render(fmt.Sprintf("Field %d x %d after %d rounds", field.Width, field.Height, rounds))
	legend := s.Legend.Render(". empty  X collided  * shared")

	return lipgloss.JoinVertical(lipgloss.Left, title, s.Panel.Render(b.String()), legend)
}

func (s Styles) styleCell(cell rune) lipgloss.Style {
	switch cell {
	case '.':
		return s.Empty
	case 'X':
		return s.Collided
	case '*':
		return s.Shared
	default:
		return s.Car
	}
}
