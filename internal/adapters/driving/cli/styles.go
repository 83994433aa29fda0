package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette shared by command output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourSuccess = lipgloss.Color("#A6E3A1")
)

// printer styles text only when writing to a terminal, so piped output stays plain.
type printer struct {
	styled bool
}

func newPrinter(w io.Writer) printer {
	f, ok := w.(*os.File)
	return printer{styled: ok && term.IsTerminal(int(f.Fd()))}
}

func (p printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

// Heading renders a section title.
func (p printer) Heading(s string) string {
	return p.render(lipgloss.NewStyle().Bold(true).Foreground(colourPrimary), s)
}

// Muted renders secondary detail such as paths.
func (p printer) Muted(s string) string {
	return p.render(lipgloss.NewStyle().Foreground(colourMuted), s)
}

// Warning renders a caution.
func (p printer) Warning(s string) string {
	return p.render(lipgloss.NewStyle().Foreground(colourWarning), s)
}

// Success renders a positive outcome.
func (p printer) Success(s string) string {
	return p.render(lipgloss.NewStyle().Foreground(colourSuccess), s)
}
