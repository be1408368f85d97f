package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(20)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type row struct {
	label string
	value any
	bad   bool
}

// panel renders a titled key/value box.
func panel(title string, rows []row) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	for _, r := range rows {
		v := goodStyle.Render(fmt.Sprint(r.value))
		if r.bad {
			v = badStyle.Render(fmt.Sprint(r.value))
		}
		b.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r.label), v))
	}
	return boxStyle.Render(b.String())
}
