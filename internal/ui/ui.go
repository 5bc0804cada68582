// Package ui holds the terminal styles for CLI output.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	faintStyle   = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// RenderAccent styles highlighted text.
func RenderAccent(s string) string {
	return accentStyle.Render(s)
}

// RenderSuccess styles a success message.
func RenderSuccess(s string) string {
	return successStyle.Render(s)
}

// RenderWarn styles a warning.
func RenderWarn(s string) string {
	return warnStyle.Render(s)
}

// RenderError styles an error message.
func RenderError(s string) string {
	return errorStyle.Render(s)
}

// RenderFaint styles secondary text.
func RenderFaint(s string) string {
	return faintStyle.Render(s)
}

// RenderHeader styles a section header.
func RenderHeader(s string) string {
	return headerStyle.Render(s)
}
