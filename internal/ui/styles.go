// Package ui holds the terminal styles for stackmesh's progress output.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorDim   = lipgloss.Color("#6b7280")

	doneStyle    = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle  = lipgloss.NewStyle().Foreground(colorRed)
	skippedStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// Done renders a success outcome word.
func Done(s string) string { return doneStyle.Render(s) }

// Failed renders a failure outcome word.
func Failed(s string) string { return failedStyle.Render(s) }

// Dim renders a de-emphasized outcome word, used for skipped steps.
func Dim(s string) string { return skippedStyle.Render(s) }
