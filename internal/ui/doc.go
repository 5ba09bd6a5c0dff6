// Package ui styles the command-line output with [lipgloss].
//
// A [Palette] holds the named styles; the Render helpers turn bootstrap state, session details
// and task progress into single status lines. Colors degrade to plain text when the output is
// not a terminal.
package ui
