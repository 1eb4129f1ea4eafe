// Package ui holds the terminal styles shared by the CLI commands.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// RenderOK styles a success value, typically the online status.
func RenderOK(s string) string { return okStyle.Render(s) }

// RenderWarn styles a transient state, typically syncing.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail styles an error value, typically the offline status.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderAccent styles identifiers and counts.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderDim styles secondary detail such as timestamps.
func RenderDim(s string) string { return dimStyle.Render(s) }

// RenderHeader styles section headings.
func RenderHeader(s string) string { return headerStyle.Render(s) }
