// Package ui provides terminal styling for quizgift CLI output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kkkkikiki/quizgift/internal/migration"
)

// Semantic status colors (adaptive light/dark)
var (
	ColorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

// Status styles
var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// Status icons
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconSkip = "-"
)

// SeparatorLight is printed between report sections
const SeparatorLight = "──────────────────────────────────────────"

// RenderPass renders text with pass (green) styling
func RenderPass(s string) string { return PassStyle.Render(s) }

// RenderWarn renders text with warning (yellow) styling
func RenderWarn(s string) string { return WarnStyle.Render(s) }

// RenderFail renders text with fail (red) styling
func RenderFail(s string) string { return FailStyle.Render(s) }

// RenderMuted renders text with muted (gray) styling
func RenderMuted(s string) string { return MutedStyle.Render(s) }

// RenderCategory renders a section header in uppercase
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator line in muted color
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// StatusIcon returns the styled icon for a migration step status
func StatusIcon(s migration.Status) string {
	switch s {
	case migration.StatusDone:
		return PassStyle.Render(IconPass)
	case migration.StatusFailed:
		return FailStyle.Render(IconFail)
	case migration.StatusPending:
		return WarnStyle.Render(IconWarn)
	default:
		return MutedStyle.Render(IconSkip)
	}
}

// RenderStep renders one migration step as a report line
func RenderStep(s migration.StepResult) string {
	msg := s.Message
	switch s.Status {
	case migration.StatusFailed:
		msg = RenderFail(msg)
	case migration.StatusSkipped:
		msg = RenderMuted(msg)
	}
	return fmt.Sprintf("%s %-15s %s  %s", StatusIcon(s.Status), s.Kind, s.Target, msg)
}

// RenderCheck renders a requirement check result
func RenderCheck(name, errMsg string) string {
	if errMsg == "" {
		return fmt.Sprintf("%s %s", PassStyle.Render(IconPass), name)
	}
	return fmt.Sprintf("%s %s  %s", FailStyle.Render(IconFail), name, RenderFail(errMsg))
}
