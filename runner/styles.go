package runner

import "github.com/charmbracelet/lipgloss"

// Semantic colors following nextest/vitest conventions.
var (
	// Status colors.
	colorPass    = lipgloss.Color("#10b981") // green-500
	colorFail    = lipgloss.Color("#ef4444") // red-500
	colorSkip    = lipgloss.Color("#eab308") // yellow-500
	colorRunning = lipgloss.Color("#06b6d4") // cyan-500

	// UI colors.
	colorDim    = lipgloss.Color("#6b7280") // gray-500
	colorMuted  = lipgloss.Color("#9ca3af") // gray-400
	colorAccent = lipgloss.Color("#3b82f6") // blue-500
)

// Styles holds all lipgloss styles for run output.
type Styles struct {
	// Status badges
	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Skip    lipgloss.Style
	Running lipgloss.Style
	Error   lipgloss.Style

	// Text styles
	Dim      lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	StepName lipgloss.Style
	Duration lipgloss.Style
	Stage    lipgloss.Style

	// Symbols
	SymbolPass    string
	SymbolFail    string
	SymbolSkip    string
	SymbolRunning string
	SymbolPointer string

	// Tree characters
	TreeMiddle string
	TreeEnd    string
	TreeBar    string
}

// DefaultStyles returns the default output styles.
func DefaultStyles() *Styles {
	return &Styles{
		Pass:    lipgloss.NewStyle().Foreground(colorPass).Bold(true),
		Fail:    lipgloss.NewStyle().Foreground(colorFail).Bold(true),
		Skip:    lipgloss.NewStyle().Foreground(colorSkip).Bold(true),
		Running: lipgloss.NewStyle().Foreground(colorRunning).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(colorFail).Bold(true),

		Dim:      lipgloss.NewStyle().Foreground(colorDim),
		Muted:    lipgloss.NewStyle().Foreground(colorMuted),
		Bold:     lipgloss.NewStyle().Bold(true),
		StepName: lipgloss.NewStyle().Foreground(lipgloss.Color("#f8fafc")), // slate-50
		Duration: lipgloss.NewStyle().Foreground(colorDim),
		Stage:    lipgloss.NewStyle().Foreground(colorAccent).Bold(true),

		SymbolPass:    "✓",
		SymbolFail:    "✗",
		SymbolSkip:    "↓",
		SymbolRunning: "◐",
		SymbolPointer: "❯",

		TreeMiddle: "├─",
		TreeEnd:    "╰─",
		TreeBar:    "│ ",
	}
}
