// Package reporter renders the human-readable banner and per-stage summary
// lines to stdout, styled with lipgloss, kept separate from the structured
// log lines the orchestrator writes to stderr.
package reporter

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#7D56F4")
	colorSuccess = lipgloss.Color("#04B575")
	colorWarn    = lipgloss.Color("#FFAF00")
	colorError   = lipgloss.Color("#FF5F87")
	colorSubtle  = lipgloss.Color("#767676")

	title   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	value   = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warn    = lipgloss.NewStyle().Foreground(colorWarn)
	failure = lipgloss.NewStyle().Foreground(colorError)
	subtle  = lipgloss.NewStyle().Foreground(colorSubtle)
)

// Banner returns the tool's startup banner.
func Banner() string {
	ascii := `
  _____      _                          _                     _
 |  __ \    | |                        | |                   | |
 | |__) |_ _| |_ _ __ ___   ___ _ __ __| | ___ ___  _ __ ___ | |__
 |  ___/ _' | __| '__/ _ \ / _ \ '__/ _' |/ __/ __|| '_ ' _ \| '_ \
 | |  | (_| | |_| | | (_) |  __/ | | (_| | (__\__ \| | | | | | | |
 |_|   \__,_|\__|_|  \___/ \___|_|  \__,_|\___|___/|_| |_| |_|_| |_|`

	return "\n" + title.Render(ascii) + "\n"
}
