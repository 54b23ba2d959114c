package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/SpatiumPortae/tftcp/internal/semver"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	MARGIN                  = 2
	MAX_WIDTH               = 80
	PRIMARY_COLOR           = "#B8BABA"
	SECONDARY_COLOR         = "#626262"
	DARK_COLOR              = "#1E1E1E"
	ELEMENT_COLOR           = "#EE9F40"
	SECONDARY_ELEMENT_COLOR = "#EE9F70"
	ERROR_COLOR             = "#CC0000"
	WARNING_COLOR           = "#FF7900"
	SUCCESS_COLOR           = "#34B233"
	SHUTDOWN_PERIOD         = 500 * time.Millisecond
)

var PadText = strings.Repeat(" ", MARGIN)

var Progressbar = progress.New(progress.WithGradient(SECONDARY_ELEMENT_COLOR, ELEMENT_COLOR))

var BaseStyle = lipgloss.NewStyle()
var InfoStyle = BaseStyle.Copy().Foreground(lipgloss.Color(PRIMARY_COLOR)).Render
var HelpStyle = BaseStyle.Copy().Foreground(lipgloss.Color(SECONDARY_COLOR)).Render
var ItalicText = BaseStyle.Copy().Italic(true).Render
var BoldText = BaseStyle.Copy().Bold(true).Render
var ErrorText = BaseStyle.Copy().Foreground(lipgloss.Color(ERROR_COLOR)).Render
var WarningText = BaseStyle.Copy().Foreground(lipgloss.Color(WARNING_COLOR)).Render
var SuccessText = BaseStyle.Copy().Foreground(lipgloss.Color(SUCCESS_COLOR)).Render

var WaitingSpinner = spinner.Spinner{
	Frames: []string{"⠋ ", "⠙ ", "⠹ ", "⠸ ", "⠼ ", "⠴ ", "⠦ ", "⠧ ", "⠇ ", "⠏ "},
	FPS:    time.Second / 12,
}

var TransferSpinner = spinner.Spinner{
	Frames: []string{"»  ", "»» ", "»»»", "   "},
	FPS:    time.Millisecond * 400,
}

var ReceivingSpinner = spinner.Spinner{
	Frames: []string{"   ", "  «", " ««", "«««"},
	FPS:    time.Second / 2,
}

// ------------------------------------------------------ Messages -----------------------------------------------------

// ProgressMsg reports the number of payload bytes moved since the last message.
type ProgressMsg int

// ------------------------------------------------------ Commands -----------------------------------------------------

func ErrorCmd(err error) tea.Cmd {
	return tea.Sequence(
		tea.Println(fmt.Sprintf("%s%s", PadText, ErrorText("✗ "+err.Error()))),
		QuitCmd(),
	)
}

// TaskCmd prints a completed task line above the live view and then runs next.
func TaskCmd(message string, next tea.Cmd) tea.Cmd {
	return tea.Sequence(
		tea.Println(fmt.Sprintf("%s%s %s", PadText, SuccessText("✓"), InfoStyle(message))),
		next,
	)
}

func QuitCmd() tea.Cmd {
	return tea.Sequence(tea.Tick(SHUTDOWN_PERIOD, func(time.Time) tea.Msg { return nil }), tea.Quit)
}

// ------------------------------------------------------- Keys --------------------------------------------------------

type KeyMap struct {
	Quit                   key.Binding
	OverwritePromptYes     key.Binding
	OverwritePromptNo      key.Binding
	OverwritePromptConfirm key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Quit,
		k.OverwritePromptYes,
		k.OverwritePromptNo,
		k.OverwritePromptConfirm,
	}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var Keys = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("(q)", "quit"),
	),
	OverwritePromptYes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("(y)", "overwrite"),
		key.WithDisabled(),
	),
	OverwritePromptNo: key.NewBinding(
		key.WithKeys("n", "N"),
		key.WithHelp("(n)", "skip"),
		key.WithDisabled(),
	),
	OverwritePromptConfirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("(enter)", "confirm"),
		key.WithDisabled(),
	),
}

// ------------------------------------------------------ Helpers ------------------------------------------------------

func LogSeparator(width int) string {
	paddedWidth := width - MARGIN*2
	if paddedWidth > MAX_WIDTH {
		paddedWidth = MAX_WIDTH
	}
	if paddedWidth < 0 {
		paddedWidth = 0
	}
	return fmt.Sprintf("%s\n\n", BaseStyle.Copy().Foreground(lipgloss.Color(SECONDARY_COLOR)).Render(strings.Repeat("─", paddedWidth)))
}

// ByteCountSI formats a byte count with decimal unit prefixes.
func ByteCountSI(b int64) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "kMGTPE"[exp])
}

// VersionText describes how the local version relates to the server version.
func VersionText(local, server semver.Version) string {
	switch local.Compare(server) {
	case semver.CompareNewMajor, semver.CompareOldMajor:
		return ErrorText(fmt.Sprintf("tftcp version (%s) incompatible with server version (%s)", local, server))
	case semver.CompareNewMinor, semver.CompareNewPatch:
		return WarningText(fmt.Sprintf("tftcp version (%s) newer than server version (%s)", local, server))
	case semver.CompareOldMinor, semver.CompareOldPatch:
		return WarningText(fmt.Sprintf("Server version (%s) newer than tftcp version (%s)", server, local))
	default:
		return SuccessText(fmt.Sprintf("tftcp version (%s) compatible with server version (%s)", local, server))
	}
}
