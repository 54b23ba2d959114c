package filetable

import (
	"math"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

const (
	defaultMaxTableHeight         = 4
	nameColumnWidthFactor float64 = 0.8
	sizeColumnWidthFactor float64 = 1 - nameColumnWidthFactor
)

var fileTableStyle = tui.BaseStyle.Copy().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color(tui.SECONDARY_COLOR)).
	MarginLeft(tui.MARGIN)

type Option func(m *Model)

// File is a row of the table.
type File struct {
	Path string
	Size int64
}

type Model struct {
	Width     int
	MaxHeight int
	rows      []File
	table     table.Model
}

func New(opts ...Option) Model {
	m := Model{
		MaxHeight: defaultMaxTableHeight,
		table: table.New(
			table.WithHeight(defaultMaxTableHeight),
		),
	}

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(tui.SECONDARY_COLOR)).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.UnsetBackground().UnsetForeground().Bold(false)
	m.table.SetStyles(s)

	m.updateColumns()
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m *Model) SetFiles(files []File) {
	m.rows = append(m.rows, files...)
	m.table.SetHeight(int(math.Min(float64(m.MaxHeight), float64(len(m.rows)))))
	m.updateColumns()
	m.updateRows()
}

func WithFiles(files ...File) Option {
	return func(m *Model) {
		m.SetFiles(files)
	}
}

func (m *Model) getMaxWidth() int {
	return int(math.Min(tui.MAX_WIDTH-2*tui.MARGIN, float64(m.Width)))
}

func (m *Model) updateColumns() {
	w := m.getMaxWidth()
	m.table.SetColumns([]table.Column{
		{Title: "File", Width: int(float64(w) * nameColumnWidthFactor)},
		{Title: "Size", Width: int(float64(w) * sizeColumnWidthFactor)},
	})
}

func (m *Model) updateRows() {
	var tableRows []table.Row
	maxPathWidth := int(float64(m.getMaxWidth()) * nameColumnWidthFactor)
	for _, row := range m.rows {
		path := row.Path
		// truncate overflowing paths from the left, keeping the file name visible
		if w := runewidth.StringWidth(path); w > maxPathWidth {
			path = runewidth.TruncateLeft(path, w-maxPathWidth+1, "…")
		}
		tableRows = append(tableRows, table.Row{path, tui.ByteCountSI(row.Size)})
	}
	m.table.SetRows(tableRows)
}

func (Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.Width = msg.Width - 2*tui.MARGIN - 4
		if m.Width > tui.MAX_WIDTH {
			m.Width = tui.MAX_WIDTH
		}
		m.updateColumns()
		m.updateRows()
	}
	return m, nil
}

func (m Model) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	return fileTableStyle.Render(m.table.View()) + "\n\n"
}
