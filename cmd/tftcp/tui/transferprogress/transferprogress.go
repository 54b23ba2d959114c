package transferprogress

import (
	"fmt"
	"math"
	"time"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// Model tracks the progress of a single payload. When the payload size is
// unknown, as for downloads which are streamed until the server closes the
// connection, only the transferred byte count and speed are shown.
type Model struct {
	PayloadSize              int64
	bytesTransferred         int64
	progress                 float64
	TransferStartTime        time.Time
	TransferSpeedEstimateBps int64

	Width       int
	progressBar progress.Model
}

func New() Model {
	return Model{
		progressBar: tui.Progressbar,
	}
}

func (m *Model) StartTransfer() {
	m.TransferStartTime = time.Now()
}

func (m Model) BytesTransferred() int64 {
	return m.bytesTransferred
}

func (Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.Width = msg.Width - 2*tui.MARGIN - 4
		if m.Width > tui.MAX_WIDTH {
			m.Width = tui.MAX_WIDTH
		}
		m.progressBar.Width = m.Width
		return m, nil

	case tui.ProgressMsg:
		if m.TransferStartTime.IsZero() {
			m.StartTransfer()
		}
		m.bytesTransferred += int64(msg)
		if secondsSpent := time.Since(m.TransferStartTime).Seconds(); secondsSpent > 0 {
			m.TransferSpeedEstimateBps = int64(float64(m.bytesTransferred) / secondsSpent)
		}
		if m.PayloadSize > 0 {
			m.progress = math.Min(1.0, float64(m.bytesTransferred)/float64(m.PayloadSize))
		}
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progressBar.Update(msg)
		m.progressBar = progressModel.(progress.Model)
		return m, cmd

	default:
		return m, nil
	}
}

func (m Model) View() string {
	speed := tui.HelpStyle(fmt.Sprintf("%s/s", tui.ByteCountSI(m.TransferSpeedEstimateBps)))
	if m.PayloadSize <= 0 {
		return tui.BoldText(tui.ByteCountSI(m.bytesTransferred)) + " " + speed
	}
	return m.progressBar.ViewAs(m.progress) + " " + speed
}
