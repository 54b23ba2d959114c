package transfer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui"
	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui/filetable"
	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui/transferprogress"
	"github.com/SpatiumPortae/tftcp/internal/client"
	"github.com/SpatiumPortae/tftcp/internal/file"
	"github.com/SpatiumPortae/tftcp/internal/stream"
	"github.com/SpatiumPortae/tftcp/protocol/transfer"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/erikgeiser/promptkit"
	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ------------------------------------------------------ tui State -----------------------------------------------------
type tuiState int

// Flows from the top down.
const (
	showOverwritePrompt tuiState = iota
	showConnecting
	showTransferring
	showFinished
	showSkipped
	showFailed
)

// ------------------------------------------------------ Messages -----------------------------------------------------

type doneMsg struct {
	result client.Result
}

type failedMsg struct {
	err error
}

// ------------------------------------------------------- Model -------------------------------------------------------

type Option func(m *model)

// WithPromptOverwrite asks for confirmation before a download replaces an existing local file.
func WithPromptOverwrite(prompt bool) Option {
	return func(m *model) {
		m.promptOverwrite = prompt
	}
}

type model struct {
	state           tuiState
	operation       transfer.Operation
	filename        string
	localPath       string
	promptOverwrite bool

	ctx    context.Context
	cancel context.CancelFunc
	cnf    *client.Config
	msgs   chan int

	result client.Result
	err    error

	width            int
	spinner          spinner.Model
	transferProgress transferprogress.Model
	fileTable        filetable.Model
	overwritePrompt  confirmation.Model
	help             help.Model
	keys             tui.KeyMap
}

func newModel(ctx context.Context, operation transfer.Operation, filename string, cnf *client.Config, opts ...Option) model {
	if cnf.Fs == nil {
		cnf.Fs = afero.NewOsFs()
	}
	ctx, cancel := context.WithCancel(ctx)
	m := model{
		state:            showConnecting,
		operation:        operation,
		filename:         filename,
		localPath:        filename,
		ctx:              ctx,
		cancel:           cancel,
		cnf:              cnf,
		msgs:             make(chan int, 10),
		transferProgress: transferprogress.New(),
		fileTable:        filetable.New(),
		overwritePrompt:  *confirmation.NewModel(confirmation.New("", confirmation.Undecided)),
		help:             help.New(),
		keys:             tui.Keys,
	}
	for _, opt := range opts {
		opt(&m)
	}

	switch operation {
	case transfer.Read:
		prefix := cnf.ReceivedPrefix
		if prefix == "" {
			prefix = file.DEFAULT_RECEIVED_PREFIX
		}
		m.localPath = filepath.Join(cnf.Dir, file.ReceivedName(prefix, filename))
		if exists, _ := afero.Exists(cnf.Fs, m.localPath); exists && m.promptOverwrite {
			m.state = showOverwritePrompt
			m.setupOverwritePrompt()
		}
	case transfer.Write:
		if info, err := cnf.Fs.Stat(filename); err == nil {
			m.transferProgress.PayloadSize = info.Size()
		}
	}
	m.resetSpinner()
	return m
}

// Run executes the transfer while rendering its progress, and returns the
// outcome once the program exits.
func Run(ctx context.Context, operation transfer.Operation, filename string, cnf *client.Config, opts ...Option) (client.Result, error) {
	m := newModel(ctx, operation, filename, cnf, opts...)
	defer m.cancel()

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return client.Result{}, fmt.Errorf("running transfer tui: %w", err)
	}
	fm, ok := final.(model)
	if !ok {
		return client.Result{}, fmt.Errorf("unexpected tui model %T", final)
	}
	switch fm.state {
	case showOverwritePrompt, showConnecting, showTransferring:
		return client.Result{}, context.Canceled
	}
	return fm.result, fm.err
}

func (m model) Init() tea.Cmd {
	if m.state == showOverwritePrompt {
		return tea.Batch(m.spinner.Tick, m.overwritePrompt.Init())
	}
	return m.startCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tui.ProgressMsg:
		cmds := []tea.Cmd{listenProgressCmd(m.msgs)}
		if m.state == showConnecting {
			m.state = showTransferring
			m.resetSpinner()
			m.transferProgress.StartTransfer()
			cmds = append(cmds, m.spinner.Tick)
		}
		transferProgressModel, transferProgressCmd := m.transferProgress.Update(msg)
		m.transferProgress = transferProgressModel.(transferprogress.Model)
		cmds = append(cmds, transferProgressCmd)
		return m, tea.Batch(cmds...)

	case doneMsg:
		m.state = showFinished
		m.result = msg.result
		size := msg.result.Bytes
		m.fileTable.SetFiles([]filetable.File{{Path: msg.result.LocalPath, Size: size}})

		elapsed := time.Duration(0)
		if !m.transferProgress.TransferStartTime.IsZero() {
			elapsed = time.Since(m.transferProgress.TransferStartTime)
		}
		verb := "Sent"
		if m.operation == transfer.Read {
			verb = "Received"
		}
		message := fmt.Sprintf("%s %s (%s) in %s",
			verb, m.filename, tui.ByteCountSI(size), elapsed.Round(time.Millisecond))
		return m, tui.TaskCmd(message, tui.QuitCmd())

	case failedMsg:
		m.state = showFailed
		m.err = msg.err
		return m, tui.ErrorCmd(msg.err)

	case tea.KeyMsg:
		var cmds []tea.Cmd
		if key.Matches(msg, m.keys.Quit) {
			m.cancel()
			return m, tea.Quit
		}

		_, promptCmd := m.overwritePrompt.Update(msg)
		if m.state == showOverwritePrompt {
			switch msg.String() {
			case "left", "right":
				cmds = append(cmds, promptCmd)
			}
			if key.Matches(msg, m.keys.OverwritePromptYes, m.keys.OverwritePromptNo, m.keys.OverwritePromptConfirm) {
				m.keys.OverwritePromptYes.SetEnabled(false)
				m.keys.OverwritePromptNo.SetEnabled(false)
				m.keys.OverwritePromptConfirm.SetEnabled(false)
				shouldOverwrite, _ := m.overwritePrompt.Value()
				if !shouldOverwrite {
					m.state = showSkipped
					m.err = file.ErrFileExists
					return m, tui.TaskCmd(fmt.Sprintf("Skipped %s, the local file was kept", m.localPath), tui.QuitCmd())
				}
				m.state = showConnecting
				m.resetSpinner()
				cmds = append(cmds, m.startCmd())
			}
		}
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		transferProgressModel, transferProgressCmd := m.transferProgress.Update(msg)
		m.transferProgress = transferProgressModel.(transferprogress.Model)

		fileTableModel, fileTableCmd := m.fileTable.Update(msg)
		m.fileTable = fileTableModel.(filetable.Model)

		m.overwritePrompt.MaxWidth = msg.Width - 2*tui.MARGIN - 4
		_, promptCmd := m.overwritePrompt.Update(msg)

		return m, tea.Batch(transferProgressCmd, fileTableCmd, promptCmd)

	default:
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		_, promptCmd := m.overwritePrompt.Update(msg)
		transferProgressModel, transferProgressCmd := m.transferProgress.Update(msg)
		m.transferProgress = transferProgressModel.(transferprogress.Model)
		return m, tea.Batch(spinnerCmd, promptCmd, transferProgressCmd)
	}
}

func (m model) View() string {
	target := tui.BoldText(m.filename)

	switch m.state {

	case showOverwritePrompt:
		waitingText := fmt.Sprintf("%s Waiting for file overwrite confirmation", m.spinner.View())
		return tui.PadText + tui.LogSeparator(m.width) +
			tui.PadText + tui.InfoStyle(waitingText) + "\n\n" +
			tui.PadText + m.overwritePrompt.View() + "\n\n" +
			tui.PadText + m.help.View(m.keys) + "\n\n"

	case showConnecting:
		connectingText := fmt.Sprintf("%s Connecting to %s", m.spinner.View(), m.cnf.Addr)
		return tui.PadText + tui.LogSeparator(m.width) +
			tui.PadText + tui.InfoStyle(connectingText) + "\n\n" +
			tui.PadText + m.help.View(m.keys) + "\n\n"

	case showTransferring:
		var transferText string
		if m.operation == transfer.Read {
			transferText = fmt.Sprintf("%s Receiving %s", m.spinner.View(), target)
		} else {
			transferText = fmt.Sprintf("%s Sending %s (%s)", m.spinner.View(), target,
				tui.BoldText(tui.ByteCountSI(m.transferProgress.PayloadSize)))
		}
		return tui.PadText + tui.LogSeparator(m.width) +
			tui.PadText + tui.InfoStyle(transferText) + "\n\n" +
			tui.PadText + m.transferProgress.View() + "\n\n" +
			tui.PadText + m.help.View(m.keys) + "\n\n"

	case showFinished:
		return tui.PadText + tui.LogSeparator(m.width) +
			m.fileTable.View()

	default:
		return ""
	}
}

// ------------------------------------------------------ Commands -----------------------------------------------------

func (m model) startCmd() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listenProgressCmd(m.msgs), transferCmd(m.ctx, m.operation, m.filename, m.cnf, m.msgs))
}

func transferCmd(ctx context.Context, op transfer.Operation, filename string, cnf *client.Config, msgs chan int) tea.Cmd {
	return func() tea.Msg {
		defer close(msgs)
		progress := stream.Counter(func(n int) {
			select {
			case msgs <- n:
			case <-ctx.Done():
			}
		})

		var (
			res client.Result
			err error
		)
		switch op {
		case transfer.Read:
			res, err = client.Read(ctx, filename, cnf, progress)
		default:
			res, err = client.Write(ctx, filename, cnf, progress)
		}
		if err != nil {
			return failedMsg{err: errors.Wrapf(err, "%s %s", op, filename)}
		}
		return doneMsg{result: res}
	}
}

func listenProgressCmd(msgs chan int) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-msgs
		if !ok {
			return nil
		}
		return tui.ProgressMsg(n)
	}
}

// ------------------------------------------------------ Helpers ------------------------------------------------------

func (m *model) setupOverwritePrompt() {
	m.keys.OverwritePromptYes.SetEnabled(true)
	m.keys.OverwritePromptNo.SetEnabled(true)
	m.keys.OverwritePromptConfirm.SetEnabled(true)

	prompt := confirmation.New(fmt.Sprintf("Overwrite file '%s'?", m.localPath), confirmation.Yes)
	m.overwritePrompt = *confirmation.NewModel(prompt)
	m.overwritePrompt.MaxWidth = m.width
	m.overwritePrompt.WrapMode = promptkit.HardWrap
	m.overwritePrompt.Template = confirmation.TemplateYN
	m.overwritePrompt.ResultTemplate = confirmation.ResultTemplateYN
	m.overwritePrompt.KeyMap.Abort = []string{}
	m.overwritePrompt.KeyMap.Toggle = []string{}
}

func (m *model) resetSpinner() {
	m.spinner = spinner.New()
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(tui.ELEMENT_COLOR))
	switch m.state {
	case showOverwritePrompt, showConnecting:
		m.spinner.Spinner = tui.WaitingSpinner
	case showTransferring:
		if m.operation == transfer.Read {
			m.spinner.Spinner = tui.ReceivingSpinner
		} else {
			m.spinner.Spinner = tui.TransferSpinner
		}
	}
}
