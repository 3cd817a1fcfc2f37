// Package models holds the bubbletea model behind the listen and connect
// commands.
package models

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allbin/go-serial-async"
	"github.com/allbin/go-serial-async/internal/tui/components"
	"github.com/allbin/go-serial-async/internal/tui/keys"
	"github.com/allbin/go-serial-async/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	if m == InputModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// ConnectedMsg hands the opened port to the model.
type ConnectedMsg struct {
	Port   *serial.Port
	Config serial.Config
}

// DisconnectedMsg reports that the port could not be opened or failed.
type DisconnectedMsg struct{ Err error }

// DataMsg carries bytes read from the port.
type DataMsg struct {
	Timestamp time.Time
	Data      []byte
}

// SignalsMsg carries new modem input line states.
type SignalsMsg struct{ Signals serial.ModemSignals }

// TxDoneMsg reports how transmission ID ended.
type TxDoneMsg struct {
	ID  int
	N   int
	Err error
}

// NoteMsg puts an informational line in the terminal.
type NoteMsg struct{ Text string }

type tickMsg time.Time

// Options configure a Console.
type Options struct {
	// ReadOnly hides the input line and everything that writes.
	ReadOnly bool
	Format   components.Format
	// LineEnding is appended to ASCII input.
	LineEnding string
	// WriteTimeout bounds each transmission. Zero waits for the port.
	WriteTimeout  time.Duration
	BreakDuration time.Duration
}

// Console shows port traffic and, unless read-only, sends input lines.
// Reading, writing and modem line polling all run concurrently on shared
// references to one port.
type Console struct {
	path string
	opts Options

	ctx    context.Context
	cancel context.CancelFunc
	port   *serial.Port

	mode      InputMode
	ready     bool
	nextTxID  int
	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.Map
	now       time.Time
}

func NewConsole(path string, opts Options) *Console {
	if opts.BreakDuration <= 0 {
		opts.BreakDuration = 250 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	terminal := components.NewTerminal(80, 20)
	terminal.SetFormat(opts.Format)
	return &Console{
		path:      path,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		terminal:  terminal,
		statusBar: components.NewStatusBar(path),
		input:     components.NewInput(opts.LineEnding),
		help:      help.New(),
		keys:      keys.New(opts.ReadOnly),
		now:       time.Now(),
	}
}

// Start opens the port in the background and starts the reader and the
// modem line watcher. send is normally (*tea.Program).Send.
func (c *Console) Start(send func(tea.Msg), open func() (*serial.Port, error)) {
	go func() {
		port, err := open()
		if err != nil {
			send(DisconnectedMsg{Err: err})
			return
		}

		reader, err := port.Share()
		if err != nil {
			port.Close()
			send(DisconnectedMsg{Err: err})
			return
		}
		go readLoop(c.ctx, reader, send)

		if watcher, err := port.Share(); err == nil {
			go watchSignals(c.ctx, watcher, send)
		}

		config, err := port.Config()
		if err != nil {
			config = serial.DefaultConfig()
		}
		send(ConnectedMsg{Port: port, Config: config})
	}()
}

// Shutdown stops the background goroutines and releases the port.
func (c *Console) Shutdown() {
	c.cancel()
	if c.port != nil {
		c.port.Close()
		c.port = nil
	}
}

// readLoop forwards everything read from port until ctx ends or the port
// fails. It owns port and closes it on return.
func readLoop(ctx context.Context, port *serial.Port, send func(tea.Msg)) {
	defer port.Close()
	buf := make([]byte, 4096)
	for {
		n, err := port.ReadContext(ctx, buf)
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, serial.ErrPortClosed) {
				send(DisconnectedMsg{Err: err})
			}
			return
		}
		send(DataMsg{Timestamp: time.Now(), Data: bytes.Clone(buf[:n])})
	}
}

// watchSignals reports input line changes until ctx ends. Devices without
// modem lines, such as pseudo-terminals, end it on the first read.
func watchSignals(ctx context.Context, port *serial.Port, send func(tea.Msg)) {
	defer port.Close()
	signals, err := port.GetModemSignals()
	if err != nil {
		return
	}
	send(SignalsMsg{Signals: signals})
	mask := serial.SignalCTS | serial.SignalDSR | serial.SignalRI | serial.SignalDCD
	for {
		signals, _, err = port.WaitForSignalChange(ctx, mask)
		if err != nil {
			return
		}
		send(SignalsMsg{Signals: signals})
	}
}

func (c *Console) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (c *Console) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.resize(msg.Width, msg.Height)
		return c, nil

	case tickMsg:
		c.now = time.Time(msg)
		return c, tick()

	case ConnectedMsg:
		if c.ctx.Err() != nil {
			msg.Port.Close()
			return c, nil
		}
		c.port = msg.Port
		c.statusBar.SetConnected(msg.Config)
		c.note(fmt.Sprintf("connected to %s (%s)", c.path, msg.Config))
		return c, nil

	case DisconnectedMsg:
		c.statusBar.SetDisconnected(msg.Err)
		if msg.Err != nil {
			c.note("disconnected: " + msg.Err.Error())
		}
		return c, nil

	case DataMsg:
		c.statusBar.AddRX(len(msg.Data))
		c.terminal.Add(components.Event{
			Timestamp: msg.Timestamp,
			Direction: components.DirectionRX,
			Data:      msg.Data,
		})
		return c, nil

	case SignalsMsg:
		c.statusBar.SetSignals(msg.Signals)
		return c, nil

	case TxDoneMsg:
		c.statusBar.AddTX(msg.N)
		status := components.TxSent
		if msg.Err != nil {
			status = components.TxFailed
		}
		c.terminal.Resolve(msg.ID, status, msg.Err)
		return c, nil

	case NoteMsg:
		c.note(msg.Text)
		return c, nil

	case tea.KeyMsg:
		if c.mode == InputModeInsert {
			return c, c.updateInsert(msg)
		}
		return c, c.updateNormal(msg)
	}
	return c, nil
}

func (c *Console) updateNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, c.keys.Quit):
		c.Shutdown()
		return tea.Quit
	case key.Matches(msg, c.keys.Help):
		c.help.ShowAll = !c.help.ShowAll
	case key.Matches(msg, c.keys.Insert):
		c.mode = InputModeInsert
		return c.input.Focus()
	case key.Matches(msg, c.keys.Clear):
		c.terminal.Clear()
	case key.Matches(msg, c.keys.ToggleHex):
		c.terminal.ToggleHex()
	case key.Matches(msg, c.keys.ToggleASCII):
		c.terminal.ToggleASCII()
	case key.Matches(msg, c.keys.ToggleTimestamps):
		c.terminal.ToggleTimestamps()
	case key.Matches(msg, c.keys.ScrollUp):
		c.terminal.ScrollUp(1)
	case key.Matches(msg, c.keys.ScrollDown):
		c.terminal.ScrollDown(1)
	case key.Matches(msg, c.keys.Top):
		c.terminal.GotoTop()
	case key.Matches(msg, c.keys.Bottom):
		c.terminal.GotoBottom()
	case key.Matches(msg, c.keys.Break):
		return c.sendBreak()
	case key.Matches(msg, c.keys.DiscardInput):
		return c.discardInput()
	}
	return nil
}

func (c *Console) updateInsert(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, c.keys.Escape):
		c.mode = InputModeNormal
		c.input.Blur()
		return nil
	case key.Matches(msg, c.keys.Send):
		return c.transmit()
	case key.Matches(msg, c.keys.HistoryUp):
		c.input.HistoryUp()
		return nil
	case key.Matches(msg, c.keys.HistoryDown):
		c.input.HistoryDown()
		return nil
	case key.Matches(msg, c.keys.ToggleSendMode):
		c.input.ToggleSendingMode()
		return nil
	}
	return c.input.Update(msg)
}

// transmit queues the input line as a pending TX event and returns the
// command that writes it. Several transmissions may be in flight; the
// port writes them one after another.
func (c *Console) transmit() tea.Cmd {
	data, err := c.input.Payload()
	if err != nil {
		c.note("not sent: " + err.Error())
		return nil
	}
	c.input.Commit()
	if c.port == nil {
		c.note("not sent: port is not open")
		return nil
	}

	c.nextTxID++
	id := c.nextTxID
	c.terminal.Add(components.Event{
		ID:        id,
		Timestamp: time.Now(),
		Direction: components.DirectionTX,
		Data:      data,
		Status:    components.TxPending,
	})

	port, ctx, timeout := c.port, c.ctx, c.opts.WriteTimeout
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		n, err := port.WriteContext(ctx, data)
		return TxDoneMsg{ID: id, N: n, Err: err}
	}
}

func (c *Console) sendBreak() tea.Cmd {
	port, ctx, d := c.port, c.ctx, c.opts.BreakDuration
	if port == nil {
		return nil
	}
	return func() tea.Msg {
		if err := port.SendBreak(ctx, d); err != nil {
			return NoteMsg{Text: "break failed: " + err.Error()}
		}
		return NoteMsg{Text: fmt.Sprintf("sent %v break", d)}
	}
}

func (c *Console) discardInput() tea.Cmd {
	port := c.port
	if port == nil {
		return nil
	}
	return func() tea.Msg {
		if err := port.DiscardInput(); err != nil {
			return NoteMsg{Text: "discard failed: " + err.Error()}
		}
		return NoteMsg{Text: "discarded pending input"}
	}
}

func (c *Console) note(text string) {
	c.terminal.Add(components.Event{
		Timestamp: time.Now(),
		Direction: components.DirectionNote,
		Data:      []byte(text),
	})
}

func (c *Console) resize(width, height int) {
	// status bar, plus the bordered input line unless read-only
	reserved := 1
	if !c.opts.ReadOnly {
		reserved += 3
	}
	c.terminal.SetSize(width, height-reserved-1)
	c.input.SetWidth(width)
	c.statusBar.SetWidth(width)
	c.help.Width = width
	c.ready = true
}

func (c *Console) View() string {
	content := "Initializing..."
	if c.ready {
		content = c.terminal.View()
	}

	parts := []string{styles.ContentBorderStyle.Render(content)}
	if c.help.ShowAll {
		parts = append(parts, styles.HelpStyle.Render(c.help.View(c.keys)))
	}
	if !c.opts.ReadOnly {
		parts = append(parts, c.input.View(c.mode == InputModeInsert))
	}
	parts = append(parts, c.statusBar.Render(c.mode.String(), c.input.Mode().String(), c.terminal.Following(), c.now))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
