// Package keys defines the key bindings of the serial console.
package keys

import "github.com/charmbracelet/bubbles/key"

// Map holds every binding. Normal mode bindings are single keys, insert
// mode only reacts to keys that cannot be typed into the input line.
type Map struct {
	// normal mode
	Quit             key.Binding
	Help             key.Binding
	Insert           key.Binding
	Clear            key.Binding
	ToggleHex        key.Binding
	ToggleASCII      key.Binding
	ToggleTimestamps key.Binding
	ScrollUp         key.Binding
	ScrollDown       key.Binding
	Top              key.Binding
	Bottom           key.Binding
	Break            key.Binding
	DiscardInput     key.Binding

	// insert mode
	Escape         key.Binding
	Send           key.Binding
	ToggleSendMode key.Binding
	HistoryUp      key.Binding
	HistoryDown    key.Binding

	readOnly bool
}

// New returns the bindings. A read-only map leaves out everything that
// writes to the port.
func New(readOnly bool) Map {
	m := Map{
		Quit:             key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:             key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Insert:           key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "insert mode")),
		Clear:            key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		ToggleHex:        key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "toggle hex")),
		ToggleASCII:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle ascii")),
		ToggleTimestamps: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle timestamps")),
		ScrollUp:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		ScrollDown:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		Top:              key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:           key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "follow")),
		Break:            key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "send break")),
		DiscardInput:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "discard input")),

		Escape:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "normal mode")),
		Send:           key.NewBinding(key.WithKeys("enter", "ctrl+s"), key.WithHelp("enter", "send")),
		ToggleSendMode: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "ascii/hex")),
		HistoryUp:      key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous")),
		HistoryDown:    key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next")),

		readOnly: readOnly,
	}
	if readOnly {
		for _, b := range []*key.Binding{&m.Insert, &m.Break, &m.Escape, &m.Send, &m.ToggleSendMode, &m.HistoryUp, &m.HistoryDown} {
			b.SetEnabled(false)
		}
	}
	return m
}

func (m Map) ShortHelp() []key.Binding {
	if m.readOnly {
		return []key.Binding{m.Help, m.Clear, m.Quit}
	}
	return []key.Binding{m.Help, m.Insert, m.Send, m.Quit}
}

func (m Map) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.Insert, m.Escape, m.Send, m.ToggleSendMode, m.HistoryUp, m.HistoryDown},
		{m.ToggleHex, m.ToggleASCII, m.ToggleTimestamps, m.Clear},
		{m.ScrollUp, m.ScrollDown, m.Top, m.Bottom},
		{m.Break, m.DiscardInput, m.Help, m.Quit},
	}
}
