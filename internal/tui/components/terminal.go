package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
)

// DefaultHistory is how many events a Terminal keeps.
const DefaultHistory = 5000

// Terminal is a scrollable log of traffic events. While following it keeps
// the newest event in view; scrolling up stops following.
type Terminal struct {
	viewport viewport.Model
	format   Format
	events   []Event
	lines    []string
	follow   bool
	history  int
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport: viewport.New(width, height),
		format:   DefaultFormat(),
		follow:   true,
		history:  DefaultHistory,
	}
}

func (t *Terminal) SetSize(width, height int) {
	if height < 1 {
		height = 1
	}
	t.viewport.Width = width
	t.viewport.Height = height
	t.sync()
}

func (t *Terminal) Width() int { return t.viewport.Width }

func (t *Terminal) Format() Format { return t.format }

func (t *Terminal) SetFormat(f Format) {
	t.format = f
	t.rerender()
}

func (t *Terminal) ToggleHex() {
	t.format.Hex = !t.format.Hex
	t.rerender()
}

func (t *Terminal) ToggleASCII() {
	t.format.ASCII = !t.format.ASCII
	t.rerender()
}

func (t *Terminal) ToggleTimestamps() {
	t.format.Timestamps = !t.format.Timestamps
	t.rerender()
}

// Add appends e, dropping the oldest event once the history is full.
func (t *Terminal) Add(e Event) {
	t.events = append(t.events, e)
	t.lines = append(t.lines, t.format.Render(e))
	if over := len(t.events) - t.history; over > 0 {
		t.events = t.events[over:]
		t.lines = t.lines[over:]
	}
	t.sync()
}

// Resolve records the outcome of the pending transmission with the given
// id. It reports false if that event is no longer in the history.
func (t *Terminal) Resolve(id int, status TxStatus, err error) bool {
	for i := len(t.events) - 1; i >= 0; i-- {
		e := &t.events[i]
		if e.Direction != DirectionTX || e.ID != id {
			continue
		}
		e.Status, e.Err = status, err
		t.lines[i] = t.format.Render(*e)
		t.sync()
		return true
	}
	return false
}

// Events returns the retained events, oldest first.
func (t *Terminal) Events() []Event { return t.events }

func (t *Terminal) Clear() {
	t.events, t.lines = nil, nil
	t.follow = true
	t.sync()
}

func (t *Terminal) Following() bool { return t.follow }

func (t *Terminal) ScrollUp(n int) {
	t.viewport.LineUp(n)
	t.follow = t.viewport.AtBottom()
}

func (t *Terminal) ScrollDown(n int) {
	t.viewport.LineDown(n)
	t.follow = t.viewport.AtBottom()
}

func (t *Terminal) GotoTop() {
	t.viewport.GotoTop()
	t.follow = t.viewport.AtBottom()
}

func (t *Terminal) GotoBottom() {
	t.viewport.GotoBottom()
	t.follow = true
}

func (t *Terminal) View() string {
	return t.viewport.View()
}

func (t *Terminal) rerender() {
	for i, e := range t.events {
		t.lines[i] = t.format.Render(e)
	}
	t.sync()
}

func (t *Terminal) sync() {
	t.viewport.SetContent(strings.Join(t.lines, "\n"))
	if t.follow {
		t.viewport.GotoBottom()
	}
}
