package components

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/allbin/go-serial-async/internal/tui/colors"
	"github.com/allbin/go-serial-async/internal/tui/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type SendingMode int

const (
	SendingModeASCII SendingMode = iota
	SendingModeHex
)

func (s SendingMode) String() string {
	if s == SendingModeHex {
		return "HEX"
	}
	return "ASCII"
}

const (
	asciiPlaceholder = "Type message and press Enter to send..."
	hexPlaceholder   = "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)..."
	historyLimit     = 100
)

var errEmptyInput = errors.New("empty input")

// Input is the line editor for outgoing data, with a small history.
type Input struct {
	textInput  textinput.Model
	mode       SendingMode
	lineEnding string

	history []string
	pos     int // index into history while browsing, -1 otherwise
	draft   string

	width int
}

// NewInput returns an ASCII mode input that appends lineEnding to
// every message.
func NewInput(lineEnding string) *Input {
	ti := textinput.New()
	ti.Placeholder = asciiPlaceholder
	ti.CharLimit = 1024
	ti.Prompt = ""
	return &Input{textInput: ti, lineEnding: lineEnding, pos: -1}
}

func (i *Input) SetWidth(width int) {
	i.width = width
	// border, padding, prompt and its space
	i.textInput.Width = max(width-6, 20)
}

func (i *Input) Focus() tea.Cmd { return i.textInput.Focus() }

func (i *Input) Blur() { i.textInput.Blur() }

func (i *Input) Value() string { return i.textInput.Value() }

func (i *Input) SetValue(v string) { i.textInput.SetValue(v) }

func (i *Input) Mode() SendingMode { return i.mode }

func (i *Input) ToggleSendingMode() {
	if i.mode == SendingModeASCII {
		i.mode = SendingModeHex
		i.textInput.Placeholder = hexPlaceholder
	} else {
		i.mode = SendingModeASCII
		i.textInput.Placeholder = asciiPlaceholder
	}
}

// Payload converts the current line into the bytes to transmit.
func (i *Input) Payload() ([]byte, error) {
	v := i.textInput.Value()
	if i.mode == SendingModeHex {
		return ParseHex(v)
	}
	if v == "" {
		return nil, errEmptyInput
	}
	return []byte(v + i.lineEnding), nil
}

// ParseHex accepts "48656C6C6F", "48 65 6C 6C 6F" and "0x48 0x65".
func ParseHex(s string) ([]byte, error) {
	s = strings.NewReplacer("0x", "", "0X", "").Replace(s)
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, errEmptyInput
	}
	return hex.DecodeString(s)
}

// Commit stores the current line in the history and clears it.
func (i *Input) Commit() {
	line := strings.TrimSpace(i.textInput.Value())
	if line != "" && (len(i.history) == 0 || i.history[len(i.history)-1] != line) {
		i.history = append(i.history, line)
		if len(i.history) > historyLimit {
			i.history = i.history[1:]
		}
	}
	i.pos, i.draft = -1, ""
	i.textInput.SetValue("")
}

// HistoryUp recalls the previous line, saving the unsent draft first.
func (i *Input) HistoryUp() {
	if len(i.history) == 0 {
		return
	}
	switch {
	case i.pos == -1:
		i.draft = i.textInput.Value()
		i.pos = len(i.history) - 1
	case i.pos > 0:
		i.pos--
	}
	i.textInput.SetValue(i.history[i.pos])
}

// HistoryDown moves towards the newest line and finally back to the draft.
func (i *Input) HistoryDown() {
	if i.pos == -1 {
		return
	}
	if i.pos < len(i.history)-1 {
		i.pos++
		i.textInput.SetValue(i.history[i.pos])
		return
	}
	i.pos = -1
	i.textInput.SetValue(i.draft)
	i.draft = ""
}

func (i *Input) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return cmd
}

// View renders the input box. Outside insert mode it shows a hint instead.
func (i *Input) View(insert bool) string {
	prompt := styles.Indicator(colors.Green).Render(">")
	if i.mode == SendingModeHex {
		prompt = styles.Indicator(colors.Yellow).Render("#")
	}

	body := styles.HintStyle.Render("Press 'i' to enter insert mode")
	if insert {
		body = i.textInput.View()
	}

	style := styles.InputStyle.Width(max(i.width-4, 10))
	if insert {
		style = style.BorderForeground(colors.Green)
	}
	return style.Render(lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", body))
}
