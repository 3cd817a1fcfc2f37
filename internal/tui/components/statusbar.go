package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-serial-async"
	"github.com/allbin/go-serial-async/internal/tui/colors"
	"github.com/allbin/go-serial-async/internal/tui/styles"
	"github.com/charmbracelet/lipgloss"
)

// ConnState is the port's state as shown in the status bar.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateConnected
	StateDisconnected
)

// StatusBar is the single line at the bottom of the screen.
type StatusBar struct {
	portPath string
	width    int
	state    ConnState
	err      error

	config  *serial.Config
	signals *serial.ModemSignals

	rxBytes, txBytes int
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{portPath: portPath}
}

func (sb *StatusBar) SetWidth(width int) { sb.width = width }

func (sb *StatusBar) SetConnected(config serial.Config) {
	sb.state, sb.err = StateConnected, nil
	sb.config = &config
}

// SetDisconnected records why the port went away. A nil err is a clean close.
func (sb *StatusBar) SetDisconnected(err error) {
	sb.state, sb.err = StateDisconnected, err
}

func (sb *StatusBar) State() ConnState { return sb.state }

func (sb *StatusBar) Err() error { return sb.err }

func (sb *StatusBar) SetSignals(s serial.ModemSignals) { sb.signals = &s }

func (sb *StatusBar) AddRX(n int) { sb.rxBytes += n }

func (sb *StatusBar) AddTX(n int) { sb.txBytes += n }

// Render draws the bar: mode badge, port and state on the left, line
// settings, counters and the clock on the right.
func (sb *StatusBar) Render(mode, sendingMode string, follow bool, now time.Time) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}
	insert := mode == "INSERT"
	divider := styles.DividerStyle.Render("│")

	left := []string{
		styles.ModeStyle(insert).Render(mode),
		styles.PortStyle.Render(sb.portPath),
		sb.stateIndicator(),
	}
	if insert {
		left = append(left, styles.Indicator(colors.Peach).Padding(0, 1).Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	if !follow {
		left = append(left, styles.Indicator(colors.Yellow).Padding(0, 1).Render("SCROLL"))
	}
	left = append(left, divider)

	right := []string{
		styles.DetailStyle.Render(sb.details()),
		divider,
		styles.DetailStyle.Render(fmt.Sprintf("RX %d TX %d", sb.rxBytes, sb.txBytes)),
		divider,
		styles.DetailStyle.Foreground(colors.Subtext1).Render(now.Format("15:04:05")),
	}

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, right...)
	spacer := width - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacer < 1 {
		spacer = 1
	}

	return styles.StatusBarStyle.Width(width).Render(
		lipgloss.JoinHorizontal(lipgloss.Left, leftSide, strings.Repeat(" ", spacer), rightSide))
}

func (sb *StatusBar) stateIndicator() string {
	switch {
	case sb.err != nil:
		return styles.Indicator(colors.Red).Render("✗ " + sb.err.Error())
	case sb.state == StateConnected:
		return styles.Indicator(colors.Green).Render("●")
	case sb.state == StateConnecting:
		return styles.Indicator(colors.Yellow).Render("○")
	default:
		return styles.Indicator(colors.Red).Render("○")
	}
}

func (sb *StatusBar) details() string {
	if sb.config == nil {
		return "⚡ serial"
	}
	s := fmt.Sprintf("⚡ %s %s", sb.config, sb.config.FlowControl)
	if sb.signals != nil {
		s += " " + FormatSignals(*sb.signals)
	}
	return s
}

// FormatSignals renders the input lines, upper case when asserted.
func FormatSignals(s serial.ModemSignals) string {
	line := func(name string, on bool) string {
		if on {
			return name
		}
		return strings.ToLower(name)
	}
	return strings.Join([]string{
		line("CTS", s.CTS),
		line("DSR", s.DSR),
		line("DCD", s.DCD),
		line("RI", s.RI),
	}, " ")
}
