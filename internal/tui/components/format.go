package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/go-serial-async/internal/tui/colors"
	"github.com/allbin/go-serial-async/internal/tui/styles"
)

// Direction tells where an Event came from.
type Direction int

const (
	DirectionRX Direction = iota
	DirectionTX
	DirectionNote
)

// TxStatus tracks a transmission from the input line to the OS.
type TxStatus int

const (
	TxPending TxStatus = iota
	TxSent
	TxFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxSent:
		return "sent"
	case TxFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Event is one line of terminal traffic.
type Event struct {
	ID        int
	Timestamp time.Time
	Direction Direction
	Data      []byte
	Status    TxStatus
	Err       error
}

// Format selects how event payloads are rendered.
type Format struct {
	Hex        bool
	ASCII      bool
	Timestamps bool
}

func DefaultFormat() Format {
	return Format{Hex: true, ASCII: true, Timestamps: true}
}

// Render formats e as a single line.
func (f Format) Render(e Event) string {
	var b strings.Builder
	if f.Timestamps {
		b.WriteString(styles.TimestampStyle.Render("[" + e.Timestamp.Format("15:04:05.000") + "]"))
		b.WriteByte(' ')
	}

	if e.Direction == DirectionNote {
		b.WriteString(styles.NoteStyle.Render("-- " + string(e.Data)))
		return b.String()
	}

	b.WriteString(indicator(e))
	b.WriteString(": ")

	var parts []string
	if f.Hex {
		parts = append(parts, fmt.Sprintf("HEX: % X", e.Data))
	}
	if f.ASCII {
		parts = append(parts, "ASCII: "+Printable(e.Data))
	}
	if !f.Hex && !f.ASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(e.Data)))
	}
	b.WriteString(strings.Join(parts, "  "))

	if e.Err != nil {
		b.WriteString(styles.Indicator(colors.Red).Render("  " + e.Err.Error()))
	}
	return b.String()
}

func indicator(e Event) string {
	if e.Direction == DirectionRX {
		return styles.RXStyle.Render("↙ RX")
	}
	switch e.Status {
	case TxSent:
		return styles.Indicator(colors.Green).Render("↗ TX ✓")
	case TxFailed:
		return styles.Indicator(colors.Red).Render("↗ TX ✗")
	default:
		return styles.Indicator(colors.Yellow).Render("↗ TX ○")
	}
}

// Printable replaces bytes outside printable ASCII with '.', which also
// keeps terminal control sequences out of the view.
func Printable(data []byte) string {
	out := make([]byte, len(data))
	for i, c := range data {
		if c >= 32 && c <= 126 {
			out[i] = c
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}
