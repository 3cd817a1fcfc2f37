package rawport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeOK},
		{"would block", ErrWouldBlock, OutcomeWouldBlock},
		{"wrapped would block", fmt.Errorf("read: %w", ErrWouldBlock), OutcomeWouldBlock},
		{"other", errors.New("boom"), OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	valid := Settings{BaudRate: 115200, DataBits: 8, StopBits: 1}

	tests := []struct {
		name   string
		modify func(*Settings)
		want   error
	}{
		{"valid", func(*Settings) {}, nil},
		{"zero baud", func(s *Settings) { s.BaudRate = 0 }, ErrInvalidBaudRate},
		{"data bits low", func(s *Settings) { s.DataBits = 4 }, ErrInvalidConfig},
		{"data bits high", func(s *Settings) { s.DataBits = 9 }, ErrInvalidConfig},
		{"stop bits", func(s *Settings) { s.StopBits = 3 }, ErrInvalidConfig},
		{"parity", func(s *Settings) { s.Parity = Parity(42) }, ErrInvalidConfig},
		{"flow control", func(s *Settings) { s.FlowControl = FlowControl(-1) }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.modify(&s)
			assert.ErrorIs(t, s.Validate(), tt.want)
			if tt.want == nil {
				assert.NoError(t, s.Validate())
			}
		})
	}
}

func TestSettingsString(t *testing.T) {
	s := Settings{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: ParityEven}
	assert.Equal(t, "9600 7E2", s.String())
	assert.Equal(t, "RTS/CTS", FlowControlRTSCTS.String())
	assert.Equal(t, "Parity(9)", Parity(9).String())
}
