package serial

import (
	"log/slog"
	"time"

	"github.com/allbin/go-serial-async/internal/rawport"
)

// Parity represents the parity mode
type Parity = rawport.Parity

const (
	ParityNone  = rawport.ParityNone
	ParityOdd   = rawport.ParityOdd
	ParityEven  = rawport.ParityEven
	ParityMark  = rawport.ParityMark
	ParitySpace = rawport.ParitySpace
)

// FlowControl represents the flow control mode
type FlowControl = rawport.FlowControl

const (
	FlowControlNone    = rawport.FlowControlNone
	FlowControlRTSCTS  = rawport.FlowControlRTSCTS
	FlowControlXONXOFF = rawport.FlowControlXONXOFF
)

// Config holds the configuration for a serial port
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	FlowControl FlowControl

	// Initial modem line states applied after open. Nil leaves the line
	// as the driver set it.
	InitialRTS *bool
	InitialDTR *bool

	// ReadTimeout and WriteTimeout bound Read and Write. Zero waits
	// indefinitely. ReadContext and WriteContext use their context instead.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// SignalPollInterval is how often WaitForSignalChange samples the
	// modem lines.
	SignalPollInterval time.Duration

	Logger *slog.Logger
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaudRate:           115200,
		DataBits:           8,
		StopBits:           1,
		Parity:             ParityNone,
		FlowControl:        FlowControlNone,
		SignalPollInterval: 10 * time.Millisecond,
	}
}

func (c Config) settings() rawport.Settings {
	return rawport.Settings{
		BaudRate:    c.BaudRate,
		DataBits:    c.DataBits,
		StopBits:    c.StopBits,
		Parity:      c.Parity,
		FlowControl: c.FlowControl,
	}
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// String renders the line settings, e.g. "115200 8N1".
func (c Config) String() string {
	return c.settings().String()
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := rawport.BaudConstant(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		if parity < ParityNone || parity > ParitySpace {
			return ErrInvalidConfig
		}
		c.Parity = parity
		return nil
	}
}

// WithFlowControl sets the flow control mode
func WithFlowControl(fc FlowControl) Option {
	return func(c *Config) error {
		if fc < FlowControlNone || fc > FlowControlXONXOFF {
			return ErrInvalidConfig
		}
		c.FlowControl = fc
		return nil
	}
}

// WithInitialRTS sets the RTS line right after the port is opened
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}

// WithInitialDTR sets the DTR line right after the port is opened
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &state
		return nil
	}
}

// WithReadTimeout bounds each Read call. Zero disables the bound.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithWriteTimeout bounds each Write call. Zero disables the bound.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.WriteTimeout = timeout
		return nil
	}
}

// WithSignalPollInterval sets how often modem lines are sampled while
// waiting for a change
func WithSignalPollInterval(interval time.Duration) Option {
	return func(c *Config) error {
		if interval <= 0 {
			return ErrInvalidConfig
		}
		c.SignalPollInterval = interval
		return nil
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// applyOptions builds a Config from the defaults and opts.
func applyOptions(opts []Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return Config{}, err
		}
	}
	return config, nil
}
