package serial

import (
	"context"
	"time"

	"github.com/allbin/go-serial-async/internal/rawport"
)

// ModemSignals represents modem control signal states
type ModemSignals = rawport.ModemSignals

// RS4xxConfig is the transceiver configuration of an RS-422/RS-485 port.
type RS4xxConfig = rawport.RS4xxConfig

// TransceiverMode selects RS-232 (default), RS-422 or RS-485 operation.
type TransceiverMode = rawport.TransceiverMode

const (
	TransceiverDefault = rawport.TransceiverDefault
	TransceiverRS422   = rawport.TransceiverRS422
	TransceiverRS485   = rawport.TransceiverRS485
)

// SignalMask identifies which signals to monitor
type SignalMask int

const (
	SignalCTS SignalMask = 1 << iota
	SignalDSR
	SignalRI
	SignalDCD

	signalAll = SignalCTS | SignalDSR | SignalRI | SignalDCD
)

// detectSignalChanges compares old and new signal states to determine what changed
func detectSignalChanges(old, cur ModemSignals) SignalMask {
	var changed SignalMask
	if old.CTS != cur.CTS {
		changed |= SignalCTS
	}
	if old.DSR != cur.DSR {
		changed |= SignalDSR
	}
	if old.RI != cur.RI {
		changed |= SignalRI
	}
	if old.DCD != cur.DCD {
		changed |= SignalDCD
	}
	return changed
}

// control runs fn against the device without taking either guard.
func (p *Port) control(op string, fn func(rawport.Device) error) error {
	h, err := p.handle()
	if err != nil {
		return err
	}
	return opError(op, h.name, h.conn.control(fn))
}

// DiscardBuffers drops unread input and/or untransmitted output.
func (p *Port) DiscardBuffers(input, output bool) error {
	return p.control("discard", func(d rawport.Device) error {
		return d.Discard(input, output)
	})
}

// DiscardInput discards any unread input data
func (p *Port) DiscardInput() error {
	return p.DiscardBuffers(true, false)
}

// DiscardOutput discards any unwritten output data
func (p *Port) DiscardOutput() error {
	return p.DiscardBuffers(false, true)
}

// SetBreak asserts or releases a break condition on the TX line.
func (p *Port) SetBreak(on bool) error {
	return p.control("break", func(d rawport.Device) error {
		return d.SetBreak(on)
	})
}

// SendBreak holds a break condition for d. It waits for any write in
// progress to finish first. The break is released even if ctx ends early.
func (p *Port) SendBreak(ctx context.Context, d time.Duration) error {
	h, err := p.handle()
	if err != nil {
		return err
	}
	if err := h.guard.lockWrite(ctx); err != nil {
		return err
	}
	defer h.guard.unlockWrite()

	if err := p.SetBreak(true); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	var waitErr error
	select {
	case <-timer.C:
	case <-ctx.Done():
		waitErr = contextError(ctx)
	}

	if err := p.SetBreak(false); err != nil {
		return err
	}
	return waitErr
}

// GetModemSignals returns current state of all modem control signals
func (p *Port) GetModemSignals() (ModemSignals, error) {
	var signals ModemSignals
	err := p.control("modem status", func(d rawport.Device) (err error) {
		signals, err = d.ModemSignals()
		return err
	})
	return signals, err
}

// GetCTSStatus returns the current CTS status
func (p *Port) GetCTSStatus() (bool, error) {
	signals, err := p.GetModemSignals()
	return signals.CTS, err
}

// GetRTS returns current RTS signal state
func (p *Port) GetRTS() (bool, error) {
	signals, err := p.GetModemSignals()
	return signals.RTS, err
}

// SetRTS manually sets the RTS signal state
// When true, asserts RTS (signals readiness to receive)
// When false, deasserts RTS (signals not ready)
func (p *Port) SetRTS(state bool) error {
	return p.control("set RTS", func(d rawport.Device) error {
		return d.SetRTS(state)
	})
}

// GetDTR returns current DTR signal state
func (p *Port) GetDTR() (bool, error) {
	signals, err := p.GetModemSignals()
	return signals.DTR, err
}

// SetDTR sets the DTR signal state
func (p *Port) SetDTR(state bool) error {
	return p.control("set DTR", func(d rawport.Device) error {
		return d.SetDTR(state)
	})
}

// WaitForSignalChange waits until one of the input lines in mask changes
// state. It returns the new states and which of the masked lines changed.
// The lines are sampled every Config.SignalPollInterval.
func (p *Port) WaitForSignalChange(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error) {
	if mask == 0 || mask&^signalAll != 0 {
		return ModemSignals{}, 0, ErrInvalidSignalMask
	}

	// Get initial signal state
	old, err := p.GetModemSignals()
	if err != nil {
		return ModemSignals{}, 0, err
	}

	ticker := time.NewTicker(p.h.currentConfig().SignalPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ModemSignals{}, 0, contextError(ctx)
		case <-ticker.C:
		}

		cur, err := p.GetModemSignals()
		if err != nil {
			return ModemSignals{}, 0, err
		}
		if changed := detectSignalChanges(old, cur) & mask; changed != 0 {
			return cur, changed, nil
		}
		old = cur
	}
}

// Drain waits until all output written to the port has been transmitted.
// Writes started after Drain wait for it. The wait runs on a duplicate of
// the device, so a Drain abandoned through ctx never holds up Close.
func (p *Port) Drain(ctx context.Context) error {
	h, err := p.handle()
	if err != nil {
		return err
	}
	if err := h.guard.lockWrite(ctx); err != nil {
		return err
	}
	defer h.guard.unlockWrite()

	var dup rawport.Device
	err = h.conn.control(func(d rawport.Device) (err error) {
		dup, err = d.Dup()
		return err
	})
	if err != nil {
		return opError("drain", h.name, err)
	}

	done := make(chan error, 1)
	go func() {
		err := dup.Drain()
		dup.Close()
		done <- err
	}()

	select {
	case err := <-done:
		return opError("drain", h.name, err)
	case <-ctx.Done():
		h.log.Debug("serial drain abandoned")
		return contextError(ctx)
	}
}

// Reconfigure applies opts on top of the current configuration. It waits
// for in-progress reads and writes to finish and holds new ones off until
// the device has been updated.
func (p *Port) Reconfigure(ctx context.Context, opts ...Option) error {
	h, err := p.handle()
	if err != nil {
		return err
	}

	config := h.currentConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return err
		}
	}

	if err := h.guard.lockBoth(ctx); err != nil {
		return err
	}
	defer h.guard.unlockBoth()

	err = h.conn.control(func(d rawport.Device) error {
		return d.Configure(config.settings())
	})
	if err != nil {
		return opError("configure", h.name, err)
	}

	h.mu.Lock()
	h.config = config
	h.mu.Unlock()

	h.log.Debug("serial port reconfigured", "settings", config.String())
	return nil
}

// Config returns the current configuration with the line settings read
// back from the device.
func (p *Port) Config() (Config, error) {
	var settings rawport.Settings
	err := p.control("get settings", func(d rawport.Device) (err error) {
		settings, err = d.Settings()
		return err
	})
	if err != nil {
		return Config{}, err
	}

	config := p.h.currentConfig()
	config.BaudRate = settings.BaudRate
	config.DataBits = settings.DataBits
	config.StopBits = settings.StopBits
	config.Parity = settings.Parity
	config.FlowControl = settings.FlowControl
	return config, nil
}

// GetRS4xxMode reads the transceiver mode. Only Linux drivers with RS-485
// support implement it; elsewhere it fails with ErrNotSupported or the
// driver's error.
func (p *Port) GetRS4xxMode() (RS4xxConfig, error) {
	var c RS4xxConfig
	err := p.control("get rs4xx mode", func(d rawport.Device) (err error) {
		c, err = d.RS4xxMode()
		return err
	})
	return c, err
}

// SetRS4xxMode switches the transceiver mode. Many ports are fixed in one
// mode by hardware and reject this even when already in the wanted mode.
func (p *Port) SetRS4xxMode(c RS4xxConfig) error {
	return p.control("set rs4xx mode", func(d rawport.Device) error {
		return d.SetRS4xxMode(c)
	})
}
