//go:build linux

package serial

import (
	"fmt"
	"os"

	"github.com/allbin/go-serial-async/internal/rawport"
	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// Pair opens a pseudo-terminal and returns both ends as Ports. Whatever is
// written to one can be read from the other. Both ends are in raw mode.
func Pair(opts ...Option) (*Port, *Port, error) {
	config, err := applyOptions(opts)
	if err != nil {
		return nil, nil, err
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open pseudo-terminal: %w", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	master, err := detach(ptmx)
	if err != nil {
		return nil, nil, err
	}
	if err := rawport.MakeRaw(master); err != nil {
		master.Close()
		return nil, nil, fmt.Errorf("failed to set raw mode on %s: %w", ptmx.Name(), err)
	}

	slave, err := detach(tty)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	if err := slave.Configure(config.settings()); err != nil {
		master.Close()
		slave.Close()
		return nil, nil, openError(tty.Name(), err)
	}

	// Initial modem lines have no meaning on a pseudo-terminal.
	config.InitialRTS, config.InitialDTR = nil, nil

	a, err := newPort(ptmx.Name(), master, config)
	if err != nil {
		slave.Close()
		return nil, nil, err
	}
	b, err := newPort(tty.Name(), slave, config)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, b, nil
}

// detach duplicates the descriptor behind f in non-blocking mode, so f
// can be closed without affecting the copy.
func detach(f *os.File) (rawport.Device, error) {
	rc, err := f.SyscallConn()
	if err != nil {
		return -1, err
	}

	var dup rawport.Device
	var dupErr error
	if err := rc.Control(func(fd uintptr) {
		dup, dupErr = rawport.Device(fd).Dup()
	}); err != nil {
		return -1, err
	}
	if dupErr != nil {
		return -1, fmt.Errorf("failed to duplicate %s: %w", f.Name(), dupErr)
	}

	if err := unix.SetNonblock(int(dup), true); err != nil {
		dup.Close()
		return -1, err
	}
	return dup, nil
}
