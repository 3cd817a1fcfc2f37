//go:build windows

package serial

// Pair is not available on Windows, which has no pseudo-terminals that
// behave like serial ports.
func Pair(opts ...Option) (*Port, *Port, error) {
	return nil, nil, ErrNotSupported
}
