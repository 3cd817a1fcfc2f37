//go:build windows

package serial

// enrichUSBInfo is a no-op on Windows; COM port names carry no USB path.
func enrichUSBInfo(info *PortInfo) {}
