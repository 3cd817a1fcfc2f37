package serial

import (
	"path/filepath"
	"strings"

	"github.com/allbin/go-serial-async/internal/rawport"
)

// ListPorts returns a list of available serial ports on the system
// Filters for communication-capable devices and excludes virtual terminals
func ListPorts() ([]string, error) {
	return rawport.AvailablePorts()
}

// AvailablePorts is ListPorts.
func AvailablePorts() ([]string, error) {
	return ListPorts()
}

// PortInfo holds detailed information about a serial port
type PortInfo struct {
	Name         string
	Path         string
	Description  string
	VendorID     string
	ProductID    string
	SerialNumber string
	Manufacturer string
	Product      string

	// USB topology, empty for non-USB ports
	BusNumber       string
	DeviceNumber    string
	InterfaceNumber string
}

// IsUSB reports whether USB metadata was found for the port.
func (i *PortInfo) IsUSB() bool {
	return i.VendorID != "" || i.ProductID != ""
}

// GetPortInfo returns detailed information about a specific port
func GetPortInfo(portPath string) (*PortInfo, error) {
	if !rawport.IsCharDevice(portPath) {
		return nil, ErrDeviceNotFound
	}

	name := filepath.Base(portPath)
	info := &PortInfo{
		Name:        name,
		Path:        portPath,
		Description: getPortDescription(name),
	}

	if strings.HasPrefix(name, "ttyUSB") || strings.HasPrefix(name, "ttyACM") {
		enrichUSBInfo(info)
	}
	return info, nil
}

// getPortDescription provides human-readable descriptions for different port types
func getPortDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	case strings.HasPrefix(strings.ToUpper(name), "COM"):
		return "COM Port"
	default:
		return "Serial Port"
	}
}
