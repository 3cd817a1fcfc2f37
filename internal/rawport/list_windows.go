//go:build windows

package rawport

import (
	"errors"
	"sort"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// AvailablePorts lists the COM ports registered by the serial drivers.
func AvailablePorts() ([]string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `HARDWARE\DEVICEMAP\SERIALCOMM`, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer k.Close()

	names, err := k.ReadValueNames(0)
	if err != nil {
		return nil, err
	}

	ports := make([]string, 0, len(names))
	for _, name := range names {
		port, _, err := k.GetStringValue(name)
		if err != nil {
			continue
		}
		ports = append(ports, port)
	}
	sort.Strings(ports)
	return ports, nil
}

// IsCharDevice reports whether path names a COM port.
func IsCharDevice(path string) bool {
	name := strings.TrimPrefix(path, `\\.\`)
	return strings.HasPrefix(strings.ToUpper(name), "COM")
}
