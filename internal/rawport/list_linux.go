//go:build linux

package rawport

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// DevDir is the directory scanned by AvailablePorts.
var DevDir = "/dev"

var (
	serialNames = regexp.MustCompile(`^tty(USB|ACM|S|AMA|mxc|O|SAC|THS)\d+$`)

	// virtual terminals, consoles and pseudo-terminals
	ignoredNames = regexp.MustCompile(`^(tty\d+|console|ptmx|pty.*)$`)
)

// AvailablePorts scans DevDir for serial character devices.
func AvailablePorts() ([]string, error) {
	entries, err := os.ReadDir(DevDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		if ignoredNames.MatchString(name) || !serialNames.MatchString(name) {
			continue
		}
		path := filepath.Join(DevDir, name)
		if IsCharDevice(path) {
			ports = append(ports, path)
		}
	}
	sort.Strings(ports)
	return ports, nil
}

// IsCharDevice reports whether path exists and is a character device.
func IsCharDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
