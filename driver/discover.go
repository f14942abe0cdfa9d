package driver

import (
	"runtime"
	"strings"

	"github.com/Pairman/Commander/logger"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// ListPorts enumerates the serial devices present on this machine,
// filtered by OS naming conventions and deduplicated. The first entry is
// the auto-select candidate when no port is named explicitly.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	filtered := filterPorts(ports)
	logger.L().Debug("discovered serial ports",
		zap.Strings("ports", filtered),
		zap.Int("raw", len(ports)))
	return filtered, nil
}

// filterPorts drops device names that cannot be a usable serial link
// (bluetooth endpoints, non-COM names on Windows) and deduplicates.
func filterPorts(ports []string) []string {
	var filtered []string
	seen := make(map[string]bool)

	for _, port := range ports {
		if seen[port] {
			continue
		}
		seen[port] = true

		// Windows: COM ports only
		if runtime.GOOS == "windows" {
			if strings.HasPrefix(strings.ToUpper(port), "COM") {
				filtered = append(filtered, port)
			}
			continue
		}

		// macOS/Linux: filter by name
		lower := strings.ToLower(port)
		if strings.Contains(lower, "bluetooth") {
			continue
		}
		if strings.Contains(lower, "ttyusb") ||
			strings.Contains(lower, "ttyacm") ||
			strings.Contains(lower, "usbserial") ||
			strings.Contains(lower, "cu.") ||
			strings.Contains(lower, "ttys") {
			filtered = append(filtered, port)
		}
	}

	return filtered
}
