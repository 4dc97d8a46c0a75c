package util

import "fmt"

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

// FormatByteCount renders a byte count for humans, e.g. "1.500KiB".
func FormatByteCount(n int64) string {
	value := float64(n)
	unit := byteUnits[0]
	for _, u := range byteUnits {
		unit = u
		if value < 1024.0 {
			break
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.3f%s", value, unit)
}
