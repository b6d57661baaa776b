package format

import (
	"math"
	"strconv"
)

// Unknown is rendered in place of a size that is missing or not a number.
const Unknown = "?"

var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatSize converts a byte count into a human-readable string (e.g., "45.2 MB").
// The count is divided by 1024 until it drops below 1024; PB absorbs anything larger.
func FormatSize(b float64) string {
	if math.IsNaN(b) || math.IsInf(b, 0) {
		return Unknown
	}
	exp := 0
	for b >= 1024 && exp < len(sizeUnits)-1 {
		b /= 1024
		exp++
	}
	var buf [24]byte
	s := strconv.AppendFloat(buf[:0], b, 'f', 1, 64)
	return string(s) + " " + sizeUnits[exp]
}

// FormatSizePtr is FormatSize for optional sizes; nil yields Unknown.
func FormatSizePtr(b *float64) string {
	if b == nil {
		return Unknown
	}
	return FormatSize(*b)
}
