package docdb

import (
	"bytes"

	"github.com/natefinch/atomic"
)

// atomicWrite replaces path with data without readers ever observing a
// partially written file.
func atomicWrite(path string, data []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// indexKey folds a composite key value into one comparable string.
// 0x1f (unit separator) cannot appear in document names.
func indexKey(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	var b bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(p)
	}
	return b.String()
}
