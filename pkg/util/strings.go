package util

import "unicode/utf8"

// MaxLogBodySize is the default maximum body size for logging (4KB).
const MaxLogBodySize = 4 * 1024

const truncatedSuffix = "...(truncated)"

// TruncateBody caps data at maxSize bytes for logging, appending
// "...(truncated)" when it was cut. The cut never splits a UTF-8 sequence.
// If maxSize <= 0, MaxLogBodySize is used.
func TruncateBody(data string, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxLogBodySize
	}
	if len(data) <= maxSize {
		return data
	}
	cut := maxSize
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return data[:cut] + truncatedSuffix
}

// TruncateBytes is TruncateBody for byte slices.
func TruncateBytes(data []byte, maxSize int) string {
	if maxSize <= 0 {
		maxSize = MaxLogBodySize
	}
	if len(data) > maxSize {
		return TruncateBody(string(data[:maxSize+1]), maxSize)
	}
	return string(data)
}
