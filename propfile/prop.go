// Package propfile implements reading of Java/Mozilla .properties
// localization files.
//
// Format: key=value pairs, one per line. Lines starting with '#' or '!'
// are comments. A trailing backslash continues the value on the next
// line. Escape sequences \n, \t, \r, \\ and \uXXXX are resolved, so
// accessors return the final textual value a consumer would see.
package propfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// File represents a parsed .properties file.
type File struct {
	// keys in document order.
	keys []string
	// values maps key → resolved value.
	values map[string]string
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a .properties file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses .properties content from a byte slice.
func Parse(data []byte) (*File, error) {
	f := &File{values: make(map[string]string)}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	rawLines := strings.Split(text, "\n")

	for i := 0; i < len(rawLines); i++ {
		trimmed := strings.TrimSpace(rawLines[i])

		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
			continue
		}

		// Join continuation lines before splitting key from value.
		logical := trimmed
		for hasContinuation(logical) && i+1 < len(rawLines) {
			i++
			logical = logical[:len(logical)-1] + strings.TrimSpace(rawLines[i])
		}

		k, v := splitKeyValue(logical)
		if k == "" {
			continue
		}
		if _, exists := f.values[k]; !exists {
			f.keys = append(f.keys, k)
		}
		// Duplicate key: last occurrence wins, position of the first kept.
		f.values[k] = unescape(v)
	}

	return f, nil
}

// hasContinuation reports whether a line ends with an odd number of
// backslashes, i.e. the final backslash is not itself escaped.
func hasContinuation(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitKeyValue splits "key = value" or "key:value" into key and value.
func splitKeyValue(s string) (key, value string) {
	for i, ch := range s {
		if ch == '=' || ch == ':' {
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
		}
	}
	// No separator — treat the whole line as a key with empty value.
	return strings.TrimSpace(s), ""
}

// unescape resolves \n, \t, \r, \\ and \uXXXX sequences.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'u':
			if i+4 < len(s) {
				if code, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
					b.WriteRune(rune(code))
					i += 4
					continue
				}
			}
			b.WriteByte('u')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Keys returns all translation keys in document order.
func (f *File) Keys() []string {
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Get returns the resolved value for key and whether it was found.
func (f *File) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}
