// Package dtdfile implements reading of DTD localization files:
// markup-embedded translations declared as XML entities.
//
// Supported declarations:
//
//	<!ENTITY aboutDownloads.title "Downloads">
//	<!ENTITY window.width  '36em'>
//
// XML comments are skipped. Character references (&amp;, &lt;, &gt;,
// &quot;, &apos; and numeric &#…; forms) are resolved in values, so
// accessors return the final textual value.
package dtdfile

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// File represents a parsed DTD file.
type File struct {
	// keys in document order.
	keys []string
	// values maps entity name → resolved value.
	values map[string]string
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

var (
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	entityRe  = regexp.MustCompile(`(?s)<!ENTITY\s+([A-Za-z_][A-Za-z0-9_.-]*)\s+("([^"]*)"|'([^']*)')\s*>`)
	charRefRe = regexp.MustCompile(`&(#x?[0-9A-Fa-f]+|[A-Za-z]+);`)
)

// ParseFile reads and parses a DTD file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses DTD content from a byte slice.
func Parse(data []byte) (*File, error) {
	f := &File{values: make(map[string]string)}

	text := commentRe.ReplaceAllString(string(data), "")

	for _, m := range entityRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		value := m[3]
		if m[2][0] == '\'' {
			value = m[4]
		}
		if _, exists := f.values[name]; !exists {
			f.keys = append(f.keys, name)
		}
		// Duplicate declaration: last one wins, position of the first kept.
		f.values[name] = resolveCharRefs(value)
	}

	return f, nil
}

// resolveCharRefs substitutes XML character and predefined entity
// references. Unknown named references are left untouched.
func resolveCharRefs(s string) string {
	if !strings.ContainsRune(s, '&') {
		return s
	}
	return charRefRe.ReplaceAllStringFunc(s, func(ref string) string {
		name := ref[1 : len(ref)-1]
		switch name {
		case "amp":
			return "&"
		case "lt":
			return "<"
		case "gt":
			return ">"
		case "quot":
			return `"`
		case "apos":
			return "'"
		}
		if strings.HasPrefix(name, "#") {
			digits := name[1:]
			base := 10
			if strings.HasPrefix(digits, "x") || strings.HasPrefix(digits, "X") {
				digits = digits[1:]
				base = 16
			}
			if code, err := strconv.ParseUint(digits, base, 32); err == nil {
				return string(rune(code))
			}
		}
		return ref
	})
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Keys returns all entity names in document order.
func (f *File) Keys() []string {
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Get returns the resolved value for an entity name and whether it
// was found.
func (f *File) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}
