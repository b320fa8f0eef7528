// Package pofile implements reading of GNU gettext PO files as legacy
// translation sources.
//
// Only what a migration needs is modeled: the msgid → msgstr mapping.
// Context-qualified messages use the gettext convention "ctxt\x04id" as
// the key. The header entry (empty msgid), obsolete entries (#~) and
// untranslated entries are omitted from the collection.
package pofile

import (
	"fmt"
	"os"
	"strings"
)

// File represents a parsed PO file.
type File struct {
	// keys in document order.
	keys []string
	// values maps key → translated value.
	values map[string]string
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a PO file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses PO content from a byte slice.
func Parse(data []byte) (*File, error) {
	f := &File{values: make(map[string]string)}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	var ctxt, id, str string
	var target *string // the field continuation lines append to

	// flush records the entry accumulated so far and resets all entry
	// state. It decides on the captured fields, never on target: plural
	// lines (msgid_plural, msgstr[N>0]) clear target to skip their
	// continuations, but the entry's msgid and msgstr[0] must still be
	// recorded, and nothing may leak into the next entry.
	flush := func() {
		if id != "" && str != "" {
			key := id
			if ctxt != "" {
				key = ctxt + "\x04" + id
			}
			if _, exists := f.values[key]; !exists {
				f.keys = append(f.keys, key)
			}
			f.values[key] = str
		}
		ctxt, id, str = "", "", ""
		target = nil
	}

	for lineNo, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			// Comments, flags, references and obsolete entries (#~)
			// end the current entry.
			flush()

		case strings.HasPrefix(line, "msgctxt "):
			flush()
			s, err := unquote(strings.TrimPrefix(line, "msgctxt "))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			ctxt = s
			target = &ctxt

		case strings.HasPrefix(line, "msgid_plural "):
			// Plural source string: not a key, skip its continuations.
			target = nil

		case strings.HasPrefix(line, "msgid "):
			if id != "" || str != "" {
				flush()
			}
			s, err := unquote(strings.TrimPrefix(line, "msgid "))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			id = s
			target = &id

		case strings.HasPrefix(line, "msgstr[0] "):
			s, err := unquote(strings.TrimPrefix(line, "msgstr[0] "))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			str = s
			target = &str

		case strings.HasPrefix(line, "msgstr["):
			// Further plural forms are not part of the key/value view.
			target = nil

		case strings.HasPrefix(line, "msgstr "):
			s, err := unquote(strings.TrimPrefix(line, "msgstr "))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			str = s
			target = &str

		case strings.HasPrefix(line, `"`):
			if target == nil {
				continue
			}
			s, err := unquote(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
			}
			*target += s

		default:
			return nil, fmt.Errorf("line %d: unexpected PO line %q", lineNo+1, line)
		}
	}
	flush()

	return f, nil
}

// unquote strips surrounding double quotes and resolves \n, \t, \",
// \\ escapes.
func unquote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("malformed PO string %q", s)
	}
	s = s[1 : len(s)-1]

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Keys returns all translated message keys in document order.
func (f *File) Keys() []string {
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Get returns the translation for key and whether it was found.
func (f *File) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}
