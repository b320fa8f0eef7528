// Package legacy defines the interface to legacy translation resources
// (the formats being migrated away from) and the file-extension dispatch
// table selecting a parser for each of them.
package legacy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minios-linux/ftlkit/dtdfile"
	"github.com/minios-linux/ftlkit/pofile"
	"github.com/minios-linux/ftlkit/propfile"
)

// Collection is a parsed legacy resource: an ordered set of keys with
// resolved textual values. All supported format packages satisfy it.
type Collection interface {
	// Keys returns all translation keys in document order.
	Keys() []string
	// Get returns the resolved value for key and whether it exists.
	Get(key string) (string, bool)
}

// Ref identifies a single legacy translation across resources:
// the resource path plus the entry key.
type Ref struct {
	Path string
	Key  string
}

func (r Ref) String() string {
	return r.Path + ":" + r.Key
}

// parsers maps file extension to format parser. Formats are selected
// here and nowhere else.
var parsers = map[string]func(data []byte) (Collection, error){
	".properties": func(data []byte) (Collection, error) { return propfile.Parse(data) },
	".prop":       func(data []byte) (Collection, error) { return propfile.Parse(data) },
	".dtd":        func(data []byte) (Collection, error) { return dtdfile.Parse(data) },
	".po":         func(data []byte) (Collection, error) { return pofile.Parse(data) },
}

// Supported reports whether the extension of path has a parser.
func Supported(path string) bool {
	_, ok := parsers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Parse parses legacy file contents, selecting the format by the
// extension of path.
func Parse(path string, data []byte) (Collection, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("no legacy parser for %s (extension %q)", path, ext)
	}
	c, err := p(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}
