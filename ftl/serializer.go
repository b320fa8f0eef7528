package ftl

import (
	"bytes"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Serialize renders a Resource to FTL document text. The output is
// canonical: parsing it back and serializing again reproduces the same
// bytes, which keeps repeated migrations byte-identical.
func Serialize(r *Resource) []byte {
	var buf bytes.Buffer
	if r.Comment != nil {
		writeComment(&buf, r.Comment)
		buf.WriteByte('\n')
	}
	writeBody(&buf, r.Body)
	return buf.Bytes()
}

// writeBody writes entries separated by single blank lines.
func writeBody(buf *bytes.Buffer, body []Entry) {
	for i, entry := range body {
		if i > 0 {
			buf.WriteByte('\n')
		}
		switch e := entry.(type) {
		case *Comment:
			writeComment(buf, e)
		case *Section:
			writeSection(buf, e)
		case *Entity:
			writeEntity(buf, e)
		}
	}
}

func writeComment(buf *bytes.Buffer, c *Comment) {
	for _, line := range strings.Split(c.Content, "\n") {
		if line == "" {
			buf.WriteString("#\n")
			continue
		}
		buf.WriteString("# ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

func writeSection(buf *bytes.Buffer, s *Section) {
	if s.Comment != nil {
		writeComment(buf, s.Comment)
	}
	fmt.Fprintf(buf, "[[ %s ]]\n", s.Key)
	if len(s.Body) > 0 {
		buf.WriteByte('\n')
		writeBody(buf, s.Body)
	}
}

func writeEntity(buf *bytes.Buffer, e *Entity) {
	if e.Comment != nil {
		writeComment(buf, e.Comment)
	}
	buf.WriteString(e.ID.Name)
	buf.WriteString(" =")
	if e.Value != nil {
		var value bytes.Buffer
		writePattern(&value, e.Value)
		if value.Len() > 0 {
			buf.WriteByte(' ')
			buf.Write(value.Bytes())
		}
	}
	buf.WriteByte('\n')
	for _, t := range e.Traits {
		writeMember(buf, t)
	}
}

// writeMember writes one trait or variant line. The default member is
// marked with `*` and indented one column less so the keys line up.
func writeMember(buf *bytes.Buffer, m *Member) {
	if m.Default {
		buf.WriteString("   *[")
	} else {
		buf.WriteString("    [")
	}
	buf.WriteString(m.Key)
	buf.WriteString("] ")
	writePattern(buf, m.Value)
	buf.WriteByte('\n')
}

// writePattern writes pattern elements inline. A placeable holding a
// select expression expands to a multi-line block.
func writePattern(buf *bytes.Buffer, p *Pattern) {
	if p == nil {
		return
	}
	for _, el := range p.Elements {
		switch v := el.(type) {
		case *TextElement:
			buf.WriteString(escapeText(v.Value))
		case *Placeable:
			writePlaceable(buf, v)
		}
	}
}

func writePlaceable(buf *bytes.Buffer, pl *Placeable) {
	switch expr := pl.Expression.(type) {
	case *SelectExpression:
		buf.WriteString("{ ")
		writeExpression(buf, expr.Selector)
		buf.WriteString(" ->\n")
		for _, v := range expr.Variants {
			writeMember(buf, v)
		}
		buf.WriteString("}")
	default:
		buf.WriteString("{ ")
		writeExpression(buf, expr)
		buf.WriteString(" }")
	}
}

func writeExpression(buf *bytes.Buffer, expr Expression) {
	switch v := expr.(type) {
	case *ExternalArgument:
		buf.WriteByte('$')
		buf.WriteString(v.Name)
	}
}

// escapeText protects literal braces and backslashes so the parser can
// tell them apart from placeable delimiters.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "{", `\{`)
	s = strings.ReplaceAll(s, "}", `\}`)
	return s
}
