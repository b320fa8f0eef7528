package ftl

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

var (
	identRe   = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_.-]*)\s*=(.*)$`)
	sectionRe = regexp.MustCompile(`^\[\[\s*(.+?)\s*\]\]$`)
	memberRe  = regexp.MustCompile(`^(\*)?\[([^\]]+)\]\s?(.*)$`)
	argRe     = regexp.MustCompile(`^\$([A-Za-z][A-Za-z0-9_-]*)$`)
)

// ParseFile reads and parses an FTL document from disk. A read failure
// is returned as the single element of the error slice with a nil
// Resource; callers treat a nil Resource as an absent document.
func ParseFile(path string) (*Resource, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("reading %s: %w", path, err)}
	}
	res, errs := Parse(data)
	for i, e := range errs {
		errs[i] = fmt.Errorf("%s: %w", path, e)
	}
	return res, errs
}

// Parse parses FTL document text. Parsing is best-effort: every syntax
// error is collected and the parser resumes at the next top-level line,
// so a partially malformed document still yields the entries that could
// be read.
func Parse(data []byte) (*Resource, []error) {
	p := &parser{lines: splitLines(data)}
	p.run()
	return p.resource, p.errors
}

type parser struct {
	lines    []string
	pos      int
	resource *Resource
	section  *Section // current open section, nil at top level
	pending  []string // accumulated comment lines not yet attached
	errors   []error
}

func splitLines(data []byte) []string {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (p *parser) errorf(line int, format string, args ...any) {
	args = append([]any{line + 1}, args...)
	p.errors = append(p.errors, fmt.Errorf("line %d: "+format, args...))
}

// append adds an entry to the current section body or the resource body.
func (p *parser) append(e Entry) {
	if p.section != nil {
		p.section.Body = append(p.section.Body, e)
		return
	}
	p.resource.Body = append(p.resource.Body, e)
}

// takeComment detaches the pending comment block, if any.
func (p *parser) takeComment() *Comment {
	if p.pending == nil {
		return nil
	}
	c := &Comment{Content: strings.Join(p.pending, "\n")}
	p.pending = nil
	return c
}

// flushComment emits the pending comment as a standalone entry. The
// first comment block of the document becomes the resource comment.
func (p *parser) flushComment() {
	c := p.takeComment()
	if c == nil {
		return
	}
	if p.resource.Comment == nil && len(p.resource.Body) == 0 && p.section == nil {
		p.resource.Comment = c
		return
	}
	p.append(c)
}

func (p *parser) run() {
	p.resource = &Resource{}

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			p.flushComment()
			p.pos++

		case strings.HasPrefix(trimmed, "#"):
			p.pending = append(p.pending, strings.TrimPrefix(strings.TrimPrefix(trimmed, "#"), " "))
			p.pos++

		case sectionRe.MatchString(trimmed):
			key := sectionRe.FindStringSubmatch(trimmed)[1]
			p.section = &Section{Key: key, Comment: p.takeComment()}
			p.resource.Body = append(p.resource.Body, p.section)
			p.pos++

		case identRe.MatchString(trimmed) && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t"):
			p.parseEntity(trimmed)

		default:
			p.errorf(p.pos, "unexpected token %q", trimmed)
			p.pending = nil
			p.pos++
		}
	}

	// A trailing comment block belongs to the document body.
	p.flushComment()
}

// parseEntity consumes an `ident = value` line plus any indented
// continuation lines holding the rest of the value and the traits.
func (p *parser) parseEntity(trimmed string) {
	startLine := p.pos
	m := identRe.FindStringSubmatch(trimmed)
	name, rest := m[1], strings.TrimSpace(m[2])

	entity := &Entity{ID: Identifier{Name: name}, Comment: p.takeComment()}

	valueText := rest
	depth := braceDepth(rest)
	p.pos++

	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		inner := strings.TrimSpace(line)
		// The closing brace of a multi-line select sits at column zero.
		// Anything else unindented ends the entity, so an unterminated
		// placeable cannot swallow the entries after it.
		if line == "" || (!indented && !(depth > 0 && strings.HasPrefix(inner, "}"))) {
			break
		}

		switch {
		case depth > 0:
			// Inside an unclosed placeable: variant lines of a select
			// expression, or the closing brace.
			valueText += "\n" + inner
			depth += braceDepth(inner)

		case memberRe.MatchString(inner):
			mm := memberRe.FindStringSubmatch(inner)
			value, ok := p.parsePattern(mm[3], p.pos)
			if !ok {
				p.skipEntity()
				return
			}
			entity.Traits = append(entity.Traits, &Member{
				Key:     mm[2],
				Value:   value,
				Default: mm[1] == "*",
			})

		default:
			// Plain multi-line value continuation.
			if valueText == "" {
				valueText = inner
			} else {
				valueText += " " + inner
			}
		}
		p.pos++
	}

	if depth != 0 {
		p.errorf(startLine, "unbalanced braces in value of %q", name)
		return
	}

	if valueText != "" {
		value, ok := p.parsePattern(valueText, startLine)
		if !ok {
			return
		}
		entity.Value = value
	}

	p.append(entity)
}

// skipEntity abandons the remaining indented lines of a broken entity.
func (p *parser) skipEntity() {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if line == "" || (!strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t")) {
			return
		}
		p.pos++
	}
}

// braceDepth returns the net count of unescaped braces in s.
func braceDepth(s string) int {
	depth := 0
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '{':
			depth++
		case r == '}':
			depth--
		}
	}
	return depth
}

// parsePattern parses pattern text into text elements and placeables.
// Reported errors reference line (zero-based index of the entity start).
func (p *parser) parsePattern(s string, line int) (*Pattern, bool) {
	pattern := &Pattern{}
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			pattern.Elements = append(pattern.Elements, &TextElement{Value: text.String()})
			text.Reset()
		}
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\' && i+1 < len(runes):
			i++
			text.WriteRune(runes[i])

		case r == '{':
			end := matchingBrace(runes, i)
			if end < 0 {
				p.errorf(line, "unterminated placeable")
				return nil, false
			}
			flush()
			expr, ok := p.parseExpression(string(runes[i+1:end]), line)
			if !ok {
				return nil, false
			}
			pattern.Elements = append(pattern.Elements, &Placeable{Expression: expr})
			i = end

		default:
			text.WriteRune(r)
		}
	}
	flush()

	if len(pattern.Elements) == 0 {
		return nil, true
	}
	return pattern, true
}

// matchingBrace returns the index of the brace closing the one at open,
// or -1 when unbalanced.
func matchingBrace(runes []rune, open int) int {
	depth := 0
	escaped := false
	for i := open; i < len(runes); i++ {
		switch {
		case escaped:
			escaped = false
		case runes[i] == '\\':
			escaped = true
		case runes[i] == '{':
			depth++
		case runes[i] == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseExpression parses placeable content: either a plain external
// argument or a select expression with one variant per line.
func (p *parser) parseExpression(s string, line int) (Expression, bool) {
	s = strings.TrimSpace(s)

	if idx := topLevelArrow(s); idx >= 0 {
		selector, ok := p.parseExpression(s[:idx], line)
		if !ok {
			return nil, false
		}
		sel := &SelectExpression{Selector: selector}
		for _, vl := range strings.Split(s[idx+2:], "\n") {
			vl = strings.TrimSpace(vl)
			if vl == "" {
				continue
			}
			mm := memberRe.FindStringSubmatch(vl)
			if mm == nil {
				p.errorf(line, "malformed variant %q", vl)
				return nil, false
			}
			value, ok := p.parsePattern(mm[3], line)
			if !ok {
				return nil, false
			}
			sel.Variants = append(sel.Variants, &Member{
				Key:     mm[2],
				Value:   value,
				Default: mm[1] == "*",
			})
		}
		if len(sel.Variants) == 0 {
			p.errorf(line, "select expression without variants")
			return nil, false
		}
		return sel, true
	}

	if m := argRe.FindStringSubmatch(s); m != nil {
		return &ExternalArgument{Name: m[1]}, true
	}

	p.errorf(line, "unsupported expression %q", s)
	return nil, false
}

// topLevelArrow finds the `->` separating a select expression's selector
// from its variants, ignoring arrows nested in inner placeables.
func topLevelArrow(s string) int {
	depth := 0
	for i := 0; i+1 < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '-':
			if depth == 0 && s[i+1] == '>' {
				return i
			}
		}
	}
	return -1
}
