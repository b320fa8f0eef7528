// Package transform implements the operation nodes a migration recipe
// composes to synthesize an FTL message from legacy translations:
// Source, Copy, Replace, Plurals, Concat, Interpolate and Literal.
//
// Nodes are evaluated eagerly against an Env. Every Source leaf reached
// during evaluation registers its (path, key) pair with the Env, which
// is how the message under construction acquires its dependency set.
package transform

import (
	"sort"
	"strings"

	"github.com/minios-linux/ftlkit/ftl"
)

// Env is the evaluation environment a message builder provides.
type Env interface {
	// Source resolves a legacy translation and, unconditionally,
	// records (path, key) as a dependency of the message being built.
	// A missing key yields ("", false) and is still recorded: a
	// vanished source must keep gating the message it once fed.
	Source(path, key string) (string, bool)

	// PluralCategories returns the target language's ordered CLDR
	// plural category names.
	PluralCategories() []string
}

// Node is one operation in a transform tree. Build evaluates the node
// into an FTL pattern; operations tolerate absent sources and produce
// empty patterns rather than failing.
type Node interface {
	Build(env Env) *ftl.Pattern
}

// ---------------------------------------------------------------------------
// Leaves
// ---------------------------------------------------------------------------

// Source reads a legacy translation, identified by resource path and
// entry key. It is the only node with a side effect: dependency capture.
type Source struct {
	Path string
	Key  string
}

func (s Source) Build(env Env) *ftl.Pattern {
	value, ok := env.Source(s.Path, s.Key)
	if !ok {
		return &ftl.Pattern{}
	}
	return ftl.Text(value)
}

// Literal is a fixed text leaf, useful inside Concat.
type Literal struct {
	Text string
}

func (l Literal) Build(env Env) *ftl.Pattern {
	return ftl.Text(l.Text)
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Copy evaluates its operand and copies the resulting text verbatim.
type Copy struct {
	Of Node
}

func (c Copy) Build(env Env) *ftl.Pattern {
	return ftl.Text(textOf(c.Of.Build(env)))
}

// Replace substitutes placeholder substrings in the evaluated operand
// with placeable expressions, e.g. "#1" → { $num }.
type Replace struct {
	Of   Node
	With map[string]ftl.Expression
}

func (r Replace) Build(env Env) *ftl.Pattern {
	text := textOf(r.Of.Build(env))

	// Longest placeholder first so "#10" is not eaten by "#1".
	placeholders := make([]string, 0, len(r.With))
	for ph := range r.With {
		placeholders = append(placeholders, ph)
	}
	sort.Slice(placeholders, func(i, j int) bool {
		if len(placeholders[i]) != len(placeholders[j]) {
			return len(placeholders[i]) > len(placeholders[j])
		}
		return placeholders[i] < placeholders[j]
	})

	pattern := &ftl.Pattern{}
	for text != "" {
		idx, ph := -1, ""
		for _, cand := range placeholders {
			if i := strings.Index(text, cand); i >= 0 && (idx < 0 || i < idx) {
				idx, ph = i, cand
			}
		}
		if idx < 0 {
			pattern.Elements = append(pattern.Elements, &ftl.TextElement{Value: text})
			break
		}
		if idx > 0 {
			pattern.Elements = append(pattern.Elements, &ftl.TextElement{Value: text[:idx]})
		}
		pattern.Elements = append(pattern.Elements, &ftl.Placeable{Expression: r.With[ph]})
		text = text[idx+len(ph):]
	}
	return pattern
}

// Plurals splits the evaluated operand on ';' into plural forms, pairs
// them with the target language's plural categories and builds one
// select-expression variant per category via ForEach. The last category
// becomes the default variant. When there are fewer forms than
// categories the last form is reused; a source with a single form and a
// single-category language degrades to a plain pattern.
type Plurals struct {
	Of       Node
	Selector ftl.Expression
	ForEach  func(form Node) Node
}

func (p Plurals) Build(env Env) *ftl.Pattern {
	text := textOf(p.Of.Build(env))
	if text == "" {
		// A vanished source leaves an empty pattern, not a select
		// expression full of empty variants.
		return p.ForEach(Literal{Text: ""}).Build(env)
	}
	forms := strings.Split(text, ";")
	for i := range forms {
		forms[i] = strings.TrimSpace(forms[i])
	}

	categories := env.PluralCategories()
	if len(categories) == 1 {
		inner := p.ForEach(Literal{Text: forms[len(forms)-1]})
		return inner.Build(env)
	}

	sel := &ftl.SelectExpression{Selector: p.Selector}
	for i, cat := range categories {
		form := forms[len(forms)-1]
		if i < len(forms) {
			form = forms[i]
		}
		inner := p.ForEach(Literal{Text: form})
		sel.Variants = append(sel.Variants, &ftl.Member{
			Key:     cat,
			Value:   inner.Build(env),
			Default: i == len(categories)-1,
		})
	}

	return &ftl.Pattern{Elements: []ftl.PatternElement{&ftl.Placeable{Expression: sel}}}
}

// Concat joins the evaluated parts into a single pattern, merging
// adjacent text elements.
type Concat struct {
	Parts []Node
}

func (c Concat) Build(env Env) *ftl.Pattern {
	pattern := &ftl.Pattern{}
	for _, part := range c.Parts {
		for _, el := range part.Build(env).Elements {
			if text, ok := el.(*ftl.TextElement); ok && len(pattern.Elements) > 0 {
				if prev, ok := pattern.Elements[len(pattern.Elements)-1].(*ftl.TextElement); ok {
					prev.Value += text.Value
					continue
				}
			}
			pattern.Elements = append(pattern.Elements, el)
		}
	}
	return pattern
}

// Interpolate splices an expression into a pattern as a placeable,
// e.g. an external argument reference inside a Concat.
type Interpolate struct {
	Expr ftl.Expression
}

func (i Interpolate) Build(env Env) *ftl.Pattern {
	return &ftl.Pattern{Elements: []ftl.PatternElement{&ftl.Placeable{Expression: i.Expr}}}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// textOf flattens a pattern's text elements. Placeables contribute
// nothing; operations that read source text only ever see literal runs.
func textOf(p *ftl.Pattern) string {
	var b strings.Builder
	for _, el := range p.Elements {
		if text, ok := el.(*ftl.TextElement); ok {
			b.WriteString(text.Value)
		}
	}
	return b.String()
}
