// Package ftl implements the FTL translation format: an abstract syntax
// tree for messages with variants, traits and external-argument
// placeholders, plus a best-effort parser and a serializer.
//
// The supported syntax subset:
//
//	# resource or entity comment
//	[[ section name ]]
//	ident = value with { $arg } placeables
//	delete-all = { $num ->
//	    [one] Delete this download?
//	   *[other] Delete { $num } downloads?
//	}
//	brand-name = Firefox
//	    [gender] masculine
//
// Parsing never aborts on a malformed entry: each syntax error is
// reported individually and parsing resumes at the next top-level line,
// yielding a best-effort partial Resource.
package ftl

// Node is implemented by every syntax node.
type Node interface{}

// Resource is one FTL document: an ordered entry list with an optional
// leading comment.
type Resource struct {
	Comment *Comment
	Body    []Entry
}

// Entry is a top-level or section-level document item.
// Implementations: *Comment, *Section, *Entity.
type Entry interface {
	Node
	entry()
}

// Comment is a standalone or attached comment block.
type Comment struct {
	Content string
}

func (*Comment) entry() {}

// Section groups entries under a `[[ key ]]` header. Its body is merged
// and serialized recursively.
type Section struct {
	Key     string
	Comment *Comment
	Body    []Entry
}

func (*Section) entry() {}

// Entity is a single message: an identifier with an optional value
// pattern, optional traits and an optional comment.
type Entity struct {
	ID      Identifier
	Value   *Pattern
	Traits  []*Member
	Comment *Comment
}

func (*Entity) entry() {}

// Identifier names an entity. Names are case-sensitive and unique
// within a resource.
type Identifier struct {
	Name string
}

// Member is a keyed sub-value: an entity trait or a select-expression
// variant. Exactly one variant of a select expression carries Default.
type Member struct {
	Key     string
	Value   *Pattern
	Default bool
}

// Pattern is the value of an entity, trait or variant: a sequence of
// text elements and placeables.
type Pattern struct {
	Elements []PatternElement
}

// PatternElement is a piece of a Pattern.
// Implementations: *TextElement, *Placeable.
type PatternElement interface {
	Node
	patternElement()
}

// TextElement is a literal text run.
type TextElement struct {
	Value string
}

func (*TextElement) patternElement() {}

// Placeable wraps an expression in `{ ... }` braces inside a pattern.
type Placeable struct {
	Expression Expression
}

func (*Placeable) patternElement() {}

// Expression is the content of a placeable.
// Implementations: *ExternalArgument, *SelectExpression.
type Expression interface {
	Node
	expression()
}

// ExternalArgument references a runtime argument, serialized `$name`.
type ExternalArgument struct {
	Name string
}

func (*ExternalArgument) expression() {}

// SelectExpression chooses one of its variants by matching the selector,
// serialized `{ $sel -> ... }` with one line per variant.
type SelectExpression struct {
	Selector Expression
	Variants []*Member
}

func (*SelectExpression) expression() {}

// Text returns a pattern holding a single literal text element.
func Text(s string) *Pattern {
	return &Pattern{Elements: []PatternElement{&TextElement{Value: s}}}
}

// FindEntity returns the first entity in body whose identifier is name,
// or nil. Sections are descended into: identifiers are unique per
// resource, so an entity keeps its identity wherever it is nested.
func FindEntity(body []Entry, name string) *Entity {
	for _, entry := range body {
		switch e := entry.(type) {
		case *Entity:
			if e.ID.Name == name {
				return e
			}
		case *Section:
			if found := FindEntity(e.Body, name); found != nil {
				return found
			}
		}
	}
	return nil
}
