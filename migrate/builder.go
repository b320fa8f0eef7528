package migrate

import (
	"fmt"
	"sort"

	"github.com/minios-linux/ftlkit/ftl"
	"github.com/minios-linux/ftlkit/legacy"
	"github.com/minios-linux/ftlkit/transform"
)

// MessageBuilder builds one synthesized message. It carries the build
// context explicitly: it is the transform.Env handed to every operation
// node, and it owns the dependency set being collected, so dependencies
// recorded while evaluating this message can never leak into another.
type MessageBuilder struct {
	ctx    *Context
	path   string
	entity *ftl.Entity
	deps   map[legacy.Ref]struct{}
	done   bool
}

// BeginMessage starts building the message ident for the target
// resource path. Only one build may be active at a time; starting a
// second one before Done returns ErrBuildInProgress.
func (c *Context) BeginMessage(path, ident string) (*MessageBuilder, error) {
	if c.active != nil {
		return nil, fmt.Errorf("%w: cannot begin %s %q while building %s %q",
			ErrBuildInProgress, path, ident, c.active.path, c.active.entity.ID.Name)
	}
	b := &MessageBuilder{
		ctx:    c,
		path:   path,
		entity: &ftl.Entity{ID: ftl.Identifier{Name: ident}},
		deps:   make(map[legacy.Ref]struct{}),
	}
	c.active = b
	return b, nil
}

// Value evaluates node as the message value, capturing dependencies.
func (b *MessageBuilder) Value(node transform.Node) *MessageBuilder {
	b.entity.Value = node.Build(b)
	return b
}

// Trait evaluates node as a named trait of the message, capturing
// dependencies. A trait marked dflt is the message's default variant.
func (b *MessageBuilder) Trait(key string, dflt bool, node transform.Node) *MessageBuilder {
	b.entity.Traits = append(b.entity.Traits, &ftl.Member{
		Key:     key,
		Value:   node.Build(b),
		Default: dflt,
	})
	return b
}

// Comment attaches a comment to the message. Without one, the merge may
// backfill the reference message's comment (see WithCommentBackfill).
func (b *MessageBuilder) Comment(text string) *MessageBuilder {
	b.entity.Comment = &ftl.Comment{Content: text}
	return b
}

// Done finalizes the build: the entity and a frozen copy of its
// dependency set are appended to the transform registry (append only —
// an ident registered twice keeps both entries, the earlier one wins at
// lookup) and the build slot is released for the next message.
func (b *MessageBuilder) Done() error {
	if b.done {
		return fmt.Errorf("message %s %q finalized twice", b.path, b.entity.ID.Name)
	}
	b.done = true
	b.ctx.active = nil

	deps := make(map[legacy.Ref]struct{}, len(b.deps))
	for ref := range b.deps {
		deps[ref] = struct{}{}
	}
	b.ctx.transforms[b.path] = append(b.ctx.transforms[b.path], MessageTransform{
		path:   b.path,
		entity: b.entity,
		deps:   deps,
	})
	return nil
}

// ---------------------------------------------------------------------------
// transform.Env implementation
// ---------------------------------------------------------------------------

// Source resolves a legacy translation for the message being built and
// records it as a dependency. The pair is recorded even when the key is
// missing from the collection: a source that has vanished must still
// gate the message that was written against it.
func (b *MessageBuilder) Source(path, key string) (string, bool) {
	b.deps[legacy.Ref{Path: path, Key: key}] = struct{}{}

	col, ok := b.ctx.legacy[path]
	if !ok {
		return "", false
	}
	return col.Get(key)
}

// PluralCategories returns the session language's plural categories.
func (b *MessageBuilder) PluralCategories() []string {
	return b.ctx.pluralCategories
}

func sortRefs(refs []legacy.Ref) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Path != refs[j].Path {
			return refs[i].Path < refs[j].Path
		}
		return refs[i].Key < refs[j].Key
	})
}
