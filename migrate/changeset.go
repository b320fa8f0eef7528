package migrate

import "github.com/minios-linux/ftlkit/legacy"

// Changeset is the set of legacy translations whose migration is in
// scope for one merge run. A nil Changeset passed to Merge means
// "everything known": the union of all keys of all legacy collections.
type Changeset map[legacy.Ref]struct{}

// NewChangeset builds a changeset from legacy refs.
func NewChangeset(refs ...legacy.Ref) Changeset {
	cs := make(Changeset, len(refs))
	for _, ref := range refs {
		cs[ref] = struct{}{}
	}
	return cs
}

// Add inserts a ref into the changeset.
func (cs Changeset) Add(ref legacy.Ref) {
	cs[ref] = struct{}{}
}

// allLegacyRefs is the default changeset: every key of every registered
// legacy collection.
func (c *Context) allLegacyRefs() Changeset {
	cs := make(Changeset)
	for path, col := range c.legacy {
		for _, key := range col.Keys() {
			cs[legacy.Ref{Path: path, Key: key}] = struct{}{}
		}
	}
	return cs
}
