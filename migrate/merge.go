package migrate

import (
	"fmt"
	"sync"

	"github.com/minios-linux/ftlkit/ftl"
)

// ---------------------------------------------------------------------------
// Merge engine
// ---------------------------------------------------------------------------

// MergeResources merges one reference resource with the current
// localization and the registered transforms, entry by entry in
// reference order:
//
//   - comments are copied through unchanged;
//   - sections are merged recursively, keeping their key and comment
//     (an emptied section is kept, so its comment block survives for
//     the messages that will join it in a later run);
//   - a message present in current is output verbatim — an existing
//     translation is never replaced or dropped;
//   - a missing message is synthesized from its transform only when the
//     changeset gate admits it, otherwise it is omitted.
//
// The output entry order is a subsequence of the reference order, and
// the resource comment always comes from the reference.
func MergeResources(reference, current *ftl.Resource, transforms []MessageTransform,
	inChangeset func(ident string) bool, backfillComments bool) *ftl.Resource {
	if current == nil {
		current = &ftl.Resource{}
	}
	return &ftl.Resource{
		Comment: reference.Comment,
		Body:    mergeBody(reference.Body, current, transforms, inChangeset, backfillComments),
	}
}

func mergeBody(body []ftl.Entry, current *ftl.Resource, transforms []MessageTransform,
	inChangeset func(string) bool, backfill bool) []ftl.Entry {
	var out []ftl.Entry
	for _, entry := range body {
		switch e := entry.(type) {
		case *ftl.Comment:
			out = append(out, e)
		case *ftl.Section:
			out = append(out, &ftl.Section{
				Key:     e.Key,
				Comment: e.Comment,
				Body:    mergeBody(e.Body, current, transforms, inChangeset, backfill),
			})
		case *ftl.Entity:
			if merged := mergeEntity(e, current, transforms, inChangeset, backfill); merged != nil {
				out = append(out, merged)
			}
		}
	}
	return out
}

func mergeEntity(ref *ftl.Entity, current *ftl.Resource, transforms []MessageTransform,
	inChangeset func(string) bool, backfill bool) *ftl.Entity {
	ident := ref.ID.Name

	if existing := ftl.FindEntity(current.Body, ident); existing != nil {
		return existing
	}

	if !inChangeset(ident) {
		return nil
	}

	t := findTransform(transforms, ident)
	if t == nil {
		return nil
	}
	if backfill && t.entity.Comment == nil && ref.Comment != nil {
		// Copy so the registry entry stays pristine for later merges.
		entity := *t.entity
		entity.Comment = ref.Comment
		return &entity
	}
	return t.entity
}

// ---------------------------------------------------------------------------
// Merge session
// ---------------------------------------------------------------------------

// Merge runs the merge for every registered reference path and returns
// the serialized documents keyed by path. A nil changeset migrates
// every known legacy translation. Paths merge concurrently; by this
// point all session state is read-only.
//
// Merge fails only when the registration phase was left unfinished —
// an open message build means dependency capture is incomplete.
func (c *Context) Merge(changeset Changeset) (map[string][]byte, error) {
	if c.active != nil {
		return nil, fmt.Errorf("%w: finalize %s %q before merging",
			ErrBuildInProgress, c.active.path, c.active.entity.ID.Name)
	}
	if changeset == nil {
		changeset = c.allLegacyRefs()
	}

	results := make(map[string][]byte, len(c.refPaths))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.maxConcurrent)

	for _, path := range c.refPaths {
		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			merged := c.mergePath(path, changeset)
			data := ftl.Serialize(merged)

			mu.Lock()
			results[path] = data
			mu.Unlock()
		}(path)
	}
	wg.Wait()

	return results, nil
}

// MergePath merges a single reference path without serializing.
func (c *Context) MergePath(path string, changeset Changeset) (*ftl.Resource, bool) {
	if _, ok := c.reference[path]; !ok {
		return nil, false
	}
	if changeset == nil {
		changeset = c.allLegacyRefs()
	}
	return c.mergePath(path, changeset), true
}

func (c *Context) mergePath(path string, changeset Changeset) *ftl.Resource {
	transforms := c.transforms[path]

	inChangeset := func(ident string) bool {
		t := findTransform(transforms, ident)
		if t == nil {
			return false
		}
		return t.DependsOnAny(changeset)
	}

	return MergeResources(c.reference[path], c.current[path], transforms, inChangeset, c.backfillComments)
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// State classifies what the merge would do with one reference message.
type State int

const (
	// StateExisting: the current localization already has the message.
	StateExisting State = iota
	// StateMigrate: missing, in the changeset and a transform exists.
	StateMigrate
	// StateNotInChangeset: a transform exists but no dependency is in
	// the changeset (or the message has no dependencies at all).
	StateNotInChangeset
	// StateNoTransform: missing and nothing registered to build it.
	StateNoTransform
)

func (s State) String() string {
	switch s {
	case StateExisting:
		return "existing"
	case StateMigrate:
		return "migrate"
	case StateNotInChangeset:
		return "blocked"
	case StateNoTransform:
		return "no-transform"
	}
	return "unknown"
}

// MessageStatus is the disposition of one reference message.
type MessageStatus struct {
	Ident string
	State State
}

// Status reports, per reference path, what a merge with the given
// changeset would do with each message, without producing output.
func (c *Context) Status(changeset Changeset) map[string][]MessageStatus {
	if changeset == nil {
		changeset = c.allLegacyRefs()
	}

	out := make(map[string][]MessageStatus, len(c.refPaths))
	for _, path := range c.refPaths {
		current := c.current[path]
		if current == nil {
			current = &ftl.Resource{}
		}
		transforms := c.transforms[path]

		var statuses []MessageStatus
		var walk func(body []ftl.Entry)
		walk = func(body []ftl.Entry) {
			for _, entry := range body {
				switch e := entry.(type) {
				case *ftl.Section:
					walk(e.Body)
				case *ftl.Entity:
					statuses = append(statuses, MessageStatus{
						Ident: e.ID.Name,
						State: classify(e.ID.Name, current, transforms, changeset),
					})
				}
			}
		}
		walk(c.reference[path].Body)
		out[path] = statuses
	}
	return out
}

func classify(ident string, current *ftl.Resource, transforms []MessageTransform, changeset Changeset) State {
	if ftl.FindEntity(current.Body, ident) != nil {
		return StateExisting
	}
	t := findTransform(transforms, ident)
	if t == nil {
		return StateNoTransform
	}
	if !t.DependsOnAny(changeset) {
		return StateNotInChangeset
	}
	return StateMigrate
}
