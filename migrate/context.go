// Package migrate implements the merge engine that layers three sources
// of truth into one FTL document per resource path: the reference
// template (identity, order, comments), the current localization (never
// regressed) and registered message transforms (used to synthesize
// missing messages from legacy translations, gated by a changeset).
//
// A Context is configured in two strict phases: first all references,
// current localizations, legacy resources and transforms are registered;
// then Merge may be called any number of times with different
// changesets. Registration state is read-only once merging starts, which
// is what makes per-path merges safe to run concurrently.
package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/minios-linux/ftlkit/ftl"
	"github.com/minios-linux/ftlkit/legacy"
	"github.com/minios-linux/ftlkit/plural"
)

// Report is a non-fatal problem encountered while loading input
// resources. Failures are resource-path-local: a broken file never
// aborts the session, it only reduces what the merge sees.
type Report struct {
	Path string
	Err  error
}

// Context holds the state of one migration session.
type Context struct {
	lang             string
	referenceDir     string
	l10nDir          string
	pluralCategories []string

	reference map[string]*ftl.Resource
	refPaths  []string // reference registration order
	current   map[string]*ftl.Resource
	legacy    map[string]legacy.Collection

	transforms map[string][]MessageTransform
	active     *MessageBuilder

	backfillComments bool
	maxConcurrent    int

	reports []Report
}

// Option configures a Context.
type Option func(*Context)

// WithCommentBackfill controls whether a synthesized message with no
// comment of its own inherits the reference message's comment.
// Enabled by default.
func WithCommentBackfill(enabled bool) Option {
	return func(c *Context) { c.backfillComments = enabled }
}

// WithMaxConcurrent caps how many resource paths merge in parallel.
func WithMaxConcurrent(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.maxConcurrent = n
		}
	}
}

// NewContext creates a migration session for a target language.
// referenceDir holds the reference FTL files, l10nDir the current FTL
// localization and the legacy translation files.
func NewContext(lang, referenceDir, l10nDir string, opts ...Option) *Context {
	c := &Context{
		lang:             lang,
		referenceDir:     referenceDir,
		l10nDir:          l10nDir,
		pluralCategories: plural.Categories(lang),
		reference:        make(map[string]*ftl.Resource),
		current:          make(map[string]*ftl.Resource),
		legacy:           make(map[string]legacy.Collection),
		transforms:       make(map[string][]MessageTransform),
		backfillComments: true,
		maxConcurrent:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lang returns the session's target language code.
func (c *Context) Lang() string { return c.lang }

// ReferencePaths returns the registered reference resource paths in
// registration order. They define the universe of merge targets.
func (c *Context) ReferencePaths() []string {
	paths := make([]string, len(c.refPaths))
	copy(paths, c.refPaths)
	return paths
}

// Reports returns the problems recorded while loading inputs.
func (c *Context) Reports() []Report {
	return c.reports
}

func (c *Context) report(path string, err error) {
	c.reports = append(c.reports, Report{Path: path, Err: err})
}

// ---------------------------------------------------------------------------
// Input registration
// ---------------------------------------------------------------------------

// AddReference registers a reference FTL resource by path relative to
// the reference directory. Syntax errors are recorded and the partial
// resource is used; an unreadable file leaves the path unregistered.
func (c *Context) AddReference(path string) {
	res, errs := ftl.ParseFile(filepath.Join(c.referenceDir, path))
	for _, err := range errs {
		c.report(path, err)
	}
	if res == nil {
		return
	}
	if _, exists := c.reference[path]; !exists {
		c.refPaths = append(c.refPaths, path)
	}
	c.reference[path] = res
}

// AddCurrent registers the current FTL localization for a path relative
// to the localization directory. A missing or unreadable file simply
// leaves the path without a current localization.
func (c *Context) AddCurrent(path string) {
	res, errs := ftl.ParseFile(filepath.Join(c.l10nDir, path))
	for _, err := range errs {
		// A locale that has not been seeded yet has no current file;
		// that is the normal starting state, not a load problem.
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		c.report(path, err)
	}
	if res == nil {
		return
	}
	c.current[path] = res
}

// AddLegacy parses a legacy translation file (format selected by
// extension) relative to the localization directory. A broken file is
// recorded and treated as absent.
func (c *Context) AddLegacy(path string) {
	data, err := os.ReadFile(filepath.Join(c.l10nDir, path))
	if err != nil {
		c.report(path, fmt.Errorf("reading legacy resource: %w", err))
		return
	}
	col, err := legacy.Parse(path, data)
	if err != nil {
		c.report(path, err)
		return
	}
	c.legacy[path] = col
}

// Legacy returns the parsed legacy collection for a path, if present.
func (c *Context) Legacy(path string) (legacy.Collection, bool) {
	col, ok := c.legacy[path]
	return col, ok
}

// LegacyPaths returns the paths of all registered legacy collections.
func (c *Context) LegacyPaths() []string {
	paths := make([]string, 0, len(c.legacy))
	for path := range c.legacy {
		paths = append(paths, path)
	}
	return paths
}

// ---------------------------------------------------------------------------
// Transform registry
// ---------------------------------------------------------------------------

// MessageTransform is one registered synthesized message: the built FTL
// entity plus the immutable set of legacy translations it was built
// from. The dependency set is owned by the registry entry and never
// mutated after registration.
type MessageTransform struct {
	path   string
	entity *ftl.Entity
	deps   map[legacy.Ref]struct{}
}

// Path returns the target resource path the message belongs to.
func (t MessageTransform) Path() string { return t.path }

// Entity returns the synthesized FTL message.
func (t MessageTransform) Entity() *ftl.Entity { return t.entity }

// Dependencies returns the legacy translations the message was built
// from, sorted for stable output.
func (t MessageTransform) Dependencies() []legacy.Ref {
	refs := make([]legacy.Ref, 0, len(t.deps))
	for ref := range t.deps {
		refs = append(refs, ref)
	}
	sortRefs(refs)
	return refs
}

// DependsOnAny reports whether any dependency is in the changeset.
// A message with no dependencies depends on nothing and is never
// eligible, whatever the changeset.
func (t MessageTransform) DependsOnAny(changeset Changeset) bool {
	for ref := range t.deps {
		if _, ok := changeset[ref]; ok {
			return true
		}
	}
	return false
}

// Transforms returns the registered transforms for a target path in
// registration order.
func (c *Context) Transforms(path string) []MessageTransform {
	return c.transforms[path]
}

// findTransform returns the first registered transform for ident.
// Duplicate registrations are kept but never win over an earlier one.
func findTransform(transforms []MessageTransform, ident string) *MessageTransform {
	for i := range transforms {
		if transforms[i].entity.ID.Name == ident {
			return &transforms[i]
		}
	}
	return nil
}

// ErrBuildInProgress is returned by BeginMessage when the previous
// message build has not been finalized with Done. Message construction
// is single-slot: dependency capture must not interleave.
var ErrBuildInProgress = errors.New("message build already in progress")
