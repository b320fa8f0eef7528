package migrate

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/minios-linux/ftlkit/ftl"
	"github.com/minios-linux/ftlkit/legacy"
	"github.com/minios-linux/ftlkit/transform"
)

const refDownloads = `# Downloads panel.

title = Downloads

header = Recent downloads

# Deletes every download in the list.
delete-all = Delete all

[[ actions ]]

retry = Retry

open = Open
`

const curDownloads = `title = Téléchargements
`

const dtdDownloads = `<!ENTITY aboutDownloads.title "Téléchargements DTD">
<!ENTITY aboutDownloads.retry "Réessayer">
`

const propDownloads = `deleteAll=Tout supprimer
`

func writeInput(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func buildMessage(t *testing.T, c *Context, path, ident string, node transform.Node) {
	t.Helper()
	b, err := c.BeginMessage(path, ident)
	if err != nil {
		t.Fatalf("BeginMessage(%s): %v", ident, err)
	}
	if err := b.Value(node).Done(); err != nil {
		t.Fatalf("Done(%s): %v", ident, err)
	}
}

// newSession builds the standard fixture: a reference with a section, a
// partial current localization and two legacy resources, plus transforms
// for title (shadowed by current), header (no dependencies), delete-all
// and retry. The "open" message has no transform.
func newSession(t *testing.T, opts ...Option) *Context {
	t.Helper()
	refDir, l10nDir := t.TempDir(), t.TempDir()
	writeInput(t, refDir, "aboutDownloads.ftl", refDownloads)
	writeInput(t, l10nDir, "aboutDownloads.ftl", curDownloads)
	writeInput(t, l10nDir, "aboutDownloads.dtd", dtdDownloads)
	writeInput(t, l10nDir, "aboutDownloads.properties", propDownloads)

	c := NewContext("fr", refDir, l10nDir, opts...)
	c.AddReference("aboutDownloads.ftl")
	c.AddCurrent("aboutDownloads.ftl")
	c.AddLegacy("aboutDownloads.dtd")
	c.AddLegacy("aboutDownloads.properties")

	buildMessage(t, c, "aboutDownloads.ftl", "title",
		transform.Copy{Of: transform.Source{Path: "aboutDownloads.dtd", Key: "aboutDownloads.title"}})
	buildMessage(t, c, "aboutDownloads.ftl", "header",
		transform.Literal{Text: "Téléchargements récents"})
	buildMessage(t, c, "aboutDownloads.ftl", "delete-all",
		transform.Copy{Of: transform.Source{Path: "aboutDownloads.properties", Key: "deleteAll"}})
	buildMessage(t, c, "aboutDownloads.ftl", "retry",
		transform.Copy{Of: transform.Source{Path: "aboutDownloads.dtd", Key: "aboutDownloads.retry"}})
	return c
}

func mergeOne(t *testing.T, c *Context, changeset Changeset) string {
	t.Helper()
	results, err := c.Merge(changeset)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	return string(results["aboutDownloads.ftl"])
}

func TestMergeDefaultChangeset(t *testing.T) {
	c := newSession(t)

	// title comes from current, not from its transform; header has no
	// dependencies and stays out; open has no transform; the emptied
	// positions leave the reference order intact as a subsequence.
	want := `# Downloads panel.

title = Téléchargements

# Deletes every download in the list.
delete-all = Tout supprimer

[[ actions ]]

retry = Réessayer
`
	if got := mergeOne(t, c, nil); got != want {
		t.Fatalf("merged:\n%s\nwant:\n%s", got, want)
	}
}

func TestMergeNeverRegressesCurrent(t *testing.T) {
	c := newSession(t)
	got := mergeOne(t, c, nil)

	if !strings.Contains(got, "title = Téléchargements\n") {
		t.Fatalf("current translation lost:\n%s", got)
	}
	if strings.Contains(got, "Téléchargements DTD") {
		t.Fatalf("transform output replaced current translation:\n%s", got)
	}
}

func TestMergeChangesetGating(t *testing.T) {
	c := newSession(t)

	tests := []struct {
		name       string
		changeset  Changeset
		wantDelete bool
		wantRetry  bool
	}{
		{"properties only", NewChangeset(legacy.Ref{Path: "aboutDownloads.properties", Key: "deleteAll"}), true, false},
		{"dtd only", NewChangeset(legacy.Ref{Path: "aboutDownloads.dtd", Key: "aboutDownloads.retry"}), false, true},
		{"empty", NewChangeset(), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeOne(t, c, tt.changeset)
			if hasDelete := strings.Contains(got, "delete-all ="); hasDelete != tt.wantDelete {
				t.Fatalf("delete-all present = %v, want %v:\n%s", hasDelete, tt.wantDelete, got)
			}
			if hasRetry := strings.Contains(got, "retry ="); hasRetry != tt.wantRetry {
				t.Fatalf("retry present = %v, want %v:\n%s", hasRetry, tt.wantRetry, got)
			}
		})
	}
}

func TestMergeEmptyDependencySetNeverEligible(t *testing.T) {
	c := newSession(t)

	// Even the widest possible changeset cannot admit a message that
	// depends on nothing.
	if got := mergeOne(t, c, nil); strings.Contains(got, "header =") {
		t.Fatalf("dependency-free message migrated:\n%s", got)
	}
}

func TestMergeIdempotence(t *testing.T) {
	c := newSession(t)
	first := mergeOne(t, c, nil)

	// Feed the merged output back as the current localization.
	refDir, l10nDir := t.TempDir(), t.TempDir()
	writeInput(t, refDir, "aboutDownloads.ftl", refDownloads)
	writeInput(t, l10nDir, "aboutDownloads.ftl", first)
	writeInput(t, l10nDir, "aboutDownloads.dtd", dtdDownloads)
	writeInput(t, l10nDir, "aboutDownloads.properties", propDownloads)

	c2 := NewContext("fr", refDir, l10nDir)
	c2.AddReference("aboutDownloads.ftl")
	c2.AddCurrent("aboutDownloads.ftl")
	c2.AddLegacy("aboutDownloads.dtd")
	c2.AddLegacy("aboutDownloads.properties")
	buildMessage(t, c2, "aboutDownloads.ftl", "delete-all",
		transform.Copy{Of: transform.Source{Path: "aboutDownloads.properties", Key: "deleteAll"}})
	buildMessage(t, c2, "aboutDownloads.ftl", "retry",
		transform.Copy{Of: transform.Source{Path: "aboutDownloads.dtd", Key: "aboutDownloads.retry"}})

	if second := mergeOne(t, c2, nil); second != first {
		t.Fatalf("second run diverged:\n%s\nfirst:\n%s", second, first)
	}
}

func TestMergeCommentBackfillDisabled(t *testing.T) {
	c := newSession(t, WithCommentBackfill(false))
	got := mergeOne(t, c, nil)

	if strings.Contains(got, "# Deletes every download in the list.") {
		t.Fatalf("comment backfilled despite option:\n%s", got)
	}
	if !strings.Contains(got, "delete-all = Tout supprimer") {
		t.Fatalf("message missing:\n%s", got)
	}
}

func TestMergeOwnCommentWinsOverBackfill(t *testing.T) {
	c := newSession(t)
	b, err := c.BeginMessage("aboutDownloads.ftl", "open")
	if err != nil {
		t.Fatal(err)
	}
	err = b.Comment("Opens the download.").
		Value(transform.Copy{Of: transform.Source{Path: "aboutDownloads.dtd", Key: "aboutDownloads.retry"}}).
		Done()
	if err != nil {
		t.Fatal(err)
	}

	got := mergeOne(t, c, nil)
	if !strings.Contains(got, "# Opens the download.\nopen = Réessayer\n") {
		t.Fatalf("builder comment not kept:\n%s", got)
	}
}

func TestMergeFirstTransformWins(t *testing.T) {
	c := newSession(t)
	buildMessage(t, c, "aboutDownloads.ftl", "retry",
		transform.Literal{Text: "WRONG"})

	if got := mergeOne(t, c, nil); strings.Contains(got, "WRONG") {
		t.Fatalf("later duplicate transform won:\n%s", got)
	}
}

func TestMergeKeepsEmptiedSection(t *testing.T) {
	c := newSession(t)

	// Nothing in the section survives, yet the header must.
	got := mergeOne(t, c, NewChangeset())
	if !strings.Contains(got, "[[ actions ]]") {
		t.Fatalf("emptied section dropped:\n%s", got)
	}
}

func TestBeginMessageSingleSlot(t *testing.T) {
	c := newSession(t)
	b, err := c.BeginMessage("aboutDownloads.ftl", "first")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.BeginMessage("aboutDownloads.ftl", "second"); !errors.Is(err, ErrBuildInProgress) {
		t.Fatalf("err = %v, want ErrBuildInProgress", err)
	}
	if err := b.Value(transform.Literal{Text: "x"}).Done(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.BeginMessage("aboutDownloads.ftl", "second"); err != nil {
		t.Fatalf("slot not released: %v", err)
	}
}

func TestMergeRefusesUnfinishedBuild(t *testing.T) {
	c := newSession(t)
	if _, err := c.BeginMessage("aboutDownloads.ftl", "pending"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Merge(nil); !errors.Is(err, ErrBuildInProgress) {
		t.Fatalf("err = %v, want ErrBuildInProgress", err)
	}
}

func TestDependencyCapture(t *testing.T) {
	c := newSession(t)
	b, err := c.BeginMessage("aboutDownloads.ftl", "open")
	if err != nil {
		t.Fatal(err)
	}
	err = b.Value(transform.Copy{Of: transform.Source{Path: "aboutDownloads.properties", Key: "deleteAll"}}).
		Trait("accesskey", false, transform.Copy{Of: transform.Source{Path: "aboutDownloads.dtd", Key: "gone"}}).
		Done()
	if err != nil {
		t.Fatal(err)
	}

	transforms := c.Transforms("aboutDownloads.ftl")
	got := transforms[len(transforms)-1]
	want := []legacy.Ref{
		{Path: "aboutDownloads.dtd", Key: "gone"},
		{Path: "aboutDownloads.properties", Key: "deleteAll"},
	}
	if !reflect.DeepEqual(got.Dependencies(), want) {
		t.Fatalf("deps = %v, want %v", got.Dependencies(), want)
	}
	// A ref from a trait branch gates the message too, even though the
	// key never existed.
	if !got.DependsOnAny(NewChangeset(legacy.Ref{Path: "aboutDownloads.dtd", Key: "gone"})) {
		t.Fatal("trait dependency ignored by the gate")
	}
}

func TestStatus(t *testing.T) {
	c := newSession(t)

	statuses := c.Status(nil)["aboutDownloads.ftl"]
	want := []MessageStatus{
		{Ident: "title", State: StateExisting},
		{Ident: "header", State: StateNotInChangeset},
		{Ident: "delete-all", State: StateMigrate},
		{Ident: "retry", State: StateMigrate},
		{Ident: "open", State: StateNoTransform},
	}
	if !reflect.DeepEqual(statuses, want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
}

func TestMergePathUnknown(t *testing.T) {
	c := newSession(t)
	if _, ok := c.MergePath("nope.ftl", nil); ok {
		t.Fatal("unknown path reported as merged")
	}
}

func TestLoadReportsAreNonFatal(t *testing.T) {
	c := NewContext("fr", t.TempDir(), t.TempDir())
	c.AddReference("missing.ftl")
	c.AddLegacy("missing.dtd")

	if len(c.Reports()) != 2 {
		t.Fatalf("reports = %v", c.Reports())
	}
	if len(c.ReferencePaths()) != 0 {
		t.Fatalf("unreadable reference registered: %v", c.ReferencePaths())
	}
	if _, err := c.Merge(nil); err != nil {
		t.Fatalf("Merge over empty session: %v", err)
	}
}

func TestMergeResourcesNilCurrent(t *testing.T) {
	ref := &ftl.Resource{Body: []ftl.Entry{
		&ftl.Entity{ID: ftl.Identifier{Name: "title"}, Value: ftl.Text("Downloads")},
	}}
	merged := MergeResources(ref, nil, nil, func(string) bool { return false }, true)
	if len(merged.Body) != 0 {
		t.Fatalf("body = %v, want empty", merged.Body)
	}
}
