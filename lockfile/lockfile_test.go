package lockfile

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/minios-linux/ftlkit/legacy"
)

// memCollection is a minimal legacy collection for tests.
type memCollection struct {
	keys   []string
	values map[string]string
}

func (c memCollection) Keys() []string { return c.keys }

func (c memCollection) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

var _ legacy.Collection = memCollection{}

func TestLoadMissingIsEmpty(t *testing.T) {
	dir := t.TempDir()
	lf, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if lf.Version != Version || len(lf.Migrated) != 0 {
		t.Fatalf("lock = %+v", lf)
	}
	if lf.Path() != filepath.Join(dir, LockFileName) {
		t.Fatalf("path = %q", lf.Path())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lf, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	lf.Record("app.dtd", "title", "Downloads")
	lf.Record("app.properties", "deleteAll", "Delete all")
	if err := lf.Save(); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.Migrated, lf.Migrated) {
		t.Fatalf("loaded = %v, want %v", loaded.Migrated, lf.Migrated)
	}
	if loaded.Version != Version {
		t.Fatalf("version = %d", loaded.Version)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("{not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error")
	}
}

func TestChanged(t *testing.T) {
	lf := &LockFile{Version: Version, Migrated: make(map[string]map[string]string)}

	if !lf.Changed("app.dtd", "title", "Downloads") {
		t.Fatal("unseen entry must count as changed")
	}
	lf.Record("app.dtd", "title", "Downloads")
	if lf.Changed("app.dtd", "title", "Downloads") {
		t.Fatal("recorded entry with same value counted as changed")
	}
	if !lf.Changed("app.dtd", "title", "Téléchargements") {
		t.Fatal("edited value not detected")
	}
	if !lf.Changed("app.properties", "title", "Downloads") {
		t.Fatal("same key under another path must be independent")
	}
}

func TestChangedRefs(t *testing.T) {
	lf := &LockFile{Version: Version, Migrated: make(map[string]map[string]string)}
	col := memCollection{
		keys: []string{"title", "retry", "open"},
		values: map[string]string{
			"title": "Downloads",
			"retry": "Retry",
			"open":  "Open",
		},
	}
	lf.Record("app.dtd", "title", "Downloads")
	lf.Record("app.dtd", "retry", "Try again")

	got := lf.ChangedRefs("app.dtd", col)
	want := []legacy.Ref{
		{Path: "app.dtd", Key: "retry"},
		{Path: "app.dtd", Key: "open"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("refs = %v, want %v", got, want)
	}
}

func TestRecordCollectionAndClean(t *testing.T) {
	lf := &LockFile{Version: Version, Migrated: make(map[string]map[string]string)}
	lf.RecordCollection("app.dtd", memCollection{
		keys:   []string{"title", "removed"},
		values: map[string]string{"title": "Downloads", "removed": "Gone soon"},
	})
	if len(lf.Migrated["app.dtd"]) != 2 {
		t.Fatalf("migrated = %v", lf.Migrated)
	}

	lf.Clean("app.dtd", memCollection{
		keys:   []string{"title"},
		values: map[string]string{"title": "Downloads"},
	})
	if _, ok := lf.Migrated["app.dtd"]["removed"]; ok {
		t.Fatal("stale checksum survived Clean")
	}
	if _, ok := lf.Migrated["app.dtd"]["title"]; !ok {
		t.Fatal("live checksum removed by Clean")
	}
}

func TestSaveWithoutPath(t *testing.T) {
	lf := &LockFile{Version: Version}
	if err := lf.Save(); err == nil {
		t.Fatal("expected an error")
	}
}
