package dtdfile

import (
	"reflect"
	"testing"
)

func TestParseEntities(t *testing.T) {
	f, err := Parse([]byte(`<!-- Strings for the downloads panel. -->
<!ENTITY aboutDownloads.title "Downloads">
<!ENTITY aboutDownloads.header  "Your downloads">
<!ENTITY window.width '36em'>
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	wantKeys := []string{"aboutDownloads.title", "aboutDownloads.header", "window.width"}
	if got := f.Keys(); !reflect.DeepEqual(got, wantKeys) {
		t.Fatalf("Keys() = %v, want %v", got, wantKeys)
	}

	if got, _ := f.Get("aboutDownloads.title"); got != "Downloads" {
		t.Fatalf("Get(title) = %q", got)
	}
	if got, _ := f.Get("window.width"); got != "36em" {
		t.Fatalf("Get(window.width) = %q", got)
	}
	if _, ok := f.Get("missing"); ok {
		t.Fatal("Get(missing) should report absence")
	}
}

func TestParseSkipsCommentedEntities(t *testing.T) {
	f, err := Parse([]byte(`<!-- <!ENTITY old.key "gone"> -->
<!ENTITY live.key "here">
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := f.Get("old.key"); ok {
		t.Fatal("commented-out entity should not be parsed")
	}
	if got, _ := f.Get("live.key"); got != "here" {
		t.Fatalf("Get(live.key) = %q", got)
	}
}

func TestParseCharacterReferences(t *testing.T) {
	f, err := Parse([]byte(`<!ENTITY refs "a &amp; b &lt;c&gt; &quot;d&quot; &apos;e&apos;">
<!ENTITY numeric "&#8230; &#x2026;">
<!ENTITY unknown "&brandShortName; stays">
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got, _ := f.Get("refs"); got != `a & b <c> "d" 'e'` {
		t.Fatalf("Get(refs) = %q", got)
	}
	if got, _ := f.Get("numeric"); got != "… …" {
		t.Fatalf("Get(numeric) = %q", got)
	}
	if got, _ := f.Get("unknown"); got != "&brandShortName; stays" {
		t.Fatalf("Get(unknown) = %q", got)
	}
}

func TestParseDuplicateEntityLastWins(t *testing.T) {
	f, err := Parse([]byte(`<!ENTITY key "first">
<!ENTITY key "second">
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := f.Keys(); len(got) != 1 {
		t.Fatalf("Keys() = %v, want one entry", got)
	}
	if got, _ := f.Get("key"); got != "second" {
		t.Fatalf("Get(key) = %q, want second", got)
	}
}
