// Package recipe implements migration recipes: YAML documents declaring
// which resources a migration covers and how each missing FTL message
// is synthesized from legacy translations.
//
// Example recipe:
//
//	lang: it
//	resources:
//	  - reference: aboutDownloads.ftl
//	    legacy: [aboutDownloads.dtd, aboutDownloads.properties]
//	messages:
//	  - file: aboutDownloads.ftl
//	    id: delete-all
//	    value:
//	      op: plurals
//	      of: {op: source, file: aboutDownloads.properties, key: deleteAll}
//	      selector: $num
//	      foreach:
//	        op: replace
//	        of: {op: form}
//	        with: {"#1": $num}
package recipe

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/ftlkit/ftl"
	"github.com/minios-linux/ftlkit/migrate"
	"github.com/minios-linux/ftlkit/transform"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Recipe is the top-level recipe document.
type Recipe struct {
	// Lang is the default target language; a CLI flag may override it.
	Lang string `yaml:"lang,omitempty"`
	// Resources lists the files taking part in the migration.
	Resources []Resource `yaml:"resources"`
	// Messages lists the message declarations, in the order they are
	// registered.
	Messages []Message `yaml:"messages"`
}

// Resource declares one reference path and its input files.
type Resource struct {
	// Reference is the reference FTL path (relative to the reference
	// directory). It is also the merge output path.
	Reference string `yaml:"reference"`
	// Current is the current localization path relative to the
	// localization directory (default: same as Reference).
	Current string `yaml:"current,omitempty"`
	// Legacy lists legacy translation files relative to the
	// localization directory.
	Legacy []string `yaml:"legacy,omitempty"`
}

// Message declares one synthesized FTL message.
type Message struct {
	// File is the target reference path the message belongs to.
	File string `yaml:"file"`
	// ID is the message identifier.
	ID string `yaml:"id"`
	// Comment optionally attaches a comment to the message.
	Comment string `yaml:"comment,omitempty"`
	// Value is the transform tree for the message value.
	Value *Op `yaml:"value,omitempty"`
	// Traits are the transform trees for named sub-values.
	Traits []Trait `yaml:"traits,omitempty"`
}

// Trait declares one named sub-value of a message.
type Trait struct {
	Key     string `yaml:"key"`
	Default bool   `yaml:"default,omitempty"`
	Value   *Op    `yaml:"value"`
}

// Op is one node of a transform tree. Which fields apply depends on Op:
//
//	source       file, key
//	text         text
//	form         (the current plural form; only inside foreach)
//	copy         of
//	replace      of, with (placeholder → $argument)
//	plurals      of, selector ($argument), foreach
//	concat       parts
//	interpolate  arg ($argument)
type Op struct {
	Op       string            `yaml:"op"`
	File     string            `yaml:"file,omitempty"`
	Key      string            `yaml:"key,omitempty"`
	Text     string            `yaml:"text,omitempty"`
	Arg      string            `yaml:"arg,omitempty"`
	Of       *Op               `yaml:"of,omitempty"`
	Selector string            `yaml:"selector,omitempty"`
	With     map[string]string `yaml:"with,omitempty"`
	Foreach  *Op               `yaml:"foreach,omitempty"`
	Parts    []*Op             `yaml:"parts,omitempty"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads and validates a recipe file.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates recipe YAML.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing recipe: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks structural consistency: every resource has a
// reference path, every message names a declared resource and compiles.
func (r *Recipe) Validate() error {
	if len(r.Resources) == 0 {
		return fmt.Errorf("recipe declares no resources")
	}
	declared := make(map[string]bool, len(r.Resources))
	for i, res := range r.Resources {
		if res.Reference == "" {
			return fmt.Errorf("resource %d: missing reference path", i+1)
		}
		if declared[res.Reference] {
			return fmt.Errorf("resource %q declared twice", res.Reference)
		}
		declared[res.Reference] = true
	}

	seen := make(map[string]bool, len(r.Messages))
	for _, m := range r.Messages {
		where := fmt.Sprintf("message %s %q", m.File, m.ID)
		if m.File == "" || m.ID == "" {
			return fmt.Errorf("%s: file and id are required", where)
		}
		if !declared[m.File] {
			return fmt.Errorf("%s: file not declared under resources", where)
		}
		if seen[m.File+"\x00"+m.ID] {
			return fmt.Errorf("%s: duplicate message id", where)
		}
		seen[m.File+"\x00"+m.ID] = true
		if m.Value == nil && len(m.Traits) == 0 {
			return fmt.Errorf("%s: needs a value or traits", where)
		}
		if m.Value != nil {
			if _, err := compile(m.Value, false); err != nil {
				return fmt.Errorf("%s: value: %w", where, err)
			}
		}
		for _, t := range m.Traits {
			if t.Key == "" {
				return fmt.Errorf("%s: trait with empty key", where)
			}
			if t.Value == nil {
				return fmt.Errorf("%s: trait %q has no value", where, t.Key)
			}
			if _, err := compile(t.Value, false); err != nil {
				return fmt.Errorf("%s: trait %q: %w", where, t.Key, err)
			}
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Application
// ---------------------------------------------------------------------------

// Apply registers the recipe's resources and messages with a migration
// context. Validate has already vetted every transform tree, so builds
// here cannot fail structurally.
func (r *Recipe) Apply(ctx *migrate.Context) error {
	for _, res := range r.Resources {
		ctx.AddReference(res.Reference)
		current := res.Current
		if current == "" {
			current = res.Reference
		}
		ctx.AddCurrent(current)
		for _, path := range res.Legacy {
			ctx.AddLegacy(path)
		}
	}

	for _, m := range r.Messages {
		b, err := ctx.BeginMessage(m.File, m.ID)
		if err != nil {
			return err
		}
		if m.Comment != "" {
			b.Comment(m.Comment)
		}
		if m.Value != nil {
			node, err := compile(m.Value, false)
			if err != nil {
				return fmt.Errorf("message %s %q: %w", m.File, m.ID, err)
			}
			b.Value(node)
		}
		for _, t := range m.Traits {
			node, err := compile(t.Value, false)
			if err != nil {
				return fmt.Errorf("message %s %q trait %q: %w", m.File, m.ID, t.Key, err)
			}
			b.Trait(t.Key, t.Default, node)
		}
		if err := b.Done(); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transform compilation
// ---------------------------------------------------------------------------

// formPlaceholder stands in for the current plural form while a foreach
// subtree is compiled; Plurals substitutes the real form at build time.
type formPlaceholder struct{}

func (formPlaceholder) Build(env transform.Env) *ftl.Pattern { return &ftl.Pattern{} }

// compile turns an Op tree into a transform node. inForeach permits the
// `form` op, which is only meaningful inside a plurals foreach subtree.
func compile(op *Op, inForeach bool) (transform.Node, error) {
	if op == nil {
		return nil, fmt.Errorf("missing operation")
	}

	switch op.Op {
	case "source":
		if op.File == "" || op.Key == "" {
			return nil, fmt.Errorf("source needs file and key")
		}
		return transform.Source{Path: op.File, Key: op.Key}, nil

	case "text":
		return transform.Literal{Text: op.Text}, nil

	case "form":
		if !inForeach {
			return nil, fmt.Errorf("form is only valid inside a plurals foreach")
		}
		return formPlaceholder{}, nil

	case "copy":
		of, err := compile(op.Of, inForeach)
		if err != nil {
			return nil, fmt.Errorf("copy: %w", err)
		}
		return transform.Copy{Of: of}, nil

	case "replace":
		of, err := compile(op.Of, inForeach)
		if err != nil {
			return nil, fmt.Errorf("replace: %w", err)
		}
		if len(op.With) == 0 {
			return nil, fmt.Errorf("replace needs a with mapping")
		}
		with := make(map[string]ftl.Expression, len(op.With))
		for placeholder, arg := range op.With {
			expr, err := externalArg(arg)
			if err != nil {
				return nil, fmt.Errorf("replace %q: %w", placeholder, err)
			}
			with[placeholder] = expr
		}
		return transform.Replace{Of: of, With: with}, nil

	case "plurals":
		of, err := compile(op.Of, inForeach)
		if err != nil {
			return nil, fmt.Errorf("plurals: %w", err)
		}
		selector, err := externalArg(op.Selector)
		if err != nil {
			return nil, fmt.Errorf("plurals selector: %w", err)
		}
		if op.Foreach == nil {
			return nil, fmt.Errorf("plurals needs a foreach")
		}
		// Vet the subtree once so build-time substitution cannot fail.
		if _, err := compile(op.Foreach, true); err != nil {
			return nil, fmt.Errorf("plurals foreach: %w", err)
		}
		foreach := op.Foreach
		return transform.Plurals{
			Of:       of,
			Selector: selector,
			ForEach: func(form transform.Node) transform.Node {
				node, _ := compileWithForm(foreach, form)
				return node
			},
		}, nil

	case "concat":
		if len(op.Parts) == 0 {
			return nil, fmt.Errorf("concat needs parts")
		}
		parts := make([]transform.Node, 0, len(op.Parts))
		for i, part := range op.Parts {
			node, err := compile(part, inForeach)
			if err != nil {
				return nil, fmt.Errorf("concat part %d: %w", i+1, err)
			}
			parts = append(parts, node)
		}
		return transform.Concat{Parts: parts}, nil

	case "interpolate":
		expr, err := externalArg(op.Arg)
		if err != nil {
			return nil, fmt.Errorf("interpolate: %w", err)
		}
		return transform.Interpolate{Expr: expr}, nil

	case "":
		return nil, fmt.Errorf("missing op")

	default:
		return nil, fmt.Errorf("unknown op %q", op.Op)
	}
}

// compileWithForm compiles a foreach subtree with `form` ops bound to
// the given node.
func compileWithForm(op *Op, form transform.Node) (transform.Node, error) {
	if op.Op == "form" {
		return form, nil
	}
	node, err := compile(op, true)
	if err != nil {
		return nil, err
	}
	return substituteForm(node, form), nil
}

// substituteForm rebuilds a compiled node, replacing form placeholders.
func substituteForm(node transform.Node, form transform.Node) transform.Node {
	switch n := node.(type) {
	case formPlaceholder:
		return form
	case transform.Copy:
		n.Of = substituteForm(n.Of, form)
		return n
	case transform.Replace:
		n.Of = substituteForm(n.Of, form)
		return n
	case transform.Plurals:
		// Only the operand binds to the enclosing form; `form` ops in
		// the nested foreach bind to the nested plurals' own forms.
		n.Of = substituteForm(n.Of, form)
		return n
	case transform.Concat:
		parts := make([]transform.Node, len(n.Parts))
		for i, p := range n.Parts {
			parts[i] = substituteForm(p, form)
		}
		n.Parts = parts
		return n
	default:
		return node
	}
}

// externalArg parses an `$name` argument reference.
func externalArg(s string) (ftl.Expression, error) {
	name, ok := strings.CutPrefix(s, "$")
	if !ok || name == "" {
		return nil, fmt.Errorf("expected external argument like $num, got %q", s)
	}
	return &ftl.ExternalArgument{Name: name}, nil
}
