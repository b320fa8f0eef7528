// ftlkit — migrates legacy localization resources (.properties, .dtd,
// .po) into FTL, driven by declarative YAML recipes.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/minios-linux/ftlkit/i18n"
	"github.com/minios-linux/ftlkit/legacy"
	"github.com/minios-linux/ftlkit/lockfile"
	"github.com/minios-linux/ftlkit/migrate"
	"github.com/minios-linux/ftlkit/recipe"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	recipePath   string
	targetLang   string
	referenceDir string
	l10nDir      string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ftlkit",
		Short: "Migrate legacy localization files to FTL",
		Long: `ftlkit — migrates legacy localization resources to FTL.

A YAML recipe declares, per FTL resource, the legacy source files
(.properties, .dtd, .po) and how each message is synthesized from them.
ftlkit merges every reference FTL file with the current localization and
the recipe's transforms: existing translations are always kept, missing
messages are built from legacy data when the changeset allows it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Shared input flags — inherited by all subcommands
	root.PersistentFlags().StringVarP(&recipePath, "recipe", "r", "recipe.yaml", "Migration recipe file")
	root.PersistentFlags().StringVarP(&targetLang, "lang", "l", "", "Target language (overrides the recipe)")
	root.PersistentFlags().StringVar(&referenceDir, "reference-dir", "reference", "Directory with reference FTL files")
	root.PersistentFlags().StringVar(&l10nDir, "l10n-dir", ".", "Directory with current FTL and legacy files")

	root.AddCommand(
		newMigrateCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ftlkit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// shared context setup
// ---------------------------------------------------------------------------

// buildContext loads the recipe and registers all of its inputs with a
// fresh migration context.
func buildContext(backfill bool) (*migrate.Context, *recipe.Recipe, error) {
	rec, err := recipe.Load(recipePath)
	if err != nil {
		return nil, nil, err
	}

	lang := targetLang
	if lang == "" {
		lang = rec.Lang
	}
	if lang == "" {
		return nil, nil, errors.New(i18n.T("no target language: set lang in the recipe or pass --lang"))
	}

	ctx := migrate.NewContext(lang, referenceDir, l10nDir, migrate.WithCommentBackfill(backfill))
	if err := rec.Apply(ctx); err != nil {
		return nil, nil, err
	}

	for _, rep := range ctx.Reports() {
		logWarning("%s: %v", rep.Path, rep.Err)
	}
	if len(ctx.ReferencePaths()) == 0 {
		return nil, nil, errors.New(i18n.T("no reference resources could be loaded"))
	}

	return ctx, rec, nil
}

// incrementalChangeset computes the changeset of legacy translations
// that are new or changed since the lock file was last written.
func incrementalChangeset(ctx *migrate.Context, lock *lockfile.LockFile) migrate.Changeset {
	changeset := migrate.NewChangeset()
	for _, path := range ctx.LegacyPaths() {
		col, _ := ctx.Legacy(path)
		for _, ref := range lock.ChangedRefs(path, col) {
			changeset.Add(ref)
		}
	}
	return changeset
}

// ---------------------------------------------------------------------------
// migrate (run the merge and write output files)
// ---------------------------------------------------------------------------

func newMigrateCmd() *cobra.Command {
	var (
		outputDir   string
		incremental bool
		dryRun      bool
		noBackfill  bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Merge legacy translations into FTL files",
		Long: `Run the migration: for every reference FTL file, merge the current
localization with messages synthesized from legacy files per the recipe,
and write the result to the output directory.

With --incremental, only legacy strings that are new or changed since
the last recorded run (per ftlkit.lock in the output directory) are
eligible for synthesis. Without it, every known legacy string is.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(outputDir, incremental, dryRun, !noBackfill)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "migrated", "Directory to write merged FTL files to")
	cmd.Flags().BoolVar(&incremental, "incremental", false, "Only migrate legacy strings new or changed since the last run")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be written without writing")
	cmd.Flags().BoolVar(&noBackfill, "no-comment-backfill", false, "Do not copy reference comments onto synthesized messages")

	return cmd
}

func runMigrate(outputDir string, incremental, dryRun, backfill bool) error {
	ctx, _, err := buildContext(backfill)
	if err != nil {
		return err
	}

	lock, err := lockfile.Load(outputDir)
	if err != nil {
		return err
	}

	var changeset migrate.Changeset // nil means everything known
	if incremental {
		changeset = incrementalChangeset(ctx, lock)
		logInfo(i18n.T("incremental run: %d changed legacy strings"), len(changeset))
	}

	results, err := ctx.Merge(changeset)
	if err != nil {
		return err
	}
	statuses := ctx.Status(changeset)

	var written []string
	paths := ctx.ReferencePaths()
	for _, path := range paths {
		existing, migrated, blocked, missing := summarize(statuses[path])
		target := filepath.Join(outputDir, path)

		if dryRun {
			logInfo(i18n.T("would write %s: %d kept, %d migrated, %d blocked, %d without transform"),
				target, existing, migrated, blocked, missing)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			logError("%s: %v", path, err)
			continue
		}
		if err := os.WriteFile(target, results[path], 0644); err != nil {
			logError("%s: %v", path, err)
			continue
		}
		written = append(written, path)
		logSuccess(i18n.T("%s: %d kept, %d migrated, %d blocked, %d without transform"),
			target, existing, migrated, blocked, missing)
	}

	if dryRun {
		return nil
	}

	// Record the dependencies of the messages this run actually wrote,
	// so --incremental re-migrates a string only when it changes again.
	// Strings no written message consumed stay unrecorded: a transform
	// added for them later must still see them as new.
	for _, path := range written {
		for _, st := range statuses[path] {
			if st.State != migrate.StateMigrate {
				continue
			}
			for _, dep := range transformDeps(ctx, path, st.Ident) {
				col, ok := ctx.Legacy(dep.Path)
				if !ok {
					continue
				}
				if value, ok := col.Get(dep.Key); ok {
					lock.Record(dep.Path, dep.Key, value)
				}
			}
		}
	}
	for _, path := range ctx.LegacyPaths() {
		col, _ := ctx.Legacy(path)
		lock.Clean(path, col)
	}
	if err := lock.Save(); err != nil {
		return err
	}

	return nil
}

// transformDeps returns the dependency refs of the registered transform
// for ident, or nil when none is registered.
func transformDeps(ctx *migrate.Context, path, ident string) []legacy.Ref {
	for _, t := range ctx.Transforms(path) {
		if t.Entity().ID.Name == ident {
			return t.Dependencies()
		}
	}
	return nil
}

// summarize tallies message dispositions for one resource path.
func summarize(statuses []migrate.MessageStatus) (existing, migrated, blocked, missing int) {
	for _, st := range statuses {
		switch st.State {
		case migrate.StateExisting:
			existing++
		case migrate.StateMigrate:
			migrated++
		case migrate.StateNotInChangeset:
			blocked++
		case migrate.StateNoTransform:
			missing++
		}
	}
	return existing, migrated, blocked, missing
}

// ---------------------------------------------------------------------------
// status (read-only: per-message migration disposition)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var incremental bool
	var outputDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what a migration run would do",
		Long: `Show, per reference FTL file, what the merge would do with each
message: keep the existing translation, synthesize it from legacy data,
or omit it (blocked by the changeset, or no transform declared).
Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(outputDir, incremental)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "migrated", "Directory holding ftlkit.lock for --incremental")
	cmd.Flags().BoolVar(&incremental, "incremental", false, "Gate against legacy strings changed since the last run")

	return cmd
}

func runStatus(outputDir string, incremental bool) error {
	ctx, _, err := buildContext(true)
	if err != nil {
		return err
	}

	var changeset migrate.Changeset
	if incremental {
		lock, err := lockfile.Load(outputDir)
		if err != nil {
			return err
		}
		changeset = incrementalChangeset(ctx, lock)
	}

	statuses := ctx.Status(changeset)

	for _, path := range ctx.ReferencePaths() {
		fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, path, colorReset)
		fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

		for _, st := range statuses[path] {
			fmt.Fprintf(os.Stderr, "  %s %s\n", stateLabel(st.State), st.Ident)
		}

		existing, migrated, blocked, missing := summarize(statuses[path])
		fmt.Fprintf(os.Stderr, "  %s\n", i18n.T("summary:"))
		fmt.Fprintf(os.Stderr, "    %s\n",
			fmt.Sprintf(i18n.T("%d kept, %d migrated, %d blocked, %d without transform"),
				existing, migrated, blocked, missing))
	}

	// Surface transforms that never matched a reference message.
	for _, path := range ctx.ReferencePaths() {
		known := make(map[string]bool)
		for _, st := range statuses[path] {
			known[st.Ident] = true
		}
		var orphans []string
		for _, t := range ctx.Transforms(path) {
			if !known[t.Entity().ID.Name] {
				orphans = append(orphans, t.Entity().ID.Name)
			}
		}
		sort.Strings(orphans)
		for _, ident := range orphans {
			logWarning(i18n.T("transform %s %q matches no reference message"), path, ident)
		}
	}

	return nil
}

// stateLabel renders a colored fixed-width disposition tag.
func stateLabel(s migrate.State) string {
	switch s {
	case migrate.StateExisting:
		return colorGreen + "kept     " + colorReset
	case migrate.StateMigrate:
		return colorGreen + "migrate  " + colorReset
	case migrate.StateNotInChangeset:
		return colorYellow + "blocked  " + colorReset
	case migrate.StateNoTransform:
		return colorRed + "missing  " + colorReset
	}
	return "?        "
}
