package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/fsnotify/fsnotify"

	"github.com/mekanics/beanport/bean"
	"github.com/mekanics/beanport/importer"
	"github.com/mekanics/beanport/importer/dedupdb"
	"github.com/mekanics/beanport/telemetry"
)

type ExtractCmd struct {
	Files  []string `help:"Export files to extract." arg:"" type:"existingfile"`
	Output string   `help:"Write entries to this file instead of stdout." short:"o" type:"path"`
	Force  bool     `help:"Overwrite the output file without confirmation." short:"f"`
	Watch  bool     `help:"Re-extract whenever an input file changes." short:"w"`
}

func (cmd *ExtractCmd) Run(ctx *kong.Context, globals *Globals) error {
	cfg, importers, err := LoadConfig(globals.Config)
	if err != nil {
		return err
	}

	runCtx := context.Background()

	var collector telemetry.Collector
	if globals.Telemetry {
		collector = telemetry.NewTimingCollector()
		runCtx = telemetry.WithCollector(runCtx, collector)

		defer func() {
			_, _ = fmt.Fprintln(ctx.Stderr)
			collector.Report(ctx.Stderr)
		}()
	}

	run := func() error {
		return cmd.extractOnce(runCtx, ctx, cfg, importers)
	}

	if err := run(); err != nil {
		return err
	}
	if !cmd.Watch {
		return nil
	}
	return cmd.watch(ctx, run)
}

// extractOnce runs the full pipeline over all input files: extract, dedup
// against the persistent key set, render.
func (cmd *ExtractCmd) extractOnce(runCtx context.Context, ctx *kong.Context, cfg *Config, importers []importer.Importer) error {
	seen, store, err := loadSeenKeys(runCtx, cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	var directives []bean.Directive
	for _, file := range cmd.Files {
		ds, err := cmd.extractFile(runCtx, ctx, importers, file)
		if err != nil {
			return err
		}
		directives = append(directives, ds...)
	}

	dedupTimer := telemetry.FromContext(runCtx).Start("dedup")
	fresh := importer.Dedup(directives, seen)
	dedupTimer.End()
	skipped := len(directives) - len(fresh)
	if skipped > 0 {
		printInfof(ctx.Stderr, "%d already imported entr%s skipped", skipped, pluralY(skipped))
	}

	renderTimer := telemetry.FromContext(runCtx).Start("render")
	var buf bytes.Buffer
	renderer := &bean.Renderer{}
	err = renderer.Render(&buf, fresh)
	renderTimer.End()
	if err != nil {
		return err
	}

	if err := cmd.writeOutput(ctx, buf.Bytes()); err != nil {
		return err
	}

	if store != nil {
		if err := store.Save(runCtx, seen.Keys()); err != nil {
			return fmt.Errorf("cannot save dedup keys: %w", err)
		}
	}

	printSuccess(ctx.Stderr, fmt.Sprintf("%d entr%s extracted from %d file(s)", len(fresh), pluralY(len(fresh)), len(cmd.Files)))
	return nil
}

// extractFile runs one file through its importer. All-or-nothing: any
// extraction error drops the whole file's output.
func (cmd *ExtractCmd) extractFile(runCtx context.Context, ctx *kong.Context, importers []importer.Importer, file string) ([]bean.Directive, error) {
	imp := identifyImporter(importers, file)
	if imp == nil {
		printError(ctx.Stderr, fmt.Sprintf("no importer claims %s", file))
		return nil, NewCommandError(1)
	}

	timer := telemetry.FromContext(runCtx).Start(fmt.Sprintf("extract %s", filepath.Base(file)))
	defer timer.End()

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	parseTimer := timer.Child(fmt.Sprintf("parse (%s)", imp.Name()))
	directives, err := imp.Extract(runCtx, file, f)
	parseTimer.End()
	if err != nil {
		source, _ := os.ReadFile(file)
		renderer := NewErrorRenderer(source)
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.Render(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, fmt.Sprintf("extraction failed for %s", file))
		return nil, NewCommandError(1)
	}

	printInfof(ctx.Stderr, "%s: %d entr%s (%s)", pathStyle.Render(file), len(directives), pluralY(len(directives)), imp.Name())
	return directives, nil
}

func (cmd *ExtractCmd) writeOutput(ctx *kong.Context, rendered []byte) error {
	if cmd.Output == "" {
		_, err := ctx.Stdout.Write(rendered)
		return err
	}

	if _, err := os.Stat(cmd.Output); err == nil && !cmd.Force {
		confirmed, err := promptYesNo(fmt.Sprintf("File %q exists. Overwrite it?", cmd.Output))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if !confirmed {
			return fmt.Errorf("refusing to overwrite %s", cmd.Output)
		}
	}

	if err := os.WriteFile(cmd.Output, rendered, 0600); err != nil {
		return fmt.Errorf("cannot write output: %w", err)
	}
	printInfof(ctx.Stderr, "Entries written to %s", pathStyle.Render(cmd.Output))
	return nil
}

// watch re-runs the extraction whenever one of the input files is written.
func (cmd *ExtractCmd) watch(ctx *kong.Context, run func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	watched := make(map[string]bool, len(cmd.Files))
	for _, file := range cmd.Files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		watched[abs] = true
		// Watch the directory; editors replace files on save and a
		// watch on the file itself is lost with the old inode.
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("cannot watch %s: %w", abs, err)
		}
	}
	printInfof(ctx.Stderr, "Watching %d file(s) for changes", len(cmd.Files))

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !watched[abs] {
				continue
			}
			printInfof(ctx.Stderr, "%s changed, re-extracting", pathStyle.Render(event.Name))
			if err := run(); err != nil {
				printError(ctx.Stderr, err.Error())
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printError(ctx.Stderr, fmt.Sprintf("watch error: %v", err))
		}
	}
}

// loadSeenKeys opens the persistent key store when configured, otherwise
// starts with an empty in-memory set.
func loadSeenKeys(ctx context.Context, cfg *Config) (*importer.KeySet, *dedupdb.Store, error) {
	if cfg.DedupDB == "" {
		return importer.NewKeySet(), nil, nil
	}
	store, err := dedupdb.Open(cfg.DedupDB)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open dedup store: %w", err)
	}
	seen, err := store.Load(ctx)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("cannot load dedup keys: %w", err)
	}
	return seen, store, nil
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
