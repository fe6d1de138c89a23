// Package runner drives the annotation engine across many files: path
// discovery, parallel per-file transforms, result application, caching,
// and the watch loop. Files are fully independent; no state is shared
// between per-file transforms beyond the read-only configuration.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JelleZijlstra/autotyping/internal/annotate"
	"github.com/JelleZijlstra/autotyping/internal/config"
	"github.com/JelleZijlstra/autotyping/internal/pysrc"
)

// Mode selects what happens with a rewritten file.
type Mode int

const (
	// ModePrint writes the rewritten source to stdout.
	ModePrint Mode = iota
	// ModeWrite rewrites files in place.
	ModeWrite
	// ModeDiff prints a styled diff instead of applying changes.
	ModeDiff
)

// ErrFilesFailed reports that at least one file's transform failed; the
// other files were still processed.
var ErrFilesFailed = errors.New("some files failed")

// Runner processes a set of paths under one immutable configuration.
type Runner struct {
	Opts   *config.Options
	Mode   Mode
	Jobs   int
	Cache  *Cache // nil disables caching
	Logger *zap.Logger
	Stdout io.Writer
}

// Summary is the outcome of one run.
type Summary struct {
	Scanned   int
	Changed   int
	CacheHits int
	Failed    int
	Duration  time.Duration
}

type fileResult struct {
	output  string
	changed bool
	hit     bool
	err     error
}

// Run discovers Python files under the given paths and transforms each.
// A per-file failure is logged and counted without affecting the others;
// ErrFilesFailed is returned when any file failed.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	start := time.Now()
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	var suggestions *annotate.Suggestions
	if r.Opts.PyanalyzeReport != "" {
		var err error
		suggestions, err = annotate.LoadSuggestions(r.Opts.PyanalyzeReport, logger)
		if err != nil {
			return Summary{}, err
		}
		logger.Debug("loaded pyanalyze report",
			zap.String("path", r.Opts.PyanalyzeReport),
			zap.Int("suggestions", suggestions.Len()))
	}
	engine := annotate.New(r.Opts, suggestions, logger)

	files, err := Discover(paths)
	if err != nil {
		return Summary{}, err
	}
	logger.Debug("discovered files", zap.Int("count", len(files)))

	jobs := r.Jobs
	if jobs < 1 {
		jobs = 1
	}
	fingerprint := r.Opts.Fingerprint()
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			results[i] = r.processFile(ctx, engine, path, fingerprint, logger)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Scanned: len(files)}
	out := r.Stdout
	if out == nil {
		out = os.Stdout
	}
	for i, res := range results {
		switch {
		case res.err != nil:
			summary.Failed++
			logger.Error("transform failed", zap.String("file", files[i]), zap.Error(res.err))
		case res.hit:
			summary.CacheHits++
		case res.changed:
			summary.Changed++
		}
		if res.output != "" {
			fmt.Fprint(out, res.output)
		}
	}
	summary.Duration = time.Since(start)
	logger.Info("run complete",
		zap.Int("scanned", summary.Scanned),
		zap.Int("changed", summary.Changed),
		zap.Int("cache_hits", summary.CacheHits),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration))

	if summary.Failed > 0 {
		return summary, ErrFilesFailed
	}
	return summary, nil
}

// processFile transforms one file. All per-file state, the parser
// included, is local to this call.
func (r *Runner) processFile(ctx context.Context, engine *annotate.Engine, path, fingerprint string, logger *zap.Logger) fileResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileResult{err: err}
	}

	hash := Hash(content, fingerprint)
	if r.Mode == ModeWrite && r.Cache.Fresh(path, hash) {
		logger.Debug("cache hit", zap.String("file", path))
		return fileResult{hit: true}
	}

	parser := pysrc.NewParser()
	defer parser.Close()
	file, err := parser.Parse(ctx, path, content)
	if err != nil {
		return fileResult{err: err}
	}
	defer file.Close()

	rewritten, changed, err := engine.Rewrite(file)
	if err != nil {
		return fileResult{err: err}
	}

	res := fileResult{changed: changed}
	switch r.Mode {
	case ModeWrite:
		if changed {
			info, statErr := os.Stat(path)
			mode := fs.FileMode(0o644)
			if statErr == nil {
				mode = info.Mode()
			}
			if err := os.WriteFile(path, rewritten, mode); err != nil {
				return fileResult{err: fmt.Errorf("failed to write %s: %w", path, err)}
			}
		}
		if err := r.Cache.Record(path, Hash(rewritten, fingerprint)); err != nil {
			logger.Debug("cache record failed", zap.String("file", path), zap.Error(err))
		}
	case ModeDiff:
		res.output = renderDiff(path, content, rewritten)
	case ModePrint:
		res.output = string(rewritten)
	}
	return res
}

// Discover expands the argument paths into the sorted list of Python
// source files they denote. Directories are walked recursively.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot stat %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if name := d.Name(); name != "." && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsPythonFile(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// IsPythonFile reports whether path names a Python source or stub file.
func IsPythonFile(path string) bool {
	switch filepath.Ext(path) {
	case ".py", ".pyi", ".pyw":
		return true
	}
	return false
}
