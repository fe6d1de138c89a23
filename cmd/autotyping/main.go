package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JelleZijlstra/autotyping/internal/config"
	"github.com/JelleZijlstra/autotyping/internal/runner"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Rule flags
	noneReturn              bool
	scalarReturn            bool
	boolParam               bool
	intParam                bool
	floatParam              bool
	strParam                bool
	bytesParam              bool
	annotateMagics          bool
	annotateImpreciseMagics bool
	guessCommonNames        bool
	annotateOptional        []string
	annotateNamedParam      []string
	pyanalyzeReport         string
	onlyWithoutImports      bool
	safe                    bool
	aggressive              bool

	// Output flags
	write     bool
	showDiff  bool
	jobs      int
	useCache  bool
	cachePath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "autotyping [flags] PATH...",
	Short: "Automatically add simple type annotations to Python code",
	Long: `autotyping inserts "obvious" type annotations into Python source
files based on local, syntactic heuristics: None returns, scalar literal
returns and defaults, well-known special methods, and common naming
conventions. It runs no type checker and guarantees only safe, literal
supported guesses.

By default nothing is enabled; pick rules explicitly or use --safe /
--aggressive. Without -w the rewritten source is printed to stdout.`,
	Args: cobra.MinimumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, cache, err := buildRunner()
		if err != nil {
			return err
		}
		defer cache.Close()

		summary, err := r.Run(cmd.Context(), args)
		if err != nil {
			return err
		}
		if r.Mode != runner.ModePrint {
			fmt.Fprintln(os.Stderr, summaryText(summary))
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [flags] PATH...",
	Short: "Watch paths and re-annotate Python files as they change",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Watching only makes sense when changes land in the files.
		write = true
		r, cache, err := buildRunner()
		if err != nil {
			return err
		}
		defer cache.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		err = runner.NewWatcher(r).Watch(ctx, args)
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

// buildRunner turns flags (and the optional config file) into a configured
// runner. Malformed name:module.Type mappings abort here, before any file
// is touched.
func buildRunner() (*runner.Runner, *runner.Cache, error) {
	opts, err := buildOptions()
	if err != nil {
		return nil, nil, err
	}

	mode := runner.ModePrint
	switch {
	case write:
		mode = runner.ModeWrite
	case showDiff:
		mode = runner.ModeDiff
	}

	var cache *runner.Cache
	if useCache && mode == runner.ModeWrite {
		path := cachePath
		if path == "" {
			dir, err := os.UserCacheDir()
			if err != nil {
				return nil, nil, fmt.Errorf("cannot locate cache directory: %w", err)
			}
			path = filepath.Join(dir, "autotyping", "cache.db")
		}
		cache, err = runner.OpenCache(path)
		if err != nil {
			return nil, nil, err
		}
	}

	return &runner.Runner{
		Opts:   opts,
		Mode:   mode,
		Jobs:   jobs,
		Cache:  cache,
		Logger: logger,
		Stdout: os.Stdout,
	}, cache, nil
}

func buildOptions() (*config.Options, error) {
	opts := &config.Options{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		opts = loaded
	}

	if noneReturn {
		opts.NoneReturn = true
	}
	if scalarReturn {
		opts.ScalarReturn = true
	}
	if boolParam {
		opts.BoolParam = true
	}
	if intParam {
		opts.IntParam = true
	}
	if floatParam {
		opts.FloatParam = true
	}
	if strParam {
		opts.StrParam = true
	}
	if bytesParam {
		opts.BytesParam = true
	}
	if annotateMagics {
		opts.AnnotateMagics = true
	}
	if annotateImpreciseMagics {
		opts.AnnotateImpreciseMagics = true
	}
	if guessCommonNames {
		opts.GuessCommonNames = true
	}
	if pyanalyzeReport != "" {
		opts.PyanalyzeReport = pyanalyzeReport
	}
	if onlyWithoutImports {
		opts.OnlyWithoutImports = true
	}
	if safe {
		opts.ApplySafe()
	}
	if aggressive {
		opts.ApplyAggressive()
	}

	optionals, err := config.ParseNamedParams(annotateOptional)
	if err != nil {
		return nil, err
	}
	opts.AnnotateOptionals = append(opts.AnnotateOptionals, optionals...)

	named, err := config.ParseNamedParams(annotateNamedParam)
	if err != nil {
		return nil, err
	}
	opts.AnnotateNamedParams = append(opts.AnnotateNamedParams, named...)

	return opts, nil
}

func summaryText(s runner.Summary) string {
	return fmt.Sprintf("autotyping: %d files scanned, %d annotated, %d cache hits, %d failed (%s)",
		s.Scanned, s.Changed, s.CacheHits, s.Failed, s.Duration.Round(0))
}

func addRuleFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&noneReturn, "none-return", false, "add None return types to functions that never return a value")
	f.BoolVar(&scalarReturn, "scalar-return", false, "add int, str, bytes, float, and bool return types")
	f.BoolVar(&boolParam, "bool-param", false, "annotate parameters with a True/False default as bool")
	f.BoolVar(&intParam, "int-param", false, "annotate parameters with an int default")
	f.BoolVar(&floatParam, "float-param", false, "annotate parameters with a float default")
	f.BoolVar(&strParam, "str-param", false, "annotate parameters with a str default")
	f.BoolVar(&bytesParam, "bytes-param", false, "annotate parameters with a bytes default")
	f.BoolVar(&annotateMagics, "annotate-magics", false, "annotate well-known special methods (e.g. __str__)")
	f.BoolVar(&annotateImpreciseMagics, "annotate-imprecise-magics", false, "annotate iteration-protocol methods with Iterator")
	f.BoolVar(&guessCommonNames, "guess-common-names", false, "guess annotations from common parameter names")
	f.StringArrayVar(&annotateOptional, "annotate-optional", nil, "name:module.Type annotates parameter 'name' with a None default as Optional[Type]")
	f.StringArrayVar(&annotateNamedParam, "annotate-named-param", nil, "name:module.Type annotates parameter 'name' without a default as Type")
	f.StringVar(&pyanalyzeReport, "pyanalyze-report", "", "path to a pyanalyze --json-report file with suggested types")
	f.BoolVar(&onlyWithoutImports, "only-without-imports", false, "only apply pyanalyze suggestions that need no imports")
	f.BoolVar(&safe, "safe", false, "apply all safe transformations")
	f.BoolVar(&aggressive, "aggressive", false, "apply all transformations that take no arguments")
	f.IntVarP(&jobs, "jobs", "j", 4, "number of files to process in parallel")
	f.BoolVar(&useCache, "cache", false, "skip files unchanged since the last run with the same flags")
	f.StringVar(&cachePath, "cache-path", "", "override the cache database location")
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to an autotyping.yaml config file")

	addRuleFlags(rootCmd)
	rootCmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite files in place")
	rootCmd.Flags().BoolVar(&showDiff, "diff", false, "print a diff instead of rewriting")
	rootCmd.MarkFlagsMutuallyExclusive("write", "diff")

	addRuleFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
