package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wormsign/internal/cache"
	"wormsign/internal/compromise"
	"wormsign/internal/config"
	"wormsign/internal/feed"
	"wormsign/internal/hook"
	"wormsign/internal/logging"
	"wormsign/internal/model"
	"wormsign/internal/report"
	"wormsign/internal/scan"
)

// Process exit codes.
const (
	exitClean   = 0
	exitMatches = 1
	exitError   = 2
)

const (
	envProjectRoot = "PKG_SCAN_ROOT"
	envDataRoot    = "PKG_SCAN_DATA_ROOT"
)

type options struct {
	path       string
	dataDir    string
	reportDir  string
	fetch      bool
	source     string
	url        string
	dataFormat string
	format     string
	noCache    bool
	dryRun     bool
	hook       bool
	debug      bool

	// cachePath overrides the feed cache location. Tests only.
	cachePath string
	fetchOpts feed.Options
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	code := exitClean
	cmd := newRootCmd(stdout, stderr, &code)
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if h := hint(err); h != "" {
			fmt.Fprintf(stderr, "Hint: %s\n", h)
		}
		return exitError
	}
	return code
}

func newRootCmd(stdout, stderr io.Writer, code *int) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "wormsign",
		Short: "Scan a JavaScript project for compromised dependencies",
		Long: `wormsign checks the packages locked by npm, Yarn, pnpm or Bun against
lists of known-compromised releases and looks for install-script and
payload patterns used by npm supply-chain worms.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewWithWriter(stderr, opts.debug)
			c, err := run(cmd.Context(), opts, stdout, log)
			*code = c
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.path, "path", "p", "", "Path to the project to scan (defaults to $"+envProjectRoot+" or the current directory)")
	f.BoolVarP(&opts.fetch, "fetch", "f", false, "Fetch the latest compromise lists instead of using the local ones")
	f.StringVarP(&opts.source, "source", "s", feed.All, "Comma-separated feed sources to fetch ("+strings.Join(feed.BuiltinNames(), ", ")+", all)")
	f.StringVarP(&opts.url, "url", "u", "", "Custom HTTPS URL to fetch a compromise list from")
	f.StringVar(&opts.dataFormat, "data-format", feed.FormatJSON, "Payload format of --url (json, csv)")
	f.StringVar(&opts.format, "format", report.FormatText, "Output format (text, markdown, json, sarif)")
	f.BoolVar(&opts.noCache, "no-cache", false, "Do not read or write the feed cache")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Always exit 0, even when compromised packages are found")
	f.BoolVar(&opts.hook, "install-hook", false, "Install a git pre-commit hook that runs wormsign")
	f.StringVar(&opts.dataDir, "data-dir", "", "Directory holding sources/*.csv or vuls.csv (defaults to $"+envDataRoot+")")
	f.StringVar(&opts.reportDir, "report-dir", "", "Also write report.json, report.md and report.sarif into this directory")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newSourcesCmd(stdout, stderr))
	return cmd
}

func run(ctx context.Context, opts *options, stdout io.Writer, log zerolog.Logger) (int, error) {
	root, err := projectRoot(opts.path)
	if err != nil {
		return exitError, err
	}

	if opts.hook {
		inst := hook.Installer{Root: root, DryRun: opts.dryRun}
		path, err := inst.Install(ctx)
		if err != nil {
			return exitError, fmt.Errorf("installing hook: %w", err)
		}
		fmt.Fprintf(stdout, "Pre-commit hook installed at %s\n", path)
		return exitClean, nil
	}

	cfg, cfgPath, err := config.Load(root)
	if err != nil {
		log.Warn().Err(err).Str("path", cfgPath).Msg("Ignoring configuration")
	} else if cfgPath != "" {
		log.Debug().Str("path", cfgPath).Msg("Loaded configuration")
	}
	cfg.ApplyEnvOverrides()

	source, names, err := compromiseSource(ctx, opts, cfg, log)
	if err != nil {
		return exitError, err
	}

	log.Info().Str("path", root).Msg("Scanning project")
	res, err := scan.Project(ctx, root, source, scan.Options{
		SuppressedRules: cfg.SuppressedRules,
		Threshold:       cfg.Threshold(),
		Logger:          &log,
	})
	if err != nil {
		return exitError, err
	}

	meta := report.NewMeta(root, names)
	if err := report.Render(stdout, opts.format, meta, res); err != nil {
		return exitError, err
	}
	if opts.reportDir != "" {
		if err := report.Generate(opts.reportDir, meta, res); err != nil {
			return exitError, fmt.Errorf("writing reports: %w", err)
		}
		log.Info().Str("dir", opts.reportDir).Msg("Reports saved")
	}

	if len(res.Matches) == 0 {
		return exitClean, nil
	}
	if opts.dryRun {
		log.Warn().Int("matches", len(res.Matches)).Msg("[DRY RUN] Compromised packages found, but exiting with 0")
		return exitClean, nil
	}
	return exitMatches, nil
}

// compromiseSource picks the list to scan against: fresh feeds when
// fetching (through the cache), otherwise the local data directory.
func compromiseSource(ctx context.Context, opts *options, cfg config.Config, log zerolog.Logger) (compromise.Source, []string, error) {
	if opts.fetch && cfg.Offline {
		log.Warn().Msg("Offline mode is configured; ignoring --fetch")
	}
	if opts.fetch && !cfg.Offline {
		sources, err := feedSources(opts, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		if len(sources) > 0 {
			if records, ok := fetchRecords(ctx, opts, sources, log); ok {
				return compromise.Records(records), sourceNames(sources), nil
			}
			log.Warn().Msg("Falling back to local compromise list")
		}
	}

	dataDir := dataRoot(opts.dataDir)
	dir, err := compromise.LoadDir(dataDir)
	for _, w := range dir.Warnings {
		log.Warn().Msg(w)
	}
	if errors.Is(err, compromise.ErrNoLocalList) {
		log.Warn().Str("dir", dataDir).Msg("No local compromise lists found in sources/ directory or root")
		return compromise.File(filepath.Join(dataDir, compromise.LegacyList)), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	log.Info().Int("packages", len(dir.Records)).Strs("files", dir.Files).Msg("Loaded local compromise lists")
	return compromise.Records(dir.Records), dir.Files, nil
}

func feedSources(opts *options, cfg config.Config, log zerolog.Logger) ([]feed.Source, error) {
	var sources []feed.Source
	if opts.url != "" {
		s, err := feed.Custom(opts.url, opts.dataFormat)
		if err != nil {
			return nil, err
		}
		sources = []feed.Source{s}
	} else {
		s, err := feed.Lookup(strings.Split(opts.source, ","))
		if err != nil {
			return nil, err
		}
		sources = s
	}

	allowed := sources[:0]
	for _, s := range sources {
		if !cfg.SourceAllowed(s.Name) {
			log.Warn().Str("source", s.Name).Msg("Source is not in allowedSources; skipping")
			continue
		}
		allowed = append(allowed, s)
	}
	return allowed, nil
}

func fetchRecords(ctx context.Context, opts *options, sources []feed.Source, log zerolog.Logger) ([]model.CompromiseRecord, bool) {
	names := sourceNames(sources)

	var fc *cache.FeedCache
	if !opts.noCache {
		fc = openCache(opts.cachePath, log)
	}
	if fc != nil {
		defer fc.Close()
		if records, ok, err := fc.Get(names); err != nil {
			log.Debug().Err(err).Msg("Feed cache read failed")
		} else if ok {
			log.Info().Int("packages", len(records)).Msg("Using cached feed data")
			return records, true
		}
	}

	fetchOpts := opts.fetchOpts
	fetchOpts.Logger = &log
	records, errs := feed.New(fetchOpts).Fetch(ctx, sources)
	for _, e := range errs {
		log.Warn().Msg(e)
	}
	if len(errs) > 0 {
		log.Info().Msg("Hint: check your internet connection or try --source koi for an alternative data source")
	}
	if len(records) == 0 {
		return nil, false
	}
	log.Info().Int("packages", len(records)).Msg("Fetched unique packages")

	if fc != nil {
		if err := fc.Put(names, records); err != nil {
			log.Debug().Err(err).Msg("Feed cache write failed")
		}
	}
	return records, true
}

func openCache(path string, log zerolog.Logger) *cache.FeedCache {
	if path == "" {
		p, err := cache.DefaultPath()
		if err != nil {
			log.Debug().Err(err).Msg("No home directory; feed cache disabled")
			return nil
		}
		path = p
	}
	fc, err := cache.Open(path)
	if err != nil {
		log.Debug().Err(err).Msg("Feed cache disabled")
		return nil
	}
	return fc
}

func sourceNames(sources []feed.Source) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	return names
}

// projectRoot resolves --path, then $PKG_SCAN_ROOT, then the working
// directory.
func projectRoot(flag string) (string, error) {
	p := flag
	if p == "" {
		p = os.Getenv(envProjectRoot)
	}
	if p == "" {
		return os.Getwd()
	}
	return filepath.Abs(p)
}

// dataRoot resolves --data-dir, then $PKG_SCAN_DATA_ROOT, then the
// directory of the executable when it ships a sources/ directory, then
// the working directory.
func dataRoot(flag string) string {
	for _, p := range []string{flag, os.Getenv(envDataRoot)} {
		if p != "" {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		if info, err := os.Stat(filepath.Join(dir, compromise.SourcesDir)); err == nil && info.IsDir() {
			return dir
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func hint(err error) string {
	switch {
	case errors.Is(err, scan.ErrPackageJSONNotFound):
		return "Are you in the root directory of your Node.js project?"
	case errors.Is(err, scan.ErrNoLockfile):
		return "Run your package manager's install command (e.g. `npm install`) to generate a lockfile."
	case errors.Is(err, scan.ErrNoPackageManager):
		return `Ensure you have a lockfile (package-lock.json, yarn.lock, pnpm-lock.yaml, bun.lock) or set the "packageManager" field in package.json.`
	case errors.Is(err, scan.ErrCompromiseListNotFound):
		return "Run with --fetch, or point --data-dir / $" + envDataRoot + " at a directory containing sources/*.csv."
	case errors.Is(err, feed.ErrUnknownSource):
		return "Use one of: " + strings.Join(feed.BuiltinNames(), ", ") + ", all."
	case errors.Is(err, hook.ErrNotGitRepository):
		return "Run --install-hook from inside a git repository."
	}
	return ""
}
