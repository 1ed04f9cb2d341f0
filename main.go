package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"library-catalog/internal/config"
	"library-catalog/internal/loader"
	"library-catalog/internal/logger"
	"library-catalog/internal/output"
	"library-catalog/library"
)

// app holds the per-invocation state shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfgFile string
	verbose bool
	noColor bool
	at      string
	weekday int

	cfg     *config.Config
	log     zerolog.Logger
	printer *output.Printer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		p := a.printer
		if p == nil {
			p = output.NewPrinterWithWriters(stdout, stderr, false)
		}
		p.Report(err)
		return output.ExitCodeFor(err)
	}
	return output.ExitSuccess
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "library-catalog",
		Short: "Assemble reading catalogs from the libraries open right now",
		Long: `library-catalog builds a reading catalog for a library visit.

Without a subcommand it asks for a reading time in hours and an optional
holiday recommendation date, then writes the catalog of books picked from
the libraries that are currently open.

Example usage:
  library-catalog                                  # interactive prompt
  library-catalog generate --hours 2 --date 1701   # one catalog, no prompt
  library-catalog libraries --at 1030 --weekday 2  # which libraries are open
  library-catalog books dragon                     # search indexed books`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive()
		},
	}

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &output.CLIError{
			Summary:    err.Error(),
			Suggestion: fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
			ExitCode:   output.ExitUsageError,
			Err:        err,
		}
	})

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .catalog.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVar(&a.at, "at", "", "pretend the time of day is HHMM")
	root.PersistentFlags().IntVar(&a.weekday, "weekday", 0, "pretend the weekday is D (1 = Sunday .. 7 = Saturday)")

	root.AddCommand(newGenerateCmd(a), newLibrariesCmd(a), newBooksCmd(a))
	return root
}

// initConfig loads configuration and builds the logger and printer.
func (a *app) initConfig() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		a.printer = output.NewPrinterWithWriters(a.stdout, a.stderr, !a.noColor && output.ResolveColors(true))
		return &output.CLIError{
			Summary:    "invalid configuration",
			Detail:     err.Error(),
			Suggestion: "Check .catalog.yaml syntax or use --config flag",
			ExitCode:   output.ExitConfigError,
			Err:        err,
		}
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	a.log = logger.New(logger.Config{
		Level:  level,
		Pretty: cfg.Logging.Pretty,
		Output: a.stderr,
	})
	a.printer = output.NewPrinterWithWriters(a.stdout, a.stderr, !a.noColor && output.ResolveColors(cfg.Output.Colors))

	a.log.Debug().
		Str("books_dir", cfg.Data.BooksDir).
		Str("libraries_dir", cfg.Data.LibrariesDir).
		Int("window", cfg.Selection.Window).
		Int("threshold", cfg.Selection.Threshold).
		Msg("configuration loaded")
	return nil
}

// clock returns the clock selected by --at and --weekday. Whatever is not
// overridden is read from the system clock on every request.
func (a *app) clock() (library.Clock, error) {
	if a.at == "" && a.weekday == 0 {
		return library.SystemClock{}, nil
	}
	c := library.OverrideClock{Base: library.SystemClock{}}
	if a.at != "" {
		m, err := library.ParseClockTime(a.at)
		if err != nil {
			return nil, usageError(err, "Pass --at as HHMM, e.g. 0930")
		}
		c.Minutes, c.FixMinutes = m, true
	}
	if a.weekday != 0 {
		if a.weekday < 1 || a.weekday > 7 {
			return nil, usageError(fmt.Errorf("invalid weekday %d", a.weekday), "Pass --weekday between 1 (Sunday) and 7 (Saturday)")
		}
		c.Weekday = a.weekday
	}
	return c, nil
}

// openManager loads the data directories into a fresh catalog manager. The
// returned func closes the book index.
func (a *app) openManager() (*library.CatalogManager, func(), error) {
	clock, err := a.clock()
	if err != nil {
		return nil, nil, err
	}

	ds, err := loader.Load(loader.Config{
		BooksDir:       a.cfg.Data.BooksDir,
		LibrariesDir:   a.cfg.Data.LibrariesDir,
		HolidayFile:    a.cfg.Data.HolidayFile,
		BookPattern:    a.cfg.Data.BookPattern,
		LibraryPattern: a.cfg.Data.LibraryPattern,
	})
	if err != nil {
		return nil, nil, &output.CLIError{
			Summary:    "loading catalog data failed",
			Detail:     err.Error(),
			Suggestion: "Check data.books_dir and data.libraries_dir",
			ExitCode:   output.ExitDataError,
			Err:        err,
		}
	}
	a.log.Debug().
		Int("books", len(ds.Books)).
		Int("libraries", len(ds.Libraries)).
		Int("holiday_books", len(ds.HolidayBooks)).
		Msg("catalog data loaded")

	db, err := library.NewDatabase(a.cfg.Index.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open book index: %w", err)
	}

	mgr, err := library.NewCatalogManager(db, ds, library.Options{
		Window:    a.cfg.Selection.Window,
		Threshold: a.cfg.Selection.Threshold,
		Clock:     clock,
		Rand:      library.NewRandomSource(a.cfg.Selection.Seed),
		Logger:    logger.Component(a.log, "catalog"),
	})
	if err != nil {
		db.Close()
		return nil, nil, classify(err)
	}
	return mgr, func() { db.Close() }, nil
}

// classify attaches an exit code and hint to errors coming out of the
// library package.
func classify(err error) error {
	switch {
	case errors.Is(err, library.ErrWindowTooLarge), errors.Is(err, library.ErrNoEligibleBooks):
		return &output.CLIError{
			Summary:    "selection window does not fit the libraries",
			Detail:     err.Error(),
			Suggestion: "Lower selection.window and selection.threshold or add books",
			ExitCode:   output.ExitConfigError,
			Err:        err,
		}
	case errors.Is(err, library.ErrNoHolidayBooks), errors.Is(err, library.ErrBookNotFound), errors.Is(err, library.ErrDuplicateBook):
		return &output.CLIError{
			Summary:    "catalog data is inconsistent",
			Detail:     err.Error(),
			Suggestion: "Run import_books to check the data directories",
			ExitCode:   output.ExitDataError,
			Err:        err,
		}
	default:
		return err
	}
}

func usageError(err error, suggestion string) error {
	return &output.CLIError{
		Summary:    err.Error(),
		Suggestion: suggestion,
		ExitCode:   output.ExitUsageError,
		Err:        err,
	}
}
