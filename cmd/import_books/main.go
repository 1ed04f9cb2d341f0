// Command import_books loads every book, library and holiday file into a
// SQLite book index and reports whether the data is consistent.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/internal/config"
	"library-catalog/internal/loader"
	"library-catalog/internal/logger"
	"library-catalog/internal/output"
	"library-catalog/library"
)

type options struct {
	cfgFile string
	dbPath  string
	noColor bool
}

// report collects the problems found while importing.
type report struct {
	imported int
	failed   int
	problems []string
}

func (r *report) problem(format string, args ...any) {
	r.problems = append(r.problems, fmt.Sprintf(format, args...))
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	printer := output.NewPrinterWithWriters(stdout, stderr, false)

	cmd := &cobra.Command{
		Use:           "import_books",
		Short:         "Import catalog data into a SQLite index and check it",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return &output.CLIError{
					Summary:    "invalid configuration",
					Detail:     err.Error(),
					Suggestion: "Check .catalog.yaml syntax or use --config flag",
					ExitCode:   output.ExitConfigError,
					Err:        err,
				}
			}
			printer = output.NewPrinterWithWriters(stdout, stderr, !opts.noColor && output.ResolveColors(cfg.Output.Colors))
			if opts.dbPath == "" {
				opts.dbPath = cfg.Index.Path
			}
			return importAll(cfg, opts.dbPath, printer, stderr)
		},
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.Flags().StringVar(&opts.cfgFile, "config", "", "config file (default is .catalog.yaml)")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite index to write (default from index.path)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	if err := cmd.Execute(); err != nil {
		printer.Report(err)
		return output.ExitCodeFor(err)
	}
	return output.ExitSuccess
}

func importAll(cfg *config.Config, dbPath string, p *output.Printer, logOut io.Writer) error {
	log := logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty, Output: logOut})

	if dbPath != library.MemoryPath {
		p.Info("Cleaning up existing index files...")
		for _, file := range []string{dbPath, dbPath + "-shm", dbPath + "-wal"} {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				p.Warning("Could not remove %s: %v", file, err)
			}
		}
	}

	db, err := library.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	defer db.Close()

	ds, err := loader.Load(loader.Config{
		BooksDir:       cfg.Data.BooksDir,
		LibrariesDir:   cfg.Data.LibrariesDir,
		HolidayFile:    cfg.Data.HolidayFile,
		BookPattern:    cfg.Data.BookPattern,
		LibraryPattern: cfg.Data.LibraryPattern,
	})
	if err != nil {
		return &output.CLIError{
			Summary:    "loading catalog data failed",
			Detail:     err.Error(),
			Suggestion: "Check data.books_dir and data.libraries_dir",
			ExitCode:   output.ExitDataError,
			Err:        err,
		}
	}

	var r report

	p.Info("Importing books from %s...", cfg.Data.BooksDir)
	for _, b := range ds.Books {
		if err := db.AddBook(b); err != nil {
			p.Error("%s: %v", b.ID, err)
			r.failed++
			r.problem("book %s: %v", b.ID, err)
			continue
		}
		if b.ReadMinutes() == 0 {
			p.Warning("%s reads in under a minute and will never fill a session", b.ID)
		}
		r.imported++
	}
	p.Print("Imported %d books, %d errors", r.imported, r.failed)

	if err := checkLibraries(db, ds.Libraries, p, &r); err != nil {
		return err
	}

	selector, err := library.NewSelector(cfg.Selection.Window, cfg.Selection.Threshold, nil)
	if err != nil {
		return err
	}
	if err := selector.CheckFits(ds.Libraries); err != nil {
		r.problem("%v", err)
	}

	showHoliday(ds, p)

	log.Info().
		Str("index", dbPath).
		Int("books", r.imported).
		Int("libraries", len(ds.Libraries)).
		Int("problems", len(r.problems)).
		Msg("import finished")

	if len(r.problems) > 0 {
		return &output.CLIError{
			Summary:    fmt.Sprintf("%d problems found in catalog data", len(r.problems)),
			Detail:     strings.Join(r.problems, "; "),
			Suggestion: "Fix the listed files and run import_books again",
			ExitCode:   output.ExitDataError,
			Err:        errors.New("inconsistent catalog data"),
		}
	}
	p.Success("Catalog data is consistent")
	return nil
}

func checkLibraries(db *library.Database, libs []library.Library, p *output.Printer, r *report) error {
	p.Header("Libraries")
	table := output.NewTable(p.Out(), []string{"Name", "Hours", "Session", "Days", "Books", "Missing"})
	for _, lib := range libs {
		missing, err := db.MissingBooks(lib.BookIDs)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			r.problem("library %s references unknown books %s", lib.Name, strings.Join(missing, ", "))
		}
		if lib.Metadata.Span() <= 0 {
			p.Warning("%s has no opening window and is never open", lib.Name)
		}
		table.AddRow(
			lib.Name,
			lib.Metadata.StartTime+"-"+lib.Metadata.EndTime,
			fmt.Sprintf("%dm", lib.Metadata.Span()),
			library.WeekdayName(lib.Metadata.OpenDays),
			strconv.Itoa(len(lib.BookIDs)),
			strings.Join(missing, " "),
		)
	}
	return table.Render()
}

func showHoliday(ds library.Dataset, p *output.Printer) {
	if ds.Holiday.UID == "" {
		p.Info("No holiday library configured")
		return
	}
	p.Header(fmt.Sprintf("Holiday library %s", ds.Holiday.UID))
	table := output.NewTable(p.Out(), []string{"Date", "Recommended", "Books"})
	for _, f := range ds.Holiday.Frequencies {
		table.AddRow(f.Date, strconv.Itoa(f.Recommended), strconv.Itoa(len(ds.HolidayBooks)))
	}
	if err := table.Render(); err != nil {
		p.Warning("rendering holiday table: %v", err)
	}
}
