package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"library-catalog/internal/output"
	"library-catalog/library"
)

func newGenerateCmd(a *app) *cobra.Command {
	var hours, date, out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one catalog without prompting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := parseHours(hours)
			if err != nil {
				return usageError(err, "Pass --hours as a whole number greater than 0")
			}

			mgr, closeFn, err := a.openManager()
			if err != nil {
				return err
			}
			defer closeFn()

			if out == "" {
				out = a.cfg.Output.Path
			}
			_, err = a.generate(mgr, library.Request{RequestedMinutes: minutes, RecommendationDate: date}, out)
			return err
		},
	}

	cmd.Flags().StringVar(&hours, "hours", "", "reading time in hours")
	cmd.Flags().StringVar(&date, "date", "", "holiday recommendation date, e.g. 1701")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default from output.path)")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}

// generate runs one request, writes the catalog and reports the outcome. A
// closed-libraries outcome is reported and yields a nil result and error.
func (a *app) generate(mgr *library.CatalogManager, req library.Request, path string) (*library.Result, error) {
	res, err := mgr.Generate(req)
	if errors.Is(err, library.ErrNoLibrariesOpen) {
		a.printer.Info("No libraries are open at the moment!")
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}

	a.printer.Info("%d libraries found!", res.OpenLibraries)
	if filepath.Dir(path) == "." {
		a.printer.Info("Saving %s in working directory", path)
	} else {
		a.printer.Info("Saving %s", path)
	}

	if err := os.WriteFile(path, []byte(res.Document), 0o644); err != nil {
		return nil, &output.CLIError{
			Summary:    "writing catalog failed",
			Detail:     err.Error(),
			Suggestion: "Check output.path points to a writable location",
			ExitCode:   output.ExitGeneral,
			Err:        err,
		}
	}

	a.printer.Success("%d books, %d minutes (digest %.12s)", res.Items, res.TotalMinutes-res.SkipMinutes, res.Digest)
	a.log.Info().
		Str("request_id", res.RequestID).
		Str("path", path).
		Msg("catalog saved")
	return res, nil
}

func newLibrariesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "libraries",
		Short: "List libraries with their hours and whether they are open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, closeFn, err := a.openManager()
			if err != nil {
				return err
			}
			defer closeFn()
			return a.showLibraries(mgr)
		},
	}
}

func (a *app) showLibraries(mgr *library.CatalogManager) error {
	minutes, weekday := mgr.Now()
	a.printer.Header(fmt.Sprintf("Libraries at %s on %s", library.FormatClockTime(minutes), library.WeekdayName(weekday)))

	table := output.NewTable(a.printer.Out(), []string{"Name", "Hours", "Session", "Days", "Books", "Status"})
	for _, lib := range mgr.Libraries() {
		md := lib.Metadata
		table.AddRow(
			lib.Name,
			md.StartTime+"-"+md.EndTime,
			fmt.Sprintf("%dm", md.Span()),
			library.WeekdayName(md.OpenDays),
			strconv.Itoa(len(lib.BookIDs)),
			a.printer.StatusBadge(library.IsOpen(lib, minutes, weekday)),
		)
	}
	if err := table.Render(); err != nil {
		return err
	}

	holiday := mgr.Holiday()
	if holiday.UID == "" {
		return nil
	}
	a.printer.Header(fmt.Sprintf("Holiday recommendations (%s, %d books)", holiday.UID, mgr.HolidayBooks().Len()))
	freq := output.NewTable(a.printer.Out(), []string{"Date", "Every"})
	for _, f := range holiday.Frequencies {
		freq.AddRow(f.Date, strconv.Itoa(f.Recommended+1))
	}
	return freq.Render()
}

func newBooksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "books [query]",
		Short: "List indexed books, optionally filtered by a search term",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, closeFn, err := a.openManager()
			if err != nil {
				return err
			}
			defer closeFn()

			var books []*library.Book
			if len(args) == 1 {
				books, err = mgr.SearchBooks(args[0])
			} else {
				books, err = mgr.GetAllBooks()
			}
			if err != nil {
				return err
			}
			if len(books) == 0 {
				a.printer.Warning("No books found")
				return nil
			}

			table := output.NewTable(a.printer.Out(), []string{"ID", "Minutes", "Read time (ms)"})
			for _, b := range books {
				table.AddRow(b.ID, strconv.Itoa(b.ReadMinutes()), strconv.Itoa(b.ReadTimeRaw))
			}
			return table.Render()
		},
	}
}
