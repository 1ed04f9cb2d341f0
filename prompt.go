package main

import (
	"bufio"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"library-catalog/library"
)

var (
	errInvalidHours     = errors.New("invalid hours")
	errHoursNotPositive = errors.New("hours must be greater than 0")
)

// hoursMessage is what the prompt shows for a rejected hours answer.
func hoursMessage(err error) string {
	if errors.Is(err, errHoursNotPositive) {
		return "User input must be greater than 0!"
	}
	return "Invalid user input!"
}

// parseHours turns the hours answer into requested minutes.
func parseHours(input string) (int, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(input), 10, 32)
	if err != nil || n > math.MaxInt32/60 {
		return 0, errInvalidHours
	}
	if n == 0 {
		return 0, errHoursNotPositive
	}
	return int(n) * 60, nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// runInteractive asks for requests until stdin ends or the user types exit.
// Prompts are only printed when stdin is a terminal.
func (a *app) runInteractive() error {
	mgr, closeFn, err := a.openManager()
	if err != nil {
		return err
	}
	defer closeFn()

	interactive := isTerminal(a.stdin)
	scanner := bufio.NewScanner(a.stdin)

	if interactive {
		a.printer.Header("Library catalog")
		a.printer.Print("Type 'exit' to quit.")
	}

	ask := func(prompt string) (string, bool) {
		if interactive {
			a.printer.Prompt(prompt + " ")
		}
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	for {
		answer, ok := ask("Enter your book time in hour (e.g., 5) :")
		if !ok {
			return scanner.Err()
		}
		if answer == "exit" {
			if interactive {
				a.printer.Print("Goodbye!")
			}
			return nil
		}

		minutes, err := parseHours(answer)
		if err != nil {
			a.printer.Error("%s", hoursMessage(err))
			continue
		}

		date, ok := ask("Enter your holiday recommendation date (e.g., 1701) :")
		if !ok {
			return scanner.Err()
		}

		req := library.Request{RequestedMinutes: minutes, RecommendationDate: date}
		if _, err := a.generate(mgr, req, a.cfg.Output.Path); err != nil {
			a.printer.Report(err)
		}
	}
}
