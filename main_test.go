package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/internal/output"
	"library-catalog/library"
)

type testEnv struct {
	root    string
	config  string
	catalog string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newTestEnv writes eight 20 minute books, a morning library holding all of
// them, a Monday afternoon library and a holiday collection of bk7 and bk8.
func newTestEnv(t *testing.T, selection string) testEnv {
	t.Helper()
	root := t.TempDir()
	books := filepath.Join(root, "files")
	libs := filepath.Join(root, "library")

	var refs strings.Builder
	for i := 1; i <= 8; i++ {
		id := fmt.Sprintf("bk%d", i)
		writeFile(t, filepath.Join(books, id+".xml"),
			fmt.Sprintf(`<book id="%s"><title>Book %d</title><readtime>1200000</readtime></book>`, id, i))
		fmt.Fprintf(&refs, `<book id="%s"/>`, id)
	}
	writeFile(t, filepath.Join(libs, "lib1.xml"),
		`<catalog><library><starttime>0900</starttime><endtime>1200</endtime><opendays>0</opendays></library>`+refs.String()+`</catalog>`)
	writeFile(t, filepath.Join(libs, "lib2.xml"),
		`<catalog><library starttime="1300" endtime="1700" opendays="2"/><book id="bk1"/><book id="bk2"/><book id="bk3"/><book id="bk4"/><book id="bk5"/><book id="bk6"/></catalog>`)
	writeFile(t, filepath.Join(libs, "holiday.xml"),
		`<root><holiday-lib><uid>holiday1</uid><frequencies><frequency><recommended>2</recommended><date>1701</date></frequency></frequencies></holiday-lib></root>`)
	writeFile(t, filepath.Join(libs, "holiday1.xml"), `<catalog><book id="bk7"/><book id="bk8"/></catalog>`)

	if selection == "" {
		selection = "  window: 4\n  threshold: 6\n  seed: 5\n"
	}
	catalog := filepath.Join(root, "out", "catalog.xml")
	config := filepath.Join(root, "catalog.yaml")
	writeFile(t, config, fmt.Sprintf(`data:
  books_dir: %s
  libraries_dir: %s
selection:
%soutput:
  path: %s
  colors: false
logging:
  level: error
  pretty: false
`, books, libs, selection, catalog))
	require.NoError(t, os.MkdirAll(filepath.Dir(catalog), 0o755))

	return testEnv{root: root, config: config, catalog: catalog}
}

func (e testEnv) run(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config", e.config, "--no-color"}, args...)
	code := run(full, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr error
	}{
		{"1", 60, nil},
		{" 5 ", 300, nil},
		{"0", 0, errHoursNotPositive},
		{"-2", 0, errInvalidHours},
		{"two", 0, errInvalidHours},
		{"", 0, errInvalidHours},
		{"1.5", 0, errInvalidHours},
		{"99999999999", 0, errInvalidHours},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHours(tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantErr == nil {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHoursMessage(t *testing.T) {
	for _, err := range []error{errInvalidHours, errHoursNotPositive} {
		msg := err.Error()
		assert.Equal(t, strings.ToLower(msg[:1]), msg[:1])
		assert.False(t, strings.HasSuffix(msg, "!"), msg)
	}
	assert.Equal(t, "User input must be greater than 0!", hoursMessage(errHoursNotPositive))
	assert.Equal(t, "Invalid user input!", hoursMessage(errInvalidHours))
}

func TestClockOverrides(t *testing.T) {
	c, err := (&app{}).clock()
	require.NoError(t, err)
	assert.Equal(t, library.SystemClock{}, c)

	c, err = (&app{weekday: 6}).clock()
	require.NoError(t, err)
	assert.Equal(t, library.OverrideClock{Base: library.SystemClock{}, Weekday: 6}, c)

	c, err = (&app{at: "1030"}).clock()
	require.NoError(t, err)
	assert.Equal(t, library.OverrideClock{Base: library.SystemClock{}, Minutes: 630, FixMinutes: true}, c)
	minutes, _ := c.Now()
	assert.Equal(t, 630, minutes)

	_, err = (&app{weekday: 8}).clock()
	assert.Equal(t, output.ExitUsageError, output.ExitCodeFor(err))
	_, err = (&app{at: "25xx"}).clock()
	assert.Equal(t, output.ExitUsageError, output.ExitCodeFor(err))
}

func TestGenerateWritesCatalog(t *testing.T) {
	env := newTestEnv(t, "")

	code, stdout, stderr := env.run(t, "", "--at", "1000", "--weekday", "4", "generate", "--hours", "1")
	require.Equal(t, output.ExitSuccess, code, stderr)

	assert.Contains(t, stdout, "1 libraries found!")
	assert.Contains(t, stdout, "Saving "+env.catalog)

	doc, err := os.ReadFile(env.catalog)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(doc), "<?xml version=\"1.0\"?>\n<catalog-list>\n"))
	assert.True(t, strings.HasSuffix(string(doc), "\n</catalog-list>\n"))
	assert.Equal(t, 3, strings.Count(string(doc), "<book "))
}

func TestGenerateIsReproducibleWithSeed(t *testing.T) {
	env := newTestEnv(t, "")
	first := filepath.Join(env.root, "first.xml")
	second := filepath.Join(env.root, "second.xml")

	for _, out := range []string{first, second} {
		code, _, stderr := env.run(t, "", "--at", "1000", "--weekday", "4", "generate", "--hours", "2", "--date", "1701", "--out", out)
		require.Equal(t, output.ExitSuccess, code, stderr)
	}

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestGenerateNoLibrariesOpen(t *testing.T) {
	env := newTestEnv(t, "")

	code, stdout, _ := env.run(t, "", "--at", "2300", "--weekday", "4", "generate", "--hours", "1")
	assert.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stdout, "No libraries are open at the moment!")
	assert.NoFileExists(t, env.catalog)
}

func TestGenerateUsageErrors(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{"bad hours", []string{"generate", "--hours", "abc"}},
		{"zero hours", []string{"generate", "--hours", "0"}},
		{"bad weekday", []string{"--weekday", "9", "generate", "--hours", "1"}},
		{"bad time", []string{"--at", "9", "generate", "--hours", "1"}},
		{"unknown flag", []string{"generate", "--minutes", "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := env.run(t, "", tt.args...)
			assert.Equal(t, output.ExitUsageError, code, stderr)
			assert.Contains(t, stderr, "[ERROR]")
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t, "  window: 5\n  threshold: 5\n")

	code, _, stderr := env.run(t, "", "generate", "--hours", "1")
	assert.Equal(t, output.ExitConfigError, code)
	assert.Contains(t, stderr, "invalid configuration")
	assert.Contains(t, stderr, "selection.threshold")
}

func TestWindowDoesNotFitLibraries(t *testing.T) {
	env := newTestEnv(t, "  window: 4\n  threshold: 7\n")

	code, _, stderr := env.run(t, "", "--at", "1000", "generate", "--hours", "1")
	assert.Equal(t, output.ExitConfigError, code)
	assert.Contains(t, stderr, "lib2")
}

func TestMissingDataDirectory(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, os.RemoveAll(filepath.Join(env.root, "files")))

	code, _, stderr := env.run(t, "", "generate", "--hours", "1")
	assert.Equal(t, output.ExitDataError, code)
	assert.Contains(t, stderr, "loading catalog data failed")
}

func TestInteractiveLoop(t *testing.T) {
	env := newTestEnv(t, "")

	stdin := "abc\n0\n1\n1701\nexit\n"
	code, stdout, stderr := env.run(t, stdin, "--at", "1000", "--weekday", "4")
	require.Equal(t, output.ExitSuccess, code, stderr)

	assert.Contains(t, stderr, "Invalid user input!")
	assert.Contains(t, stderr, "User input must be greater than 0!")
	assert.Contains(t, stdout, "1 libraries found!")
	assert.NotContains(t, stdout, "Enter your book time")
	assert.FileExists(t, env.catalog)
}

func TestInteractiveLoopEndsOnEOF(t *testing.T) {
	env := newTestEnv(t, "")

	code, stdout, _ := env.run(t, "2\n\n3\n", "--at", "2300", "--weekday", "4")
	assert.Equal(t, output.ExitSuccess, code)
	assert.Equal(t, 1, strings.Count(stdout, "No libraries are open at the moment!"))
}

func TestLibrariesCommand(t *testing.T) {
	env := newTestEnv(t, "")

	code, stdout, stderr := env.run(t, "", "--at", "1400", "--weekday", "2", "libraries")
	require.Equal(t, output.ExitSuccess, code, stderr)

	assert.Contains(t, stdout, "Libraries at 1400 on Monday")
	assert.Contains(t, stdout, "lib1")
	assert.Contains(t, stdout, "lib2")
	assert.Contains(t, stdout, "[closed]")
	assert.Contains(t, stdout, "[open]")
	assert.Contains(t, stdout, "Holiday recommendations (holiday1, 2 books)")
	assert.Contains(t, stdout, "1701")
}

func TestBooksCommand(t *testing.T) {
	env := newTestEnv(t, "")

	code, stdout, stderr := env.run(t, "", "books", "Book 3")
	require.Equal(t, output.ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "bk3")
	assert.NotContains(t, stdout, "bk4")

	code, stdout, _ = env.run(t, "", "books")
	require.Equal(t, output.ExitSuccess, code)
	for i := 1; i <= 8; i++ {
		assert.Contains(t, stdout, fmt.Sprintf("bk%d", i))
	}

	code, _, stderr = env.run(t, "", "books", "nothing-matches")
	require.Equal(t, output.ExitSuccess, code)
	assert.Contains(t, stderr, "No books found")
}
