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

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeData lays out six books and one library listing extra as well.
func writeData(t *testing.T, extra string) (root, cfgPath string) {
	t.Helper()
	root = t.TempDir()
	var refs strings.Builder
	for i := 1; i <= 6; i++ {
		id := fmt.Sprintf("bk%d", i)
		writeFile(t, filepath.Join(root, "files", id+".xml"),
			fmt.Sprintf(`<book id="%s" readtime="600000"/>`, id))
		fmt.Fprintf(&refs, `<book id="%s"/>`, id)
	}
	if extra != "" {
		fmt.Fprintf(&refs, `<book id="%s"/>`, extra)
	}
	writeFile(t, filepath.Join(root, "library", "lib1.xml"),
		`<c><library starttime="0800" endtime="1800"/>`+refs.String()+`</c>`)

	cfgPath = filepath.Join(root, "catalog.yaml")
	writeFile(t, cfgPath, fmt.Sprintf(`data:
  books_dir: %s
  libraries_dir: %s
  holiday_file: ""
logging:
  level: error
  pretty: false
`, filepath.Join(root, "files"), filepath.Join(root, "library")))
	return root, cfgPath
}

func TestImportConsistentData(t *testing.T) {
	root, cfgPath := writeData(t, "")
	dbPath := filepath.Join(root, "index", "books.db")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", cfgPath, "--db", dbPath, "--no-color"}, &stdout, &stderr)
	require.Equal(t, output.ExitSuccess, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Imported 6 books, 0 errors")
	assert.Contains(t, out, "lib1")
	assert.Contains(t, out, "No holiday library configured")
	assert.Contains(t, out, "Catalog data is consistent")

	db, err := library.NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()
	n, err := db.CountBooks()
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestImportTwiceStartsFresh(t *testing.T) {
	root, cfgPath := writeData(t, "")
	dbPath := filepath.Join(root, "books.db")

	for i := 0; i < 2; i++ {
		var stdout, stderr bytes.Buffer
		code := run([]string{"--config", cfgPath, "--db", dbPath, "--no-color"}, &stdout, &stderr)
		require.Equal(t, output.ExitSuccess, code, stderr.String())
		assert.Contains(t, stdout.String(), "Imported 6 books, 0 errors")
	}
}

func TestImportReportsMissingBooks(t *testing.T) {
	_, cfgPath := writeData(t, "bk42")

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", cfgPath, "--db", library.MemoryPath, "--no-color"}, &stdout, &stderr)
	assert.Equal(t, output.ExitDataError, code)
	assert.Contains(t, stdout.String(), "bk42")
	assert.Contains(t, stderr.String(), "references unknown books bk42")
}

func TestImportReportsWindowTooLarge(t *testing.T) {
	_, cfgPath := writeData(t, "")
	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("selection:\n  window: 6\n  threshold: 7\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", cfgPath, "--db", library.MemoryPath, "--no-color"}, &stdout, &stderr)
	assert.Equal(t, output.ExitDataError, code)
	assert.Contains(t, stderr.String(), "non-repeat window does not fit library")
}

func TestImportBadConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, &stdout, &stderr)
	assert.Equal(t, output.ExitConfigError, code)
	assert.Contains(t, stderr.String(), "invalid configuration")
}
