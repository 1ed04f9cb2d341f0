// Package loader reads books, libraries and the holiday library from the
// data directories and turns them into typed values.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"library-catalog/library"
)

// Config tells Load where the source files live.
type Config struct {
	BooksDir       string
	LibrariesDir   string
	HolidayFile    string // file name inside LibrariesDir; empty disables holiday books
	BookPattern    string
	LibraryPattern string
}

// Load reads every source the catalog needs.
func Load(cfg Config) (library.Dataset, error) {
	var ds library.Dataset

	bookRe, err := regexp.Compile(cfg.BookPattern)
	if err != nil {
		return ds, fmt.Errorf("book pattern: %w", err)
	}
	libRe, err := regexp.Compile(cfg.LibraryPattern)
	if err != nil {
		return ds, fmt.Errorf("library pattern: %w", err)
	}

	if ds.Books, err = LoadBooks(cfg.BooksDir, bookRe); err != nil {
		return ds, err
	}
	if ds.Libraries, err = LoadLibraries(cfg.LibrariesDir, libRe); err != nil {
		return ds, err
	}

	if cfg.HolidayFile == "" {
		return ds, nil
	}
	if ds.Holiday, err = LoadHolidayLibrary(filepath.Join(cfg.LibrariesDir, cfg.HolidayFile)); err != nil {
		return ds, err
	}
	if ds.HolidayBooks, err = LoadHolidayBooks(cfg.LibrariesDir, cfg.BooksDir, ds.Holiday.UID); err != nil {
		return ds, err
	}
	return ds, nil
}

// matchingFiles lists regular files in dir whose path matches re, sorted by
// name.
func matchingFiles(dir string, re *regexp.Regexp) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s directory: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if re.MatchString(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadBooks parses every file in dir matching re.
func LoadBooks(dir string, re *regexp.Regexp) ([]library.Book, error) {
	paths, err := matchingFiles(dir, re)
	if err != nil {
		return nil, err
	}

	books := make([]library.Book, 0, len(paths))
	for _, path := range paths {
		b, err := LoadBook(path)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

// LoadBook reads a single book file.
func LoadBook(path string) (library.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return library.Book{}, fmt.Errorf("read book: %w", err)
	}
	b, err := ParseBook(string(data))
	if err != nil {
		return library.Book{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// LoadLibraries parses every file in dir matching re. The library name is the
// file name without extension.
func LoadLibraries(dir string, re *regexp.Regexp) ([]library.Library, error) {
	paths, err := matchingFiles(dir, re)
	if err != nil {
		return nil, err
	}

	libs := make([]library.Library, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read library: %w", err)
		}
		lib, err := ParseLibrary(string(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		lib.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		libs = append(libs, lib)
	}
	return libs, nil
}

// LoadHolidayLibrary parses the holiday library file at path.
func LoadHolidayLibrary(path string) (library.HolidayLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return library.HolidayLibrary{}, fmt.Errorf("read holiday library: %w", err)
	}
	h, err := ParseHolidayLibrary(string(data))
	if err != nil {
		return library.HolidayLibrary{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// LoadHolidayBooks resolves uid to librariesDir/<uid>.xml and loads each book
// it lists from booksDir/<id>.xml.
func LoadHolidayBooks(librariesDir, booksDir, uid string) ([]library.Book, error) {
	if uid == "" {
		return nil, fmt.Errorf("holiday library has no uid")
	}
	path := filepath.Join(librariesDir, uid+".xml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read holiday collection: %w", err)
	}
	ids, err := BookRefs(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	books := make([]library.Book, 0, len(ids))
	for _, id := range ids {
		b, err := LoadBook(filepath.Join(booksDir, id+".xml"))
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}
