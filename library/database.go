package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath selects a private in-memory database.
const MemoryPath = ":memory:"

// Database keeps the loaded books in SQLite. By default it lives in memory
// for the lifetime of the process; the import tool can point it at a file.
type Database struct {
	db *sql.DB

	addBookStmt *sql.Stmt
	getBookStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	var dsn string
	if dbPath == MemoryPath {
		dsn = "file::memory:?_foreign_keys=1"
	} else {
		// Ensure directory exists so first-run succeeds.
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every pooled connection to :memory: would see its own empty database.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	if d.addBookStmt != nil {
		d.addBookStmt.Close()
	}
	if d.getBookStmt != nil {
		d.getBookStmt.Close()
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id TEXT PRIMARY KEY,
            read_time_ms INTEGER NOT NULL,
            content TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_books_read_time ON books(read_time_ms);`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		args := []any{}
		if strings.Contains(stmt, "?") {
			args = append(args, schemaVersion)
		}
		if _, err := tx.Exec(stmt, args...); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.addBookStmt, err = d.db.Prepare(`INSERT INTO books(id,read_time_ms,content) VALUES(?,?,?)`); err != nil {
		return err
	}
	if d.getBookStmt, err = d.db.Prepare(`SELECT id,read_time_ms,content FROM books WHERE id=?`); err != nil {
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Book helpers
// ---------------------------------------------------------------------------

// AddBook inserts a single book.
func (d *Database) AddBook(b Book) error {
	if _, err := d.addBookStmt.Exec(b.ID, b.ReadTimeRaw, b.Content); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateBook, b.ID)
		}
		return err
	}
	return nil
}

// ReplaceBooks swaps the stored books for books in one transaction, so a
// file-backed index can be reloaded on every run. A duplicate id aborts the
// batch and leaves the previous contents in place.
func (d *Database) ReplaceBooks(books []Book) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM books`); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}

	stmt := tx.Stmt(d.addBookStmt)
	for _, b := range books {
		if _, err := stmt.Exec(b.ID, b.ReadTimeRaw, b.Content); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return fmt.Errorf("%w: %s", ErrDuplicateBook, b.ID)
			}
			return fmt.Errorf("insert book %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// Book implements BookLookup.
func (d *Database) Book(id string) (*Book, error) {
	var b Book
	err := d.getBookStmt.QueryRow(id).Scan(&b.ID, &b.ReadTimeRaw, &b.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetAllBooks returns metadata only (no heavy content) for quick listing.
func (d *Database) GetAllBooks() ([]*Book, error) {
	return d.queryMetadata(`SELECT id,read_time_ms FROM books ORDER BY id`)
}

// SearchBooks matches q as a case-insensitive substring of the id or content.
func (d *Database) SearchBooks(q string) ([]*Book, error) {
	if strings.TrimSpace(q) == "" {
		return []*Book{}, nil
	}
	pattern := "%" + escapeLike(strings.TrimSpace(q)) + "%"
	return d.queryMetadata(`
        SELECT id, read_time_ms FROM books
        WHERE id LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\'
        ORDER BY id`, pattern, pattern)
}

// CountBooks returns the number of stored books.
func (d *Database) CountBooks() (int, error) {
	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// MissingBooks returns the ids from ids that are not stored, preserving order.
func (d *Database) MissingBooks(ids []string) ([]string, error) {
	var missing []string
	for _, id := range ids {
		var exists bool
		if err := d.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM books WHERE id=?)`, id).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (d *Database) queryMetadata(query string, args ...any) ([]*Book, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.ReadTimeRaw); err != nil {
			return nil, err
		}
		books = append(books, &b)
	}
	return books, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
