package library

import (
	"errors"
	"fmt"
)

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrDuplicateBook = errors.New("duplicate book id")
)

// BookLookup resolves a book id to its loaded Book.
type BookLookup interface {
	Book(id string) (*Book, error)
}

// BookIndex keeps books keyed by id while remembering load order, so random
// picks over the whole index are reproducible for a fixed seed.
type BookIndex struct {
	byID  map[string]*Book
	order []string
}

// NewBookIndex builds an index from books. Ids must be unique.
func NewBookIndex(books []Book) (*BookIndex, error) {
	idx := &BookIndex{byID: make(map[string]*Book, len(books))}
	for i := range books {
		if err := idx.Add(books[i]); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Add inserts b, rejecting an id that is already present.
func (x *BookIndex) Add(b Book) error {
	if _, ok := x.byID[b.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateBook, b.ID)
	}
	x.byID[b.ID] = &b
	x.order = append(x.order, b.ID)
	return nil
}

func (x *BookIndex) Book(id string) (*Book, error) {
	b, ok := x.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	return b, nil
}

func (x *BookIndex) Len() int { return len(x.order) }

// IDs returns the ids in load order.
func (x *BookIndex) IDs() []string {
	ids := make([]string, len(x.order))
	copy(ids, x.order)
	return ids
}

// Books returns the books in load order.
func (x *BookIndex) Books() []*Book {
	books := make([]*Book, 0, len(x.order))
	for _, id := range x.order {
		books = append(books, x.byID[id])
	}
	return books
}
