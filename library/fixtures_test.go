package library

import (
	"fmt"
	"testing"
)

// fixedRand always returns the same index, clamped to n.
type fixedRand int

func (r fixedRand) IntN(n int) int {
	if int(r) >= n {
		return n - 1
	}
	return int(r)
}

func makeBook(id string, minutes int) Book {
	ms := minutes * 60 * 1000
	return Book{
		ID:          id,
		ReadTimeRaw: ms,
		Content:     fmt.Sprintf("<book id=%q readtime=\"%d\"><title>%s</title></book>", id, ms, id),
	}
}

func makeBooks(prefix string, n, minutes int) []Book {
	books := make([]Book, 0, n)
	for i := 1; i <= n; i++ {
		books = append(books, makeBook(fmt.Sprintf("%s%d", prefix, i), minutes))
	}
	return books
}

func makeLibrary(t *testing.T, name, start, end string, openDays int, books []Book) Library {
	t.Helper()
	startAt, err := ParseClockTime(start)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	endAt, err := ParseClockTime(end)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	ids := make([]string, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	return Library{
		Name:    name,
		BookIDs: ids,
		Metadata: LibraryMetadata{
			StartTime: start,
			EndTime:   end,
			OpenDays:  openDays,
			StartAt:   startAt,
			EndAt:     endAt,
		},
	}
}

func mustIndex(t *testing.T, books ...[]Book) *BookIndex {
	t.Helper()
	var all []Book
	for _, b := range books {
		all = append(all, b...)
	}
	idx, err := NewBookIndex(all)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return idx
}
