package library

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

var (
	ErrNoHolidayBooks = errors.New("holiday cadence active but no holiday book has a positive read time")
	ErrInvalidCadence = errors.New("invalid holiday cadence")
)

const (
	catalogHeader = "<?xml version=\"1.0\"?>\n<catalog-list>\n"
	catalogFooter = "\n</catalog-list>\n"
)

// Cadence says whether holiday books are interleaved and how often: every
// (Frequency+1)-th pick, counted from the first, comes from the holiday set.
type Cadence struct {
	Frequency int
	Active    bool
}

// Assembly is the outcome of one Assemble call.
type Assembly struct {
	// Items are the book contents to publish, in selection order. When a
	// cadence was active the first collected item has already been dropped.
	Items        []string
	History      []string
	TotalMinutes int
	SkipMinutes  int
}

// Assembler fills each open library's session from its own books until the
// requested reading time is covered.
type Assembler struct {
	Books        BookLookup
	HolidayBooks *BookIndex
	Selector     *Selector
	Rand         RandomSource
	Log          zerolog.Logger
}

// session carries the running state of a single Assemble call.
type session struct {
	totalMinutes int
	skipMinutes  int
	history      History
	items        []string
}

// budgetMet compares the accumulated time against the request. Once anything
// has been picked, the minutes of the first holiday book do not count.
func (s *session) budgetMet(requested int) bool {
	if len(s.items) > 0 {
		return s.totalMinutes-s.skipMinutes >= requested
	}
	return s.totalMinutes >= requested
}

func (s *session) add(b *Book) int {
	m := b.ReadMinutes()
	s.totalMinutes += m
	s.items = append(s.items, b.Content)
	return m
}

// Assemble visits open libraries in order and returns the selected contents.
func (a *Assembler) Assemble(open []Library, requestedMinutes int, cadence Cadence) (*Assembly, error) {
	var holiday []*Book
	if cadence.Active {
		if cadence.Frequency < 0 {
			return nil, fmt.Errorf("%w: negative repeat frequency %d", ErrInvalidCadence, cadence.Frequency)
		}
		holiday = a.holidayCandidates()
		if len(holiday) == 0 {
			return nil, ErrNoHolidayBooks
		}
	}

	s := &session{}
	for _, lib := range open {
		if s.budgetMet(requestedMinutes) {
			break
		}
		if err := a.visit(s, lib, requestedMinutes, cadence, holiday); err != nil {
			return nil, err
		}
	}

	items := s.items
	if cadence.Active && len(items) > 0 {
		// TODO: confirm with product whether the first holiday pick should
		// really be left out of the published catalog.
		items = items[1:]
	}

	return &Assembly{
		Items:        items,
		History:      s.history.IDs(),
		TotalMinutes: s.totalMinutes,
		SkipMinutes:  s.skipMinutes,
	}, nil
}

func (a *Assembler) visit(s *session, lib Library, requested int, cadence Cadence, holiday []*Book) error {
	budget := lib.Metadata.Span()

	if !cadence.Active {
		ok, err := a.hasReadableBook(lib)
		if err != nil {
			return err
		}
		if !ok {
			a.Log.Warn().Str("library", lib.Name).Msg("skipping library without any book longer than a minute")
			return nil
		}
	}

	used, picks := 0, 0
	for used < budget && !s.budgetMet(requested) {
		if cadence.Active && s.history.Len()%(cadence.Frequency+1) == 0 {
			b := holiday[a.Rand.IntN(len(holiday))]
			s.history.Append(b.ID)
			m := s.add(b)
			used += m
			if s.skipMinutes == 0 {
				s.skipMinutes = m
			}
			picks++
			continue
		}

		id, err := a.Selector.Pick(lib.BookIDs, &s.history)
		if err != nil {
			return fmt.Errorf("library %s: %w", lib.Name, err)
		}
		b, err := a.Books.Book(id)
		if err != nil {
			return fmt.Errorf("library %s: %w", lib.Name, err)
		}
		used += s.add(b)
		picks++
	}

	a.Log.Debug().
		Str("library", lib.Name).
		Int("session_budget", budget).
		Int("session_minutes", used).
		Int("picks", picks).
		Int("total_minutes", s.totalMinutes).
		Msg("library session finished")
	return nil
}

func (a *Assembler) hasReadableBook(lib Library) (bool, error) {
	for _, id := range lib.BookIDs {
		b, err := a.Books.Book(id)
		if err != nil {
			return false, fmt.Errorf("library %s: %w", lib.Name, err)
		}
		if b.ReadMinutes() > 0 {
			return true, nil
		}
	}
	return false, nil
}

// holidayCandidates drops holiday books that would not consume any time.
func (a *Assembler) holidayCandidates() []*Book {
	if a.HolidayBooks == nil {
		return nil
	}
	var out []*Book
	for _, b := range a.HolidayBooks.Books() {
		if b.ReadMinutes() > 0 {
			out = append(out, b)
		}
	}
	return out
}

// RenderCatalog wraps the items, joined without separator, in the catalog
// document.
func RenderCatalog(items []string) string {
	var sb strings.Builder
	sb.WriteString(catalogHeader)
	for _, item := range items {
		sb.WriteString(item)
	}
	sb.WriteString(catalogFooter)
	return sb.String()
}
