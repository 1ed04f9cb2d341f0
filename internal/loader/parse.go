package loader

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"library-catalog/library"
)

// walk streams the tokens of text, handing each start element, end element
// and character data to visit together with the path of enclosing element
// names (the current element included).
func walk(text string, visit func(path []string, tok xml.Token) error) error {
	d := xml.NewDecoder(strings.NewReader(text))
	var path []string
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			if err := visit(path, t); err != nil {
				return err
			}
		case xml.EndElement:
			if err := visit(path, t); err != nil {
				return err
			}
			path = path[:len(path)-1]
		case xml.CharData:
			if err := visit(path, t); err != nil {
				return err
			}
		}
	}
}

func last(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

func parent(path []string) string {
	if len(path) < 2 {
		return ""
	}
	return path[len(path)-2]
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// ParseBook extracts the id and read time of a book document. The first id
// attribute names the book; the read time comes from a readtime attribute or
// element, in milliseconds. Content keeps text verbatim.
func ParseBook(text string) (library.Book, error) {
	var (
		id, readtime      string
		haveID, haveRead  bool
		readtimeText      strings.Builder
		inReadtimeElement bool
	)

	err := walk(text, func(path []string, tok xml.Token) error {
		switch t := tok.(type) {
		case xml.StartElement:
			if v, ok := attr(t, "id"); ok && !haveID {
				id, haveID = v, true
			}
			if v, ok := attr(t, "readtime"); ok && !haveRead {
				readtime, haveRead = v, true
			}
			if t.Name.Local == "readtime" && !haveRead {
				inReadtimeElement = true
			}
		case xml.CharData:
			if inReadtimeElement {
				readtimeText.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "readtime" && inReadtimeElement {
				readtime, haveRead = readtimeText.String(), true
				inReadtimeElement = false
			}
		}
		return nil
	})
	if err != nil {
		return library.Book{}, err
	}

	if !haveID || id == "" {
		return library.Book{}, fmt.Errorf("book has no id")
	}
	if !haveRead {
		return library.Book{}, fmt.Errorf("book %s has no readtime", id)
	}
	ms, err := strconv.Atoi(strings.TrimSpace(readtime))
	if err != nil || ms < 0 {
		return library.Book{}, fmt.Errorf("book %s: invalid readtime %q", id, readtime)
	}

	return library.Book{ID: id, ReadTimeRaw: ms, Content: text}, nil
}

// BookRefs returns, in document order, every id attribute value that refers
// to a book (contains "bk").
func BookRefs(text string) ([]string, error) {
	var ids []string
	err := walk(text, func(_ []string, tok xml.Token) error {
		if el, ok := tok.(xml.StartElement); ok {
			if v, ok := attr(el, "id"); ok && strings.Contains(v, "bk") {
				ids = append(ids, v)
			}
		}
		return nil
	})
	return ids, err
}

// ParseLibrary reads the <library> metadata block (child elements or
// attributes starttime, endtime, opendays) and the referenced book ids.
func ParseLibrary(text string) (library.Library, error) {
	var (
		lib              library.Library
		start, end, days strings.Builder
		sawLibrary       bool
	)

	err := walk(text, func(path []string, tok xml.Token) error {
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "library" {
				sawLibrary = true
				if v, ok := attr(t, "starttime"); ok {
					start.WriteString(v)
				}
				if v, ok := attr(t, "endtime"); ok {
					end.WriteString(v)
				}
				if v, ok := attr(t, "opendays"); ok {
					days.WriteString(v)
				}
			}
			if v, ok := attr(t, "id"); ok && strings.Contains(v, "bk") {
				lib.BookIDs = append(lib.BookIDs, v)
			}
		case xml.CharData:
			if parent(path) != "library" {
				return nil
			}
			switch last(path) {
			case "starttime":
				start.Write(t)
			case "endtime":
				end.Write(t)
			case "opendays":
				days.Write(t)
			}
		}
		return nil
	})
	if err != nil {
		return library.Library{}, err
	}
	if !sawLibrary {
		return library.Library{}, fmt.Errorf("missing <library> metadata")
	}

	md := library.LibraryMetadata{
		StartTime: strings.TrimSpace(start.String()),
		EndTime:   strings.TrimSpace(end.String()),
	}
	if md.StartAt, err = library.ParseClockTime(md.StartTime); err != nil {
		return library.Library{}, fmt.Errorf("starttime: %w", err)
	}
	if md.EndAt, err = library.ParseClockTime(md.EndTime); err != nil {
		return library.Library{}, fmt.Errorf("endtime: %w", err)
	}

	d := strings.TrimSpace(days.String())
	if d == "" {
		d = "0"
	}
	if md.OpenDays, err = strconv.Atoi(d); err != nil || md.OpenDays < 0 || md.OpenDays > 7 {
		return library.Library{}, fmt.Errorf("invalid opendays %q: want 0-7", d)
	}

	lib.Metadata = md
	return lib, nil
}

// ParseHolidayLibrary reads <holiday-lib><uid/><frequencies><frequency>
// <recommended/><date/></frequency>...</frequencies></holiday-lib>.
func ParseHolidayLibrary(text string) (library.HolidayLibrary, error) {
	type rawFrequency struct {
		recommended, date strings.Builder
	}

	var (
		uid     strings.Builder
		rows    []*rawFrequency
		current *rawFrequency
	)

	err := walk(text, func(path []string, tok xml.Token) error {
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "frequency" {
				current = &rawFrequency{}
				if v, ok := attr(t, "recommended"); ok {
					current.recommended.WriteString(v)
				}
				if v, ok := attr(t, "date"); ok {
					current.date.WriteString(v)
				}
			}
			if t.Name.Local == "holiday-lib" {
				if v, ok := attr(t, "uid"); ok {
					uid.WriteString(v)
				}
			}
		case xml.CharData:
			switch {
			case parent(path) == "holiday-lib" && last(path) == "uid":
				uid.Write(t)
			case current != nil && parent(path) == "frequency" && last(path) == "recommended":
				current.recommended.Write(t)
			case current != nil && parent(path) == "frequency" && last(path) == "date":
				current.date.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "frequency" && current != nil {
				rows = append(rows, current)
				current = nil
			}
		}
		return nil
	})
	if err != nil {
		return library.HolidayLibrary{}, err
	}

	h := library.HolidayLibrary{UID: strings.TrimSpace(uid.String())}
	for _, r := range rows {
		date := strings.TrimSpace(r.date.String())
		rec := strings.TrimSpace(r.recommended.String())
		if date == "" {
			return library.HolidayLibrary{}, fmt.Errorf("frequency entry without date")
		}
		n, err := strconv.Atoi(rec)
		if err != nil || n < 0 {
			return library.HolidayLibrary{}, fmt.Errorf("frequency %s: invalid recommended %q", date, rec)
		}
		h.Frequencies = append(h.Frequencies, library.Frequency{Recommended: n, Date: date})
	}
	return h, nil
}
