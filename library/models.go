package library

// Book is a single readable item loaded from the books directory.
// Content holds the raw document fragment exactly as it appears on disk and is
// copied verbatim into generated catalogs.
type Book struct {
	ID          string `json:"id"`
	ReadTimeRaw int    `json:"readtime"` // milliseconds
	Content     string `json:"content"`
}

// ReadMinutes converts the raw read time from milliseconds to whole minutes.
func (b *Book) ReadMinutes() int {
	return (b.ReadTimeRaw / 1000) / 60
}

// LibraryMetadata describes when a library is open.
// StartAt and EndAt are minutes since midnight parsed from the HHMM strings.
type LibraryMetadata struct {
	StartTime string `json:"starttime"`
	EndTime   string `json:"endtime"`
	OpenDays  int    `json:"opendays"` // 0 = every day, 1 (Sunday) .. 7 (Saturday)

	StartAt int `json:"-"`
	EndAt   int `json:"-"`
}

// Span is the length of the opening window in minutes. It doubles as the
// session budget of a visit to the library.
func (m LibraryMetadata) Span() int {
	return m.EndAt - m.StartAt
}

// Library is an ordered list of book ids plus its opening hours.
// The order of BookIDs is significant for selection.
type Library struct {
	Name     string          `json:"name"`
	BookIDs  []string        `json:"books"`
	Metadata LibraryMetadata `json:"metadata"`
}

// Frequency is one row of the holiday recommendation table.
type Frequency struct {
	Recommended int    `json:"recommended"`
	Date        string `json:"date"`
}

// HolidayLibrary points at the holiday sub-collection (UID) and carries the
// date keyed recommendation cadence.
type HolidayLibrary struct {
	UID         string      `json:"uid"`
	Frequencies []Frequency `json:"frequencies"`
}

// Request is one catalog generation request coming from the prompt loop or
// the generate command. RequestedMinutes is always positive.
type Request struct {
	RequestedMinutes   int
	RecommendationDate string
}

// Result describes a generated catalog.
type Result struct {
	RequestID       string
	Document        string
	OpenLibraries   int
	Items           int
	TotalMinutes    int
	SkipMinutes     int
	RepeatFrequency int
	HolidayActive   bool
	Digest          string
}
