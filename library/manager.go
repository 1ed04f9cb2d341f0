package library

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"
)

// ErrNoLibrariesOpen is returned by Generate when no library is open. It is a
// normal outcome: callers report it and write nothing.
var ErrNoLibrariesOpen = errors.New("no libraries are open at the moment")

// Dataset is everything loaded from disk once per run.
type Dataset struct {
	Books        []Book
	Libraries    []Library
	Holiday      HolidayLibrary
	HolidayBooks []Book
}

// Options tunes a CatalogManager.
type Options struct {
	Window    int
	Threshold int
	Clock     Clock
	Rand      RandomSource
	Logger    zerolog.Logger
}

// CatalogManager is a thin façade tying the loaded data to the assembly
// pipeline, keeping CLI code simple.
type CatalogManager struct {
	db        *Database
	libraries []Library
	holiday   HolidayLibrary
	clock     Clock
	assembler *Assembler
	log       zerolog.Logger
}

// NewCatalogManager stores the dataset's books in db, replacing any left from
// an earlier run, and validates that the selection window fits every library
// and that every referenced book exists.
func NewCatalogManager(db *Database, ds Dataset, opts Options) (*CatalogManager, error) {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Rand == nil {
		opts.Rand = NewRandomSource(0)
	}

	selector, err := NewSelector(opts.Window, opts.Threshold, opts.Rand)
	if err != nil {
		return nil, err
	}
	if err := selector.CheckFits(ds.Libraries); err != nil {
		return nil, err
	}

	holidayBooks, err := NewBookIndex(ds.HolidayBooks)
	if err != nil {
		return nil, fmt.Errorf("holiday books: %w", err)
	}

	if err := db.ReplaceBooks(ds.Books); err != nil {
		return nil, fmt.Errorf("index books: %w", err)
	}
	for _, lib := range ds.Libraries {
		missing, err := db.MissingBooks(lib.BookIDs)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("library %s: %w: %v", lib.Name, ErrBookNotFound, missing)
		}
	}

	return &CatalogManager{
		db:        db,
		libraries: ds.Libraries,
		holiday:   ds.Holiday,
		clock:     opts.Clock,
		assembler: &Assembler{
			Books:        db,
			HolidayBooks: holidayBooks,
			Selector:     selector,
			Rand:         opts.Rand,
			Log:          opts.Logger,
		},
		log: opts.Logger,
	}, nil
}

// ------------------ Lookups ------------------

func (cm *CatalogManager) Libraries() []Library { return cm.libraries }

func (cm *CatalogManager) Holiday() HolidayLibrary { return cm.holiday }

func (cm *CatalogManager) HolidayBooks() *BookIndex { return cm.assembler.HolidayBooks }

// OpenLibraries reports the libraries open according to the manager's clock.
func (cm *CatalogManager) OpenLibraries() ([]Library, bool) {
	return Available(cm.libraries, cm.clock)
}

// Now exposes the manager's clock reading.
func (cm *CatalogManager) Now() (int, int) { return cm.clock.Now() }

func (cm *CatalogManager) GetAllBooks() ([]*Book, error)         { return cm.db.GetAllBooks() }
func (cm *CatalogManager) SearchBooks(q string) ([]*Book, error) { return cm.db.SearchBooks(q) }

// ------------------ Generation ------------------

// Generate runs one request end to end and returns the rendered document.
func (cm *CatalogManager) Generate(req Request) (*Result, error) {
	if req.RequestedMinutes <= 0 {
		return nil, fmt.Errorf("requested minutes must be positive, got %d", req.RequestedMinutes)
	}

	requestID := uuid.NewString()
	log := cm.log.With().Str("request_id", requestID).Logger()

	open, ok := cm.OpenLibraries()
	if !ok {
		log.Info().Msg("no libraries open")
		return nil, ErrNoLibrariesOpen
	}

	var cadence Cadence
	if rf, found := FrequencyFor(req.RecommendationDate, cm.holiday.Frequencies); found {
		cadence = Cadence{Frequency: rf, Active: true}
	}

	log.Info().
		Int("requested_minutes", req.RequestedMinutes).
		Str("recommendation_date", req.RecommendationDate).
		Int("open_libraries", len(open)).
		Bool("holiday_active", cadence.Active).
		Int("repeat_frequency", cadence.Frequency).
		Msg("assembling catalog")

	assembly, err := cm.assembler.Assemble(open, req.RequestedMinutes, cadence)
	if err != nil {
		log.Error().Err(err).Msg("catalog assembly failed")
		return nil, err
	}

	doc := RenderCatalog(assembly.Items)
	sum := blake2b.Sum256([]byte(doc))

	res := &Result{
		RequestID:       requestID,
		Document:        doc,
		OpenLibraries:   len(open),
		Items:           len(assembly.Items),
		TotalMinutes:    assembly.TotalMinutes,
		SkipMinutes:     assembly.SkipMinutes,
		RepeatFrequency: cadence.Frequency,
		HolidayActive:   cadence.Active,
		Digest:          hex.EncodeToString(sum[:]),
	}

	log.Info().
		Int("items", res.Items).
		Int("total_minutes", res.TotalMinutes).
		Int("skip_minutes", res.SkipMinutes).
		Str("digest", res.Digest).
		Msg("catalog assembled")
	return res, nil
}
