package library

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	ErrNoEligibleBooks = errors.New("no eligible books left to pick from")
	ErrWindowTooLarge  = errors.New("non-repeat window does not fit library")
)

const (
	DefaultWindow    = 4
	DefaultThreshold = DefaultWindow + 2
)

// RandomSource picks an index in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

// NewRandomSource returns a PCG backed source. A zero seed means time seeded.
func NewRandomSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// History is the ordered list of ids chosen so far in one assembly run.
type History struct {
	ids []string
}

func (h *History) Len() int { return len(h.ids) }

func (h *History) Append(id string) { h.ids = append(h.ids, id) }

// IDs returns a copy of the recorded ids.
func (h *History) IDs() []string {
	out := make([]string, len(h.ids))
	copy(out, h.ids)
	return out
}

// Selector implements the sliding non-repeat policy.
//
// While fewer than Threshold picks have been made every earlier pick is
// excluded. Afterwards only the current block of Window picks, starting at
// floor(len/Window)*Window, is excluded and older picks become eligible again.
type Selector struct {
	Window    int
	Threshold int
	Rand      RandomSource
}

// NewSelector validates threshold > window >= 1.
func NewSelector(window, threshold int, r RandomSource) (*Selector, error) {
	if window < 1 {
		return nil, fmt.Errorf("window must be at least 1, got %d", window)
	}
	if threshold <= window {
		return nil, fmt.Errorf("threshold %d must be greater than window %d", threshold, window)
	}
	return &Selector{Window: window, Threshold: threshold, Rand: r}, nil
}

// Excluded returns the ids that may not be picked given history.
func (s *Selector) Excluded(history *History) []string {
	n := history.Len()
	if n < s.Threshold {
		return history.IDs()
	}
	offset := (n / s.Window) * s.Window
	return append([]string(nil), history.ids[offset:]...)
}

// Pick chooses one of ids uniformly among those not excluded by history and
// records it.
func (s *Selector) Pick(ids []string, history *History) (string, error) {
	excluded := make(map[string]struct{})
	for _, id := range s.Excluded(history) {
		excluded[id] = struct{}{}
	}

	eligible := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, skip := excluded[id]; !skip {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return "", fmt.Errorf("%w: %d candidates, %d excluded", ErrNoEligibleBooks, len(ids), len(excluded))
	}

	id := eligible[s.Rand.IntN(len(eligible))]
	history.Append(id)
	return id, nil
}

// CheckFits reports ErrWindowTooLarge for the first library whose id list is
// too short to survive the early phase of selection.
func (s *Selector) CheckFits(libraries []Library) error {
	for _, lib := range libraries {
		if len(lib.BookIDs) < s.Threshold {
			return fmt.Errorf("%w: library %s has %d books, need at least %d",
				ErrWindowTooLarge, lib.Name, len(lib.BookIDs), s.Threshold)
		}
	}
	return nil
}
