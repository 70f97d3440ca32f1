// Package feed holds the shared number list and its read cursor.
package feed

import (
	"strconv"
	"sync"

	"github.com/go-while/go-numfeed/internal/models"
)

// Store owns the numbers, the message and the cursor.
// All access goes through mux.
type Store struct {
	mux               sync.Mutex
	numbers           []string
	message           string
	testNumber        string
	defaultFetchCount int
	startIndex        int
}

// NewStore creates a store with the cursor at 0
func NewStore(numbers []string, message string, defaultFetchCount int, testNumber string) *Store {
	if defaultFetchCount <= 0 {
		defaultFetchCount = 1
	}
	cp := make([]string, len(numbers))
	copy(cp, numbers)
	return &Store{
		numbers:           cp,
		message:           message,
		testNumber:        testNumber,
		defaultFetchCount: defaultFetchCount,
	}
}

// ResolvePageSize parses raw as a page size.
// Empty, malformed, zero and negative values all give def.
func ResolvePageSize(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// DefaultFetchCount returns the configured page size
func (s *Store) DefaultFetchCount() int {
	return s.defaultFetchCount
}

// TakeNextPage reads the next page and advances the cursor.
// requested <= 0 means the default page size.
func (s *Store) TakeNextPage(requested int) *models.PageResult {
	s.mux.Lock()
	defer s.mux.Unlock()

	n := requested
	if n <= 0 {
		n = s.defaultFetchCount
	}

	total := len(s.numbers)
	start := s.startIndex
	if start >= total {
		return &models.PageResult{
			Exhausted: true,
			Start:     start,
			End:       start,
			Size:      n,
		}
	}

	end := start + n
	if end > total || end < start { // end < start: overflow on huge n
		end = total
	}

	page := make([]string, 0, end-start+1)
	page = append(page, s.testNumber)
	page = append(page, s.numbers[start:end]...)

	s.startIndex = end

	return &models.PageResult{
		Numbers: page,
		Message: s.message,
		Count:   len(page),
		Start:   start,
		End:     end,
		Size:    n,
	}
}

// Snapshot returns the cursor state without touching it
func (s *Store) Snapshot() models.Snapshot {
	s.mux.Lock()
	defer s.mux.Unlock()
	total := len(s.numbers)
	return models.Snapshot{
		Total:             total,
		Consumed:          s.startIndex,
		Remaining:         total - s.startIndex,
		Exhausted:         s.startIndex >= total,
		DefaultFetchCount: s.defaultFetchCount,
	}
}

// Total returns the number of loaded numbers
func (s *Store) Total() int {
	return len(s.numbers)
}
