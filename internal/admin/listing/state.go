package listing

import (
	"sync"
	"sync/atomic"
	"time"

	"finitefield.org/catalog-admin/internal/admin/listing/urlstate"
)

// State is the pagination, sort, search and filter state of a list.
type State struct {
	CurrentPage  int
	ItemsPerPage int
	TotalItems   int
	TotalPages   int
	SortField    string
	SortOrder    Order
	SearchQuery  string
	FilterTag    string
}

// Mode reports the active load path. Search and filter are mutually exclusive.
func (s State) Mode() Mode {
	switch {
	case s.SearchQuery != "":
		return ModeSearch
	case s.FilterTag != "":
		return ModeFilter
	default:
		return ModeList
	}
}

// Start is the 1-based index of the first row shown, or 0 when empty.
func (s State) Start() int {
	if s.TotalItems == 0 {
		return 0
	}
	return (s.CurrentPage-1)*s.ItemsPerPage + 1
}

// End is the 1-based index of the last row shown.
func (s State) End() int {
	end := s.CurrentPage * s.ItemsPerPage
	if end > s.TotalItems {
		end = s.TotalItems
	}
	return end
}

// CanPrev reports whether a previous page exists.
func (s State) CanPrev() bool {
	return s.CurrentPage > 1
}

// CanNext reports whether a following page exists.
func (s State) CanNext() bool {
	return s.CurrentPage < s.TotalPages
}

// PrevPage returns the previous page number, never below 1.
func (s State) PrevPage() int {
	if s.CurrentPage <= 1 {
		return 1
	}
	return s.CurrentPage - 1
}

// NextPage returns the following page number, never past the last page.
func (s State) NextPage() int {
	if s.CurrentPage >= s.TotalPages {
		return s.CurrentPage
	}
	return s.CurrentPage + 1
}

// PageNumbers returns a window of at most maxVisible page numbers centred on the current page.
func (s State) PageNumbers(maxVisible int) []int {
	if maxVisible <= 0 {
		maxVisible = DefaultVisiblePages
	}
	start := s.CurrentPage - maxVisible/2
	if start < 1 {
		start = 1
	}
	end := start + maxVisible - 1
	if end > s.TotalPages {
		end = s.TotalPages
	}
	if end-start+1 < maxVisible {
		start = end - maxVisible + 1
		if start < 1 {
			start = 1
		}
	}
	var out []int
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out
}

// URLState converts the list state to its query-string form.
func (s State) URLState() urlstate.State {
	out := urlstate.State{
		Search: s.SearchQuery,
		Page:   s.CurrentPage,
		Limit:  s.ItemsPerPage,
	}
	if s.SortField != "" {
		out.SortBy = s.SortField
		out.SortOrder = string(s.SortOrder)
	}
	if s.FilterTag != "" {
		out.Filters = map[string]string{urlstate.FilterTag: s.FilterTag}
	}
	return out
}

// FromURLState builds list state from its query-string form.
func FromURLState(u urlstate.State) State {
	s := State{
		CurrentPage:  u.Page,
		ItemsPerPage: u.Limit,
		SortField:    u.SortBy,
		SortOrder:    ParseOrder(u.SortOrder),
		SearchQuery:  u.Search,
	}
	if u.Filters != nil {
		s.FilterTag = u.Filters[urlstate.FilterTag]
	}
	return s
}

// Sequencer hands out monotonically increasing generations. Only the newest generation may
// commit results.
type Sequencer struct {
	n    atomic.Uint64
	used atomic.Int64
}

// NewSequencer constructs a Sequencer.
func NewSequencer() *Sequencer {
	s := &Sequencer{}
	s.touch()
	return s
}

// Next starts a new generation.
func (s *Sequencer) Next() uint64 {
	s.touch()
	return s.n.Add(1)
}

// IsLatest reports whether gen is still the newest generation.
func (s *Sequencer) IsLatest(gen uint64) bool {
	return s.n.Load() == gen
}

func (s *Sequencer) touch() {
	s.used.Store(time.Now().UnixNano())
}

// Sequencers keeps one Sequencer per key (for example session and list), so overlapping
// requests for the same view discard the older response.
type Sequencers struct {
	mu   sync.Mutex
	max  int
	seqs map[string]*Sequencer
}

// NewSequencers constructs a registry holding at most max sequencers.
func NewSequencers(max int) *Sequencers {
	if max <= 0 {
		max = 1024
	}
	return &Sequencers{max: max, seqs: make(map[string]*Sequencer)}
}

// For returns the sequencer for key, creating it when needed.
func (r *Sequencers) For(key string) *Sequencer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq, ok := r.seqs[key]; ok {
		return seq
	}
	if len(r.seqs) >= r.max {
		r.evictOldest()
	}
	seq := NewSequencer()
	r.seqs[key] = seq
	return seq
}

// Len returns the number of tracked sequencers.
func (r *Sequencers) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seqs)
}

func (r *Sequencers) evictOldest() {
	var (
		oldestKey string
		oldest    int64
	)
	for key, seq := range r.seqs {
		used := seq.used.Load()
		if oldestKey == "" || used < oldest {
			oldestKey, oldest = key, used
		}
	}
	delete(r.seqs, oldestKey)
}
