// Package urlstate mirrors list state into the query string so list views survive reloads and
// can be shared as links.
package urlstate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names.
const (
	KeySearch    = "search"
	KeySortBy    = "sortBy"
	KeySortOrder = "sortOrder"
	KeyPage      = "page"
	KeyLimit     = "limit"
	KeyFilters   = "filters"
)

// FilterTag is the filters entry holding the active tag.
const FilterTag = "tag"

// Keys lists every parameter owned by list state.
var Keys = []string{KeySearch, KeySortBy, KeySortOrder, KeyPage, KeyLimit, KeyFilters}

// State is the URL form of list state. Zero values mean "absent".
type State struct {
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
	Filters   map[string]string
}

// Decode reads list state from query values. Malformed numbers and filters are treated as absent.
func Decode(values url.Values) State {
	var s State
	s.Search = strings.TrimSpace(values.Get(KeySearch))
	s.SortBy = strings.TrimSpace(values.Get(KeySortBy))
	switch order := strings.ToLower(strings.TrimSpace(values.Get(KeySortOrder))); order {
	case "asc", "desc":
		s.SortOrder = order
	}
	s.Page = positiveInt(values.Get(KeyPage))
	s.Limit = positiveInt(values.Get(KeyLimit))
	s.Filters = decodeFilters(values.Get(KeyFilters))
	return s
}

// Encode writes s into a fresh set of query values.
func Encode(s State) url.Values {
	values := url.Values{}
	apply(values, s)
	return values
}

// Merge writes s over values, deleting list keys whose value is zero. Other keys are kept.
func Merge(values url.Values, s State) url.Values {
	out := clone(values)
	apply(out, s)
	return out
}

// Patch describes a partial update. A nil field is left untouched; a pointer to the zero value
// deletes the key.
type Patch struct {
	Search    *string
	SortBy    *string
	SortOrder *string
	Page      *int
	Limit     *int
	Filters   *map[string]string
}

// Update applies patch to a copy of values.
func Update(values url.Values, patch Patch) url.Values {
	out := clone(values)
	if patch.Search != nil {
		setOrDelete(out, KeySearch, strings.TrimSpace(*patch.Search))
	}
	if patch.SortBy != nil {
		setOrDelete(out, KeySortBy, strings.TrimSpace(*patch.SortBy))
	}
	if patch.SortOrder != nil {
		setOrDelete(out, KeySortOrder, strings.TrimSpace(*patch.SortOrder))
	}
	if patch.Page != nil {
		setOrDelete(out, KeyPage, intString(*patch.Page))
	}
	if patch.Limit != nil {
		setOrDelete(out, KeyLimit, intString(*patch.Limit))
	}
	if patch.Filters != nil {
		setOrDelete(out, KeyFilters, encodeFilters(*patch.Filters))
	}
	return out
}

// Clear removes every list-state key, keeping unrelated parameters.
func Clear(values url.Values) url.Values {
	out := clone(values)
	for _, key := range Keys {
		out.Del(key)
	}
	return out
}

// HasActive reports whether any list-state key is present.
func HasActive(values url.Values) bool {
	for _, key := range Keys {
		if strings.TrimSpace(values.Get(key)) != "" {
			return true
		}
	}
	return false
}

// String returns a pointer to v for use in a Patch.
func String(v string) *string { return &v }

// Int returns a pointer to v for use in a Patch.
func Int(v int) *int { return &v }

func apply(values url.Values, s State) {
	setOrDelete(values, KeySearch, strings.TrimSpace(s.Search))
	setOrDelete(values, KeySortBy, strings.TrimSpace(s.SortBy))
	setOrDelete(values, KeySortOrder, strings.TrimSpace(s.SortOrder))
	setOrDelete(values, KeyPage, intString(s.Page))
	setOrDelete(values, KeyLimit, intString(s.Limit))
	setOrDelete(values, KeyFilters, encodeFilters(s.Filters))
}

func setOrDelete(values url.Values, key, value string) {
	if value == "" {
		values.Del(key)
		return
	}
	values.Set(key, value)
}

func intString(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func positiveInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

func encodeFilters(filters map[string]string) string {
	clean := make(map[string]string, len(filters))
	for k, v := range filters {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return ""
	}
	// encoding/json sorts map keys, so the output is stable.
	data, err := json.Marshal(clean)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeFilters(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}
	out := make(map[string]string, len(parsed))
	for k, val := range parsed {
		switch v := val.(type) {
		case nil:
			continue
		case string:
			out[k] = v
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func clone(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	return out
}
