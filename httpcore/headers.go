package httpcore

import "strings"

// Headers is a case-insensitive string-to-string map. Lookups and writes
// normalize the key; the casing of the first write is preserved for
// serialization.
type Headers struct {
	order []string
	keys  map[string]string // lower(key) -> original-cased key
	vals  map[string]string // lower(key) -> value
}

// NewHeaders returns an empty Headers map.
func NewHeaders() Headers {
	return Headers{keys: map[string]string{}, vals: map[string]string{}}
}

func (h *Headers) ensure() {
	if h.keys == nil {
		h.keys = map[string]string{}
		h.vals = map[string]string{}
	}
}

// Has reports whether name is present, case-insensitively.
func (h Headers) Has(name string) bool {
	if h.vals == nil {
		return false
	}
	_, ok := h.vals[strings.ToLower(name)]
	return ok
}

// Get returns the value stored for name, case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	if h.vals == nil {
		return "", false
	}
	v, ok := h.vals[strings.ToLower(name)]
	return v, ok
}

// Set records value for name, overwriting any existing value for the same
// case-insensitive key. The first-seen casing of name is kept for Range.
func (h *Headers) Set(name, value string) {
	h.ensure()
	lower := strings.ToLower(name)
	if _, exists := h.vals[lower]; !exists {
		h.order = append(h.order, lower)
		h.keys[lower] = name
	}
	h.vals[lower] = value
}

// Del removes name, case-insensitively. A no-op if name is absent.
func (h *Headers) Del(name string) {
	if h.vals == nil {
		return
	}
	lower := strings.ToLower(name)
	if _, ok := h.vals[lower]; !ok {
		return
	}
	delete(h.vals, lower)
	delete(h.keys, lower)
	for i, k := range h.order {
		if k == lower {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Range calls fn for every header in insertion order.
func (h Headers) Range(fn func(name, value string)) {
	for _, lower := range h.order {
		fn(h.keys[lower], h.vals[lower])
	}
}

// Len reports the number of distinct header names stored.
func (h Headers) Len() int { return len(h.order) }
