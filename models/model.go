package models

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultModels is the roster used when no roster file is configured.
// Order matters: the first entry is where rotation starts after a restart.
var DefaultModels = []string{
	"microsoft/phi-3-mini-128k-instruct:free",
	"meta-llama/llama-3.2-3b-instruct:free",
	"qwen/qwen-2-7b-instruct:free",
	"google/gemma-2-9b-it:free",
}

var ErrEmptyRoster = errors.New("model roster is empty")

// Roster is the ordered, immutable list of upstream model identifiers the
// relay rotates through.
type Roster struct {
	ids []string
}

// NewRoster validates ids and returns a roster preserving their order.
func NewRoster(ids []string) (*Roster, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyRoster
	}

	seen := make(map[string]bool, len(ids))
	cleaned := make([]string, 0, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("model at position %d has an empty identifier", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("model %q listed more than once", id)
		}
		seen[id] = true
		cleaned = append(cleaned, id)
	}

	return &Roster{ids: cleaned}, nil
}

// Len returns the number of models in the roster
func (r *Roster) Len() int {
	return len(r.ids)
}

// At returns the model at index i, wrapping around the roster.
func (r *Roster) At(i int) string {
	n := len(r.ids)
	return r.ids[((i%n)+n)%n]
}

// Index returns the position of id, or -1.
func (r *Roster) Index(id string) int {
	for i, candidate := range r.ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

// IDs returns a copy of the model identifiers in rotation order.
func (r *Roster) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Family returns the vendor part of an OpenRouter style id ("meta-llama/llama-3.2-3b" -> "meta-llama").
func Family(id string) string {
	if slash := strings.Index(id, "/"); slash > 0 {
		return id[:slash]
	}
	return "unknown"
}
