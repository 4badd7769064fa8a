package models

import (
	"errors"
	"testing"
)

func TestNewRosterPreservesOrder(t *testing.T) {
	r, err := NewRoster([]string{" m1 ", "m2", "m3"})
	if err != nil {
		t.Fatalf("NewRoster() error = %v", err)
	}

	want := []string{"m1", "m2", "m3"}
	got := r.IDs()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewRosterRejectsBadInput(t *testing.T) {
	if _, err := NewRoster(nil); !errors.Is(err, ErrEmptyRoster) {
		t.Errorf("NewRoster(nil) error = %v, want ErrEmptyRoster", err)
	}
	if _, err := NewRoster([]string{"m1", "  "}); err == nil {
		t.Error("NewRoster with blank id should fail")
	}
	if _, err := NewRoster([]string{"m1", "m1"}); err == nil {
		t.Error("NewRoster with duplicate id should fail")
	}
}

func TestRosterAtWraps(t *testing.T) {
	r, _ := NewRoster([]string{"a", "b", "c"})

	tests := []struct {
		index int
		want  string
	}{
		{0, "a"},
		{2, "c"},
		{3, "a"},
		{7, "b"},
		{-1, "c"},
	}
	for _, tt := range tests {
		if got := r.At(tt.index); got != tt.want {
			t.Errorf("At(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestRosterIDsIsCopy(t *testing.T) {
	r, _ := NewRoster([]string{"a", "b"})
	ids := r.IDs()
	ids[0] = "mutated"

	if r.At(0) != "a" {
		t.Error("mutating IDs() result changed the roster")
	}
	if r.Index("b") != 1 || r.Index("zzz") != -1 {
		t.Error("Index() returned unexpected positions")
	}
}

func TestFamily(t *testing.T) {
	if got := Family("meta-llama/llama-3.2-3b-instruct:free"); got != "meta-llama" {
		t.Errorf("Family() = %q", got)
	}
	if got := Family("gpt-4"); got != "unknown" {
		t.Errorf("Family() = %q", got)
	}
}

func TestDefaultModelsFormValidRoster(t *testing.T) {
	r, err := NewRoster(DefaultModels)
	if err != nil {
		t.Fatalf("default roster invalid: %v", err)
	}
	if r.Len() != 4 {
		t.Errorf("Len() = %d, want 4", r.Len())
	}
}
