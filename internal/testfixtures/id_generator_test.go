package testfixtures

import (
	"sort"
	"testing"
)

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("mov")

	first := gen.Next()
	second := gen.Next()

	if first != "mov-0001" || second != "mov-0002" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorSortsInCreationOrder(t *testing.T) {
	gen := NewIDGenerator("")
	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		ids = append(ids, gen.Next())
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("expected sorted identifiers, got %v", ids)
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator("pessoa")
	_ = gen.Next()
	gen.Reset("p")

	if next := gen.Next(); next != "p-0001" {
		t.Fatalf("expected p-0001 after reset, got %q", next)
	}
}
