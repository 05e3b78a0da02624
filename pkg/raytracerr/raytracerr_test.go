package raytracerr

import (
	"errors"
	"testing"
)

func TestFormatErrorMessageIncludesFileAndReason(t *testing.T) {
	err := &FormatError{File: "mesh.stl", Reason: "ascii STL is not supported"}
	want := "mesh.stl: ascii STL is not supported"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestCapacityErrorMessageReportsCountAndLimit(t *testing.T) {
	err := &CapacityError{Kind: "triangle", Count: MaxCount + 1, Limit: MaxCount}
	var asErr error = err
	if !errors.As(asErr, &err) {
		t.Fatal("CapacityError should satisfy the error interface via errors.As")
	}
	if err.Count != MaxCount+1 {
		t.Fatalf("Count = %d, want %d", err.Count, MaxCount+1)
	}
	if got, want := err.Error(), "triangle count 1073741824 exceeds limit 1073741823"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
