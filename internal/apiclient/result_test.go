package apiclient

import (
	"errors"
	"testing"
)

func TestResultSuccess(t *testing.T) {
	r := OK(42)
	if !r.OK() || r.Err() != nil {
		t.Fatalf("OK result reported failure: %v", r.Err())
	}
	v, ok := r.Data()
	if !ok || v != 42 {
		t.Fatalf("Data = %d, %v", v, ok)
	}
	doubled := Map(r, func(v int) int { return v * 2 })
	if got, err := doubled.Get(); err != nil || got != 84 {
		t.Fatalf("Map = %d, %v", got, err)
	}
}

func TestResultFailure(t *testing.T) {
	boom := errors.New("boom")
	r := Fail[string](boom)
	if r.OK() {
		t.Fatal("failed result reported OK")
	}
	if v, ok := r.Data(); ok || v != "" {
		t.Fatalf("Data = %q, %v", v, ok)
	}
	if !errors.Is(r.Err(), boom) {
		t.Fatalf("Err = %v", r.Err())
	}
	mapped := Map(r, func(s string) int { return len(s) })
	if !errors.Is(mapped.Err(), boom) {
		t.Fatalf("Map lost error: %v", mapped.Err())
	}
}

func TestFailNilIsStillFailure(t *testing.T) {
	r := Fail[int](nil)
	if r.OK() || !errors.Is(r.Err(), ErrUnknownFailure) {
		t.Fatalf("Fail(nil) = %v", r.Err())
	}
}
