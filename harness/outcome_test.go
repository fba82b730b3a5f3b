package harness

import (
	"errors"
	"testing"
)

func TestEagerMaterializeIsNoOp(t *testing.T) {
	e := &Eager{Rows: 42}
	if err := e.Materialize(); err != nil {
		t.Fatalf("Materialize() = %v, want nil", err)
	}
	if e.Rows != 42 {
		t.Errorf("rows = %d, want 42", e.Rows)
	}
}

func TestLazyMaterializeRecordsRows(t *testing.T) {
	l := &Lazy{Collect: func() (int64, error) { return 7, nil }}

	if got := l.Rows(); got != 0 {
		t.Errorf("rows before materialize = %d, want 0", got)
	}
	if err := l.Materialize(); err != nil {
		t.Fatalf("Materialize() = %v, want nil", err)
	}
	if got := l.Rows(); got != 7 {
		t.Errorf("rows = %d, want 7", got)
	}
}

func TestLazyMaterializePropagatesError(t *testing.T) {
	want := errors.New("plan exploded")
	l := &Lazy{Collect: func() (int64, error) { return 0, want }}

	if err := l.Materialize(); !errors.Is(err, want) {
		t.Fatalf("Materialize() = %v, want %v", err, want)
	}
}

func TestReleaseWithoutCloserIsSafe(t *testing.T) {
	(&Eager{}).Release()
	(&Lazy{}).Release()
}

func TestReleaseInvokesCloser(t *testing.T) {
	closed := 0
	e := &Eager{Close: func() { closed++ }}
	l := &Lazy{Close: func() { closed++ }}

	e.Release()
	l.Release()

	if closed != 2 {
		t.Errorf("closers invoked = %d, want 2", closed)
	}
}
