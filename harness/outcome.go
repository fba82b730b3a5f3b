package harness

// Outcome is what an operation hands back to the trial runner. Engines
// that compute eagerly return an Eager outcome; engines that build a
// deferred plan return a Lazy one, and the runner forces it inside the
// timed window so the measurement covers the real work.
type Outcome interface {
	// Materialize forces any deferred computation. No-op for eager
	// results.
	Materialize() error

	// Release drops the held result so the next trial starts from
	// comparable conditions.
	Release()
}

// Eager wraps a result that was fully computed by the time the operation
// returned.
type Eager struct {
	Rows  int64
	Close func()
}

func (e *Eager) Materialize() error { return nil }

func (e *Eager) Release() {
	if e.Close != nil {
		e.Close()
	}
}

// Lazy wraps a deferred computation. Collect must execute the plan and
// report how many rows it produced.
type Lazy struct {
	Collect func() (int64, error)
	Close   func()

	rows int64
}

func (l *Lazy) Materialize() error {
	rows, err := l.Collect()
	if err != nil {
		return err
	}
	l.rows = rows

	return nil
}

// Rows reports the materialized row count, zero before Materialize.
func (l *Lazy) Rows() int64 { return l.rows }

func (l *Lazy) Release() {
	if l.Close != nil {
		l.Close()
	}
}
