// Package harness runs repeated measured trials of engine operations and
// accumulates the raw timing and memory samples.
package harness

// Sample is one successful trial: a single timed, memory-profiled
// execution of an engine operation under a scenario.
type Sample struct {
	Engine      string
	Operation   string
	Scenario    string
	TimeSeconds float64
	MemoryMB    float64
}

// Table is the ordered collection of samples for one run. It is created
// by the caller and handed into the benchmark loop; nothing accumulates
// into process-wide state.
type Table struct {
	samples []Sample
}

// NewTable returns an empty results table.
func NewTable() *Table {
	return &Table{}
}

// Append adds one sample, preserving insertion order.
func (t *Table) Append(s Sample) {
	t.samples = append(t.samples, s)
}

// Samples returns the accumulated samples in insertion order.
func (t *Table) Samples() []Sample {
	return t.samples
}

// Len reports the number of accumulated samples.
func (t *Table) Len() int {
	return len(t.samples)
}
