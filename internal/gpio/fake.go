package gpio

// FakeOutput is a test double that records every value written to a
// single output line.
type FakeOutput struct {
	// Pin identifies the line for assertions.
	Pin int

	// Values contains every Set call in order.
	Values []bool

	// On is the value of the most recent Set call.
	On bool

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutput creates a FakeOutput for the given pin.
func NewFakeOutput(pin int) *FakeOutput {
	return &FakeOutput{Pin: pin}
}

// Set records the value.
func (f *FakeOutput) Set(on bool) {
	f.Values = append(f.Values, on)
	f.On = on
}

// Close drives the line off and marks the output closed.
func (f *FakeOutput) Close() error {
	f.On = false
	f.Closed = true
	return nil
}

// Writes returns the number of Set calls, for asserting that idempotent
// paths elide redundant hardware writes.
func (f *FakeOutput) Writes() int {
	return len(f.Values)
}

// Reset clears recorded values.
func (f *FakeOutput) Reset() {
	f.Values = nil
	f.On = false
	f.Closed = false
}
