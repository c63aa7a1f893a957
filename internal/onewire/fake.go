package onewire

// FakeSensor is a test double that returns scripted temperatures.
type FakeSensor struct {
	// DeviceID is returned by ID.
	DeviceID string

	// Samples contains scripted readings in Celsius. Each Read consumes
	// the next one; the last repeats once the script is exhausted.
	Samples []float64

	// index tracks current position in Samples.
	index int

	// ReadError, if set, will be returned by Read.
	ReadError error
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(id string, samples []float64) *FakeSensor {
	return &FakeSensor{DeviceID: id, Samples: samples}
}

// ID returns the configured device id.
func (f *FakeSensor) ID() string { return f.DeviceID }

// Read returns the next scripted sample.
func (f *FakeSensor) Read() (float64, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, ErrDisconnected
	}
	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Disconnect makes every subsequent Read fail with ErrDisconnected.
func (f *FakeSensor) Disconnect() {
	f.ReadError = ErrDisconnected
}

// Reset restarts the script from the beginning.
func (f *FakeSensor) Reset() {
	f.index = 0
	f.ReadError = nil
}
