package recognition

// Model is one trained classifier plus the label tables produced in the same
// training pass. Labels are recomputed fresh on every retrain from the
// iteration order of the enrollment set, so they must never outlive the
// Model instance they came from; only name/age keyed by image id are durable
// (in the metadata store).
type Model struct {
	classifier Classifier
	names      map[int]string
	ages       map[int]string
	sampleIDs  []string
}

// SampleCount returns how many enrollment images contributed a training
// sample.
func (m *Model) SampleCount() int {
	if m == nil {
		return 0
	}
	return len(m.sampleIDs)
}

// Identify resolves a label against the model's tables. Missing entries fall
// back to the unknown identity.
func (m *Model) Identify(label int) (name, age string) {
	name, ok := m.names[label]
	if !ok {
		return UnknownIdentity, "?"
	}
	age, ok = m.ages[label]
	if !ok {
		age = "?"
	}
	return name, age
}

// Close releases the underlying classifier.
func (m *Model) Close() {
	if m != nil && m.classifier != nil {
		m.classifier.Close()
	}
}
