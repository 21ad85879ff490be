package story

// Diagnostics are the counters recorded for one engagement/reflection
// iteration. Serializers of story logs consume them as-is.
type Diagnostics struct {
	Iteration         int `json:"iteration"`
	Committed         int `json:"committed"`
	MissingConditions int `json:"missing_conditions"`
	IrrelevantActions int `json:"irrelevant_actions"`
	IllogicalActions  int `json:"illogical_actions"`
	Impasses          int `json:"impasses"`
	Repaired          int `json:"repaired"`
}

// BeginIteration opens a new diagnostics record and returns its number.
func (s *Story) BeginIteration() int {
	s.Iteration++
	s.Iterations = append(s.Iterations, Diagnostics{Iteration: s.Iteration})
	return s.Iteration
}

// Current returns the record of the running iteration, opening the first
// one if needed.
func (s *Story) Current() *Diagnostics {
	if len(s.Iterations) == 0 {
		s.BeginIteration()
	}
	return &s.Iterations[len(s.Iterations)-1]
}

// Diagnostics returns a copy of every iteration record.
func (s *Story) Diagnostics() []Diagnostics {
	out := make([]Diagnostics, len(s.Iterations))
	copy(out, s.Iterations)
	return out
}

// Totals sums the counters of every iteration.
func (s *Story) Totals() Diagnostics {
	var t Diagnostics
	for _, d := range s.Iterations {
		t.Committed += d.Committed
		t.MissingConditions += d.MissingConditions
		t.IrrelevantActions += d.IrrelevantActions
		t.IllogicalActions += d.IllogicalActions
		t.Impasses += d.Impasses
		t.Repaired += d.Repaired
	}
	t.Iteration = s.Iteration
	return t
}
