package quiz

import "englishdrills/internal/models"

// Tracker counts attempts for one section.
// Record keeps 0 <= Correct <= Total at all times.
type Tracker struct {
	state models.ScoreState
}

// Record applies one scored attempt and returns the new state
func (t *Tracker) Record(correct bool) models.ScoreState {
	t.state.Total++
	if correct {
		t.state.Correct++
		t.state.Streak++
	} else {
		t.state.Streak = 0
	}
	return t.state
}

// Reset returns the tracker to {0, 0, 0}
func (t *Tracker) Reset() {
	t.state = models.ScoreState{}
}

// State returns the current tally
func (t *Tracker) State() models.ScoreState {
	return t.state
}

// restore loads a persisted tally, clamping values that would break the invariant
func (t *Tracker) restore(s models.ScoreState) {
	if s.Total < 0 {
		s.Total = 0
	}
	if s.Correct < 0 {
		s.Correct = 0
	}
	if s.Correct > s.Total {
		s.Correct = s.Total
	}
	if s.Streak < 0 || s.Streak > s.Correct {
		s.Streak = 0
	}
	t.state = s
}

// Overall aggregates named section trackers. State sums the children
// each time it is called rather than being pushed updates.
type Overall struct {
	order    []string
	trackers map[string]*Tracker
}

func NewOverall() *Overall {
	return &Overall{trackers: make(map[string]*Tracker)}
}

// Add registers a section tracker under name, replacing any previous one
func (o *Overall) Add(name string, t *Tracker) {
	if _, ok := o.trackers[name]; !ok {
		o.order = append(o.order, name)
	}
	o.trackers[name] = t
}

// Section returns the tracker registered under name
func (o *Overall) Section(name string) (*Tracker, bool) {
	t, ok := o.trackers[name]
	return t, ok
}

// Names returns section names in registration order
func (o *Overall) Names() []string {
	return o.order
}

// State sums every section's tally
func (o *Overall) State() models.ScoreState {
	var total models.ScoreState
	for _, name := range o.order {
		total = total.Add(o.trackers[name].State())
	}
	return total
}
