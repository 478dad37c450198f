package models

// ScoreState is a running tally of submissions
type ScoreState struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
	Streak  int `json:"streak"`
}

// Accuracy returns the percentage of correct submissions, 0 when nothing was submitted
func (s ScoreState) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total) * 100
}

// Add sums two states. Streaks are not additive, so the larger one is kept.
func (s ScoreState) Add(o ScoreState) ScoreState {
	out := ScoreState{Correct: s.Correct + o.Correct, Total: s.Total + o.Total, Streak: s.Streak}
	if o.Streak > out.Streak {
		out.Streak = o.Streak
	}
	return out
}
