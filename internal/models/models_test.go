package models

import (
	"encoding/json"
	"testing"
)

func TestScoreStateAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		state ScoreState
		want  float64
	}{
		{name: "nothing submitted", state: ScoreState{}, want: 0},
		{name: "all correct", state: ScoreState{Correct: 4, Total: 4}, want: 100},
		{name: "half", state: ScoreState{Correct: 1, Total: 2}, want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Accuracy(); got != tt.want {
				t.Errorf("Accuracy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreStateAdd(t *testing.T) {
	a := ScoreState{Correct: 2, Total: 3, Streak: 1}
	b := ScoreState{Correct: 1, Total: 4, Streak: 5}
	got := a.Add(b)
	want := ScoreState{Correct: 3, Total: 7, Streak: 5}
	if got != want {
		t.Errorf("Add() = %+v, want %+v", got, want)
	}
	if a.Add(ScoreState{}) != a {
		t.Error("adding an empty state should change nothing")
	}
}

func TestQuestionKindValid(t *testing.T) {
	for _, k := range []QuestionKind{KindMultipleChoice, KindFixIt, KindWordOrder} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if QuestionKind("essay").Valid() {
		t.Error("unknown kind reported valid")
	}
}

func TestQuestionTextToSpeak(t *testing.T) {
	q := Question{Prompt: "She ___ to work.", Expected: "She goes to work."}
	if got := q.TextToSpeak(); got == "" {
		t.Error("TextToSpeak() should fall back to question text")
	}
	q.SpeakText = "goes"
	if got := q.TextToSpeak(); got != "goes" {
		t.Errorf("TextToSpeak() = %q, want the explicit speak text", got)
	}
}

func TestSessionSnapshotWithDefaults(t *testing.T) {
	var snap SessionSnapshot
	if err := json.Unmarshal([]byte(`{"score":3,"sections":{"warmup":{"correct":1}}}`), &snap); err != nil {
		t.Fatal(err)
	}
	snap = snap.WithDefaults()
	if snap.Score != 3 {
		t.Errorf("Score = %d", snap.Score)
	}
	sec := snap.Sections["warmup"]
	if sec.Solved == nil || sec.Answers == nil {
		t.Error("section maps should be initialized")
	}
	if snap.HintsSeen == nil {
		t.Error("HintsSeen should be initialized")
	}

	empty := SessionSnapshot{}.WithDefaults()
	if empty.Sections == nil {
		t.Error("Sections should be initialized")
	}
}

func TestSnapshotKey(t *testing.T) {
	if got := SnapshotKey("present-simple", "abc"); got != "lesson:present-simple:abc" {
		t.Errorf("SnapshotKey() = %q", got)
	}
}
