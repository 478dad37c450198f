package models

import "time"

// SessionSnapshot is the persisted subset of a learner's lesson state.
// There is no version field: unknown fields are ignored and missing ones
// load as zero values.
type SessionSnapshot struct {
	Score     int                        `json:"score"`
	Total     int                        `json:"total"`
	Streak    int                        `json:"streak"`
	Sections  map[string]SectionSnapshot `json:"sections"`
	Hint      string                     `json:"hint"`
	HintsSeen []string                   `json:"hints_seen"`
	Accent    string                     `json:"accent"`
}

// SectionSnapshot is the persisted state of one section
type SectionSnapshot struct {
	Correct int                     `json:"correct"`
	Total   int                     `json:"total"`
	Streak  int                     `json:"streak"`
	Solved  map[string]bool         `json:"solved"`
	Answers map[string]AnswerRecord `json:"answers,omitempty"`
}

// WithDefaults fills nil maps and slices so callers never need nil checks
func (s SessionSnapshot) WithDefaults() SessionSnapshot {
	if s.Sections == nil {
		s.Sections = make(map[string]SectionSnapshot)
	}
	for id, sec := range s.Sections {
		if sec.Solved == nil {
			sec.Solved = make(map[string]bool)
		}
		if sec.Answers == nil {
			sec.Answers = make(map[string]AnswerRecord)
		}
		s.Sections[id] = sec
	}
	if s.HintsSeen == nil {
		s.HintsSeen = []string{}
	}
	return s
}

// StoredSnapshot is a raw snapshot row as kept by a snapshot store
type StoredSnapshot struct {
	LearnerID string
	LessonID  string
	Data      []byte
	UpdatedAt time.Time
}

// SnapshotKey is the storage key of a learner's snapshot for a lesson
func SnapshotKey(lessonID, learnerID string) string {
	return "lesson:" + lessonID + ":" + learnerID
}
