package model

import "time"

// SubjectReport is the top-level JSON structure for a subject's history export.
type SubjectReport struct {
	Subject       string          `json:"subject"`
	ExportedAt    time.Time       `json:"exported_at"`
	QuestionCount int             `json:"question_count"`
	Results       []SessionResult `json:"results"`
	Notes         []NoteReport    `json:"notes"`
}

// NoteReport holds one wrong-note artifact for export.
type NoteReport struct {
	Key     string        `json:"key"`
	Records []WrongRecord `json:"records"`
}
