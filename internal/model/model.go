package model

import (
	"math"
	"strings"
	"time"
)

// DateLayout is the timestamp layout used for stats entries.
const DateLayout = "2006-01-02 15:04"

// Sentinel user answers recorded in place of real input.
const (
	// NoAnswer marks a question submitted with an empty answer.
	NoAnswer = "(no answer)"
	// StoppedEarly marks a question left unanswered when the session was stopped.
	StoppedEarly = "(stopped early)"
)

// Question is one question/answer pair of a subject's bank.
type Question struct {
	Text   string `json:"question" validate:"required"`
	Answer string `json:"answer" validate:"required"`
}

// Matches reports whether the given answer matches the expected one.
// Both sides are trimmed; the comparison is case-sensitive.
func (q Question) Matches(answer string) bool {
	return strings.TrimSpace(answer) == strings.TrimSpace(q.Answer)
}

// SessionResult is the scored outcome of one finished exam session.
type SessionResult struct {
	Date    string  `json:"date" validate:"required"`
	Score   int     `json:"score" validate:"gte=0,ltefield=Total"`
	Total   int     `json:"total" validate:"gt=0"`
	Percent float64 `json:"percent" validate:"gte=0,lte=100"`
}

// NewSessionResult builds a result stamped with the given time.
func NewSessionResult(at time.Time, score, total int) SessionResult {
	return SessionResult{
		Date:    at.Format(DateLayout),
		Score:   score,
		Total:   total,
		Percent: Percent(score, total),
	}
}

// Percent returns 100*score/total rounded half-up to one decimal place.
func Percent(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Floor(float64(score)*1000/float64(total)+0.5) / 10
}

// WrongRecord captures one mismatched answer within a session.
type WrongRecord struct {
	Question      string `json:"question"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
}

// WrongNote is everything persisted for a session that had wrong answers.
type WrongNote struct {
	SessionID string
	Taken     time.Time
	Result    SessionResult
	Records   []WrongRecord
}

// NoteLabels holds the (localized) text used when rendering a note file.
type NoteLabels struct {
	Date          string
	Result        string
	Question      string
	UserAnswer    string
	CorrectAnswer string
	NoAnswer      string
	StoppedEarly  string
}

// DefaultNoteLabels returns English labels.
func DefaultNoteLabels() NoteLabels {
	return NoteLabels{
		Date:          "Exam date",
		Result:        "Result",
		Question:      "Question",
		UserAnswer:    "Your answer",
		CorrectAnswer: "Correct answer",
		NoAnswer:      NoAnswer,
		StoppedEarly:  StoppedEarly,
	}
}

// SubjectContext is the explicit subject state handed to an exam session.
type SubjectContext struct {
	Name string
	Bank []Question
}

// ExamConfig holds runtime exam parameters set via CLI flags or config.
type ExamConfig struct {
	Count int           // default number of questions per exam
	Pace  time.Duration // delay before the next question in interactive mode
	Limit int           // number of stats entries shown by default
}
