package exam

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/studymaster/internal/model"
)

// State is the lifecycle state of a session.
type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Recorder persists the outcome of a finished session.
type Recorder interface {
	AppendResult(subject string, r model.SessionResult) error
	WriteNote(subject string, note model.WrongNote) (string, error)
}

// AnswerOutcome is the feedback for one submitted answer.
type AnswerOutcome struct {
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
}

// Session drives one run through a random sample of a subject's bank.
type Session struct {
	id        string
	subject   string
	questions []model.Question
	index     int
	score     int
	wrong     []model.WrongRecord
	state     State
	result    *model.SessionResult
	noteKey   string
	finalized bool

	rec   Recorder
	rng   *rand.Rand
	clock func() time.Time
}

// Option customizes a new session.
type Option func(*Session)

// WithRand sets the random source used for sampling.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// WithClock sets the time source used to stamp results.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

// New samples min(count, len(bank)) distinct positions of the bank in random
// order and starts a session over them.
func New(sc model.SubjectContext, count int, rec Recorder, opts ...Option) (*Session, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: got %d", model.ErrInvalidCount, count)
	}
	if len(sc.Bank) == 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrEmptyBank, sc.Name)
	}

	s := &Session{
		id:      uuid.NewString(),
		subject: sc.Name,
		state:   StateInProgress,
		rec:     rec,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	n := min(count, len(sc.Bank))
	var perm []int
	if s.rng != nil {
		perm = s.rng.Perm(len(sc.Bank))
	} else {
		perm = rand.Perm(len(sc.Bank))
	}
	s.questions = make([]model.Question, n)
	for i := range n {
		s.questions[i] = sc.Bank[perm[i]]
	}

	slog.Debug("exam session started", "id", s.id, "subject", s.subject, "questions", n)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Subject returns the subject the session was drawn from.
func (s *Session) Subject() string { return s.subject }

// State returns the lifecycle state.
func (s *Session) State() State { return s.state }

// Index returns the position of the current question.
func (s *Session) Index() int { return s.index }

// Total returns the number of sampled questions.
func (s *Session) Total() int { return len(s.questions) }

// Score returns the number of correct answers so far.
func (s *Session) Score() int { return s.score }

// Questions returns a copy of the sampled questions in session order.
func (s *Session) Questions() []model.Question {
	out := make([]model.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// WrongRecords returns a copy of the wrong answers recorded so far.
func (s *Session) WrongRecords() []model.WrongRecord {
	out := make([]model.WrongRecord, len(s.wrong))
	copy(out, s.wrong)
	return out
}

// Current returns the question awaiting an answer.
func (s *Session) Current() (model.Question, bool) {
	if s.state != StateInProgress || s.index >= len(s.questions) {
		return model.Question{}, false
	}
	return s.questions[s.index], true
}

// Result returns the final result once the session is completed.
func (s *Session) Result() (model.SessionResult, bool) {
	if s.result == nil {
		return model.SessionResult{}, false
	}
	return *s.result, true
}

// NoteKey returns the key of the wrong note written on completion, if any.
func (s *Session) NoteKey() string { return s.noteKey }

// Submit scores an answer for the current question and advances.
func (s *Session) Submit(answer string) (AnswerOutcome, error) {
	if s.state != StateInProgress {
		return AnswerOutcome{}, model.ErrInvalidState
	}
	q := s.questions[s.index]
	out := AnswerOutcome{CorrectAnswer: strings.TrimSpace(q.Answer)}
	if q.Matches(answer) {
		out.Correct = true
		s.score++
	} else {
		given := strings.TrimSpace(answer)
		if given == "" {
			given = model.NoAnswer
		}
		s.wrong = append(s.wrong, model.WrongRecord{
			Question:      q.Text,
			UserAnswer:    given,
			CorrectAnswer: out.CorrectAnswer,
		})
	}
	s.index++

	if s.index == len(s.questions) {
		s.state = StateCompleted
		return out, s.finalize()
	}
	return out, nil
}

// StopEarly ends the session, marking every remaining question wrong unless
// a question with the same text is already recorded.
func (s *Session) StopEarly() error {
	if s.state != StateInProgress {
		return model.ErrInvalidState
	}
	recorded := make(map[string]bool, len(s.wrong))
	for _, w := range s.wrong {
		recorded[w.Question] = true
	}
	for _, q := range s.questions[s.index:] {
		if recorded[q.Text] {
			continue
		}
		recorded[q.Text] = true
		s.wrong = append(s.wrong, model.WrongRecord{
			Question:      q.Text,
			UserAnswer:    model.StoppedEarly,
			CorrectAnswer: strings.TrimSpace(q.Answer),
		})
	}
	slog.Debug("exam session stopped early", "id", s.id, "at", s.index, "total", len(s.questions))
	s.index = len(s.questions)
	s.state = StateCompleted
	return s.finalize()
}

// finalize computes the result and hands it to the recorder. It runs once;
// a persistence failure is reported but never retried.
func (s *Session) finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true

	now := s.clock()
	result := model.NewSessionResult(now, s.score, len(s.questions))
	s.result = &result

	if s.rec == nil {
		return nil
	}
	if err := s.rec.AppendResult(s.subject, result); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	if len(s.wrong) > 0 {
		key, err := s.rec.WriteNote(s.subject, model.WrongNote{
			SessionID: s.id,
			Taken:     now,
			Result:    result,
			Records:   s.WrongRecords(),
		})
		if err != nil {
			return fmt.Errorf("write wrong note: %w", err)
		}
		s.noteKey = key
	}
	slog.Info("exam session completed",
		"id", s.id,
		"subject", s.subject,
		"score", result.Score,
		"total", result.Total,
		"percent", result.Percent,
		"wrong", len(s.wrong),
	)
	return nil
}
