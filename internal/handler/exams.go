package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studymaster/internal/exam"
	"github.com/pavelanni/studymaster/internal/i18n"
	"github.com/pavelanni/studymaster/internal/model"
)

type startExamRequest struct {
	Count int `json:"count"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

// examView is the client-facing state of a session. The expected answer of
// the current question is never exposed.
type examView struct {
	ID       string               `json:"id"`
	Subject  string               `json:"subject"`
	State    exam.State           `json:"state"`
	Index    int                  `json:"index"`
	Total    int                  `json:"total"`
	Score    int                  `json:"score"`
	Question string               `json:"question,omitempty"`
	Result   *model.SessionResult `json:"result,omitempty"`
	Wrong    []model.WrongRecord  `json:"wrong,omitempty"`
	NoteKey  string               `json:"note_key,omitempty"`
}

type answerResponse struct {
	exam.AnswerOutcome
	Message string   `json:"message"`
	Exam    examView `json:"exam"`
}

func viewOf(s *exam.Session) examView {
	v := examView{
		ID:      s.ID(),
		Subject: s.Subject(),
		State:   s.State(),
		Index:   s.Index(),
		Total:   s.Total(),
		Score:   s.Score(),
		NoteKey: s.NoteKey(),
	}
	if q, ok := s.Current(); ok {
		v.Question = q.Text
	}
	if res, ok := s.Result(); ok {
		v.Result = &res
		v.Wrong = s.WrongRecords()
	}
	return v
}

func (h *Handler) handleStartExam(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	req := startExamRequest{Count: h.config.Count}
	// An empty body, chunked or not, keeps the defaults.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, err)
		return
	}

	bank, err := h.store.LoadBank(subject)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := exam.New(model.SubjectContext{Name: subject, Bank: bank}, req.Count, h.store)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.mu.Lock()
	h.pruneLocked()
	h.sessions[sess.ID()] = &examEntry{sess: sess}
	view := viewOf(sess)
	h.mu.Unlock()

	w.Header().Set("Location", "/exams/"+sess.ID())
	writeJSON(w, http.StatusCreated, view)
}

// withSession runs fn on the session named in the URL while holding the
// session table lock. Completion time is stamped on the way out.
func (h *Handler) withSession(r *http.Request, fn func(*exam.Session) error) error {
	id := chi.URLParam(r, "id")
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pruneLocked()
	e, ok := h.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	err := fn(e.sess)
	if e.done.IsZero() && e.sess.State() == exam.StateCompleted {
		e.done = h.now()
	}
	return err
}

// pruneLocked drops sessions completed more than completedTTL ago.
// The caller holds h.mu.
func (h *Handler) pruneLocked() {
	now := h.now()
	for id, e := range h.sessions {
		if !e.done.IsZero() && now.Sub(e.done) > completedTTL {
			delete(h.sessions, id)
		}
	}
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	var view examView
	err := h.withSession(r, func(s *exam.Session) error {
		view = viewOf(s)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var resp answerResponse
	err := h.withSession(r, func(s *exam.Session) error {
		out, err := s.Submit(req.Answer)
		if err != nil {
			return err
		}
		resp.AnswerOutcome = out
		resp.Exam = viewOf(s)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if resp.Correct {
		resp.Message = i18n.T(r.Context(), "Correct")
	} else {
		resp.Message = i18n.Td(r.Context(), "Wrong", map[string]any{"Answer": resp.CorrectAnswer})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	var view examView
	err := h.withSession(r, func(s *exam.Session) error {
		if err := s.StopEarly(); err != nil {
			return err
		}
		view = viewOf(s)
		return nil
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
