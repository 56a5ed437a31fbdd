package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studymaster/internal/exam"
	"github.com/pavelanni/studymaster/internal/model"
	"github.com/pavelanni/studymaster/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	config model.ExamConfig

	mu       sync.Mutex
	sessions map[string]*examEntry
	now      func() time.Time
}

// completedTTL is how long a finished session stays readable.
const completedTTL = 30 * time.Minute

type examEntry struct {
	sess *exam.Session
	done time.Time // zero while in progress
}

// New creates a new Handler.
func New(s *store.Store, cfg model.ExamConfig) (*Handler, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if cfg.Count < 1 {
		cfg.Count = 10
	}
	return &Handler{
		store:    s,
		config:   cfg,
		sessions: make(map[string]*examEntry),
		now:      time.Now,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/subjects", h.handleListSubjects)
	r.Post("/subjects", h.handleCreateSubject)
	r.Post("/import", h.handleImport)

	r.Route("/subjects/{subject}", func(r chi.Router) {
		r.Delete("/", h.handleDeleteSubject)
		r.Post("/reset", h.handleResetSubject)
		r.Get("/export", h.handleExportSubject)

		r.Get("/questions", h.handleListQuestions)
		r.Post("/questions", h.handleAddQuestion)
		r.Delete("/questions", h.handleRemoveQuestions)
		r.Post("/questions/upload", h.handleUploadQuestions)

		r.Post("/exams", h.handleStartExam)

		r.Get("/stats", h.handleStats)
		r.Get("/notes", h.handleListNotes)
		r.Get("/notes/{key}", h.handleReadNote)
		r.Get("/report", h.handleReport)
	})

	r.Get("/exams/{id}", h.handleGetExam)
	r.Post("/exams/{id}/answer", h.handleAnswer)
	r.Post("/exams/{id}/stop", h.handleStop)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorStatus maps domain errors to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	var se *model.StorageError
	switch {
	case errors.Is(err, model.ErrInvalidName):
		return http.StatusBadRequest, "invalid_name"
	case errors.Is(err, model.ErrInvalidCount):
		return http.StatusBadRequest, "invalid_count"
	case errors.Is(err, model.ErrEmptyBank):
		return http.StatusBadRequest, "empty_bank"
	case errors.Is(err, model.ErrSubjectNotFound):
		return http.StatusNotFound, "subject_not_found"
	case errors.Is(err, model.ErrNoteNotFound):
		return http.StatusNotFound, "note_not_found"
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, model.ErrDuplicateSubject):
		return http.StatusConflict, "duplicate_subject"
	case errors.Is(err, model.ErrArtifactExists):
		return http.StatusConflict, "artifact_exists"
	case errors.Is(err, model.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, model.ErrCorruptData):
		return http.StatusUnprocessableEntity, "corrupt_data"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.As(err, &se):
		return http.StatusInternalServerError, "storage"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

var (
	errSessionNotFound = errors.New("exam session not found")
	errBadRequest      = errors.New("bad request")
)

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}
