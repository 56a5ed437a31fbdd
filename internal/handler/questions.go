package handler

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studymaster/internal/i18n"
	"github.com/pavelanni/studymaster/internal/model"
)

const maxUploadSize = 10 << 20

type addQuestionRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type removeQuestionsRequest struct {
	Indices []int `json:"indices"`
}

type uploadResponse struct {
	Imported int    `json:"imported"`
	Message  string `json:"message"`
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	bank, err := h.store.LoadBank(chi.URLParam(r, "subject"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	var req addQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	added, err := h.store.AddQuestion(subject, req.Question, req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !added {
		writeJSON(w, http.StatusOK, messageResponse{Message: i18n.T(r.Context(), "QuestionSkipped")})
		return
	}
	writeJSON(w, http.StatusCreated, model.Question{
		Text:   strings.TrimSpace(req.Question),
		Answer: strings.TrimSpace(req.Answer),
	})
}

func (h *Handler) handleRemoveQuestions(w http.ResponseWriter, r *http.Request) {
	var req removeQuestionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	remaining, err := h.store.RemoveQuestions(chi.URLParam(r, "subject"), req.Indices)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remaining)
}

// handleUploadQuestions accepts a JSON array of questions, either as the raw
// body or as the "questions_file" field of a multipart form.
func (h *Handler) handleUploadQuestions(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")

	var body io.Reader = http.MaxBytesReader(w, r.Body, maxUploadSize)
	filename := ""
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file too large", Code: "bad_request"})
			return
		}
		file, header, err := r.FormFile("questions_file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no file uploaded", Code: "bad_request"})
			return
		}
		defer file.Close()
		body = file
		filename = header.Filename
	}

	n, err := h.store.ImportQuestions(subject, body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("uploaded questions", "subject", subject, "filename", filename, "count", n)
	writeJSON(w, http.StatusOK, uploadResponse{
		Imported: n,
		Message:  i18n.Tp(r.Context(), "QuestionsImported", n),
	})
}
