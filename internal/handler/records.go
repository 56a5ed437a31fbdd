package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studymaster/internal/model"
)

type noteResponse struct {
	Key     string              `json:"key"`
	Records []model.WrongRecord `json:"records"`
}

// limitParam reads the "limit" query parameter, falling back to the
// configured default.
func (h *Handler) limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.config.Limit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit %q", model.ErrInvalidCount, raw)
	}
	return n, nil
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	limit, err := h.limitParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.store.RecentResults(chi.URLParam(r, "subject"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleListNotes(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListNotes(chi.URLParam(r, "subject"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *Handler) handleReadNote(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	records, err := h.store.ReadNote(chi.URLParam(r, "subject"), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteResponse{Key: key, Records: records})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	limit, err := h.limitParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := h.store.Report(chi.URLParam(r, "subject"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
