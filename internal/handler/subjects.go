package handler

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studymaster/internal/i18n"
)

const maxArchiveSize = 64 << 20

type subjectRequest struct {
	Name string `json:"name"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListSubjects()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.store.CreateSubject(req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{
		Message: i18n.Td(r.Context(), "SubjectCreated", map[string]any{"Name": req.Name}),
	})
}

func (h *Handler) handleDeleteSubject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "subject")
	if err := h.store.DeleteSubject(name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResetSubject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "subject")
	if err := h.store.ResetRecords(name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Message: i18n.Td(r.Context(), "SubjectReset", map[string]any{"Name": name}),
	})
}

func (h *Handler) handleExportSubject(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "subject")
	var buf bytes.Buffer
	if err := h.store.ExportSubject(name, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".zip"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("write archive", "subject", name, "error", err)
	}
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArchiveSize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error(), Code: "too_large"})
		return
	}
	names, err := h.store.ImportArchive(data)
	if err != nil {
		if len(names) > 0 {
			slog.Warn("import stopped partway", "installed", names, "error", err)
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}
