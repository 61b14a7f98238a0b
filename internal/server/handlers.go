package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"filesearch/internal/domain"
	"filesearch/internal/service"
)

type Handlers struct {
	backend      Backend
	defaultLimit int
	log          *slog.Logger
}

func NewHandlers(backend Backend, defaultLimit int, log *slog.Logger) *Handlers {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{backend: backend, defaultLimit: defaultLimit, log: log}
}

func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter 'q'"})
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}

	results := h.backend.Search(r.Context(), query, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}

type indexRequest struct {
	Directories []string `json:"directories"`
	Categories  []string `json:"categories"`
}

func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Directories) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no directories given"})
		return
	}

	var exts []string
	if len(req.Categories) > 0 {
		cats := make([]domain.Category, 0, len(req.Categories))
		for _, c := range req.Categories {
			cat, err := domain.ParseCategory(c)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			cats = append(cats, cat)
		}
		exts = h.backend.Classifier().Extensions(cats...)
	}

	report, err := h.backend.Index(r.Context(), req.Directories, exts)
	if err != nil {
		h.log.Error("Index request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "indexing interrupted", "report": report})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter 'path'"})
		return
	}
	n, err := h.backend.Remove(r.Context(), service.ResolvePrefix(path))
	if err != nil {
		h.log.Error("Remove failed", "path", path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "remove failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.backend.Status(r.Context())
	if err != nil {
		h.log.Error("Status failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "status unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) HandleDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := h.backend.Directories(r.Context())
	if err != nil {
		h.log.Error("Listing directories failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"directories": dirs})
}

func (h *Handlers) HandleFiles(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("dir")
	if dir == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing query parameter 'dir'"})
		return
	}
	files, err := h.backend.Files(r.Context(), dir)
	if err != nil {
		h.log.Error("Listing files failed", "dir", dir, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
