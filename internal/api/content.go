// internal/api/content.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"changelog-relay/internal/model"
	"changelog-relay/internal/store"
)

// listContent handles the request to list generated content.
// GET /v1/content?repository=owner/repo&limit=N&offset=N
func (h *Handler) listContent(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseBoundedInt(r.URL.Query().Get("limit"), 10, 100)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
		return
	}
	offset, ok := parseBoundedInt(r.URL.Query().Get("offset"), 0, 1<<30)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid 'offset' parameter.")
		return
	}

	content, err := h.contents.List(r.Context(), store.ContentFilter{
		Repository: r.URL.Query().Get("repository"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.logger.Error("Failed to list content", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"content": content})
}

// contentStats handles the aggregate statistics request.
// GET /v1/content/stats
func (h *Handler) contentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.contents.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to get content stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// recentContentByRepository returns the most recent records for a repository.
// GET /v1/content/repository/{owner}/{name}?limit=N
func (h *Handler) recentContentByRepository(w http.ResponseWriter, r *http.Request) {
	repository := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")

	limit, ok := parseBoundedInt(r.URL.Query().Get("limit"), 5, 100)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
		return
	}

	content, err := h.contents.GetRecentByRepository(r.Context(), repository, limit)
	if err != nil {
		h.logger.Error("Failed to get recent content", "repository", repository, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"content": content})
}

// getContent returns a single record by id.
// GET /v1/content/{id}
func (h *Handler) getContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	content, err := h.contents.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Content not found")
			return
		}
		h.logger.Error("Failed to get content", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"content": content})
}

// updateContent applies an operator edit to a record.
// PUT /v1/content/{id}
func (h *Handler) updateContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body model.GeneratedContent
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	body.ID = id

	updated, err := h.contents.Update(r.Context(), &body)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Content not found")
			return
		}
		h.logger.Error("Failed to update content", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"message": "Content updated successfully",
		"content": updated,
	})
}

// deleteContent removes a record.
// DELETE /v1/content/{id}
func (h *Handler) deleteContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.contents.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Content not found")
			return
		}
		h.logger.Error("Failed to delete content", "id", id, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Content deleted successfully"})
}

// parseBoundedInt parses an optional positive integer query parameter,
// returning def when the parameter is absent.
func parseBoundedInt(raw string, def, max int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > max {
		return 0, false
	}
	return n, true
}
