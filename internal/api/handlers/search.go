package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skillbase-io/skillbase/internal/apperrors"
	"github.com/skillbase-io/skillbase/internal/rag"
)

type SearchHandler struct {
	retriever *rag.Retriever
}

func NewSearchHandler(retriever *rag.Retriever) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.Validation("invalid request body"))
		return
	}

	results, err := h.retriever.Retrieve(r.Context(), chi.URLParam(r, "skillID"), req.Query, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}
