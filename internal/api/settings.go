package api

import (
	"database/sql"
	"net/http"

	"github.com/akazakov/sklad/internal/store"
)

// SettingsHandler manages the vocabulary pick lists for categories,
// techniques, and custom field names.
type SettingsHandler struct {
	DB *sql.DB
}

var vocabularyKeys = map[string]string{
	"categories":    store.VocabularyCategories,
	"techniques":    store.VocabularyTechniques,
	"custom-fields": store.VocabularyCustomFields,
}

type vocabularyRequest struct {
	Entries []string `json:"entries"`
}

type vocabularyEntryRequest struct {
	Entry string `json:"entry"`
}

// Get handles GET /api/settings/vocabularies/{key}.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := vocabularyKeys[r.PathValue("key")]
	if !ok {
		jsonError(w, http.StatusNotFound, "unknown vocabulary")
		return
	}

	entries, err := store.GetVocabulary(r.Context(), h.DB, key)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get vocabulary")
		return
	}
	if entries == nil {
		entries = []string{}
	}
	jsonResponse(w, http.StatusOK, map[string][]string{"entries": entries})
}

// Set handles PUT /api/settings/vocabularies/{key}, replacing the list.
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	key, ok := vocabularyKeys[r.PathValue("key")]
	if !ok {
		jsonError(w, http.StatusNotFound, "unknown vocabulary")
		return
	}

	var req vocabularyRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := store.SetVocabulary(r.Context(), h.DB, key, req.Entries); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to store vocabulary")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "vocabulary updated"})
}

// AddEntry handles POST /api/settings/vocabularies/{key}/entries.
func (h *SettingsHandler) AddEntry(w http.ResponseWriter, r *http.Request) {
	key, ok := vocabularyKeys[r.PathValue("key")]
	if !ok {
		jsonError(w, http.StatusNotFound, "unknown vocabulary")
		return
	}

	var req vocabularyEntryRequest
	if err := decodeJSON(r, &req); err != nil || req.Entry == "" {
		jsonError(w, http.StatusBadRequest, "entry required")
		return
	}

	if err := store.AddVocabularyEntry(r.Context(), h.DB, key, req.Entry); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to add entry")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "entry added"})
}

// RemoveEntry handles DELETE /api/settings/vocabularies/{key}/entries/{entry}.
func (h *SettingsHandler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	key, ok := vocabularyKeys[r.PathValue("key")]
	if !ok {
		jsonError(w, http.StatusNotFound, "unknown vocabulary")
		return
	}

	if err := store.RemoveVocabularyEntry(r.Context(), h.DB, key, r.PathValue("entry")); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to remove entry")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "entry removed"})
}
