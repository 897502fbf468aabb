package api

import (
	"database/sql"
	"net/http"

	"github.com/google/uuid"

	"github.com/akazakov/sklad/internal/model"
	"github.com/akazakov/sklad/internal/store"
)

// ContainersHandler handles container CRUD. Containers are local to this
// instance and shared across owner scopes; they never sync.
type ContainersHandler struct {
	DB *sql.DB
}

type containerRequest struct {
	Name string `json:"name"`
}

// List handles GET /api/containers.
func (h *ContainersHandler) List(w http.ResponseWriter, r *http.Request) {
	containers, err := store.ListContainers(r.Context(), h.DB)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list containers")
		return
	}
	if containers == nil {
		containers = []model.Container{}
	}
	jsonResponse(w, http.StatusOK, containers)
}

// Create handles POST /api/containers.
func (h *ContainersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req containerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	c := &model.Container{ID: uuid.NewString(), Name: req.Name}
	if err := store.CreateContainer(r.Context(), h.DB, c); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to create container")
		return
	}

	created, err := store.GetContainer(r.Context(), h.DB, c.ID)
	if err != nil || created == nil {
		jsonError(w, http.StatusInternalServerError, "failed to reload container")
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/containers/{id}, returning the container and its
// contents.
func (h *ContainersHandler) Get(w http.ResponseWriter, r *http.Request) {
	container, err := store.GetContainer(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get container")
		return
	}
	if container == nil {
		jsonError(w, http.StatusNotFound, "container not found")
		return
	}

	contents, err := store.ListProducts(r.Context(), h.DB, store.ProductFilter{
		OwnerID:     ownerScope(r.Context()),
		ContainerID: container.ID,
	})
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list container contents")
		return
	}
	if contents == nil {
		contents = []model.Product{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"container": container,
		"products":  contents,
	})
}

// Rename handles PUT /api/containers/{id}.
func (h *ContainersHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req containerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	id := r.PathValue("id")
	container, err := store.GetContainer(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to get container")
		return
	}
	if container == nil {
		jsonError(w, http.StatusNotFound, "container not found")
		return
	}

	if err := store.RenameContainer(r.Context(), h.DB, id, req.Name); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to rename container")
		return
	}

	renamed, _ := store.GetContainer(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, renamed)
}

// Delete handles DELETE /api/containers/{id}. Products inside keep existing
// with their container reference cleared.
func (h *ContainersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := store.DeleteContainer(r.Context(), h.DB, r.PathValue("id")); err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to delete container")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "container deleted"})
}
