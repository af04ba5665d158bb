package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/solodex/internal/adapters/repository"
	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/pkg/logger"
)

// EntityHandler serves the generic CRUD routes for every entity kind.
type EntityHandler struct {
	svc EntityService
	log logger.Logger
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(svc EntityService) *EntityHandler {
	return &EntityHandler{svc: svc, log: logger.NamedOrNop("entities")}
}

// HandleList handles GET /entities/{kind}.
func (h *EntityHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.List(r.Context(), chi.URLParam(r, "kind"), r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if recs == nil {
		recs = []entity.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// HandleGet handles GET /entities/{kind}/{id}.
func (h *EntityHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleCreate handles POST /entities/{kind}.
func (h *EntityHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if _, err := entity.ParseKind(kind); err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.svc.Create(r.Context(), kind, body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// HandleUpdate handles PUT /entities/{kind}/{id}.
func (h *EntityHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.merge(w, r, h.svc.Update)
}

// HandlePatch handles PATCH /entities/{kind}/{id}.
func (h *EntityHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	h.merge(w, r, h.svc.Patch)
}

type mergeFunc func(ctx context.Context, kind, id string, body entity.Record) (entity.Record, error)

func (h *EntityHandler) merge(w http.ResponseWriter, r *http.Request, fn mergeFunc) {
	kind := chi.URLParam(r, "kind")
	if _, err := entity.ParseKind(kind); err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := fn(r.Context(), kind, chi.URLParam(r, "id"), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleDelete handles DELETE /entities/{kind}/{id}.
func (h *EntityHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "kind"), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps service errors onto status codes.
func (h *EntityHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrUnknownKind):
		writeError(w, http.StatusNotFound, msgUnknownEntity)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, msgItemNotFound)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, msgBadBody)
	case errors.Is(err, repository.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.log.Error(r.Context(), "entity request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}
