package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/pantry/internal/groceryapi"
	"github.com/dukerupert/pantry/internal/inventory"
	"github.com/dukerupert/pantry/internal/middleware"
	"github.com/dukerupert/pantry/internal/model"
)

// InventoryStore is the part of *inventory.Store the grocery handler drives.
type InventoryStore interface {
	State() inventory.State
	FetchGroceries(ctx context.Context) error
	CreateGrocery(ctx context.Context, req model.GroceryCreateRequest) error
	GetGroceryDetail(ctx context.Context, id string) error
	UpdateGrocery(ctx context.Context, id string, req model.GroceryUpdateRequest) error
}

// GroceryHandler turns view intents into store actions and answers with the
// resulting state.
type GroceryHandler struct {
	store  InventoryStore
	logger *slog.Logger
}

func NewGroceryHandler(s InventoryStore, logger *slog.Logger) *GroceryHandler {
	return &GroceryHandler{store: s, logger: logger}
}

type errorResponse struct {
	Error string           `json:"error"`
	State *inventory.State `json:"state,omitempty"`
}

func (h *GroceryHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.State())
}

func (h *GroceryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.FetchGroceries(intent(r)); err != nil {
		h.failed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.State())
}

// Create submits a new item and then reloads the list, the way the add page
// returns to the list view.
func (h *GroceryHandler) Create(w http.ResponseWriter, r *http.Request) {
	req := model.NewCreateRequest()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := h.store.CreateGrocery(intent(r), req); err != nil {
		h.failed(w, err)
		return
	}
	if err := h.store.FetchGroceries(intent(r)); err != nil {
		h.logger.Warn("refresh after create", "error", err)
	}
	writeJSON(w, http.StatusCreated, h.store.State())
}

func (h *GroceryHandler) Detail(w http.ResponseWriter, r *http.Request) {
	err := h.store.GetGroceryDetail(intent(r), r.PathValue("id"))
	switch {
	case errors.Is(err, inventory.ErrSuperseded):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "A newer item was requested."})
	case err != nil:
		h.failed(w, err)
	default:
		writeJSON(w, http.StatusOK, h.store.State())
	}
}

func (h *GroceryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req model.GroceryUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return
	}
	if req.ID == "" {
		req.ID = id
	}
	if req.ID != id {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id in body does not match path"})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := h.store.UpdateGrocery(intent(r), id, req); err != nil {
		h.failed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.State())
}

// failed reports a backend failure as 502 with the user-facing message and
// the state the view should render.
func (h *GroceryHandler) failed(w http.ResponseWriter, err error) {
	st := h.store.State()
	writeJSON(w, http.StatusBadGateway, errorResponse{Error: inventory.UserMessage(err), State: &st})
}

// intent tags the request context so backend calls reuse the request's id.
func intent(r *http.Request) context.Context {
	return groceryapi.WithRequestID(r.Context(), middleware.RequestIDFrom(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
