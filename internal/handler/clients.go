package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"abc-inventory-monitor/internal/model"
	"abc-inventory-monitor/internal/repository"
	"abc-inventory-monitor/pkg/apierror"
	"abc-inventory-monitor/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ClientHandler serves client administration endpoints.
type ClientHandler struct {
	store repository.ClientStore
}

// NewClientHandler creates a client handler over the given store.
func NewClientHandler(store repository.ClientStore) *ClientHandler {
	return &ClientHandler{store: store}
}

// List handles GET /api/v1/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ClientIDs(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	clients := make([]*model.Client, 0, len(ids))
	for _, id := range ids {
		client, err := h.store.GetClient(r.Context(), id)
		if err != nil {
			continue
		}
		clients = append(clients, client)
	}
	response.OK(w, clients)
}

// Get handles GET /api/v1/clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	client, err := h.store.GetClient(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		response.Error(w, apierror.NotFound("client not found"))
		return
	}
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, client)
}

// CreateClientRequest is the body for POST /api/v1/clients.
type CreateClientRequest struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	PhoneNumbers []string `json:"phone_numbers"`
}

// Create handles POST /api/v1/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	if req.ID == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	for i, n := range req.PhoneNumbers {
		req.PhoneNumbers[i] = model.ScrubPhoneNumber(n)
	}

	if err := h.store.AddClient(r.Context(), req.ID, req.Email, req.PhoneNumbers); err != nil {
		response.Error(w, err)
		return
	}

	client, err := h.store.GetClient(r.Context(), req.ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, client)
}

// Delete handles DELETE /api/v1/clients/{id}
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteClient(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("client not found"))
			return
		}
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// TrackRequest is the body for POST /api/v1/clients/{id}/track.
type TrackRequest struct {
	Code     string `json:"code"`
	Tracking bool   `json:"tracking"`
}

// Track handles POST /api/v1/clients/{id}/track
func (h *ClientHandler) Track(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	if req.Code == "" {
		response.Error(w, apierror.BadRequest("code is required"))
		return
	}

	if _, err := h.store.GetClient(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error(w, apierror.NotFound("client not found"))
			return
		}
		response.Error(w, err)
		return
	}

	if err := h.store.AddTrackAssociation(r.Context(), id, req.Code, req.Tracking); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"client_id": id,
		"code":      req.Code,
		"tracking":  req.Tracking,
	})
}
