package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"englishqa/internal/models"
	"englishqa/internal/storage"
	"englishqa/internal/utils"
)

// AdminAPIKeysHandler handles provider key management endpoints
type AdminAPIKeysHandler struct {
	keys *storage.APIKeyRepository
}

// NewAdminAPIKeysHandler creates a new admin provider keys handler
func NewAdminAPIKeysHandler(keys *storage.APIKeyRepository) *AdminAPIKeysHandler {
	return &AdminAPIKeysHandler{keys: keys}
}

// CreateAPIKeyRequest represents the request to register a provider key.
// The secret is accepted here and never returned afterwards.
type CreateAPIKeyRequest struct {
	KeyName  string  `json:"key_name"`
	Secret   string  `json:"secret"`
	Provider string  `json:"provider"`
	Balance  float64 `json:"balance"`
	Priority int     `json:"priority"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UpdateAPIKeyRequest represents a partial provider key update
type UpdateAPIKeyRequest struct {
	KeyName  *string  `json:"key_name,omitempty"`
	Secret   *string  `json:"secret,omitempty"`
	Provider *string  `json:"provider,omitempty"`
	Balance  *float64 `json:"balance,omitempty"`
	Priority *int     `json:"priority,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
}

// Collection handles /admin/api-keys (list and create)
func (h *AdminAPIKeysHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Item handles /admin/api-keys/{id} (get, update, delete)
func (h *AdminAPIKeysHandler) Item(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/admin/api-keys/")
	if idStr == "" || idStr == r.URL.Path {
		utils.RespondWithError(w, http.StatusBadRequest, "API key ID is required")
		return
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid API key ID format")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *AdminAPIKeysHandler) list(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.List(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}

	responses := make([]models.APIKeyResponse, len(keys))
	for i, key := range keys {
		responses[i] = key.ToResponse()
	}

	utils.RespondWithJSON(w, http.StatusOK, responses)
}

func (h *AdminAPIKeysHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if req.KeyName == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Key name is required")
		return
	}
	if req.Secret == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Secret is required")
		return
	}
	if req.Provider == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Provider is required")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	key := &models.APIKey{
		KeyName:  req.KeyName,
		Secret:   req.Secret,
		Provider: req.Provider,
		Balance:  req.Balance,
		Priority: req.Priority,
		IsActive: isActive,
	}

	if err := h.keys.Create(r.Context(), key); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, key.ToResponse())
}

func (h *AdminAPIKeysHandler) get(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	key, err := h.keys.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "API key not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get API key")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, key.ToResponse())
}

func (h *AdminAPIKeysHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req UpdateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	key, err := h.keys.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "API key not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get API key")
		return
	}

	// The fetched key holds its decrypted secret; blank it so Update only
	// re-encrypts when a new secret arrives.
	key.Secret = ""

	if req.KeyName != nil {
		key.KeyName = *req.KeyName
	}
	if req.Secret != nil {
		key.Secret = *req.Secret
	}
	if req.Provider != nil {
		key.Provider = *req.Provider
	}
	if req.Balance != nil {
		key.Balance = *req.Balance
	}
	if req.Priority != nil {
		key.Priority = *req.Priority
	}
	if req.IsActive != nil {
		key.IsActive = *req.IsActive
	}

	if err := h.keys.Update(r.Context(), key); err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "API key not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update API key")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, key.ToResponse())
}

func (h *AdminAPIKeysHandler) delete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.keys.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "API key not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete API key")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
