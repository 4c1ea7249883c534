package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"englishqa/internal/models"
	"englishqa/internal/storage"
	"englishqa/internal/utils"
)

// AdminUsersHandler handles user administration endpoints
type AdminUsersHandler struct {
	users *storage.UserRepository
}

// NewAdminUsersHandler creates a new admin users handler
func NewAdminUsersHandler(users *storage.UserRepository) *AdminUsersHandler {
	return &AdminUsersHandler{users: users}
}

// List handles GET /admin/users
func (h *AdminUsersHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	users, err := h.users.List(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	responses := make([]models.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}

	utils.RespondWithJSON(w, http.StatusOK, responses)
}

// Item handles /admin/users/{id} and /admin/users/{id}/activate|deactivate
func (h *AdminUsersHandler) Item(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	if rest == "" || rest == r.URL.Path {
		utils.RespondWithError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	idStr, action, _ := strings.Cut(rest, "/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	switch action {
	case "":
		h.get(w, r, id)
	case "activate":
		h.setActive(w, r, id, true)
	case "deactivate":
		h.setActive(w, r, id, false)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
	}
}

func (h *AdminUsersHandler) get(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user.ToResponse())
}

func (h *AdminUsersHandler) setActive(w http.ResponseWriter, r *http.Request, id uuid.UUID, active bool) {
	if r.Method != http.MethodPut {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := h.users.SetActive(r.Context(), id, active); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user.ToResponse())
}
