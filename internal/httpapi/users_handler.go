package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"englishqa/internal/auth"
	"englishqa/internal/billing"
	"englishqa/internal/middleware"
	"englishqa/internal/models"
	"englishqa/internal/storage"
	"englishqa/internal/utils"
)

// UsersHandler handles registration, login and account endpoints
type UsersHandler struct {
	users        *storage.UserRepository
	transactions *storage.TransactionRepository
	ledger       *billing.Ledger
	jwtSecret    []byte
	jwtExpiry    time.Duration
}

// NewUsersHandler creates a new users handler
func NewUsersHandler(
	users *storage.UserRepository,
	transactions *storage.TransactionRepository,
	ledger *billing.Ledger,
	jwtSecret []byte,
	jwtExpiry time.Duration,
) *UsersHandler {
	return &UsersHandler{
		users:        users,
		transactions: transactions,
		ledger:       ledger,
		jwtSecret:    jwtSecret,
		jwtExpiry:    jwtExpiry,
	}
}

// RegisterRequest represents the request to create an account
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenRequest represents a login request
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries the issued bearer token
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// DepositRequest represents a balance top-up request
type DepositRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// Register handles POST /api/users/register
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Username, email and password are required")
		return
	}
	if len(req.Password) < 8 {
		utils.RespondWithError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Balance:      0,
		IsActive:     true,
	}

	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicateUser) {
			utils.RespondWithError(w, http.StatusConflict, "Username or email already taken")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, user.ToResponse())
}

// Token handles POST /api/users/token
func (h *UsersHandler) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		// Same response for unknown user and bad password
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	if !user.IsActive {
		utils.RespondWithError(w, http.StatusForbidden, "Account is deactivated")
		return
	}

	token, expiresAt, err := auth.GenerateJWT(user, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
	})
}

// Me handles GET /api/users/me
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, user.ToResponse())
}

// Deposit handles POST /api/users/deposit
func (h *UsersHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	description := req.Description
	if description == "" {
		description = "balance top-up"
	}

	entry, err := h.ledger.Deposit(r.Context(), user.ID, req.Amount, description)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidAmount) {
			utils.RespondWithError(w, http.StatusBadRequest, "Amount must be positive")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to apply deposit")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, entry.ToResponse())
}

// Transactions handles GET /api/users/transactions
func (h *UsersHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}

	entries, err := h.transactions.ListByUser(r.Context(), user.ID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	responses := make([]models.TransactionResponse, len(entries))
	for i, entry := range entries {
		responses[i] = entry.ToResponse()
	}

	utils.RespondWithJSON(w, http.StatusOK, responses)
}
