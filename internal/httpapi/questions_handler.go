package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"englishqa/internal/billing"
	"englishqa/internal/middleware"
	"englishqa/internal/models"
	"englishqa/internal/providers"
	"englishqa/internal/question"
	"englishqa/internal/storage"
	"englishqa/internal/utils"
)

// QuestionsHandler handles the ask endpoint and question history
type QuestionsHandler struct {
	service *question.Service
	records *storage.QuestionRecordRepository
}

// NewQuestionsHandler creates a new questions handler
func NewQuestionsHandler(service *question.Service, records *storage.QuestionRecordRepository) *QuestionsHandler {
	return &QuestionsHandler{
		service: service,
		records: records,
	}
}

// AskRequest represents the request to ask a question
type AskRequest struct {
	Question string `json:"question"`
}

// InsufficientBalanceResponse reports the shortfall on a refused charge
type InsufficientBalanceResponse struct {
	Error     string  `json:"error"`
	Required  float64 `json:"required,omitempty"`
	Available float64 `json:"available"`
}

// Ask handles POST /api/questions/ask
func (h *QuestionsHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	record, err := h.service.Ask(r.Context(), user, req.Question)
	if err != nil {
		h.respondAskError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, record.ToResponse())
}

// respondAskError maps pipeline errors onto the HTTP taxonomy
func (h *QuestionsHandler) respondAskError(w http.ResponseWriter, err error) {
	var insufficient *billing.InsufficientBalanceError
	var upstream *providers.UpstreamError

	switch {
	case errors.Is(err, question.ErrEmptyQuestion):
		utils.RespondWithError(w, http.StatusBadRequest, "Question must not be empty")
	case errors.Is(err, question.ErrQuestionTooLong):
		utils.RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Question exceeds the maximum length of %d characters", question.MaxQuestionLen))
	case errors.As(err, &insufficient):
		utils.RespondWithJSON(w, http.StatusPaymentRequired, InsufficientBalanceResponse{
			Error:     "Insufficient balance",
			Required:  insufficient.Required,
			Available: insufficient.Available,
		})
	case errors.Is(err, providers.ErrNoProviderAvailable):
		utils.RespondWithError(w, http.StatusServiceUnavailable, "No provider is available, try again later")
	case errors.As(err, &upstream):
		utils.RespondWithError(w, http.StatusBadGateway, "The answer provider failed, you have not been charged")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to answer question")
	}
}

// History handles GET /api/questions/history
func (h *QuestionsHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}

	records, err := h.records.ListByUser(r.Context(), user.ID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list question history")
		return
	}

	responses := make([]models.QuestionRecordResponse, len(records))
	for i, record := range records {
		responses[i] = record.ToResponse()
	}

	utils.RespondWithJSON(w, http.StatusOK, responses)
}

// GetRecord handles GET /api/questions/records/{id}
func (h *QuestionsHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	user, ok := middleware.GetUser(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing authentication token")
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/questions/records/")
	if idStr == "" || idStr == r.URL.Path {
		utils.RespondWithError(w, http.StatusBadRequest, "Record ID is required")
		return
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid record ID format")
		return
	}

	record, err := h.records.GetByIDForUser(r.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrQuestionRecordNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Question record not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get question record")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, record.ToResponse())
}
