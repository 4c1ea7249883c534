package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"englishqa/internal/billing"
	"englishqa/internal/middleware"
	"englishqa/internal/models"
	"englishqa/internal/providers"
	"englishqa/internal/question"
)

type stubSelector struct {
	key *models.APIKey
	err error
}

func (s *stubSelector) Select(ctx context.Context) (*models.APIKey, error) {
	return s.key, s.err
}

type stubProvider struct {
	answer *providers.Answer
	err    error
}

func (p *stubProvider) Ask(ctx context.Context, secret, q string) (*providers.Answer, error) {
	return p.answer, p.err
}

type stubCharger struct {
	err error
}

func (c *stubCharger) ChargeForQuestion(ctx context.Context, record *models.QuestionRecord) error {
	if c.err != nil {
		return c.err
	}
	record.ID = uuid.New()
	return nil
}

func askHandler(selector question.Selector, provider providers.Client, charger question.Charger) *QuestionsHandler {
	svc := question.NewService(selector, provider, billing.NewPricer(0.5), charger, nil, nil)
	return NewQuestionsHandler(svc, nil)
}

func doAsk(t *testing.T, handler *QuestionsHandler, user *models.User, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/questions/ask", bytes.NewBufferString(body))
	ctx := context.WithValue(req.Context(), middleware.UserKey, user)

	w := httptest.NewRecorder()
	handler.Ask(w, req.WithContext(ctx))
	return w
}

func testUser(balance float64) *models.User {
	return &models.User{ID: uuid.New(), Username: "learner", Balance: balance, IsActive: true}
}

func TestAskEndpointSuccess(t *testing.T) {
	handler := askHandler(
		&stubSelector{key: &models.APIKey{ID: uuid.New(), Secret: "sk-test", Balance: 100}},
		&stubProvider{answer: &providers.Answer{Text: "Went.", TokensUsed: 1000}},
		&stubCharger{},
	)

	w := doAsk(t, handler, testUser(10), `{"question": "Past tense of go?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.QuestionRecordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Went.", resp.Answer)
	assert.Equal(t, 1000, resp.TokensUsed)
	assert.InDelta(t, 0.5, resp.Cost, 1e-9)
}

func TestAskEndpointInsufficientBalance(t *testing.T) {
	handler := askHandler(&stubSelector{}, &stubProvider{}, &stubCharger{})

	w := doAsk(t, handler, testUser(0), `{"question": "hello?"}`)
	require.Equal(t, http.StatusPaymentRequired, w.Code)

	var resp InsufficientBalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Insufficient balance", resp.Error)
}

func TestAskEndpointPostChargeInsufficiency(t *testing.T) {
	handler := askHandler(
		&stubSelector{key: &models.APIKey{ID: uuid.New(), Secret: "sk-test", Balance: 100}},
		&stubProvider{answer: &providers.Answer{Text: "long", TokensUsed: 4000}},
		&stubCharger{err: &billing.InsufficientBalanceError{Required: 2.0, Available: 1.0}},
	)

	w := doAsk(t, handler, testUser(1.0), `{"question": "hello?"}`)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestAskEndpointNoProvider(t *testing.T) {
	handler := askHandler(&stubSelector{err: providers.ErrNoProviderAvailable}, &stubProvider{}, &stubCharger{})

	w := doAsk(t, handler, testUser(10), `{"question": "hello?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAskEndpointUpstreamFailure(t *testing.T) {
	handler := askHandler(
		&stubSelector{key: &models.APIKey{ID: uuid.New(), Secret: "sk-test", Balance: 100}},
		&stubProvider{err: &providers.UpstreamError{StatusCode: 500, Message: "boom"}},
		&stubCharger{},
	)

	w := doAsk(t, handler, testUser(10), `{"question": "hello?"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "not been charged")
}

func TestAskEndpointEmptyQuestion(t *testing.T) {
	handler := askHandler(&stubSelector{}, &stubProvider{}, &stubCharger{})

	w := doAsk(t, handler, testUser(10), `{"question": "  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskEndpointInvalidPayload(t *testing.T) {
	handler := askHandler(&stubSelector{}, &stubProvider{}, &stubCharger{})

	w := doAsk(t, handler, testUser(10), `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskEndpointMethodNotAllowed(t *testing.T) {
	handler := askHandler(&stubSelector{}, &stubProvider{}, &stubCharger{})

	req := httptest.NewRequest(http.MethodGet, "/api/questions/ask", nil)
	ctx := context.WithValue(req.Context(), middleware.UserKey, testUser(10))

	w := httptest.NewRecorder()
	handler.Ask(w, req.WithContext(ctx))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
