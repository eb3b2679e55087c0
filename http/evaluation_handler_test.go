package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"spendsense/domain"
	"spendsense/logger"
	"spendsense/repository"
	"spendsense/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{
	"monthly_income": 5000,
	"fixed_expenses": 1500,
	"savings_goal": 500,
	"planned_purchase": {"item": "Laptop", "cost": 1000}
}`

func newTestHandler(t *testing.T, remote service.ExplanationProvider) (*EvaluationHandler, *repository.SessionRepositoryMemory) {
	log := logger.NewTestLogger(t)
	explanations := service.NewExplanationService(remote, log)
	decisions := service.NewDecisionService(explanations, log)
	sessions := repository.NewSessionRepositoryMemory(time.Minute)
	return NewEvaluationHandler(decisions, explanations, sessions, log), sessions
}

// fakeLLM answers analysis prompts with a structured reply and anything else
// with plain text.
func fakeLLM(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req service.OpenAIRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		content := "It uses a third of what is left after bills and savings."
		if strings.Contains(req.Messages[0].Content, "single JSON object") {
			content = `{"decision": "Medium Risk", "confidence_score": 0.333, ` +
				`"explanation": "A third of your disposable income.", "alternatives": ["Wait a month"]}`
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func postJSON(h http.HandlerFunc, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeReport(t *testing.T, w *httptest.ResponseRecorder) domain.DecisionReport {
	var report domain.DecisionReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	return report
}

func TestEvaluateHandler_OK(t *testing.T) {
	handler, sessions := newTestHandler(t, nil)

	w := postJSON(handler.Evaluate, "/evaluate", validBody, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	report := decodeReport(t, w)
	assert.Equal(t, domain.StatusSuccess, report.Status)
	assert.Equal(t, 3000.0, report.FinancialAnalysis.DisposableIncome)
	assert.Equal(t, domain.ModeFallback, report.AIReasoning.Mode)

	id := w.Header().Get(SessionHeader)
	require.NotEmpty(t, id)
	_, err := sessions.Load(context.Background(), id)
	assert.NoError(t, err)
}

func TestEvaluateHandler_ValidationError(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	body := `{"monthly_income": 5000, "fixed_expenses": 1500, "savings_goal": 500,
		"planned_purchase": {"item": "Laptop", "cost": 0}}`
	w := postJSON(handler.Evaluate, "/evaluate", body, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	report := decodeReport(t, w)
	assert.Equal(t, domain.StatusValidationError, report.Status)
	require.NotNil(t, report.Error)
	assert.Equal(t, "Purchase cost must be greater than 0 (got 0)", *report.Error)
	assert.Empty(t, w.Header().Get(SessionHeader))
}

func TestEvaluateHandler_MethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/evaluate", nil)
	w := httptest.NewRecorder()
	handler.Evaluate(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestEvaluateHandler_BadRequest(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	for _, body := range []string{`{invalid-json}`, `null`, `[1,2]`} {
		w := postJSON(handler.Evaluate, "/evaluate", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestEvaluateHandler_RemoteFlowWithFollowUpAndReset(t *testing.T) {
	server := fakeLLM(t)
	remote := service.NewAIService(service.AIConfig{APIKey: "k", APIURL: server.URL, Timeout: 2 * time.Second})
	handler, sessions := newTestHandler(t, remote)

	w := postJSON(handler.Evaluate, "/evaluate", validBody, nil)
	require.Equal(t, http.StatusOK, w.Code)
	report := decodeReport(t, w)
	assert.Equal(t, domain.ModeRemote, report.AIReasoning.Mode)
	assert.Equal(t, []string{"Wait a month"}, report.AIReasoning.Alternatives)

	id := w.Header().Get(SessionHeader)
	session, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, session.Len())

	w = postJSON(handler.FollowUp, "/follow-up", fmt.Sprintf(`{"session_id": %q, "question": "Why medium?"}`, id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var answer followUpResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, "It uses a third of what is left after bills and savings.", answer.Answer)

	session, err = sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 4, session.Len())

	w = postJSON(handler.ResetSession, "/session/reset", fmt.Sprintf(`{"session_id": %q}`, id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	session, err = sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, session.Len())
}

func TestEvaluateHandler_ResumesSessionFromHeader(t *testing.T) {
	server := fakeLLM(t)
	remote := service.NewAIService(service.AIConfig{APIKey: "k", APIURL: server.URL, Timeout: 2 * time.Second})
	handler, sessions := newTestHandler(t, remote)

	first := postJSON(handler.Evaluate, "/evaluate", validBody, nil)
	id := first.Header().Get(SessionHeader)

	second := postJSON(handler.Evaluate, "/evaluate", validBody, map[string]string{SessionHeader: id})
	assert.Equal(t, id, second.Header().Get(SessionHeader))

	session, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 4, session.Len())
}

func TestFollowUpHandler_ConcurrentRequestsKeepEveryExchange(t *testing.T) {
	server := fakeLLM(t)
	remote := service.NewAIService(service.AIConfig{APIKey: "k", APIURL: server.URL, Timeout: 5 * time.Second})
	handler, sessions := newTestHandler(t, remote)

	w := postJSON(handler.Evaluate, "/evaluate", validBody, nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(SessionHeader)

	const questions = 8
	var wg sync.WaitGroup
	for i := 0; i < questions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"session_id": %q, "question": "Question %d?"}`, id, i)
			resp := postJSON(handler.FollowUp, "/follow-up", body, nil)
			assert.Equal(t, http.StatusOK, resp.Code)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		resp := postJSON(handler.Evaluate, "/evaluate", validBody, map[string]string{SessionHeader: id})
		assert.Equal(t, id, resp.Header().Get(SessionHeader))
	}()
	wg.Wait()

	session, err := sessions.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2+2+2*questions, session.Len())
	assert.Zero(t, handler.locks.len())
}

func TestFollowUpHandler_Errors(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	w := postJSON(handler.FollowUp, "/follow-up", `{"session_id": "missing", "question": "why?"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = postJSON(handler.FollowUp, "/follow-up", `{"session_id": "abc"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(handler.FollowUp, "/follow-up", `{bad`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFollowUpHandler_WithoutRemoteReturnsApology(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	w := postJSON(handler.Evaluate, "/evaluate", validBody, nil)
	id := w.Header().Get(SessionHeader)

	w = postJSON(handler.FollowUp, "/follow-up", fmt.Sprintf(`{"session_id": %q, "question": "why?"}`, id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var answer followUpResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &answer))
	assert.Equal(t, service.FollowUpErrorMessage, answer.Answer)
}

func TestResetSessionHandler_NotFound(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	w := postJSON(handler.ResetSession, "/session/reset", `{"session_id": "nope"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthHandler(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.Health(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["remote_explanation"])
}
