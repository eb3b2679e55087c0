package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"spendsense/domain"
	"spendsense/logger"
	"spendsense/repository"
	"spendsense/service"

	"github.com/google/uuid"
)

const (
	SessionHeader  = "X-Session-ID"
	maxRequestBody = 1 << 20
)

type EvaluationHandler struct {
	decisions    *service.DecisionService
	explanations *service.ExplanationService
	sessions     repository.SessionRepository
	locks        *sessionLocks
	log          logger.Logger
}

func NewEvaluationHandler(
	decisions *service.DecisionService,
	explanations *service.ExplanationService,
	sessions repository.SessionRepository,
	log logger.Logger,
) *EvaluationHandler {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &EvaluationHandler{
		decisions:    decisions,
		explanations: explanations,
		sessions:     sessions,
		locks:        newSessionLocks(),
		log:          log,
	}
}

type followUpRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type followUpResponse struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
}

type resetRequest struct {
	SessionID string `json:"session_id"`
}

type resetResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Evaluate runs one purchase evaluation. The report is returned with 200 on
// success, 400 on invalid input and 500 on unexpected failure.
func (h *EvaluationHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var raw map[string]any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	session, unlock := h.openSession(r)
	defer unlock()
	report := h.decisions.Evaluate(r.Context(), raw, session)

	if report.Status == domain.StatusSuccess {
		if err := h.sessions.Save(r.Context(), session); err != nil {
			h.log.Warn("failed to save session", map[string]interface{}{
				"session_id": session.ID,
				"error":      err.Error(),
			})
		}
		w.Header().Set(SessionHeader, session.ID)
	}

	status := http.StatusOK
	switch report.Status {
	case domain.StatusValidationError:
		status = http.StatusBadRequest
	case domain.StatusError:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, report)
}

// FollowUp answers a question about an earlier evaluation in the same session.
func (h *EvaluationHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req followUpRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "session_id and question are required"})
		return
	}

	unlock := h.locks.lock(req.SessionID)
	defer unlock()

	session, ok := h.loadSession(w, r, req.SessionID)
	if !ok {
		return
	}

	answer := h.explanations.FollowUp(r.Context(), session, req.Question)
	if err := h.sessions.Save(r.Context(), session); err != nil {
		h.log.Warn("failed to save session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, followUpResponse{SessionID: session.ID, Answer: answer})
}

// ResetSession clears the conversation log of a session.
func (h *EvaluationHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resetRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil || req.SessionID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	unlock := h.locks.lock(req.SessionID)
	defer unlock()

	session, ok := h.loadSession(w, r, req.SessionID)
	if !ok {
		return
	}

	h.decisions.ResetConversation(session)
	if err := h.sessions.Save(r.Context(), session); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to reset session"})
		return
	}

	writeJSON(w, http.StatusOK, resetResponse{SessionID: session.ID, Status: "reset"})
}

func (h *EvaluationHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"remote_explanation": h.explanations.RemoteEnabled(),
	})
}

// openSession resumes the session named by the request header, or starts a
// new one. The returned func releases the session lock.
func (h *EvaluationHandler) openSession(r *http.Request) (*domain.ConversationSession, func()) {
	if id := r.Header.Get(SessionHeader); id != "" {
		unlock := h.locks.lock(id)
		session, err := h.sessions.Load(r.Context(), id)
		if err == nil {
			return session, unlock
		}
		unlock()
		if !errors.Is(err, repository.ErrSessionNotFound) {
			h.log.Warn("failed to load session", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
		}
	}
	return domain.NewConversationSession(uuid.NewString()), func() {}
}

func (h *EvaluationHandler) loadSession(w http.ResponseWriter, r *http.Request, id string) (*domain.ConversationSession, bool) {
	session, err := h.sessions.Load(r.Context(), id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
		return nil, false
	}
	if err != nil {
		h.log.Error("failed to load session", map[string]interface{}{
			"session_id": id,
			"error":      err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load session"})
		return nil, false
	}
	return session, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
