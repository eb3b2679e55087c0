package service

import (
	"context"
	"errors"
	"time"

	"spendsense/domain"
	"spendsense/logger"
	"spendsense/metrics"
)

var (
	ErrExplanationTimeout   = errors.New("explanation request timed out")
	ErrExplanationFailed    = errors.New("explanation request failed")
	ErrMalformedExplanation = errors.New("malformed explanation response")
	ErrGuardrailViolation   = errors.New("explanation violates advice guardrails")
	ErrRemoteDisabled       = errors.New("remote explanation disabled")
)

type ExplanationRequest struct {
	PurchaseItem     string
	PurchaseCost     float64
	MonthlyIncome    float64
	DisposableIncome float64
	RiskLevel        domain.RiskLevel
	ConfidenceScore  float64
}

// ExplanationProvider turns a scored purchase into prose and alternatives.
// A nil session means no follow-up log is kept.
type ExplanationProvider interface {
	Explain(ctx context.Context, req ExplanationRequest, session *domain.ConversationSession) (domain.ExplanationResult, error)
}

// FollowUpResponder answers questions over an existing session log.
type FollowUpResponder interface {
	FollowUp(ctx context.Context, session *domain.ConversationSession, question string) (string, error)
}

// ExplanationService tries the remote provider and degrades to the fallback
// on any failure. Explain never returns an error.
type ExplanationService struct {
	remote   ExplanationProvider
	fallback *FallbackExplainer
	log      logger.Logger
}

// NewExplanationService builds the service. remote may be nil, in which case
// every explanation comes from the fallback templates.
func NewExplanationService(remote ExplanationProvider, log logger.Logger) *ExplanationService {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &ExplanationService{
		remote:   remote,
		fallback: NewFallbackExplainer(),
		log:      log,
	}
}

func (s *ExplanationService) RemoteEnabled() bool {
	return s.remote != nil
}

func (s *ExplanationService) Explain(
	ctx context.Context,
	req ExplanationRequest,
	session *domain.ConversationSession,
) (domain.ExplanationResult, error) {
	if s.remote == nil {
		metrics.ExplanationsTotal.WithLabelValues(string(domain.ModeFallback)).Inc()
		return s.fallback.Render(req.RiskLevel, req.PurchaseCost, req.DisposableIncome), nil
	}

	start := time.Now()
	result, err := s.remote.Explain(ctx, req, session)
	if err != nil {
		metrics.ExplanationFailures.WithLabelValues(failureReason(err)).Inc()
		s.log.Warn("remote explanation failed, using fallback", map[string]interface{}{
			"error":       err.Error(),
			"risk_level":  req.RiskLevel,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		metrics.ExplanationsTotal.WithLabelValues(string(domain.ModeFallback)).Inc()
		return s.fallback.Render(req.RiskLevel, req.PurchaseCost, req.DisposableIncome), nil
	}

	metrics.ExplanationsTotal.WithLabelValues(string(domain.ModeRemote)).Inc()
	return result, nil
}

// FollowUp answers a question about an earlier evaluation. Failures are
// logged and replaced by a fixed apology.
func (s *ExplanationService) FollowUp(ctx context.Context, session *domain.ConversationSession, question string) string {
	responder, ok := s.remote.(FollowUpResponder)
	if !ok {
		return FollowUpErrorMessage
	}

	answer, err := responder.FollowUp(ctx, session, question)
	if err != nil {
		s.log.Warn("follow-up failed", map[string]interface{}{"error": err.Error()})
		return FollowUpErrorMessage
	}
	return answer
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrExplanationTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrMalformedExplanation):
		return "malformed"
	case errors.Is(err, ErrGuardrailViolation):
		return "guardrail"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "request"
	}
}
