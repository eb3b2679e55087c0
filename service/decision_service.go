package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spendsense/domain"
	"spendsense/logger"
	"spendsense/metrics"
)

const (
	summaryCannotAfford = "⚠️ CANNOT AFFORD - This purchase would exceed your income or eliminate all disposable funds."
	summaryLowRisk      = "✅ LOW RISK - This purchase is a small portion of your available funds."
	summaryMediumRisk   = "⚠️ MEDIUM RISK - This purchase is a significant portion of your available funds. Consider carefully."
	summaryHighRisk     = "🚨 HIGH RISK - This purchase would consume most or all of your available funds. Proceed with caution."
)

var (
	affordableNextSteps = []string{
		"Review the analysis and alternatives",
		"Consider your personal financial goals",
		"Make an informed decision that's right for you",
		"Update your budget if you decide to purchase",
	}
	hardStopNextSteps = []string{
		"Focus on increasing income or reducing expenses first",
		"Consider waiting until you have more financial flexibility",
		"Explore the suggested alternatives",
	}
)

type DecisionOption func(*DecisionService)

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) DecisionOption {
	return func(s *DecisionService) { s.now = now }
}

// DecisionService runs one evaluation end to end: validate, apply rules,
// score, explain, assemble.
type DecisionService struct {
	explainer ExplanationProvider
	fallback  *FallbackExplainer
	log       logger.Logger
	now       func() time.Time
}

func NewDecisionService(explainer ExplanationProvider, log logger.Logger, opts ...DecisionOption) *DecisionService {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	fallback := NewFallbackExplainer()
	if explainer == nil {
		explainer = fallback
	}

	s := &DecisionService{
		explainer: explainer,
		fallback:  fallback,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate never fails: problems are reported through the report status.
func (s *DecisionService) Evaluate(
	ctx context.Context,
	raw map[string]any,
	session *domain.ConversationSession,
) domain.DecisionReport {
	start := time.Now()
	report := domain.DecisionReport{
		Timestamp: s.now().UTC(),
		Status:    domain.StatusError,
	}

	defer func() {
		metrics.EvaluationsTotal.WithLabelValues(string(report.Status)).Inc()
		metrics.EvaluationDuration.WithLabelValues(string(report.Status)).Observe(time.Since(start).Seconds())
	}()

	s.log.Debug("validating input", nil)
	input, err := ValidateInput(raw)
	if err != nil {
		msg := err.Error()
		report.Status = domain.StatusValidationError
		report.Error = &msg
		s.log.Info("evaluation rejected", map[string]interface{}{"error": msg})
		return report
	}

	if err := s.analyze(ctx, input, session, &report); err != nil {
		msg := unexpectedErrorMessage
		report = domain.DecisionReport{
			Timestamp: report.Timestamp,
			Status:    domain.StatusError,
			Error:     &msg,
		}
		s.log.Error("evaluation failed", map[string]interface{}{"error": err.Error()})
		return report
	}

	report.Status = domain.StatusSuccess
	metrics.RiskLevelsTotal.WithLabelValues(string(report.RiskAssessment.RiskLevel)).Inc()
	s.log.Info("evaluation completed", map[string]interface{}{
		"risk_level":  report.RiskAssessment.RiskLevel,
		"hard_stop":   report.FinancialAnalysis.HardStopTriggered,
		"mode":        report.AIReasoning.Mode,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return report
}

// EvaluateJSON evaluates raw and returns the indented report.
func (s *DecisionService) EvaluateJSON(ctx context.Context, raw map[string]any) ([]byte, error) {
	report := s.Evaluate(ctx, raw, nil)
	return json.MarshalIndent(report, "", "  ")
}

// ResetConversation clears the follow-up log of a session.
func (s *DecisionService) ResetConversation(session *domain.ConversationSession) {
	if session == nil {
		return
	}
	session.Reset()
	s.log.Debug("conversation reset", map[string]interface{}{"session_id": session.ID})
}

func (s *DecisionService) analyze(
	ctx context.Context,
	input domain.EvaluationInput,
	session *domain.ConversationSession,
	report *domain.DecisionReport,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during evaluation: %v", r)
		}
	}()

	report.InputValidation = &domain.InputValidation{Status: "valid", EvaluationInput: input}

	s.log.Debug("running rule engine", nil)
	rules := EvaluatePurchase(input.MonthlyIncome, input.FixedExpenses, input.SavingsGoal, input.PurchaseCost)

	analysis := &domain.FinancialAnalysis{
		DisposableIncome:       rules.DisposableIncome,
		HardStopTriggered:      rules.HardStopTriggered,
		CanAfford:              rules.CanAfford,
		RemainingAfterPurchase: rules.RemainingAfterPurchase,
	}
	if rules.HardStopTriggered {
		reason := rules.HardStopReason
		analysis.HardStopReason = &reason
	}
	report.FinancialAnalysis = analysis

	s.log.Debug("scoring purchase", nil)
	score := CalculateConfidenceScore(input.PurchaseCost, rules.DisposableIncome)
	report.RiskAssessment = &domain.RiskAssessment{
		RiskLevel:              rules.RiskLevel,
		ConfidenceScore:        score,
		PercentageOfDisposable: PercentageOfDisposable(input.PurchaseCost, rules.DisposableIncome),
	}

	s.log.Debug("generating explanation", nil)
	explanation := s.explain(ctx, ExplanationRequest{
		PurchaseItem:     input.PurchaseItem,
		PurchaseCost:     input.PurchaseCost,
		MonthlyIncome:    input.MonthlyIncome,
		DisposableIncome: rules.DisposableIncome,
		RiskLevel:        rules.RiskLevel,
		ConfidenceScore:  score,
	}, session)
	report.AIReasoning = &explanation

	report.FinalDecision = assembleDecision(input, rules, report.RiskAssessment)
	return nil
}

func (s *DecisionService) explain(
	ctx context.Context,
	req ExplanationRequest,
	session *domain.ConversationSession,
) domain.ExplanationResult {
	result, err := s.explainer.Explain(ctx, req, session)
	if err == nil && result.Explanation == "" {
		err = fmt.Errorf("%w: empty explanation", ErrMalformedExplanation)
	}
	if err != nil {
		if !errors.Is(err, ErrRemoteDisabled) {
			s.log.Warn("explanation provider failed, using fallback", map[string]interface{}{"error": err.Error()})
		}
		return s.fallback.Render(req.RiskLevel, req.PurchaseCost, req.DisposableIncome)
	}
	return result
}

func assembleDecision(input domain.EvaluationInput, rules RuleResult, risk *domain.RiskAssessment) *domain.FinalDecision {
	var summary string
	switch {
	case rules.HardStopTriggered:
		summary = summaryCannotAfford
	case risk.RiskLevel == domain.RiskLow:
		summary = summaryLowRisk
	case risk.RiskLevel == domain.RiskMedium:
		summary = summaryMediumRisk
	default:
		summary = summaryHighRisk
	}

	steps := affordableNextSteps
	if rules.HardStopTriggered {
		steps = hardStopNextSteps
	}

	return &domain.FinalDecision{
		Summary:        summary,
		Recommendation: Recommendation,
		KeyMetrics: domain.KeyMetrics{
			MonthlyIncome:          input.MonthlyIncome,
			DisposableIncome:       rules.DisposableIncome,
			PurchaseCost:           input.PurchaseCost,
			RemainingAfterPurchase: rules.RemainingAfterPurchase,
			PercentageOfDisposable: risk.PercentageOfDisposable,
		},
		NextSteps: append([]string(nil), steps...),
	}
}
