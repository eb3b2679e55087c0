package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"spendsense/domain"
	"spendsense/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDecisionService(t *testing.T, explainer ExplanationProvider) *DecisionService {
	return NewDecisionService(explainer, logger.NewTestLogger(t), WithClock(func() time.Time { return fixedTime }))
}

func request(income, expenses, savings, cost float64) map[string]any {
	return map[string]any{
		"monthly_income": income,
		"fixed_expenses": expenses,
		"savings_goal":   savings,
		"planned_purchase": map[string]any{
			"item": "Headphones",
			"cost": cost,
		},
	}
}

type panickingProvider struct{}

func (panickingProvider) Explain(context.Context, ExplanationRequest, *domain.ConversationSession) (domain.ExplanationResult, error) {
	panic("provider exploded")
}

func TestEvaluate_Success(t *testing.T) {
	svc := newTestDecisionService(t, nil)

	report := svc.Evaluate(context.Background(), request(5000, 1500, 500, 1000), nil)

	require.Equal(t, domain.StatusSuccess, report.Status)
	assert.Nil(t, report.Error)
	assert.Equal(t, fixedTime, report.Timestamp)

	require.NotNil(t, report.InputValidation)
	assert.Equal(t, "valid", report.InputValidation.Status)
	assert.Equal(t, "Headphones", report.InputValidation.PurchaseItem)

	require.NotNil(t, report.FinancialAnalysis)
	assert.Equal(t, 3000.0, report.FinancialAnalysis.DisposableIncome)
	require.NotNil(t, report.FinancialAnalysis.RemainingAfterPurchase)
	assert.Equal(t, 2000.0, *report.FinancialAnalysis.RemainingAfterPurchase)
	assert.Nil(t, report.FinancialAnalysis.HardStopReason)

	require.NotNil(t, report.RiskAssessment)
	assert.InDelta(t, 33.33, report.RiskAssessment.PercentageOfDisposable, 0.01)
	assert.Equal(t, domain.RiskMedium, report.RiskAssessment.RiskLevel)
	assert.Equal(t, 0.333, report.RiskAssessment.ConfidenceScore)

	require.NotNil(t, report.AIReasoning)
	assert.Equal(t, domain.ModeFallback, report.AIReasoning.Mode)

	require.NotNil(t, report.FinalDecision)
	assert.Equal(t, summaryMediumRisk, report.FinalDecision.Summary)
	assert.Equal(t, Recommendation, report.FinalDecision.Recommendation)
	assert.Equal(t, affordableNextSteps, report.FinalDecision.NextSteps)
	assert.Equal(t, 5000.0, report.FinalDecision.KeyMetrics.MonthlyIncome)
	assert.Equal(t, 1000.0, report.FinalDecision.KeyMetrics.PurchaseCost)
}

func TestEvaluate_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		req       map[string]any
		risk      domain.RiskLevel
		canAfford bool
		hardStop  bool
		summary   string
	}{
		{"A low", request(5000, 1500, 500, 100), domain.RiskLow, true, false, summaryLowRisk},
		{"B medium", request(5000, 1500, 500, 1500), domain.RiskMedium, true, false, summaryMediumRisk},
		{"C high affordable", request(5000, 1500, 500, 2500), domain.RiskHigh, true, false, summaryHighRisk},
		{"D zero disposable", request(3000, 2500, 500, 100), domain.RiskHigh, false, true, summaryCannotAfford},
		{"E cost above income", request(5000, 1500, 500, 6000), domain.RiskHigh, false, true, summaryCannotAfford},
	}

	svc := newTestDecisionService(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := svc.Evaluate(context.Background(), tt.req, nil)

			require.Equal(t, domain.StatusSuccess, report.Status)
			assert.Equal(t, tt.risk, report.RiskAssessment.RiskLevel)
			assert.Equal(t, tt.canAfford, report.FinancialAnalysis.CanAfford)
			assert.Equal(t, tt.hardStop, report.FinancialAnalysis.HardStopTriggered)
			assert.Equal(t, tt.summary, report.FinalDecision.Summary)

			if tt.hardStop {
				assert.NotNil(t, report.FinancialAnalysis.HardStopReason)
				assert.Nil(t, report.FinancialAnalysis.RemainingAfterPurchase)
				assert.Equal(t, hardStopNextSteps, report.FinalDecision.NextSteps)
			} else {
				assert.NotNil(t, report.FinancialAnalysis.RemainingAfterPurchase)
			}
		})
	}
}

func TestEvaluate_ValidationError(t *testing.T) {
	svc := newTestDecisionService(t, nil)
	raw := request(5000, 1500, 500, 100)
	delete(raw, "savings_goal")

	report := svc.Evaluate(context.Background(), raw, nil)

	assert.Equal(t, domain.StatusValidationError, report.Status)
	require.NotNil(t, report.Error)
	assert.Contains(t, *report.Error, "savings_goal")
	assert.Nil(t, report.InputValidation)
	assert.Nil(t, report.FinancialAnalysis)
	assert.Nil(t, report.RiskAssessment)
	assert.Nil(t, report.AIReasoning)
	assert.Nil(t, report.FinalDecision)
}

func TestEvaluate_RemoteFailureKeepsSuccess(t *testing.T) {
	remote := &stubProvider{err: errors.New("connection refused")}
	svc := newTestDecisionService(t, NewExplanationService(remote, logger.NewTestLogger(t)))

	report := svc.Evaluate(context.Background(), request(5000, 1500, 500, 1500), nil)

	assert.Equal(t, domain.StatusSuccess, report.Status)
	assert.Equal(t, domain.ModeFallback, report.AIReasoning.Mode)
	assert.Equal(t, 1, remote.calls)
}

func TestEvaluate_ProviderErrorWithoutWrapperFallsBack(t *testing.T) {
	svc := newTestDecisionService(t, &stubProvider{err: ErrMalformedExplanation})

	report := svc.Evaluate(context.Background(), request(5000, 1500, 500, 100), nil)

	assert.Equal(t, domain.StatusSuccess, report.Status)
	assert.Equal(t, domain.ModeFallback, report.AIReasoning.Mode)
	assert.Len(t, report.AIReasoning.Alternatives, 3)
}

func TestEvaluate_EmptyRemoteExplanationFallsBack(t *testing.T) {
	svc := newTestDecisionService(t, &stubProvider{result: domain.ExplanationResult{Mode: domain.ModeRemote}})

	report := svc.Evaluate(context.Background(), request(5000, 1500, 500, 100), nil)

	assert.Equal(t, domain.ModeFallback, report.AIReasoning.Mode)
	assert.NotEmpty(t, report.AIReasoning.Explanation)
}

func TestEvaluate_UnexpectedFailure(t *testing.T) {
	svc := newTestDecisionService(t, panickingProvider{})

	report := svc.Evaluate(context.Background(), request(5000, 1500, 500, 100), nil)

	assert.Equal(t, domain.StatusError, report.Status)
	require.NotNil(t, report.Error)
	assert.Equal(t, unexpectedErrorMessage, *report.Error)
	assert.Nil(t, report.FinancialAnalysis)
	assert.Nil(t, report.FinalDecision)
}

func TestEvaluate_Idempotent(t *testing.T) {
	svc := newTestDecisionService(t, nil)

	first := svc.Evaluate(context.Background(), request(5000, 1500, 500, 2500), nil)
	second := svc.Evaluate(context.Background(), request(5000, 1500, 500, 2500), nil)

	assert.Equal(t, first.FinancialAnalysis, second.FinancialAnalysis)
	assert.Equal(t, first.RiskAssessment, second.RiskAssessment)
	assert.Equal(t, first.AIReasoning.Explanation, second.AIReasoning.Explanation)
	assert.Equal(t, first, second)
}

func TestEvaluate_ReportsAreIndependent(t *testing.T) {
	svc := newTestDecisionService(t, nil)

	first := svc.Evaluate(context.Background(), request(3000, 2500, 500, 100), nil)
	first.FinalDecision.NextSteps[0] = "mutated"

	second := svc.Evaluate(context.Background(), request(3000, 2500, 500, 100), nil)
	assert.Equal(t, hardStopNextSteps[0], second.FinalDecision.NextSteps[0])
}

func TestEvaluateJSON(t *testing.T) {
	svc := newTestDecisionService(t, nil)

	data, err := svc.EvaluateJSON(context.Background(), request(3000, 2500, 500, 100))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "success", decoded["status"])
	assert.Nil(t, decoded["error"])
	assert.Equal(t, "2026-03-01T12:00:00Z", decoded["timestamp"])

	analysis := decoded["financial_analysis"].(map[string]any)
	assert.Equal(t, true, analysis["hard_stop_triggered"])
	assert.Nil(t, analysis["remaining_after_purchase"])

	risk := decoded["risk_assessment"].(map[string]any)
	assert.Equal(t, "High Risk", risk["risk_level"])
	assert.Equal(t, 1.0, risk["confidence_score"])

	validation := decoded["input_validation"].(map[string]any)
	assert.Equal(t, "valid", validation["status"])
	assert.Equal(t, "Headphones", validation["purchase_item"])

	reasoning := decoded["ai_reasoning"].(map[string]any)
	assert.Equal(t, "fallback", reasoning["mode"])
}

func TestEvaluateJSON_LargeAmounts(t *testing.T) {
	svc := newTestDecisionService(t, nil)

	data, err := svc.EvaluateJSON(context.Background(), request(MaxAmount, MaxAmount, 0, MaxAmount))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "success", decoded["status"])
	risk := decoded["risk_assessment"].(map[string]any)
	assert.InDelta(t, MaxAmount*100, risk["percentage_of_disposable"], 1)

	data, err = svc.EvaluateJSON(context.Background(), request(2e307, 2e307, 0, 1e307))
	decoded = nil
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "validation_error", decoded["status"])
	assert.Contains(t, decoded["error"], "Monthly income cannot exceed")
}

func TestResetConversation(t *testing.T) {
	svc := newTestDecisionService(t, nil)
	session := domain.NewConversationSession("s-1")
	session.Append(domain.ChatMessage{Role: "user", Content: "hi"})

	svc.ResetConversation(session)
	assert.Zero(t, session.Len())

	assert.NotPanics(t, func() { svc.ResetConversation(nil) })
}
