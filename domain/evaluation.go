package domain

import "time"

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low Risk"
	RiskMedium RiskLevel = "Medium Risk"
	RiskHigh   RiskLevel = "High Risk"
)

type Status string

const (
	StatusSuccess         Status = "success"
	StatusValidationError Status = "validation_error"
	StatusError           Status = "error"
)

type ExplanationMode string

const (
	ModeRemote   ExplanationMode = "remote"
	ModeFallback ExplanationMode = "fallback"
)

// EvaluationInput is the validated form of a purchase evaluation request.
type EvaluationInput struct {
	MonthlyIncome float64 `json:"monthly_income"`
	FixedExpenses float64 `json:"fixed_expenses"`
	SavingsGoal   float64 `json:"savings_goal"`
	PurchaseItem  string  `json:"purchase_item"`
	PurchaseCost  float64 `json:"purchase_cost"`
}

// InputValidation echoes the accepted input back in the report.
type InputValidation struct {
	Status string `json:"status"`
	EvaluationInput
}

type FinancialAnalysis struct {
	DisposableIncome       float64  `json:"disposable_income"`
	HardStopTriggered      bool     `json:"hard_stop_triggered"`
	HardStopReason         *string  `json:"hard_stop_reason"`
	CanAfford              bool     `json:"can_afford"`
	RemainingAfterPurchase *float64 `json:"remaining_after_purchase"`
}

type RiskAssessment struct {
	RiskLevel              RiskLevel `json:"risk_level"`
	ConfidenceScore        float64   `json:"confidence_score"`
	PercentageOfDisposable float64   `json:"percentage_of_disposable"`
}

type ExplanationResult struct {
	Explanation  string          `json:"explanation"`
	Alternatives []string        `json:"alternatives"`
	Mode         ExplanationMode `json:"mode"`
}

type KeyMetrics struct {
	MonthlyIncome          float64  `json:"monthly_income"`
	DisposableIncome       float64  `json:"disposable_income"`
	PurchaseCost           float64  `json:"purchase_cost"`
	RemainingAfterPurchase *float64 `json:"remaining_after_purchase"`
	PercentageOfDisposable float64  `json:"percentage_of_disposable"`
}

type FinalDecision struct {
	Summary        string     `json:"summary"`
	Recommendation string     `json:"recommendation"`
	KeyMetrics     KeyMetrics `json:"key_metrics"`
	NextSteps      []string   `json:"next_steps"`
}

// DecisionReport is the terminal output of one evaluation. Sections that the
// pipeline never reached are nil.
type DecisionReport struct {
	Timestamp         time.Time          `json:"timestamp"`
	Status            Status             `json:"status"`
	Error             *string            `json:"error"`
	InputValidation   *InputValidation   `json:"input_validation"`
	FinancialAnalysis *FinancialAnalysis `json:"financial_analysis"`
	RiskAssessment    *RiskAssessment    `json:"risk_assessment"`
	AIReasoning       *ExplanationResult `json:"ai_reasoning"`
	FinalDecision     *FinalDecision     `json:"final_decision"`
}
