package service

import (
	"fmt"
	"math"

	"spendsense/domain"
)

// RuleResult is the deterministic affordability verdict for one purchase.
// Ratio is +Inf when a hard stop fires with no disposable income.
type RuleResult struct {
	DisposableIncome       float64
	HardStopTriggered      bool
	HardStopReason         string
	CanAfford              bool
	RiskLevel              domain.RiskLevel
	Ratio                  float64
	Percentage             float64
	RemainingAfterPurchase *float64
}

func CalculateDisposableIncome(income, expenses, savings float64) float64 {
	return income - expenses - savings
}

// CheckHardStops reports the first rule that makes the purchase unaffordable.
func CheckHardStops(income, disposable, cost float64) (bool, string) {
	if disposable <= 0 {
		return true, fmt.Sprintf(
			"No disposable income available (income: $%.2f, expenses + savings: $%.2f)",
			income, income-disposable,
		)
	}

	if cost >= income {
		return true, fmt.Sprintf(
			"Purchase cost ($%.2f) exceeds monthly income ($%.2f). Cannot afford this purchase.",
			cost, income,
		)
	}

	return false, ""
}

// AssessRiskLevel classifies cost as a share of disposable income. Each tier
// includes its upper bound.
func AssessRiskLevel(cost, disposable float64) domain.RiskLevel {
	if disposable <= 0 {
		return domain.RiskHigh
	}

	ratio := cost / disposable
	switch {
	case ratio <= LowRiskRatio:
		return domain.RiskLow
	case ratio <= MediumRiskRatio:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

func EvaluatePurchase(income, expenses, savings, cost float64) RuleResult {
	disposable := CalculateDisposableIncome(income, expenses, savings)

	if stopped, reason := CheckHardStops(income, disposable, cost); stopped {
		ratio := math.Inf(1)
		if disposable > 0 {
			ratio = cost / disposable
		}
		return RuleResult{
			DisposableIncome:  disposable,
			HardStopTriggered: true,
			HardStopReason:    reason,
			CanAfford:         false,
			RiskLevel:         domain.RiskHigh,
			Ratio:             ratio,
			Percentage:        ratio * 100,
		}
	}

	ratio := cost / disposable
	remaining := disposable - cost

	return RuleResult{
		DisposableIncome:       disposable,
		CanAfford:              true,
		RiskLevel:              AssessRiskLevel(cost, disposable),
		Ratio:                  ratio,
		Percentage:             ratio * 100,
		RemainingAfterPurchase: &remaining,
	}
}
