package service

import (
	"math"

	"spendsense/domain"
)

type ScoreBreakdown struct {
	ConfidenceScore float64          `json:"confidence_score"`
	RiskLevel       domain.RiskLevel `json:"risk_level"`
	Percentage      float64          `json:"percentage"`
	Color           string           `json:"color"`
}

// CalculateConfidenceScore returns the cost share of disposable income,
// capped at 1 and rounded to three decimals. Disposable income below 1 is
// treated as 1.
func CalculateConfidenceScore(cost, disposable float64) float64 {
	ratio := cost / math.Max(disposable, 1)
	return roundTo(math.Min(1, ratio), 3)
}

func RiskLevelFromScore(score float64) domain.RiskLevel {
	switch {
	case score <= LowScoreThreshold:
		return domain.RiskLow
	case score <= MediumScoreThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

func ScorePurchase(cost, disposable float64) (float64, domain.RiskLevel) {
	score := CalculateConfidenceScore(cost, disposable)
	return score, RiskLevelFromScore(score)
}

func ScoreWithBreakdown(cost, disposable float64) ScoreBreakdown {
	score, level := ScorePurchase(cost, disposable)
	return ScoreBreakdown{
		ConfidenceScore: score,
		RiskLevel:       level,
		Percentage:      PercentageOfDisposable(cost, disposable),
		Color:           riskColor(level),
	}
}

// PercentageOfDisposable is always finite.
func PercentageOfDisposable(cost, disposable float64) float64 {
	return cost / math.Max(disposable, 1) * 100
}

func riskColor(level domain.RiskLevel) string {
	switch level {
	case domain.RiskLow:
		return "green"
	case domain.RiskMedium:
		return "yellow"
	default:
		return "red"
	}
}

func roundTo(value float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(value*p) / p
}
