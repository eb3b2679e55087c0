package service

import (
	"context"
	"fmt"

	"spendsense/domain"
)

var generalAlternatives = []string{
	"Wait 30 days and see if you still want it",
	"Search for used or refurbished versions at lower cost",
	"Look for sales, coupons, or discount codes",
}

var elevatedRiskAlternatives = []string{
	"Consider a budget-friendly alternative brand",
	"Explore rental or subscription options instead of buying",
	"Set a savings goal and purchase later",
}

// FallbackExplainer renders template explanations. Output depends only on
// risk level, cost and disposable income.
type FallbackExplainer struct{}

func NewFallbackExplainer() *FallbackExplainer {
	return &FallbackExplainer{}
}

func (f *FallbackExplainer) Explain(
	_ context.Context,
	req ExplanationRequest,
	_ *domain.ConversationSession,
) (domain.ExplanationResult, error) {
	return f.Render(req.RiskLevel, req.PurchaseCost, req.DisposableIncome), nil
}

func (f *FallbackExplainer) Render(level domain.RiskLevel, cost, disposable float64) domain.ExplanationResult {
	return domain.ExplanationResult{
		Explanation:  withDisclaimer(fallbackExplanation(level, cost, disposable)),
		Alternatives: fallbackAlternatives(level),
		Mode:         domain.ModeFallback,
	}
}

func fallbackExplanation(level domain.RiskLevel, cost, disposable float64) string {
	opening := fmt.Sprintf(
		"This $%.2f purchase represents %.1f%% of your available disposable income.",
		cost, PercentageOfDisposable(cost, disposable),
	)

	switch level {
	case domain.RiskLow:
		return opening + `

Based on the rule-based assessment, this is a Low Risk purchase - it's small relative to your available funds.
However, this doesn't mean you should buy it automatically. Consider:
- Do you need this item?
- Is there a more affordable alternative?
- Could you wait and save for it?

Make the decision that's right for your financial situation.`
	case domain.RiskMedium:
		return opening + `

Based on the rule-based assessment, this is a Medium Risk purchase - it's a noticeable portion of your available funds.
Before making this purchase, consider:
- Is this a need or a want?
- Have you budgeted for this category?
- Could you find the item at a lower cost?
- Would it impact other financial goals?

Make a careful, informed decision.`
	default:
		return opening + `

Based on the rule-based assessment, this is a High Risk purchase - it's a very significant portion of your available funds.
This suggests the purchase could materially impact your financial flexibility.
Consider:
- Is this a critical need right now?
- Could you delay this purchase?
- Can you find a more affordable alternative?
- What would it mean for your savings and other goals?

Think carefully before committing to this purchase.`
	}
}

// fallbackAlternatives returns the three general alternatives, plus three
// more for Medium and High risk.
func fallbackAlternatives(level domain.RiskLevel) []string {
	out := make([]string, 0, len(generalAlternatives)+len(elevatedRiskAlternatives))
	out = append(out, generalAlternatives...)
	if level == domain.RiskMedium || level == domain.RiskHigh {
		out = append(out, elevatedRiskAlternatives...)
	}
	return out
}

func withDisclaimer(text string) string {
	return text + "\n\n---\n" + Disclaimer
}
