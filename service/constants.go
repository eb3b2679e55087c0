package service

const (
	MaxPurchaseItemLength = 200

	// Upper bound for any monetary amount; keeps rule arithmetic finite.
	MaxAmount = 1e12

	// Rule engine tiers, fraction of disposable income.
	LowRiskRatio    = 0.30
	MediumRiskRatio = 0.60

	// Confidence scorer tiers.
	LowScoreThreshold    = 0.4
	MediumScoreThreshold = 0.7

	MaxAlternatives = 3

	DefaultExplanationModel = "gpt-4o-mini"
	DefaultExplanationURL   = "https://api.openai.com/v1/chat/completions"
	MaxExplanationRetries   = 1
	DefaultMaxTokens        = 500
)

const Disclaimer = "[DISCLAIMER] This analysis is for informational purposes only and is not financial advice. " +
	"You should make your own informed decision based on your complete financial situation. " +
	"Consider consulting with a financial advisor if needed."

const Recommendation = "This analysis is for informational purposes only. Make your own informed decision."

const FollowUpErrorMessage = "I apologize, but I encountered an error processing your question. Please try again."

const unexpectedErrorMessage = "unexpected error while evaluating purchase"
