package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spendsense/domain"
)

const systemPrompt = `You are a budgeting decision assistant helping users understand financial decisions.

IMPORTANT GUARDRAILS:
- You must NOT provide financial, tax, investment, or credit advice
- You must NOT recommend buying or not buying - only explain risks and suggest alternatives
- You must NOT make assumptions about user's future income or circumstances
- You must ALWAYS remind the user that this is not financial advice
- Be conservative and cautious in your explanations
- Focus on risk analysis, not recommendations

Your role is to:
1. Explain why a purchase is Low/Medium/High risk
2. Suggest safer alternatives or ways to reduce risk
3. Provide context and reasoning
4. Always remind the user to make their own decision

Be clear, concise, and avoid jargon.`

const structuredOutputInstruction = `

Respond with a single JSON object and nothing else:
{"decision": "<Low Risk|Medium Risk|High Risk>", "confidence_score": <number 0..1>, "explanation": "<text>", "alternatives": ["<text>", ...]}
"decision" must repeat the assessed risk level.`

// Phrases that turn a risk explanation into a buy/don't-buy or investment
// recommendation.
var advisoryPhrases = []string{
	"you should buy",
	"you should not buy",
	"you shouldn't buy",
	"don't buy",
	"do not buy",
	"i recommend buying",
	"i recommend not buying",
	"go ahead and buy",
	"you should invest",
	"invest in stocks",
	"invest in crypto",
	"investment advice",
	"take out a loan",
	"apply for a credit card",
	"tax deduction",
}

type AIConfig struct {
	APIKey     string
	APIURL     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	MaxTokens  int
}

// AIService talks to an OpenAI compatible chat completions endpoint.
type AIService struct {
	apiKey     string
	apiURL     string
	model      string
	timeout    time.Duration
	maxRetries int
	maxTokens  int
	enabled    bool
	httpClient *http.Client
}

type OpenAIRequest struct {
	Model     string               `json:"model"`
	Messages  []domain.ChatMessage `json:"messages"`
	MaxTokens int                  `json:"max_tokens,omitempty"`
}

type OpenAIResponse struct {
	Choices []struct {
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

func NewAIService(cfg AIConfig) *AIService {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultExplanationURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultExplanationModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxRetries > MaxExplanationRetries {
		cfg.MaxRetries = MaxExplanationRetries
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	return &AIService{
		apiKey:     cfg.APIKey,
		apiURL:     cfg.APIURL,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		maxTokens:  cfg.MaxTokens,
		enabled:    cfg.APIKey != "",
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (s *AIService) Enabled() bool {
	return s.enabled
}

// Explain asks the model for a structured risk explanation. The exchange is
// recorded in session when one is given.
func (s *AIService) Explain(
	ctx context.Context,
	req ExplanationRequest,
	session *domain.ConversationSession,
) (domain.ExplanationResult, error) {
	if !s.enabled {
		return domain.ExplanationResult{}, ErrRemoteDisabled
	}

	prompt := buildAnalysisPrompt(req)
	content, err := s.callLLM(ctx, []domain.ChatMessage{
		{Role: "system", Content: systemPrompt + structuredOutputInstruction},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return domain.ExplanationResult{}, err
	}

	parsed, err := parseStructuredExplanation(content)
	if err != nil {
		return domain.ExplanationResult{}, err
	}

	if domain.RiskLevel(parsed.Decision) != req.RiskLevel {
		return domain.ExplanationResult{}, fmt.Errorf("%w: decision %q does not match assessed %q",
			ErrMalformedExplanation, parsed.Decision, req.RiskLevel)
	}

	if err := checkGuardrails(parsed.Explanation); err != nil {
		return domain.ExplanationResult{}, err
	}

	alternatives := make([]string, 0, MaxAlternatives)
	for _, alt := range parsed.Alternatives {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		if err := checkGuardrails(alt); err != nil {
			return domain.ExplanationResult{}, err
		}
		alternatives = append(alternatives, alt)
		if len(alternatives) == MaxAlternatives {
			break
		}
	}
	if len(alternatives) == 0 {
		return domain.ExplanationResult{}, fmt.Errorf("%w: no usable alternatives", ErrMalformedExplanation)
	}

	if session != nil {
		session.Append(
			domain.ChatMessage{Role: "user", Content: prompt},
			domain.ChatMessage{Role: "assistant", Content: parsed.Explanation},
		)
	}

	return domain.ExplanationResult{
		Explanation:  withDisclaimer(parsed.Explanation),
		Alternatives: alternatives,
		Mode:         domain.ModeRemote,
	}, nil
}

// FollowUp answers a question using the session log as context and appends
// the exchange to it.
func (s *AIService) FollowUp(ctx context.Context, session *domain.ConversationSession, question string) (string, error) {
	if !s.enabled {
		return "", ErrRemoteDisabled
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: empty question", ErrExplanationFailed)
	}

	messages := []domain.ChatMessage{{Role: "system", Content: systemPrompt}}
	if session != nil {
		messages = append(messages, session.Messages()...)
	}
	messages = append(messages, domain.ChatMessage{Role: "user", Content: question})

	answer, err := s.callLLM(ctx, messages)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", ErrMalformedExplanation)
	}
	if err := checkGuardrails(answer); err != nil {
		return "", err
	}

	if session != nil {
		session.Append(
			domain.ChatMessage{Role: "user", Content: question},
			domain.ChatMessage{Role: "assistant", Content: answer},
		)
	}
	return answer, nil
}

func buildAnalysisPrompt(req ExplanationRequest) string {
	return fmt.Sprintf(`User Financial Situation:
- Monthly Income: $%.2f
- Available for Discretionary Spending (Disposable Income): $%.2f
- Purchase: %s
- Cost: $%.2f

Risk Assessment:
- Risk Level: %s
- Confidence Score: %.1f%%
- Percentage of Disposable Income: %.1f%%

Task:
1. Explain why this purchase is classified as %s
2. List the key financial risks or benefits
3. Suggest 2-3 safer alternatives or ways to reduce risk (e.g., waiting, buying used, finding cheaper options)
4. Provide any additional financial context

Important: Remember NOT to tell them to buy or not buy. Explain the situation and empower them to decide.`,
		req.MonthlyIncome, req.DisposableIncome, req.PurchaseItem, req.PurchaseCost,
		req.RiskLevel, req.ConfidenceScore*100, PercentageOfDisposable(req.PurchaseCost, req.DisposableIncome),
		req.RiskLevel)
}

func checkGuardrails(text string) error {
	lower := strings.ToLower(text)
	for _, phrase := range advisoryPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Errorf("%w: contains %q", ErrGuardrailViolation, phrase)
		}
	}
	return nil
}

// callLLM posts the conversation and returns the first choice. The whole
// call, retries included, is bounded by the service timeout.
func (s *AIService) callLLM(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	jsonData, err := json.Marshal(OpenAIRequest{
		Model:     s.model,
		Messages:  messages,
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExplanationFailed, err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ErrExplanationTimeout
			}
		}

		content, retryable, err := s.doRequest(ctx, jsonData)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrExplanationTimeout, err)
		}
		if !retryable {
			break
		}
	}

	return "", lastErr
}

func (s *AIService) doRequest(ctx context.Context, body []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrExplanationFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("%w: %v", ErrExplanationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return "", retryable, fmt.Errorf("%w: API error (status %d): %s", ErrExplanationFailed, resp.StatusCode, string(body))
	}

	var openAIResp OpenAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&openAIResp); err != nil {
		return "", false, fmt.Errorf("%w: decode response: %v", ErrMalformedExplanation, err)
	}

	if len(openAIResp.Choices) == 0 {
		return "", false, fmt.Errorf("%w: no choices in response", ErrMalformedExplanation)
	}

	return openAIResp.Choices[0].Message.Content, false, nil
}

var (
	_ ExplanationProvider = (*AIService)(nil)
	_ FollowUpResponder   = (*AIService)(nil)
)
