package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/pbaille/journal/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	anthropicAPI   = "https://api.anthropic.com"
	anthropicModel = "claude-sonnet-4-20250514"
)

// AnthropicOptions configures the Anthropic backed classifier
type AnthropicOptions struct {
	Options
	APIKey string
	Model  string
}

// Anthropic classifies entries via the Anthropic messages API
type Anthropic struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewAnthropic creates a new Anthropic classifier
func NewAnthropic(opts AnthropicOptions) (*Anthropic, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key not set")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = anthropicAPI
	}
	if opts.Model == "" {
		opts.Model = anthropicModel
	}
	o := opts.Options.withDefaults()

	return &Anthropic{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		baseURL:    o.BaseURL,
		httpClient: o.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(o.RateLimit), o.Burst),
		logger:     o.Logger,
	}, nil
}

// ClassifyEntry asks the model for the entry's themes and sentiment
func (c *Anthropic) ClassifyEntry(ctx context.Context, text string) (*EntryClassification, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	start := time.Now()
	resp, err := c.callAPI(ctx, buildPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	c.logger.Debug("anthropic classification", zap.Duration("took", time.Since(start)))

	return parseResponse(resp)
}

func buildPrompt(text string) string {
	var sb strings.Builder

	sb.WriteString("Classify this journal entry by theme and sentiment. Return JSON only.\n\n")
	sb.WriteString("Entry:\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")

	sb.WriteString("Allowed themes:\n")
	for _, theme := range Themes {
		sb.WriteString("- ")
		sb.WriteString(theme)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(`Return a JSON object with this structure:
{
  "themes": [
    {"theme": "theme_name", "confidence": 0.85}
  ],
  "sentiment": "positive"
}

Rules:
- Pick 1-3 themes from the allowed list, most relevant first
- Confidence is 0.0-1.0 based on how certain the classification is
- Sentiment is exactly one of: positive, negative, neutral

Return ONLY the JSON, no other text.`)

	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Anthropic) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: 512,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: http request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: api error (status %d): %s", ErrUnavailable, resp.StatusCode, truncate(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", ErrMalformedResponse, err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("%w: api error: %s", ErrUnavailable, apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	return apiResp.Content[0].Text, nil
}

func parseResponse(resp string) (*EntryClassification, error) {
	// Clean up response - remove markdown code blocks if present
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var raw struct {
		Themes    []ThemeScore `json:"themes"`
		Sentiment string       `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(resp), &raw); err != nil {
		return nil, fmt.Errorf("%w: parse json: %v (response: %s)", ErrMalformedResponse, err, resp)
	}

	result := &EntryClassification{
		Sentiment: domain.Sentiment(strings.ToLower(strings.TrimSpace(raw.Sentiment))),
	}
	if !result.Sentiment.Valid() {
		result.Sentiment = domain.SentimentNeutral
	}

	for _, t := range raw.Themes {
		name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t.Theme)), " ", "_")
		if !slices.Contains(Themes, name) {
			continue
		}
		result.Themes = append(result.Themes, ThemeScore{Theme: name, Confidence: t.Confidence})
	}
	if len(result.Themes) == 0 {
		result.Themes = []ThemeScore{{Theme: fallbackTheme, Confidence: fallbackConfidence}}
	}

	return result, nil
}
