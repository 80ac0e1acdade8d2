package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/touristpay/bridge/types"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiModel   = "gemini-3-flash-preview"

	analyzePrompt = "Analyze this SG QR string and extract merchant details. String: %s"
	tipPrompt     = "Give a 1-sentence travel payment tip for a tourist paying at a %s in Singapore. Keep it helpful and brief."
)

var validate = validator.New()

// GeminiOracle resolves merchant intelligence through a generateContent
// style API. A single attempt is made per call; failures are reported to
// the caller, never retried here.
type GeminiOracle struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	ResponseMimeType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *geminiSchema `json:"responseSchema,omitempty"`
}

type geminiSchema struct {
	Type        string                  `json:"type"`
	Description string                  `json:"description,omitempty"`
	Properties  map[string]geminiSchema `json:"properties,omitempty"`
	Required    []string                `json:"required,omitempty"`
}

// analysisSchema constrains the model's reply to the shape of
// types.MerchantAnalysis.
var analysisSchema = &geminiSchema{
	Type: "OBJECT",
	Properties: map[string]geminiSchema{
		"name":            {Type: "STRING"},
		"uen":             {Type: "STRING"},
		"suggestedAmount": {Type: "NUMBER"},
		"category":        {Type: "STRING"},
		"trustScore":      {Type: "NUMBER", Description: "1-100"},
	},
	Required: []string{"name", "uen", "category"},
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiOption configures a GeminiOracle.
type GeminiOption func(*GeminiOracle)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) GeminiOption {
	return func(g *GeminiOracle) {
		g.baseURL = url
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiOracle) {
		g.client = c
	}
}

// WithModel overrides the model name.
func WithModel(model string) GeminiOption {
	return func(g *GeminiOracle) {
		g.model = model
	}
}

// NewGeminiOracle creates a merchant intelligence client backed by a
// generative model API.
func NewGeminiOracle(apiKey string, opts ...GeminiOption) *GeminiOracle {
	g := &GeminiOracle{
		apiKey:  apiKey,
		baseURL: geminiBaseURL,
		model:   geminiModel,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Analyze extracts merchant details from a raw payment-code string. The
// model is asked for a JSON document matching types.MerchantAnalysis; a
// response that fails validation is treated the same as a transport error.
func (g *GeminiOracle) Analyze(ctx context.Context, rawCode string) (*types.MerchantAnalysis, error) {
	text, err := g.generate(ctx, fmt.Sprintf(analyzePrompt, rawCode), analysisSchema)
	if err != nil {
		return nil, err
	}

	var analysis types.MerchantAnalysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, &types.BridgeError{
			Code:    types.ErrOracle,
			Message: fmt.Sprintf("malformed analysis payload: %v", err),
		}
	}

	if err := validate.Struct(&analysis); err != nil {
		return nil, &types.BridgeError{
			Code:    types.ErrOracle,
			Message: fmt.Sprintf("analysis validation failed: %v", err),
		}
	}

	return &analysis, nil
}

// Tip returns a short advisory for the merchant category. Failures degrade
// to the fixed default string so callers never see an error surface here.
func (g *GeminiOracle) Tip(ctx context.Context, category string) (string, error) {
	text, err := g.generate(ctx, fmt.Sprintf(tipPrompt, category), nil)
	if err != nil {
		return DefaultTip, nil
	}
	return text, nil
}

func (g *GeminiOracle) generate(ctx context.Context, prompt string, schema *geminiSchema) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}
	if schema != nil {
		reqBody.GenerationConfig = &geminiGenConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("intelligence request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr geminiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return "", &types.BridgeError{
				Code:    types.ErrOracle,
				Message: fmt.Sprintf("intelligence API error (%d): %s", resp.StatusCode, apiErr.Error.Message),
			}
		}
		return "", &types.BridgeError{
			Code:    types.ErrOracle,
			Message: fmt.Sprintf("intelligence API returned status %d", resp.StatusCode),
		}
	}

	var out geminiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", &types.BridgeError{
			Code:    types.ErrOracle,
			Message: "intelligence API returned no candidates",
		}
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}
