package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoContent is returned when the API answers without any usable candidate,
// typically because a safety filter blocked the response.
var ErrNoContent = errors.New("gemini returned no content")

// GeminiClient calls the Google AI Studio (Gemini) API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient constructs a client with the provided API key.
func NewGeminiClient(apiKey string) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	return &GeminiClient{
		apiKey:     apiKey,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Part is one piece of a generation request: plain text, or inline binary
// data such as an uploaded audio recording.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart builds a text-only part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// DataPart builds an inline binary part.
func DataPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// GenerateConfig tunes one generation call. ResponseMIMEType set to
// "application/json" requests strict structured output.
type GenerateConfig struct {
	ResponseMIMEType string
}

// ModelInfo describes one model reported by the list endpoint.
type ModelInfo struct {
	Name                       string   `json:"name"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// SupportsGeneration reports whether the model handles generateContent.
func (m ModelInfo) SupportsGeneration() bool {
	for _, method := range m.SupportedGenerationMethods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

// ListModels returns the models available to the configured API key.
func (c *GeminiClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var resp listModelsResponse
	url := fmt.Sprintf("%s/models?pageSize=200&key=%s", c.baseURL, c.apiKey)
	if err := c.doGET(ctx, url, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// GenerateContent issues a single synchronous generation call with the given
// parts. There are no retries: one attempt per logical request.
func (c *GeminiClient) GenerateContent(ctx context.Context, model string, parts []Part, cfg *GenerateConfig) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("at least one part required")
	}
	wireParts := make([]part, 0, len(parts))
	for _, p := range parts {
		if len(p.Data) > 0 {
			wireParts = append(wireParts, part{InlineData: &blob{MIMEType: p.MIMEType, Data: p.Data}})
			continue
		}
		wireParts = append(wireParts, part{Text: p.Text})
	}
	reqBody := generateRequest{
		Contents: []content{{Role: "user", Parts: wireParts}},
	}
	if cfg != nil && cfg.ResponseMIMEType != "" {
		reqBody.GenerationConfig = &generationConfig{ResponseMIMEType: cfg.ResponseMIMEType}
	}
	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, normalizeModel(model), c.apiKey)
	if err := c.doJSON(ctx, url, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		if resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", ErrNoContent, resp.PromptFeedback.BlockReason)
		}
		return "", ErrNoContent
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// GenerateText is a convenience wrapper for a text-only prompt.
func (c *GeminiClient) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	return c.GenerateContent(ctx, model, []Part{TextPart(prompt)}, nil)
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "models/")
	return model
}

func (c *GeminiClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *GeminiClient) doGET(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *GeminiClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("gemini api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("gemini api error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	return nil
}

type blob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type listModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
