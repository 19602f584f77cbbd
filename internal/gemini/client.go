package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// ErrNoAPIKey is returned before any request is attempted when the client
// has no credential.
var ErrNoAPIKey = errors.New("gemini api key is empty")

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Ready reports whether the client can issue requests at all.
func (c *Client) Ready() error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

// GenerateImage issues exactly one generateContent call with image output
// enabled. A response without image data is not an error: Response.Image is
// nil and Response.Text carries whatever the model said instead.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (Response, error) {
	if err := c.Ready(); err != nil {
		return Response{}, err
	}
	if strings.TrimSpace(req.Model) == "" {
		return Response{}, errors.New("model is empty")
	}
	if len(req.Parts) == 0 {
		return Response{}, errors.New("request has no parts")
	}

	parts := make([]part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Image != nil {
			parts = append(parts, part{InlineData: &blob{Data: p.Image.Data, MimeType: p.Image.MimeType}})
			continue
		}
		parts = append(parts, part{Text: p.Text})
	}

	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	if ar := strings.TrimSpace(req.AspectRatio); ar != "" {
		payload.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: ar}
	}

	c.logger.Debug("gemini request", "model", req.Model, "parts", len(parts))

	decoded, err := c.generateContent(ctx, req.Model, payload)
	if err != nil {
		return Response{}, err
	}

	resp := extractResponse(decoded)
	c.logger.Debug("gemini response", "model", req.Model, "candidates", len(decoded.Candidates), "image", resp.Image != nil)
	return resp, nil
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (generateContentResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return generateContentResponse{}, &APIError{
			StatusCode: httpResp.StatusCode,
			Status:     httpResp.Status,
			Message:    errorMessage(rawBody),
		}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return generateContentResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil
}

// extractResponse picks the first inline image scanning candidates in order
// and, within each, parts in order. Text from every part is concatenated.
func extractResponse(resp generateContentResponse) Response {
	var out Response
	var text strings.Builder

	for _, cand := range resp.Candidates {
		if out.FinishReason == "" {
			out.FinishReason = cand.FinishReason
		}
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				if text.Len() > 0 {
					text.WriteString("\n")
				}
				text.WriteString(strings.TrimSpace(p.Text))
			}
			if out.Image == nil && p.InlineData != nil && p.InlineData.Data != "" && p.InlineData.MimeType != "" {
				out.Image = &Blob{MimeType: p.InlineData.MimeType, Data: p.InlineData.Data}
			}
		}
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" && text.Len() == 0 {
		text.WriteString("blocked: " + resp.PromptFeedback.BlockReason)
	}

	out.Text = strings.TrimSpace(text.String())
	return out
}

func errorMessage(raw []byte) string {
	var decoded errorResponse
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Error.Message != "" {
		return decoded.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities,omitempty"`
	ImageConfig        *imageConfig `json:"imageConfig,omitempty"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

type generateContentResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
