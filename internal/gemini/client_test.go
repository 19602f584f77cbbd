package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateImageRequestShape(t *testing.T) {
	var captured generateContentRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/flash-image:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{
					map[string]any{"text": "here you go"},
					map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": "AAAA"}},
				}}},
			},
		})
	}))
	defer ts.Close()

	client := New(Options{APIKey: "test-key", BaseURL: ts.URL + "/", HTTPClient: ts.Client()})
	resp, err := client.GenerateImage(context.Background(), ImageRequest{
		Model:       "flash-image",
		AspectRatio: "21:9",
		Parts: []Part{
			TextPart("Border pattern reference:"),
			ImagePart("image/jpeg", "BBBB"),
			TextPart("the prompt"),
		},
	})
	require.NoError(t, err)

	require.Len(t, captured.Contents, 1)
	parts := captured.Contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "Border pattern reference:", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MimeType)
	assert.Equal(t, "the prompt", parts[2].Text)
	require.NotNil(t, captured.GenerationConfig.ImageConfig)
	assert.Equal(t, "21:9", captured.GenerationConfig.ImageConfig.AspectRatio)
	assert.Contains(t, captured.GenerationConfig.ResponseModalities, "IMAGE")

	require.NotNil(t, resp.Image)
	assert.Equal(t, "data:image/png;base64,AAAA", resp.DataURL())
	assert.Equal(t, "here you go", resp.Text)
}

func TestExtractResponseFirstImageWins(t *testing.T) {
	resp := extractResponse(generateContentResponse{Candidates: []candidate{
		{Content: content{Parts: []part{{Text: "no image here"}}}},
		{Content: content{Parts: []part{
			{InlineData: &blob{MimeType: "image/png", Data: "FIRST"}},
			{InlineData: &blob{MimeType: "image/png", Data: "SECOND"}},
		}}},
		{Content: content{Parts: []part{{InlineData: &blob{MimeType: "image/png", Data: "THIRD"}}}}},
	}})

	require.NotNil(t, resp.Image)
	assert.Equal(t, "FIRST", resp.Image.Data)
	assert.Equal(t, "no image here", resp.Text)
}

func TestGenerateImageTextOnly(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"I cannot draw that"}]},"finishReason":"STOP"}]}`))
	}))
	defer ts.Close()

	client := New(Options{APIKey: "k", BaseURL: ts.URL})
	resp, err := client.GenerateImage(context.Background(), ImageRequest{Model: "m", Parts: []Part{TextPart("p")}})
	require.NoError(t, err)
	assert.Nil(t, resp.Image)
	assert.Equal(t, "", resp.DataURL())
	assert.Equal(t, "I cannot draw that", resp.Text)
	assert.Equal(t, "STOP", resp.FinishReason)
}

func TestGenerateImageAPIError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer ts.Close()

	client := New(Options{APIKey: "k", BaseURL: ts.URL})
	_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "m", Parts: []Part{TextPart("p")}})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "quota exceeded", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateImageMissingKey(t *testing.T) {
	client := New(Options{})
	assert.ErrorIs(t, client.Ready(), ErrNoAPIKey)

	_, err := client.GenerateImage(context.Background(), ImageRequest{Model: "m", Parts: []Part{TextPart("p")}})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
