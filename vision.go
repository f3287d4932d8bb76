/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultModel    = "gemini-3-flash-preview"
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
)

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type visionPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type visionContent struct {
	Parts []visionPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []visionContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content visionContent `json:"content"`
	} `json:"candidates"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// VisionClient sends one prompt plus one image to a generateContent endpoint
// and returns the first text part of the first candidate.
type VisionClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func newVisionClient(cfg *Config) *VisionClient {
	endpoint := strings.TrimSuffix(cfg.endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	model := strings.TrimSpace(cfg.model)
	if model == "" {
		model = defaultModel
	}

	return &VisionClient{
		endpoint:   endpoint,
		model:      model,
		httpClient: &http.Client{Timeout: cfg.visionTimeout},
	}
}

// Generate performs the request. Cancelling ctx yields a UserCancelled error;
// the credential never appears in returned errors.
func (c *VisionClient) Generate(ctx context.Context, key, prompt string, photo *Photo, maxTokens int) (string, error) {
	if key == "" {
		return "", errNoCredential
	}

	body, err := json.Marshal(generateRequest{
		Contents: []visionContent{{
			Parts: []visionPart{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: photo.MimeType,
					Data:     base64.StdEncoding.EncodeToString(photo.Data),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:     0.1,
			MaxOutputTokens: maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding vision request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.endpoint, url.PathEscape(c.model), url.QueryEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", newError(KindNetworkOrHTTP, "Не удалось подготовить запрос", redactURL(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", errCancelled
		}
		return "", newError(KindNetworkOrHTTP, "Нет связи с AI-сервисом", redactURL(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", errCancelled
		}
		return "", newError(KindNetworkOrHTTP, "Ответ AI-сервиса оборван", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiErrorBody
		message := fmt.Sprintf("API ошибка: %d", resp.StatusCode)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		return "", &Error{Kind: KindNetworkOrHTTP, Status: resp.StatusCode, Message: message}
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", newError(KindMalformedResponse, "AI-сервис вернул не JSON", err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}

// redactURL drops the request URL (and with it the key) from transport errors.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
