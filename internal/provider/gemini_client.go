package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/imagegate/gateway/internal/models"
)

// GeminiClient is the production Provider, issuing requests over plain
// net/http (no HTTP client library appears anywhere in the retrieval
// pack, so this stays on the standard library by design).
type GeminiClient struct {
	httpClient       *http.Client
	registry         *EndpointRegistry
	allowFallback    bool
}

func NewGeminiClient(registry *EndpointRegistry, timeout time.Duration, allowFallback bool) *GeminiClient {
	return &GeminiClient{
		httpClient:    &http.Client{Timeout: timeout},
		registry:      registry,
		allowFallback: allowFallback,
	}
}

func (c *GeminiClient) Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	out, err := c.generateOnce(ctx, in)
	if err == nil {
		return out, nil
	}

	jobErr, ok := err.(*models.JobError)
	if !ok || jobErr.Code != "SERVICE_OVERLOAD" || !c.allowFallback {
		return nil, err
	}

	ep, ok := c.registry.Lookup(in.Credential.Provider, in.Endpoint)
	if !ok {
		return nil, err
	}
	for _, fallback := range ep.Fallbacks {
		if fallback == in.Endpoint {
			continue
		}
		attempt := in
		attempt.Endpoint = fallback
		out, fallbackErr := c.generateOnce(ctx, attempt)
		if fallbackErr == nil {
			return out, nil
		}
	}
	return nil, err
}

func (c *GeminiClient) generateOnce(ctx context.Context, in GenerateInput) (*GenerateOutput, error) {
	ep, ok := c.registry.Lookup(in.Credential.Provider, in.Endpoint)
	if !ok {
		return nil, &models.JobError{Code: "GEMINI_ERROR", Message: fmt.Sprintf("unknown endpoint %s/%s", in.Credential.Provider, in.Endpoint), Retryable: true}
	}

	body, err := buildRequest(in)
	if err != nil {
		return nil, &models.JobError{Code: "INVALID_REQUEST", Message: err.Error(), Retryable: false}
	}

	url := ep.BaseURL
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &models.JobError{Code: "GEMINI_ERROR", Message: err.Error(), Retryable: true}
	}
	req.Header.Set("Content-Type", "application/json")

	switch ep.AuthStyle {
	case AuthStyleQueryParam:
		q := req.URL.Query()
		q.Set("key", string(in.Credential.Secret))
		req.URL.RawQuery = q.Encode()
	case AuthStyleBearerHeader:
		req.Header.Set("Authorization", "Bearer "+string(in.Credential.Secret))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.JobError{Code: "SERVER_ERROR", Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.JobError{Code: "SERVER_ERROR", Message: err.Error(), Retryable: true}
	}

	if jobErr := classifyStatus(resp.StatusCode, respBody); jobErr != nil {
		return nil, jobErr
	}

	return parseResponse(respBody, in.Model, in.Endpoint)
}

func buildRequest(in GenerateInput) ([]byte, error) {
	parts := []partWire{{Text: in.Prompt}}

	if in.ReferenceImage != "" {
		mime, data, err := parseDataURL(in.ReferenceImage)
		if err != nil {
			return nil, err
		}
		parts = append(parts, partWire{InlineDataCamel: &inlineDataWire{MimeTypeCamel: mime, Data: data}})
	}

	temperature := 0.7
	if in.Mode == models.ModeFinal {
		temperature = 1.0
	}

	var imgCfg *imageConfig
	if in.Resolution != "" || in.AspectRatio != "" || in.SampleCount > 0 {
		imgCfg = &imageConfig{
			ImageSize:      in.Resolution,
			AspectRatio:    in.AspectRatio,
			NumberOfImages: in.SampleCount,
		}
	}

	req := requestWire{
		Contents: []contentWire{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:        temperature,
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig:        imgCfg,
		},
	}
	return json.Marshal(req)
}

func parseResponse(raw []byte, modelUsed, endpointUsed string) (*GenerateOutput, error) {
	var resp responseWire
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &models.JobError{Code: "GEMINI_ERROR", Message: "malformed provider response", Retryable: true}
	}

	if resp.Error != nil {
		return nil, &models.JobError{Code: "GEMINI_ERROR", Message: resp.Error.Message, Retryable: true}
	}

	var images []Image
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			data, ok := part.inlineData()
			if !ok {
				continue
			}
			images = append(images, Image{
				URL:  fmt.Sprintf("data:%s;base64,%s", data.mime(), data.Data),
				Mime: data.mime(),
			})
		}
	}

	if len(images) == 0 {
		return nil, &models.JobError{Code: "NO_IMAGES", Message: "provider returned no image candidates", Retryable: false}
	}

	return &GenerateOutput{Images: images, ModelUsed: modelUsed, EndpointUsed: endpointUsed}, nil
}
