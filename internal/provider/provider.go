// Package provider drives the upstream image-generation API: builds the
// request for a given endpoint, issues it, classifies the response, and
// falls back across endpoints on overload.
package provider

import (
	"context"

	"github.com/imagegate/gateway/internal/models"
)

// Image is one generated image, always carried as a data URL so callers
// never need to distinguish base64-inline from remote-hosted results
// before uploading to the blob store.
type Image struct {
	URL  string
	Mime string
}

// GenerateInput is everything Generate needs for one attempt against one
// endpoint.
type GenerateInput struct {
	Credential     *models.Credential
	Prompt         string
	ReferenceImage string
	Mode           models.Mode
	Resolution     string
	AspectRatio    string
	SampleCount    int
	Model          string
	Endpoint       string
}

// GenerateOutput is a successful generation result.
type GenerateOutput struct {
	Images       []Image
	ModelUsed    string
	EndpointUsed string
}

// Provider is the capability interface for the upstream generative model,
// with an HTTP-backed production implementation and an in-memory fake for
// tests.
type Provider interface {
	Generate(ctx context.Context, in GenerateInput) (*GenerateOutput, error)
}
