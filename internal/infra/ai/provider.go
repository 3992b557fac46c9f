// Package ai selects the inference adapter named in the configuration.
package ai

import (
	"fmt"

	"github.com/bryanwahyu/geo-classifier/internal/config"
	"github.com/bryanwahyu/geo-classifier/internal/domain/geo"
	"github.com/bryanwahyu/geo-classifier/internal/infra/ai/coze"
	"github.com/bryanwahyu/geo-classifier/internal/infra/ai/openai"
)

// NewInference returns the configured adapter.
func NewInference(cfg *config.Config) (geo.Inference, error) {
	inf := cfg.Inference
	switch inf.Provider {
	case config.ProviderCoze:
		if inf.Token == "" {
			return nil, fmt.Errorf("inference.token (or INFERENCE_TOKEN) is required for provider %q", inf.Provider)
		}
		return coze.NewClient(inf.Endpoint, inf.Token, inf.ProjectID), nil
	case config.ProviderOpenAI:
		if inf.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("inference.openai.apiKey (or OPENAI_API_KEY) is required for provider %q", inf.Provider)
		}
		return openai.NewClient(inf.OpenAI.APIKey, inf.OpenAI.BaseURL, inf.OpenAI.Model), nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q", inf.Provider)
	}
}
