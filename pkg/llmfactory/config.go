package llmfactory

import (
	"slices"
	"strings"
	"time"

	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/xlog"
)

// ProviderConfig describes the chat backend.
type ProviderConfig struct {
	// Provider is the backend type: ollama|openai
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=ollama openai OLLAMA OPENAI"`
	// BaseURL is the server URL, for ollama it defaults to OLLAMA_HOST.
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	// Token is the API key of an OpenAI compatible endpoint.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"orgID,omitempty" yaml:"orgID,omitempty"`
	// DefaultModel is used when no preferred model is available.
	DefaultModel string `json:"defaultModel,omitempty" yaml:"defaultModel,omitempty"`
	// AvailableModels restricts the preferred models, empty allows any.
	AvailableModels []string `json:"availableModels,omitempty" yaml:"availableModels,omitempty"`
	// Timeout of a single chat round-trip, as a duration string.
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ProviderType returns the backend type, ollama when not set.
func (c *ProviderConfig) ProviderType() llms.ProviderType {
	if c.Provider == "" {
		return llms.ProviderOllama
	}
	return llms.ProviderType(strings.ToUpper(c.Provider))
}

// FindModel returns the first preferred model the provider serves, or the
// default model.
func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if model == "" {
			continue
		}
		if len(c.AvailableModels) == 0 || slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// GetTimeout returns the parsed Timeout, zero leaves the backend default.
func (c *ProviderConfig) GetTimeout() time.Duration {
	if c.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		logger.KV(xlog.WARNING,
			"reason", "invalid_timeout",
			"timeout", c.Timeout,
		)
		return 0
	}
	return d
}
