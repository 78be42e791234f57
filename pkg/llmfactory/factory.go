package llmfactory

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llms/ollama"
	"github.com/effective-security/toolchat/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// CreateLLM returns the backend for the provider, using the first
// available preferred model.
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var (
		model llms.Model
		err   error
	)
	provType := cfg.ProviderType()
	switch provType {
	case llms.ProviderOllama:
		model, err = newOllama(cfg, preferredModels...)
	case llms.ProviderOpenAI:
		model, err = newOpenAI(cfg, preferredModels...)
	default:
		return nil, errors.Errorf("unsupported provider type: %s", provType)
	}
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG,
		"status", "created_llm",
		"type", provType,
		"model", model.GetName(),
	)
	return model, nil
}

func newOllama(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []ollama.Option
	if model := cfg.FindModel(preferredModels...); model != "" {
		opts = append(opts, ollama.WithModel(model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithHost(cfg.BaseURL))
	}
	if timeout := cfg.GetTimeout(); timeout > 0 {
		opts = append(opts, ollama.WithTimeout(timeout))
	}
	return ollama.New(opts...)
}

func newOpenAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []openai.Option
	if model := cfg.FindModel(preferredModels...); model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.OrgID))
	}
	if timeout := cfg.GetTimeout(); timeout > 0 {
		opts = append(opts, openai.WithTimeout(timeout))
	}
	return openai.New(opts...)
}
