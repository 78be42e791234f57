package llms

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrBackend marks failures returned by a language-model backend.
var ErrBackend = errors.New("language model backend failed")

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderOllama is a local or remote Ollama server using the native chat API.
	ProviderOllama ProviderType = "OLLAMA"
	// ProviderOpenAI is any OpenAI compatible chat completions endpoint.
	ProviderOpenAI ProviderType = "OPENAI"
)

// Model is the chat boundary the agent drives.
//
//go:generate mockgen -source=llms.go -destination=../../mocks/mockllms/llms_mock.gen.go -package mockllms
type Model interface {
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GetName returns the default model name used when a request does not
	// specify one.
	GetName() string
	// Chat sends the full message history and the tool definitions and
	// returns a single assistant message. Implementations must not stream.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// Basic text or chat generation
	CapabilityText Capability = 1 << iota

	// Function/tool calling
	CapabilityFunctionCalling
	CapabilityMultiToolCalling

	// Open weight models / self-hosted
	CapabilitySelfHosted

	// System prompt support
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderOllama: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySelfHosted |
		CapabilitySystemPrompt,
}

func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap != 0
}
