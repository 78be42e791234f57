// Package llmfactory creates the chat backend described by a ProviderConfig,
// a native Ollama server or any OpenAI compatible endpoint.
package llmfactory
