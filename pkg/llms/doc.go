// Package llms defines the language-model boundary used by the agent.
//
// A backend receives the full conversation history together with the tool
// definitions and returns one assistant message, optionally carrying tool
// calls. Subpackages provide the Ollama native and OpenAI compatible
// implementations.
package llms
