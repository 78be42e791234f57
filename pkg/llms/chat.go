package llms

import (
	"fmt"
	"strings"

	"github.com/effective-security/x/slices"
)

// Role is the type of chat message.
type Role string

const (
	// RoleSystem carries the system prompt.
	RoleSystem Role = "system"
	// RoleUser is a message typed by the user.
	RoleUser Role = "user"
	// RoleAssistant is a message produced by the model.
	RoleAssistant Role = "assistant"
	// RoleTool is the result of a tool invocation.
	RoleTool Role = "tool"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// ToolCalls is set on assistant messages that request tool invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolName is the name of the tool that produced a tool message.
	ToolName string `json:"tool_name,omitempty"`
}

// ToolCall is a call to a tool (as requested by the model) that should be executed.
type ToolCall struct {
	// ID is the unique identifier of the tool call, if the backend provides one.
	ID string `json:"id,omitempty"`
	// Name is the name of the tool to call.
	Name string `json:"name"`
	// Arguments are the structured arguments of the call.
	Arguments map[string]any `json:"arguments"`
	// RawArguments holds the arguments as sent by the backend when they could
	// not be decoded, Arguments is nil in that case.
	RawArguments string `json:"-"`
}

func (tc ToolCall) String() string {
	return fmt.Sprintf("ToolCall: %s (%s), args: %d", tc.ID, tc.Name, len(tc.Arguments))
}

// Tool describes a tool the model may call.
type Tool struct {
	// Type is the type of the tool, always "function".
	Type string `json:"type"`
	// Function is the function to call.
	Function *FunctionDefinition `json:"function,omitempty"`
}

// FunctionDefinition is a definition of a function that can be called by the model.
type FunctionDefinition struct {
	// Name is the name of the function.
	Name string `json:"name"`
	// Description is a description of the function.
	Description string `json:"description"`
	// Parameters is the JSON schema of the function arguments.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// FunctionTool returns a function tool definition.
func FunctionTool(name, description string, parameters map[string]any) Tool {
	return Tool{
		Type: "function",
		Function: &FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ChatRequest is a single non-streaming chat round-trip.
type ChatRequest struct {
	// Model overrides the backend default model when set.
	Model    string
	Messages []Message
	Tools    []Tool
	// Temperature is the sampling temperature, zero leaves the backend default.
	Temperature float64
	// MaxTokens limits the generated tokens, zero leaves the backend default.
	MaxTokens int
}

// ChatResponse is the assistant reply.
type ChatResponse struct {
	Message Message
	// StopReason is the reason the model stopped generating output.
	StopReason string
	Usage      Usage
}

// Usage reports token accounting, when the backend provides it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// HasToolCalls returns true if the reply requests tool invocations.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.Message.ToolCalls) > 0
}

// TextMessage is a helper to create a message with text content.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}

// ToolResultMessage is a helper to create a tool message answering the call.
func ToolResultMessage(call ToolCall, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}
}

// Summary returns a short single line description of the message for logs.
func (m Message) Summary() string {
	var b strings.Builder
	b.WriteString(string(m.Role))
	b.WriteString(": ")
	b.WriteString(slices.StringUpto(strings.ReplaceAll(m.Content, "\n", " "), 64))
	for _, tc := range m.ToolCalls {
		b.WriteString(" [")
		b.WriteString(tc.Name)
		b.WriteString("]")
	}
	return b.String()
}
