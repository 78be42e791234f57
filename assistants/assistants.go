package assistants

import (
	"context"

	"github.com/effective-security/toolchat/mcp"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "assistants")

//go:generate mockgen -source=assistants.go -destination=../mocks/mockassistants/assistants_mock.gen.go -package mockassistants

// ToolRouter provides the merged tool catalog and dispatches calls by name.
// *mcp.Router implements it.
type ToolRouter interface {
	// Tools returns the current catalog.
	Tools() []*mcp.Tool
	// CallTool invokes the tool on the provider that owns it.
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallResult, error)
}

// Callback receives the agent events of a turn.
type Callback interface {
	OnTurnStart(ctx context.Context, agent *Agent, input string)
	OnTurnEnd(ctx context.Context, agent *Agent, input string, turn *Turn)
	OnTurnError(ctx context.Context, agent *Agent, input string, err error)
	OnModelCallStart(ctx context.Context, agent *Agent, req *llms.ChatRequest)
	OnModelCallEnd(ctx context.Context, agent *Agent, resp *llms.ChatResponse)
	OnToolStart(ctx context.Context, agent *Agent, call llms.ToolCall)
	OnToolEnd(ctx context.Context, agent *Agent, call llms.ToolCall, output string)
	OnToolError(ctx context.Context, agent *Agent, call llms.ToolCall, err error)
}

var _ ToolRouter = (*mcp.Router)(nil)

// ToolDefinitions converts the catalog to the function tools sent to the
// model.
func ToolDefinitions(list []*mcp.Tool) []llms.Tool {
	defs := make([]llms.Tool, 0, len(list))
	for _, t := range list {
		defs = append(defs, llms.FunctionTool(t.Name, t.Description, t.InputSchema))
	}
	return defs
}
