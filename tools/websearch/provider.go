package websearch

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/tools", "websearch")

// ToolName is the name of the search tool.
const ToolName = "web_search"

// Engine names.
const (
	EngineBrave  = "brave"
	EngineTavily = "tavily"
)

const toolDescription = "Search the web for current information, documentation, GitHub issues, " +
	"Stack Overflow answers, error solutions, or any information not in your training data. " +
	"Returns relevant web pages and news articles. " +
	"Use this when you need up-to-date information or solutions to specific problems."

// SearchRequest is the input of web_search.
type SearchRequest struct {
	Query string `json:"query" jsonschema:"description=The search query. Be specific and include relevant keywords (e.g. 'kubernetes CrashLoopBackOff github issues')"`
}

// Engine runs a query and renders the results as text.
type Engine interface {
	Name() string
	Search(ctx context.Context, query string) (string, error)
}

// NewEngine returns the named engine, Brave if name is empty.
func NewEngine(name, apiKey string) (Engine, error) {
	switch strings.ToLower(name) {
	case "", EngineBrave:
		return NewBrave(apiKey)
	case EngineTavily:
		return NewTavily(apiKey)
	default:
		return nil, errors.Errorf("unsupported search engine: %s", name)
	}
}

// Provider serves the web_search tool.
type Provider struct {
	engine Engine
}

var _ tools.Provider = (*Provider)(nil)

// New returns a provider searching with the engine.
func New(engine Engine) *Provider {
	return &Provider{engine: engine}
}

// Name implements tools.Provider.
func (p *Provider) Name() string {
	return "web-search"
}

// Register implements tools.Provider.
func (p *Provider) Register(s *server.MCPServer) {
	s.AddTool(tools.NewTool[SearchRequest](ToolName, toolDescription), p.handleSearch)
}

func (p *Provider) handleSearch(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	var r SearchRequest
	_ = req.BindArguments(&r)
	if strings.TrimSpace(r.Query) == "" {
		return mcpgo.NewToolResultError("Error: query parameter is required"), nil
	}

	text, err := p.engine.Search(ctx, r.Query)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "engine", p.engine.Name(), "query", r.Query, "err", err.Error())
		return mcpgo.NewToolResultError("Error performing web search: " + err.Error()), nil
	}
	return mcpgo.NewToolResultText(text), nil
}
