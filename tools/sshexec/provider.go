package sshexec

import (
	"context"
	_ "embed"
	"time"

	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolName is the name of the command execution tool.
const ToolName = "exec"

// DefaultTimeout is used when the request does not set a timeout.
const DefaultTimeout = 60 * time.Second

// GuideURI is the URI of the network troubleshooting guide.
const GuideURI = "file:///network-troubleshooting"

//go:embed docs/network-troubleshooting.md
var networkGuide string

// ExecRequest is the input of the exec tool.
type ExecRequest struct {
	Command string `json:"command" jsonschema:"description=The shell command to execute"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"description=Timeout in milliseconds (default: 60000),default=60000"`
}

// ErrorResult is returned in a failed call.
type ErrorResult struct {
	Error string `json:"error"`
}

// Option configures the provider.
type Option func(*Provider)

// WithoutResources disables the troubleshooting guide, for setups where a
// web search provider is available.
func WithoutResources() Option {
	return func(p *Provider) {
		p.disableResources = true
	}
}

// Provider serves the exec tool.
type Provider struct {
	executor         *Executor
	disableResources bool
}

var _ tools.Provider = (*Provider)(nil)

// New returns a provider running commands with the executor.
func New(executor *Executor, opts ...Option) *Provider {
	p := &Provider{executor: executor}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements tools.Provider.
func (p *Provider) Name() string {
	return "ssh"
}

// Register implements tools.Provider.
func (p *Provider) Register(s *server.MCPServer) {
	s.AddTool(tools.NewTool[ExecRequest](ToolName, "Execute a shell command on the remote server"), p.handleExec)

	if !p.disableResources {
		s.AddResource(
			mcpgo.NewResource(GuideURI, "Network Troubleshooting Guide",
				mcpgo.WithResourceDescription("Comprehensive Linux network troubleshooting commands and workflows"),
				mcpgo.WithMIMEType(tools.MIMETypeMarkdown),
			),
			tools.TextResource(GuideURI, tools.MIMETypeMarkdown, networkGuide),
		)
	}
}

func (p *Provider) handleExec(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	var r ExecRequest
	if err := req.BindArguments(&r); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if r.Command == "" {
		return errorResult("command is required")
	}

	timeout := DefaultTimeout
	if r.Timeout > 0 {
		timeout = time.Duration(r.Timeout) * time.Millisecond
	}

	res, err := p.executor.Exec(ctx, r.Command, timeout)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING, "tool", ToolName, "command", r.Command, "err", err.Error())
		return errorResult(err.Error())
	}
	return tools.JSONResult(res)
}

func errorResult(msg string) (*mcpgo.CallToolResult, error) {
	res, err := tools.JSONResult(ErrorResult{Error: msg})
	if err != nil {
		return nil, err
	}
	res.IsError = true
	return res, nil
}
