package kubectl

import (
	"context"
	_ "embed"

	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Tool names.
const (
	ToolGetPods  = "get_pods"
	ToolGetNodes = "get_nodes"
	ToolKubectl  = "kubectl"
)

// GuideURI is the URI of the kubectl troubleshooting guide.
const GuideURI = "file:///kubectl-troubleshooting"

//go:embed docs/kubectl-troubleshooting.md
var kubectlGuide string

// GetPodsRequest is the input of get_pods.
type GetPodsRequest struct {
	Namespace string `json:"namespace,omitempty" jsonschema:"description=Kubernetes namespace (default: default)"`
}

// GetNodesRequest is the input of get_nodes.
type GetNodesRequest struct{}

// KubectlRequest is the input of the kubectl tool.
type KubectlRequest struct {
	Command string `json:"command" jsonschema:"description=kubectl command to execute (e.g. 'get pods -n default')"`
}

// Provider serves the Kubernetes tools.
type Provider struct {
	client *Client
}

var _ tools.Provider = (*Provider)(nil)

// New returns a provider for the kubectl config.
func New(cfg Config) *Provider {
	return &Provider{client: NewClient(cfg)}
}

// Name implements tools.Provider.
func (p *Provider) Name() string {
	return "kubernetes"
}

// Register implements tools.Provider.
func (p *Provider) Register(s *server.MCPServer) {
	s.AddTool(tools.NewTool[GetPodsRequest](ToolGetPods, "Get list of pods in a namespace"), p.handleGetPods)
	s.AddTool(tools.NewTool[GetNodesRequest](ToolGetNodes, "Get list of nodes in the cluster"), p.handleGetNodes)
	s.AddTool(tools.NewTool[KubectlRequest](ToolKubectl, "Execute kubectl command"), p.handleKubectl)

	s.AddResource(
		mcpgo.NewResource(GuideURI, "kubectl Troubleshooting Guide",
			mcpgo.WithResourceDescription("Comprehensive Kubernetes troubleshooting commands and workflows"),
			mcpgo.WithMIMEType(tools.MIMETypeMarkdown),
		),
		tools.TextResource(GuideURI, tools.MIMETypeMarkdown, kubectlGuide),
	)
}

func (p *Provider) handleGetPods(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	var r GetPodsRequest
	if err := req.BindArguments(&r); err != nil {
		return errorResult(ctx, ToolGetPods, err)
	}
	pods, err := p.client.GetPods(ctx, r.Namespace)
	if err != nil {
		return errorResult(ctx, ToolGetPods, err)
	}
	return tools.JSONResult(pods)
}

func (p *Provider) handleGetNodes(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	nodes, err := p.client.GetNodes(ctx)
	if err != nil {
		return errorResult(ctx, ToolGetNodes, err)
	}
	return tools.JSONResult(nodes)
}

func (p *Provider) handleKubectl(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	var r KubectlRequest
	if err := req.BindArguments(&r); err != nil {
		return errorResult(ctx, ToolKubectl, err)
	}
	out, err := p.client.Run(ctx, r.Command)
	if err != nil {
		return errorResult(ctx, ToolKubectl, err)
	}
	return mcpgo.NewToolResultText(out), nil
}

func errorResult(ctx context.Context, tool string, err error) (*mcpgo.CallToolResult, error) {
	logger.ContextKV(ctx, xlog.WARNING, "tool", tool, "err", err.Error())
	return mcpgo.NewToolResultError("Error: " + err.Error()), nil
}
