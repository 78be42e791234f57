package tools

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/schema"
	"github.com/effective-security/xlog"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "tools")

// MIMETypeMarkdown is the type of the troubleshooting guides.
const MIMETypeMarkdown = "text/markdown"

// Provider registers tools and resources on an MCP server.
type Provider interface {
	// Name returns the name of the provider.
	Name() string
	// Register adds the provider's tools and resources to s.
	Register(s *server.MCPServer)
}

// NewServer returns an MCP server with the providers registered.
func NewServer(name, version string, providers ...Provider) *server.MCPServer {
	s := server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
	)
	for _, p := range providers {
		p.Register(s)
		logger.KV(xlog.DEBUG, "server", name, "provider", p.Name())
	}
	return s
}

// Serve speaks MCP over in and out until ctx is cancelled or in is closed.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(logWriter{}, "", 0))

	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "stdio server failed")
	}
	return nil
}

// NewTool returns a tool whose input schema is generated from T.
func NewTool[T any](name, description string) mcpgo.Tool {
	return mcpgo.NewToolWithRawSchema(name, description, schema.MustOf[T]().RawMessage())
}

// JSONResult returns a text result with the indented JSON encoding of v.
func JSONResult(v any) (*mcpgo.CallToolResult, error) {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "unable to encode result")
	}
	return mcpgo.NewToolResultText(string(js)), nil
}

// TextResource returns a read handler serving a static text document.
func TextResource(uri, mimeType, text string) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcpgo.ReadResourceRequest) ([]mcpgo.ResourceContents, error) {
		return []mcpgo.ResourceContents{
			mcpgo.TextResourceContents{
				URI:      uri,
				MIMEType: mimeType,
				Text:     text,
			},
		}, nil
	}
}

// logWriter routes the stdio server diagnostics to the package logger.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	logger.KV(xlog.ERROR, "reason", "stdio", "err", string(p))
	return len(p), nil
}

// ExpandHome replaces a leading "~" with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
