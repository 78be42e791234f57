package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ClientName and ClientVersion are reported in the initialize handshake.
var (
	ClientName    = "toolchat"
	ClientVersion = "0.1.0"
)

// closeGracePeriod is how long Disconnect waits for the child to exit after
// its stdin is closed, before the process is killed.
const closeGracePeriod = 5 * time.Second

// Session is a connection to one tool provider.
//
//go:generate mockgen -source=session.go -destination=../mocks/mockmcp/session_mock.gen.go -package mockmcp
type Session interface {
	// Name returns the configured server name.
	Name() string
	// Connect spawns the provider and performs the initialize handshake.
	Connect(ctx context.Context) error
	// ListTools returns the provider catalog tagged with the server name.
	ListTools(ctx context.Context) ([]*Tool, error)
	// CallTool invokes the tool and returns its content blocks.
	CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error)
	// Disconnect closes the client and the child process. It is idempotent.
	Disconnect()
	// IsConnected returns true between a successful Connect and Disconnect.
	IsConnected() bool
}

type clientFactory func() (*client.Client, error)

type session struct {
	name      string
	timeout   time.Duration
	newClient clientFactory

	lock   sync.RWMutex
	client *client.Client
	cancel context.CancelFunc
}

// NewStdioSession returns a session that spawns cfg.Command and speaks MCP
// over its stdin and stdout.
func NewStdioSession(cfg *ServerConfig) Session {
	env := cfg.Environ()
	args := cfg.Args
	return &session{
		name:    cfg.Name,
		timeout: cfg.CallTimeout(),
		newClient: func() (*client.Client, error) {
			tr := transport.NewStdioWithOptions(cfg.Command, env, args,
				transport.WithCommandLogger(commandLogger{server: cfg.Name}),
			)
			return client.NewClient(tr), nil
		},
	}
}

// NewInProcessSession returns a session connected to an MCP server running in
// the same process.
func NewInProcessSession(name string, srv *server.MCPServer, timeout time.Duration) Session {
	return &session{
		name:    name,
		timeout: timeout,
		newClient: func() (*client.Client, error) {
			return client.NewInProcessClient(srv)
		},
	}
}

func (s *session) Name() string {
	return s.name
}

func (s *session) IsConnected() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.client != nil
}

func (s *session) Connect(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.client != nil {
		return nil
	}

	c, err := s.newClient()
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "unable to create client for %q", s.name), ErrConnection)
	}

	// the child process lives until Disconnect, not until the caller's deadline
	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err = c.Start(procCtx); err != nil {
		cancel()
		return errors.Mark(errors.Wrapf(err, "unable to start %q", s.name), ErrConnection)
	}

	if stderr, ok := client.GetStderr(c); ok && stderr != nil {
		go s.drainStderr(stderr)
	}

	initCtx, initCancel := s.withTimeout(ctx)
	defer initCancel()

	req := mcpgo.InitializeRequest{}
	req.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcpgo.Implementation{
		Name:    ClientName,
		Version: ClientVersion,
	}

	res, err := c.Initialize(initCtx, req)
	if err != nil {
		_ = c.Close()
		cancel()
		return errors.Mark(errors.Wrapf(err, "initialize %q", s.name), ErrConnection)
	}

	s.client = c
	s.cancel = cancel

	logger.ContextKV(ctx, xlog.INFO,
		"status", "connected",
		"server", s.name,
		"remote", res.ServerInfo.Name,
		"remote_version", res.ServerInfo.Version,
		"protocol", res.ProtocolVersion)
	return nil
}

func (s *session) ListTools(ctx context.Context) ([]*Tool, error) {
	c, err := s.connected()
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := c.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "tools/list on %q", s.name), ErrProtocol)
	}

	list := make([]*Tool, 0, len(res.Tools))
	for _, t := range res.Tools {
		tool, err := fromMCPTool(s.name, t)
		if err != nil {
			return nil, err
		}
		list = append(list, tool)
	}
	return list, nil
}

func (s *session) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	c, err := s.connected()
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if args == nil {
		args = map[string]any{}
	}
	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, newToolInvocationError(s.name, name, err)
	}

	result, err := fromToolResult(res)
	if err != nil {
		return nil, newToolInvocationError(s.name, name, err)
	}

	if res.IsError {
		msg := result.Text()
		if msg == "" {
			msg = "tool " + name + " reported an error"
		}
		return nil, &ToolInvocationError{
			Server:  s.name,
			Tool:    name,
			Message: msg,
		}
	}
	return result, nil
}

func (s *session) Disconnect() {
	s.lock.Lock()
	c, cancel := s.client, s.cancel
	s.client, s.cancel = nil, nil
	s.lock.Unlock()

	if c == nil {
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Close()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(closeGracePeriod):
		logger.KV(xlog.WARNING, "reason", "close_timeout", "server", s.name)
		cancel()
		err = <-done
	}
	cancel()

	if err != nil {
		logger.KV(xlog.DEBUG, "reason", "close", "server", s.name, "err", err.Error())
	}
	logger.KV(xlog.INFO, "status", "disconnected", "server", s.name)
}

func (s *session) connected() (*client.Client, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.client == nil {
		return nil, errors.Wrapf(ErrSessionNotConnected, "server %q", s.name)
	}
	return s.client, nil
}

func (s *session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *session) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.KV(xlog.INFO, "server", s.name, "stderr", scanner.Text())
	}
}

// commandLogger routes transport diagnostics to the package logger.
type commandLogger struct {
	server string
}

func (l commandLogger) Infof(format string, v ...any) {
	logger.KV(xlog.DEBUG, "server", l.server, "transport", fmt.Sprintf(format, v...))
}

func (l commandLogger) Errorf(format string, v ...any) {
	logger.KV(xlog.ERROR, "server", l.server, "transport", fmt.Sprintf(format, v...))
}
