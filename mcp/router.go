package mcp

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

// SessionFactory creates an unconnected session for the server config.
type SessionFactory func(cfg *ServerConfig) Session

// RouterOption configures the Router.
type RouterOption func(*Router)

// WithSessionFactory replaces the stdio session factory.
func WithSessionFactory(f SessionFactory) RouterOption {
	return func(r *Router) {
		r.factory = f
	}
}

// WithStrictToolNames rejects a provider whose tool name is already
// registered by another provider.
func WithStrictToolNames() RouterOption {
	return func(r *Router) {
		r.strict = true
	}
}

// Router owns the provider sessions, merges their catalogs and dispatches
// tool calls to the owning session.
type Router struct {
	factory SessionFactory
	strict  bool

	lock     sync.RWMutex
	sessions map[string]Session
	// order is the connect order of the sessions
	order []string
	// tools is the merged catalog: connect order, then catalog order
	tools []*Tool
	// index maps tool name to the first registrant
	index map[string]*Tool
}

// NewRouter returns an empty router.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		factory:  NewStdioSession,
		sessions: make(map[string]Session),
		index:    make(map[string]*Tool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConnectAll connects the servers sequentially in config order.
// The first failure is returned as *StartupError, sessions that were
// connected before it stay open.
func (r *Router) ConnectAll(ctx context.Context, configs []*ServerConfig) error {
	for _, cfg := range configs {
		if err := r.Connect(ctx, cfg); err != nil {
			return err
		}
	}
	logger.ContextKV(ctx, xlog.INFO,
		"status", "connected_all",
		"servers", len(configs),
		"tools", len(r.Tools()))
	return nil
}

// Connect connects one server, lists its tools and merges them into the
// catalog.
func (r *Router) Connect(ctx context.Context, cfg *ServerConfig) error {
	if cfg == nil || cfg.Name == "" {
		return &StartupError{Server: "", Err: errors.New("server name is required")}
	}

	r.lock.RLock()
	_, exists := r.sessions[cfg.Name]
	r.lock.RUnlock()
	if exists {
		return &StartupError{Server: cfg.Name, Err: errors.Newf("server %q is already connected", cfg.Name)}
	}

	s := r.factory(cfg)
	if err := s.Connect(ctx); err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "connect", "server", cfg.Name, "err", err.Error())
		return &StartupError{Server: cfg.Name, Err: err}
	}

	list, err := s.ListTools(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "list_tools", "server", cfg.Name, "err", err.Error())
		s.Disconnect()
		return &StartupError{Server: cfg.Name, Err: err}
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, exists = r.sessions[cfg.Name]; exists {
		s.Disconnect()
		return &StartupError{Server: cfg.Name, Err: errors.Newf("server %q is already connected", cfg.Name)}
	}

	owned := make([]*Tool, 0, len(list))
	for _, t := range list {
		if prev, ok := r.index[t.Name]; ok {
			if r.strict {
				s.Disconnect()
				return &StartupError{
					Server: cfg.Name,
					Err:    errors.Newf("tool %q is already provided by %q", t.Name, prev.Server),
				}
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"reason", "duplicate_tool",
				"tool", t.Name,
				"server", cfg.Name,
				"owner", prev.Server)
		}
		owned = append(owned, t.Owned(cfg.Name))
	}

	r.sessions[cfg.Name] = s
	r.order = append(r.order, cfg.Name)
	r.tools = append(r.tools, owned...)
	r.rebuildIndex()

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "registered",
		"server", cfg.Name,
		"tools", len(owned))
	return nil
}

// Tools returns the merged catalog in order.
func (r *Router) Tools() []*Tool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*Tool, len(r.tools))
	copy(list, r.tools)
	return list
}

// ToolsByServer returns the server names in connect order, and the tools
// grouped by server.
func (r *Router) ToolsByServer() ([]string, map[string][]*Tool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	servers := make([]string, len(r.order))
	copy(servers, r.order)

	grouped := make(map[string][]*Tool, len(r.order))
	for _, t := range r.tools {
		grouped[t.Server] = append(grouped[t.Server], t)
	}
	return servers, grouped
}

// Servers returns the connected server names in connect order.
func (r *Router) Servers() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	servers := make([]string, len(r.order))
	copy(servers, r.order)
	return servers
}

// CallTool dispatches the call to the session that registered the tool
// first. The session result or error is returned unchanged.
func (r *Router) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	r.lock.RLock()
	t, ok := r.index[name]
	var s Session
	if ok {
		s = r.sessions[t.Server]
	}
	r.lock.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrToolNotFound, "tool %q", name)
	}
	if s == nil || !s.IsConnected() {
		return nil, errors.Wrapf(ErrSessionNotConnected, "server %q", t.Server)
	}

	return s.CallTool(ctx, name, args)
}

// Disconnect closes one session and drops its tools.
func (r *Router) Disconnect(name string) {
	r.lock.Lock()
	s, ok := r.sessions[name]
	if ok {
		delete(r.sessions, name)
		r.order = removeString(r.order, name)
		tools := r.tools[:0:0]
		for _, t := range r.tools {
			if t.Server != name {
				tools = append(tools, t)
			}
		}
		r.tools = tools
		r.rebuildIndex()
	}
	r.lock.Unlock()

	if ok {
		disconnect(s)
	}
}

// DisconnectAll closes every session and clears the catalog.
// It is idempotent and never fails.
func (r *Router) DisconnectAll() {
	r.lock.Lock()
	sessions := make([]Session, 0, len(r.order))
	for _, name := range r.order {
		if s, ok := r.sessions[name]; ok {
			sessions = append(sessions, s)
		}
	}
	r.sessions = make(map[string]Session)
	r.order = nil
	r.tools = nil
	r.index = make(map[string]*Tool)
	r.lock.Unlock()

	for _, s := range sessions {
		disconnect(s)
	}
}

// disconnect does not let a failing session stop the shutdown of others
func disconnect(s Session) {
	defer func() {
		if v := recover(); v != nil {
			logger.KV(xlog.ERROR, "reason", "disconnect", "server", s.Name(), "err", v)
		}
	}()
	s.Disconnect()
}

// rebuildIndex must be called with the lock held.
func (r *Router) rebuildIndex() {
	r.index = make(map[string]*Tool, len(r.tools))
	for _, t := range r.tools {
		if _, ok := r.index[t.Name]; !ok {
			r.index[t.Name] = t
		}
	}
}

func removeString(list []string, s string) []string {
	res := list[:0:0]
	for _, v := range list {
		if v != s {
			res = append(res, v)
		}
	}
	return res
}
