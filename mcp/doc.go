// Package mcp connects to Model Context Protocol tool providers.
//
// Each provider runs as a child process and speaks JSON-RPC over its stdin
// and stdout. A Session owns one such process; the Router owns all sessions,
// merges their tool catalogs and routes a call to the session that
// advertised the tool.
//
//	r := mcp.NewRouter()
//	defer r.DisconnectAll()
//	if err := r.ConnectAll(ctx, cfg.MCPServers); err != nil {
//		return err
//	}
//	res, err := r.CallTool(ctx, "exec", map[string]any{"command": "uptime"})
package mcp

import "github.com/effective-security/xlog"

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "mcp")
