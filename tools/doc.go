// Package tools hosts the MCP tool providers shipped with toolchat.
//
// A provider registers its tools and resources on an mcp-go server; the
// binaries under cmd/ serve one provider over stdio, so that the toolchat
// client can spawn them from its configuration:
//
//	s := tools.NewServer("kube-mcp-server", version,
//		kubectl.New(kubectl.Config{Kubeconfig: kubeconfig}),
//	)
//	err := tools.Serve(ctx, s, os.Stdin, os.Stdout)
//
// Tool input schemas are generated from the request structs with pkg/schema.
package tools
