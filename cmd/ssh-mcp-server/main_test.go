package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const session = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}
{"jsonrpc":"2.0","method":"notifications/initialized"}
{"jsonrpc":"2.0","id":2,"method":"tools/list"}
{"jsonrpc":"2.0","id":3,"method":"resources/list"}
`

func execute(t *testing.T, input string, args ...string) ([]gjson.Result, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(input), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	var responses []gjson.Result
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line != "" {
			responses = append(responses, gjson.Parse(line))
		}
	}
	return responses, errOut.String(), err
}

func TestServe(t *testing.T) {
	res, errOut, err := execute(t, session, "--host", "192.168.1.100", "--username", "pi", "--password", "raspberry")
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "ssh-mcp-server", res[0].Get("result.serverInfo.name").String())
	assert.Equal(t, "exec", res[1].Get("result.tools.0.name").String())
	assert.Equal(t, "file:///network-troubleshooting", res[2].Get("result.resources.0.uri").String())

	assert.Contains(t, errOut, "SSH MCP Server running on stdio")
	assert.Contains(t, errOut, "Connected to: pi@192.168.1.100:22")
	assert.Contains(t, errOut, "Resources available: Network Troubleshooting Guide")

	res, errOut, err = execute(t, session,
		"--host", "192.168.1.100", "--port", "2222", "--username", "pi", "--key", "~/.ssh/id_rsa", "--disable-resources")
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, int64(0), res[2].Get("result.resources.#").Int())
	assert.Contains(t, errOut, "Connected to: pi@192.168.1.100:2222")
	assert.Contains(t, errOut, "Resources disabled (web search available)")
}

func TestFlags(t *testing.T) {
	_, errOut, err := execute(t, "", "--username", "pi", "--password", "raspberry")
	require.Error(t, err)
	assert.Contains(t, errOut, "Error: invalid SSH config: host is required")

	_, errOut, err = execute(t, "", "--host", "192.168.1.100", "--username", "pi")
	require.Error(t, err)
	assert.Contains(t, errOut, "Error: either password or private key must be provided")
	assert.Contains(t, errOut, "Use --help for usage information")
}
