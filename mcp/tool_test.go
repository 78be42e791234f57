package mcp

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMCPTool(t *testing.T) {
	tcases := []struct {
		name   string
		tool   mcpgo.Tool
		exp    map[string]any
		expErr string
	}{
		{
			name: "no properties",
			tool: mcpgo.NewToolWithRawSchema("uptime", "", json.RawMessage(`{"type":"object","required":["host"]}`)),
			exp:  map[string]any{"type": "object", "required": []any{"host"}},
		},
		{
			name: "properties",
			tool: mcpgo.NewToolWithRawSchema("exec", "", json.RawMessage(`{"type":"object","properties":{"command":{"type":"string"}}}`)),
			exp: map[string]any{
				"type":       "object",
				"properties": map[string]any{"command": map[string]any{"type": "string"}},
			},
		},
		{
			name: "missing",
			tool: mcpgo.Tool{Name: "ping"},
			exp:  emptyObjectSchema(),
		},
		{
			name: "null",
			tool: mcpgo.NewToolWithRawSchema("ping", "", json.RawMessage(`null`)),
			exp:  emptyObjectSchema(),
		},
		{
			name: "no type",
			tool: mcpgo.NewToolWithRawSchema("ping", "", json.RawMessage(`{"required":["n"]}`)),
			exp:  map[string]any{"type": "object", "required": []any{"n"}},
		},
		{
			name:   "not an object",
			tool:   mcpgo.NewToolWithRawSchema("ping", "", json.RawMessage(`"object"`)),
			expErr: `tool "ping": inputSchema is not an object`,
		},
		{
			name:   "no name",
			tool:   mcpgo.Tool{},
			expErr: `server "alpha" listed a tool without name`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			tool, err := fromMCPTool("alpha", tc.tool)
			if tc.expErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expErr)
				assert.True(t, errors.Is(err, ErrProtocol))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alpha", tool.Server)
			assert.Equal(t, tc.exp, tool.InputSchema)
		})
	}
}
