package mcp

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/tidwall/gjson"
)

// Tool is a catalog entry advertised by a tool provider.
// Tools are immutable once listed.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// InputSchema is the JSON schema of the call arguments.
	InputSchema map[string]any `json:"inputSchema"`
	// Server is the name of the owning session.
	Server string `json:"server"`
}

// Owned returns a copy of the tool tagged with the server name.
func (t *Tool) Owned(server string) *Tool {
	c := *t
	c.Server = server
	return &c
}

func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func fromMCPTool(server string, t mcpgo.Tool) (*Tool, error) {
	if t.Name == "" {
		return nil, errors.Wrapf(ErrProtocol, "server %q listed a tool without name", server)
	}

	js, err := json.Marshal(t)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "unable to encode tool %q", t.Name), ErrProtocol)
	}

	var schema map[string]any
	res := gjson.GetBytes(js, "inputSchema")
	switch {
	case !res.Exists() || res.Type == gjson.Null:
		schema = emptyObjectSchema()
	case !res.IsObject():
		return nil, errors.Wrapf(ErrProtocol, "tool %q: inputSchema is not an object", t.Name)
	default:
		schema = map[string]any{}
		if err = json.Unmarshal([]byte(res.Raw), &schema); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "tool %q: invalid inputSchema", t.Name), ErrProtocol)
		}
		// mcp-go lists a tool without schema as {"type":""}
		if typ, _ := schema["type"].(string); typ == "" {
			if len(schema) <= 1 {
				schema = emptyObjectSchema()
			} else {
				schema["type"] = "object"
			}
		}
	}

	return &Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
		Server:      server,
	}, nil
}
