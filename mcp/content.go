package mcp

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

// ContentTypeText is the type of a text block.
const ContentTypeText = "text"

// Content is one typed block of a tool result.
type Content struct {
	// Type is the MCP block type, e.g. text, image, audio, resource.
	Type string `json:"type"`
	// Text is set for text blocks.
	Text string `json:"text,omitempty"`
	// Raw is the JSON encoding of the block as received.
	Raw json.RawMessage `json:"-"`
}

// CallResult is the outcome of a successful tools/call.
type CallResult struct {
	Content []Content `json:"content"`
}

// Text flattens the result into a single string: text blocks contribute
// their text, any other block its JSON encoding, joined with a newline.
func (r *CallResult) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Content))
	for _, c := range r.Content {
		if c.Type == ContentTypeText {
			parts = append(parts, c.Text)
			continue
		}
		if len(c.Raw) > 0 {
			parts = append(parts, string(c.Raw))
			continue
		}
		js, _ := json.Marshal(c)
		parts = append(parts, string(js))
	}
	return strings.Join(parts, "\n")
}

// TextResult returns a result with the single text block.
func TextResult(text string) *CallResult {
	return &CallResult{
		Content: []Content{{Type: ContentTypeText, Text: text}},
	}
}

func fromToolResult(res *mcpgo.CallToolResult) (*CallResult, error) {
	result := &CallResult{
		Content: make([]Content, 0, len(res.Content)),
	}
	for _, c := range res.Content {
		block, err := toContent(c)
		if err != nil {
			return nil, err
		}
		result.Content = append(result.Content, block)
	}
	return result, nil
}

func toContent(c mcpgo.Content) (Content, error) {
	switch tc := c.(type) {
	case mcpgo.TextContent:
		return Content{Type: ContentTypeText, Text: tc.Text}, nil
	case *mcpgo.TextContent:
		return Content{Type: ContentTypeText, Text: tc.Text}, nil
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return Content{}, errors.Mark(errors.Wrap(err, "unable to encode content block"), ErrProtocol)
	}
	var hdr struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(raw, &hdr)
	return Content{Type: hdr.Type, Raw: raw}, nil
}
