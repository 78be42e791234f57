package llmutils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/toolchat/pkg/llms"
)

// ToJSON returns the compact JSON form of val, empty on error.
func ToJSON(val any) string {
	js, _ := json.Marshal(val)
	return string(js)
}

// PrintMessages is a debugging helper for the conversation history.
func PrintMessages(w io.Writer, msgs []llms.Message) {
	for _, m := range msgs {
		fmt.Fprintf(w, "%s: ", strings.ToUpper(string(m.Role)))
		switch {
		case m.Role == llms.RoleTool:
			fmt.Fprintf(w, "ToolResponse ID=%s, Name=%s, Content=%s\n", m.ToolCallID, m.ToolName, m.Content)
		case len(m.ToolCalls) > 0:
			if m.Content != "" {
				fmt.Fprintln(w, m.Content)
			} else {
				fmt.Fprintln(w)
			}
			for _, tc := range m.ToolCalls {
				fmt.Fprintf(w, "  ToolCall ID=%s, Func=%s(%s)\n", tc.ID, tc.Name, ToJSON(tc.Arguments))
			}
		default:
			fmt.Fprintln(w, m.Content)
		}
	}
}

// CountMessagesContentSize counts the size of the content in the messages
func CountMessagesContentSize(msgs []llms.Message) uint64 {
	var size uint64
	for _, m := range msgs {
		size += uint64(len(m.Role))
		size += uint64(len(m.Content))
		size += uint64(len(m.ToolCallID))
		size += uint64(len(m.ToolName))
		for _, tc := range m.ToolCalls {
			size += uint64(len(tc.ID))
			size += uint64(len(tc.Name))
			size += uint64(len(ToJSON(tc.Arguments)))
		}
	}
	return size
}

// EnsureEndsWithNewline ensures the message ends with a newline,
// it also removes any extra leading and trailing spaces.
func EnsureEndsWithNewline(s string) string {
	s = strings.TrimSpace(s)
	c := len(s)
	if c == 0 {
		return s
	}
	if s[c-1] != '\n' {
		return s + "\n"
	}
	return s
}
