// Package repl implements the interactive chat loop of the toolchat CLI.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/effective-security/toolchat/mcp"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "repl")

// Prompt is printed before each input line.
const Prompt = "> "

// HelpText lists the commands.
const HelpText = `
Available commands:
  help     - Show this help message
  tools    - List all available MCP tools and servers
  list     - Alias for 'tools'
  clear    - Clear conversation history
  history  - Show conversation history
  exit     - Exit the client
  quit     - Alias for 'exit'

Or just ask a question to chat with the AI assistant!
`

// Agent answers the chat messages.
type Agent interface {
	Chat(ctx context.Context, message string) (string, error)
	ClearHistory()
	History() []llms.Message
}

// Catalog lists the available tools.
type Catalog interface {
	// ToolsByServer returns the server names in order, and their tools.
	ToolsByServer() ([]string, map[string][]*mcp.Tool)
}

// REPL reads commands and chat messages line by line.
type REPL struct {
	agent   Agent
	catalog Catalog
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
}

// New returns a REPL reading from in, writing answers to out and errors to
// errOut.
func New(agent Agent, catalog Catalog, in io.Reader, out, errOut io.Writer) *REPL {
	return &REPL{
		agent:   agent,
		catalog: catalog,
		in:      in,
		out:     out,
		errOut:  errOut,
	}
}

// Run reads lines until exit, EOF or ctx cancellation.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(r.out, Prompt)

		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out, "\n\nShutting down...")
			return nil
		case err := <-readErr:
			fmt.Fprintln(r.out, "\nGoodbye!")
			return err
		case line := <-lines:
			if r.Handle(ctx, line) {
				return nil
			}
		}
	}
}

// Handle executes one input line and returns true when the user asked to
// quit.
func (r *REPL) Handle(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)

	switch strings.ToLower(input) {
	case "":
		return false
	case "exit", "quit":
		fmt.Fprintln(r.out, "\nGoodbye!")
		return true
	case "clear":
		r.agent.ClearHistory()
		fmt.Fprintln(r.out, "Conversation history cleared.")
		fmt.Fprintln(r.out)
		return false
	case "history":
		fmt.Fprintln(r.out)
		llmutils.PrintMessages(r.out, r.agent.History())
		fmt.Fprintln(r.out)
		return false
	case "tools", "list":
		r.PrintTools()
		return false
	case "help":
		fmt.Fprint(r.out, HelpText)
		return false
	}

	response, err := r.agent.Chat(ctx, input)
	if err != nil {
		logger.ContextKV(ctx, xlog.DEBUG, "reason", "chat", "err", err.Error())
		fmt.Fprintf(r.errOut, "Error: %s\n", err.Error())
		return false
	}
	fmt.Fprintf(r.out, "\n%s\n", llmutils.EnsureEndsWithNewline(response))
	return false
}

// PrintTools prints the catalog grouped by server.
func (r *REPL) PrintTools() {
	servers, grouped := r.catalog.ToolsByServer()
	count := 0
	for _, list := range grouped {
		count += len(list)
	}
	fmt.Fprintf(r.out, "\nAvailable tools (%d):\n\n", count)

	for _, server := range servers {
		list := grouped[server]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(r.out, "%s:\n", server)
		for _, t := range list {
			desc := t.Description
			if desc == "" {
				desc = "No description"
			}
			fmt.Fprintf(r.out, "  - %s: %s\n", t.Name, desc)
		}
	}
	fmt.Fprintln(r.out)
}

// PrintSummary prints the number and the names of the available tools.
func PrintSummary(w io.Writer, tools []*mcp.Tool) {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	fmt.Fprintf(w, "\nTotal tools available: %d\n", len(tools))
	fmt.Fprintf(w, "Tools: %s\n", strings.Join(names, ", "))
}
