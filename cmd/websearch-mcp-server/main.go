// Command websearch-mcp-server serves the web_search tool over stdio.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/toolchat/tools/websearch"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "websearch-mcp-server")

var version = "1.0.0"

// API key environment variables per engine.
var apiKeyEnv = map[string]string{
	websearch.EngineBrave:  "BRAVE_API_KEY",
	websearch.EngineTavily: "TAVILY_API_KEY",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	var (
		engineName string
		apiKey     string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:   "websearch-mcp-server --api-key <key>",
		Short: "Web Search MCP Server - Search the web using Brave Search or Tavily",
		Long: `Web Search MCP Server - Search the web using Brave Search or Tavily

Environment Variables:
  BRAVE_API_KEY      Alternative to --api-key flag for Brave Search
  TAVILY_API_KEY     Alternative to --api-key flag for Tavily`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(errOut, debug)

			name := strings.ToLower(engineName)
			key := values.StringsCoalesce(apiKey, os.Getenv(apiKeyEnv[name]))
			engine, err := websearch.NewEngine(name, key)
			if err != nil {
				fmt.Fprintf(errOut, "Error: %s\n", err.Error())
				if env, ok := apiKeyEnv[name]; ok && key == "" {
					fmt.Fprintf(errOut, "Provide via --api-key flag or %s environment variable\n", env)
				}
				return err
			}

			s := tools.NewServer("websearch-mcp-server", version, websearch.New(engine))
			fmt.Fprintf(errOut, "Web Search MCP server running on stdio (%s)\n", engine.Name())

			err = tools.Serve(cmd.Context(), s, in, out)
			if err != nil {
				logger.KV(xlog.ERROR, "reason", "serve", "err", err.Error())
			}
			return err
		},
	}
	cmd.SetOut(errOut)
	cmd.SetErr(errOut)

	f := cmd.Flags()
	f.StringVar(&engineName, "engine", websearch.EngineBrave, "search engine: brave|tavily")
	f.StringVar(&apiKey, "api-key", "", "search API key")
	f.BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func setupLogging(w io.Writer, debug bool) {
	xlog.SetFormatter(xlog.NewStringFormatter(w))
	if debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}
}
