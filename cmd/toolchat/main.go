// Command toolchat is an interactive assistant that answers questions by
// calling tools exposed by MCP servers.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "toolchat")

var version = "0.1.0"

type flags struct {
	config  string
	model   string
	debug   bool
	verbose bool
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
	f := &flags{}
	root := &cobra.Command{
		Use:     "toolchat",
		Short:   "Chat with an LLM that can use MCP tools",
		Version: version,
		Long: `toolchat connects the MCP servers listed in the configuration, collects their
tools and starts an interactive chat. The model may call the tools to answer.

The configuration is read from --config, or from the first of
.toolchat.yaml, .ollama-mcp.json, config.json and ~/.config/ollama-mcp/config.json.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging(errOut, f)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runChat(cmd.Context(), f, in, out, errOut)
			if err != nil {
				fmt.Fprintf(errOut, "Error: %s\n\nRun with --help for usage information\n", err.Error())
			}
			return err
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVarP(&f.config, "config", "c", "", "path to the configuration file")
	root.Flags().StringVarP(&f.model, "model", "m", "", "model to use, overrides the configuration")
	root.PersistentFlags().BoolVar(&f.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "print model and tool calls")

	root.AddCommand(newInitCmd(f, out))
	return root
}

func setupLogging(w io.Writer, f *flags) {
	xlog.SetFormatter(xlog.NewStringFormatter(w))
	switch {
	case f.debug:
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	case f.verbose:
		xlog.SetGlobalLogLevel(xlog.INFO)
	default:
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}
}
