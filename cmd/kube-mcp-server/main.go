// Command kube-mcp-server serves Kubernetes tools over stdio.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/toolchat/tools/kubectl"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "kube-mcp-server")

var version = "1.0.0"

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
		cfg   kubectl.Config
		debug bool
	)
	cmd := &cobra.Command{
		Use:           "kube-mcp-server",
		Short:         "Kubernetes MCP Server - inspect a cluster with kubectl",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(errOut, debug)

			cfg.Kubeconfig = tools.ExpandHome(cfg.Kubeconfig)
			s := tools.NewServer("kube-mcp-server", version, kubectl.New(cfg))

			fmt.Fprintln(errOut, "Kubernetes MCP server running on stdio")
			fmt.Fprintln(errOut, "Resources available: kubectl Troubleshooting Guide")

			err := tools.Serve(cmd.Context(), s, in, out)
			if err != nil {
				logger.KV(xlog.ERROR, "reason", "serve", "err", err.Error())
			}
			return err
		},
	}
	cmd.SetOut(errOut)
	cmd.SetErr(errOut)

	f := cmd.Flags()
	f.StringVar(&cfg.Kubeconfig, "kubeconfig", "", "path to the kubeconfig file, kubectl defaults apply if empty")
	f.StringVar(&cfg.Context, "context", "", "kubeconfig context to use")
	f.StringVar(&cfg.Binary, "kubectl", kubectl.DefaultBinary, "kubectl executable")
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
