// Command ssh-mcp-server serves the exec tool over stdio, running commands
// on a remote host over SSH.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/toolchat/tools/sshexec"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "ssh-mcp-server")

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
		cfg              sshexec.Config
		disableResources bool
		debug            bool
	)
	cmd := &cobra.Command{
		Use:     "ssh-mcp-server --host <host> --username <user> [options]",
		Short:   "SSH MCP Server - Execute commands on remote servers via SSH",
		Version: version,
		Example: `  # Using password authentication
  ssh-mcp-server --host 192.168.1.100 --username pi --password raspberry

  # Using SSH key authentication
  ssh-mcp-server --host 192.168.1.100 --username pi --key ~/.ssh/id_rsa

  # With web search available (disable local docs)
  ssh-mcp-server --host 192.168.1.100 --username pi --key ~/.ssh/id_rsa --disable-resources`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(errOut, debug)

			executor, err := sshexec.NewExecutor(cfg)
			if err != nil {
				fmt.Fprintf(errOut, "Error: %s\nUse --help for usage information\n", err.Error())
				return err
			}
			defer executor.Close()

			var opts []sshexec.Option
			if disableResources {
				opts = append(opts, sshexec.WithoutResources())
			}
			s := tools.NewServer("ssh-mcp-server", version, sshexec.New(executor, opts...))

			fmt.Fprintln(errOut, "SSH MCP Server running on stdio")
			fmt.Fprintf(errOut, "Connected to: %s@%s\n", cfg.Username, cfg.Address())
			if disableResources {
				fmt.Fprintln(errOut, "Resources disabled (web search available)")
			} else {
				fmt.Fprintln(errOut, "Resources available: Network Troubleshooting Guide")
			}

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
	f.StringVar(&cfg.Host, "host", "", "remote host IP or hostname")
	f.IntVar(&cfg.Port, "port", sshexec.DefaultPort, "SSH port")
	f.StringVar(&cfg.Username, "username", "", "SSH username")
	f.StringVar(&cfg.Password, "password", "", "SSH password")
	f.StringVar(&cfg.KeyPath, "key", "", "path to SSH private key")
	f.StringVar(&cfg.Passphrase, "passphrase", "", "passphrase for the private key")
	f.StringVar(&cfg.KnownHosts, "known-hosts", "", "known_hosts file to verify the host key, not verified if empty")
	f.BoolVar(&disableResources, "disable-resources", false, "disable documentation resources (use when web search is available)")
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
