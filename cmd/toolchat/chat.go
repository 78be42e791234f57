package main

import (
	"context"
	"fmt"
	"io"

	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/config"
	"github.com/effective-security/toolchat/mcp"
	"github.com/effective-security/toolchat/pkg/llmfactory"
	"github.com/effective-security/toolchat/repl"
	"github.com/effective-security/xlog"
)

func runChat(ctx context.Context, f *flags, in io.Reader, out, errOut io.Writer) error {
	fmt.Fprintln(errOut, "Toolchat Starting...")

	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	fmt.Fprintf(errOut, "Using model: %s\n", cfg.Model)

	llm, err := llmfactory.NewLLM(&cfg.Backend, cfg.Model)
	if err != nil {
		return err
	}

	var opts []mcp.RouterOption
	if cfg.StrictToolNames {
		opts = append(opts, mcp.WithStrictToolNames())
	}
	router := mcp.NewRouter(opts...)
	defer router.DisconnectAll()

	if err = router.ConnectAll(ctx, cfg.MCPServers); err != nil {
		return err
	}
	repl.PrintSummary(errOut, router.Tools())

	callback := assistants.Callback(assistants.NewPackageLoggerCallback(logger))
	if f.verbose {
		callback = assistants.NewPrinterCallback(errOut)
	}

	agent := assistants.NewAgent(llm, router,
		assistants.WithModel(cfg.Model),
		assistants.WithSystemPrompt(cfg.SystemPrompt),
		assistants.WithMaxIterations(cfg.MaxIterations),
		assistants.WithCallback(callback),
	)

	logger.ContextKV(ctx, xlog.INFO,
		"status", "chat_started",
		"model", agent.ModelName(),
		"servers", len(router.Servers()),
		"tools", len(router.Tools()),
	)

	fmt.Fprintln(errOut, "\n=== Chat Started (type \"exit\" to quit) ===")
	fmt.Fprintln(errOut)
	return repl.New(agent, router, in, out, errOut).Run(ctx)
}
