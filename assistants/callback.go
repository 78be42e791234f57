package assistants

import (
	"context"
	"fmt"
	"io"

	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// NoopCallback does nothing.
type NoopCallback struct{}

func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

var _ Callback = (*NoopCallback)(nil)

func (l *NoopCallback) OnTurnStart(ctx context.Context, agent *Agent, input string) {}
func (l *NoopCallback) OnTurnEnd(ctx context.Context, agent *Agent, input string, turn *Turn) {
}
func (l *NoopCallback) OnTurnError(ctx context.Context, agent *Agent, input string, err error) {
}
func (l *NoopCallback) OnModelCallStart(ctx context.Context, agent *Agent, req *llms.ChatRequest) {
}
func (l *NoopCallback) OnModelCallEnd(ctx context.Context, agent *Agent, resp *llms.ChatResponse) {
}
func (l *NoopCallback) OnToolStart(ctx context.Context, agent *Agent, call llms.ToolCall) {}
func (l *NoopCallback) OnToolEnd(ctx context.Context, agent *Agent, call llms.ToolCall, output string) {
}
func (l *NoopCallback) OnToolError(ctx context.Context, agent *Agent, call llms.ToolCall, err error) {
}

// PrinterCallback is a callback handler that prints to the Writer.
type PrinterCallback struct {
	Out io.Writer
}

func NewPrinterCallback(out io.Writer) *PrinterCallback {
	return &PrinterCallback{Out: out}
}

var _ Callback = (*PrinterCallback)(nil)

func (l *PrinterCallback) OnTurnStart(ctx context.Context, agent *Agent, input string) {
	fmt.Fprintf(l.Out, "Turn Start: %s\n", agent.Name())
}

func (l *PrinterCallback) OnTurnEnd(ctx context.Context, agent *Agent, input string, turn *Turn) {
	fmt.Fprintf(l.Out, "Turn End: %s, iterations: %d, tool calls: %d\n", agent.Name(), turn.Iterations, turn.ToolCalls)
	if turn.CapReached {
		fmt.Fprintln(l.Out, "Iteration limit reached")
	}
}

func (l *PrinterCallback) OnTurnError(ctx context.Context, agent *Agent, input string, err error) {
	fmt.Fprintf(l.Out, "Turn Error: %s: %s\n", agent.Name(), err.Error())
}

func (l *PrinterCallback) OnModelCallStart(ctx context.Context, agent *Agent, req *llms.ChatRequest) {
	fmt.Fprintf(l.Out, "Model Call: %s, messages: %d, tools: %d\n", req.Model, len(req.Messages), len(req.Tools))
}

func (l *PrinterCallback) OnModelCallEnd(ctx context.Context, agent *Agent, resp *llms.ChatResponse) {
	for _, tc := range resp.Message.ToolCalls {
		fmt.Fprintf(l.Out, "Tool Requested: %s\n", tc.Name)
	}
}

func (l *PrinterCallback) OnToolStart(ctx context.Context, agent *Agent, call llms.ToolCall) {
	fmt.Fprintf(l.Out, "Tool Start: %s\n", call.Name)
	fmt.Fprintf(l.Out, "Input: %s\n", llmutils.ToJSON(call.Arguments))
}

func (l *PrinterCallback) OnToolEnd(ctx context.Context, agent *Agent, call llms.ToolCall, output string) {
	fmt.Fprintf(l.Out, "Tool End: %s\n", call.Name)
	fmt.Fprintf(l.Out, "Output: %s\n", slices.StringUpto(output, 512))
}

func (l *PrinterCallback) OnToolError(ctx context.Context, agent *Agent, call llms.ToolCall, err error) {
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", call.Name, err.Error())
}

// PackageLoggerCallback is a callback handler that prints to the logger.
type PackageLoggerCallback struct {
	logger *xlog.PackageLogger
}

func NewPackageLoggerCallback(logger *xlog.PackageLogger) *PackageLoggerCallback {
	return &PackageLoggerCallback{logger: logger}
}

var _ Callback = (*PackageLoggerCallback)(nil)

func (l *PackageLoggerCallback) OnTurnStart(ctx context.Context, agent *Agent, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "turn_start",
		"agent", agent.Name(),
		"input", slices.StringUpto(input, 64),
	)
}

func (l *PackageLoggerCallback) OnTurnEnd(ctx context.Context, agent *Agent, input string, turn *Turn) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "turn_end",
		"agent", agent.Name(),
		"iterations", turn.Iterations,
		"tool_calls", turn.ToolCalls,
		"cap_reached", turn.CapReached,
	)
}

func (l *PackageLoggerCallback) OnTurnError(ctx context.Context, agent *Agent, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "turn_error",
		"agent", agent.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLoggerCallback) OnModelCallStart(ctx context.Context, agent *Agent, req *llms.ChatRequest) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_start",
		"agent", agent.Name(),
		"model", req.Model,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
	)
}

func (l *PackageLoggerCallback) OnModelCallEnd(ctx context.Context, agent *Agent, resp *llms.ChatResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "model_call_end",
		"agent", agent.Name(),
		"message", resp.Message.Summary(),
		"stop_reason", resp.StopReason,
	)
}

func (l *PackageLoggerCallback) OnToolStart(ctx context.Context, agent *Agent, call llms.ToolCall) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", call.Name,
		"input", llmutils.ToJSON(call.Arguments),
	)
}

func (l *PackageLoggerCallback) OnToolEnd(ctx context.Context, agent *Agent, call llms.ToolCall, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", call.Name,
		"output", slices.StringUpto(output, 64),
	)
}

func (l *PackageLoggerCallback) OnToolError(ctx context.Context, agent *Agent, call llms.ToolCall, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", call.Name,
		"err", err.Error(),
	)
}
