package assistants

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/mcp"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llmutils"
	"github.com/effective-security/toolchat/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
)

// Turn is the outcome of one user message.
type Turn struct {
	// ID correlates the log entries of the turn.
	ID string
	// Content is the final assistant answer, or FallbackMessage.
	Content string
	// Iterations is the number of model round-trips.
	Iterations int
	// ToolCalls is the number of executed tool calls.
	ToolCalls int
	// CapReached is true when the turn stopped at MaxIterations.
	CapReached bool
}

// Agent runs a bounded conversation loop between the model and the tools.
// A turn is serialized, concurrent Chat calls wait for each other.
// Callbacks run without the history lock held, so they may read History.
type Agent struct {
	cfg    *Config
	llm    llms.Model
	router ToolRouter

	// turnLock serializes Run
	turnLock sync.Mutex
	// lock guards history and iterations
	lock       sync.Mutex
	history    []llms.Message
	iterations int
}

// NewAgent returns an agent with a fresh history.
func NewAgent(llm llms.Model, router ToolRouter, opts ...Option) *Agent {
	a := &Agent{
		cfg:    NewConfig(opts...),
		llm:    llm,
		router: router,
	}
	a.history = a.initialHistory()
	return a
}

// Name returns the name of the agent.
func (a *Agent) Name() string {
	return a.cfg.Name
}

// ModelName returns the model used for chat requests.
func (a *Agent) ModelName() string {
	return values.StringsCoalesce(a.cfg.Model, a.llm.GetName())
}

// Chat sends the user message and returns the final answer.
func (a *Agent) Chat(ctx context.Context, message string) (string, error) {
	turn, err := a.Run(ctx, message)
	if err != nil {
		return "", err
	}
	return turn.Content, nil
}

// Run executes one turn. Tool failures are reported to the model and do not
// fail the turn; a backend failure is returned wrapped with llms.ErrBackend.
func (a *Agent) Run(ctx context.Context, message string) (*Turn, error) {
	a.turnLock.Lock()
	defer a.turnLock.Unlock()

	cb := a.cfg.CallbackHandler
	agentName := a.Name()
	modelName := a.ModelName()

	turn := &Turn{ID: uuid.NewString()}
	started := time.Now()
	defer metricskey.PerfTurn.MeasureSince(started, agentName)

	cb.OnTurnStart(ctx, a, message)

	a.startTurn(message)

	for turn.Iterations < a.cfg.MaxIterations {
		turn.Iterations++
		a.setIterations(turn.Iterations)

		req := &llms.ChatRequest{
			Model:       a.cfg.Model,
			Messages:    a.History(),
			Tools:       a.toolDefinitions(),
			Temperature: a.cfg.Temperature,
			MaxTokens:   a.cfg.MaxTokens,
		}

		cb.OnModelCallStart(ctx, a, req)
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(req.Messages)), agentName, modelName)

		logger.ContextKV(ctx, xlog.DEBUG,
			"agent", agentName,
			"turn", turn.ID,
			"status", "model_call",
			"iteration", turn.Iterations,
			"messages", len(req.Messages),
			"bytes", llmutils.CountMessagesContentSize(req.Messages),
			"tools", len(req.Tools),
		)

		callStarted := time.Now()
		resp, err := a.llm.Chat(ctx, req)
		metricskey.PerfLLMCall.MeasureSince(callStarted, agentName, modelName)
		if err != nil {
			metricskey.StatsLLMCallsFailed.IncrCounter(1, agentName, modelName)
			metricskey.StatsTurnsFailed.IncrCounter(1, agentName)
			if !errors.Is(err, llms.ErrBackend) {
				err = errors.Mark(err, llms.ErrBackend)
			}
			err = errors.WithMessagef(err, "model call %d failed", turn.Iterations)
			logger.ContextKV(ctx, xlog.ERROR,
				"agent", agentName,
				"turn", turn.ID,
				"status", "model_call_failed",
				"err", err.Error(),
			)
			cb.OnTurnError(ctx, a, message, err)
			return nil, err
		}
		if resp == nil {
			resp = &llms.ChatResponse{}
		}

		metricskey.StatsLLMInputTokens.IncrCounter(float64(resp.Usage.PromptTokens), agentName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(resp.Usage.CompletionTokens), agentName, modelName)

		reply := resp.Message
		reply.Role = llms.RoleAssistant
		for i := range reply.ToolCalls {
			if reply.ToolCalls[i].ID == "" {
				reply.ToolCalls[i].ID = fmt.Sprintf("%s_%d_%d", reply.ToolCalls[i].Name, turn.Iterations, i)
			}
		}
		resp.Message = reply
		a.appendHistory(reply)

		cb.OnModelCallEnd(ctx, a, resp)

		if len(reply.ToolCalls) == 0 {
			turn.Content = reply.Content
			metricskey.StatsTurnsSucceeded.IncrCounter(1, agentName)
			logger.ContextKV(ctx, xlog.DEBUG,
				"agent", agentName,
				"turn", turn.ID,
				"status", "done",
				"iterations", turn.Iterations,
				"tool_calls", turn.ToolCalls,
				"content", slices.StringUpto(turn.Content, 64),
			)
			cb.OnTurnEnd(ctx, a, message, turn)
			return turn, nil
		}

		// tool calls run one at a time, in the order the model listed them
		for _, call := range reply.ToolCalls {
			a.appendHistory(a.executeTool(ctx, turn, call))
			turn.ToolCalls++
		}
	}

	turn.Content = FallbackMessage
	turn.CapReached = true
	metricskey.StatsTurnsCapReached.IncrCounter(1, agentName)
	logger.ContextKV(ctx, xlog.WARNING,
		"agent", agentName,
		"turn", turn.ID,
		"status", "max_iterations_reached",
		"iterations", turn.Iterations,
		"tool_calls", turn.ToolCalls,
	)
	cb.OnTurnEnd(ctx, a, message, turn)
	return turn, nil
}

func (a *Agent) executeTool(ctx context.Context, turn *Turn, call llms.ToolCall) llms.Message {
	cb := a.cfg.CallbackHandler
	cb.OnToolStart(ctx, a, call)

	var (
		res *mcp.CallResult
		err error
	)
	if call.Arguments == nil && call.RawArguments != "" {
		err = errors.Newf("invalid arguments for tool %q: %s", call.Name, call.RawArguments)
	} else {
		started := time.Now()
		res, err = a.router.CallTool(ctx, call.Name, call.Arguments)
		metricskey.PerfToolCall.MeasureSince(started, call.Name)
	}

	if err != nil {
		if errors.Is(err, mcp.ErrToolNotFound) {
			metricskey.StatsToolCallsNotFound.IncrCounter(1, call.Name)
		} else {
			metricskey.StatsToolCallsFailed.IncrCounter(1, call.Name)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"agent", a.Name(),
			"turn", turn.ID,
			"status", "tool_failed",
			"tool", call.Name,
			"err", err.Error(),
		)
		cb.OnToolError(ctx, a, call, err)
		return llms.ToolResultMessage(call, ToolErrorPrefix+err.Error())
	}

	output := res.Text()
	metricskey.StatsToolCallsSucceeded.IncrCounter(1, call.Name)
	logger.ContextKV(ctx, xlog.DEBUG,
		"agent", a.Name(),
		"turn", turn.ID,
		"status", "tool_called",
		"tool", call.Name,
		"output_size", len(output),
	)
	cb.OnToolEnd(ctx, a, call, output)
	return llms.ToolResultMessage(call, output)
}

// ClearHistory resets the conversation, keeping the system prompt.
func (a *Agent) ClearHistory() {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.history = a.initialHistory()
	a.iterations = 0
}

// History returns a copy of the conversation history.
func (a *Agent) History() []llms.Message {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.snapshot()
}

// Iterations returns the number of model round-trips of the last turn.
func (a *Agent) Iterations() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.iterations
}

// toolDefinitions returns the current catalog, or nothing when the provider
// cannot call functions.
func (a *Agent) toolDefinitions() []llms.Tool {
	if !a.llm.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
		return nil
	}
	return ToolDefinitions(a.router.Tools())
}

func (a *Agent) startTurn(message string) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.iterations = 0
	a.history = append(a.history, llms.TextMessage(llms.RoleUser, message))
}

func (a *Agent) setIterations(n int) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.iterations = n
}

func (a *Agent) appendHistory(msg llms.Message) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.history = append(a.history, msg)
}

func (a *Agent) snapshot() []llms.Message {
	list := make([]llms.Message, len(a.history))
	copy(list, a.history)
	return list
}

func (a *Agent) initialHistory() []llms.Message {
	if a.cfg.SystemPrompt == "" {
		return nil
	}
	return []llms.Message{llms.TextMessage(llms.RoleSystem, a.cfg.SystemPrompt)}
}
