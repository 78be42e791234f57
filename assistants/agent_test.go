package assistants_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/mcp"
	"github.com/effective-security/toolchat/mocks/mockassistants"
	"github.com/effective-security/toolchat/mocks/mockllms"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func catalog() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        "execute_command",
			Description: "Execute a command on a remote host",
			Server:      "ssh",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{"type": "string"},
				},
				"required": []any{"command"},
			},
		},
		{
			Name:        "get_pods",
			Description: "List pods",
			Server:      "kubernetes",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
}

func toolReply(calls ...llms.ToolCall) *llms.ChatResponse {
	return &llms.ChatResponse{
		Message: llms.Message{Role: llms.RoleAssistant, ToolCalls: calls},
	}
}

func textReply(text string) *llms.ChatResponse {
	return &llms.ChatResponse{
		Message:    llms.TextMessage(llms.RoleAssistant, text),
		StopReason: "stop",
	}
}

func newMocks(t *testing.T) (*mockllms.MockModel, *mockassistants.MockToolRouter) {
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetName().Return("qwen2.5:latest").AnyTimes()
	model.EXPECT().GetProviderType().Return(llms.ProviderOllama).AnyTimes()
	router := mockassistants.NewMockToolRouter(ctrl)
	router.EXPECT().Tools().Return(catalog()).AnyTimes()
	return model, router
}

func TestAgent_PlainAnswer(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	model.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *llms.ChatRequest) (*llms.ChatResponse, error) {
			require.Len(t, req.Messages, 2)
			assert.Equal(t, llms.RoleSystem, req.Messages[0].Role)
			assert.Equal(t, assistants.DefaultSystemPrompt, req.Messages[0].Content)
			assert.Equal(t, llms.TextMessage(llms.RoleUser, "hello"), req.Messages[1])
			assert.Equal(t, assistants.ToolDefinitions(catalog()), req.Tools)
			assert.Empty(t, req.Model)
			return textReply("Hi there"), nil
		})

	agent := assistants.NewAgent(model, router)
	assert.Equal(t, assistants.DefaultName, agent.Name())
	assert.Equal(t, "qwen2.5:latest", agent.ModelName())

	answer, err := agent.Chat(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", answer)
	assert.Equal(t, 1, agent.Iterations())

	exp := []llms.Message{
		llms.TextMessage(llms.RoleSystem, assistants.DefaultSystemPrompt),
		llms.TextMessage(llms.RoleUser, "hello"),
		llms.TextMessage(llms.RoleAssistant, "Hi there"),
	}
	if diff := cmp.Diff(exp, agent.History()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestAgent_ToolRounds(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	args := map[string]any{"host": "web-1", "command": "df -h"}
	gomock.InOrder(
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(toolReply(
			llms.ToolCall{Name: "execute_command", Arguments: args},
			llms.ToolCall{ID: "call_2", Name: "get_pods"},
		), nil),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req *llms.ChatRequest) (*llms.ChatResponse, error) {
				// system, user, assistant, two tool results
				require.Len(t, req.Messages, 5)
				return toolReply(llms.ToolCall{ID: "call_3", Name: "get_pods"}), nil
			}),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(textReply("/ is 42% full"), nil),
	)
	gomock.InOrder(
		router.EXPECT().CallTool(gomock.Any(), "execute_command", args).Return(mcp.TextResult("42%"), nil),
		router.EXPECT().CallTool(gomock.Any(), "get_pods", gomock.Nil()).Return(mcp.TextResult("pod-a\npod-b"), nil),
		router.EXPECT().CallTool(gomock.Any(), "get_pods", gomock.Nil()).Return(mcp.TextResult("pod-a"), nil),
	)

	agent := assistants.NewAgent(model, router)
	turn, err := agent.Run(ctx, "how full is the disk?")
	require.NoError(t, err)
	assert.Equal(t, "/ is 42% full", turn.Content)
	assert.Equal(t, 3, turn.Iterations)
	assert.Equal(t, 3, turn.ToolCalls)
	assert.False(t, turn.CapReached)
	assert.NotEmpty(t, turn.ID)

	history := agent.History()
	// system + user + (1+2) + (1+1) + final
	assert.Len(t, history, 1+1+(1+2)+(1+1)+1)

	call1 := history[2].ToolCalls[0]
	assert.Equal(t, "execute_command_1_0", call1.ID)
	assert.Equal(t, llms.Message{
		Role:       llms.RoleTool,
		Content:    "42%",
		ToolCallID: "execute_command_1_0",
		ToolName:   "execute_command",
	}, history[3])
	assert.Equal(t, "call_2", history[4].ToolCallID)
	assert.Equal(t, "pod-a\npod-b", history[4].Content)
	assert.Equal(t, "call_3", history[6].ToolCallID)
	assert.Equal(t, llms.RoleAssistant, history[7].Role)
}

func TestAgent_MaxIterations(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	const maxIterations = 3
	model.EXPECT().Chat(gomock.Any(), gomock.Any()).
		Return(toolReply(llms.ToolCall{Name: "get_pods"}), nil).
		Times(maxIterations)
	router.EXPECT().CallTool(gomock.Any(), "get_pods", gomock.Any()).
		Return(mcp.TextResult("pod-a"), nil).
		Times(maxIterations)

	agent := assistants.NewAgent(model, router, assistants.WithMaxIterations(maxIterations))
	turn, err := agent.Run(ctx, "loop forever")
	require.NoError(t, err)
	assert.Equal(t, assistants.FallbackMessage, turn.Content)
	assert.True(t, turn.CapReached)
	assert.Equal(t, maxIterations, turn.Iterations)
	assert.Equal(t, maxIterations, agent.Iterations())

	// history is not rolled back
	assert.Len(t, agent.History(), 2+maxIterations*2)
}

func TestAgent_LastIterationAnswer(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	gomock.InOrder(
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(toolReply(llms.ToolCall{Name: "get_pods"}), nil),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(textReply("done"), nil),
	)
	router.EXPECT().CallTool(gomock.Any(), "get_pods", gomock.Any()).Return(mcp.TextResult("pod-a"), nil)

	agent := assistants.NewAgent(model, router, assistants.WithMaxIterations(2))
	turn, err := agent.Run(ctx, "list pods")
	require.NoError(t, err)
	assert.Equal(t, "done", turn.Content)
	assert.False(t, turn.CapReached)
}

func TestAgent_ToolErrors(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	notFound := errors.Wrapf(mcp.ErrToolNotFound, "tool %q", "reboot")
	invocation := &mcp.ToolInvocationError{Server: "ssh", Tool: "execute_command", Message: "permission denied"}

	gomock.InOrder(
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(toolReply(
			llms.ToolCall{ID: "a", Name: "reboot"},
			llms.ToolCall{ID: "b", Name: "execute_command", Arguments: map[string]any{"command": "rm -rf /"}},
		), nil),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(textReply("I could not do it"), nil),
	)
	gomock.InOrder(
		router.EXPECT().CallTool(gomock.Any(), "reboot", gomock.Any()).Return(nil, notFound),
		router.EXPECT().CallTool(gomock.Any(), "execute_command", gomock.Any()).Return(nil, invocation),
	)

	agent := assistants.NewAgent(model, router)
	answer, err := agent.Chat(ctx, "reboot the host")
	require.NoError(t, err)
	assert.Equal(t, "I could not do it", answer)

	history := agent.History()
	require.Len(t, history, 6)
	assert.Equal(t, llms.RoleTool, history[3].Role)
	assert.Equal(t, "a", history[3].ToolCallID)
	assert.Equal(t, `Error executing tool: tool "reboot": tool not found`, history[3].Content)
	assert.Equal(t, "Error executing tool: permission denied", history[4].Content)
	assert.True(t, strings.HasPrefix(history[4].Content, assistants.ToolErrorPrefix))
}

func TestAgent_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	call := llms.ToolCall{ID: "1", Name: "get_pods", RawArguments: "[1, 2]"}
	gomock.InOrder(
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(toolReply(call), nil),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(textReply("sorry"), nil),
	)
	// the router is never reached with undecodable arguments
	router.EXPECT().CallTool(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	agent := assistants.NewAgent(model, router)
	answer, err := agent.Chat(ctx, "pods?")
	require.NoError(t, err)
	assert.Equal(t, "sorry", answer)

	history := agent.History()
	require.Len(t, history, 5)
	assert.Equal(t, llms.RoleTool, history[3].Role)
	assert.Equal(t, `Error executing tool: invalid arguments for tool "get_pods": [1, 2]`, history[3].Content)
}

func TestAgent_BackendError(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	agent := assistants.NewAgent(model, router)
	answer, err := agent.Chat(ctx, "hello")
	require.Error(t, err)
	assert.Empty(t, answer)
	assert.True(t, errors.Is(err, llms.ErrBackend))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), "model call 1 failed")

	// the user message stays in history
	history := agent.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[1].Content)
}

func TestAgent_CatalogPerIteration(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetName().Return("gpt-4o").AnyTimes()
	model.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	router := mockassistants.NewMockToolRouter(ctrl)

	first := catalog()[:1]
	second := catalog()
	gomock.InOrder(
		router.EXPECT().Tools().Return(first),
		router.EXPECT().Tools().Return(second),
	)
	router.EXPECT().CallTool(gomock.Any(), gomock.Any(), gomock.Any()).Return(mcp.TextResult("ok"), nil)

	gomock.InOrder(
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req *llms.ChatRequest) (*llms.ChatResponse, error) {
				assert.Len(t, req.Tools, 1)
				assert.Equal(t, "gpt-4o-mini", req.Model)
				return toolReply(llms.ToolCall{Name: "execute_command"}), nil
			}),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req *llms.ChatRequest) (*llms.ChatResponse, error) {
				assert.Len(t, req.Tools, 2)
				return textReply(""), nil
			}),
	)

	agent := assistants.NewAgent(model, router,
		assistants.WithModel("gpt-4o-mini"),
		assistants.WithName("sre"),
		assistants.WithTemperature(0.2),
		assistants.WithMaxTokens(1024),
	)
	assert.Equal(t, "gpt-4o-mini", agent.ModelName())

	answer, err := agent.Chat(ctx, gofakeit.HackerPhrase())
	require.NoError(t, err)
	assert.Empty(t, answer)
}

func TestAgent_NoFunctionCalling(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	model := mockllms.NewMockModel(ctrl)
	model.EXPECT().GetName().Return("text-only").AnyTimes()
	model.EXPECT().GetProviderType().Return(llms.ProviderType("TEXT")).AnyTimes()
	router := mockassistants.NewMockToolRouter(ctrl)

	model.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *llms.ChatRequest) (*llms.ChatResponse, error) {
			assert.Empty(t, req.Tools)
			return textReply("hi"), nil
		})

	agent := assistants.NewAgent(model, router)
	answer, err := agent.Chat(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", answer)
}

func TestAgent_ClearHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps system prompt", func(t *testing.T) {
		model, router := newMocks(t)
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(textReply("ok"), nil)

		agent := assistants.NewAgent(model, router, assistants.WithSystemPrompt("be brief"))
		_, err := agent.Chat(ctx, "hi")
		require.NoError(t, err)
		assert.Len(t, agent.History(), 3)

		agent.ClearHistory()
		assert.Equal(t, []llms.Message{llms.TextMessage(llms.RoleSystem, "be brief")}, agent.History())
		assert.Equal(t, 0, agent.Iterations())
	})

	t.Run("no system prompt", func(t *testing.T) {
		model, router := newMocks(t)
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req *llms.ChatRequest) (*llms.ChatResponse, error) {
				require.Len(t, req.Messages, 1)
				assert.Equal(t, llms.RoleUser, req.Messages[0].Role)
				return textReply("ok"), nil
			})

		agent := assistants.NewAgent(model, router, assistants.WithSystemPrompt(""))
		assert.Empty(t, agent.History())
		_, err := agent.Chat(ctx, "hi")
		require.NoError(t, err)
		agent.ClearHistory()
		assert.Empty(t, agent.History())
	})
}

func TestAgent_Callbacks(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	model, router := newMocks(t)
	cb := mockassistants.NewMockCallback(ctrl)

	call := llms.ToolCall{ID: "1", Name: "get_pods"}
	gomock.InOrder(
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(toolReply(call), nil),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(textReply("two pods"), nil),
	)
	router.EXPECT().CallTool(gomock.Any(), "get_pods", gomock.Any()).Return(mcp.TextResult("pod-a\npod-b"), nil)

	gomock.InOrder(
		cb.EXPECT().OnTurnStart(gomock.Any(), gomock.Any(), "pods?"),
		cb.EXPECT().OnModelCallStart(gomock.Any(), gomock.Any(), gomock.Any()),
		cb.EXPECT().OnModelCallEnd(gomock.Any(), gomock.Any(), gomock.Any()),
		cb.EXPECT().OnToolStart(gomock.Any(), gomock.Any(), call),
		cb.EXPECT().OnToolEnd(gomock.Any(), gomock.Any(), call, "pod-a\npod-b"),
		cb.EXPECT().OnModelCallStart(gomock.Any(), gomock.Any(), gomock.Any()),
		cb.EXPECT().OnModelCallEnd(gomock.Any(), gomock.Any(), gomock.Any()),
		cb.EXPECT().OnTurnEnd(gomock.Any(), gomock.Any(), "pods?", gomock.Any()).Do(
			func(_ context.Context, _ *assistants.Agent, _ string, turn *assistants.Turn) {
				assert.Equal(t, 2, turn.Iterations)
				assert.Equal(t, 1, turn.ToolCalls)
			}),
	)

	agent := assistants.NewAgent(model, router, assistants.WithCallback(cb))
	_, err := agent.Chat(ctx, "pods?")
	require.NoError(t, err)
}

func TestAgent_CallbackReadsHistory(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	model, router := newMocks(t)
	cb := mockassistants.NewMockCallback(ctrl)

	call := llms.ToolCall{ID: "1", Name: "get_pods"}
	gomock.InOrder(
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(toolReply(call), nil),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(textReply("one pod"), nil),
	)
	router.EXPECT().CallTool(gomock.Any(), "get_pods", gomock.Any()).Return(mcp.TextResult("pod-a"), nil)

	cb.EXPECT().OnTurnStart(gomock.Any(), gomock.Any(), gomock.Any())
	cb.EXPECT().OnModelCallStart(gomock.Any(), gomock.Any(), gomock.Any()).Times(2)
	cb.EXPECT().OnModelCallEnd(gomock.Any(), gomock.Any(), gomock.Any()).Times(2)
	cb.EXPECT().OnToolStart(gomock.Any(), gomock.Any(), call)
	cb.EXPECT().OnToolEnd(gomock.Any(), gomock.Any(), call, "pod-a").Do(
		func(_ context.Context, agent *assistants.Agent, _ llms.ToolCall, _ string) {
			// system, user, assistant with the tool call
			assert.Len(t, agent.History(), 3)
			assert.Equal(t, 1, agent.Iterations())
		})
	cb.EXPECT().OnTurnEnd(gomock.Any(), gomock.Any(), "pods?", gomock.Any()).Do(
		func(_ context.Context, agent *assistants.Agent, _ string, _ *assistants.Turn) {
			assert.Len(t, agent.History(), 5)
			assert.Equal(t, 2, agent.Iterations())
		})

	agent := assistants.NewAgent(model, router, assistants.WithCallback(cb))

	done := make(chan error, 1)
	go func() {
		_, err := agent.Chat(ctx, "pods?")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Chat did not return while a callback read the history")
	}
}

func TestAgent_ErrorCallbacks(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	call := llms.ToolCall{ID: "1", Name: "get_pods"}
	gomock.InOrder(
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(toolReply(call), nil),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(nil, errors.New("503 service unavailable")),
	)
	router.EXPECT().CallTool(gomock.Any(), "get_pods", gomock.Any()).Return(nil, errors.New("broken pipe"))

	var out bytes.Buffer
	agent := assistants.NewAgent(model, router,
		assistants.WithName("sre"),
		assistants.WithCallback(assistants.NewPrinterCallback(&out)),
	)
	_, err := agent.Chat(ctx, "pods?")
	require.Error(t, err)

	printed := out.String()
	assert.Contains(t, printed, "Turn Start: sre\n")
	assert.Contains(t, printed, "Tool Requested: get_pods\n")
	assert.Contains(t, printed, "Tool Start: get_pods\n")
	assert.Contains(t, printed, "Tool Error: get_pods: broken pipe\n")
	assert.Contains(t, printed, "Turn Error: sre: model call 2 failed: 503 service unavailable\n")
}

func TestPrinterCallback_CapReached(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(toolReply(llms.ToolCall{Name: "get_pods"}), nil)
	router.EXPECT().CallTool(gomock.Any(), "get_pods", gomock.Any()).Return(mcp.TextResult("pod-a"), nil)

	var out bytes.Buffer
	agent := assistants.NewAgent(model, router,
		assistants.WithMaxIterations(1),
		assistants.WithCallback(assistants.NewPrinterCallback(&out)),
	)
	answer, err := agent.Chat(ctx, "pods?")
	require.NoError(t, err)
	assert.Equal(t, assistants.FallbackMessage, answer)

	printed := out.String()
	assert.Contains(t, printed, "Tool End: get_pods\nOutput: pod-a\n")
	assert.Contains(t, printed, "Turn End: toolchat, iterations: 1, tool calls: 1\nIteration limit reached\n")
}

func TestPackageLoggerCallback(t *testing.T) {
	ctx := context.Background()
	model, router := newMocks(t)

	call := llms.ToolCall{ID: "1", Name: "get_pods"}
	gomock.InOrder(
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(toolReply(call), nil),
		model.EXPECT().Chat(gomock.Any(), gomock.Any()).Return(textReply("ok"), nil),
	)
	router.EXPECT().CallTool(gomock.Any(), "get_pods", gomock.Any()).Return(mcp.TextResult("pod-a"), nil)

	cb := assistants.NewPackageLoggerCallback(xlog.NewPackageLogger("github.com/effective-security/toolchat", "assistants_test"))
	agent := assistants.NewAgent(model, router, assistants.WithCallback(cb))
	answer, err := agent.Chat(ctx, "pods?")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}

func TestNewConfig(t *testing.T) {
	cfg := assistants.NewConfig()
	assert.Equal(t, assistants.DefaultName, cfg.Name)
	assert.Equal(t, assistants.DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, assistants.DefaultSystemPrompt, cfg.SystemPrompt)
	assert.NotNil(t, cfg.CallbackHandler)

	cfg = assistants.NewConfig(assistants.WithMaxIterations(0), assistants.WithCallback(nil))
	assert.Equal(t, assistants.DefaultMaxIterations, cfg.MaxIterations)
	assert.IsType(t, &assistants.NoopCallback{}, cfg.CallbackHandler)
}

func TestToolDefinitions(t *testing.T) {
	defs := assistants.ToolDefinitions(catalog())
	require.Len(t, defs, 2)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "execute_command", defs[0].Function.Name)
	assert.Equal(t, "Execute a command on a remote host", defs[0].Function.Description)
	assert.Equal(t, []any{"command"}, defs[0].Function.Parameters["required"])

	assert.Empty(t, assistants.ToolDefinitions(nil))
}
