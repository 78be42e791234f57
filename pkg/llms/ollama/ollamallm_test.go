package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestServer(t *testing.T, handler func(t *testing.T, body gjson.Result) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		status, resp := handler(t, gjson.ParseBytes(raw))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp+"\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	t.Setenv(hostEnvVarName, "")
	t.Setenv(modelEnvVarName, "")

	llm, err := New()
	require.NoError(t, err)
	assert.Equal(t, DefaultHost, llm.Host())
	assert.Equal(t, DefaultChatModel, llm.GetName())
	assert.Equal(t, llms.ProviderOllama, llm.GetProviderType())

	t.Setenv(hostEnvVarName, "10.0.0.5:11434")
	t.Setenv(modelEnvVarName, "llama3.1")
	llm, err = New(WithKeepAlive(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:11434", llm.Host())
	assert.Equal(t, "llama3.1", llm.GetName())
	require.NotNil(t, llm.keepAlive)

	llm, err = New(WithHost("https://ollama.example.com/"), WithModel("mistral"))
	require.NoError(t, err)
	assert.Equal(t, "https://ollama.example.com", llm.Host())
	assert.Equal(t, "mistral", llm.GetName())
}

func TestParseHost(t *testing.T) {
	tcases := []struct {
		host string
		exp  string
		err  string
	}{
		{host: "localhost:11434", exp: "http://localhost:11434"},
		{host: " http://127.0.0.1:11434/ ", exp: "http://127.0.0.1:11434"},
		{host: "https://gpu-box", exp: "https://gpu-box"},
		{host: "http://", err: `invalid Ollama host "http://"`},
		{host: "http://%zz", err: `invalid Ollama host "http://%zz"`},
	}
	for _, tc := range tcases {
		t.Run(tc.host, func(t *testing.T) {
			u, err := ParseHost(tc.host)
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.exp, u.String())
		})
	}
}

func TestChat_ToolCalls(t *testing.T) {
	srv := newTestServer(t, func(t *testing.T, body gjson.Result) (int, string) {
		assert.Equal(t, "qwen2.5:latest", body.Get("model").String())
		assert.False(t, body.Get("stream").Bool())
		assert.True(t, body.Get("stream").Exists())
		assert.Equal(t, 0.1, body.Get("options.temperature").Float())
		assert.Equal(t, int64(256), body.Get("options.num_predict").Int())

		msgs := body.Get("messages").Array()
		require.Len(t, msgs, 4)
		assert.Equal(t, "system", msgs[0].Get("role").String())
		assert.Equal(t, "assistant", msgs[2].Get("role").String())
		assert.Equal(t, "get_pods", msgs[2].Get("tool_calls.0.function.name").String())
		assert.Equal(t, "default", msgs[2].Get("tool_calls.0.function.arguments.namespace").String())
		assert.Equal(t, "tool", msgs[3].Get("role").String())
		assert.Equal(t, "pod-a", msgs[3].Get("content").String())

		tools := body.Get("tools").Array()
		require.Len(t, tools, 1)
		assert.Equal(t, "function", tools[0].Get("type").String())
		assert.Equal(t, "get_pods", tools[0].Get("function.name").String())
		assert.Equal(t, "List pods", tools[0].Get("function.description").String())
		assert.Equal(t, "string", tools[0].Get("function.parameters.properties.namespace.type").String())

		return http.StatusOK, `{"model":"qwen2.5:latest","created_at":"2025-01-01T00:00:00Z",` +
			`"message":{"role":"assistant","content":"","tool_calls":[` +
			`{"function":{"name":"get_logs","arguments":{"pod":"pod-a","lines":50}}}]},` +
			`"done":true,"done_reason":"stop","prompt_eval_count":120,"eval_count":15}`
	})

	llm, err := New(WithHost(srv.URL))
	require.NoError(t, err)

	call := llms.ToolCall{ID: "get_pods_1_0", Name: "get_pods", Arguments: map[string]any{"namespace": "default"}}
	resp, err := llm.Chat(context.Background(), &llms.ChatRequest{
		Temperature: 0.1,
		MaxTokens:   256,
		Messages: []llms.Message{
			llms.TextMessage(llms.RoleSystem, "be brief"),
			llms.TextMessage(llms.RoleUser, "logs of the first pod"),
			{Role: llms.RoleAssistant, ToolCalls: []llms.ToolCall{call}},
			llms.ToolResultMessage(call, "pod-a"),
		},
		Tools: []llms.Tool{
			llms.FunctionTool("get_pods", "List pods", map[string]any{
				"type": "object",
				"properties": map[string]any{
					"namespace": map[string]any{"type": "string", "description": "Namespace"},
				},
				"required": []string{"namespace"},
			}),
		},
	})
	require.NoError(t, err)
	require.True(t, resp.HasToolCalls())
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, llms.Usage{PromptTokens: 120, CompletionTokens: 15}, resp.Usage)

	tc := resp.Message.ToolCalls[0]
	assert.Empty(t, tc.ID)
	assert.Equal(t, "get_logs", tc.Name)
	assert.Equal(t, map[string]any{"pod": "pod-a", "lines": float64(50)}, tc.Arguments)
}

func TestChat_Text(t *testing.T) {
	srv := newTestServer(t, func(t *testing.T, body gjson.Result) (int, string) {
		assert.Equal(t, "llama3.1", body.Get("model").String())
		// options is always sent, null when no option is set
		assert.Equal(t, gjson.Null, body.Get("options").Type)
		assert.Empty(t, body.Get("tools").Array())
		return http.StatusOK, `{"model":"llama3.1","message":{"role":"assistant","content":"All good."},"done":true,"done_reason":"stop"}`
	})

	llm, err := New(WithHost(srv.URL))
	require.NoError(t, err)
	resp, err := llm.Chat(context.Background(), &llms.ChatRequest{
		Model:    "llama3.1",
		Messages: []llms.Message{llms.TextMessage(llms.RoleUser, "status?")},
	})
	require.NoError(t, err)
	assert.False(t, resp.HasToolCalls())
	assert.Equal(t, llms.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "All good.", resp.Message.Content)
}

func TestChat_Errors(t *testing.T) {
	t.Run("model not found", func(t *testing.T) {
		srv := newTestServer(t, func(t *testing.T, _ gjson.Result) (int, string) {
			return http.StatusNotFound, `{"error":"model \"nope\" not found, try pulling it first"}`
		})
		llm, err := New(WithHost(srv.URL), WithModel("nope"))
		require.NoError(t, err)
		_, err = llm.Chat(context.Background(), &llms.ChatRequest{
			Messages: []llms.Message{llms.TextMessage(llms.RoleUser, "hi")},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, llms.ErrBackend))
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		llm, err := New(WithHost(url), WithTimeout(time.Second))
		require.NoError(t, err)
		_, err = llm.Chat(context.Background(), &llms.ChatRequest{
			Messages: []llms.Message{llms.TextMessage(llms.RoleUser, "hi")},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, llms.ErrBackend))
	})

	t.Run("unsupported tool", func(t *testing.T) {
		llm, err := New(WithHost("http://localhost:1"))
		require.NoError(t, err)
		_, err = llm.Chat(context.Background(), &llms.ChatRequest{
			Messages: []llms.Message{llms.TextMessage(llms.RoleUser, "hi")},
			Tools:    []llms.Tool{{Type: "retrieval"}},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, llms.ErrBackend))
		assert.Contains(t, err.Error(), "tool type retrieval not supported")
	})
}
