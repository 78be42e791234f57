package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/effective-security/toolchat/config"
	"github.com/effective-security/toolchat/tools"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const serverModeEnv = "TOOLCHAT_TEST_MCP_SERVER"

// TestMain turns the test binary into a stdio MCP server when started by
// the chat tests.
func TestMain(m *testing.M) {
	if os.Getenv(serverModeEnv) == "1" {
		s := tools.NewServer("uptime-server", "1.0.0", uptimeProvider{})
		if err := tools.Serve(context.Background(), s, os.Stdin, os.Stdout); err != nil {
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type uptimeRequest struct {
	Host string `json:"host" jsonschema:"description=Host name"`
}

type uptimeProvider struct{}

func (uptimeProvider) Name() string { return "uptime" }

func (uptimeProvider) Register(s *server.MCPServer) {
	s.AddTool(tools.NewTool[uptimeRequest]("get_uptime", "Returns the uptime of a host"),
		func(_ context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return mcpgo.NewToolResultText(req.GetString("host", "") + " up 3 days"), nil
		})
}

// newOllama returns a backend that asks for get_uptime once, then answers
// with the tool output.
func newOllama(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body := gjson.ParseBytes(raw)
		calls.Add(1)

		msgs := body.Get("messages").Array()
		last := msgs[len(msgs)-1]
		w.Header().Set("Content-Type", "application/json")
		if last.Get("role").String() == "tool" {
			fmt.Fprintf(w, `{"model":"qwen2.5:latest","message":{"role":"assistant","content":"web-1 is %s."},"done":true}`,
				strings.TrimPrefix(last.Get("content").String(), "web-1 "))
			return
		}
		assert.Equal(t, "get_uptime", body.Get("tools.0.function.name").String())
		_, _ = io.WriteString(w, `{"model":"qwen2.5:latest","message":{"role":"assistant","content":"",`+
			`"tool_calls":[{"function":{"name":"get_uptime","arguments":{"host":"web-1"}}}]},"done":true}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	js, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, js, 0o600))
	return path
}

func execute(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(input), &out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestChat(t *testing.T) {
	srv, calls := newOllama(t)
	path := writeConfig(t, map[string]any{
		"backend": map[string]any{"provider": "ollama", "baseURL": srv.URL},
		"mcpServers": []map[string]any{
			{
				"name":    "uptime-server",
				"command": os.Args[0],
				"env":     map[string]string{serverModeEnv: "1"},
				"timeout": "10s",
			},
		},
	})

	out, errOut, err := execute(t, "how long is web-1 up?\nexit\n", "--config", path, "--model", "qwen2.5:latest")
	require.NoError(t, err)
	assert.Equal(t, "> \nweb-1 is up 3 days.\n\n> \nGoodbye!\n", out)
	assert.Equal(t, int32(2), calls.Load())

	assert.Contains(t, errOut, "Using model: qwen2.5:latest")
	assert.Contains(t, errOut, "Total tools available: 1\nTools: get_uptime\n")
	assert.Contains(t, errOut, `=== Chat Started (type "exit" to quit) ===`)
}

func TestChat_Errors(t *testing.T) {
	t.Run("no config", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("HOME", t.TempDir())

		_, errOut, err := execute(t, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrNotFound)
		assert.Contains(t, errOut, "Error: searched .toolchat.yaml")
		assert.Contains(t, errOut, "Run with --help for usage information")
	})

	t.Run("server fails to start", func(t *testing.T) {
		path := writeConfig(t, map[string]any{
			"mcpServers": []map[string]any{
				{"name": "broken", "command": filepath.Join(t.TempDir(), "missing-server")},
			},
		})
		_, errOut, err := execute(t, "", "--config", path)
		require.Error(t, err)
		assert.Contains(t, errOut, "broken")
	})
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolchat.yaml")

	out, _, err := execute(t, "", "init", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "Configuration written to "+path+"\n", out)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Sample().MCPServers[0].Name, cfg.MCPServers[0].Name)
	assert.Len(t, cfg.MCPServers, 3)

	_, _, err = execute(t, "", "init", "--config", path)
	assert.EqualError(t, err, path+" already exists, use --force to overwrite")

	_, _, err = execute(t, "", "init", "--config", path, "--force")
	assert.NoError(t, err)

	t.Chdir(t.TempDir())
	_, _, err = execute(t, "", "init")
	require.NoError(t, err)
	assert.FileExists(t, defaultInitFile)
}
