package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/config"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("TOOLCHAT_TEST_TOKEN", "sk-from-env")

	cfg, err := config.Load("testdata/toolchat.yaml")
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", cfg.Model)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.True(t, cfg.StrictToolNames)
	assert.Equal(t, assistants.DefaultSystemPrompt, cfg.SystemPrompt)
	assert.Equal(t, llms.ProviderOpenAI, cfg.Backend.ProviderType())
	assert.Equal(t, "sk-from-env", cfg.Backend.Token)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Backend.BaseURL)

	require.Len(t, cfg.MCPServers, 2)
	assert.Equal(t, "ssh-server", cfg.MCPServers[0].Name)
	assert.Equal(t, []string{"--host", "192.168.1.100", "--username", "pi"}, cfg.MCPServers[0].Args)
	assert.Equal(t, "30s", cfg.MCPServers[0].Timeout)
	assert.Equal(t, map[string]string{"KUBECONFIG": "/etc/kube/config"}, cfg.MCPServers[1].Env)
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := config.Load("testdata/ollama-mcp.json")
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5:latest", cfg.Model)
	assert.Equal(t, assistants.DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, llms.ProviderOllama, cfg.Backend.ProviderType())
	assert.Equal(t, "ollama", cfg.Backend.Provider)
	require.Len(t, cfg.MCPServers, 1)
	assert.Equal(t, "node", cfg.MCPServers[0].Command)
}

func TestLoad_Invalid(t *testing.T) {
	tcases := []struct {
		file string
		err  string
	}{
		{file: "testdata/duplicate.yaml", err: `duplicate server name "ssh"`},
		{file: "testdata/missing_command.yaml", err: "'Command' failed on the 'required' tag"},
		{file: "testdata/bad_provider.yaml", err: "'Provider' failed on the 'oneof' tag"},
		{file: "testdata/not_found.yaml", err: "failed to load config"},
	}
	for _, tc := range tcases {
		t.Run(filepath.Base(tc.file), func(t *testing.T) {
			_, err := config.Load(tc.file)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(dir)

	_, err := config.Find("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrNotFound))
	assert.Contains(t, err.Error(), "toolchat init")

	f, err := config.Find("custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "custom.yaml", f)

	userCfg := filepath.Join(home, ".config", "ollama-mcp", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(userCfg), 0o755))
	require.NoError(t, os.WriteFile(userCfg, []byte(`{"mcpServers":[]}`), 0o600))
	f, err = config.Find("")
	require.NoError(t, err)
	assert.Equal(t, userCfg, f)

	require.NoError(t, os.WriteFile("config.json", []byte(`{"mcpServers":[]}`), 0o600))
	f, err = config.Find("")
	require.NoError(t, err)
	assert.Equal(t, "config.json", f)

	require.NoError(t, os.WriteFile(".toolchat.yaml", []byte("mcpServers: []\n"), 0o600))
	f, err = config.Find("")
	require.NoError(t, err)
	assert.Equal(t, ".toolchat.yaml", f)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultModel, cfg.Model)
	assert.Empty(t, cfg.MCPServers)
}

func TestSample(t *testing.T) {
	sample := config.Sample()
	require.NoError(t, sample.Validate())

	var buf bytes.Buffer
	require.NoError(t, sample.WriteYAML(&buf))
	out := buf.String()
	assert.Contains(t, out, "model: qwen2.5:latest\n")
	assert.Contains(t, out, "mcpServers:\n")
	assert.Contains(t, out, "  - name: ssh-server\n")
	assert.Contains(t, out, "backend:\n  provider: ollama\n")

	// the sample loads back
	file := filepath.Join(t.TempDir(), "toolchat.yaml")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o600))
	t.Setenv("BRAVE_API_KEY", "brave-key")
	cfg, err := config.Load(file)
	require.NoError(t, err)
	require.Len(t, cfg.MCPServers, 3)
	assert.Equal(t, "brave-key", cfg.MCPServers[2].Env["BRAVE_API_KEY"])
}

func TestSetDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Backend.DefaultModel = "mistral"
	cfg.SetDefaults()
	assert.Equal(t, "mistral", cfg.Model)
	assert.Equal(t, assistants.DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, "ollama", cfg.Backend.Provider)

	cfg = &config.Config{MaxIterations: -1}
	cfg.SetDefaults()
	assert.Error(t, cfg.Validate())
}
