// Package config loads the toolchat configuration: the chat backend, the
// agent settings and the tool provider servers to launch.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/assistants"
	"github.com/effective-security/toolchat/mcp"
	"github.com/effective-security/toolchat/pkg/llmfactory"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "config")

// DefaultModel is the model used when neither the file nor the flags set one.
const DefaultModel = "qwen2.5:latest"

// ErrNotFound is returned when no configuration file exists.
var ErrNotFound = errors.New("configuration file not found")

// Config of the toolchat CLI.
type Config struct {
	// Model is the chat model.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// SystemPrompt is the leading system message of a conversation.
	SystemPrompt string `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty"`
	// MaxIterations caps the model round-trips of a turn.
	MaxIterations int `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty" validate:"gte=0"`
	// StrictToolNames fails the startup when two servers expose the same tool.
	StrictToolNames bool `json:"strictToolNames,omitempty" yaml:"strictToolNames,omitempty"`
	// Backend is the chat backend.
	Backend llmfactory.ProviderConfig `json:"backend,omitempty" yaml:"backend,omitempty"`
	// MCPServers are the tool provider processes to launch, in order.
	MCPServers []*mcp.ServerConfig `json:"mcpServers" yaml:"mcpServers" validate:"dive,required"`
}

// SearchPaths returns the locations checked when no file is specified.
func SearchPaths() []string {
	paths := []string{
		".toolchat.yaml",
		".ollama-mcp.json",
		"config.json",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ollama-mcp", "config.json"))
	}
	return paths
}

// Find returns file when not empty, otherwise the first existing file from
// SearchPaths.
func Find(file string) (string, error) {
	if file != "" {
		return file, nil
	}
	paths := SearchPaths()
	for _, p := range paths {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", errors.Wrapf(ErrNotFound,
		"searched %s; run `toolchat init` to create one or use --config", strings.Join(paths, ", "))
}

// Load returns the configuration from file, or from the first file found in
// SearchPaths when file is empty.
func Load(file string) (*Config, error) {
	location, err := Find(file)
	if err != nil {
		return nil, err
	}

	cfg := new(Config)
	if err = configloader.UnmarshalAndExpand(location, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to load config %q", location)
	}
	cfg.expandEnv()
	cfg.SetDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid config %q", location)
	}

	logger.KV(xlog.DEBUG,
		"status", "loaded",
		"file", location,
		"model", cfg.Model,
		"provider", cfg.Backend.ProviderType(),
		"servers", len(cfg.MCPServers),
	)
	return cfg, nil
}

// SetDefaults fills the values not set in the file.
func (c *Config) SetDefaults() {
	c.Model = values.StringsCoalesce(c.Model, c.Backend.DefaultModel, DefaultModel)
	c.SystemPrompt = values.StringsCoalesce(c.SystemPrompt, assistants.DefaultSystemPrompt)
	if c.MaxIterations == 0 {
		c.MaxIterations = assistants.DefaultMaxIterations
	}
	if c.Backend.Provider == "" {
		c.Backend.Provider = "ollama"
	}
}

// expandEnv resolves ${VAR} in the server arguments and environment, and in
// the backend credentials.
func (c *Config) expandEnv() {
	c.Backend.Token = os.ExpandEnv(c.Backend.Token)
	c.Backend.BaseURL = os.ExpandEnv(c.Backend.BaseURL)
	for _, s := range c.MCPServers {
		if s == nil {
			continue
		}
		for i, a := range s.Args {
			s.Args[i] = os.ExpandEnv(a)
		}
		for k, v := range s.Env {
			s.Env[k] = os.ExpandEnv(v)
		}
	}
}

// Validate checks the required fields and the uniqueness of the server names.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.WithStack(err)
	}

	seen := map[string]bool{}
	for _, s := range c.MCPServers {
		if seen[s.Name] {
			return errors.Errorf("duplicate server name %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Sample returns an example configuration.
func Sample() *Config {
	return &Config{
		Model:         DefaultModel,
		SystemPrompt:  assistants.DefaultSystemPrompt,
		MaxIterations: assistants.DefaultMaxIterations,
		Backend: llmfactory.ProviderConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Timeout:  "5m",
		},
		MCPServers: []*mcp.ServerConfig{
			{
				Name:    "ssh-server",
				Command: "ssh-mcp-server",
				Args:    []string{"--host", "192.168.1.100", "--username", "pi", "--key", "~/.ssh/id_rsa"},
				Timeout: "2m",
			},
			{
				Name:    "kubernetes-server",
				Command: "kube-mcp-server",
				Args:    []string{"--kubeconfig", "~/.kube/config"},
			},
			{
				Name:    "web-search",
				Command: "websearch-mcp-server",
				Env:     map[string]string{"BRAVE_API_KEY": "${BRAVE_API_KEY}"},
			},
		},
	}
}

// WriteYAML writes the configuration as YAML.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(enc.Close())
}
