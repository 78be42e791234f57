package mcp

import (
	"sort"
	"time"

	"github.com/effective-security/xlog"
)

// DefaultCallTimeout bounds a single tools/list or tools/call round-trip.
const DefaultCallTimeout = 2 * time.Minute

// ServerConfig describes how to launch one tool provider process.
type ServerConfig struct {
	// Name is the unique server name, used as the owner tag of its tools.
	Name string `json:"name" yaml:"name" validate:"required"`
	// Command is the executable to spawn.
	Command string `json:"command" yaml:"command" validate:"required"`
	// Args are the command line arguments.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Env is added to the environment inherited from the parent process.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	// Timeout is a duration string such as "30s" or "2m".
	// Empty uses DefaultCallTimeout, "0" disables the timeout.
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// CallTimeout returns the parsed per-call timeout.
// An unparsable value falls back to DefaultCallTimeout.
func (c *ServerConfig) CallTimeout() time.Duration {
	if c.Timeout == "" {
		return DefaultCallTimeout
	}
	if c.Timeout == "0" {
		return 0
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		logger.KV(xlog.WARNING, "reason", "invalid_timeout",
			"server", c.Name,
			"timeout", c.Timeout)
		return DefaultCallTimeout
	}
	return d
}

// Environ returns Env as a sorted KEY=VALUE list.
func (c *ServerConfig) Environ() []string {
	if len(c.Env) == 0 {
		return nil
	}
	env := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}
