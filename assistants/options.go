package assistants

const (
	// DefaultName is the agent name used in logs and metrics.
	DefaultName = "toolchat"
	// DefaultMaxIterations is the maximum number of model round-trips per turn.
	DefaultMaxIterations = 10
	// DefaultSystemPrompt is the system message of a new conversation.
	DefaultSystemPrompt = "You are a helpful SRE assistant with access to SSH and Kubernetes tools. Use the available tools to help users manage their infrastructure."
	// FallbackMessage is returned when the iteration cap is reached.
	FallbackMessage = "I apologize, but I reached the maximum number of steps. Please try a simpler request."
	// ToolErrorPrefix starts the tool message recorded for a failed call.
	ToolErrorPrefix = "Error executing tool: "
)

// Option is a function that can be used to modify the behavior of the Agent Config.
type Option func(*Config)

// Config is fixed for the lifetime of an Agent.
type Config struct {
	// Name is the agent name in logs and metrics.
	Name string
	// Model is the model to use in an LLM call, empty uses the backend default.
	Model string
	// SystemPrompt is the leading system message, empty for none.
	SystemPrompt string
	// MaxIterations caps the model round-trips of a turn.
	MaxIterations int
	// Temperature is the temperature for sampling to use in an LLM call.
	Temperature float64
	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens int

	// CallbackHandler receives the turn events.
	CallbackHandler Callback
}

func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		Name:          DefaultName,
		SystemPrompt:  DefaultSystemPrompt,
		MaxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.CallbackHandler == nil {
		cfg.CallbackHandler = NewNoopCallback()
	}
	return cfg
}

// WithName is an option to set the agent name.
func WithName(name string) Option {
	return func(o *Config) {
		o.Name = name
	}
}

// WithModel is an option for LLM.Chat.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
	}
}

// WithSystemPrompt replaces the default system prompt; empty disables it.
func WithSystemPrompt(prompt string) Option {
	return func(o *Config) {
		o.SystemPrompt = prompt
	}
}

// WithMaxIterations sets the maximum number of model round-trips per turn.
func WithMaxIterations(n int) Option {
	return func(o *Config) {
		o.MaxIterations = n
	}
}

// WithTemperature is an option for LLM.Chat.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
	}
}

// WithMaxTokens is an option for LLM.Chat.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}
