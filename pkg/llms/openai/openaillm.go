package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	goopenai "github.com/sashabaranov/go-openai"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/pkg/llms", "openai")

var (
	// ErrEmptyResponse is returned when the API returns no choices.
	ErrEmptyResponse = errors.New("openai: empty response")
	// ErrMissingToken is returned when the OpenAI endpoint is used without a token.
	ErrMissingToken = errors.New("openai: missing the API key, set it in the OPENAI_API_KEY environment variable")
)

// LLM is a chat backend for any OpenAI compatible chat completions endpoint.
type LLM struct {
	client  *goopenai.Client
	model   string
	baseURL string
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	o.token = values.StringsCoalesce(o.token, os.Getenv(tokenEnvVarName))
	o.model = values.StringsCoalesce(o.model, os.Getenv(modelEnvVarName), DefaultChatModel)
	o.baseURL = values.StringsCoalesce(o.baseURL,
		os.Getenv(baseURLEnvVarName),
		os.Getenv(baseAPIBaseEnvVarName),
		DefaultBaseURL)
	o.organization = values.StringsCoalesce(o.organization, os.Getenv(organizationEnvVarName))
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}

	baseURL := strings.TrimSuffix(o.baseURL, "/")
	if o.token == "" && baseURL == DefaultBaseURL {
		return nil, ErrMissingToken
	}

	cfg := goopenai.DefaultConfig(o.token)
	cfg.BaseURL = baseURL
	cfg.OrgID = o.organization
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	} else {
		cfg.HTTPClient = &http.Client{Timeout: o.timeout}
	}

	return &LLM{
		client:  goopenai.NewClientWithConfig(cfg),
		model:   o.model,
		baseURL: baseURL,
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.model
}

// Chat implements the Model interface.
func (o *LLM) Chat(ctx context.Context, req *llms.ChatRequest) (*llms.ChatResponse, error) {
	creq, err := o.chatRequest(req)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrBackend)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", creq.Model,
		"url", o.baseURL,
		"messages", len(creq.Messages),
		"tools", len(creq.Tools),
	)

	result, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "openai: chat completion with %q", creq.Model), llms.ErrBackend)
	}
	if len(result.Choices) == 0 {
		return nil, errors.Mark(ErrEmptyResponse, llms.ErrBackend)
	}

	choice := result.Choices[0]
	return &llms.ChatResponse{
		Message:    messageFromChoice(choice.Message),
		StopReason: string(choice.FinishReason),
		Usage: llms.Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
		},
	}, nil
}

func (o *LLM) chatRequest(req *llms.ChatRequest) (goopenai.ChatCompletionRequest, error) {
	creq := goopenai.ChatCompletionRequest{
		Model:               values.StringsCoalesce(req.Model, o.model),
		Temperature:         float32(req.Temperature),
		MaxCompletionTokens: req.MaxTokens,
	}

	for _, m := range req.Messages {
		msg, err := messageToChat(m)
		if err != nil {
			return creq, err
		}
		creq.Messages = append(creq.Messages, msg)
	}

	for _, t := range req.Tools {
		tool, err := toolFromTool(t)
		if err != nil {
			return creq, err
		}
		creq.Tools = append(creq.Tools, tool)
	}
	return creq, nil
}

func messageToChat(m llms.Message) (goopenai.ChatCompletionMessage, error) {
	msg := goopenai.ChatCompletionMessage{
		Role:    string(m.Role),
		Content: m.Content,
	}
	switch m.Role {
	case llms.RoleSystem, llms.RoleUser:
	case llms.RoleAssistant:
		for _, tc := range m.ToolCalls {
			args, err := json.Marshal(argumentsOrEmpty(tc.Arguments))
			if err != nil {
				return msg, errors.Wrapf(err, "openai: encode arguments of %q", tc.Name)
			}
			msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
	case llms.RoleTool:
		msg.ToolCallID = m.ToolCallID
		// tool results are never empty on the wire
		if msg.Content == "" {
			msg.Content = " "
		}
	default:
		return msg, errors.Errorf("openai: role %q not supported", m.Role)
	}
	return msg, nil
}

func messageFromChoice(m goopenai.ChatCompletionMessage) llms.Message {
	msg := llms.Message{
		Role:    llms.RoleAssistant,
		Content: m.Content,
	}
	for _, tc := range m.ToolCalls {
		call := llms.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
		}
		args, err := parseArguments(tc.Function.Arguments)
		if err != nil {
			// the agent reports it back to the model
			logger.KV(xlog.WARNING,
				"reason", "invalid_arguments",
				"tool", tc.Function.Name,
				"err", err.Error(),
			)
			call.RawArguments = tc.Function.Arguments
		} else {
			call.Arguments = args
		}
		msg.ToolCalls = append(msg.ToolCalls, call)
	}
	return msg
}

// toolFromTool converts an llms.Tool to a Tool.
func toolFromTool(t llms.Tool) (goopenai.Tool, error) {
	if t.Type != string(goopenai.ToolTypeFunction) || t.Function == nil {
		return goopenai.Tool{}, errors.Errorf("openai: tool type %v not supported", t.Type)
	}
	return goopenai.Tool{
		Type: goopenai.ToolTypeFunction,
		Function: &goopenai.FunctionDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  argumentsOrEmpty(t.Function.Parameters),
		},
	}, nil
}

// parseArguments decodes the arguments leniently, local models often send
// unquoted keys, single quotes or trailing commas.
func parseArguments(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := ljson.Unmarshal([]byte(s), &args); err != nil {
		return nil, errors.WithStack(err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func argumentsOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
