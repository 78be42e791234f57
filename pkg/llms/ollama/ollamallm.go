package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/ollama/ollama/api"
	"github.com/tidwall/gjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/pkg/llms", "ollama")

// ErrEmptyResponse is returned when the server closes the stream without a
// final message.
var ErrEmptyResponse = errors.New("ollama: empty response")

// LLM is a chat backend for the native Ollama /api/chat endpoint.
type LLM struct {
	client    *api.Client
	host      string
	model     string
	keepAlive *api.Duration
}

var _ llms.Model = (*LLM)(nil)

// New returns a new Ollama LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	o.host = values.StringsCoalesce(o.host, os.Getenv(hostEnvVarName), DefaultHost)
	o.model = values.StringsCoalesce(o.model, os.Getenv(modelEnvVarName), DefaultChatModel)
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}

	u, err := ParseHost(o.host)
	if err != nil {
		return nil, err
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: o.timeout}
	}

	llm := &LLM{
		client: api.NewClient(u, httpClient),
		host:   u.String(),
		model:  o.model,
	}
	if o.keepAlive > 0 {
		llm.keepAlive = &api.Duration{Duration: o.keepAlive}
	}
	return llm, nil
}

// ParseHost parses the OLLAMA_HOST form, where the scheme is optional.
func ParseHost(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(strings.TrimSuffix(host, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid Ollama host %q", host)
	}
	if u.Host == "" {
		return nil, errors.Errorf("invalid Ollama host %q", host)
	}
	return u, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOllama
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.model
}

// Host returns the server URL.
func (o *LLM) Host() string {
	return o.host
}

// Chat implements the Model interface.
func (o *LLM) Chat(ctx context.Context, req *llms.ChatRequest) (*llms.ChatResponse, error) {
	creq, err := o.chatRequest(req)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrBackend)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"model", creq.Model,
		"host", o.host,
		"messages", len(creq.Messages),
		"tools", len(creq.Tools),
	)

	var (
		final api.ChatResponse
		done  bool
	)
	err = o.client.Chat(ctx, creq, func(resp api.ChatResponse) error {
		final = resp
		done = true
		return nil
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "ollama: chat with %q at %s", creq.Model, o.host), llms.ErrBackend)
	}
	if !done {
		return nil, errors.Mark(ErrEmptyResponse, llms.ErrBackend)
	}

	msg, err := messageFromResponse(final.Message)
	if err != nil {
		return nil, errors.Mark(err, llms.ErrBackend)
	}

	return &llms.ChatResponse{
		Message:    msg,
		StopReason: final.DoneReason,
		Usage: llms.Usage{
			PromptTokens:     final.PromptEvalCount,
			CompletionTokens: final.EvalCount,
		},
	}, nil
}

func (o *LLM) chatRequest(req *llms.ChatRequest) (*api.ChatRequest, error) {
	stream := false
	creq := &api.ChatRequest{
		Model:     values.StringsCoalesce(req.Model, o.model),
		Stream:    &stream,
		KeepAlive: o.keepAlive,
	}

	options := map[string]any{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(options) > 0 {
		creq.Options = options
	}

	wire := make([]wireMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		wm, err := messageToWire(m)
		if err != nil {
			return nil, err
		}
		wire = append(wire, wm)
	}
	if err := convert(wire, &creq.Messages); err != nil {
		return nil, errors.Wrap(err, "ollama: encode messages")
	}

	if len(req.Tools) > 0 {
		for _, t := range req.Tools {
			if t.Type != "function" || t.Function == nil {
				return nil, errors.Errorf("ollama: tool type %v not supported", t.Type)
			}
		}
		if err := convert(req.Tools, &creq.Tools); err != nil {
			return nil, errors.Wrap(err, "ollama: encode tools")
		}
	}
	return creq, nil
}

// wireMessage is the JSON shape of a message accepted by /api/chat.
type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
}

type wireToolCall struct {
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func messageToWire(m llms.Message) (wireMessage, error) {
	wm := wireMessage{
		Role:    string(m.Role),
		Content: m.Content,
	}
	switch m.Role {
	case llms.RoleSystem, llms.RoleUser:
	case llms.RoleAssistant:
		for _, tc := range m.ToolCalls {
			args := tc.Arguments
			if args == nil {
				args = map[string]any{}
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				Function: wireFunction{Name: tc.Name, Arguments: args},
			})
		}
	case llms.RoleTool:
		wm.ToolName = m.ToolName
	default:
		return wm, errors.Errorf("ollama: role %q not supported", m.Role)
	}
	return wm, nil
}

func messageFromResponse(m api.Message) (llms.Message, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return llms.Message{}, errors.Wrap(err, "ollama: decode message")
	}
	res := gjson.ParseBytes(raw)

	msg := llms.Message{
		Role:    llms.RoleAssistant,
		Content: res.Get("content").String(),
	}
	for i, tc := range res.Get("tool_calls").Array() {
		name := tc.Get("function.name").String()
		if name == "" {
			return msg, errors.Errorf("ollama: tool call %d has no name", i)
		}
		args := map[string]any{}
		if a := tc.Get("function.arguments"); a.IsObject() {
			if err := json.Unmarshal([]byte(a.Raw), &args); err != nil {
				return msg, errors.Wrapf(err, "ollama: invalid arguments for tool %q", name)
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, llms.ToolCall{
			// older servers send no call IDs, the agent assigns them
			ID:        tc.Get("id").String(),
			Name:      name,
			Arguments: args,
		})
	}
	return msg, nil
}

// convert copies v into the ollama API type through its JSON form.
func convert(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(json.Unmarshal(raw, out))
}
