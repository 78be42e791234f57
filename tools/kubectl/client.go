package kubectl

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/tools", "kubectl")

// DefaultBinary is the kubectl executable looked up in PATH.
const DefaultBinary = "kubectl"

// DefaultNamespace is used when a request does not name one.
const DefaultNamespace = "default"

// Config configures the kubectl invocation.
type Config struct {
	// Binary is the kubectl executable, DefaultBinary if empty.
	Binary string `json:"binary,omitempty" yaml:"binary,omitempty"`
	// Kubeconfig is passed as --kubeconfig when set.
	Kubeconfig string `json:"kubeconfig,omitempty" yaml:"kubeconfig,omitempty"`
	// Context is passed as --context when set.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
}

// Container is a container of a pod.
type Container struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Pod is the summary of a pod.
type Pod struct {
	Name       string      `json:"name"`
	Namespace  string      `json:"namespace"`
	Status     string      `json:"status"`
	NodeName   string      `json:"nodeName,omitempty"`
	PodIP      string      `json:"podIP,omitempty"`
	Containers []Container `json:"containers"`
}

// Address is a node address.
type Address struct {
	Type    string `json:"type"`
	Address string `json:"address"`
}

// Node is the summary of a node.
type Node struct {
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	OSImage      string    `json:"osImage"`
	Architecture string    `json:"architecture"`
	Addresses    []Address `json:"addresses"`
}

// Client runs kubectl commands.
type Client struct {
	cfg Config
}

// NewClient returns a client for the config.
func NewClient(cfg Config) *Client {
	cfg.Binary = values.StringsCoalesce(cfg.Binary, DefaultBinary)
	return &Client{cfg: cfg}
}

// GetPods returns the pods in the namespace.
func (c *Client) GetPods(ctx context.Context, namespace string) ([]Pod, error) {
	namespace = values.StringsCoalesce(namespace, DefaultNamespace)
	out, err := c.output(ctx, "get", "pods", "-n", namespace, "-o", "json")
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get pods")
	}

	items := gjson.GetBytes(out, "items").Array()
	pods := make([]Pod, 0, len(items))
	for _, item := range items {
		pod := Pod{
			Name:       item.Get("metadata.name").String(),
			Namespace:  item.Get("metadata.namespace").String(),
			Status:     item.Get("status.phase").String(),
			NodeName:   item.Get("spec.nodeName").String(),
			PodIP:      item.Get("status.podIP").String(),
			Containers: []Container{},
		}
		for _, ct := range item.Get("spec.containers").Array() {
			pod.Containers = append(pod.Containers, Container{
				Name:  ct.Get("name").String(),
				Image: ct.Get("image").String(),
			})
		}
		pods = append(pods, pod)
	}
	return pods, nil
}

// GetNodes returns the nodes of the cluster.
func (c *Client) GetNodes(ctx context.Context) ([]Node, error) {
	out, err := c.output(ctx, "get", "nodes", "-o", "json")
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get nodes")
	}

	items := gjson.GetBytes(out, "items").Array()
	nodes := make([]Node, 0, len(items))
	for _, item := range items {
		node := Node{
			Name:         item.Get("metadata.name").String(),
			Status:       item.Get(`status.conditions.#(type=="Ready").status`).String(),
			Version:      item.Get("status.nodeInfo.kubeletVersion").String(),
			OSImage:      item.Get("status.nodeInfo.osImage").String(),
			Architecture: item.Get("status.nodeInfo.architecture").String(),
			Addresses:    []Address{},
		}
		for _, a := range item.Get("status.addresses").Array() {
			node.Addresses = append(node.Addresses, Address{
				Type:    a.Get("type").String(),
				Address: a.Get("address").String(),
			})
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Run executes a kubectl command line, such as "get pods -n default", and
// returns its output. A leading "kubectl" is ignored.
func (c *Client) Run(ctx context.Context, command string) (string, error) {
	args, err := SplitArgs(command)
	if err != nil {
		return "", errors.WithMessage(err, "kubectl command failed")
	}
	if len(args) > 0 && args[0] == "kubectl" {
		args = args[1:]
	}
	if len(args) == 0 {
		return "", errors.New("command is required")
	}

	stdout, err := c.run(ctx, args...)
	if err != nil {
		return "", errors.WithMessage(err, "kubectl command failed")
	}
	return string(stdout), nil
}

func (c *Client) output(ctx context.Context, args ...string) ([]byte, error) {
	stdout, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(stdout) {
		return nil, errors.New("kubectl returned invalid JSON")
	}
	return stdout, nil
}

// run returns stdout, stderr becomes the error when the command fails or
// prints nothing else.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	var global []string
	if c.cfg.Kubeconfig != "" {
		global = append(global, "--kubeconfig", c.cfg.Kubeconfig)
	}
	if c.cfg.Context != "" {
		global = append(global, "--context", c.cfg.Context)
	}
	args = append(global, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cfg.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.ContextKV(ctx, xlog.DEBUG, "binary", c.cfg.Binary, "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, errors.Newf("%s", msg)
	}
	if stdout.Len() == 0 && stderr.Len() > 0 {
		return nil, errors.Newf("%s", strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// SplitArgs splits a command line on spaces, keeping single and double quoted
// parts together. Shell expansion is not performed.
func SplitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inArg   bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t' || r == '\n':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, errors.Newf("unterminated %c quote", quote)
	}
	if inArg {
		args = append(args, current.String())
	}
	return args, nil
}
