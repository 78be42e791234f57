package sshexec

import (
	"bytes"
	"context"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/tools"
	"github.com/effective-security/xlog"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat/tools", "sshexec")

// DefaultPort is the SSH port used when Config.Port is not set.
const DefaultPort = 22

// DefaultDialTimeout bounds the TCP connect and the SSH handshake.
const DefaultDialTimeout = 30 * time.Second

// ErrTimeout is returned when a command does not finish in time.
var ErrTimeout = errors.New("command execution timed out")

// Config describes the remote host and the credentials.
type Config struct {
	Host     string `json:"host" yaml:"host" validate:"required"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty" validate:"gte=0,lte=65535"`
	Username string `json:"username" yaml:"username" validate:"required"`
	// Password is used when KeyPath is not set.
	Password string `json:"password,omitempty" yaml:"password,omitempty" validate:"required_without=KeyPath"`
	// KeyPath is the path of the private key, "~" is expanded.
	KeyPath    string `json:"keyPath,omitempty" yaml:"keyPath,omitempty"`
	Passphrase string `json:"passphrase,omitempty" yaml:"passphrase,omitempty"`
	// KnownHosts is an optional known_hosts file used to verify the host key.
	KnownHosts  string        `json:"knownHosts,omitempty" yaml:"knownHosts,omitempty"`
	DialTimeout time.Duration `json:"dialTimeout,omitempty" yaml:"dialTimeout,omitempty"`
}

// Address returns host:port.
func (c *Config) Address() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Validate returns an error if the config is incomplete.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0]
			switch {
			case field.Field() == "Password":
				return errors.New("either password or private key must be provided")
			case field.Tag() == "required":
				return errors.Newf("invalid SSH config: %s is required", strings.ToLower(field.Field()))
			}
			return errors.Newf("invalid SSH config: invalid %s", strings.ToLower(field.Field()))
		}
		return errors.Wrap(err, "invalid SSH config")
	}
	return nil
}

// Result is the outcome of a remote command.
type Result struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// Executor runs commands over a single lazily opened SSH connection.
type Executor struct {
	cfg Config

	lock   sync.Mutex
	client *ssh.Client
}

// NewExecutor validates the config and returns an executor. It does not
// connect.
func NewExecutor(cfg Config) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Executor{cfg: cfg}, nil
}

// Config returns the executor config.
func (e *Executor) Config() Config {
	return e.cfg
}

// IsConnected returns true while the connection is open.
func (e *Executor) IsConnected() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.client != nil
}

// Connect opens the connection if it is not open yet.
func (e *Executor) Connect(ctx context.Context) error {
	_, err := e.connect(ctx)
	return err
}

func (e *Executor) connect(ctx context.Context) (*ssh.Client, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if e.client != nil {
		return e.client, nil
	}

	cc, err := e.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := e.cfg.Address()
	dialer := net.Dialer{Timeout: cc.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to %s", addr)
	}

	sc, chans, reqs, err := ssh.NewClientConn(conn, addr, cc)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "SSH handshake with %s failed", addr)
	}
	e.client = ssh.NewClient(sc, chans, reqs)

	logger.ContextKV(ctx, xlog.INFO, "status", "connected", "host", addr, "user", e.cfg.Username)
	return e.client, nil
}

func (e *Executor) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if e.cfg.KeyPath != "" {
		signer, err := loadSigner(e.cfg.KeyPath, e.cfg.Passphrase)
		if err != nil {
			return nil, err
		}
		auth = append(auth, ssh.PublicKeys(signer))
	} else {
		auth = append(auth, ssh.Password(e.cfg.Password))
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if e.cfg.KnownHosts != "" {
		cb, err := knownhosts.New(tools.ExpandHome(e.cfg.KnownHosts))
		if err != nil {
			return nil, errors.Wrap(err, "unable to load known hosts")
		}
		hostKeyCallback = cb
	}

	timeout := e.cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	return &ssh.ClientConfig{
		User:            e.cfg.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	pem, err := os.ReadFile(tools.ExpandHome(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read private key")
	}

	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pem)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}
	return signer, nil
}

// Exec runs the command and waits at most timeout for it to finish. A
// non-zero exit status is reported in the result, not as an error.
func (e *Executor) Exec(ctx context.Context, command string, timeout time.Duration) (*Result, error) {
	client, err := e.connect(ctx)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		// the connection is gone, reconnect on the next call
		e.reset(client)
		return nil, errors.Wrap(err, "unable to open session")
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case err = <-done:
	case <-timer:
		_ = session.Signal(ssh.SIGKILL)
		return nil, errors.Wrapf(ErrTimeout, "after %dms", timeout.Milliseconds())
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return nil, errors.WithStack(ctx.Err())
	}

	res := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *ssh.ExitError
		var missing *ssh.ExitMissingError
		switch {
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitStatus()
		case errors.As(err, &missing):
			res.ExitCode = -1
		default:
			return nil, errors.Wrap(err, "command failed")
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"host", e.cfg.Address(),
		"command", command,
		"exit_code", res.ExitCode,
	)
	return res, nil
}

// Close closes the connection. It is safe to call more than once.
func (e *Executor) Close() error {
	e.lock.Lock()
	client := e.client
	e.client = nil
	e.lock.Unlock()

	if client == nil {
		return nil
	}
	logger.KV(xlog.INFO, "status", "disconnected", "host", e.cfg.Address())
	return client.Close()
}

func (e *Executor) reset(client *ssh.Client) {
	e.lock.Lock()
	if e.client == client {
		e.client = nil
	}
	e.lock.Unlock()
	_ = client.Close()
}
