package lspclient

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ServerProcess is a language server subprocess with its pipes wired into a
// Transport. It exists for the common case; a Client works against any
// Endpoint.
type ServerProcess struct {
	cmd       *exec.Cmd
	transport *Transport
	stderr    io.ReadCloser
	exitCh    chan error
}

// LaunchServer starts the configured language server process and returns it
// with a ready (but not yet started) transport over its stdio pipes.
func LaunchServer(ctx context.Context, cfg ServerConfig, opts ...TransportOption) (*ServerProcess, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)

	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	p := &ServerProcess{
		cmd:       cmd,
		transport: NewTransport(stdout, stdin, stdin, opts...),
		stderr:    stderr,
		exitCh:    make(chan error, 1),
	}

	go func() {
		err := cmd.Wait()
		select {
		case p.exitCh <- err:
		default:
		}
	}()

	return p, nil
}

// Endpoint returns the transport connected to the process.
func (p *ServerProcess) Endpoint() *Transport {
	return p.transport
}

// Stderr returns the server's stderr stream for logging.
func (p *ServerProcess) Stderr() io.Reader {
	return p.stderr
}

// Wait blocks until the process exits and returns its exit error.
func (p *ServerProcess) Wait() error {
	return <-p.exitCh
}

// Close closes the transport and kills the process if it is still running.
// Use the protocol shutdown/exit sequence first for a graceful stop.
func (p *ServerProcess) Close() error {
	err := p.transport.Close()
	p.stderr.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	return err
}
