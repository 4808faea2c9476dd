package lspclient

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// State represents the client's session lifecycle state.
type State int

const (
	// StateUninitialized is the state before the initialize request.
	StateUninitialized State = iota
	// StateInitializing is the state while initialize is in flight.
	StateInitializing
	// StateActive is the state after a successful initialize reply; all
	// document-scoped operations require it.
	StateActive
	// StateShuttingDown is the state after shutdown was issued.
	StateShuttingDown
	// StateExited is the terminal state after the exit notification.
	StateExited
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting down"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Client is a stateful façade over an Endpoint exposing one operation per
// LSP method. Each operation validates its lifecycle precondition, builds
// the wire parameters, delegates to the Endpoint, and decodes the reply into
// its typed result. The client holds no cache and performs no retry; every
// call is one round trip and every failure propagates unchanged.
type Client struct {
	mu              sync.Mutex
	state           State
	initializedSent bool

	endpoint Endpoint
	log      *logrus.Entry
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithLogger sets the logger for lifecycle transitions.
// Logging is disabled by default.
func WithLogger(log *logrus.Entry) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a client over the given endpoint. The endpoint is not
// started until Initialize.
func NewClient(endpoint Endpoint, opts ...ClientOption) *Client {
	c := &Client{
		state:    StateUninitialized,
		endpoint: endpoint,
		log:      nopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setState transitions to the given state.
func (c *Client) setState(s State) {
	c.mu.Lock()
	from := c.state
	c.state = s
	c.mu.Unlock()
	c.log.WithFields(logrus.Fields{"from": from.String(), "to": s.String()}).Debug("lifecycle transition")
}

// transition moves from exactly one expected state to the next, or reports
// a LifecycleError naming the operation.
func (c *Client) transition(op string, from, to State) error {
	c.mu.Lock()
	if c.state != from {
		state := c.state
		c.mu.Unlock()
		return &LifecycleError{Op: op, State: state}
	}
	c.state = to
	c.mu.Unlock()
	c.log.WithFields(logrus.Fields{"from": from.String(), "to": to.String()}).Debug("lifecycle transition")
	return nil
}

// requireActive guards document-scoped operations.
func (c *Client) requireActive(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return &LifecycleError{Op: op, State: c.state}
	}
	return nil
}

// call issues a document-scoped request and hands back the raw reply for
// per-method decoding.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if err := c.requireActive(method); err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.endpoint.Call(ctx, method, params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// notify issues a document-scoped notification.
func (c *Client) notify(ctx context.Context, method string, params any) error {
	if err := c.requireActive(method); err != nil {
		return err
	}
	return c.endpoint.Notify(ctx, method, params)
}

// --- Lifecycle ---

// Initialize sends the initialize request, the first request of a session.
// Capabilities is mandatory; a nil value fails with ErrMissingCapabilities
// before any wire traffic. The endpoint is started before the request is
// issued, since it may need to be listening before a correlated call can
// complete. On success the client becomes Active and the caller is expected
// to send Initialized next.
func (c *Client) Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error) {
	if params.Capabilities == nil {
		return nil, ErrMissingCapabilities
	}

	if err := c.transition("initialize", StateUninitialized, StateInitializing); err != nil {
		return nil, err
	}

	if err := c.endpoint.Start(ctx); err != nil {
		c.setState(StateUninitialized)
		return nil, err
	}

	var raw json.RawMessage
	if err := c.endpoint.Call(ctx, "initialize", params, &raw); err != nil {
		// A failed handshake leaves nothing to shut down; release the
		// endpoint and let the caller retry with a fresh one.
		c.endpoint.Stop()
		c.setState(StateUninitialized)
		return nil, err
	}

	result, err := decodeInitializeResult(raw)
	if err != nil {
		c.endpoint.Stop()
		c.setState(StateUninitialized)
		return nil, err
	}

	c.setState(StateActive)
	return result, nil
}

// Initialized sends the initialized notification. It must follow a
// successful Initialize and may only be sent once per session.
func (c *Client) Initialized(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateActive {
		state := c.state
		c.mu.Unlock()
		return &LifecycleError{Op: "initialized", State: state}
	}
	if c.initializedSent {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.initializedSent = true
	c.mu.Unlock()

	return c.endpoint.Notify(ctx, "initialized", InitializedParams{})
}

// Shutdown sends the shutdown request. The endpoint's accept path is stopped
// before the request goes out: the transport must cease new inbound traffic
// while the final call is still in flight.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.transition("shutdown", StateActive, StateShuttingDown); err != nil {
		return err
	}

	c.endpoint.Stop()
	return c.endpoint.Call(ctx, "shutdown", nil, nil)
}

// Exit sends the exit notification, ending the session. No reply is
// expected.
func (c *Client) Exit(ctx context.Context) error {
	if err := c.transition("exit", StateShuttingDown, StateExited); err != nil {
		return err
	}

	return c.endpoint.Notify(ctx, "exit", nil)
}

// --- Document Sync ---

// DidOpen notifies the server that a document was opened. A document must
// not be opened twice without an intervening DidClose; tracking open state
// is the caller's responsibility.
func (c *Client) DidOpen(ctx context.Context, textDocument TextDocumentItem) error {
	return c.notify(ctx, "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: textDocument,
	})
}

// DidChange notifies the server of document changes. Each change describes a
// single state transition; order matters.
func (c *Client) DidChange(ctx context.Context, textDocument VersionedTextDocumentIdentifier, contentChanges []TextDocumentContentChangeEvent) error {
	return c.notify(ctx, "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   textDocument,
		ContentChanges: contentChanges,
	})
}

// DidClose notifies the server that a document was closed, balancing an
// earlier DidOpen.
func (c *Client) DidClose(ctx context.Context, textDocument TextDocumentIdentifier) error {
	return c.notify(ctx, "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: textDocument,
	})
}

// --- Requests ---

// DocumentSymbol requests the symbol outline of a document. The reply uses
// exactly one of the two protocol shapes; see DocumentSymbolResult.
func (c *Client) DocumentSymbol(ctx context.Context, textDocument TextDocumentIdentifier) (*DocumentSymbolResult, error) {
	raw, err := c.call(ctx, "textDocument/documentSymbol", DocumentSymbolParams{
		TextDocument: textDocument,
	})
	if err != nil {
		return nil, err
	}
	return decodeDocumentSymbols(raw)
}

// TypeDefinition resolves the type definition locations of the symbol at the
// given position. A null reply yields a nil slice, distinct from an empty
// one.
func (c *Client) TypeDefinition(ctx context.Context, textDocument TextDocumentIdentifier, position Position) ([]Location, error) {
	raw, err := c.call(ctx, "textDocument/typeDefinition", TypeDefinitionParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: textDocument,
			Position:     position,
		},
	})
	if err != nil {
		return nil, err
	}
	return decodeLocationSlice("textDocument/typeDefinition", raw)
}

// SignatureHelp requests signature information at the given position. A nil
// result means no active signature context, not an error.
func (c *Client) SignatureHelp(ctx context.Context, textDocument TextDocumentIdentifier, position Position) (*SignatureHelp, error) {
	raw, err := c.call(ctx, "textDocument/signatureHelp", SignatureHelpParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: textDocument,
			Position:     position,
		},
	})
	if err != nil {
		return nil, err
	}
	return decodeSignatureHelp(raw)
}

// Completion requests completion items at the given position. context may be
// nil when the client did not declare context support.
func (c *Client) Completion(ctx context.Context, textDocument TextDocumentIdentifier, position Position, completionContext *CompletionContext) (*CompletionResult, error) {
	raw, err := c.call(ctx, "textDocument/completion", CompletionParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: textDocument,
			Position:     position,
		},
		Context: completionContext,
	})
	if err != nil {
		return nil, err
	}
	return decodeCompletionResult(raw)
}

// Declaration resolves the declaration of the symbol at the given position.
// A nil result means the server found no declaration; see LocationResult for
// the possible reply shapes.
func (c *Client) Declaration(ctx context.Context, textDocument TextDocumentIdentifier, position Position) (*LocationResult, error) {
	raw, err := c.call(ctx, "textDocument/declaration", DeclarationParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: textDocument,
			Position:     position,
		},
	})
	if err != nil {
		return nil, err
	}
	return decodeLocationResult("textDocument/declaration", raw)
}

// Definition resolves the definition of the symbol at the given position.
// A nil result means the server found no definition; see LocationResult for
// the possible reply shapes.
func (c *Client) Definition(ctx context.Context, textDocument TextDocumentIdentifier, position Position) (*LocationResult, error) {
	raw, err := c.call(ctx, "textDocument/definition", DefinitionParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: textDocument,
			Position:     position,
		},
	})
	if err != nil {
		return nil, err
	}
	return decodeLocationResult("textDocument/definition", raw)
}

// Rename requests a workspace-wide rename of the symbol at the given
// position. The reply's change sets are rebuilt into a WorkspaceEdit whose
// edits all address the original document state. A reply without changes
// yields an empty, non-nil mapping.
func (c *Client) Rename(ctx context.Context, textDocument TextDocumentIdentifier, position Position, newName string) (*WorkspaceEdit, error) {
	raw, err := c.call(ctx, "textDocument/rename", RenameParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: textDocument,
			Position:     position,
		},
		NewName: newName,
	})
	if err != nil {
		return nil, err
	}
	return decodeWorkspaceEdit(raw)
}

// References resolves project-wide references to the symbol at the given
// position. An empty reply is a valid empty slice, never nil.
func (c *Client) References(ctx context.Context, textDocument TextDocumentIdentifier, position Position, refContext ReferenceContext) ([]Location, error) {
	raw, err := c.call(ctx, "textDocument/references", ReferenceParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: textDocument,
			Position:     position,
		},
		Context: refContext,
	})
	if err != nil {
		return nil, err
	}
	return decodeReferences(raw)
}
