package lspclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Transport is the stdio Endpoint implementation. It speaks the LSP base
// protocol: JSON-RPC 2.0 messages framed with Content-Length headers,
// requests correlated to responses by id, and a background read loop that
// routes replies to waiting callers and notifications to registered handlers.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer
	log    *logrus.Entry

	mu       sync.Mutex
	nextID   atomic.Int64
	pending  map[int64]chan *response
	handlers map[string]NotificationHandler

	started atomic.Bool
	stopped atomic.Bool
	closed  atomic.Bool
	done    chan struct{}
}

// NotificationHandler handles a notification sent by the server.
type NotificationHandler func(method string, params json.RawMessage)

// request is the wire form of an outgoing message. A zero ID marks a
// notification and is omitted from the payload.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is the wire form of an incoming reply.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// serverMessage is the wire form of an incoming notification.
type serverMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithTransportLogger sets the logger used for read-loop diagnostics.
// Logging is disabled by default.
func WithTransportLogger(log *logrus.Entry) TransportOption {
	return func(t *Transport) {
		t.log = log
	}
}

// NewTransport creates a transport over the given connection, typically the
// stdout/stdin pipes of a language server process. closer may be nil.
func NewTransport(r io.Reader, w io.Writer, c io.Closer, opts ...TransportOption) *Transport {
	t := &Transport{
		reader:   bufio.NewReaderSize(r, 64*1024),
		writer:   w,
		closer:   c,
		log:      nopLogger(),
		pending:  make(map[int64]chan *response),
		handlers: make(map[string]NotificationHandler),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// nopLogger returns an entry that discards everything.
func nopLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// Start begins reading messages from the connection. Calling Start on an
// already started transport is a no-op.
func (t *Transport) Start(ctx context.Context) error {
	if t.closed.Load() {
		return ErrEndpointClosed
	}
	if t.started.Swap(true) {
		return nil
	}
	go t.readLoop(ctx)
	return nil
}

// Stop ceases routing new inbound server traffic: notifications arriving
// after Stop are dropped. Replies to requests already in flight are still
// delivered so a final correlated call can complete.
func (t *Transport) Stop() {
	t.stopped.Store(true)
}

// Close closes the transport and releases resources. Pending callers are
// unblocked with ErrEndpointClosed.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}

	close(t.done)

	// Drop the pending map rather than closing its channels; callers blocked
	// on a reply observe t.done instead, which avoids racing handleResponse.
	t.mu.Lock()
	t.pending = make(map[int64]chan *response)
	t.mu.Unlock()

	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// IsClosed returns true if the transport has been closed.
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}

// Call sends a request and blocks until the correlated reply arrives. A
// server-reported error is returned as *RPCError with its code and message
// intact; the reply's result is unmarshaled into result when non-nil.
func (t *Transport) Call(ctx context.Context, method string, params any, result any) error {
	if t.closed.Load() {
		return ErrEndpointClosed
	}

	id := t.nextID.Add(1)
	ch := make(chan *response, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	req := &request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
	if err := t.send(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrEndpointClosed
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}
		return nil
	}
}

// Notify sends a notification. No reply is expected and none is waited for.
func (t *Transport) Notify(ctx context.Context, method string, params any) error {
	if t.closed.Load() {
		return ErrEndpointClosed
	}

	return t.send(&request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

// OnNotification registers a handler for server notifications with the given
// method. Register "*" to receive every method without a dedicated handler.
// The client itself does not interpret server notifications; this is a raw
// passthrough for embedders (publishDiagnostics, logMessage, ...).
func (t *Transport) OnNotification(method string, handler NotificationHandler) {
	t.mu.Lock()
	t.handlers[method] = handler
	t.mu.Unlock()
}

// send frames and writes one message. Header and body go out in a single
// write so concurrent senders cannot interleave frames.
func (t *Transport) send(msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + 32)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(body))
	buf.Write(body)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// readLoop reads messages until the connection or transport goes away.
func (t *Transport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		msg, err := t.readMessage()
		if err != nil {
			if t.closed.Load() || err == io.EOF || err == io.ErrClosedPipe {
				return
			}
			t.log.WithError(err).Debug("discarding unreadable message")
			continue
		}

		t.dispatch(msg)
	}
}

// readMessage reads one Content-Length framed message.
func (t *Transport) readMessage() (json.RawMessage, error) {
	var contentLength int
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break // end of headers
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(name, "Content-Length") {
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				contentLength = n
			}
		}
		// Content-Type and anything else is ignored.
	}

	if contentLength <= 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// dispatch routes one message to a waiting caller or a notification handler.
func (t *Transport) dispatch(data json.RawMessage) {
	var probe struct {
		ID     *int64          `json:"id"`
		Method string          `json:"method"`
		Error  *RPCError       `json:"error"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		t.log.WithError(err).Debug("discarding undecodable message")
		return
	}

	// An id together with a result or error marks a response.
	if probe.ID != nil && (probe.Result != nil || probe.Error != nil) {
		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			return
		}
		t.deliver(&resp)
		return
	}

	if probe.Method != "" {
		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		t.notifyHandler(&msg)
	}
}

// deliver hands a response to its waiting caller.
func (t *Transport) deliver(resp *response) {
	if t.closed.Load() {
		return
	}

	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	if ok {
		delete(t.pending, resp.ID)
	}
	t.mu.Unlock()

	if !ok {
		t.log.WithField("id", resp.ID).Debug("response for unknown request id")
		return
	}

	select {
	case ch <- resp:
	default:
	}
}

// notifyHandler hands a server notification to its registered handler.
// After Stop, inbound notifications are dropped.
func (t *Transport) notifyHandler(msg *serverMessage) {
	if t.stopped.Load() {
		t.log.WithField("method", msg.Method).Debug("dropping notification after stop")
		return
	}

	t.mu.Lock()
	handler, ok := t.handlers[msg.Method]
	if !ok {
		handler, ok = t.handlers["*"]
	}
	t.mu.Unlock()

	if ok && handler != nil {
		// Run outside the read loop so a slow handler cannot stall replies.
		go handler(msg.Method, msg.Params)
	}
}
