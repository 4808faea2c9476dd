package lspclient

import "context"

// Endpoint is the message transport the client drives. It owns the wire
// connection and the correlation of requests to replies; the client only
// needs a blocking call and a fire-and-forget notify, plus the lifecycle
// hooks the handshake ordering requires.
//
// Call must not return before the matching reply (or a terminal transport
// error) is available, and must be safe to invoke again immediately after
// returning. Neither operation is retried by the client; every failure
// surfaces once, unmodified.
type Endpoint interface {
	// Start begins servicing the connection. The client calls it before the
	// initialize request is issued, since the endpoint may need to be
	// listening before a correlated call can complete.
	Start(ctx context.Context) error

	// Stop ceases routing new inbound server traffic. Replies to requests
	// already in flight are still delivered, so the final shutdown call can
	// complete after Stop.
	Stop()

	// Call sends a correlated request and blocks for its reply. A
	// server-reported error is returned as *RPCError; otherwise the reply's
	// result is unmarshaled into result when non-nil.
	Call(ctx context.Context, method string, params any, result any) error

	// Notify sends an uncorrelated notification.
	Notify(ctx context.Context, method string, params any) error

	// Close tears the connection down.
	Close() error
}
