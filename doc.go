// Package lspclient implements the client-initiated request surface of the
// Language Server Protocol (LSP).
//
// It turns strongly-typed method calls (definition, references, completion,
// rename, ...) into protocol-conformant JSON-RPC traffic and decodes the
// server's untyped replies back into typed results, resolving the shape
// ambiguity several LSP methods carry (single Location vs Location[] vs
// LocationLink[], DocumentSymbol[] vs SymbolInformation[], CompletionList vs
// bare item array).
//
// # Architecture
//
// Two layers, strictly separated:
//
//   - Client: the protocol core. Holds the session lifecycle state and
//     exposes one operation per LSP method. Each operation validates its
//     lifecycle precondition, builds the wire params, delegates to the
//     Endpoint, and decodes the reply.
//   - Endpoint: the message transport. Anything that can send a correlated
//     request and block for its reply, or fire a notification. The package
//     ships Transport, a stdio implementation with Content-Length framing,
//     but the Client works against the interface.
//
// # Quick Start
//
// Launch a server and drive the handshake:
//
//	proc, err := lspclient.LaunchServer(ctx, lspclient.ServerConfig{Command: "gopls"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer proc.Close()
//
//	caps := lspclient.DefaultClientCapabilities()
//	client := lspclient.NewClient(proc.Endpoint())
//
//	result, err := client.Initialize(ctx, lspclient.InitializeParams{
//	    RootURI:      lspclient.FilePathToURI("/path/to/project"),
//	    Capabilities: &caps,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = client.Initialized(ctx)
//
//	// Document operations are valid once the handshake completed.
//	locs, err := client.Definition(ctx, doc, lspclient.Position{Line: 10, Character: 5})
//
// # Lifecycle
//
// A Client moves through Uninitialized, Initializing, Active, ShuttingDown
// and Exited. Document-scoped operations are only valid in Active; calls
// outside the valid state fail with a LifecycleError rather than reaching
// the wire.
//
// # Error Handling
//
// No failure is recovered locally. Transport errors and server-reported
// JSON-RPC errors (*RPCError) propagate unchanged, and a reply that matches
// no structural candidate for its method surfaces as *MalformedResponseError
// with the raw payload attached.
package lspclient
