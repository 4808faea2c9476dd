package lspclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Standard errors returned by the client and transport.
var (
	// ErrMissingCapabilities indicates initialize was called without
	// capabilities, the one mandatory negotiation parameter. Raised before
	// any wire traffic.
	ErrMissingCapabilities = errors.New("capabilities are required")

	// ErrAlreadyInitialized indicates the initialized notification was
	// already sent for this session.
	ErrAlreadyInitialized = errors.New("initialized notification already sent")

	// ErrEndpointClosed indicates the transport has been closed.
	ErrEndpointClosed = errors.New("endpoint closed")
)

// LifecycleError indicates an operation was invoked outside its valid
// lifecycle state. The call never reaches the wire.
type LifecycleError struct {
	Op    string
	State State
}

// Error implements the error interface.
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s not allowed while client is %s", e.Op, e.State)
}

// RPCError represents a JSON-RPC error reported by the server. It is
// surfaced to the caller with its code, message and data intact.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// LSP-specific errors
	CodeServerNotInitialized = -32002
	CodeUnknownErrorCode     = -32001
	CodeRequestCancelled     = -32800
	CodeContentModified      = -32801
	CodeRequestFailed        = -32803
)

// MalformedResponseError indicates a reply failed structural validation
// against every candidate shape for its method. The raw payload is retained
// for diagnostics.
type MalformedResponseError struct {
	Method  string
	Payload json.RawMessage
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	payload := e.Payload
	if len(payload) > 256 {
		payload = payload[:256]
	}
	return fmt.Sprintf("malformed %s response: %s", e.Method, payload)
}
