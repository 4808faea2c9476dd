package lspclient

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
	}{
		{"origin", Position{Line: 0, Character: 0}},
		{"zero line", Position{Line: 0, Character: 7}},
		{"zero character", Position{Line: 42, Character: 0}},
		{"interior", Position{Line: 120, Character: 31}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.pos)
			require.NoError(t, err)

			var got Position
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, tt.pos, got)
		})
	}
}

func TestPositionWireShape(t *testing.T) {
	// Zero values must serialize explicitly; line 0 is a real line.
	data, err := json.Marshal(Position{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"line": 0, "character": 0}`, string(data))
}

func TestVersionedIdentifierFlattens(t *testing.T) {
	data, err := json.Marshal(VersionedTextDocumentIdentifier{
		TextDocumentIdentifier: TextDocumentIdentifier{URI: "file:///a.py"},
		Version:                3,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"uri": "file:///a.py", "version": 3}`, string(data))
}

func TestFilePathToURI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}

	assert.Equal(t, DocumentURI(""), FilePathToURI(""))
	assert.Equal(t, DocumentURI("file:///home/user/a.py"), FilePathToURI("/home/user/a.py"))
}

func TestURIToFilePath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}

	assert.Equal(t, "", URIToFilePath(""))
	assert.Equal(t, "/home/user/a.py", URIToFilePath("file:///home/user/a.py"))

	// Non-file URIs pass through untouched.
	assert.Equal(t, "untitled:Untitled-1", URIToFilePath("untitled:Untitled-1"))
}

func TestURIRoundTrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}

	paths := []string{
		"/home/user/project/main.go",
		"/tmp/with space/file.py",
	}
	for _, path := range paths {
		assert.Equal(t, path, URIToFilePath(FilePathToURI(path)))
	}
}

func TestLifecycleErrorMessage(t *testing.T) {
	err := &LifecycleError{Op: "textDocument/definition", State: StateUninitialized}
	assert.Equal(t, "textDocument/definition not allowed while client is uninitialized", err.Error())
}

func TestRPCErrorMessage(t *testing.T) {
	assert.Equal(t, "rpc error -32601: method not found",
		(&RPCError{Code: CodeMethodNotFound, Message: "method not found"}).Error())
	assert.Contains(t,
		(&RPCError{Code: CodeInternalError, Message: "boom", Data: "stack"}).Error(),
		"data: stack")
}
