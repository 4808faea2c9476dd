package lspclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestClientCapabilities_MarshalTyped(t *testing.T) {
	caps := DefaultClientCapabilities()

	data, err := json.Marshal(caps)
	require.NoError(t, err)

	v := gjson.ParseBytes(data)
	assert.True(t, v.Get("textDocument.completion.contextSupport").Bool())
	assert.True(t, v.Get("textDocument.documentSymbol.hierarchicalDocumentSymbolSupport").Bool())
	assert.True(t, v.Get("textDocument.definition.linkSupport").Bool())
	assert.True(t, v.Get("workspace.applyEdit").Bool())
}

func TestClientCapabilities_ExtraMerge(t *testing.T) {
	caps := ClientCapabilities{
		TextDocument: &TextDocumentClientCapabilities{
			Definition: &DefinitionClientCapabilities{LinkSupport: true},
		},
		Extra: map[string]any{
			"experimental":                     map[string]any{"serverStatus": true},
			"textDocument.hover.contentFormat": []string{"markdown"},
		},
	}

	data, err := json.Marshal(caps)
	require.NoError(t, err)

	v := gjson.ParseBytes(data)
	// Typed fields survive the merge.
	assert.True(t, v.Get("textDocument.definition.linkSupport").Bool())
	// Top-level extra key.
	assert.True(t, v.Get("experimental.serverStatus").Bool())
	// Dotted extra key lands nested next to the typed tree.
	require.Len(t, v.Get("textDocument.hover.contentFormat").Array(), 1)
	assert.Equal(t, "markdown", v.Get("textDocument.hover.contentFormat").Array()[0].String())
}

func TestCapabilitiesFromMap_RoundTrip(t *testing.T) {
	input := map[string]any{
		"textDocument": map[string]any{
			"completion": map[string]any{"contextSupport": true},
		},
		"workspace":      map[string]any{"applyEdit": true},
		"somethingNovel": map[string]any{"enabled": true},
	}

	caps, err := CapabilitiesFromMap(input)
	require.NoError(t, err)

	// Known keys are readable through the typed tree.
	require.NotNil(t, caps.TextDocument)
	require.NotNil(t, caps.TextDocument.Completion)
	assert.True(t, caps.TextDocument.Completion.ContextSupport)

	// Serialization reproduces every input key, modeled or not.
	obj, err := caps.WireObject()
	require.NoError(t, err)
	assert.Contains(t, obj, "somethingNovel")
	assert.Contains(t, obj, "workspace")
	assert.Contains(t, obj, "textDocument")
}

func TestClientCapabilities_EmptyIsAnObject(t *testing.T) {
	data, err := json.Marshal(ClientCapabilities{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestHasCapability(t *testing.T) {
	assert.False(t, HasCapability(nil))
	assert.False(t, HasCapability(false))
	assert.True(t, HasCapability(true))
	assert.True(t, HasCapability(map[string]any{}))
}
