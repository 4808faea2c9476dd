package lspclient

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDocumentSymbols_Hierarchical(t *testing.T) {
	raw := json.RawMessage(`[{
		"name": "f",
		"kind": 12,
		"range": {"start": {"line": 0, "character": 0}, "end": {"line": 3, "character": 1}},
		"selectionRange": {"start": {"line": 0, "character": 5}, "end": {"line": 0, "character": 6}},
		"children": []
	}]`)

	result, err := decodeDocumentSymbols(raw)
	require.NoError(t, err)
	require.Nil(t, result.Information)
	require.Len(t, result.Symbols, 1)

	sym := result.Symbols[0]
	assert.Equal(t, "f", sym.Name)
	assert.Equal(t, SymbolKindFunction, sym.Kind)
	assert.Empty(t, sym.Children)
}

func TestDecodeDocumentSymbols_Flat(t *testing.T) {
	raw := json.RawMessage(`[{
		"name": "f",
		"kind": 12,
		"location": {
			"uri": "file:///a.py",
			"range": {"start": {"line": 1, "character": 0}, "end": {"line": 1, "character": 5}}
		},
		"containerName": ""
	}]`)

	result, err := decodeDocumentSymbols(raw)
	require.NoError(t, err)
	require.Nil(t, result.Symbols)
	require.Len(t, result.Information, 1)

	info := result.Information[0]
	assert.Equal(t, "f", info.Name)
	assert.Equal(t, DocumentURI("file:///a.py"), info.Location.URI)
}

func TestDecodeDocumentSymbols_Nested(t *testing.T) {
	raw := json.RawMessage(`[{
		"name": "C",
		"kind": 5,
		"range": {"start": {"line": 0, "character": 0}, "end": {"line": 10, "character": 0}},
		"selectionRange": {"start": {"line": 0, "character": 6}, "end": {"line": 0, "character": 7}},
		"children": [{
			"name": "m",
			"kind": 6,
			"range": {"start": {"line": 1, "character": 4}, "end": {"line": 2, "character": 8}},
			"selectionRange": {"start": {"line": 1, "character": 8}, "end": {"line": 1, "character": 9}}
		}]
	}]`)

	result, err := decodeDocumentSymbols(raw)
	require.NoError(t, err)
	require.Len(t, result.Symbols, 1)
	require.Len(t, result.Symbols[0].Children, 1)
	assert.Equal(t, "m", result.Symbols[0].Children[0].Name)
}

func TestDecodeDocumentSymbols_HierarchicalWinsTies(t *testing.T) {
	// An empty array validates against both shapes; the hierarchical form
	// is probed first.
	result, err := decodeDocumentSymbols(json.RawMessage(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, result.Symbols)
	assert.Nil(t, result.Information)
}

func TestDecodeDocumentSymbols_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not an array", `{"name":"f"}`},
		{"null", `null`},
		{"element matches neither shape", `[{"name":"f","kind":12}]`},
		{"bad child", `[{"name":"f","kind":12,"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":0}},"selectionRange":{"start":{"line":0,"character":0},"end":{"line":0,"character":0}},"children":[{"name":"x"}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeDocumentSymbols(json.RawMessage(tt.raw))
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "textDocument/documentSymbol", malformed.Method)
		})
	}
}

func TestDecodeLocationResult_SingleLocation(t *testing.T) {
	raw := json.RawMessage(`{
		"uri": "file:///a.py",
		"range": {"start": {"line": 1, "character": 0}, "end": {"line": 1, "character": 5}}
	}`)

	result, err := decodeLocationResult("textDocument/definition", raw)
	require.NoError(t, err)
	require.NotNil(t, result.Location)
	assert.Nil(t, result.Locations)
	assert.Nil(t, result.Links)

	assert.Equal(t, DocumentURI("file:///a.py"), result.Location.URI)
	assert.Equal(t, Position{Line: 1, Character: 0}, result.Location.Range.Start)
	assert.Equal(t, Position{Line: 1, Character: 5}, result.Location.Range.End)
}

func TestDecodeLocationResult_Null(t *testing.T) {
	result, err := decodeLocationResult("textDocument/definition", json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Nil(t, result, "null must decode to the explicit no-definition value")
}

func TestDecodeLocationResult_LocationArray(t *testing.T) {
	raw := json.RawMessage(`[
		{"uri": "file:///a.py", "range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 1}}},
		{"uri": "file:///b.py", "range": {"start": {"line": 2, "character": 3}, "end": {"line": 2, "character": 9}}}
	]`)

	result, err := decodeLocationResult("textDocument/definition", raw)
	require.NoError(t, err)
	require.Len(t, result.Locations, 2)
	assert.Equal(t, DocumentURI("file:///b.py"), result.Locations[1].URI)
}

func TestDecodeLocationResult_EmptyArrayIsNotNull(t *testing.T) {
	result, err := decodeLocationResult("textDocument/definition", json.RawMessage(`[]`))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotNil(t, result.Locations)
	assert.Empty(t, result.Locations)
}

func TestDecodeLocationResult_LocationLinks(t *testing.T) {
	raw := json.RawMessage(`[{
		"originSelectionRange": {"start": {"line": 4, "character": 2}, "end": {"line": 4, "character": 7}},
		"targetUri": "file:///a.py",
		"targetRange": {"start": {"line": 10, "character": 0}, "end": {"line": 14, "character": 1}},
		"targetSelectionRange": {"start": {"line": 10, "character": 4}, "end": {"line": 10, "character": 9}}
	}]`)

	result, err := decodeLocationResult("textDocument/declaration", raw)
	require.NoError(t, err)
	require.Len(t, result.Links, 1)
	assert.Nil(t, result.Locations)

	link := result.Links[0]
	assert.Equal(t, DocumentURI("file:///a.py"), link.TargetURI)
	require.NotNil(t, link.OriginSelectionRange)
	assert.Equal(t, Position{Line: 4, Character: 2}, link.OriginSelectionRange.Start)
}

func TestDecodeLocationResult_LocationBeatsLink(t *testing.T) {
	// Every element validates as Location, so the Location candidate wins
	// even though a link array is also plausible to a human reader.
	raw := json.RawMessage(`[
		{"uri": "file:///a.py", "range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 1}}}
	]`)

	result, err := decodeLocationResult("textDocument/definition", raw)
	require.NoError(t, err)
	assert.NotNil(t, result.Locations)
	assert.Nil(t, result.Links)
}

func TestDecodeLocationResult_UnknownFieldsIgnored(t *testing.T) {
	raw := json.RawMessage(`{
		"uri": "file:///a.py",
		"range": {"start": {"line": 1, "character": 0}, "end": {"line": 1, "character": 5}},
		"futureField": {"whatever": true}
	}`)

	result, err := decodeLocationResult("textDocument/definition", raw)
	require.NoError(t, err)
	require.NotNil(t, result.Location)
}

func TestDecodeLocationResult_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"object without uri", `{"foo": "bar"}`},
		{"object with bad range", `{"uri": "file:///a.py", "range": {"start": {"line": "x"}}}`},
		{"array of neither shape", `[{"foo": "bar"}]`},
		{"mixed array", `[{"uri": "file:///a.py", "range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 0}}}, {"foo": "bar"}]`},
		{"scalar", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := decodeLocationResult("textDocument/definition", json.RawMessage(tt.raw))
			assert.Nil(t, result)
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "textDocument/definition", malformed.Method)
			assert.JSONEq(t, tt.raw, string(malformed.Payload))
		})
	}
}

func TestDecodeLocationSlice_TypeDefinition(t *testing.T) {
	t.Run("null yields nil", func(t *testing.T) {
		locs, err := decodeLocationSlice("textDocument/typeDefinition", json.RawMessage(`null`))
		require.NoError(t, err)
		assert.Nil(t, locs)
	})

	t.Run("array of locations", func(t *testing.T) {
		raw := json.RawMessage(`[{"uri": "file:///t.py", "range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 3}}}]`)
		locs, err := decodeLocationSlice("textDocument/typeDefinition", raw)
		require.NoError(t, err)
		require.Len(t, locs, 1)
	})

	t.Run("single location object is not a candidate", func(t *testing.T) {
		raw := json.RawMessage(`{"uri": "file:///t.py", "range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 3}}}`)
		_, err := decodeLocationSlice("textDocument/typeDefinition", raw)
		var malformed *MalformedResponseError
		require.ErrorAs(t, err, &malformed)
	})

	t.Run("location links are not a candidate", func(t *testing.T) {
		raw := json.RawMessage(`[{"targetUri": "file:///t.py", "targetRange": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 3}}, "targetSelectionRange": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 3}}}]`)
		_, err := decodeLocationSlice("textDocument/typeDefinition", raw)
		var malformed *MalformedResponseError
		require.ErrorAs(t, err, &malformed)
	})
}

func TestDecodeReferences(t *testing.T) {
	t.Run("empty reply is a valid empty sequence", func(t *testing.T) {
		locs, err := decodeReferences(json.RawMessage(`[]`))
		require.NoError(t, err)
		require.NotNil(t, locs)
		assert.Empty(t, locs)
	})

	t.Run("locations", func(t *testing.T) {
		raw := json.RawMessage(`[
			{"uri": "file:///a.py", "range": {"start": {"line": 5, "character": 1}, "end": {"line": 5, "character": 4}}},
			{"uri": "file:///a.py", "range": {"start": {"line": 9, "character": 1}, "end": {"line": 9, "character": 4}}}
		]`)
		locs, err := decodeReferences(raw)
		require.NoError(t, err)
		assert.Len(t, locs, 2)
	})

	t.Run("null is malformed", func(t *testing.T) {
		_, err := decodeReferences(json.RawMessage(`null`))
		var malformed *MalformedResponseError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "textDocument/references", malformed.Method)
	})
}

func TestDecodeCompletionResult_List(t *testing.T) {
	raw := json.RawMessage(`{"isIncomplete": true, "items": [{"label": "x"}, {"label": "y", "kind": 3}]}`)

	result, err := decodeCompletionResult(raw)
	require.NoError(t, err)
	require.NotNil(t, result.List)
	assert.Nil(t, result.Items)

	assert.True(t, result.List.IsIncomplete)
	require.Len(t, result.List.Items, 2)
	assert.Equal(t, CompletionItemKindFunction, result.List.Items[1].Kind)
}

func TestDecodeCompletionResult_BareArray(t *testing.T) {
	raw := json.RawMessage(`[{"label": "x"}, {"label": "y"}]`)

	result, err := decodeCompletionResult(raw)
	require.NoError(t, err)
	assert.Nil(t, result.List)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "x", result.Items[0].Label)
}

func TestDecodeCompletionResult_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"object without isIncomplete", `{"items": [{"label": "x"}]}`},
		{"wrapper without items", `{"isIncomplete": false}`},
		{"array of non-items", `[{"kind": 3}]`},
		{"null", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeCompletionResult(json.RawMessage(tt.raw))
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "textDocument/completion", malformed.Method)
		})
	}
}

func TestDecodeSignatureHelp(t *testing.T) {
	t.Run("null means no active context", func(t *testing.T) {
		help, err := decodeSignatureHelp(json.RawMessage(`null`))
		require.NoError(t, err)
		assert.Nil(t, help)
	})

	t.Run("signatures", func(t *testing.T) {
		raw := json.RawMessage(`{
			"signatures": [{"label": "f(a: int) -> str", "parameters": [{"label": "a: int"}]}],
			"activeSignature": 0,
			"activeParameter": 0
		}`)
		help, err := decodeSignatureHelp(raw)
		require.NoError(t, err)
		require.NotNil(t, help)
		require.Len(t, help.Signatures, 1)
		assert.Equal(t, "f(a: int) -> str", help.Signatures[0].Label)
	})

	t.Run("missing signatures is malformed", func(t *testing.T) {
		_, err := decodeSignatureHelp(json.RawMessage(`{"activeSignature": 0}`))
		var malformed *MalformedResponseError
		require.ErrorAs(t, err, &malformed)
	})
}

func TestDecodeWorkspaceEdit_Reconstruction(t *testing.T) {
	raw := json.RawMessage(`{"changes": {"file:///a.py": [
		{"range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 1}}, "newText": "x"}
	]}}`)

	edit, err := decodeWorkspaceEdit(raw)
	require.NoError(t, err)
	require.Len(t, edit.Changes, 1)

	edits := edit.Changes[DocumentURI("file:///a.py")]
	require.Len(t, edits, 1)
	assert.Equal(t, Position{Line: 0, Character: 0}, edits[0].Range.Start)
	assert.Equal(t, Position{Line: 0, Character: 1}, edits[0].Range.End)
	assert.Equal(t, "x", edits[0].NewText)
}

func TestDecodeWorkspaceEdit_MissingChanges(t *testing.T) {
	edit, err := decodeWorkspaceEdit(json.RawMessage(`{}`))
	require.NoError(t, err)
	require.NotNil(t, edit.Changes)
	assert.Empty(t, edit.Changes)
}

func TestDecodeWorkspaceEdit_EditOrderPreserved(t *testing.T) {
	// Edits address the original document state; their reply order must
	// survive reconstruction.
	raw := json.RawMessage(`{"changes": {"file:///a.py": [
		{"range": {"start": {"line": 3, "character": 0}, "end": {"line": 3, "character": 3}}, "newText": "first"},
		{"range": {"start": {"line": 1, "character": 0}, "end": {"line": 1, "character": 3}}, "newText": "second"}
	]}}`)

	edit, err := decodeWorkspaceEdit(raw)
	require.NoError(t, err)
	edits := edit.Changes[DocumentURI("file:///a.py")]
	require.Len(t, edits, 2)
	assert.Equal(t, "first", edits[0].NewText)
	assert.Equal(t, "second", edits[1].NewText)
}

func TestDecodeWorkspaceEdit_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"null", `null`},
		{"changes not an object", `{"changes": []}`},
		{"edit without newText", `{"changes": {"file:///a.py": [{"range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 1}}}]}}`},
		{"edit with bad range", `{"changes": {"file:///a.py": [{"range": {"start": {"line": 0}}, "newText": "x"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeWorkspaceEdit(json.RawMessage(tt.raw))
			var malformed *MalformedResponseError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "textDocument/rename", malformed.Method)
		})
	}
}

func TestDecodeInitializeResult(t *testing.T) {
	t.Run("capabilities required", func(t *testing.T) {
		_, err := decodeInitializeResult(json.RawMessage(`{"serverInfo": {"name": "x"}}`))
		var malformed *MalformedResponseError
		require.ErrorAs(t, err, &malformed)
		assert.Equal(t, "initialize", malformed.Method)
	})

	t.Run("decodes capabilities and server info", func(t *testing.T) {
		raw := json.RawMessage(`{
			"capabilities": {"definitionProvider": true, "referencesProvider": {}},
			"serverInfo": {"name": "pyls", "version": "1.2.3"}
		}`)
		result, err := decodeInitializeResult(raw)
		require.NoError(t, err)
		assert.True(t, HasCapability(result.Capabilities.DefinitionProvider))
		assert.True(t, HasCapability(result.Capabilities.ReferencesProvider))
		assert.False(t, HasCapability(result.Capabilities.RenameProvider))
		require.NotNil(t, result.ServerInfo)
		assert.Equal(t, "pyls", result.ServerInfo.Name)
	})
}

func TestMalformedResponseError_Message(t *testing.T) {
	err := &MalformedResponseError{
		Method:  "textDocument/definition",
		Payload: json.RawMessage(`{"foo": "bar"}`),
	}
	assert.Contains(t, err.Error(), "textDocument/definition")
	assert.Contains(t, err.Error(), `{"foo": "bar"}`)

	var target *MalformedResponseError
	assert.True(t, errors.As(err, &target))
}
