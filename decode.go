package lspclient

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Response disambiguation. Several LSP methods return a value whose shape,
// not just content, varies with server behavior and protocol version. Each
// decoder below runs a fixed, order-sensitive set of structural probes on
// the raw payload: discriminating keys are inspected first, then every
// element is validated field-by-field for the required members and their
// primitive types. Unknown fields never fail validation. When the final
// candidate in a method's order fails, the decoder reports
// *MalformedResponseError carrying the method name and raw payload.

// LocationResult is the decoded reply of a declaration or definition
// request. Exactly one field is set, mirroring the wire shape the server
// chose; a nil *LocationResult from the client means the server returned
// null ("no definition"), which is distinct from an empty Locations slice.
type LocationResult struct {
	// Location is set when the server returned a single bare location.
	Location *Location
	// Locations is set when the server returned an array of locations.
	Locations []Location
	// Links is set when the server returned location links (protocol 3.14,
	// only sent when the client declared link support).
	Links []LocationLink
}

// DocumentSymbolResult is the decoded reply of a documentSymbol request.
// Exactly one field is set; a server never mixes the two shapes within one
// reply.
type DocumentSymbolResult struct {
	// Symbols is the hierarchical DocumentSymbol form.
	Symbols []DocumentSymbol
	// Information is the flat SymbolInformation form.
	Information []SymbolInformation
}

// CompletionResult is the decoded reply of a completion request. Exactly one
// field is set; the presence of the isIncomplete wrapper on the wire is the
// sole discriminator.
type CompletionResult struct {
	// List is set when the server returned a CompletionList wrapper.
	List *CompletionList
	// Items is set when the server returned a bare item array.
	Items []CompletionItem
}

// --- Structural validators ---

func isNullResult(raw json.RawMessage, v gjson.Result) bool {
	return len(raw) == 0 || v.Type == gjson.Null
}

func validPosition(v gjson.Result) bool {
	if !v.IsObject() {
		return false
	}
	line := v.Get("line")
	char := v.Get("character")
	return line.Type == gjson.Number && char.Type == gjson.Number &&
		line.Int() >= 0 && char.Int() >= 0
}

func validRange(v gjson.Result) bool {
	return v.IsObject() && validPosition(v.Get("start")) && validPosition(v.Get("end"))
}

func validLocation(v gjson.Result) bool {
	return v.IsObject() &&
		v.Get("uri").Type == gjson.String &&
		validRange(v.Get("range"))
}

func validLocationLink(v gjson.Result) bool {
	if !v.IsObject() {
		return false
	}
	if origin := v.Get("originSelectionRange"); origin.Exists() && !validRange(origin) {
		return false
	}
	return v.Get("targetUri").Type == gjson.String &&
		validRange(v.Get("targetRange")) &&
		validRange(v.Get("targetSelectionRange"))
}

func validDocumentSymbol(v gjson.Result) bool {
	if !v.IsObject() {
		return false
	}
	if !validRange(v.Get("range")) || !validRange(v.Get("selectionRange")) {
		return false
	}
	if v.Get("name").Type != gjson.String || v.Get("kind").Type != gjson.Number {
		return false
	}
	if children := v.Get("children"); children.Exists() {
		if !children.IsArray() {
			return false
		}
		for _, child := range children.Array() {
			if !validDocumentSymbol(child) {
				return false
			}
		}
	}
	return true
}

func validSymbolInformation(v gjson.Result) bool {
	return v.IsObject() &&
		v.Get("name").Type == gjson.String &&
		v.Get("kind").Type == gjson.Number &&
		validLocation(v.Get("location"))
}

func validCompletionItem(v gjson.Result) bool {
	return v.IsObject() && v.Get("label").Type == gjson.String
}

func validSignatureInformation(v gjson.Result) bool {
	return v.IsObject() && v.Get("label").Type == gjson.String
}

func validTextEdit(v gjson.Result) bool {
	return v.IsObject() &&
		validRange(v.Get("range")) &&
		v.Get("newText").Type == gjson.String
}

// allValid reports whether every element passes the validator. Vacuously
// true for an empty array, so an empty reply validates as an empty sequence.
func allValid(elems []gjson.Result, valid func(gjson.Result) bool) bool {
	for _, e := range elems {
		if !valid(e) {
			return false
		}
	}
	return true
}

// --- Per-method decoders ---

// decodeInitializeResult validates and decodes an initialize reply. The
// capabilities member is the one structural requirement.
func decodeInitializeResult(raw json.RawMessage) (*InitializeResult, error) {
	v := gjson.ParseBytes(raw)
	if !v.IsObject() || !v.Get("capabilities").IsObject() {
		return nil, &MalformedResponseError{Method: "initialize", Payload: raw}
	}
	var result InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &MalformedResponseError{Method: "initialize", Payload: raw}
	}
	return &result, nil
}

// decodeDocumentSymbols decodes a documentSymbol reply. The hierarchical
// DocumentSymbol shape is probed first and wins ties; only when some element
// fails it is the whole array re-validated as flat SymbolInformation.
func decodeDocumentSymbols(raw json.RawMessage) (*DocumentSymbolResult, error) {
	const method = "textDocument/documentSymbol"

	v := gjson.ParseBytes(raw)
	if !v.IsArray() {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}
	elems := v.Array()

	if allValid(elems, validDocumentSymbol) {
		symbols := make([]DocumentSymbol, 0, len(elems))
		if err := json.Unmarshal(raw, &symbols); err != nil {
			return nil, &MalformedResponseError{Method: method, Payload: raw}
		}
		return &DocumentSymbolResult{Symbols: symbols}, nil
	}

	if allValid(elems, validSymbolInformation) {
		info := make([]SymbolInformation, 0, len(elems))
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, &MalformedResponseError{Method: method, Payload: raw}
		}
		return &DocumentSymbolResult{Information: info}, nil
	}

	return nil, &MalformedResponseError{Method: method, Payload: raw}
}

// decodeLocationResult decodes a declaration or definition reply. Null
// short-circuits to nil. A top-level uri key marks a single bare Location.
// Arrays are validated as Location elements first, then as LocationLink.
func decodeLocationResult(method string, raw json.RawMessage) (*LocationResult, error) {
	v := gjson.ParseBytes(raw)

	switch {
	case isNullResult(raw, v):
		return nil, nil

	case v.IsObject():
		if !v.Get("uri").Exists() || !validLocation(v) {
			return nil, &MalformedResponseError{Method: method, Payload: raw}
		}
		var loc Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			return nil, &MalformedResponseError{Method: method, Payload: raw}
		}
		return &LocationResult{Location: &loc}, nil

	case v.IsArray():
		elems := v.Array()

		if allValid(elems, validLocation) {
			locs := make([]Location, 0, len(elems))
			if err := json.Unmarshal(raw, &locs); err != nil {
				return nil, &MalformedResponseError{Method: method, Payload: raw}
			}
			return &LocationResult{Locations: locs}, nil
		}

		if allValid(elems, validLocationLink) {
			links := make([]LocationLink, 0, len(elems))
			if err := json.Unmarshal(raw, &links); err != nil {
				return nil, &MalformedResponseError{Method: method, Payload: raw}
			}
			return &LocationResult{Links: links}, nil
		}
	}

	return nil, &MalformedResponseError{Method: method, Payload: raw}
}

// decodeLocationSlice decodes a typeDefinition reply: null or an array of
// locations, nothing else. LocationLink is not a candidate for this method.
func decodeLocationSlice(method string, raw json.RawMessage) ([]Location, error) {
	v := gjson.ParseBytes(raw)
	if isNullResult(raw, v) {
		return nil, nil
	}

	if !v.IsArray() || !allValid(v.Array(), validLocation) {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}

	locs := make([]Location, 0, len(v.Array()))
	if err := json.Unmarshal(raw, &locs); err != nil {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}
	return locs, nil
}

// decodeReferences decodes a references reply, always an array of locations.
// An empty array is a valid empty sequence; null is not accepted.
func decodeReferences(raw json.RawMessage) ([]Location, error) {
	const method = "textDocument/references"

	v := gjson.ParseBytes(raw)
	if !v.IsArray() || !allValid(v.Array(), validLocation) {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}

	locs := make([]Location, 0, len(v.Array()))
	if err := json.Unmarshal(raw, &locs); err != nil {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}
	return locs, nil
}

// decodeCompletionResult decodes a completion reply. The isIncomplete key at
// the top level is the sole discriminator between the wrapped CompletionList
// and a bare item array.
func decodeCompletionResult(raw json.RawMessage) (*CompletionResult, error) {
	const method = "textDocument/completion"

	v := gjson.ParseBytes(raw)

	if v.IsObject() {
		items := v.Get("items")
		if !v.Get("isIncomplete").Exists() || !items.IsArray() || !allValid(items.Array(), validCompletionItem) {
			return nil, &MalformedResponseError{Method: method, Payload: raw}
		}
		var list CompletionList
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, &MalformedResponseError{Method: method, Payload: raw}
		}
		if list.Items == nil {
			list.Items = []CompletionItem{}
		}
		return &CompletionResult{List: &list}, nil
	}

	if v.IsArray() && allValid(v.Array(), validCompletionItem) {
		items := make([]CompletionItem, 0, len(v.Array()))
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &MalformedResponseError{Method: method, Payload: raw}
		}
		return &CompletionResult{Items: items}, nil
	}

	return nil, &MalformedResponseError{Method: method, Payload: raw}
}

// decodeSignatureHelp decodes a signatureHelp reply. Null means no active
// signature context and yields nil without error.
func decodeSignatureHelp(raw json.RawMessage) (*SignatureHelp, error) {
	const method = "textDocument/signatureHelp"

	v := gjson.ParseBytes(raw)
	if isNullResult(raw, v) {
		return nil, nil
	}

	signatures := v.Get("signatures")
	if !v.IsObject() || !signatures.IsArray() || !allValid(signatures.Array(), validSignatureInformation) {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}

	var help SignatureHelp
	if err := json.Unmarshal(raw, &help); err != nil {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}
	return &help, nil
}

// decodeWorkspaceEdit rebuilds a rename reply into a WorkspaceEdit value,
// decomposing each wire edit into its two positions and replacement text.
// Absence of the changes key is not an error and yields an empty mapping.
func decodeWorkspaceEdit(raw json.RawMessage) (*WorkspaceEdit, error) {
	const method = "textDocument/rename"

	v := gjson.ParseBytes(raw)
	if !v.IsObject() {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}

	edit := &WorkspaceEdit{Changes: make(map[DocumentURI][]TextEdit)}

	changes := v.Get("changes")
	if !changes.Exists() {
		return edit, nil
	}
	if !changes.IsObject() {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}

	malformed := false
	changes.ForEach(func(uri, wireEdits gjson.Result) bool {
		if !wireEdits.IsArray() {
			malformed = true
			return false
		}
		edits := make([]TextEdit, 0, len(wireEdits.Array()))
		for _, e := range wireEdits.Array() {
			if !validTextEdit(e) {
				malformed = true
				return false
			}
			edits = append(edits, TextEdit{
				Range: Range{
					Start: Position{
						Line:      int(e.Get("range.start.line").Int()),
						Character: int(e.Get("range.start.character").Int()),
					},
					End: Position{
						Line:      int(e.Get("range.end.line").Int()),
						Character: int(e.Get("range.end.character").Int()),
					},
				},
				NewText: e.Get("newText").String(),
			})
		}
		edit.Changes[DocumentURI(uri.String())] = edits
		return true
	})
	if malformed {
		return nil, &MalformedResponseError{Method: method, Payload: raw}
	}

	return edit, nil
}
