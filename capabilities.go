package lspclient

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// ClientCapabilities declares the optional protocol features this client
// supports. The typed fields cover the subset this package negotiates; Extra
// carries anything beyond that and is merged into the serialized object at
// the wire boundary, so unknown or future capability keys survive intact.
//
// Extra keys are sjson paths, so nested values can be set with dotted keys
// (e.g. "textDocument.hover.contentFormat").
type ClientCapabilities struct {
	Workspace    *WorkspaceClientCapabilities    `json:"workspace,omitempty"`
	TextDocument *TextDocumentClientCapabilities `json:"textDocument,omitempty"`
	Window       *WindowClientCapabilities       `json:"window,omitempty"`
	Extra        map[string]any                  `json:"-"`
}

// MarshalJSON serializes the typed capability tree and then layers the Extra
// entries on top, producing the plain key/value object the protocol expects.
func (c ClientCapabilities) MarshalJSON() ([]byte, error) {
	type plain ClientCapabilities
	data, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	for path, value := range c.Extra {
		data, err = sjson.SetBytes(data, path, value)
		if err != nil {
			return nil, fmt.Errorf("capability %q: %w", path, err)
		}
	}
	return data, nil
}

// CapabilitiesFromMap builds a ClientCapabilities value from a raw mapping.
// Known fields become readable through the typed tree; the full mapping is
// retained in Extra so serialization reproduces every key the caller
// supplied, including ones this package does not model.
func CapabilitiesFromMap(m map[string]any) (ClientCapabilities, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return ClientCapabilities{}, fmt.Errorf("capabilities mapping: %w", err)
	}

	var caps ClientCapabilities
	if err := json.Unmarshal(data, &caps); err != nil {
		return ClientCapabilities{}, fmt.Errorf("capabilities mapping: %w", err)
	}

	caps.Extra = make(map[string]any, len(m))
	for k, v := range m {
		caps.Extra[k] = v
	}
	return caps, nil
}

// WireObject returns the capabilities as the plain key/value object sent on
// the wire.
func (c ClientCapabilities) WireObject() (map[string]any, error) {
	data, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	obj := make(map[string]any)
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// WorkspaceClientCapabilities define capabilities on the workspace.
type WorkspaceClientCapabilities struct {
	ApplyEdit        bool                             `json:"applyEdit,omitempty"`
	WorkspaceEdit    *WorkspaceEditClientCapabilities `json:"workspaceEdit,omitempty"`
	WorkspaceFolders bool                             `json:"workspaceFolders,omitempty"`
	Configuration    bool                             `json:"configuration,omitempty"`
}

// WorkspaceEditClientCapabilities define capabilities for workspace edits.
type WorkspaceEditClientCapabilities struct {
	DocumentChanges bool `json:"documentChanges,omitempty"`
}

// TextDocumentClientCapabilities define capabilities for text documents.
type TextDocumentClientCapabilities struct {
	Synchronization *TextDocumentSyncClientCapabilities `json:"synchronization,omitempty"`
	Completion      *CompletionClientCapabilities       `json:"completion,omitempty"`
	SignatureHelp   *SignatureHelpClientCapabilities    `json:"signatureHelp,omitempty"`
	Declaration     *DeclarationClientCapabilities      `json:"declaration,omitempty"`
	Definition      *DefinitionClientCapabilities       `json:"definition,omitempty"`
	TypeDefinition  *TypeDefinitionClientCapabilities   `json:"typeDefinition,omitempty"`
	References      *ReferenceClientCapabilities        `json:"references,omitempty"`
	DocumentSymbol  *DocumentSymbolClientCapabilities   `json:"documentSymbol,omitempty"`
	Rename          *RenameClientCapabilities           `json:"rename,omitempty"`
}

// TextDocumentSyncClientCapabilities define capabilities for document sync.
type TextDocumentSyncClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	WillSave            bool `json:"willSave,omitempty"`
	DidSave             bool `json:"didSave,omitempty"`
}

// CompletionClientCapabilities define capabilities for completion.
type CompletionClientCapabilities struct {
	DynamicRegistration bool                        `json:"dynamicRegistration,omitempty"`
	CompletionItem      *CompletionItemCapabilities `json:"completionItem,omitempty"`
	ContextSupport      bool                        `json:"contextSupport,omitempty"`
}

// CompletionItemCapabilities define capabilities for completion items.
type CompletionItemCapabilities struct {
	SnippetSupport      bool         `json:"snippetSupport,omitempty"`
	DocumentationFormat []MarkupKind `json:"documentationFormat,omitempty"`
	DeprecatedSupport   bool         `json:"deprecatedSupport,omitempty"`
	PreselectSupport    bool         `json:"preselectSupport,omitempty"`
}

// SignatureHelpClientCapabilities define capabilities for signature help.
type SignatureHelpClientCapabilities struct {
	DynamicRegistration  bool                              `json:"dynamicRegistration,omitempty"`
	SignatureInformation *SignatureInformationCapabilities `json:"signatureInformation,omitempty"`
	ContextSupport       bool                              `json:"contextSupport,omitempty"`
}

// SignatureInformationCapabilities define capabilities for signature information.
type SignatureInformationCapabilities struct {
	DocumentationFormat []MarkupKind `json:"documentationFormat,omitempty"`
}

// DeclarationClientCapabilities define capabilities for declaration.
// LinkSupport opts in to LocationLink results (protocol 3.14).
type DeclarationClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	LinkSupport         bool `json:"linkSupport,omitempty"`
}

// DefinitionClientCapabilities define capabilities for definition.
type DefinitionClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	LinkSupport         bool `json:"linkSupport,omitempty"`
}

// TypeDefinitionClientCapabilities define capabilities for type definition.
type TypeDefinitionClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

// ReferenceClientCapabilities define capabilities for references.
type ReferenceClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
}

// DocumentSymbolClientCapabilities define capabilities for document symbols.
type DocumentSymbolClientCapabilities struct {
	DynamicRegistration               bool `json:"dynamicRegistration,omitempty"`
	HierarchicalDocumentSymbolSupport bool `json:"hierarchicalDocumentSymbolSupport,omitempty"`
}

// RenameClientCapabilities define capabilities for rename.
type RenameClientCapabilities struct {
	DynamicRegistration bool `json:"dynamicRegistration,omitempty"`
	PrepareSupport      bool `json:"prepareSupport,omitempty"`
}

// WindowClientCapabilities define capabilities for the window.
type WindowClientCapabilities struct {
	WorkDoneProgress bool `json:"workDoneProgress,omitempty"`
}

// DefaultClientCapabilities returns reasonable default client capabilities
// for an editor integration: full document sync, context-aware completion,
// hierarchical symbols, and location-link navigation results.
func DefaultClientCapabilities() ClientCapabilities {
	return ClientCapabilities{
		Workspace: &WorkspaceClientCapabilities{
			ApplyEdit:        true,
			WorkspaceFolders: true,
			WorkspaceEdit: &WorkspaceEditClientCapabilities{
				DocumentChanges: false,
			},
		},
		TextDocument: &TextDocumentClientCapabilities{
			Synchronization: &TextDocumentSyncClientCapabilities{
				DidSave: true,
			},
			Completion: &CompletionClientCapabilities{
				CompletionItem: &CompletionItemCapabilities{
					SnippetSupport:      true,
					DocumentationFormat: []MarkupKind{MarkupKindMarkdown, MarkupKindPlainText},
					DeprecatedSupport:   true,
					PreselectSupport:    true,
				},
				ContextSupport: true,
			},
			SignatureHelp: &SignatureHelpClientCapabilities{
				SignatureInformation: &SignatureInformationCapabilities{
					DocumentationFormat: []MarkupKind{MarkupKindMarkdown, MarkupKindPlainText},
				},
				ContextSupport: true,
			},
			Declaration:    &DeclarationClientCapabilities{LinkSupport: true},
			Definition:     &DefinitionClientCapabilities{LinkSupport: true},
			TypeDefinition: &TypeDefinitionClientCapabilities{},
			References:     &ReferenceClientCapabilities{},
			DocumentSymbol: &DocumentSymbolClientCapabilities{
				HierarchicalDocumentSymbolSupport: true,
			},
			Rename: &RenameClientCapabilities{PrepareSupport: true},
		},
		Window: &WindowClientCapabilities{
			WorkDoneProgress: true,
		},
	}
}
