// Package server provides a language server for quill scripts: compile
// diagnostics, completion of keywords and callable signatures, hover,
// go-to-definition for script functions and word references.
package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/quill/compiler"
	"github.com/chazu/quill/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "quill-lsp"

var log = commonlog.GetLogger("quill.lsp")

// LspServer bridges LSP editor features to a quill runtime via Worker.
type LspServer struct {
	worker    *Worker
	libraries []string

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server that checks documents against the
// libraries of r. libraries are added to every document's imports.
func NewLSP(r *vm.Runtime, libraries []string) *LspServer {
	s := &LspServer{
		worker:    NewWorker(r),
		libraries: libraries,
		docs:      make(map[string]string),
		version:   "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("quill LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(r *vm.Runtime) any {
		return complete(collect(r, s.libraries, text), prefix)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(r *vm.Runtime) any {
		return hover(collect(r, s.libraries, text), word)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	result, err := s.worker.Do(func(r *vm.Runtime) any {
		return definition(collect(r, s.libraries, text), uri, word)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return references(text, uri, word), nil
}

// --- Runtime-backed logic (called on worker goroutine) ---

// callable is one signature a document can call.
type callable struct {
	sig     string
	first   string
	library string // "" for functions defined in the document
	private bool
	line    int // definition line of document functions, 1-based
}

// symbols is what a document can see: its own functions, the functions of
// its libraries and its externals.
type symbols struct {
	callables []callable
	externals []string
	errors    compiler.ErrorList
}

func collect(r *vm.Runtime, libraries []string, text string) *symbols {
	prog, err := compiler.Parse(text, r, libraries)
	syms := &symbols{}
	if list, ok := err.(compiler.ErrorList); ok {
		syms.errors = list
	}
	if prog == nil {
		return syms
	}
	syms.externals = prog.Externals

	for _, f := range prog.Functions {
		sig := f.Callable.Sig
		syms.callables = append(syms.callables, callable{
			sig:     sig.String(),
			first:   sig.Parts[0].Word,
			private: f.Callable.Private,
			line:    f.SrcPos.Line,
		})
	}
	for _, lib := range prog.Libraries {
		infos, ok := r.LibraryFunctions(lib)
		if !ok {
			continue
		}
		for _, info := range infos {
			if info.Private && lib != prog.Library {
				continue
			}
			sig, err := compiler.ParseSignature(info.Signature)
			if err != nil {
				continue
			}
			syms.callables = append(syms.callables, callable{
				sig:     info.Signature,
				first:   sig.Parts[0].Word,
				library: lib,
				private: info.Private,
			})
		}
	}
	return syms
}

func complete(syms *symbols, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	for _, kw := range compiler.Keywords() {
		if strings.HasPrefix(kw, lowerPrefix) {
			kind := protocol.CompletionItemKindKeyword
			detail := "keyword"
			items = append(items, protocol.CompletionItem{
				Label:  kw,
				Kind:   &kind,
				Detail: &detail,
			})
		}
	}

	for _, c := range syms.callables {
		if !strings.HasPrefix(strings.ToLower(c.sig), lowerPrefix) {
			continue
		}
		kind := protocol.CompletionItemKindFunction
		detail := "function"
		if c.library != "" {
			detail = "library " + c.library
		}
		insert := callTemplate(c.sig)
		items = append(items, protocol.CompletionItem{
			Label:      c.sig,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &insert,
		})
	}

	for _, name := range syms.externals {
		if strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			kind := protocol.CompletionItemKindVariable
			detail := "external"
			items = append(items, protocol.CompletionItem{
				Label:  name,
				Kind:   &kind,
				Detail: &detail,
			})
		}
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

// callTemplate turns "add {a} to {b} {}" into the call text "add a to b".
func callTemplate(sig string) string {
	fields := strings.Fields(sig)
	out := fields[:0]
	for _, f := range fields {
		if f == "{}" {
			continue
		}
		out = append(out, strings.Trim(f, "{}"))
	}
	return strings.Join(out, " ")
}

func hover(syms *symbols, word string) *protocol.Hover {
	var lines []string
	for _, c := range syms.callables {
		if c.first != word {
			continue
		}
		where := "defined in this script"
		if c.library != "" {
			where = "library `" + c.library + "`"
		}
		if c.private {
			where += ", private"
		}
		lines = append(lines, fmt.Sprintf("`%s` (%s)", c.sig, where))
	}
	if len(lines) == 0 {
		return nil
	}
	sort.Strings(lines)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: strings.Join(lines, "\n\n"),
		},
	}
}

func definition(syms *symbols, uri protocol.DocumentUri, word string) []protocol.Location {
	var locs []protocol.Location
	for _, c := range syms.callables {
		if c.library != "" || c.first != word || c.line == 0 {
			continue
		}
		line := protocol.UInteger(c.line - 1)
		locs = append(locs, protocol.Location{
			URI: uri,
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: 0},
				End:   protocol.Position{Line: line, Character: 0},
			},
		})
	}
	if len(locs) == 0 {
		return nil
	}
	return locs
}

// references returns every identifier or keyword token spelled word.
func references(text string, uri protocol.DocumentUri, word string) []protocol.Location {
	var locs []protocol.Location
	for _, tok := range compiler.NewLexer(text).Tokenize() {
		if !tok.IsWord() || tok.Literal != word {
			continue
		}
		line := protocol.UInteger(tok.Pos.Line - 1)
		col := protocol.UInteger(tok.Pos.Column - 1)
		locs = append(locs, protocol.Location{
			URI: uri,
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: col},
				End:   protocol.Position{Line: line, Character: col + protocol.UInteger(len(word))},
			},
		})
	}
	return locs
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	result, err := s.worker.Do(func(r *vm.Runtime) any {
		return diagnose(collect(r, s.libraries, text).errors, text)
	})
	if err != nil {
		log.Errorf("diagnostics for %s: %v", uri, err)
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: result.([]protocol.Diagnostic),
	})
}

// diagnose converts compile errors to diagnostics spanning from the error
// position to the end of its line.
func diagnose(errs compiler.ErrorList, text string) []protocol.Diagnostic {
	lines := strings.Split(text, "\n")
	diagnostics := []protocol.Diagnostic{}
	for _, e := range errs {
		line := e.Pos.Line - 1
		if line < 0 {
			line = 0
		}
		start := e.Pos.Column - 1
		if start < 0 {
			start = 0
		}
		end := start
		if line < len(lines) {
			end = len([]rune(lines[line]))
			if end < start {
				end = start
			}
		}
		severity := protocol.DiagnosticSeverityError
		source := lspName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(start)},
				End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(end)},
			},
			Severity: &severity,
			Source:   &source,
			Message:  e.Msg,
		})
	}
	return diagnostics
}

// --- Text extraction helpers ---

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	if start == col {
		return ""
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isWordChar(rune(line[end])) {
		end++
	}
	if start == end {
		return ""
	}
	return line[start:end]
}

func isWordChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
