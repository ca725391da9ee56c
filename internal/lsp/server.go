package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/forthls/internal/config"
	"github.com/leapstack-labs/forthls/internal/words"
	"github.com/leapstack-labs/forthls/internal/workspace"
	"github.com/leapstack-labs/forthls/pkg/index"
)

// JSON-RPC error codes.
const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Options configures a Server.
type Options struct {
	// Logger receives server logs. Defaults to stderr at info level.
	Logger *slog.Logger
	// Config overrides the configuration otherwise loaded from the
	// workspace root on initialize.
	Config *config.Config
	// Version is reported to the client in serverInfo.
	Version string
}

// Server implements the Language Server Protocol for Forth.
//
// Index and document mutation happen only on the goroutine running Run:
// client messages and file watcher events are serialized through one loop.
type Server struct {
	// Document management
	documents *DocumentStore

	// Cross-file definitions and references
	index    *index.Index
	numbered *numberedUses
	effects  stackEffects
	vocab    *words.Vocabulary

	// Project context
	config      *config.Config
	fixedConfig bool
	projectRoot string
	initialized bool
	version     string

	// Disk changes to files the editor does not have open
	fileEvents <-chan workspace.Event

	// I/O
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	// Logging
	logger *slog.Logger

	// Shutdown state
	shutdown bool
	exited   bool
}

// NewServer creates a new LSP server instance.
func NewServer(reader io.Reader, writer io.Writer) *Server {
	return NewServerWithOptions(reader, writer, Options{})
}

// NewServerWithLogger creates a new LSP server instance with a custom logger.
func NewServerWithLogger(reader io.Reader, writer io.Writer, logger *slog.Logger) *Server {
	return NewServerWithOptions(reader, writer, Options{Logger: logger})
}

// NewServerWithOptions creates a new LSP server instance.
func NewServerWithOptions(reader io.Reader, writer io.Writer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	return &Server{
		documents:   NewDocumentStore(),
		index:       index.New(),
		numbered:    newNumberedUses(),
		effects:     make(stackEffects),
		vocab:       words.MustBuiltin(),
		config:      cfg,
		fixedConfig: opts.Config != nil,
		version:     opts.Version,
		reader:      bufio.NewReader(reader),
		writer:      writer,
		logger:      logger,
	}
}

// Index exposes the server's index for inspection.
func (s *Server) Index() *index.Index {
	return s.index
}

// Run processes JSON-RPC messages and file events until the client sends
// exit, the input stream ends, or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Forth LSP server starting...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages := make(chan *JSONRPCMessage)
	readErr := make(chan error, 1)
	go s.readLoop(ctx, messages, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				s.logger.Info("Client disconnected")
				return nil
			}
			return err

		case msg := <-messages:
			if err := s.handleMessage(ctx, msg); err != nil {
				s.logger.Error("Error handling message", "method", msg.Method, "error", err)
			}
			if s.exited {
				return nil
			}

		case ev, ok := <-s.fileEvents:
			if !ok {
				s.fileEvents = nil
				continue
			}
			s.handleFileEvent(ev)
		}
	}
}

// readLoop feeds decoded messages to the main loop. Malformed messages are
// logged and skipped; a broken stream ends the loop.
func (s *Server) readLoop(ctx context.Context, messages chan<- *JSONRPCMessage, readErr chan<- error) {
	for {
		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
				readErr <- io.EOF
				return
			}
			s.logger.Error("Error reading message", "error", err)
			continue
		}

		select {
		case messages <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// JSONRPCMessage represents a JSON-RPC 2.0 message.
type JSONRPCMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *JSONRPCError    `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// readMessage reads a JSON-RPC message from the input stream.
func (s *Server) readMessage() (*JSONRPCMessage, error) {
	// Read headers
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}

		if strings.HasPrefix(line, "Content-Length: ") {
			lengthStr := strings.TrimPrefix(line, "Content-Length: ")
			contentLength, err = strconv.Atoi(lengthStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	// Read body
	body := make([]byte, contentLength)
	_, err := io.ReadFull(s.reader, body)
	if err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	// Parse message
	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	return &msg, nil
}

// sendResponse sends a JSON-RPC response.
func (s *Server) sendResponse(id *json.RawMessage, result any, err *JSONRPCError) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
	}

	if err != nil {
		msg.Error = err
	} else {
		resultBytes, _ := json.Marshal(result)
		msg.Result = resultBytes
	}

	s.writeMessage(&msg)
}

// sendError answers a request with err and returns it for logging.
func (s *Server) sendError(id *json.RawMessage, code int, err error) error {
	rpcErr := &JSONRPCError{Code: code, Message: err.Error()}
	s.sendResponse(id, nil, rpcErr)
	return rpcErr
}

// sendNotification sends a JSON-RPC notification (no ID).
func (s *Server) sendNotification(method string, params any) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		Method:  method,
	}

	if params != nil {
		paramsBytes, _ := json.Marshal(params)
		msg.Params = paramsBytes
	}

	s.writeMessage(&msg)
}

// writeMessage writes a JSON-RPC message to the output stream.
func (s *Server) writeMessage(msg *JSONRPCMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Error marshaling message", "error", err)
		return
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	_, _ = s.writer.Write([]byte(header))
	_, _ = s.writer.Write(body)
}

// handleMessage dispatches a message to the appropriate handler.
func (s *Server) handleMessage(ctx context.Context, msg *JSONRPCMessage) error {
	s.logger.Debug("Received", "method", msg.Method)

	if s.shutdown && msg.Method != "exit" {
		if msg.ID != nil {
			return s.sendError(msg.ID, codeInvalidRequest, errors.New("server is shutting down"))
		}
		return nil
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(ctx, msg)
	case "initialized":
		return s.handleInitialized(msg)
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		return s.handleExit(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "textDocument/references":
		return s.handleReferences(msg)
	case "textDocument/documentSymbol":
		return s.handleDocumentSymbol(msg)
	case "workspace/symbol":
		return s.handleWorkspaceSymbol(msg)
	case "textDocument/prepareRename":
		return s.handlePrepareRename(msg)
	case "textDocument/rename":
		return s.handleRename(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	case "textDocument/signatureHelp":
		return s.handleSignatureHelp(msg)
	case "textDocument/semanticTokens/full":
		return s.handleSemanticTokens(msg)
	case "textDocument/formatting":
		return s.handleFormatting(msg)
	default:
		if msg.ID != nil {
			// Unknown method with ID - respond with method not found
			s.sendResponse(msg.ID, nil, &JSONRPCError{
				Code:    codeMethodNotFound,
				Message: "Method not found: " + msg.Method,
			})
		}
		return nil
	}
}

// --- Lifecycle handlers ---

func (s *Server) handleInitialize(ctx context.Context, msg *JSONRPCMessage) error {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	s.projectRoot = rootPath(params)
	s.logger.Info("Project root", "path", s.projectRoot)

	configErr := s.loadConfig()

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
				Save: &SaveOptions{
					IncludeText: true,
				},
			},
			CompletionProvider:      &CompletionOptions{},
			HoverProvider:           true,
			DefinitionProvider:      true,
			ReferencesProvider:      true,
			DocumentSymbolProvider:  true,
			WorkspaceSymbolProvider: true,
			RenameProvider:          &RenameOptions{PrepareProvider: true},
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []CodeActionKind{CodeActionKindQuickFix},
			},
			SignatureHelpProvider: &SignatureHelpOptions{TriggerCharacters: []string{" "}},
			SemanticTokensProvider: &SemanticTokensOptions{
				Legend: semanticLegend,
				Full:   true,
			},
			DocumentFormattingProvider: true,
		},
		ServerInfo: &ServerInfo{Name: "forthls", Version: s.version},
	}
	s.sendResponse(msg.ID, result, nil)

	if configErr != nil {
		s.sendNotification("window/showMessage", &ShowMessageParams{
			Type:    MessageTypeWarning,
			Message: "forthls: " + configErr.Error() + "; using defaults.",
		})
	}

	s.loadWorkspace(ctx)
	return nil
}

// rootPath picks the workspace root the client announced, if any.
func rootPath(params InitializeParams) string {
	switch {
	case params.RootURI != "":
		return workspace.URIToPath(params.RootURI)
	case params.RootPath != "":
		return params.RootPath
	case len(params.WorkspaceFolders) > 0:
		return workspace.URIToPath(params.WorkspaceFolders[0].URI)
	}
	return ""
}

// loadConfig reads the project configuration and builds the vocabulary.
// On error the previous configuration stays in effect.
func (s *Server) loadConfig() error {
	if !s.fixedConfig && s.projectRoot != "" {
		cfg, err := config.LoadFromDir(s.projectRoot)
		if err != nil {
			s.logger.Warn("Failed to load project config", "root", s.projectRoot, "error", err)
			return err
		}
		s.config = cfg
		if cfg.File != "" {
			s.logger.Info("Loaded project config", "file", cfg.File)
		}
	}

	vocab, err := s.config.Vocabulary()
	if err != nil {
		s.logger.Warn("Failed to build vocabulary", "error", err)
		return err
	}
	s.vocab = vocab
	return nil
}

// loadWorkspace indexes every source file under the project root and starts
// the watcher. Files are read in parallel and indexed here, in order.
func (s *Server) loadWorkspace(ctx context.Context) {
	if s.projectRoot == "" {
		return
	}

	files, err := workspace.Scan(ctx, s.projectRoot, s.config.HasSourceExtension)
	if err != nil {
		// Files that were read are still indexed.
		s.logger.Warn("Workspace scan incomplete", "root", s.projectRoot, "error", err)
	}
	for _, f := range files {
		s.updateIndex(f.URI, f.Tokens, f.Lines)
	}
	s.logger.Info("Indexed workspace", "files", len(files), "words", len(s.index.AllWords()))

	if !s.config.Watch {
		return
	}
	w, err := workspace.NewWatcher(s.projectRoot, s.config.HasSourceExtension, s.logger)
	if err != nil {
		s.logger.Warn("File watching disabled", "error", err)
		return
	}
	go w.Run(ctx)
	s.fileEvents = w.Events()
}

func (s *Server) handleInitialized(_ *JSONRPCMessage) error {
	s.initialized = true
	s.logger.Info("Server initialized")
	return nil
}

func (s *Server) handleShutdown(msg *JSONRPCMessage) error {
	s.shutdown = true
	s.sendResponse(msg.ID, nil, nil)
	s.logger.Info("Server shutdown")
	return nil
}

func (s *Server) handleExit(_ *JSONRPCMessage) error {
	s.logger.Info("Server exit")
	s.exited = true
	return nil
}

// ShutdownRequested reports whether the client sent shutdown before exit.
func (s *Server) ShutdownRequested() bool {
	return s.shutdown
}

// --- Document handlers ---

func (s *Server) handleDidOpen(msg *JSONRPCMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	doc := s.documents.Open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	s.logger.Debug("Opened", "uri", doc.URI)

	s.indexDocument(doc)
	return nil
}

func (s *Server) handleDidClose(msg *JSONRPCMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	s.documents.Close(uri)
	s.logger.Debug("Closed", "uri", uri)

	// The file on disk is authoritative again.
	s.reindexFromDisk(uri)

	// Clear diagnostics
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})
	s.publishAllDiagnostics()

	return nil
}

func (s *Server) handleDidChange(msg *JSONRPCMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	// We use full sync, so take the last change
	if len(params.ContentChanges) == 0 {
		return nil
	}
	lastChange := params.ContentChanges[len(params.ContentChanges)-1]
	doc := s.documents.Update(params.TextDocument.URI, lastChange.Text, params.TextDocument.Version)

	s.indexDocument(doc)
	return nil
}

func (s *Server) handleDidSave(msg *JSONRPCMessage) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	doc := s.documents.Get(uri)
	switch {
	case params.Text != "":
		version := 0
		if doc != nil {
			version = doc.Version
		}
		doc = s.documents.Update(uri, params.Text, version)
	case doc == nil:
		s.reindexFromDisk(uri)
		s.publishAllDiagnostics()
		return nil
	}

	s.logger.Debug("Saved", "uri", uri)
	s.indexDocument(doc)
	return nil
}

// indexDocument replaces the document's contribution to the index and
// refreshes diagnostics, since any open document may use its words.
func (s *Server) indexDocument(doc *Document) {
	s.updateIndex(doc.URI, doc.Tokens, doc.Lines)
	s.publishAllDiagnostics()
}

// reindexFromDisk indexes a workspace source file from disk, or drops it
// from the index when it is not one or no longer exists.
func (s *Server) reindexFromDisk(uri string) {
	path := workspace.URIToPath(uri)
	if !s.isWorkspaceSource(path) {
		s.removeFromIndex(uri)
		return
	}

	f, err := workspace.ReadFile(path)
	if err != nil {
		s.logger.Debug("Dropping file from index", "path", path, "error", err)
		s.removeFromIndex(uri)
		return
	}
	s.updateIndex(uri, f.Tokens, f.Lines)
}

// isWorkspaceSource reports whether path is a source file under the project root.
func (s *Server) isWorkspaceSource(path string) bool {
	if s.projectRoot == "" || !s.config.HasSourceExtension(path) {
		return false
	}
	rel, err := filepath.Rel(s.projectRoot, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// handleFileEvent applies a disk change. Open documents are owned by the
// editor and ignored until closed. A removed path may be a directory, so
// everything indexed under it goes.
func (s *Server) handleFileEvent(ev workspace.Event) {
	if ev.Removed {
		if removed := s.removeUnder(ev.Path); len(removed) > 0 {
			s.logger.Debug("Removed from index", "path", ev.Path, "files", len(removed))
			s.publishAllDiagnostics()
		}
		return
	}

	uri := workspace.PathToURI(ev.Path)
	if s.documents.Get(uri) != nil {
		return
	}
	s.reindexFromDisk(uri)
	s.publishAllDiagnostics()
}

// removeUnder drops every indexed file that is path or lies below it,
// except open documents. It returns the dropped URIs.
func (s *Server) removeUnder(path string) []string {
	prefix := strings.TrimSuffix(path, string(filepath.Separator)) + string(filepath.Separator)

	var removed []string
	for _, uri := range s.index.Files() {
		p := workspace.URIToPath(uri)
		if p != path && !strings.HasPrefix(p, prefix) {
			continue
		}
		if s.documents.Get(uri) != nil {
			continue
		}
		s.removeFromIndex(uri)
		removed = append(removed, uri)
	}
	return removed
}

// --- Feature handlers ---

func (s *Server) handleCompletion(msg *JSONRPCMessage) error {
	var params CompletionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	items := s.getCompletions(params)
	s.sendResponse(msg.ID, &CompletionList{Items: items}, nil)
	return nil
}

func (s *Server) handleHover(msg *JSONRPCMessage) error {
	var params HoverParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	hover := s.getHover(params)
	s.sendResponse(msg.ID, hover, nil)
	return nil
}

func (s *Server) handleDefinition(msg *JSONRPCMessage) error {
	var params DefinitionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	locations := s.getDefinition(params)
	s.sendResponse(msg.ID, locations, nil)
	return nil
}

func (s *Server) handleSignatureHelp(msg *JSONRPCMessage) error {
	var params SignatureHelpParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	s.sendResponse(msg.ID, s.getSignatureHelp(params), nil)
	return nil
}

func (s *Server) handleSemanticTokens(msg *JSONRPCMessage) error {
	var params SemanticTokensParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	s.sendResponse(msg.ID, s.getSemanticTokens(params), nil)
	return nil
}

func (s *Server) handleFormatting(msg *JSONRPCMessage) error {
	var params DocumentFormattingParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	s.sendResponse(msg.ID, s.getFormatting(params), nil)
	return nil
}

func (s *Server) handleReferences(msg *JSONRPCMessage) error {
	var params ReferenceParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	locations := s.getReferences(params)
	s.sendResponse(msg.ID, locations, nil)
	return nil
}

func (s *Server) handleDocumentSymbol(msg *JSONRPCMessage) error {
	var params DocumentSymbolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	symbols := s.getDocumentSymbols(params)
	s.sendResponse(msg.ID, symbols, nil)
	return nil
}

func (s *Server) handleWorkspaceSymbol(msg *JSONRPCMessage) error {
	var params WorkspaceSymbolParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	symbols := s.getWorkspaceSymbols(params)
	s.sendResponse(msg.ID, symbols, nil)
	return nil
}

func (s *Server) handlePrepareRename(msg *JSONRPCMessage) error {
	var params PrepareRenameParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	result := s.prepareRename(params)
	s.sendResponse(msg.ID, result, nil)
	return nil
}

func (s *Server) handleRename(msg *JSONRPCMessage) error {
	var params RenameParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}

	edit, err := s.rename(params)
	if err != nil {
		return s.sendError(msg.ID, codeInvalidParams, err)
	}
	s.sendResponse(msg.ID, edit, nil)
	return nil
}
