package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/classcache/internal/workspace"
	"github.com/Aman-CERP/classcache/pkg/classindex"
	"github.com/Aman-CERP/classcache/pkg/tokens"
	"github.com/Aman-CERP/classcache/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "classcache"

// Cache is the part of workspace.Cache the server needs.
type Cache interface {
	AllTokens() tokens.Set
	Submit(ev workspace.Event) (bool, error)
	Status() workspace.Status
	Ready() <-chan struct{}
}

var _ Cache = (*workspace.Cache)(nil)

// Server exposes a class cache to editors and agents over MCP.
type Server struct {
	mcp      *mcp.Server
	cache    Cache
	rootPath string
	logger   *slog.Logger
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "css_classes",
		Description: "List CSS class names used in the workspace's markup as completion items (.name). Answers from memory without touching disk.",
	},
	{
		Name:        "document_event",
		Description: "Report an editor document lifecycle event (opened, changed, saved, closed) with its current text so unsaved edits are reflected in css_classes.",
	},
	{
		Name:        "cache_status",
		Description: "Report whether the initial workspace scan finished and how many documents and classes are cached.",
	},
}

// NewServer creates a server backed by cache. rootPath is informational.
func NewServer(cache Cache, rootPath string) (*Server, error) {
	if cache == nil {
		return nil, errors.New("cache is required")
	}

	s := &Server{
		cache:    cache,
		rootPath: rootPath,
		logger:   slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Short(),
		},
		nil,
	)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-style arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "css_classes":
		var in CSSClassesInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleCSSClasses(ctx, in)
	case "document_event":
		var in DocumentEventInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleDocumentEvent(ctx, in)
	case "cache_status":
		return s.handleCacheStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, into any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, into); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) ready() bool {
	select {
	case <-s.cache.Ready():
		return true
	default:
		return false
	}
}

func (s *Server) handleCSSClasses(_ context.Context, in CSSClassesInput) (*CSSClassesOutput, error) {
	if in.Limit < 0 {
		return nil, NewInvalidParamsError("limit must not be negative")
	}
	set := s.cache.AllTokens()
	items := CompletionItems(set, in.Prefix, in.Limit)
	return &CSSClassesOutput{
		Items: items,
		Count: len(items),
		Total: set.Len(),
		Ready: s.ready(),
	}, nil
}

func (s *Server) handleDocumentEvent(_ context.Context, in DocumentEventInput) (*DocumentEventOutput, error) {
	kind, err := workspace.ParseEventKind(in.Kind)
	if err != nil {
		return nil, MapError(err)
	}
	if !kind.IsDocument() {
		return nil, NewInvalidParamsError("kind must be one of: opened, changed, saved, closed")
	}
	id, err := classindex.ParseIdentity(in.URI)
	if err != nil {
		return nil, MapError(err)
	}

	ev := workspace.Event{Kind: kind, ID: id, LanguageID: in.LanguageID}
	switch {
	case kind == workspace.DocumentClosed:
	case in.Text != nil:
		ev.Text = *in.Text
	case kind == workspace.DocumentSaved:
		ev.FromDisk = true
	default:
		return nil, NewInvalidParamsError("text is required for opened and changed")
	}

	accepted, err := s.cache.Submit(ev)
	if err != nil {
		return nil, MapError(err)
	}
	s.logger.Debug("document event",
		slog.String("kind", kind.String()),
		slog.String("uri", id.String()),
		slog.Bool("accepted", accepted))
	return &DocumentEventOutput{Accepted: accepted, Identity: id.String()}, nil
}

func (s *Server) handleCacheStatus(_ context.Context) (*CacheStatusOutput, error) {
	st := s.cache.Status()
	if st.Closed {
		return nil, &MCPError{Code: ErrCodeCacheClosed, Message: "class cache is closed"}
	}
	return &CacheStatusOutput{
		Version:        version.Short(),
		Root:           s.rootPath,
		Ready:          st.Ready,
		Documents:      st.Documents,
		Classes:        st.Tokens,
		OpenDocuments:  st.OpenDocuments,
		PendingEvents:  st.PendingEvents,
		AppliedEvents:  st.AppliedEvents,
		FilteredEvents: st.FilteredEvents,
		Init:           st.Init,
		Progress:       st.Progress,
		Watchers:       st.Watchers,
	}, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpCSSClassesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpDocumentEventHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpCacheStatusHandler)
	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpCSSClassesHandler(ctx context.Context, _ *mcp.CallToolRequest, in CSSClassesInput) (
	*mcp.CallToolResult,
	*CSSClassesOutput,
	error,
) {
	out, err := s.handleCSSClasses(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) mcpDocumentEventHandler(ctx context.Context, _ *mcp.CallToolRequest, in DocumentEventInput) (
	*mcp.CallToolResult,
	*DocumentEventOutput,
	error,
) {
	out, err := s.handleDocumentEvent(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

func (s *Server) mcpCacheStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ CacheStatusInput) (
	*mcp.CallToolResult,
	*CacheStatusOutput,
	error,
) {
	out, err := s.handleCacheStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// Serve runs the server on the given transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
