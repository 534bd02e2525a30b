// Package mcp exposes a tools.Registry as a Model Context Protocol server.
// Protocol handling lives in the official go-sdk; this package only feeds
// it tool definitions and turns registry results into tool call results.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"spesetools/internal/log"
	"spesetools/internal/tools"
)

type Server struct {
	registry *tools.Registry
	logger   *log.Logger
	timeout  time.Duration
	sdk      *mcpsdk.Server
}

type Option func(*Server)

// WithCallTimeout bounds every tools/call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// NewServer registers every tool of registry with a go-sdk server.
func NewServer(registry *tools.Registry, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Server{
		registry: registry,
		logger:   logger.WithComponent(log.ComponentMCP),
	}
	for _, opt := range opts {
		opt(s)
	}

	info := registry.Info()
	s.sdk = mcpsdk.NewServer(
		&mcpsdk.Implementation{Name: info.Name, Version: info.Version},
		&mcpsdk.ServerOptions{Instructions: info.Instructions},
	)
	for _, t := range registry.Tools() {
		s.sdk.AddTool(&mcpsdk.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: tools.InputSchema(t.Fields),
		}, s.toolHandler(t.Name))
	}
	return s
}

func (s *Server) toolHandler(name string) mcpsdk.ToolHandler {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args, err := tools.DecodeArgs(req.Params.Arguments)
		if err != nil {
			s.logger.WarnContext(ctx, "Rejected tool arguments",
				log.FieldTool, name,
				log.FieldError, err)
			return nil, fmt.Errorf("invalid arguments for %s: %w", name, err)
		}

		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}

		res, err := s.registry.Call(ctx, name, args)
		if err != nil {
			return nil, err
		}
		return toolResult(res)
	}
}

// toolResult carries the payload both as text content and as structured
// content so older clients that only read text still get the JSON.
func toolResult(res tools.Result) (*mcpsdk.CallToolResult, error) {
	text, err := json.Marshal(res.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &mcpsdk.CallToolResult{
		Content:           []mcpsdk.Content{&mcpsdk.TextContent{Text: string(text)}},
		StructuredContent: json.RawMessage(text),
		IsError:           res.IsError,
	}, nil
}

// HTTPHandler serves the streamable HTTP transport. Every request is
// handled statelessly with a plain JSON response, since no tool needs a
// session or server-initiated messages.
func (s *Server) HTTPHandler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return s.sdk
	}, &mcpsdk.StreamableHTTPOptions{
		Stateless:    true,
		JSONResponse: true,
	})
}

// Connect starts a session over t. The caller owns the returned session.
func (s *Server) Connect(ctx context.Context, t mcpsdk.Transport) (*mcpsdk.ServerSession, error) {
	return s.sdk.Connect(ctx, t, nil)
}

// Run serves a single session over t until the client disconnects or ctx
// is done.
func (s *Server) Run(ctx context.Context, t mcpsdk.Transport) error {
	s.logger.InfoContext(ctx, "MCP session starting", "server", s.String())
	return s.sdk.Run(ctx, t)
}

func (s *Server) String() string {
	info := s.registry.Info()
	return fmt.Sprintf("%s/%s (%d tools)", info.Name, info.Version, len(s.registry.Tools()))
}
