package mcp

import (
	"context"
	"io"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServeStdio speaks newline-delimited JSON-RPC on the process stdin and
// stdout until stdin closes or ctx is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Run(ctx, &mcpsdk.StdioTransport{})
}

// ServeStreams is ServeStdio over arbitrary streams.
func (s *Server) ServeStreams(ctx context.Context, r io.ReadCloser, w io.WriteCloser) error {
	return s.Run(ctx, &mcpsdk.IOTransport{Reader: r, Writer: w})
}
