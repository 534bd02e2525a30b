// Package tools exposes expense operations as named tools: a flat argument
// object in, a JSON-shaped result out.
package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spesetools/internal/log"
)

// Handler runs a tool. Returned errors are turned into error payloads.
type Handler func(ctx context.Context, args Args) (any, error)

type Tool struct {
	Name        string
	Description string
	Fields      []Field
	Handler     Handler
}

// ServerInfo identifies the tool collection to callers.
type ServerInfo struct {
	Name         string
	Version      string
	Instructions string
}

// Result is the outcome of a tool call as presented to the caller.
type Result struct {
	Payload any
	IsError bool
}

var ErrUnknownTool = errors.New("unknown tool")

type Registry struct {
	info   ServerInfo
	tools  []Tool
	byName map[string]int
	logger *log.Logger
}

func NewRegistry(info ServerInfo, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Discard()
	}
	return &Registry{
		info:   info,
		byName: make(map[string]int),
		logger: logger.WithComponent(log.ComponentTools),
	}
}

func (r *Registry) Info() ServerInfo {
	return r.info
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Handler == nil {
		return errors.New("tool needs a name and a handler")
	}
	if _, ok := r.byName[t.Name]; ok {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.byName[t.Name] = len(r.tools)
	r.tools = append(r.tools, t)
	return nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	return append([]Tool(nil), r.tools...)
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Call runs the named tool. The only returned error is ErrUnknownTool;
// handler failures come back as a Result with IsError set.
func (r *Registry) Call(ctx context.Context, name string, args Args) (Result, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	start := time.Now()
	payload, err := t.Handler(ctx, args)
	fields := log.NewFields().WithTool(name)
	fields[log.FieldDuration] = time.Since(start).Milliseconds()

	if err == nil {
		r.logger.DebugContext(ctx, "Tool call succeeded", fields.ToSlice()...)
		return Result{Payload: payload}, nil
	}

	body, expected := errorPayload(err)
	fields = fields.WithError(err).WithErrorType(body.Error)
	if expected {
		r.logger.InfoContext(ctx, "Tool call rejected", fields.ToSlice()...)
	} else {
		r.logger.ErrorContext(ctx, "Tool call failed", fields.ToSlice()...)
	}
	return Result{Payload: body, IsError: true}, nil
}
