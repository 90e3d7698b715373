// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package mcp serves the gateway toolkit over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/sigil-dev/sparqlgate/internal/store"
	"github.com/sigil-dev/sparqlgate/internal/tools"
	sigilerr "github.com/sigil-dev/sparqlgate/pkg/errors"
)

// ServerName is announced to MCP clients during initialization.
const ServerName = "sparqlgate"

// Server exposes every toolkit tool as an MCP tool.
type Server struct {
	toolkit *tools.Toolkit
	mcp     *mcpserver.MCPServer
}

// NewServer registers the toolkit's tools. Schemas are passed through
// unchanged so MCP clients see the same contract as API callers.
func NewServer(toolkit *tools.Toolkit, version string) (*Server, error) {
	s := &Server{
		toolkit: toolkit,
		mcp:     mcpserver.NewMCPServer(ServerName, version, mcpserver.WithToolCapabilities(false)),
	}
	for _, def := range toolkit.Definitions() {
		schema, err := json.Marshal(def.InputSchema)
		if err != nil {
			return nil, sigilerr.Wrapf(err, sigilerr.CodeToolConfigInvalid, "encoding schema of tool %q", def.Name)
		}
		tool := mcplib.NewToolWithRawSchema(def.Name, def.Description, schema)
		tool.Annotations.ReadOnlyHint = mcplib.ToBoolPtr(true)
		tool.Annotations.OpenWorldHint = mcplib.ToBoolPtr(false)
		s.mcp.AddTool(tool, s.handler(def.Name))
	}
	return s, nil
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcp }

// Serve speaks MCP over in and out until ctx is canceled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	slog.Info("serving mcp over stdio", "tools", s.toolkit.Names())
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return sigilerr.Wrap(err, sigilerr.CodeServerStartFailure, "serving mcp")
	}
	return nil
}

func (s *Server) handler(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		args, err := json.Marshal(req.GetArguments())
		if err != nil {
			return mcplib.NewToolResultError("invalid arguments: " + err.Error()), nil
		}
		out, err := s.toolkit.Call(tools.WithSource(ctx, store.SourceMCP), name, args)
		if err != nil {
			return mcplib.NewToolResultError(err.Error()), nil
		}
		return mcplib.NewToolResultText(out), nil
	}
}
