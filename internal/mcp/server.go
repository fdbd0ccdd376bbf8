// Package mcp exposes the notes assistant as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/search"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingAssistant is returned when no assistant is given.
var ErrMissingAssistant = errors.New("assistant is required")

// Assistant is what the tools call into.
type Assistant interface {
	Ask(ctx context.Context, question string) (models.Answer, error)
	RetrieveK(ctx context.Context, question string, k int) ([]models.RetrievedChunk, error)
	SearchNotes(ctx context.Context, query string, limit int) ([]search.NoteHit, error)
}

// Server is the MCP server for notionrag.
type Server struct {
	assistant Assistant
	defaultK  int
	server    *mcp.Server
	logger    *zap.Logger
}

// NewServer creates a server. defaultK is used when a retrieve call gives no k.
func NewServer(assistant Assistant, defaultK int, logger *zap.Logger) (*Server, error) {
	if assistant == nil {
		return nil, ErrMissingAssistant
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultK <= 0 {
		defaultK = 8
	}
	s := &Server{
		assistant: assistant,
		defaultK:  defaultK,
		server:    mcp.NewServer(&mcp.Implementation{Name: "notionrag", Version: Version}, nil),
		logger:    logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
