// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Gloss tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gloss/internal/apperr"
	"github.com/starford/gloss/internal/courseservice"
	"github.com/starford/gloss/internal/curriculum"
	"github.com/starford/gloss/internal/markup"
	"github.com/starford/gloss/internal/material"
)

const grammarURI = "gloss://markup-grammar"

// Server wraps the MCP server with Gloss tools.
type Server struct {
	mcp *server.MCPServer
	svc *courseservice.Service
}

// New creates a new MCP server with all Gloss tools registered.
func New(svc *courseservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Gloss",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("tokenize_sentence",
		mcp.WithDescription("Tokenize an annotated sentence. Returns the tokens, "+
			"clause nesting issues and the clean reading text."),
		mcp.WithString("sentence", mcp.Required(), mcp.Description("Annotated sentence")),
	), s.tokenizeSentence)

	s.mcp.AddTool(mcp.NewTool("strip_annotations",
		mcp.WithDescription("Remove every annotation from a sentence and return the clean reading text."),
		mcp.WithString("sentence", mcp.Required(), mcp.Description("Annotated sentence")),
	), s.stripAnnotations)

	s.mcp.AddTool(mcp.NewTool("classify_material",
		mcp.WithDescription("Infer the kind of a material (analysis, workbook, word or variant) "+
			"and lint it."),
		mcp.WithString("material", mcp.Required(), mcp.Description("Material as JSON text")),
	), s.classifyMaterial)

	s.mcp.AddTool(mcp.NewTool("load_curriculum",
		mcp.WithDescription("Load a curriculum field the way the reader does. Accepts "+
			"double-encoded, truncated and newline-delimited input."),
		mcp.WithString("curriculum", mcp.Required(), mcp.Description("Curriculum field as text")),
	), s.loadCurriculum)

	s.mcp.AddTool(mcp.NewTool("list_courses",
		mcp.WithDescription("List courses in the library."),
		mcp.WithString("kind", mcp.Description("Only courses holding a material of this kind")),
		mcp.WithString("sort", mcp.Description("Sort order: updated, title, path or weeks")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
	), s.listCourses)

	s.mcp.AddTool(mcp.NewTool("search_courses",
		mcp.WithDescription("Full-text search through course titles, sentences and vocabulary."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchCourses)

	s.mcp.AddTool(mcp.NewTool("read_course",
		mcp.WithDescription("Read a course with its loaded weeks and material summary."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the course (e.g. grammar/basics.json)")),
	), s.readCourse)

	s.mcp.AddTool(mcp.NewTool("create_course",
		mcp.WithDescription("Create a new course file. Sentences MUST follow the markup "+
			"grammar. Read it first via the get_markup_contract tool or the "+grammarURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new course (must end with .json)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Course JSON")),
	), s.createCourse)

	s.mcp.AddTool(mcp.NewTool("get_markup_contract",
		mcp.WithDescription("Returns the Gloss markup grammar and course file layout. "+
			"Call this before writing annotated sentences."),
	), s.getMarkupContract)

	// Resource: markup grammar.
	s.mcp.AddResource(
		mcp.NewResource(grammarURI, "Markup Grammar",
			mcp.WithResourceDescription("Annotation markup grammar used by analysis and workbook sentences."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGrammarResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

type tokenizeResult struct {
	Tokens []markup.Token `json:"tokens"`
	Issues []markup.Issue `json:"issues"`
	Clean  string         `json:"clean"`
}

func (s *Server) tokenizeSentence(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sentence, err := req.RequireString("sentence")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res := markup.Scan(sentence)
	issues := res.Issues
	if issues == nil {
		issues = []markup.Issue{}
	}
	return jsonResult(tokenizeResult{Tokens: res.Tokens, Issues: issues, Clean: markup.Strip(sentence)})
}

func (s *Server) stripAnnotations(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sentence, err := req.RequireString("sentence")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(markup.Strip(sentence)), nil
}

type classifyResult struct {
	Kind     material.Kind `json:"kind"`
	Title    string        `json:"title,omitempty"`
	Fallback bool          `json:"fallback,omitempty"`
	Problems string        `json:"problems,omitempty"`
}

func (s *Server) classifyMaterial(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("material")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc := material.Build(curriculum.ParseMaterial(raw))
	meta := doc.Header()
	res := classifyResult{Kind: doc.Kind(), Title: meta.Title, Fallback: meta.RawText != ""}
	if err := doc.Validate(); err != nil {
		res.Problems = err.Error()
	}
	return jsonResult(res)
}

func (s *Server) loadCurriculum(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("curriculum")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(curriculum.Parse(raw))
}

func (s *Server) listCourses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.svc.ListCourses(ctx, req.GetInt("limit", 50), 0,
		req.GetString("kind", ""), req.GetString("sort", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"courses": items, "total": total})
}

func (s *Server) searchCourses(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.GetCourse(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(c)
}

func (s *Server) createCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.CreateCourse(ctx, path, []byte(content))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("course already exists: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%d weeks, %d materials)", path, len(c.Weeks), len(c.Materials))), nil
}

func (s *Server) getMarkupContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkupGrammar), nil
}

func (s *Server) readGrammarResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      grammarURI,
			MIMEType: "text/markdown",
			Text:     MarkupGrammar,
		},
	}, nil
}
