// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the publishing tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/devpub/internal/forem"
	"github.com/starford/devpub/internal/models"
	"github.com/starford/devpub/internal/parser"
	"github.com/starford/devpub/internal/publisher"
	"github.com/starford/devpub/internal/storage"
)

const formatURI = "devpub://article-format"

// Server wraps the MCP server with publishing tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *publisher.Service
	api   forem.API
	store storage.Provider
}

// LocalArticle is one entry of list_local_articles.
type LocalArticle struct {
	File      string   `json:"file"`
	Title     string   `json:"title,omitempty"`
	Published bool     `json:"published"`
	Tags      []string `json:"tags,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// New creates a new MCP server with all tools registered.
func New(svc *publisher.Service, api forem.API, store storage.Provider, version string) *Server {
	s := &Server{svc: svc, api: api, store: store}

	s.mcp = server.NewMCPServer(
		"devpub",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_local_articles",
		mcp.WithDescription("List the article files in the articles directory with their parsed titles."),
	), s.listLocalArticles)

	s.mcp.AddTool(mcp.NewTool("list_remote_articles",
		mcp.WithDescription("List every article (drafts included) of the authenticated account."),
	), s.listRemoteArticles)

	s.mcp.AddTool(mcp.NewTool("find_article",
		mcp.WithDescription("Find the remote article whose title equals the given title exactly (case-sensitive)."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Exact article title")),
	), s.findArticle)

	s.mcp.AddTool(mcp.NewTool("publish_article",
		mcp.WithDescription("Publish one local article file: update the remote article with the same title, "+
			"or create a new one. Read the header format first via get_article_format or the "+
			formatURI+" resource."),
		mcp.WithString("file", mcp.Required(), mcp.Description("File name inside the articles directory (e.g. hello.md)")),
	), s.publishArticle)

	s.mcp.AddTool(mcp.NewTool("get_article_format",
		mcp.WithDescription("Returns the article header format understood by the publisher."),
	), s.getArticleFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Article Format",
			mcp.WithResourceDescription("Markdown header fields the publisher reads."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readArticleFormatResource,
	)

	return s
}

// Listen serves the protocol on the given streams until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listLocalArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.store.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := make([]LocalArticle, 0, len(files))
	for _, f := range files {
		item := LocalArticle{File: f.Name}
		if a, err := s.readArticle(f.Name); err != nil {
			item.Error = err.Error()
		} else {
			item.Title = a.Title
			item.Published = a.Published
			item.Tags = a.Tags
		}
		out = append(out, item)
	}
	return jsonResult(out)
}

func (s *Server) listRemoteArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts, err := s.api.ListOwnPosts(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(posts)
}

func (s *Server) findArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	post, err := s.api.FindByTitle(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if post == nil {
		return mcp.NewToolResultText(fmt.Sprintf("no article titled %q", title)), nil
	}
	return jsonResult(post)
}

func (s *Server) publishArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.store.Match(file) {
		return mcp.NewToolResultError(fmt.Sprintf("%s is not an article file (want extension %s)", file, s.store.Ext())), nil
	}
	out := s.svc.PublishFile(ctx, file)
	if !out.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("publish %s: %v", file, out.Err)), nil
	}
	return jsonResult(out)
}

func (s *Server) getArticleFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(HeaderFormatContract), nil
}

func (s *Server) readArticleFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     HeaderFormatContract,
		},
	}, nil
}

func (s *Server) readArticle(name string) (*models.Article, error) {
	data, err := s.store.Read(name)
	if err != nil {
		return nil, err
	}
	return parser.Parse(name, data)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
