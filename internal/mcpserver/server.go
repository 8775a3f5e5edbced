// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes RecipeBox tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/siteservice"
	"github.com/starford/recipebox/internal/templates"
)

const formatURI = "recipebox://recipe-format"

// Server wraps the MCP server with RecipeBox tools.
type Server struct {
	mcp *server.MCPServer
	svc *siteservice.Service
}

// New creates a new MCP server with all RecipeBox tools registered.
func New(svc *siteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"RecipeBox",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_recipes",
		mcp.WithDescription("List indexed recipes in title order as JSON."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by")),
	), s.listRecipes)

	s.mcp.AddTool(mcp.NewTool("get_recipe",
		mcp.WithDescription("Get one recipe with its ingredients, steps and notes as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Recipe identifier (e.g. garlic-naan)")),
	), s.getRecipe)

	s.mcp.AddTool(mcp.NewTool("rescan",
		mcp.WithDescription("Re-index the recipes directory and report files that failed to parse."),
	), s.rescan)

	s.mcp.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Get the layout template currently served for a page slot."),
		mcp.WithString("slot", mcp.Required(), mcp.Description("Layout slot"),
			mcp.Enum(slotNames()...)),
	), s.getLayout)

	s.mcp.AddTool(mcp.NewTool("save_layout",
		mcp.WithDescription("Validate and save a layout override for a page slot. "+
			"Invalid templates are rejected and the current layout stays in place. "+
			"Read the contract first via the get_recipe_contract tool or the "+
			formatURI+" resource."),
		mcp.WithString("slot", mcp.Required(), mcp.Description("Layout slot"),
			mcp.Enum(slotNames()...)),
		mcp.WithString("content", mcp.Required(), mcp.Description("Template source in Django-style syntax")),
	), s.saveLayout)

	s.mcp.AddTool(mcp.NewTool("get_recipe_contract",
		mcp.WithDescription("Returns the RecipeBox recipe file and layout contract. "+
			"Call this before writing recipes or layouts."),
	), s.getRecipeContract)

	// Resource: recipe format contract.
	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Recipe Format Contract",
			mcp.WithResourceDescription("Recipe file format and layout template variables."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func slotNames() []string {
	slots := templates.Slots()
	names := make([]string, len(slots))
	for i, slot := range slots {
		names[i] = slot.String()
	}
	return names
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.ListRecipes(ctx, req.GetString("tag", "")))
}

func (s *Server) getRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := s.svc.GetRecipe(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(r)
}

func (s *Server) rescan(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.svc.Rescan(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

func (s *Server) getLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slot, err := requireSlot(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetLayout(ctx, slot)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) saveLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slot, err := requireSlot(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.SaveLayout(ctx, slot, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s (%s)", res.Slot, res.Checksum)), nil
}

func (s *Server) getRecipeContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecipeFormatContract), nil
}

func (s *Server) readFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     RecipeFormatContract,
		},
	}, nil
}

func requireSlot(req mcp.CallToolRequest) (templates.Slot, error) {
	name, err := req.RequireString("slot")
	if err != nil {
		return "", err
	}
	return templates.ParseSlot(name)
}
