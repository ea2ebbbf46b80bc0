package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"linkcal/internal/application/commands"
	"linkcal/internal/application/configsync"
	"linkcal/internal/domain"
	"linkcal/internal/ports"
)

// RegisterWriteTools adds the block-editing tools to the MCP server.
func RegisterWriteTools(s *server.MCPServer, engine *configsync.Engine, docs ports.DocumentStore) {
	s.AddTool(setPropertyTool(), setPropertyHandler(engine))
	s.AddTool(createBlockTool(), createBlockHandler(docs))
}

func kindEnum() mcp.PropertyOption {
	kinds := domain.ComponentKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return mcp.Enum(names...)
}

// --- set_property ---

func setPropertyTool() mcp.Tool {
	return mcp.NewTool("set_property",
		mcp.WithDescription("Rewrite one property of a component block in place. Every duplicate of the block in the document is updated; other text is left untouched."),
		mcp.WithString("path",
			mcp.Description("Vault-relative path of the note or canvas carrying the block"),
			mcp.Required(),
		),
		mcp.WithString("kind",
			mcp.Description("Block kind"),
			kindEnum(),
			mcp.Required(),
		),
		mcp.WithString("id",
			mcp.Description("Block id"),
			mcp.Required(),
		),
		mcp.WithString("key",
			mcp.Description("Property key (path, year, month, period, label)"),
			mcp.Required(),
		),
		mcp.WithArray("values",
			mcp.Description("New values; several for repeated keys like path, none to remove the property"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

func setPropertyHandler(engine *configsync.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewSetPropertyCommand(engine,
			req.GetString("path", ""),
			req.GetString("kind", ""),
			req.GetString("id", ""),
			req.GetString("key", ""),
			stringsArg(req, "values"),
		)
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- create_block ---

func createBlockTool() mcp.Tool {
	return mcp.NewTool("create_block",
		mcp.WithDescription("Append a new component block with a fresh id to a markdown note, creating the note if needed."),
		mcp.WithString("path",
			mcp.Description("Vault-relative path of the note"),
			mcp.Required(),
		),
		mcp.WithString("kind",
			mcp.Description("Block kind"),
			kindEnum(),
			mcp.Required(),
		),
		mcp.WithArray("watch",
			mcp.Description("Notes the block counts references to; omit to watch the note itself"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

func createBlockHandler(docs ports.DocumentStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewCreateBlockCommand(docs,
			req.GetString("path", ""),
			req.GetString("kind", ""),
			stringsArg(req, "watch"),
		)
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}
