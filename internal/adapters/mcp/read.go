package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"linkcal/internal/application"
	"linkcal/internal/application/analysis"
	"linkcal/internal/application/commands"
	"linkcal/internal/domain"
	"linkcal/internal/ports"
)

// RegisterReadTools adds all read-only analytics tools to the MCP server.
func RegisterReadTools(s *server.MCPServer, svc *analysis.Service, docs ports.DocumentStore) {
	s.AddTool(backlinksTool(), backlinksHandler(svc))
	s.AddTool(analyzeTool(), analyzeHandler(svc))
	s.AddTool(monthTool(), monthHandler(svc))
	s.AddTool(boundsTool(), boundsHandler(svc))
	s.AddTool(periodTool(), periodHandler(svc))
	s.AddTool(listBlocksTool(), listBlocksHandler(docs))
}

// RegisterGraphTools adds tools that browse the link graph itself.
func RegisterGraphTools(s *server.MCPServer, links ports.LinkSource) {
	s.AddTool(outgoingLinksTool(), outgoingLinksHandler(links))
}

// --- outgoing_links ---

func outgoingLinksTool() mcp.Tool {
	return mcp.NewTool("outgoing_links",
		mcp.WithDescription("List the link targets of a document, with the number of times each is linked."),
		mcp.WithString("path",
			mcp.Description("Vault-relative path of the note or canvas (e.g. Daily/2025-11-05.md)"),
			mcp.Required(),
		),
	)
}

func outgoingLinksHandler(links ports.LinkSource) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		if err := application.ValidateRequired("path", path); err != nil {
			return toolError(err)
		}
		edges, err := links.LinksFrom(ctx, path)
		if err != nil {
			return toolError(err)
		}
		if len(edges) == 0 {
			return mcp.NewToolResultText("No outgoing links."), nil
		}

		var sb strings.Builder
		for _, e := range edges {
			fmt.Fprintf(&sb, "%s  %d\n", e.Target, e.Occurrences)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- backlinks ---

func backlinksTool() mcp.Tool {
	return mcp.NewTool("backlinks",
		mcp.WithDescription("List every document linking to a note, with the number of times it links."),
		mcp.WithString("path",
			mcp.Description("Vault-relative path of the note (e.g. Projects/Atlas.md)"),
			mcp.Required(),
		),
	)
}

func backlinksHandler(svc *analysis.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := req.GetString("path", "")
		records, err := svc.Backlinks(ctx, path)
		if err != nil {
			return toolError(err)
		}
		if len(records) == 0 {
			return mcp.NewToolResultText("No backlinks."), nil
		}

		var sb strings.Builder
		for _, r := range records {
			fmt.Fprintf(&sb, "%s  %d\n", r.SourcePath, r.Occurrences)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- analyze ---

func analyzeTool() mcp.Tool {
	return mcp.NewTool("analyze",
		mcp.WithDescription("Count how often daily notes reference one or more notes: the count in the current period and the per-day map of a year."),
		mcp.WithArray("paths",
			mcp.Description("Vault-relative note paths; counts are summed"),
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Required(),
		),
		mcp.WithNumber("year",
			mcp.Description("Year of the day map. Omit for the current year."),
		),
		mcp.WithString("period",
			mcp.Description("Period token: "+strings.Join(domain.PeriodTokens(), ", ")+" or past-N-days"),
		),
		mcp.WithString("first_day_of_week",
			mcp.Description("Weekday a week starts on (0-6 or a name)"),
		),
		mcp.WithBoolean("include_context",
			mcp.Description("Include the lines of each daily note that reference the notes"),
		),
	)
}

func analyzeHandler(svc *analysis.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewAnalyzeCommand(svc,
			stringsArg(req, "paths"),
			intArg(req, "year", 0),
			req.GetString("period", ""),
		)
		cmd.FirstDayOfWeek = req.GetString("first_day_of_week", "")
		cmd.IncludeContext = boolArg(req, "include_context", false)

		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		var sb strings.Builder
		a := result.Analysis
		fmt.Fprintf(&sb, "%s (%s .. %s): %d\n", a.Period.Token,
			a.Period.Start.Format("2006-01-02"), a.Period.End.Format("2006-01-02"), a.CurrentPeriodCount)
		fmt.Fprintf(&sb, "%d total in %d\n", a.Total, a.Year)
		writeDays(&sb, a.Days)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- month ---

func monthTool() mcp.Tool {
	return mcp.NewTool("month",
		mcp.WithDescription("Per-day reference counts of one calendar month."),
		mcp.WithArray("paths",
			mcp.Description("Vault-relative note paths; counts are summed"),
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Required(),
		),
		mcp.WithNumber("year", mcp.Description("Year"), mcp.Required()),
		mcp.WithNumber("month", mcp.Description("Month, 1-12"), mcp.Required()),
		mcp.WithBoolean("include_context",
			mcp.Description("Include the referencing lines of each daily note"),
		),
	)
}

func monthHandler(svc *analysis.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewMonthCommand(svc,
			stringsArg(req, "paths"),
			intArg(req, "year", 0),
			intArg(req, "month", 0),
		)
		cmd.IncludeContext = boolArg(req, "include_context", false)

		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}

		var sb strings.Builder
		sb.WriteString(result.Message)
		sb.WriteByte('\n')
		writeDays(&sb, result.Days)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- bounds ---

func boundsTool() mcp.Tool {
	return mcp.NewTool("bounds",
		mcp.WithDescription("Navigable range of years or months for a note, padded by one unit around its daily-note references."),
		mcp.WithArray("paths",
			mcp.Description("Vault-relative note paths"),
			mcp.Items(map[string]any{"type": "string"}),
			mcp.Required(),
		),
		mcp.WithString("granularity",
			mcp.Description("year or month"),
			mcp.Enum("year", "month"),
		),
	)
}

func boundsHandler(svc *analysis.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewBoundsCommand(svc, stringsArg(req, "paths"), req.GetString("granularity", "year"))
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- period ---

func periodTool() mcp.Tool {
	return mcp.NewTool("period",
		mcp.WithDescription("Resolve a period token to a concrete date range."),
		mcp.WithString("token",
			mcp.Description("Period token (e.g. this-week, past-30-days)"),
			mcp.Required(),
		),
		mcp.WithString("first_day_of_week",
			mcp.Description("Weekday a week starts on (0-6 or a name)"),
		),
	)
}

func periodHandler(svc *analysis.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cmd := commands.NewResolvePeriodCommand(svc, req.GetString("token", ""))
		cmd.FirstDayOfWeek = req.GetString("first_day_of_week", "")
		result, err := cmd.Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

// --- list_blocks ---

func listBlocksTool() mcp.Tool {
	return mcp.NewTool("list_blocks",
		mcp.WithDescription("List the calendar component blocks embedded in a note or canvas."),
		mcp.WithString("path",
			mcp.Description("Vault-relative path of the note or canvas"),
			mcp.Required(),
		),
	)
}

func listBlocksHandler(docs ports.DocumentStore) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := commands.NewListBlocksCommand(docs, req.GetString("path", "")).Execute(ctx)
		if err != nil {
			return toolError(err)
		}
		if len(result.Blocks) == 0 {
			return mcp.NewToolResultText("No blocks."), nil
		}

		var sb strings.Builder
		for _, b := range result.Blocks {
			sb.WriteString(formatBlock(b))
			sb.WriteByte('\n')
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// --- helpers ---

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

func writeDays(sb *strings.Builder, days domain.BucketMap) {
	for _, key := range days.Keys() {
		day := days[key]
		fmt.Fprintf(sb, "%s  %d\n", key, day.Occurrences)
		for _, line := range day.Context {
			fmt.Fprintf(sb, "    %s\n", line)
		}
	}
}

func formatBlock(b commands.BlockInfo) string {
	where := fmt.Sprintf("line %d", b.Line)
	if b.NodeID != "" {
		where = fmt.Sprintf("node %s, line %d", b.NodeID, b.Line)
	}
	if b.Err != nil {
		return fmt.Sprintf("%s  %s  (%s)  error: %v", b.Kind, b.ID, where, b.Err)
	}
	var props []string
	for _, p := range b.Config.Properties() {
		if p.Key == domain.IDKey {
			continue
		}
		props = append(props, p.Key+"="+strings.Join(p.Values, ","))
	}
	return fmt.Sprintf("%s  %s  (%s)  %s", b.Kind, b.ID, where, strings.Join(props, " "))
}
