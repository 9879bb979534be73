package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"agentmem/internal/budget"
	"agentmem/internal/config"
	"agentmem/internal/index"
	"agentmem/internal/promote"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var flagMCPSnapshot string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing memory search and curation tools",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := promote.New(cfg, slog.Default())
	if err != nil {
		return err
	}
	return mcpserver.ServeStdio(newMCPServer(cfg, p, snapshotLoader(cfg, flagMCPSnapshot)))
}

func init() {
	mcpCmd.Flags().StringVar(&flagMCPSnapshot, "snapshot", "", "serve a saved index instead of rebuilding on every query")
	rootCmd.AddCommand(mcpCmd)
}

// indexLoader returns the index a tool call should read.
type indexLoader func(ctx context.Context) (*index.Index, error)

// snapshotLoader rebuilds the index per call so answers follow edits,
// unless a snapshot path is given.
func snapshotLoader(cfg config.Config, snapshot string) indexLoader {
	return func(ctx context.Context) (*index.Index, error) {
		return openIndex(ctx, cfg, snapshot)
	}
}

func newMCPServer(cfg config.Config, p *promote.Promoter, load indexLoader) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("agentmem", "1.0.0", mcpserver.WithToolCapabilities(false))

	s.AddTool(memorySearchTool(), makeMemorySearchHandler(load))
	s.AddTool(memoryStatsTool(), makeMemoryStatsHandler(load))
	s.AddTool(promoteCandidatesTool(), makePromoteCandidatesHandler(cfg, p))
	s.AddTool(memoryBudgetTool(), makeBudgetHandler(cfg))
	return s
}

// --- Tool schema builders ---

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

func memorySearchTool() mcp.Tool {
	return mcp.NewTool("memory_search",
		mcp.WithDescription("Keyword search across the agent's memory files. Returns matching lines with file paths, line numbers and a relevance score."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Words to look for; every distinct word that matches raises a line's score"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of lines to return (default 10)"),
		),
		mcp.WithNumber("context",
			mcp.Description("Lines of surrounding context to include per hit (default 0)"),
		),
	)
}

func memoryStatsTool() mcp.Tool {
	return mcp.NewTool("memory_stats",
		mcp.WithDescription("Report how many files, unique tokens and token references the memory index holds."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	)
}

func promoteCandidatesTool() mcp.Tool {
	return mcp.NewTool("memory_promote_candidates",
		mcp.WithDescription("List lines from recent daily logs that look worth promoting to long-term memory: decisions, lessons, facts, contacts and platform notes, ranked by importance."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithNumber("days",
			mcp.Description("Number of recent days to scan, today included (default from config)"),
		),
		mcp.WithNumber("top",
			mcp.Description("Maximum number of candidates to return (default from config)"),
		),
	)
}

func memoryBudgetTool() mcp.Tool {
	return mcp.NewTool("memory_budget",
		mcp.WithDescription("Estimate the token cost of each memory file, largest first."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithNumber("top",
			mcp.Description("Number of files to list (default 20)"),
		),
	)
}

// --- Handler factories ---

func makeMemorySearchHandler(load indexLoader) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := strings.TrimSpace(req.GetString("query", ""))
		if query == "" {
			return mcp.NewToolResultError("query is required"), nil
		}
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		contextLines := req.GetInt("context", 0)
		if contextLines < 0 {
			contextLines = 0
		}

		idx, err := load(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load index failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatSearchResults(query, idx.Search(query, limit, contextLines))), nil
	}
}

func makeMemoryStatsHandler(load indexLoader) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idx, err := load(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load index failed: %v", err)), nil
		}
		data, err := json.MarshalIndent(idx.Stats(), "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode stats failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func makePromoteCandidatesHandler(cfg config.Config, p *promote.Promoter) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		days := req.GetInt("days", cfg.Days)
		if days < 0 {
			return mcp.NewToolResultError("days must not be negative"), nil
		}
		top := req.GetInt("top", cfg.Top)

		cands, err := p.ScanRecent(ctx, cfg.Root, days, now())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}
		if top > 0 && len(cands) > top {
			cands = cands[:top]
		}
		data, err := promote.FormatJSON(cands)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode candidates failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func makeBudgetHandler(cfg config.Config) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		top := req.GetInt("top", 20)
		stats, err := budget.AnalyzeDir(ctx, cfg.Root, budget.Options{
			Extensions: cfg.Extensions,
			Ignore:     cfg.Ignore,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("budget failed: %v", err)), nil
		}
		return mcp.NewToolResultText(budget.FormatTable(stats, top)), nil
	}
}

// --- Formatting helpers ---

func formatSearchResults(query string, results []index.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d hits)\n\n", query, len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "### Result %d: `%s:%d` (score %.2f)\n\n", i+1, filepath.ToSlash(r.File), r.Line, r.Score)
		if len(r.Context) > 0 {
			fmt.Fprintf(&sb, "```\n%s\n```\n\n", strings.Join(r.Context, "\n"))
		} else {
			fmt.Fprintf(&sb, "> %s\n\n", r.Text)
		}
	}
	return sb.String()
}
