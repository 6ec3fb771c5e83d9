package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/meta-search/internal/bootstrap"
	"github.com/kirillkom/meta-search/internal/config"
	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/observability/logging"
)

// The MCP entrypoint speaks the protocol over stdio, so all logging
// goes to stderr.
func main() {
	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewJSONLoggerTo(os.Stderr, cfg.LogLevel)

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := server.NewMCPServer("meta-search", "1.0.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("web_search",
		mcp.WithDescription("Search the web through a cost-optimizing tiered pipeline: a free aggregator first, escalating to semantic search and deep content extraction only when result confidence is low."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default 10)"),
		),
		mcp.WithString("category",
			mcp.Description("Optional result category, e.g. general, news, it"),
		),
		mcp.WithString("language",
			mcp.Description("Optional language code, e.g. en"),
		),
		mcp.WithString("time_range",
			mcp.Description("Optional recency filter: day, week, month or year"),
		),
	)
	srv.AddTool(searchTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queryText, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		query := domain.Query{
			Text:  queryText,
			Limit: req.GetInt("limit", 0),
			Filter: domain.SearchFilter{
				Category:  req.GetString("category", ""),
				Language:  req.GetString("language", ""),
				TimeRange: req.GetString("time_range", ""),
			},
		}

		outcome, err := app.Search.Search(ctx, query)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		payload, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	})

	healthTool := mcp.NewTool("health_check",
		mcp.WithDescription("Check whether the search backend is reachable."),
	)
	srv.AddTool(healthTool, func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := "ok"
		if app.HealthProbe != nil && !app.HealthProbe(ctx) {
			status = "degraded: search backend unreachable"
		}
		return mcp.NewToolResultText(status), nil
	})

	if err := server.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
