package websearch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bochaai/bocha-mcp/internal/bocha"
	"github.com/bochaai/bocha-mcp/internal/config"
	"github.com/bochaai/bocha-mcp/internal/registry"
	"github.com/bochaai/bocha-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// searchClient is the slice of bocha.Client the tool depends on; tests
// substitute a stub.
type searchClient interface {
	WebSearch(ctx context.Context, logger *logrus.Logger, req *bocha.SearchRequest) (*bocha.SearchResponse, error)
}

// WebSearchTool exposes the Bocha web search API as an MCP tool.
type WebSearchTool struct {
	client searchClient
}

// init registers the tool when an API key is configured
func init() {
	if config.APIKey() == "" {
		return
	}
	registry.Register(&WebSearchTool{client: newClientFromConfig()})
}

func newClientFromConfig() *bocha.Client {
	var opts []bocha.ClientOption
	if base := config.BaseURL(); base != "" {
		opts = append(opts, bocha.WithBaseURL(base))
	}
	return bocha.NewClient(config.APIKey(), opts...)
}

// Definition returns the tool's definition for MCP registration
func (t *WebSearchTool) Definition() mcp.Tool {
	description := `Search the web with Bocha, a search engine optimised for comprehensive, accurate and trusted results. Useful for finding current events and recent information. Supports freshness filtering, domain include/exclude lists and optional long form summaries per result.

After you have received the results you can fetch a url if you want to read the full content.`

	return mcp.NewTool(
		"bocha_web_search",
		mcp.WithDescription(description),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query term"),
		),
		mcp.WithNumber("count",
			mcp.Description(fmt.Sprintf("Number of results to return (%d-%d)", bocha.MinCount, bocha.MaxCount)),
			mcp.DefaultNumber(float64(defaultCount())),
		),
		mcp.WithString("freshness",
			mcp.Description("How recent results must be"),
			mcp.DefaultString(defaultFreshness()),
			mcp.Enum(bocha.Freshnesses...),
		),
		mcp.WithBoolean("summary",
			mcp.Description("Attach long form text summaries to web page results"),
			mcp.DefaultBool(false),
		),
		mcp.WithString("include",
			mcp.Description("Only return results from these sites, e.g. 'github.com|stackoverflow.com' (max 20 domains, separated by | or ,)"),
		),
		mcp.WithString("exclude",
			mcp.Description("Drop results from these sites (same format as include)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),     // Only queries the search API
		mcp.WithDestructiveHintAnnotation(false), // No destructive operations
		mcp.WithIdempotentHintAnnotation(true),   // Same query returns equivalent results
		mcp.WithOpenWorldHintAnnotation(true),    // Talks to an external search provider
	)
}

// Execute executes the bocha_web_search tool
func (t *WebSearchTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	req, err := t.parseRequest(args)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"query":     req.Query,
		"count":     req.Count,
		"freshness": req.Freshness,
	}).Info("Executing Bocha web search")

	response, err := t.client.WebSearch(ctx, logger, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	if response.WebPages == nil || len(response.WebPages.Value) == 0 {
		return nil, fmt.Errorf("no search results found for %q. Suggestions: %s. Try modifying your search parameters with one of these approaches",
			req.Query, strings.Join(suggestions(req), ", "))
	}

	return newToolResultJSON(response.Serialize())
}

// parseRequest parses and validates the tool arguments
func (t *WebSearchTool) parseRequest(args map[string]any) (*bocha.SearchRequest, error) {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, fmt.Errorf("missing or invalid required parameter: query")
	}

	req := &bocha.SearchRequest{
		Query:     query,
		Freshness: defaultFreshness(),
		Count:     defaultCount(),
	}

	if raw, ok := args["count"].(float64); ok {
		count := int(raw)
		if count < bocha.MinCount || count > bocha.MaxCount {
			return nil, fmt.Errorf("count must be between %d and %d, got %d", bocha.MinCount, bocha.MaxCount, count)
		}
		req.Count = count
	}
	if raw, ok := args["freshness"].(string); ok && raw != "" {
		if !bocha.ValidFreshness(raw) {
			return nil, fmt.Errorf("invalid freshness %q, must be one of: %s", raw, strings.Join(bocha.Freshnesses, ", "))
		}
		req.Freshness = raw
	}
	if raw, ok := args["summary"].(bool); ok {
		req.Summary = raw
	}
	if raw, ok := args["include"].(string); ok {
		req.Include = strings.TrimSpace(raw)
	}
	if raw, ok := args["exclude"].(string); ok {
		req.Exclude = strings.TrimSpace(raw)
	}

	return req, nil
}

// suggestions proposes parameter changes after a search came back empty.
func suggestions(req *bocha.SearchRequest) []string {
	var s []string
	if req.Freshness != "" && req.Freshness != bocha.FreshnessNoLimit {
		s = append(s, "try 'noLimit' for the freshness parameter")
	}
	if req.Include != "" {
		s = append(s, "remove or broaden the 'include' domain restrictions")
	}
	if req.Exclude != "" {
		s = append(s, "remove the 'exclude' domain restrictions")
	}
	if len(s) == 0 {
		s = append(s, "try a different search query")
	}
	return s
}

// defaultCount is the configured default result count, falling back to the
// provider default.
func defaultCount() int {
	if c := config.Load().DefaultCount; c >= bocha.MinCount && c <= bocha.MaxCount {
		return c
	}
	return bocha.DefaultCount
}

// defaultFreshness is the configured default freshness, falling back to no
// time limit.
func defaultFreshness() string {
	if f := config.Load().DefaultFreshness; bocha.ValidFreshness(f) {
		return f
	}
	return bocha.FreshnessNoLimit
}

// ProvideExtendedInfo provides detailed usage information for the web search tool
func (t *WebSearchTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Basic web search",
				Arguments: map[string]any{
					"query": "golang error handling best practices",
					"count": 5,
				},
				ExpectedResult: "Returns 5 web page results with names, urls and snippets",
			},
			{
				Description: "Recent results only",
				Arguments: map[string]any{
					"query":     "LLM evaluation frameworks",
					"freshness": bocha.FreshnessOneWeek,
				},
				ExpectedResult: "Returns results published within the last week",
			},
			{
				Description: "Search specific sites with summaries",
				Arguments: map[string]any{
					"query":   "generics performance",
					"include": "github.com|go.dev",
					"summary": true,
				},
				ExpectedResult: "Returns results from github.com and go.dev with long form summaries attached",
			},
		},
		CommonPatterns: []string{
			"Start broad, then narrow with include/exclude once you know the right sites",
			"Use freshness 'oneDay' or 'oneWeek' for news style queries",
			"Request summaries when you need article content without fetching each url",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "No search results found",
				Solution: "Relax the freshness filter to 'noLimit', drop include/exclude restrictions, or rephrase the query",
			},
			{
				Problem:  "Authentication failed errors",
				Solution: "Check that BOCHA_API_KEY is set (or api_key in ~/.bocha-mcp/config.yaml) and that the key is active",
			},
			{
				Problem:  "Rate limit exceeded errors",
				Solution: "Slow down request frequency or lower BOCHA_RATE_LIMIT to stay inside your plan's budget",
			},
		},
		ParameterDetails: map[string]string{
			"query":     "The search term. Quoted phrases are matched verbatim by the provider.",
			"count":     fmt.Sprintf("Number of results, %d to %d. Defaults to %d.", bocha.MinCount, bocha.MaxCount, bocha.DefaultCount),
			"freshness": "One of noLimit, oneDay, oneWeek, oneMonth, oneYear.",
			"summary":   "When true each web page result carries a long form text summary.",
			"include":   "Up to 20 domains separated by | or ,; only these sites are searched.",
			"exclude":   "Up to 20 domains separated by | or ,; these sites are dropped.",
		},
		WhenToUse:    "When you need current information from the web: news, documentation, product pages, or anything newer than your training data.",
		WhenNotToUse: "When the answer is static general knowledge, or when you already have the url and just need its content.",
	}
}
