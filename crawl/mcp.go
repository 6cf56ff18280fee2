package crawl

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tripsage/webcrawl/kit"
)

// RegisterMCP registers all crawl tools on an MCP server.
func (svc *Service) RegisterMCP(srv *mcp.Server) {
	svc.registerExtractPageContent(srv)
	svc.registerSearchDestinationInfo(srv)
	svc.registerMonitorPriceChanges(srv)
	svc.registerGetLatestEvents(srv)
	svc.registerCrawlTravelBlog(srv)
	svc.registerGetPriceMonitor(srv)
	svc.registerStats(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func stringList(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": description,
	}
}

// respond converts validation failures into their structured object so
// tool callers always receive a parseable result, never a raised error.
func respond(resp any, err error) (any, error) {
	if err != nil {
		if ve, ok := AsValidation(err); ok {
			return ve, nil
		}
		return nil, err
	}
	return resp, nil
}

// toolLogging logs every tool call with its transport and outcome.
func (svc *Service) toolLogging(tool string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			svc.logger.Info("crawl: tool call",
				"tool", tool,
				"transport", kit.GetTransport(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err != nil)
			return resp, err
		}
	}
}

// register wires an endpoint as an MCP tool behind the logging middleware.
func (svc *Service) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	kit.RegisterMCPTool(srv, tool, kit.Chain(svc.toolLogging(tool.Name))(endpoint), decode)
}

func decodeInto[T any](r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var p T
	if len(r.Params.Arguments) > 0 {
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &p}, nil
}

func (svc *Service) registerExtractPageContent(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extract_page_content",
		Description: "Extract the content of a web page as markdown, text, or sanitized HTML, with metadata, images, and optional CSS selector texts",
		InputSchema: inputSchema(map[string]any{
			"url":            map[string]any{"type": "string", "description": "Page URL to extract"},
			"selectors":      stringList("CSS selectors whose text contents to extract"),
			"include_images": map[string]any{"type": "boolean", "description": "Include page images in the result"},
			"format":         map[string]any{"type": "string", "description": "Output format: markdown (default), text, or html"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return respond(svc.ExtractPageContent(ctx, r.(*ExtractRequest)))
	}

	svc.register(srv, tool, endpoint, decodeInto[ExtractRequest])
}

func (svc *Service) registerSearchDestinationInfo(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "search_destination_info",
		Description: "Search travel information about a destination, grouped by topic with per-item sources and confidence",
		InputSchema: inputSchema(map[string]any{
			"destination": map[string]any{"type": "string", "description": "Destination name, e.g. \"Kyoto, Japan\""},
			"topics":      stringList("Topics to research (default: attractions, restaurants, hotels, transport)"),
			"max_results": map[string]any{"type": "integer", "description": "Max results per topic (default 5)"},
		}, []string{"destination"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return respond(svc.SearchDestinationInfo(ctx, r.(*SearchRequest)))
	}

	svc.register(srv, tool, endpoint, decodeInto[SearchRequest])
}

func (svc *Service) registerMonitorPriceChanges(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "monitor_price_changes",
		Description: "Register a price monitor for a page element and run an immediate check; repeated calls for the same target reuse the monitor",
		InputSchema: inputSchema(map[string]any{
			"url":                    map[string]any{"type": "string", "description": "Page URL carrying the price"},
			"price_selector":         map[string]any{"type": "string", "description": "CSS selector of the price element"},
			"frequency":              map[string]any{"type": "string", "description": "Check frequency: hourly, daily (default), or weekly"},
			"notification_threshold": map[string]any{"type": "number", "description": "Percent change that marks the monitor triggered (default 5)"},
		}, []string{"url", "price_selector"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return respond(svc.MonitorPriceChanges(ctx, r.(*MonitorRequest)))
	}

	svc.register(srv, tool, endpoint, decodeInto[MonitorRequest])
}

func (svc *Service) registerGetLatestEvents(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "get_latest_events",
		Description: "Find events at a destination within a date range, deduplicated and counted per category",
		InputSchema: inputSchema(map[string]any{
			"destination": map[string]any{"type": "string", "description": "Destination name"},
			"start_date":  map[string]any{"type": "string", "description": "Range start, ISO date (YYYY-MM-DD)"},
			"end_date":    map[string]any{"type": "string", "description": "Range end, ISO date (YYYY-MM-DD)"},
			"categories":  stringList("Restrict to these categories (attraction, restaurant, hotel, transport, activity, shopping, general)"),
		}, []string{"destination", "start_date", "end_date"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return respond(svc.GetLatestEvents(ctx, r.(*EventsRequest)))
	}

	svc.register(srv, tool, endpoint, decodeInto[EventsRequest])
}

func (svc *Service) registerCrawlTravelBlog(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "crawl_travel_blog",
		Description: "Crawl travel blogs about a destination and extract per-topic insights with sentiment labels",
		InputSchema: inputSchema(map[string]any{
			"destination": map[string]any{"type": "string", "description": "Destination name"},
			"topics":      stringList("Blog topics to extract (default: highlights, food, budget, tips)"),
			"max_blogs":   map[string]any{"type": "integer", "description": "Max blogs to crawl (default 3)"},
			"recent_only": map[string]any{"type": "boolean", "description": "Only posts from the last year (default true)"},
		}, []string{"destination"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return respond(svc.CrawlTravelBlog(ctx, r.(*BlogRequest)))
	}

	svc.register(srv, tool, endpoint, decodeInto[BlogRequest])
}

func (svc *Service) registerGetPriceMonitor(srv *mcp.Server) {
	type req struct {
		MonitoringID string `json:"monitoring_id"`
	}

	tool := &mcp.Tool{
		Name:        "get_price_monitor",
		Description: "Get the stored state and history of a price monitor",
		InputSchema: inputSchema(map[string]any{
			"monitoring_id": map[string]any{"type": "string", "description": "Monitor ID returned by monitor_price_changes"},
		}, []string{"monitoring_id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return svc.GetPriceMonitor(ctx, r.(*req).MonitoringID)
	}

	svc.register(srv, tool, endpoint, decodeInto[req])
}

func (svc *Service) registerStats(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "crawl_stats",
		Description: "Get service statistics (cache entries, monitors, per-adapter fetch outcomes)",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		return svc.Stats(ctx)
	}

	svc.register(srv, tool, endpoint, decodeInto[req])
}
