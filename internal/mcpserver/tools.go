package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Sternrassler/datecontext/pkg/datecontext"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ToolAnalyzeDateContext is the name of the date context tool.
const ToolAnalyzeDateContext = "analyze_date_context"

const analyzeDescription = "Analyzes comprehensive date context for a location. Returns today, tomorrow, " +
	"day after tomorrow, this week, next week, upcoming holidays, and key dates (next Monday-Sunday, " +
	"next weekend). Handles location-specific weekends (e.g., Dubai weekend is Friday-Saturday, UK " +
	"weekend is Saturday-Sunday) and bank holidays. Use this to answer questions like 'Can I tour " +
	"tomorrow?', 'How about next week?', 'Day after tomorrow?', 'What about Friday?'."

var toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "datecontext_tool_calls_total",
	Help: "Total number of MCP tool calls by tool and result",
}, []string{"tool", "result"})

// AnalyzeInput is the input schema for the date context tool.
type AnalyzeInput struct {
	Location string `json:"location" jsonschema:"The place name, city, or point of interest to analyze dates for (e.g., 'Dubai', 'London', 'JFK Airport', 'Burj Khalifa')"`
	AsOfDate string `json:"as_of_date,omitempty" jsonschema:"Optional date to use as 'today' for all calculations, in ISO 8601 format (e.g., '2026-02-15'). If not provided, uses the current date in the location's timezone."`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolAnalyzeDateContext,
		Description: analyzeDescription,
	}, s.handleAnalyze)
}

// handleAnalyze handles the date context tool invocation. Failures are
// reported in the text payload, not as protocol errors.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, any, error) {
	text := s.Analyze(ctx, input.Location, input.AsOfDate)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// Analyze runs one analysis and returns the indented JSON snapshot, or an
// {"error": "..."} payload carrying a user-safe message.
func (s *Server) Analyze(ctx context.Context, place, asOfDate string) string {
	start := time.Now()
	logger := s.logger.With().
		Str("request_id", uuid.NewString()).
		Str("tool", ToolAnalyzeDateContext).
		Str("place", place).
		Logger()

	asOfLabel := asOfDate
	if asOfLabel == "" {
		asOfLabel = "today"
	}
	logger.Info().Str("as_of", asOfLabel).Msg("Tool call received")

	snapshot, err := s.analyze(ctx, place, asOfDate)
	result := datecontext.Outcome(err)
	toolCallsTotal.WithLabelValues(ToolAnalyzeDateContext, result).Inc()

	if err != nil {
		logger.Error().
			Err(err).
			Str("result", result).
			Dur("duration", time.Since(start)).
			Msg("Date context analysis failed")
		return marshalPayload(datecontext.NewErrorPayload(err))
	}

	logger.Info().Dur("duration", time.Since(start)).Msg("Date context analysis complete")
	return marshalPayload(snapshot)
}

func (s *Server) analyze(ctx context.Context, place, asOfDate string) (*datecontext.Snapshot, error) {
	asOf, err := datecontext.ParseAsOfDate(asOfDate)
	if err != nil {
		return nil, err
	}
	return s.analyzer.AnalyzeDateContext(ctx, place, asOf)
}

func marshalPayload(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fallback, _ := json.Marshal(datecontext.ErrorPayload{Error: datecontext.MessageUnexpected})
		return string(fallback)
	}
	return string(data)
}
