package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gildcraft/guildgen/pkg/generate"
	"github.com/gildcraft/guildgen/pkg/prompts"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("guildgen_generate",
		mcp.WithDescription("Generate text for a free-form prompt. Identical requests within the cache TTL are answered from cache."),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("The prompt sent to the model as a single user message"),
		),
		mcp.WithString("model",
			mcp.Description("Provider model identifier (default: the configured model)"),
		),
		mcp.WithNumber("max_tokens",
			mcp.Description("Maximum output tokens (default: the configured limit)"),
		),
		mcp.WithNumber("temperature",
			mcp.Description("Sampling temperature (default: 0.7)"),
		),
		mcp.WithBoolean("regenerate",
			mcp.Description("Skip the cache and ask the model again"),
		),
	), s.handleGenerate)

	s.mcp.AddTool(mcp.NewTool("guildgen_template",
		mcp.WithDescription("Generate Discord content from a named template such as server-name, server-rules or poll. Use guildgen_templates to see the fields each template needs."),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("Template name"),
		),
		mcp.WithObject("fields",
			mcp.Required(),
			mcp.Description("Template fields, e.g. {\"keywords\": \"retro gaming\"}"),
		),
		mcp.WithBoolean("regenerate",
			mcp.Description("Skip the cache and ask the model again"),
		),
	), s.handleTemplate)

	s.mcp.AddTool(mcp.NewTool("guildgen_templates",
		mcp.WithDescription("List the available content templates and their fields."),
	), s.handleTemplates)

	s.mcp.AddTool(mcp.NewTool("guildgen_cache_stats",
		mcp.WithDescription("Show response cache statistics (entries, hits, misses, hit rate)."),
	), s.handleCacheStats)

	s.mcp.AddTool(mcp.NewTool("guildgen_usage",
		mcp.WithDescription("Show aggregated usage per template and model, optionally filtered by template."),
		mcp.WithString("template",
			mcp.Description("Filter by template name (optional)"),
		),
	), s.handleUsage)
}

func regenerateToken(request mcp.CallToolRequest) string {
	if request.GetBool("regenerate", false) {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return ""
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := request.RequireString("prompt")
	if err != nil || prompt == "" {
		return mcp.NewToolResultError("prompt parameter is required"), nil
	}

	opts := generate.Options{
		Model:     request.GetString("model", ""),
		Timestamp: regenerateToken(request),
	}
	if n := request.GetFloat("max_tokens", 0); n > 0 {
		opts.MaxTokens = int(n)
	}
	if _, ok := request.GetArguments()["temperature"]; ok {
		t := request.GetFloat("temperature", generate.DefaultTemperature)
		opts.Temperature = &t
	}

	return s.generate(ctx, prompt, opts)
}

func (s *Server) handleTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError("template parameter is required"), nil
	}
	raw, _ := request.GetArguments()["fields"].(map[string]any)

	rendered, err := prompts.Render(name, prompts.Fields(raw))
	if err != nil {
		var mf *prompts.MissingFieldsError
		switch {
		case errors.Is(err, prompts.ErrUnknownTemplate):
			return mcp.NewToolResultError(fmt.Sprintf("unknown template %q; call guildgen_templates for the list", name)), nil
		case errors.As(err, &mf):
			return mcp.NewToolResultError(mf.Error()), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	rendered.Options.Timestamp = regenerateToken(request)

	return s.generate(generate.WithLabel(ctx, name), rendered.Prompt, rendered.Options)
}

func (s *Server) generate(ctx context.Context, prompt string, opts generate.Options) (*mcp.CallToolResult, error) {
	text, err := s.fwd.Generate(ctx, prompt, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTemplates(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatTemplates(prompts.List())), nil
}

func (s *Server) handleCacheStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := s.fwd.Store()
	if store == nil {
		return mcp.NewToolResultText("Cache is not enabled."), nil
	}
	return mcp.NewToolResultText(formatCacheStats(store.Stats())), nil
}

func (s *Server) handleUsage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.tracker == nil {
		return mcp.NewToolResultText("Usage tracking is not enabled."), nil
	}
	rows, err := s.tracker.Summary(ctx, request.GetString("template", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("error: %v", err)), nil
	}
	return mcp.NewToolResultText(formatSummary(rows)), nil
}
