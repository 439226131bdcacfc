package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/yangwenmai/careerpilot/internal/acquire"
	"github.com/yangwenmai/careerpilot/internal/engine"
	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/store"
)

// NewMCPServer creates an MCP server exposing generation, extraction and
// artifact history as tools.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"careerpilot",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("careerpilot generates resumes, cover letters and job-search research from a stored career profile."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_artifact",
			mcp.WithDescription("Generate one career artifact for a user and return it as JSON."),
			mcp.WithString("kind", mcp.Description("resume, cover_letter, skills_optimization, company_research, salary_research or prediction"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("Owner of the profile and job records"), mcp.Required()),
			mcp.WithNumber("job_id", mcp.Description("Target job; required for cover_letter, skills_optimization, salary_research and prediction")),
			mcp.WithString("company_name", mcp.Description("Company to research when no job is given")),
			mcp.WithString("instructions", mcp.Description("Extra free-text instructions")),
			mcp.WithString("tone", mcp.Description("Writing tone hint")),
			mcp.WithString("length", mcp.Description("Length hint")),
			mcp.WithString("model", mcp.Description("Requested model; must be on the allow-list")),
		),
		mcpGenerate(deps),
	)

	s.AddTool(
		mcp.NewTool("extract_url",
			mcp.WithDescription("Fetch a web page or PDF and return its readable text."),
			mcp.WithString("url", mcp.Description("http or https URL"), mcp.Required()),
			mcp.WithString("wait_selector", mcp.Description("CSS selector to wait for when a browser render is needed")),
		),
		mcpExtract(deps),
	)

	s.AddTool(
		mcp.NewTool("list_artifacts",
			mcp.WithDescription("List a user's generated artifacts, newest first."),
			mcp.WithString("user_id", mcp.Description("Owner of the artifacts"), mcp.Required()),
			mcp.WithString("kind", mcp.Description("Only return artifacts of this kind")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpListArtifacts(deps),
	)

	return s
}

func mcpGenerate(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rawKind, err := req.RequireString("kind")
		if err != nil {
			return mcpError("kind is required"), nil
		}
		kind, ok := model.ParseKind(rawKind)
		if !ok {
			return mcpError(fmt.Sprintf("unknown kind %q", rawKind)), nil
		}
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}

		gr := model.GenerationRequest{
			Kind:         kind,
			UserID:       userID,
			CompanyName:  req.GetString("company_name", ""),
			Instructions: req.GetString("instructions", ""),
			Options: model.GenerationOptions{
				Tone:   req.GetString("tone", ""),
				Length: req.GetString("length", ""),
				Model:  req.GetString("model", ""),
			},
		}
		if id := req.GetInt("job_id", 0); id > 0 {
			jobID := int64(id)
			gr.JobID = &jobID
		}

		a, err := deps.Generator.Generate(ctx, gr)
		if err != nil {
			return mcpFailure(err), nil
		}
		return mcpJSON(a)
	}
}

func mcpExtract(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}
		if deps.Extractor == nil {
			return mcpError("extraction is disabled"), nil
		}
		res, err := deps.Extractor.Extract(ctx, url, acquire.Options{
			WaitSelector: req.GetString("wait_selector", ""),
		})
		if err != nil {
			return mcpFailure(err), nil
		}
		return mcpJSON(res)
	}
}

func mcpListArtifacts(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		f := store.ArtifactFilter{UserID: userID, Limit: req.GetInt("limit", 20)}
		if raw := req.GetString("kind", ""); raw != "" {
			kind, ok := model.ParseKind(raw)
			if !ok {
				return mcpError(fmt.Sprintf("unknown kind %q", raw)), nil
			}
			f.Kind = kind
		}

		artifacts, err := deps.Artifacts.ListArtifacts(ctx, f)
		if err != nil {
			return mcpFailure(err), nil
		}
		if artifacts == nil {
			artifacts = []model.Artifact{}
		}
		return mcpJSON(artifacts)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

// mcpFailure reports err as an ErrorInfo JSON body.
func mcpFailure(err error) *mcp.CallToolResult {
	b, mErr := json.Marshal(engine.Info(err, time.Now()))
	if mErr != nil {
		return mcpError(err.Error())
	}
	return mcpError(string(b))
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
