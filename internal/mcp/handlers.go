package mcp

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/spark/internal/errors"
	"github.com/hpungsan/spark/internal/logging"
	"github.com/hpungsan/spark/internal/ops"
	"github.com/hpungsan/spark/internal/project"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc *ops.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *ops.Service) *Handlers {
	return &Handlers{svc: svc}
}

// RecommendRequest represents the arguments for project_recommend.
type RecommendRequest struct {
	Prompt  string `json:"prompt"`
	Explain bool   `json:"explain,omitempty"`
}

// GetRequest represents the arguments for project_get.
type GetRequest struct {
	ID string `json:"id"`
}

// ListOutput is the project_list result.
type ListOutput struct {
	Projects []project.Project `json:"projects"`
	Count    int               `json:"count"`
}

// HandleRecommend handles the project_recommend tool call.
func (h *Handlers) HandleRecommend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecommendRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())
	out, err := h.svc.Recommend(ctx, ops.RecommendInput{Prompt: input.Prompt, Explain: input.Explain})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(out)
}

// HandleList handles the project_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := h.svc.ListProjects(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(ListOutput{Projects: projects, Count: len(projects)})
}

// HandleGet handles the project_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p, err := h.svc.GetProject(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(p)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Server-side failures are reported with a generic message and no details.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    errors.ErrInternal,
		"message": errors.MsgInternal,
		"status":  500,
	}

	sErr, ok := errors.As(err)
	if ok {
		errorObj["code"] = sErr.Code
		errorObj["status"] = sErr.Status
	}
	if ok && sErr.Public() {
		errorObj["message"] = sErr.Message
		if sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
	} else {
		logging.Error().Err(err).Msg("tool call failed")
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
