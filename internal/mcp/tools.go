package mcp

import "github.com/mark3labs/mcp-go/mcp"

var recommendToolDef = mcp.NewTool("project_recommend",
	mcp.WithDescription("Recommend projects for a free-text description of what the user wants to build or learn. "+
		"Returns catalog matches, plus generated suggestions when enabled."),
	mcp.WithString("prompt",
		mcp.Required(),
		mcp.Description("What the user wants to build or learn, e.g. \"a React web application with realtime chat\""),
	),
	mcp.WithBoolean("explain",
		mcp.Description("Include the reasoning trace (confidence, thoughts, uncertainties, conclusions)"),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var listToolDef = mcp.NewTool("project_list",
	mcp.WithDescription("List every project in the catalog, ordered by id."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var getToolDef = mcp.NewTool("project_get",
	mcp.WithDescription("Fetch one catalog project by id."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Project id"),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)
