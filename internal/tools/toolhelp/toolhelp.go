package toolhelp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/bochaai/bocha-mcp/internal/registry"
	"github.com/bochaai/bocha-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// ToolHelpTool serves detailed usage information for this server's tools
type ToolHelpTool struct{}

// init registers the tool with the registry
func init() {
	registry.Register(&ToolHelpTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *ToolHelpTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"get_tool_help",
		mcp.WithDescription("Get detailed usage examples and troubleshooting for this server's tools when encountering unexpected errors."),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Name of the tool to get help for"),
			mcp.Enum(registry.GetToolNamesWithExtendedHelp()...),
		),
		// Read-only annotations for help information tool
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute executes the get_tool_help tool
func (t *ToolHelpTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	toolName, ok := args["tool_name"].(string)
	if !ok || toolName == "" {
		return nil, fmt.Errorf("missing or invalid required parameter: tool_name")
	}

	tool, exists := registry.GetTool(toolName)
	if !exists {
		return nil, fmt.Errorf("tool %q not found or disabled. Tools with extended help: %s",
			toolName, strings.Join(registry.GetToolNamesWithExtendedHelp(), ", "))
	}

	provider, ok := tool.(tools.ExtendedHelpProvider)
	if !ok {
		return nil, fmt.Errorf("tool %q does not provide extended help. Tools with extended help: %s",
			toolName, strings.Join(registry.GetToolNamesWithExtendedHelp(), ", "))
	}

	definition := tool.Definition()
	response := &ToolHelpResponse{
		ToolName: toolName,
		BasicInfo: map[string]any{
			"name":        definition.Name,
			"description": definition.Description,
		},
		ExtendedInfo: provider.ProvideExtendedInfo(),
	}

	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}
