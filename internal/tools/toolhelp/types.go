package toolhelp

import "github.com/bochaai/bocha-mcp/internal/tools"

// ToolHelpResponse is the output of the get_tool_help tool
type ToolHelpResponse struct {
	ToolName     string              `json:"tool_name"`
	BasicInfo    map[string]any      `json:"basic_info"`
	ExtendedInfo *tools.ExtendedHelp `json:"extended_info,omitempty"`
}
