package imports

import (
	// Tool packages register themselves with the registry on import
	_ "github.com/bochaai/bocha-mcp/internal/tools/toolhelp"
	_ "github.com/bochaai/bocha-mcp/internal/tools/websearch"
)
