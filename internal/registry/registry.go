package registry

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/bochaai/bocha-mcp/internal/tools"
	"github.com/sirupsen/logrus"
)

var (
	// toolRegistry maps tool names to their implementations
	toolRegistry = make(map[string]tools.Tool)

	// disabledTools is the set of tool names disabled via environment
	disabledTools = make(map[string]bool)

	// logger is the shared logger instance
	logger *logrus.Logger

	// cache is the shared cache instance handed to tools
	cache *sync.Map
)

// Init initialises the registry and shared resources
func Init(l *logrus.Logger) {
	logger = l
	cache = &sync.Map{}

	parseDisabledTools()
}

// parseDisabledTools reads the DISABLED_TOOLS environment variable, a
// comma separated list of tool names to keep off the server.
func parseDisabledTools() {
	disabledTools = make(map[string]bool)

	disabledEnv := os.Getenv("DISABLED_TOOLS")
	if disabledEnv == "" {
		return
	}

	names := strings.SplitSeq(disabledEnv, ",")
	for name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			disabledTools[name] = true
			if logger != nil {
				logger.WithField("tool", name).Debug("Tool disabled")
			}
		}
	}
}

// Register adds a tool implementation to the registry unless it has been
// disabled.
func Register(tool tools.Tool) {
	if toolRegistry == nil {
		toolRegistry = make(map[string]tools.Tool)
	}

	toolName := tool.Definition().Name
	if disabledTools[toolName] {
		if logger != nil {
			logger.WithField("tool", toolName).Debug("Tool not registered (disabled via environment)")
		}
		return
	}

	toolRegistry[toolName] = tool
	if logger != nil {
		logger.WithField("tool", toolName).Debug("Tool registered")
	}
}

// GetTool retrieves a tool by name, returning false for unknown or
// disabled tools.
func GetTool(name string) (tools.Tool, bool) {
	if disabledTools[name] {
		return nil, false
	}
	tool, ok := toolRegistry[name]
	return tool, ok
}

// GetTools returns all registered tools, excluding disabled ones.
func GetTools() map[string]tools.Tool {
	filtered := make(map[string]tools.Tool)
	for name, tool := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		filtered[name] = tool
	}
	return filtered
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	return logger
}

// GetCache returns the shared cache instance
func GetCache() *sync.Map {
	return cache
}

// GetEnabledToolNames returns a sorted list of registered tool names.
func GetEnabledToolNames() []string {
	var names []string
	for name := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetToolNamesWithExtendedHelp returns a sorted list of registered tool
// names that implement tools.ExtendedHelpProvider.
func GetToolNamesWithExtendedHelp() []string {
	var names []string
	for name, tool := range toolRegistry {
		if disabledTools[name] {
			continue
		}
		if _, ok := tool.(tools.ExtendedHelpProvider); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
