package registry

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/bochaai/bocha-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTool is a minimal tools.Tool for registry tests.
type mockTool struct {
	name string
}

func (m *mockTool) Definition() mcp.Tool {
	return mcp.NewTool(m.name, mcp.WithDescription("mock tool"))
}

func (m *mockTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

// mockHelpTool additionally provides extended help.
type mockHelpTool struct {
	mockTool
}

func (m *mockHelpTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{{Description: "example", Arguments: map[string]any{}}},
	}
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestInit_SharedResources(t *testing.T) {
	logger := newTestLogger()
	Init(logger)

	require.NotNil(t, GetLogger())
	require.NotNil(t, GetCache())
	assert.Same(t, GetLogger(), GetLogger())
	assert.Same(t, GetCache(), GetCache())
}

func TestRegisterAndGetTool(t *testing.T) {
	t.Setenv("DISABLED_TOOLS", "")
	Init(newTestLogger())

	Register(&mockTool{name: "reg-test-tool"})

	tool, ok := GetTool("reg-test-tool")
	require.True(t, ok)
	assert.Equal(t, "reg-test-tool", tool.Definition().Name)

	_, ok = GetTool("no-such-tool")
	assert.False(t, ok)
}

func TestGetTools_ExcludesDisabled(t *testing.T) {
	t.Setenv("DISABLED_TOOLS", " skip-me , also-skip ")
	Init(newTestLogger())

	Register(&mockTool{name: "keep-me"})
	Register(&mockTool{name: "skip-me"})

	all := GetTools()
	assert.Contains(t, all, "keep-me")
	assert.NotContains(t, all, "skip-me")

	_, ok := GetTool("skip-me")
	assert.False(t, ok)
}

func TestDisabledTools_TrimsSpaces(t *testing.T) {
	t.Setenv("DISABLED_TOOLS", "  spaced-tool  ,other")
	Init(newTestLogger())

	Register(&mockTool{name: "spaced-tool"})

	_, ok := GetTool("spaced-tool")
	assert.False(t, ok)
}

func TestGetEnabledToolNames_Sorted(t *testing.T) {
	t.Setenv("DISABLED_TOOLS", "")
	Init(newTestLogger())

	Register(&mockTool{name: "zz-last"})
	Register(&mockTool{name: "aa-first"})

	names := GetEnabledToolNames()
	assert.True(t, sort.StringsAreSorted(names), "names not sorted: %v", names)
	assert.Contains(t, names, "aa-first")
	assert.Contains(t, names, "zz-last")
}

func TestGetToolNamesWithExtendedHelp(t *testing.T) {
	t.Setenv("DISABLED_TOOLS", "")
	Init(newTestLogger())

	Register(&mockTool{name: "plain-tool"})
	Register(&mockHelpTool{mockTool{name: "helpful-tool"}})

	names := GetToolNamesWithExtendedHelp()
	assert.Contains(t, names, "helpful-tool")
	assert.NotContains(t, names, "plain-tool")
	assert.True(t, sort.StringsAreSorted(names), "names not sorted: %v", names)
}

func TestCache_Operations(t *testing.T) {
	Init(newTestLogger())

	cache := GetCache()
	cache.Store("key", "value")

	got, ok := cache.Load("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)

	cache.Delete("key")
	_, ok = cache.Load("key")
	assert.False(t, ok)
}
