package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/bochaai/bocha-mcp/internal/registry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoTool reflects its arguments back as JSON so tests can inspect how
// the CLI parsed them.
type echoTool struct{}

func (*echoTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"echo_args",
		mcp.WithDescription("Echo arguments back as JSON.\nUsed only in tests."),
		mcp.WithString("message",
			mcp.Required(),
			mcp.Description("Message to echo"),
		),
		mcp.WithNumber("result_count",
			mcp.Description("How many copies to echo"),
		),
		mcp.WithBoolean("verbose",
			mcp.Description("Include extra detail"),
		),
		mcp.WithString("mode",
			mcp.Description("Echo mode"),
			mcp.Enum("fast", "deep"),
		),
	)
}

func (*echoTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func setupCLIRegistry(t *testing.T) {
	t.Helper()
	t.Setenv("DISABLED_TOOLS", "")
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry.Init(logger)
	registry.Register(&echoTool{})
}

func newTestRunner(output OutputFormat) *Runner {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRunner(logger, registry.GetCache(), output)
}

// captureStdout captures stdout during f() and returns the output.
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w

	var buf bytes.Buffer
	var wg sync.WaitGroup
	wg.Go(func() {
		_, _ = buf.ReadFrom(r)
	})

	f()

	w.Close()
	os.Stdout = old
	wg.Wait()

	return buf.String()
}

func TestListTools(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	output := captureStdout(t, func() {
		require.NoError(t, runner.ListTools())
	})

	assert.Contains(t, output, "echo_args")
	assert.Contains(t, output, "Echo arguments back as JSON.")
	assert.NotContains(t, output, "Used only in tests", "listing should show only the first description line")
}

func TestListTools_JSON(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputJSON)

	output := captureStdout(t, func() {
		require.NoError(t, runner.ListTools())
	})

	var entries []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &entries))

	found := false
	for _, entry := range entries {
		if entry.Name == "echo_args" {
			found = true
		}
	}
	assert.True(t, found, "expected echo_args in tool list: %s", output)
}

func TestHelpTool(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	output := captureStdout(t, func() {
		require.NoError(t, runner.HelpTool("echo_args"))
	})

	assert.Contains(t, output, "Tool: echo_args")
	assert.Contains(t, output, "Parameters:")
	assert.Contains(t, output, "--message")
	assert.Contains(t, output, "(required)")
	assert.Contains(t, output, "--result-count")
	assert.Contains(t, output, "[fast|deep]")
}

func TestHelpTool_JSON(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputJSON)

	output := captureStdout(t, func() {
		require.NoError(t, runner.HelpTool("echo_args"))
	})

	var def mcp.Tool
	require.NoError(t, json.Unmarshal([]byte(output), &def))
	assert.Equal(t, "echo_args", def.Name)
}

func TestHelpTool_Unknown(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	err := runner.HelpTool("nonexistent-tool")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestRunTool_FlagArgs(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	output := captureStdout(t, func() {
		require.NoError(t, runner.RunTool(t.Context(), "echo_args", []string{"--message=hello"}))
	})

	assert.Contains(t, output, `"message":"hello"`)
}

func TestRunTool_FlagWithSpace(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	output := captureStdout(t, func() {
		require.NoError(t, runner.RunTool(t.Context(), "echo_args", []string{"--message", "hello world"}))
	})

	assert.Contains(t, output, "hello world")
}

func TestRunTool_JSONArgs(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	output := captureStdout(t, func() {
		require.NoError(t, runner.RunTool(t.Context(), "echo_args", []string{`{"message": "from json"}`}))
	})

	assert.Contains(t, output, "from json")
}

func TestRunTool_FlagsTakePrecedenceOverJSON(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	output := captureStdout(t, func() {
		require.NoError(t, runner.RunTool(t.Context(), "echo_args", []string{
			`{"message": "from json"}`,
			"--message=from flag",
		}))
	})

	assert.Contains(t, output, "from flag")
	assert.NotContains(t, output, "from json")
}

func TestRunTool_NumberCoercion(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	output := captureStdout(t, func() {
		require.NoError(t, runner.RunTool(t.Context(), "echo_args", []string{
			"--message=m",
			"--result-count=5",
		}))
	})

	// Coerced to a number and delivered under the snake_case name
	assert.Contains(t, output, `"result_count":5`)
}

func TestRunTool_BooleanShorthand(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	output := captureStdout(t, func() {
		require.NoError(t, runner.RunTool(t.Context(), "echo_args", []string{"--message=m", "--verbose"}))
	})

	assert.Contains(t, output, `"verbose":true`)
}

func TestRunTool_KebabToolName(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	output := captureStdout(t, func() {
		require.NoError(t, runner.RunTool(t.Context(), "echo-args", []string{"--message=m"}))
	})

	assert.Contains(t, output, `"message":"m"`)
}

func TestRunTool_JSONOutput(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputJSON)

	output := captureStdout(t, func() {
		require.NoError(t, runner.RunTool(t.Context(), "echo_args", []string{"--message=m"}))
	})

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Contains(t, result, "content")
}

func TestRunTool_Errors(t *testing.T) {
	setupCLIRegistry(t)
	runner := newTestRunner(OutputText)

	tests := []struct {
		name string
		tool string
		args []string
		want string
	}{
		{
			name: "Unknown Tool",
			tool: "nonexistent",
			args: nil,
			want: "unknown tool",
		},
		{
			name: "Invalid JSON",
			tool: "echo_args",
			args: []string{`{not json}`},
			want: "argument error",
		},
		{
			name: "Missing Flag Value",
			tool: "echo_args",
			args: []string{"--message"},
			want: "requires a value",
		},
		{
			name: "Unexpected Argument",
			tool: "echo_args",
			args: []string{"bareword"},
			want: "unexpected argument",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runner.RunTool(t.Context(), tt.tool, tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		schemaType string
		want       any
	}{
		{"Integer As Number", "5", "number", float64(5)},
		{"Float As Number", "1.5", "number", 1.5},
		{"Invalid Number Stays String", "abc", "number", "abc"},
		{"Boolean True", "true", "boolean", true},
		{"Boolean Zero", "0", "boolean", false},
		{"Invalid Boolean Stays String", "maybe", "boolean", "maybe"},
		{"Untyped Stays String", "plain", "", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceValue(tt.raw, tt.schemaType))
		})
	}
}

func TestToFlagName(t *testing.T) {
	assert.Equal(t, "result-count", toFlagName("result_count"))
	assert.Equal(t, "query", toFlagName("query"))
}
