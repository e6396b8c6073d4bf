package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	bochacli "github.com/bochaai/bocha-mcp/internal/cli"
	"github.com/bochaai/bocha-mcp/internal/registry"
	"github.com/bochaai/bocha-mcp/internal/tools"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	// Import all tool packages to register them
	_ "github.com/bochaai/bocha-mcp/internal/imports"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global resources that need cleanup
// Using atomic operations to prevent race conditions between signal handlers and cleanup
var (
	debugLogFile atomic.Pointer[os.File]
	isStdioMode  atomic.Bool
)

const (
	// DefaultMemoryLimit is the default memory limit for the Go application (1GB)
	DefaultMemoryLimit = 1 * 1024 * 1024 * 1024
)

// parseLogLevel parses the LOG_LEVEL environment variable and returns the appropriate logrus level.
// Defaults to WarnLevel if not set or invalid.
func parseLogLevel() logrus.Level {
	logLevelStr := os.Getenv("LOG_LEVEL")
	if logLevelStr == "" {
		return logrus.WarnLevel // Default to warn
	}

	// Normalise to lowercase for comparison
	logLevelStr = strings.ToLower(strings.TrimSpace(logLevelStr))

	switch logLevelStr {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		// Invalid value, default to warn
		return logrus.WarnLevel
	}
}

// setMemoryLimit configures the Go runtime memory limit
func setMemoryLimit() {
	// Check for environment variable override
	memLimitStr := os.Getenv("BOCHA_MCP_MEMORY_LIMIT")
	var memLimit int64 = DefaultMemoryLimit

	if memLimitStr != "" {
		if parsed, err := strconv.ParseInt(memLimitStr, 10, 64); err == nil && parsed > 0 {
			memLimit = parsed
		}
	}

	// Set the GOMEMLIMIT for the Go runtime
	// This is a soft limit - the runtime adjusts GC behaviour to stay under it
	debug.SetMemoryLimit(memLimit)
}

func main() {
	// Set memory limit for the Go application
	setMemoryLimit()

	// Create context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create a logger with default configuration
	// Initially discard output - will be reconfigured in Action based on transport mode
	logger := logrus.New()
	logger.SetOutput(io.Discard)     // Prevent any early logging before we know the transport mode
	logger.SetLevel(parseLogLevel()) // Use LOG_LEVEL env var (default: WarnLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Initialise the registry
	registry.Init(logger)

	// Ensure cleanup runs on normal exit OR signal
	defer performCleanup(logger)

	// Create and run the CLI app
	app := &cli.Command{
		Name:    "bocha-mcp",
		Usage:   "MCP server for the Bocha web search API",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Value:   "stdio",
				Usage:   "Transport type (stdio, sse, or http)",
			},
			&cli.StringFlag{
				Name:  "port",
				Value: "18080",
				Usage: "Port to use for HTTP transports (SSE and Streamable HTTP)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Value: "http://localhost",
				Usage: "Base URL for HTTP transports",
			},
			&cli.StringFlag{
				Name:  "auth-token",
				Usage: "Authentication token for Streamable HTTP transport (optional)",
			},
			&cli.StringFlag{
				Name:  "endpoint-path",
				Value: "/http",
				Usage: "Endpoint path for Streamable HTTP transport",
			},
			&cli.DurationFlag{
				Name:  "session-timeout",
				Value: 30 * time.Minute,
				Usage: "Session timeout for Streamable HTTP transport",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Printf("bocha-mcp version %s\n", Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			{
				Name:            "cli",
				Usage:           "Run tools directly from the terminal without an MCP client",
				ArgsUsage:       "list | help <tool> | <tool> [--param=value ...]",
				SkipFlagParsing: true,
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runCLI(ctx, cmd.Args().Slice())
				},
			},
		},
		Action: func(cliCtx context.Context, cmd *cli.Command) error {
			// Get transport settings
			transport := cmd.String("transport")
			port := cmd.String("port")
			baseURL := cmd.String("base-url")

			// Track stdio mode for error handling (atomic to prevent races with signal handlers)
			isStdioMode.Store(transport == "stdio")

			// Configure logger - ALWAYS use file logging to avoid breaking stdio protocol
			homeDir, err := os.UserHomeDir()
			if err == nil {
				logDir := filepath.Join(homeDir, ".bocha-mcp", "logs")
				if err := os.MkdirAll(logDir, 0700); err == nil {
					logFile := filepath.Join(logDir, "bocha-mcp.log")
					if file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
						// Store file handle for cleanup
						debugLogFile.Store(file)
						// Configure loggers for file output
						logger.SetOutput(file)
						logrus.SetOutput(file)
						// Apply LOG_LEVEL setting (stdio mode uses warn level minimum)
						logLevel := parseLogLevel()
						if isStdioMode.Load() && logLevel < logrus.WarnLevel {
							logLevel = logrus.WarnLevel // Minimum warn level for stdio mode
						}
						logger.SetLevel(logLevel)
						logrus.SetLevel(logLevel)
						logger.WithField("level", logLevel.String()).Debug("Logging configured")
					} else {
						// Critical: Cannot create log file - use io.Discard in stdio mode to prevent protocol breakage
						if isStdioMode.Load() {
							logger.SetOutput(io.Discard)
							logrus.SetOutput(io.Discard)
						} else {
							// Non-stdio mode can fallback to stderr
							logger.SetOutput(os.Stderr)
							logrus.SetOutput(os.Stderr)
						}
						logLevel := parseLogLevel()
						logger.SetLevel(logLevel)
						logrus.SetLevel(logLevel)
					}
				} else {
					// Critical: Cannot create log directory
					if isStdioMode.Load() {
						logger.SetOutput(io.Discard)
						logrus.SetOutput(io.Discard)
					} else {
						logger.SetOutput(os.Stderr)
						logrus.SetOutput(os.Stderr)
					}
					logLevel := parseLogLevel()
					logger.SetLevel(logLevel)
					logrus.SetLevel(logLevel)
				}
			} else {
				// Critical: Cannot get home directory
				if isStdioMode.Load() {
					logger.SetOutput(io.Discard)
					logrus.SetOutput(io.Discard)
				} else {
					logger.SetOutput(os.Stderr)
					logrus.SetOutput(os.Stderr)
				}
				logLevel := parseLogLevel()
				logger.SetLevel(logLevel)
				logrus.SetLevel(logLevel)
			}

			// Initialise tool error logger after logging is configured
			if err := tools.InitGlobalErrorLogger(logger); err != nil {
				logger.WithError(err).Debug("Failed to initialise tool error logger")
				if transport != "stdio" {
					logger.WithError(err).Warn("Failed to initialise tool error logger")
				}
			}

			// Only log startup info for non-stdio transports
			if transport != "stdio" {
				logger.Infof("Starting bocha-mcp version %s (commit: %s, built: %s)",
					Version, Commit, BuildDate)
			}

			// Create MCP server
			logger.Debug("Creating MCP server")
			mcpSrv := mcpserver.NewMCPServer("bocha-mcp", "Bocha Web Search Server")

			enabledTools := registry.GetTools()
			logger.WithField("tool_count", len(enabledTools)).Debug("MCP server created, registering tools")

			// Register tools - fix race condition by capturing variables properly
			for toolName, toolImpl := range enabledTools {
				// Capture variables to avoid closure race condition
				name := toolName
				tool := toolImpl

				if transport != "stdio" {
					logger.Infof("Registering tool: %s", name)
				}

				mcpSrv.AddTool(tool.Definition(), func(toolCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
					// Get fresh reference from registry to ensure consistency
					currentTool, ok := registry.GetTool(name)
					if !ok {
						return nil, fmt.Errorf("tool not found: %s", name)
					}

					// Type assert the arguments to map[string]interface{}
					args, ok := request.Params.Arguments.(map[string]any)
					if !ok {
						return nil, fmt.Errorf("invalid arguments type: expected map[string]interface{}, got %T", request.Params.Arguments)
					}

					// Execute tool with error recovery
					result, err := currentTool.Execute(toolCtx, registry.GetLogger(), registry.GetCache(), args)
					if err != nil {
						// Log error to stderr for debugging (won't interfere with stdio)
						if transport != "stdio" {
							logger.WithError(err).Errorf("Tool execution failed: %s", name)
						}

						// Log tool error to file if enabled
						if errorLogger := tools.GetGlobalErrorLogger(); errorLogger != nil && errorLogger.IsEnabled() {
							errorLogger.LogToolError(name, args, err, transport)
						}

						return nil, fmt.Errorf("tool execution failed: %w", err)
					}

					return result, nil
				})
			}

			// Start the server
			logger.WithField("transport", transport).Debug("Starting server")
			switch transport {
			case "stdio":
				logger.Debug("Starting stdio server")
				return mcpserver.ServeStdio(mcpSrv)
			case "sse":
				logger.WithField("port", port).Debug("Starting SSE server")
				sseServer := mcpserver.NewSSEServer(mcpSrv, mcpserver.WithBaseURL(baseURL+"/sse"))
				return sseServer.Start(":" + port)
			case "http":
				logger.WithField("port", port).Debug("Starting HTTP server")
				return startStreamableHTTPServer(cmd, mcpSrv, logger)
			default:
				return fmt.Errorf("unsupported transport: %s", transport)
			}
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		// CRITICAL: In stdio mode, we must NOT log to stdout or stderr as it breaks the MCP protocol
		// Even though this occurs after ServeStdio() returns, initialisation errors could occur
		// before the protocol starts, so we avoid all logging in stdio mode
		if !isStdioMode.Load() {
			logger.Fatalf("Error: %v", err)
		}
		os.Exit(1)
	}
}

// runCLI dispatches the cli subcommand: list, help <tool>, or a direct tool
// invocation. Flag parsing is skipped upstream so tool flags like --query
// arrive here untouched.
func runCLI(ctx context.Context, args []string) error {
	output := bochacli.OutputText

	// Peel a leading output format flag before the tool name
	for len(args) > 0 {
		if args[0] == "--output" || args[0] == "-o" {
			if len(args) < 2 {
				return fmt.Errorf("flag %s requires a value", args[0])
			}
			output = bochacli.OutputFormat(args[1])
			args = args[2:]
			continue
		}
		if strings.HasPrefix(args[0], "--output=") {
			output = bochacli.OutputFormat(strings.TrimPrefix(args[0], "--output="))
			args = args[1:]
			continue
		}
		break
	}

	if output != bochacli.OutputText && output != bochacli.OutputJSON {
		return fmt.Errorf("invalid output format %q (must be text or json)", output)
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: bocha-mcp cli [--output text|json] list | help <tool> | <tool> [--param=value ...]")
	}

	// CLI mode owns the terminal, so warnings can go straight to stderr
	logger := registry.GetLogger()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(parseLogLevel())

	runner := bochacli.NewRunner(logger, registry.GetCache(), output)

	switch args[0] {
	case "list":
		return runner.ListTools()
	case "help":
		if len(args) < 2 {
			return fmt.Errorf("usage: bocha-mcp cli help <tool>")
		}
		return runner.HelpTool(args[1])
	default:
		return runner.RunTool(ctx, args[0], args[1:])
	}
}

// performCleanup handles cleanup of resources on shutdown
func performCleanup(logger *logrus.Logger) {
	// Close the debug log file if it was opened (atomic load to prevent races)
	if file := debugLogFile.Load(); file != nil {
		// Silently close - we're in cleanup and can't safely log errors
		// (stdio mode: no output allowed; non-stdio: logger might write to this file)
		_ = file.Close()
	}

	// Close the tool error logger if it was initialised
	if errorLogger := tools.GetGlobalErrorLogger(); errorLogger != nil {
		// Use Warn level - in stdio mode this won't output (ErrorLevel only)
		if err := errorLogger.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close tool error logger")
		}
	}
}

// startStreamableHTTPServer configures and starts the Streamable HTTP server
func startStreamableHTTPServer(cmd *cli.Command, mcpServer *mcpserver.MCPServer, logger *logrus.Logger) error {
	port := cmd.String("port")
	authToken := cmd.String("auth-token")
	endpointPath := cmd.String("endpoint-path")
	sessionTimeout := cmd.Duration("session-timeout")

	logger.Infof("Starting Streamable HTTP server on port %s with endpoint %s", port, endpointPath)

	// Configure server options
	var opts []mcpserver.StreamableHTTPOption

	// Set endpoint path
	opts = append(opts, mcpserver.WithEndpointPath(endpointPath))

	// Set session timeout (create a custom session manager)
	if sessionTimeout > 0 {
		opts = append(opts, mcpserver.WithSessionIdManager(&TimeoutSessionManager{
			timeout: sessionTimeout,
			logger:  logger,
		}))
	}

	// Token authentication
	if authToken != "" {
		opts = append(opts, mcpserver.WithHTTPContextFunc(createAuthMiddleware(authToken, logger)))
		logger.Info("Token authentication enabled")
	}

	// Add heartbeat interval for keep-alive
	heartbeatInterval := 30 * time.Second
	if sessionTimeout > 0 {
		// Set heartbeat to 1/4 of session timeout
		heartbeatInterval = sessionTimeout / 4
	}
	opts = append(opts, mcpserver.WithHeartbeatInterval(heartbeatInterval))

	// Add logger
	opts = append(opts, mcpserver.WithLogger(&logrusAdapter{logger: logger}))

	// Create streamable HTTP server
	httpServer := mcpserver.NewStreamableHTTPServer(mcpServer, opts...)

	logger.Infof("Heartbeat interval: %v", heartbeatInterval)
	logger.Info("Server supports multiple simultaneous connections")

	// Start server
	// Note: The mcp-go StreamableHTTPServer.Start() method doesn't currently support
	// context-based graceful shutdown.
	// TODO: Update when mcp-go library adds graceful shutdown support
	return httpServer.Start(":" + port)
}

// createAuthMiddleware creates an HTTP context function for token authentication
func createAuthMiddleware(expectedToken string, logger *logrus.Logger) mcpserver.HTTPContextFunc {
	return func(ctx context.Context, req *http.Request) context.Context {
		// Validate MCP Protocol Version header
		protocolVersion := req.Header.Get("MCP-Protocol-Version")
		if protocolVersion != "" {
			if !isValidProtocolVersion(protocolVersion) {
				logger.Warnf("Unsupported MCP Protocol Version: %s", protocolVersion)
				// Note: In a full implementation, we would return an error response
				// For now, we log and continue
			} else {
				logger.Debugf("MCP Protocol Version: %s", protocolVersion)
			}
		} else {
			// Default to 2025-06-18 as per the MCP specification
			logger.Debug("No MCP-Protocol-Version header, assuming 2025-06-18")
		}

		// Validate Origin header for security (DNS rebinding protection)
		origin := req.Header.Get("Origin")
		if origin != "" && !isValidOrigin(origin) {
			logger.Warnf("Invalid Origin header: %s", origin)
			// Note: In production, this should return a 403 Forbidden
		}

		// Check Authorization header if token is required
		if expectedToken != "" {
			authHeader := req.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Request missing Authorization header")
				return ctx
			}

			// Extract Bearer token
			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				logger.Warn("Invalid authorization format, expected Bearer token")
				return ctx
			}

			token := strings.TrimPrefix(authHeader, bearerPrefix)
			if token != expectedToken {
				logger.Warn("Invalid authentication token")
				return ctx
			}

			logger.Debug("Request authenticated successfully")
		}

		return ctx
	}
}

// isValidProtocolVersion checks if the MCP protocol version is supported
func isValidProtocolVersion(version string) bool {
	supportedVersions := []string{
		"2025-06-18", // Current version
		"2024-11-05", // Backwards compatibility
	}

	return slices.Contains(supportedVersions, version)
}

// isValidOrigin validates the Origin header to prevent DNS rebinding attacks
func isValidOrigin(origin string) bool {
	// Allow localhost and 127.0.0.1 origins for development
	allowedOrigins := []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
	}

	for _, allowed := range allowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}

	return false
}

// TimeoutSessionManager implements SessionIdManager with timeout support
type TimeoutSessionManager struct {
	timeout time.Duration
	logger  *logrus.Logger
}

func (t *TimeoutSessionManager) Generate() string {
	return "session-" + uuid.New().String()
}

func (t *TimeoutSessionManager) Validate(sessionID string) (bool, error) {
	// Session expiry is handled by the heartbeat interval rather than tracked here
	if sessionID == "" {
		return false, fmt.Errorf("empty session ID")
	}
	return false, nil // Session is not terminated
}

func (t *TimeoutSessionManager) Terminate(sessionID string) (bool, error) {
	t.logger.Debugf("Session terminated: %s", sessionID)
	return true, nil // Session was terminated successfully
}

// logrusAdapter adapts logrus.Logger to the mcp-go util.Logger interface
type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Debugf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *logrusAdapter) Warnf(format string, args ...any) {
	l.logger.Warnf(format, args...)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
