package mcpserver

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/localrivet/mcpadapt/mcptool"
)

// ProtocolVersion is the MCP protocol version this dispatcher speaks.
const ProtocolVersion = "2024-11-05"

// ServerState is the adapter's top-level state: identity, the tool
// registry, the live logging threshold, and whether initialize has
// completed. The registry is populated before Run starts and never mutated
// again afterward (§5: "the registry is read-only after startup").
type ServerState struct {
	Name        string
	Version     string
	Registry    *mcptool.Registry
	MinLogLevel LogLevel
	Initialized bool
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger overrides the default stderr zerolog logger. Never point this
// at stdout: stdout is the JSON-RPC wire, and any byte written there that
// isn't a protocol frame corrupts the stream (the same reasoning behind the
// teacher's AsStdio(logFile ...string) convention in server/stdio.go).
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithLogLevel sets the server's initial min_log_level (default LogInfo).
func WithLogLevel(level LogLevel) Option {
	return func(s *Server) { s.state.MinLogLevel = level }
}

// WithRegistry supplies a pre-populated registry instead of an empty one.
func WithRegistry(r *mcptool.Registry) Option {
	return func(s *Server) { s.state.Registry = r }
}

func defaultLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
}
