// Command mcpserver is a demo host: it wires one "echo" tool into the
// dispatcher and serves it over stdio. CLI bootstrap is ambient tooling,
// not part of the wire contract (SPEC_FULL.md §6) — the library itself
// needs none of this to be used as mcpserver.New(...).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/localrivet/mcpadapt/mcpserver"
	"github.com/localrivet/mcpadapt/mcptool"
)

// Config holds the CLI's bootstrap parameters. It is decoded from a
// flag/env map with mapstructure and checked with go-playground/validator
// before the server ever opens its transport — a config that fails
// validation never reaches ServerState (SPEC_FULL.md §7). This is the one
// place mapstructure is used; the Type Bridge's own decode<T> is hand
// written instead (see schema/decode.go) because mapstructure's
// WeaklyTypedInput mode doesn't enforce the spec's integer-range and
// fixed-array-length rules.
type Config struct {
	Name     string `mapstructure:"name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=error warn info debug"`
	LogFile  string `mapstructure:"log_file"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load() // .env is optional; a missing file is not an error

	var flags struct {
		name, version, logLevel, logFile string
	}

	cmd := &cobra.Command{
		Use:   "mcpserver",
		Short: "Runs a typed-tool MCP server over stdio",
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig(flags.name, flags.version, flags.logLevel, flags.logFile)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVar(&flags.name, "name", envOr("MCP_NAME", "mcpadapt"), "server name reported to clients")
	cmd.Flags().StringVar(&flags.version, "version", envOr("MCP_VERSION", "0.1.0"), "server version reported to clients")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", envOr("MCP_LOG_LEVEL", "info"), "minimum log level (error|warn|info|debug)")
	cmd.Flags().StringVar(&flags.logFile, "log-file", os.Getenv("MCP_LOG_FILE"), "optional file to log to instead of stderr")

	return cmd.Execute()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadConfig(name, version, logLevel, logFile string) (*Config, error) {
	raw := map[string]any{
		"name":      name,
		"version":   version,
		"log_level": logLevel,
		"log_file":  logFile,
	}

	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func serve(cfg *Config) error {
	level, _ := mcpserver.ParseLogLevel(cfg.LogLevel)

	logger, closeLog, err := buildLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	if zl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(zl)
	}

	s := mcpserver.New(cfg.Name, cfg.Version, mcpserver.WithLogger(logger), mcpserver.WithLogLevel(level))

	echo, err := mcptool.NewTool("echo",
		"Echoes the message argument back, count times joined by newlines.",
		mcptool.Handler[echoParams, string](echoHandler))
	if err != nil {
		return err
	}
	if err := s.AddTool(echo); err != nil {
		return err
	}

	logger.Info().Str("name", cfg.Name).Str("version", cfg.Version).Msg("starting mcp server on stdio")
	return s.Run(context.Background(), os.Stdin, os.Stdout)
}

func buildLogger(path string) (zerolog.Logger, func(), error) {
	if path == "" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger(), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Logger{}, func() {}, fmt.Errorf("log file: %w", err)
	}
	return zerolog.New(f).With().Timestamp().Logger(), func() { _ = f.Close() }, nil
}

// echoParams/echoHandler match §8 scenario 2's example tool shape:
// {message:string, count:u32=1}.
type echoParams struct {
	Message string `json:"message"`
	Count   uint32 `json:"count" default:"1"`
}

func echoHandler(_ context.Context, p echoParams) (string, error) {
	if p.Count <= 1 {
		return p.Message, nil
	}
	out := p.Message
	for i := uint32(1); i < p.Count; i++ {
		out += "\n" + p.Message
	}
	return out, nil
}
