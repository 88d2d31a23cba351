// Package mcpserver drives the single-threaded JSON-RPC 2.0 loop described
// in §4.4: read a line, dispatch by method, write zero or more lines, loop.
// Grounded on the teacher's server package (lifecycle_handler.go, tool.go's
// ProcessToolCall content-envelope shape, logging.go) adapted to the wire
// methods, error codes, and framing §4.4/§6 specify rather than the
// teacher's own (HTTP/SSE/WebSocket-capable, Resources/Prompts-aware)
// surface.
package mcpserver

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/localrivet/mcpadapt/mcptool"
	"github.com/localrivet/mcpadapt/transport/stdio"
	"github.com/localrivet/mcpadapt/value"
)

// Server is the MCP dispatcher: ServerState plus the logger and transport
// it drives requests through.
type Server struct {
	state  *ServerState
	logger zerolog.Logger
}

// New constructs a Server in the New lifecycle state (§4.4). Tools must be
// registered into state.Registry before Run is called; the registry is
// read-only once the loop starts.
func New(name, version string, opts ...Option) *Server {
	s := &Server{
		state: &ServerState{
			Name:        name,
			Version:     version,
			Registry:    mcptool.NewRegistry(),
			MinLogLevel: LogInfo,
		},
		logger: defaultLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.applyLogLevel(s.state.MinLogLevel)
	return s
}

// AddTool registers d into the server's registry. It must be called before
// Run starts; returns an error on a duplicate tool name (§4.3's
// reject-duplicates redesign).
func (s *Server) AddTool(d *mcptool.ToolDescriptor) error {
	return s.state.Registry.Add(d)
}

// State exposes the server's ServerState for inspection (tests, metrics).
func (s *Server) State() *ServerState { return s.state }

// Run drives the read-dispatch-write loop over r/w until r reaches EOF or
// ctx is canceled. It returns nil on a clean EOF.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := stdio.NewReader(r)
	writer := stdio.NewWriter(w)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("mcpserver: read: %w", err)
		}
		if len(line) == 0 {
			continue
		}

		s.handleLine(ctx, line, writer)
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte, w *stdio.Writer) {
	v, err := value.FromJSON(line)
	if err != nil {
		s.logger.Debug().Err(err).Msg("parse error")
		s.writeError(w, value.Null(), CodeParseError, "Parse error")
		return
	}

	obj, ok := v.AsObject()
	if !ok {
		s.writeError(w, value.Null(), CodeInvalidRequest, "Invalid request")
		return
	}

	methodVal, _ := obj.Get("method")
	method, _ := methodVal.AsString()

	id, hasID := obj.Get("id")
	params, hasParams := obj.Get("params")

	s.dispatch(ctx, method, id, hasID, params, hasParams, w)
}

func (s *Server) dispatch(ctx context.Context, method string, id value.Value, hasID bool, params value.Value, hasParams bool, w *stdio.Writer) {
	if !s.state.Initialized && method != "initialize" {
		if hasID {
			s.writeError(w, id, CodeServerNotInitialized, "Server not initialized")
		}
		return
	}

	switch method {
	case "initialize":
		s.handleInitialize(id, hasID, w)
	case "initialized", "notifications/initialized":
		// no-op: acknowledgement-only notifications.
	case "tools/list":
		s.handleToolsList(id, hasID, w)
	case "tools/call":
		s.handleToolsCall(ctx, id, hasID, params, hasParams, w)
	case "logging/setLevel":
		s.handleLoggingSetLevel(id, hasID, params, hasParams, w)
	default:
		if hasID {
			s.writeError(w, id, CodeMethodNotFound, "Method not found")
		}
	}
}

func (s *Server) handleInitialize(id value.Value, hasID bool, w *stdio.Writer) {
	s.state.Initialized = true

	serverInfo := value.NewObject()
	siObj, _ := serverInfo.AsObject()
	siObj.Set("name", value.String(s.state.Name))
	siObj.Set("version", value.String(s.state.Version))

	toolsCap := value.NewObject()
	tcObj, _ := toolsCap.AsObject()
	tcObj.Set("listChanged", value.Bool(false))

	caps := value.NewObject()
	capsObj, _ := caps.AsObject()
	capsObj.Set("tools", value.ObjectValue(tcObj))
	capsObj.Set("logging", value.NewObject())

	result := value.NewObject()
	rObj, _ := result.AsObject()
	rObj.Set("protocolVersion", value.String(ProtocolVersion))
	rObj.Set("serverInfo", value.ObjectValue(siObj))
	rObj.Set("capabilities", value.ObjectValue(capsObj))

	if hasID {
		s.writeResult(w, id, value.ObjectValue(rObj))
	}
	s.writeNotification(w, "initialized", value.Value{}, false)
}

func (s *Server) handleToolsList(id value.Value, hasID bool, w *stdio.Writer) {
	if !hasID {
		return
	}

	var tools []value.Value
	for _, d := range s.state.Registry.Iter() {
		entry := value.NewObject()
		eObj, _ := entry.AsObject()
		eObj.Set("name", value.String(d.Name))
		eObj.Set("description", value.String(d.Description))
		eObj.Set("inputSchema", d.Schema)
		tools = append(tools, value.ObjectValue(entry))
	}

	result := value.NewObject()
	rObj, _ := result.AsObject()
	rObj.Set("tools", value.Array(tools...))
	s.writeResult(w, id, value.ObjectValue(rObj))
}

func (s *Server) handleLoggingSetLevel(id value.Value, hasID bool, params value.Value, hasParams bool, w *stdio.Writer) {
	if hasParams {
		if obj, ok := params.AsObject(); ok {
			if levelVal, ok := obj.Get("level"); ok {
				if levelStr, ok := levelVal.AsString(); ok {
					if parsed, ok := ParseLogLevel(levelStr); ok {
						s.state.MinLogLevel = parsed
						s.applyLogLevel(parsed)
					}
				}
			}
		}
	}
	if hasID {
		s.writeResult(w, id, value.Null())
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id value.Value, hasID bool, params value.Value, _ bool, w *stdio.Writer) {
	obj, _ := params.AsObject() // nil *Object if absent or wrong shape; Get on it fails soft

	nameVal, hasName := obj.Get("name")
	name, isString := nameVal.AsString()
	if !hasName || !isString {
		if hasID {
			s.writeError(w, id, CodeInvalidParams, "Missing tool name")
		}
		return
	}

	tool, found := s.state.Registry.Get(name)
	if !found {
		if hasID {
			s.writeError(w, id, CodeMethodNotFound, "Tool not found")
		}
		return
	}

	args, hasArgs := obj.Get("arguments")
	if !hasArgs {
		if hasID {
			s.writeError(w, id, CodeInvalidParams, "Missing arguments")
		}
		return
	}

	progressToken, hasProgress := obj.Get("progressToken")
	if hasProgress {
		s.writeProgress(w, progressToken, 0, value.Null())
	}

	result, isError := tool.Invoke(ctx, args)

	if hasProgress {
		s.writeProgress(w, progressToken, 100, value.Int(100))
	}

	content := value.NewObject()
	cObj, _ := content.AsObject()
	cObj.Set("type", value.String("text"))
	cObj.Set("text", result)

	envelope := value.NewObject()
	eObj, _ := envelope.AsObject()
	eObj.Set("isError", value.Bool(isError))
	eObj.Set("content", value.Array(value.ObjectValue(cObj)))

	if hasID {
		s.writeResult(w, id, value.ObjectValue(eObj))
	}
}

func (s *Server) applyLogLevel(level LogLevel) {
	switch level {
	case LogError:
		s.logger = s.logger.Level(zerolog.ErrorLevel)
	case LogWarn:
		s.logger = s.logger.Level(zerolog.WarnLevel)
	case LogInfo:
		s.logger = s.logger.Level(zerolog.InfoLevel)
	case LogDebug:
		s.logger = s.logger.Level(zerolog.DebugLevel)
	}
}

func (s *Server) writeResult(w *stdio.Writer, id value.Value, result value.Value) {
	resp := value.NewObject()
	obj, _ := resp.AsObject()
	obj.Set("jsonrpc", value.String("2.0"))
	obj.Set("id", id)
	obj.Set("result", result)
	s.writeFrame(w, value.ObjectValue(obj))
}

func (s *Server) writeError(w *stdio.Writer, id value.Value, code int64, message string) {
	errObj := value.NewObject()
	eObj, _ := errObj.AsObject()
	eObj.Set("code", value.Int(code))
	eObj.Set("message", value.String(message))

	resp := value.NewObject()
	obj, _ := resp.AsObject()
	obj.Set("jsonrpc", value.String("2.0"))
	obj.Set("id", id)
	obj.Set("error", value.ObjectValue(eObj))
	s.writeFrame(w, value.ObjectValue(obj))
}

// writeNotification emits a notification frame (no "id" key). When
// hasParams is false, no "params" key is written at all — matching
// scenario 1's bare `{"jsonrpc":"2.0","method":"initialized"}`.
func (s *Server) writeNotification(w *stdio.Writer, method string, params value.Value, hasParams bool) {
	notif := value.NewObject()
	obj, _ := notif.AsObject()
	obj.Set("jsonrpc", value.String("2.0"))
	obj.Set("method", value.String(method))
	if hasParams {
		obj.Set("params", params)
	}
	s.writeFrame(w, value.ObjectValue(notif))
}

// writeProgress emits a $/progress notification. total is serialized even
// when Null (§4.4: "unlike responses").
func (s *Server) writeProgress(w *stdio.Writer, token value.Value, progress int64, total value.Value) {
	params := value.NewObject()
	pObj, _ := params.AsObject()
	pObj.Set("token", token)
	pObj.Set("progress", value.Int(progress))
	pObj.Set("total", total)
	s.writeNotification(w, "$/progress", value.ObjectValue(pObj), true)
}

func (s *Server) writeFrame(w *stdio.Writer, v value.Value) {
	b, err := value.ToJSON(v, value.EncodeOptions{})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to serialize frame")
		return
	}
	if err := w.WriteLine(b); err != nil {
		s.logger.Error().Err(err).Msg("failed to write frame")
	}
}
