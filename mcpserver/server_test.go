package mcpserver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localrivet/mcpadapt/mcptool"
)

type echoParams struct {
	Message string `json:"message"`
	Count   uint32 `json:"count" default:"1"`
}

func newEchoServer(t *testing.T) *Server {
	t.Helper()
	s := New("S", "0.1")
	d, err := mcptool.NewTool("echo", "…", mcptool.Handler[echoParams, string](
		func(_ context.Context, p echoParams) (string, error) {
			return p.Message, nil
		}))
	require.NoError(t, err)
	require.NoError(t, s.AddTool(d))
	return s
}

func runLines(t *testing.T, s *Server, input string) []string {
	t.Helper()
	var out bytes.Buffer
	err := s.Run(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)
	text := strings.TrimRight(out.String(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestScenario1Initialize(t *testing.T) {
	s := newEchoServer(t)
	lines := runLines(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`+"\n")

	require.Len(t, lines, 2)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05","serverInfo":{"name":"S","version":"0.1"},"capabilities":{"tools":{"listChanged":false},"logging":{}}}}`, lines[0])
	assert.Equal(t, `{"jsonrpc":"2.0","method":"initialized"}`, lines[1])
}

func TestScenario2ListOneTool(t *testing.T) {
	s := newEchoServer(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}` + "\n"
	lines := runLines(t, s, input)
	require.Len(t, lines, 3)
	assert.Equal(t, `{"jsonrpc":"2.0","id":2,"result":{"tools":[{"name":"echo","description":"…","inputSchema":{"type":"object","properties":{"message":{"type":"string"},"count":{"type":"integer"}},"required":["message"]}}]}}`, lines[2])
}

func TestScenario3CallEchoHappyPath(t *testing.T) {
	s := newEchoServer(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}` + "\n"
	lines := runLines(t, s, input)
	require.Len(t, lines, 3)
	assert.Equal(t, `{"jsonrpc":"2.0","id":3,"result":{"isError":false,"content":[{"type":"text","text":"hi"}]}}`, lines[2])
}

func TestScenario4ProgressSandwich(t *testing.T) {
	s := newEchoServer(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"},"progressToken":"t1"}}` + "\n"
	lines := runLines(t, s, input)
	require.Len(t, lines, 5)
	assert.Equal(t, `{"jsonrpc":"2.0","method":"$/progress","params":{"token":"t1","progress":0,"total":null}}`, lines[2])
	assert.Equal(t, `{"jsonrpc":"2.0","method":"$/progress","params":{"token":"t1","progress":100,"total":100}}`, lines[3])
	assert.Equal(t, `{"jsonrpc":"2.0","id":4,"result":{"isError":false,"content":[{"type":"text","text":"hi"}]}}`, lines[4])
}

func TestScenario5MissingTool(t *testing.T) {
	s := newEchoServer(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"nope","arguments":{}}}` + "\n"
	lines := runLines(t, s, input)
	require.Len(t, lines, 3)
	assert.Equal(t, `{"jsonrpc":"2.0","id":4,"error":{"code":-32601,"message":"Tool not found"}}`, lines[2])
}

func TestScenario6BeforeInit(t *testing.T) {
	s := newEchoServer(t)
	lines := runLines(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/list"}`+"\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `{"jsonrpc":"2.0","id":5,"error":{"code":-32002,"message":"Server not initialized"}}`, lines[0])
}

func TestMalformedJSONYieldsParseError(t *testing.T) {
	s := newEchoServer(t)
	lines := runLines(t, s, `{not json`+"\n")
	require.Len(t, lines, 1)
	assert.Equal(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"Parse error"}}`, lines[0])
}

func TestUnknownMethodAfterInit(t *testing.T) {
	s := newEchoServer(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"bogus"}` + "\n"
	lines := runLines(t, s, input)
	require.Len(t, lines, 3)
	assert.Equal(t, `{"jsonrpc":"2.0","id":2,"error":{"code":-32601,"message":"Method not found"}}`, lines[2])
}

func TestToolsCallMissingNameAndArguments(t *testing.T) {
	s := newEchoServer(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo"}}` + "\n"
	lines := runLines(t, s, input)
	require.Len(t, lines, 5)
	assert.Equal(t, `{"jsonrpc":"2.0","id":2,"error":{"code":-32602,"message":"Missing tool name"}}`, lines[2])
	assert.Equal(t, `{"jsonrpc":"2.0","id":3,"error":{"code":-32602,"message":"Missing arguments"}}`, lines[3])
}

func TestLoggingSetLevel(t *testing.T) {
	s := newEchoServer(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"logging/setLevel","params":{"level":"debug"}}` + "\n"
	lines := runLines(t, s, input)
	require.Len(t, lines, 3)
	assert.Equal(t, `{"jsonrpc":"2.0","id":2,"result":null}`, lines[2])
	assert.Equal(t, LogDebug, s.State().MinLogLevel)
}

func TestDispatchOrderingP7(t *testing.T) {
	s := newEchoServer(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":10,"method":"tools/list"}` + "\n" +
		`{"jsonrpc":"2.0","id":11,"method":"tools/list"}` + "\n"
	lines := runLines(t, s, input)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], `"id":10`)
	assert.Contains(t, lines[3], `"id":11`)
}

func TestDecodeFailureIsErrorTrue(t *testing.T) {
	s := newEchoServer(t)
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{}}}` + "\n"
	lines := runLines(t, s, input)
	require.Len(t, lines, 3)
	assert.Equal(t, `{"jsonrpc":"2.0","id":2,"result":{"isError":true,"content":[{"type":"text","text":"Invalid parameters: MissingField(\"message\")"}]}}`, lines[2])
}
