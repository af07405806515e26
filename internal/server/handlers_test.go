package server

import (
	"context"
	"encoding/json"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmdgate/cmdgate/internal/config"
	"github.com/cmdgate/cmdgate/internal/executor"
	"github.com/cmdgate/cmdgate/internal/session"
)

func testServer(t *testing.T, env map[string]string) *Server {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	store, err := config.Load(config.Options{
		DotenvPath: filepath.Join(t.TempDir(), ".env"),
		Getenv:     func(k string) string { return env[k] },
	})
	require.NoError(t, err)
	sessions := session.NewManager(store.Snapshot().Security.SessionTimeout)
	return New(store, sessions, executor.New(executor.WithShell("/bin/sh")))
}

// callTool invokes a registered tool handler directly and decodes the
// JSON text result. Error results return nil with the message.
func callTool(t *testing.T, s *Server, name string, args map[string]any) (map[string]any, string) {
	t.Helper()
	tool := s.MCP().GetTool(name)
	require.NotNil(t, tool, "tool %s should be registered", name)

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := tool.Handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "content should be text")

	if result.IsError {
		return nil, text.Text
	}
	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded, ""
}

func TestExecuteReadCommand_RunsReadCommands(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "execute_read_command", map[string]any{"command": "pwd"})
	require.Empty(t, errMsg)

	assert.Equal(t, true, res["success"])
	assert.Equal(t, "read", res["command_type"])
	assert.NotEmpty(t, res["output"])
}

func TestExecuteReadCommand_RejectsWriteCommands(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "execute_read_command", map[string]any{"command": "rm notes.txt"})
	require.Empty(t, errMsg)

	assert.Equal(t, false, res["success"])
	assert.Contains(t, res["error"], "use execute_command")
}

func TestExecuteCommand_ApprovalFlow(t *testing.T) {
	s := testServer(t, nil)

	// First use of a write command asks for approval.
	res, errMsg := callTool(t, s, "execute_command", map[string]any{"command": "echo hello"})
	require.Empty(t, errMsg)
	assert.Equal(t, false, res["success"])
	assert.Equal(t, true, res["requires_approval"])
	assert.Equal(t, []any{"write"}, res["categories"])
	assert.Equal(t, session.AnonymousID, res["session_id"])
	assert.Contains(t, res["error"], "approve_command_type")

	// Approve and retry.
	approve, errMsg := callTool(t, s, "approve_command_type", map[string]any{
		"command_type": "write",
		"remember":     true,
	})
	require.Empty(t, errMsg)
	assert.Equal(t, true, approve["success"])

	res, errMsg = callTool(t, s, "execute_command", map[string]any{"command": "echo hello"})
	require.Empty(t, errMsg)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "hello\n", res["output"])
	assert.Equal(t, "write", res["command_type"])
}

func TestExecuteCommand_OneTimeApprovalDoesNotStick(t *testing.T) {
	s := testServer(t, nil)

	approve, errMsg := callTool(t, s, "approve_command_type", map[string]any{
		"command_type": "write",
	})
	require.Empty(t, errMsg)
	assert.Equal(t, true, approve["success"])
	assert.Contains(t, approve["message"], "one-time")

	res, errMsg := callTool(t, s, "execute_command", map[string]any{"command": "echo hello"})
	require.Empty(t, errMsg)
	assert.Equal(t, true, res["requires_approval"])
}

func TestExecuteCommand_SessionsAreIndependent(t *testing.T) {
	s := testServer(t, nil)

	_, errMsg := callTool(t, s, "approve_command_type", map[string]any{
		"command_type": "write",
		"session_id":   "session-a",
		"remember":     true,
	})
	require.Empty(t, errMsg)

	res, errMsg := callTool(t, s, "execute_command", map[string]any{
		"command":    "echo hi",
		"session_id": "session-b",
	})
	require.Empty(t, errMsg)
	assert.Equal(t, true, res["requires_approval"])
}

func TestExecuteCommand_RejectsBlocked(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "execute_command", map[string]any{"command": "sudo ls"})
	require.Empty(t, errMsg)

	assert.Equal(t, false, res["success"])
	assert.Equal(t, "command_not_permitted", res["code"])
	assert.Contains(t, res["error"], "command not permitted: sudo")
	assert.Contains(t, res["error"], "supported commands:")
	assert.Equal(t, float64(0), res["segment_index"])
}

func TestExecuteCommand_RejectsDangerousPattern(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "execute_command", map[string]any{"command": "cat $(pwd)"})
	require.Empty(t, errMsg)

	assert.Equal(t, false, res["success"])
	assert.Equal(t, "dangerous_pattern", res["code"])
	assert.NotEmpty(t, res["pattern"])
}

func TestExecuteCommand_RejectsMalformedInput(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "execute_command", map[string]any{"command": `cat "unterminated`})
	require.Empty(t, errMsg)

	assert.Equal(t, false, res["success"])
	assert.Equal(t, "malformed_input", res["code"])
}

func TestExecuteCommand_Background(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "execute_command", map[string]any{"command": "ls &"})
	require.Empty(t, errMsg)

	assert.Equal(t, true, res["success"])
	assert.Contains(t, res["output"], "started in background")
	assert.NotZero(t, res["pid"])
}

func TestExecuteCommand_RequiredSessionID(t *testing.T) {
	s := testServer(t, map[string]string{"CMDGATE_REQUIRE_SESSION_ID": "true"})

	_, errMsg := callTool(t, s, "execute_command", map[string]any{"command": "pwd"})
	assert.Contains(t, errMsg, "session_id is required")

	res, errMsg := callTool(t, s, "execute_command", map[string]any{
		"command":    "pwd",
		"session_id": "explicit",
	})
	require.Empty(t, errMsg)
	assert.Equal(t, true, res["success"])
}

func TestApproveCommandType_InvalidType(t *testing.T) {
	s := testServer(t, nil)
	_, errMsg := callTool(t, s, "approve_command_type", map[string]any{"command_type": "blocked"})
	assert.Contains(t, errMsg, "invalid command type")
}

func TestApproveCommandType_ReadIsANoop(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "approve_command_type", map[string]any{"command_type": "read"})
	require.Empty(t, errMsg)
	assert.Equal(t, true, res["success"])
	assert.Contains(t, res["message"], "never require approval")
}

func TestListAvailableCommands(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "list_available_commands", nil)
	require.Empty(t, errMsg)

	assert.Contains(t, res["read_commands"], "ls")
	assert.Contains(t, res["write_commands"], "mkdir")
	assert.Contains(t, res["system_commands"], "curl")
	assert.Contains(t, res["blocked_commands"], "sudo")
}

func TestGetCommandHelp(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "get_command_help", nil)
	require.Empty(t, errMsg)

	caps, ok := res["capabilities"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, caps, "supported_commands")
	assert.Contains(t, caps, "command_chaining")
	assert.NotEmpty(t, res["examples"])
	assert.Contains(t, res["permissions"], "write_commands")
}

func TestGetConfiguration(t *testing.T) {
	s := testServer(t, nil)
	res, errMsg := callTool(t, s, "get_configuration", nil)
	require.Empty(t, errMsg)

	server := res["server"].(map[string]any)
	assert.Equal(t, "cmdgate", server["name"])
	security := res["security"].(map[string]any)
	assert.Equal(t, float64(3600), security["session_timeout"])
}

func TestUpdateConfiguration(t *testing.T) {
	s := testServer(t, nil)

	res, errMsg := callTool(t, s, "update_configuration", map[string]any{
		"patch": map[string]any{
			"security": map[string]any{"session_timeout": 120},
		},
	})
	require.Empty(t, errMsg)
	assert.Equal(t, true, res["success"])

	cfg, errMsg := callTool(t, s, "get_configuration", nil)
	require.Empty(t, errMsg)
	security := cfg["security"].(map[string]any)
	assert.Equal(t, float64(120), security["session_timeout"])
}

func TestUpdateConfiguration_InvalidPatchRejected(t *testing.T) {
	s := testServer(t, nil)
	before := s.store.Snapshot()

	_, errMsg := callTool(t, s, "update_configuration", map[string]any{
		"patch": map[string]any{
			"commands": map[string]any{"dangerous_patterns": []any{"[bad"}},
		},
	})
	assert.Contains(t, errMsg, "rejected")
	assert.Same(t, before, s.store.Snapshot())
}

func TestUpdateConfiguration_PatchMustBeObject(t *testing.T) {
	s := testServer(t, nil)
	_, errMsg := callTool(t, s, "update_configuration", map[string]any{"patch": "nope"})
	assert.Contains(t, errMsg, "must be a configuration object")
}
