package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cmdgate/cmdgate/internal/config"
	"github.com/cmdgate/cmdgate/internal/executor"
	"github.com/cmdgate/cmdgate/internal/policy"
	"github.com/cmdgate/cmdgate/internal/session"
	"github.com/cmdgate/cmdgate/pkg/types"
)

// resolveSession applies the session id rules: a supplied id is used
// as-is; a missing one falls back to the shared anonymous session
// unless the configuration requires explicit ids.
func resolveSession(args map[string]any, snap *config.Snapshot) (string, error) {
	if id, _ := args["session_id"].(string); id != "" {
		return id, nil
	}
	if snap.Security.RequireSessionID {
		return "", fmt.Errorf("session_id is required by the current configuration")
	}
	return session.AnonymousID, nil
}

func commandArg(args map[string]any) (string, error) {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("command argument is required")
	}
	return command, nil
}

func (s *Server) handleExecuteCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	command, err := commandArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap := s.snapshot()
	sessionID, err := resolveSession(args, snap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.sessions.Touch(sessionID)

	verdict := policy.Decide(command, sessionID, snap.Rules, s.sessions)
	s.log.Info().
		Str("request_id", verdict.ID).
		Str("session_id", sessionID).
		Str("decision", string(verdict.Decision)).
		Msg("command decided")

	switch verdict.Decision {
	case policy.DecisionRejected:
		return jsonResult(rejectionResult(snap, verdict)), nil
	case policy.DecisionRequiresApproval:
		return jsonResult(executeResult{
			Success: false,
			Error: fmt.Sprintf("command requires approval; call approve_command_type with session_id %q",
				sessionID),
			RequiresApproval: true,
			CommandType:      verdict.CommandType,
			Categories:       verdict.Categories,
			SessionID:        sessionID,
			RequestID:        verdict.ID,
		}), nil
	}
	return s.runApproved(ctx, snap, verdict, command), nil
}

func (s *Server) handleExecuteReadCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	command, err := commandArg(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap := s.snapshot()

	// Read commands never consult session approvals, so the anonymous
	// session suffices regardless of require_session_id.
	verdict := policy.Decide(command, session.AnonymousID, snap.Rules, s.sessions)
	if verdict.Decision == policy.DecisionRejected {
		return jsonResult(rejectionResult(snap, verdict)), nil
	}
	for _, seg := range verdict.Segments {
		if seg.Category != policy.CategoryRead {
			return jsonResult(executeResult{
				Success:     false,
				Error:       "this tool only supports read commands; use execute_command for other command types",
				CommandType: verdict.CommandType,
				RequestID:   verdict.ID,
			}), nil
		}
	}
	return s.runApproved(ctx, snap, verdict, command), nil
}

// runApproved hands an approved verdict to the executor and shapes the
// outcome. It is the only path that executes anything.
func (s *Server) runApproved(ctx context.Context, snap *config.Snapshot, verdict policy.Verdict, command string) *mcp.CallToolResult {
	res, err := s.exec.Run(ctx, executor.Request{
		Command:    command,
		Timeout:    snap.Security.CommandTimeout,
		MaxOutput:  snap.Output.MaxSize,
		Background: verdict.Background,
	})
	if err != nil {
		return jsonResult(executeResult{
			Success:     false,
			Error:       err.Error(),
			CommandType: verdict.CommandType,
			RequestID:   verdict.ID,
		})
	}
	if res.Background {
		return jsonResult(executeResult{
			Success:     true,
			Output:      fmt.Sprintf("started in background (pid %d)", res.PID),
			CommandType: verdict.CommandType,
			RequestID:   verdict.ID,
			PID:         res.PID,
		})
	}

	out := executeResult{
		Success:     res.ExitCode == 0 && !res.TimedOut,
		Output:      res.Stdout,
		Error:       res.Stderr,
		ExitCode:    res.ExitCode,
		CommandType: verdict.CommandType,
		RequestID:   verdict.ID,
		Truncated:   res.Truncated,
		TimedOut:    res.TimedOut,
	}
	if res.TimedOut {
		out.Error = fmt.Sprintf("command timed out after %s", snap.Security.CommandTimeout)
	}
	return jsonResult(out)
}

func (s *Server) handleApproveCommandType(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	snap := s.snapshot()

	rawType, _ := args["command_type"].(string)
	cat := policy.Category(strings.ToLower(strings.TrimSpace(rawType)))
	if cat == policy.CategoryRead {
		return jsonResult(approveResult{
			Success: true,
			Message: "read commands never require approval",
		}), nil
	}
	if !cat.Approvable() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid command type %q: approvable types are %s and %s",
			rawType, policy.CategoryWrite, policy.CategorySystem)), nil
	}

	sessionID, err := resolveSession(args, snap)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	remember, _ := args["remember"].(bool)
	if !remember {
		// One-shot acknowledgement: nothing is stored.
		return jsonResult(approveResult{
			Success:   true,
			Message:   fmt.Sprintf("command type %q approved for one-time use", cat),
			SessionID: sessionID,
		}), nil
	}

	if err := s.sessions.Approve(sessionID, cat); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.log.Info().Str("session_id", sessionID).Str("command_type", string(cat)).Msg("command type approved")
	return jsonResult(approveResult{
		Success:   true,
		Message:   fmt.Sprintf("command type %q approved for this session", cat),
		SessionID: sessionID,
	}), nil
}

func (s *Server) handleListAvailableCommands(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cmds := s.snapshot().Commands
	return jsonResult(commandLists{
		ReadCommands:    cmds.Read,
		WriteCommands:   cmds.Write,
		SystemCommands:  cmds.System,
		BlockedCommands: cmds.Blocked,
	}), nil
}

func (s *Server) handleGetCommandHelp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.snapshot()

	chaining := map[string]string{
		"pipe":      "supported; every command in the pipeline must be permitted",
		"semicolon": "supported; every command in the sequence must be permitted",
		"ampersand": "supported; the chain runs in the background",
	}
	if !snap.Security.AllowCommandSeparators {
		for k := range chaining {
			chaining[k] = "disabled by configuration"
		}
	}

	permissions := map[string]string{
		"read_commands":   "executed without confirmation",
		"write_commands":  "require approval once per session",
		"system_commands": "require approval once per session",
	}
	if !snap.Security.AllowUserConfirmation {
		permissions["write_commands"] = "executed without confirmation (approval flow disabled)"
		permissions["system_commands"] = "executed without confirmation (approval flow disabled)"
	}

	return jsonResult(commandHelp{
		Capabilities: commandCapabilities{
			SupportedCommands: map[string][]string{
				"read":   snap.Commands.Read,
				"write":  snap.Commands.Write,
				"system": snap.Commands.System,
			},
			BlockedCommands: snap.Commands.Blocked,
			CommandChaining: chaining,
			Restrictions:    "command substitution ($(), backticks), variable expansion and redirection into system paths are rejected by the dangerous pattern list",
		},
		Examples: []usageExample{
			{Command: "ls ~/Downloads", Description: "List files in the downloads directory"},
			{Command: "cat ~/.bashrc", Description: "View a configuration file"},
			{Command: "du -h ~/Downloads/* | grep G", Description: "Find large files"},
			{Command: `find ~/Documents -type f -name "*.pdf"`, Description: "Find PDF files"},
			{Command: "head -n 20 notes.txt", Description: "View the first 20 lines of a file"},
		},
		Permissions: permissions,
	}), nil
}

func (s *Server) handleGetConfiguration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.snapshot()
	return jsonResult(configDump{
		Version: snap.Version,
		Server: configServerDump{
			Name:        snap.Server.Name,
			Version:     snap.Server.Version,
			Description: snap.Server.Description,
			LogLevel:    snap.Server.LogLevel,
		},
		Security: configSecurityDump{
			SessionTimeout:            int(snap.Security.SessionTimeout.Seconds()),
			MaxOutputSize:             snap.Security.MaxOutputSize,
			AllowUserConfirmation:     snap.Security.AllowUserConfirmation,
			RequireSessionID:          snap.Security.RequireSessionID,
			AllowCommandSeparators:    snap.Security.AllowCommandSeparators,
			AllowUnrecognizedCommands: snap.Security.AllowUnrecognizedCommands,
			CommandTimeout:            int(snap.Security.CommandTimeout.Seconds()),
		},
		Commands: snap.Commands,
		Output: configOutputDump{
			MaxSize: snap.Output.MaxSize,
			Format:  snap.Output.Format,
		},
	}), nil
}

func (s *Server) handleUpdateConfiguration(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	rawPatch, ok := args["patch"].(map[string]any)
	if !ok {
		return mcp.NewToolResultError("patch argument must be a configuration object"), nil
	}
	persist, _ := args["persist"].(bool)

	// Round-trip through JSON to get the typed partial document.
	data, err := json.Marshal(rawPatch)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid patch: %v", err)), nil
	}
	patch := &types.Config{}
	if err := json.Unmarshal(data, patch); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid patch: %v", err)), nil
	}

	snap, err := s.store.Update(patch, persist)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("configuration update rejected: %v", err)), nil
	}
	s.sessions.SetTTL(snap.Security.SessionTimeout)
	s.log.Info().Uint64("version", snap.Version).Bool("persist", persist).Msg("configuration updated")

	return jsonResult(updateResult{
		Success: true,
		Version: snap.Version,
		Message: "configuration updated",
	}), nil
}
