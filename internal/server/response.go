package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cmdgate/cmdgate/internal/config"
	"github.com/cmdgate/cmdgate/internal/policy"
	"github.com/cmdgate/cmdgate/pkg/types"
)

// executeResult is the tool result for the two execution tools. The
// zero value of every optional field marshals away.
type executeResult struct {
	Success          bool              `json:"success"`
	Output           string            `json:"output"`
	Error            string            `json:"error,omitempty"`
	ExitCode         int               `json:"exit_code"`
	CommandType      policy.Category   `json:"command_type,omitempty"`
	RequiresApproval bool              `json:"requires_approval,omitempty"`
	Categories       []policy.Category `json:"categories,omitempty"`
	SessionID        string            `json:"session_id,omitempty"`
	Code             policy.ReasonCode `json:"code,omitempty"`
	Pattern          string            `json:"pattern,omitempty"`
	SegmentIndex     *int              `json:"segment_index,omitempty"`
	RequestID        string            `json:"request_id,omitempty"`
	Truncated        bool              `json:"truncated,omitempty"`
	TimedOut         bool              `json:"timed_out,omitempty"`
	PID              int               `json:"pid,omitempty"`
}

type approveResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type commandLists struct {
	ReadCommands    []string `json:"read_commands"`
	WriteCommands   []string `json:"write_commands"`
	SystemCommands  []string `json:"system_commands"`
	BlockedCommands []string `json:"blocked_commands"`
}

type usageExample struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

type commandCapabilities struct {
	SupportedCommands map[string][]string `json:"supported_commands"`
	BlockedCommands   []string            `json:"blocked_commands"`
	CommandChaining   map[string]string   `json:"command_chaining"`
	Restrictions      string              `json:"command_restrictions"`
}

type commandHelp struct {
	Capabilities commandCapabilities `json:"capabilities"`
	Examples     []usageExample      `json:"examples"`
	Permissions  map[string]string   `json:"permissions"`
}

type configDump struct {
	Version  uint64               `json:"version"`
	Server   configServerDump     `json:"server"`
	Security configSecurityDump   `json:"security"`
	Commands types.CommandsConfig `json:"commands"`
	Output   configOutputDump     `json:"output"`
}

type configServerDump struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	LogLevel    string `json:"log_level"`
}

type configSecurityDump struct {
	SessionTimeout            int  `json:"session_timeout"`
	MaxOutputSize             int  `json:"max_output_size"`
	AllowUserConfirmation     bool `json:"allow_user_confirmation"`
	RequireSessionID          bool `json:"require_session_id"`
	AllowCommandSeparators    bool `json:"allow_command_separators"`
	AllowUnrecognizedCommands bool `json:"allow_unrecognized_commands"`
	CommandTimeout            int  `json:"command_timeout"`
}

type configOutputDump struct {
	MaxSize int    `json:"max_size"`
	Format  string `json:"format"`
}

type updateResult struct {
	Success bool   `json:"success"`
	Version uint64 `json:"version"`
	Message string `json:"message"`
}

// jsonResult marshals any payload into a text tool result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// rejectionResult maps a rejected verdict onto the execute result
// shape, carrying the reason, code, pattern and offending segment.
func rejectionResult(snap *config.Snapshot, v policy.Verdict) executeResult {
	reason := v.Reason
	if v.Code == policy.ReasonCommandNotPermitted {
		reason = fmt.Sprintf("%s (supported commands: %s)", reason, strings.Join(snap.Rules.Supported(), ", "))
	}
	return executeResult{
		Success:      false,
		Error:        reason,
		Code:         v.Code,
		Pattern:      v.Pattern,
		SegmentIndex: v.SegmentIndex,
		RequestID:    v.ID,
	}
}
