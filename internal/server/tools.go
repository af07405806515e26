package server

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("execute_command",
		mcp.WithDescription("Validate and execute a terminal command. Write and system commands need a prior approve_command_type call for the session."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The command to execute"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session ID for approval tracking; omitted calls share the anonymous session"),
		),
	), s.handleExecuteCommand)

	s.mcp.AddTool(mcp.NewTool("execute_read_command",
		mcp.WithDescription("Execute a read-only terminal command (ls, cat, grep, ...). Rejects anything that is not read-only."),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("The read-only command to execute"),
		),
	), s.handleExecuteReadCommand)

	s.mcp.AddTool(mcp.NewTool("approve_command_type",
		mcp.WithDescription("Approve a command type (write or system) for a session."),
		mcp.WithString("command_type",
			mcp.Required(),
			mcp.Description("The command type to approve: write or system"),
		),
		mcp.WithString("session_id",
			mcp.Description("The session the approval applies to"),
		),
		mcp.WithBoolean("remember",
			mcp.Description("Remember the approval for the rest of the session; false acknowledges once without storing it"),
		),
	), s.handleApproveCommandType)

	s.mcp.AddTool(mcp.NewTool("list_available_commands",
		mcp.WithDescription("List the permitted and blocked commands by category."),
	), s.handleListAvailableCommands)

	s.mcp.AddTool(mcp.NewTool("get_command_help",
		mcp.WithDescription("Describe command capabilities: categories, chaining support, restrictions, approval rules and usage examples."),
	), s.handleGetCommandHelp)

	s.mcp.AddTool(mcp.NewTool("get_configuration",
		mcp.WithDescription("Dump the effective configuration."),
	), s.handleGetConfiguration)

	s.mcp.AddTool(mcp.NewTool("update_configuration",
		mcp.WithDescription("Apply a partial configuration document at runtime. Command lists merge by union; scalars are replaced. Invalid patches are rejected without effect."),
		mcp.WithObject("patch",
			mcp.Required(),
			mcp.Description("Partial configuration document (same shape as the config file)"),
		),
		mcp.WithBoolean("persist",
			mcp.Description("Also write the merged configuration to the active config file"),
		),
	), s.handleUpdateConfiguration)
}
