package config

import "github.com/cmdgate/cmdgate/pkg/types"

// Default returns the built-in configuration layer. Every scalar is
// set here, so the merged document never has missing values.
func Default() *types.Config {
	return &types.Config{
		Server: types.ServerConfig{
			Name:        "cmdgate",
			Version:     "0.1.0",
			Description: "MCP server for safely executing command-line tools",
			LogLevel:    "INFO",
		},
		Security: types.SecurityConfig{
			SessionTimeout:            types.IntPtr(3600),
			MaxOutputSize:             types.IntPtr(100 * 1024),
			AllowUserConfirmation:     types.BoolPtr(true),
			RequireSessionID:          types.BoolPtr(false),
			AllowCommandSeparators:    types.BoolPtr(true),
			AllowUnrecognizedCommands: types.BoolPtr(false),
			CommandTimeout:            types.IntPtr(60),
		},
		Commands: types.CommandsConfig{
			Read: []string{
				"ls", "pwd", "cat", "less", "head", "tail", "grep",
				"find", "which", "du", "df", "file", "uname", "hostname",
				"uptime", "date", "whoami", "id", "env", "history", "man",
				"info", "help", "sort",
			},
			Write: []string{
				"cp", "mv", "rm", "mkdir", "rmdir", "touch", "chmod", "chown",
				"ln", "echo", "printf",
			},
			System: []string{
				"ps", "top", "htop", "who", "netstat", "ifconfig", "ping",
				"ssh", "scp", "tar", "gzip", "zip", "unzip", "curl", "wget",
			},
			Blocked: []string{
				"sudo", "su", "bash", "sh", "zsh", "ksh", "csh", "fish",
				"screen", "tmux", "nc", "telnet", "nmap",
				"dd", "mkfs", "mount", "umount", "shutdown", "reboot",
				"passwd", "chpasswd", "useradd", "userdel", "groupadd", "groupdel",
				"eval", "exec", "source", ".",
			},
			DangerousPatterns: []string{
				`rm\s+-rf\s+/`,              // delete root
				`>\s+/dev/(sd|hd|nvme|xvd)`, // write to block devices
				`>\s+/dev/null`,
				`>\s+/etc/`, // write into system paths
				`>\s+/boot/`,
				`>\s+/bin/`,
				`>\s+/sbin/`,
				`>\s+/usr/bin/`,
				`>\s+/usr/sbin/`,
				`>\s+/usr/local/bin/`,
				`2>&1`,      // stderr redirection
				`\$\(`,      // command substitution
				`\$\{\w+\}`, // variable substitution
				"`",         // backtick substitution
			},
		},
		Output: types.OutputConfig{
			MaxSize: types.IntPtr(0), // inherit security.max_output_size
			Format:  "text",
		},
	}
}
