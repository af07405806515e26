// Package types holds the configuration document types shared by the
// loader, the policy engine, and the CLI.
package types

// Config is one configuration layer. Layers are merged ascending by
// precedence: command lists are merged by union, scalar settings are
// replaced by the highest layer that sets them. Optional scalars are
// pointers so an unset field can be told apart from an explicit zero.
type Config struct {
	Server   ServerConfig   `json:"server,omitempty" yaml:"server,omitempty"`
	Security SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`
	Commands CommandsConfig `json:"commands,omitempty" yaml:"commands,omitempty"`
	Output   OutputConfig   `json:"output,omitempty" yaml:"output,omitempty"`
}

// ServerConfig holds server metadata and log setup.
type ServerConfig struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	LogLevel    string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// SecurityConfig holds the security toggles and limits.
type SecurityConfig struct {
	// SessionTimeout is the session time-to-live in seconds.
	SessionTimeout *int `json:"session_timeout,omitempty" yaml:"session_timeout,omitempty"`
	// MaxOutputSize caps captured command output in bytes.
	MaxOutputSize *int `json:"max_output_size,omitempty" yaml:"max_output_size,omitempty"`
	// AllowUserConfirmation enables the session approval flow for
	// write and system commands. When false, classified commands run
	// without per-session confirmation.
	AllowUserConfirmation *bool `json:"allow_user_confirmation,omitempty" yaml:"allow_user_confirmation,omitempty"`
	// RequireSessionID rejects calls that carry no session id. When
	// false, session-less callers share one anonymous session.
	RequireSessionID *bool `json:"require_session_id,omitempty" yaml:"require_session_id,omitempty"`
	// AllowCommandSeparators enables splitting on |, ; and &.
	AllowCommandSeparators *bool `json:"allow_command_separators,omitempty" yaml:"allow_command_separators,omitempty"`
	// AllowUnrecognizedCommands treats commands absent from every list
	// as system commands (still requiring approval) instead of
	// rejecting them outright.
	AllowUnrecognizedCommands *bool `json:"allow_unrecognized_commands,omitempty" yaml:"allow_unrecognized_commands,omitempty"`
	// CommandTimeout bounds command execution in seconds.
	CommandTimeout *int `json:"command_timeout,omitempty" yaml:"command_timeout,omitempty"`
}

// CommandsConfig holds the category lists and the dangerous patterns.
// Entries are command basenames, matched exactly and case-sensitively.
type CommandsConfig struct {
	Read    []string `json:"read,omitempty" yaml:"read,omitempty"`
	Write   []string `json:"write,omitempty" yaml:"write,omitempty"`
	System  []string `json:"system,omitempty" yaml:"system,omitempty"`
	Blocked []string `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	// DangerousPatterns are unanchored regular expressions evaluated
	// against the raw command string and each segment, in order.
	DangerousPatterns []string `json:"dangerous_patterns,omitempty" yaml:"dangerous_patterns,omitempty"`
}

// OutputConfig controls how captured output is returned.
type OutputConfig struct {
	// MaxSize caps returned output in bytes. Zero inherits
	// security.max_output_size.
	MaxSize *int `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	// Format is "text" or "json".
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
