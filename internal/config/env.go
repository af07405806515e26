package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cmdgate/cmdgate/pkg/types"
)

// Environment variables recognized as configuration overrides. List
// variables are comma-separated and merge by union into the matching
// category.
const (
	EnvConfigPath                = "CMDGATE_CONFIG"
	envLogLevel                  = "CMDGATE_LOG_LEVEL"
	envSessionTimeout            = "CMDGATE_SESSION_TIMEOUT"
	envMaxOutputSize             = "CMDGATE_MAX_OUTPUT_SIZE"
	envAllowUserConfirmation     = "CMDGATE_ALLOW_USER_CONFIRMATION"
	envRequireSessionID          = "CMDGATE_REQUIRE_SESSION_ID"
	envAllowCommandSeparators    = "CMDGATE_ALLOW_COMMAND_SEPARATORS"
	envAllowUnrecognizedCommands = "CMDGATE_ALLOW_UNRECOGNIZED_COMMANDS"
	envCommandTimeout            = "CMDGATE_COMMAND_TIMEOUT"
	envReadCommands              = "CMDGATE_READ_COMMANDS"
	envWriteCommands             = "CMDGATE_WRITE_COMMANDS"
	envSystemCommands            = "CMDGATE_SYSTEM_COMMANDS"
	envBlockedCommands           = "CMDGATE_BLOCKED_COMMANDS"
	envDangerousPatterns         = "CMDGATE_DANGEROUS_PATTERNS"
)

// overlayFromEnv builds a configuration layer from an environment
// lookup function. Malformed values are configuration errors and
// surface at load time, not at first use.
func overlayFromEnv(get func(string) string) (*types.Config, error) {
	cfg := &types.Config{}

	cfg.Server.LogLevel = get(envLogLevel)

	var err error
	if cfg.Security.SessionTimeout, err = envInt(get, envSessionTimeout); err != nil {
		return nil, err
	}
	if cfg.Security.MaxOutputSize, err = envInt(get, envMaxOutputSize); err != nil {
		return nil, err
	}
	if cfg.Security.CommandTimeout, err = envInt(get, envCommandTimeout); err != nil {
		return nil, err
	}
	if cfg.Security.AllowUserConfirmation, err = envBool(get, envAllowUserConfirmation); err != nil {
		return nil, err
	}
	if cfg.Security.RequireSessionID, err = envBool(get, envRequireSessionID); err != nil {
		return nil, err
	}
	if cfg.Security.AllowCommandSeparators, err = envBool(get, envAllowCommandSeparators); err != nil {
		return nil, err
	}
	if cfg.Security.AllowUnrecognizedCommands, err = envBool(get, envAllowUnrecognizedCommands); err != nil {
		return nil, err
	}

	cfg.Commands.Read = splitList(get(envReadCommands))
	cfg.Commands.Write = splitList(get(envWriteCommands))
	cfg.Commands.System = splitList(get(envSystemCommands))
	cfg.Commands.Blocked = splitList(get(envBlockedCommands))
	cfg.Commands.DangerousPatterns = splitList(get(envDangerousPatterns))

	return cfg, nil
}

func envInt(get func(string) string, key string) (*int, error) {
	raw := get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return types.IntPtr(v), nil
}

func envBool(get func(string) string, key string) (*bool, error) {
	raw := get(key)
	if raw == "" {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return types.BoolPtr(true), nil
	case "false", "0", "no", "off":
		return types.BoolPtr(false), nil
	}
	return nil, fmt.Errorf("%s: invalid boolean %q", key, raw)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
