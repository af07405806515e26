package config

import "github.com/cmdgate/cmdgate/pkg/types"

// Merge folds the src layer into dst. Command and pattern lists merge
// by union (dst order first, new entries appended) so a higher layer
// can only add commands, never silently drop one an operator relied
// on being absent elsewhere. Scalar settings are replaced when src
// sets them.
func Merge(dst, src *types.Config) {
	if src == nil {
		return
	}

	if src.Server.Name != "" {
		dst.Server.Name = src.Server.Name
	}
	if src.Server.Version != "" {
		dst.Server.Version = src.Server.Version
	}
	if src.Server.Description != "" {
		dst.Server.Description = src.Server.Description
	}
	if src.Server.LogLevel != "" {
		dst.Server.LogLevel = src.Server.LogLevel
	}

	if src.Security.SessionTimeout != nil {
		dst.Security.SessionTimeout = types.IntPtr(*src.Security.SessionTimeout)
	}
	if src.Security.MaxOutputSize != nil {
		dst.Security.MaxOutputSize = types.IntPtr(*src.Security.MaxOutputSize)
	}
	if src.Security.AllowUserConfirmation != nil {
		dst.Security.AllowUserConfirmation = types.BoolPtr(*src.Security.AllowUserConfirmation)
	}
	if src.Security.RequireSessionID != nil {
		dst.Security.RequireSessionID = types.BoolPtr(*src.Security.RequireSessionID)
	}
	if src.Security.AllowCommandSeparators != nil {
		dst.Security.AllowCommandSeparators = types.BoolPtr(*src.Security.AllowCommandSeparators)
	}
	if src.Security.AllowUnrecognizedCommands != nil {
		dst.Security.AllowUnrecognizedCommands = types.BoolPtr(*src.Security.AllowUnrecognizedCommands)
	}
	if src.Security.CommandTimeout != nil {
		dst.Security.CommandTimeout = types.IntPtr(*src.Security.CommandTimeout)
	}

	dst.Commands.Read = unionStrings(dst.Commands.Read, src.Commands.Read)
	dst.Commands.Write = unionStrings(dst.Commands.Write, src.Commands.Write)
	dst.Commands.System = unionStrings(dst.Commands.System, src.Commands.System)
	dst.Commands.Blocked = unionStrings(dst.Commands.Blocked, src.Commands.Blocked)
	dst.Commands.DangerousPatterns = unionStrings(dst.Commands.DangerousPatterns, src.Commands.DangerousPatterns)

	if src.Output.MaxSize != nil {
		dst.Output.MaxSize = types.IntPtr(*src.Output.MaxSize)
	}
	if src.Output.Format != "" {
		dst.Output.Format = src.Output.Format
	}
}

// unionStrings appends entries of extra missing from base, preserving
// order and dropping duplicates.
func unionStrings(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(extra))
	for _, v := range base {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range extra {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// clone deep-copies a configuration layer.
func clone(c *types.Config) *types.Config {
	if c == nil {
		return nil
	}
	out := &types.Config{}
	Merge(out, c)
	// Merge unions onto empty slices, which already copies the lists;
	// scalar pointers were re-allocated by Merge.
	return out
}
