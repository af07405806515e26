// Package config loads, merges and publishes the layered server
// configuration. Layers ascend: built-in defaults, the file named by
// CMDGATE_CONFIG, the file named by --config, a .env file, process
// environment variables, and runtime updates. Command lists merge by
// union across layers; scalars are replaced by the highest layer that
// sets them.
//
// Readers always observe one immutable snapshot; writers rebuild and
// swap a new snapshot atomically, so in-flight decisions never see a
// half-applied update.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/cmdgate/cmdgate/internal/policy"
	"github.com/cmdgate/cmdgate/pkg/types"
)

// ServerSettings is the resolved server group.
type ServerSettings struct {
	Name        string
	Version     string
	Description string
	LogLevel    string
}

// SecuritySettings is the resolved security group.
type SecuritySettings struct {
	SessionTimeout            time.Duration
	MaxOutputSize             int
	AllowUserConfirmation     bool
	RequireSessionID          bool
	AllowCommandSeparators    bool
	AllowUnrecognizedCommands bool
	CommandTimeout            time.Duration
}

// OutputSettings is the resolved output group. MaxSize is already
// resolved against security.max_output_size.
type OutputSettings struct {
	MaxSize int
	Format  string
}

// Snapshot is one immutable, validated view of the merged
// configuration, including the compiled policy ruleset.
type Snapshot struct {
	Version  uint64
	Server   ServerSettings
	Security SecuritySettings
	Commands types.CommandsConfig
	Output   OutputSettings
	Rules    *policy.Ruleset

	merged *types.Config
}

// Document returns a copy of the merged configuration document, for
// dumps and persistence.
func (s *Snapshot) Document() *types.Config {
	return clone(s.merged)
}

// Options configure loading.
type Options struct {
	// ConfigPath is the file named by the --config flag.
	ConfigPath string
	// DotenvPath is the .env file; defaults to ".env". A missing
	// dotenv file is not an error.
	DotenvPath string
	// Getenv is the environment lookup, replaceable in tests.
	Getenv func(string) string
}

// Store owns the configuration layers and publishes snapshots.
type Store struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]

	opts    Options
	version uint64

	// Parsed overlays, ascending precedence. runtime accumulates
	// explicit updates and survives file reloads.
	fileEnv  *types.Config
	fileFlag *types.Config
	dotenv   *types.Config
	env      *types.Config
	runtime  *types.Config
}

// Load reads every layer, validates the merged result and returns a
// store serving its first snapshot.
func Load(opts Options) (*Store, error) {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.DotenvPath == "" {
		opts.DotenvPath = ".env"
	}
	s := &Store{opts: opts}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// Snapshot returns the current configuration snapshot. The returned
// value is immutable and safe to use for the whole decision.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// WatchPath returns the config file backing the highest file layer,
// or "" when no file layer is configured.
func (s *Store) WatchPath() string {
	if s.opts.ConfigPath != "" {
		return s.opts.ConfigPath
	}
	return s.opts.Getenv(EnvConfigPath)
}

// Reload re-reads the file, dotenv and environment layers and swaps
// in a new snapshot. Runtime updates are preserved on top. On error
// the live snapshot keeps serving.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked()
}

func (s *Store) reloadLocked() error {
	var fileEnv, fileFlag, dotenv, env *types.Config
	var err error

	if path := s.opts.Getenv(EnvConfigPath); path != "" {
		if fileEnv, err = loadFile(path); err != nil {
			return err
		}
	}
	if s.opts.ConfigPath != "" {
		if fileFlag, err = loadFile(s.opts.ConfigPath); err != nil {
			return err
		}
	}
	if vals, readErr := godotenv.Read(s.opts.DotenvPath); readErr == nil {
		if dotenv, err = overlayFromEnv(func(k string) string { return vals[k] }); err != nil {
			return fmt.Errorf("%s: %w", s.opts.DotenvPath, err)
		}
	} else if !os.IsNotExist(readErr) {
		return fmt.Errorf("read %s: %w", s.opts.DotenvPath, readErr)
	}
	if env, err = overlayFromEnv(s.opts.Getenv); err != nil {
		return err
	}

	snap, err := buildSnapshot(s.version+1, Default(), fileEnv, fileFlag, dotenv, env, s.runtime)
	if err != nil {
		return err
	}

	s.fileEnv, s.fileFlag, s.dotenv, s.env = fileEnv, fileFlag, dotenv, env
	s.version++
	s.snap.Store(snap)
	return nil
}

// Update merges a partial configuration document into the runtime
// layer and swaps in a new snapshot. A patch that fails validation is
// rejected atomically: the runtime layer and the live snapshot are
// left untouched. With persist set, the merged document is written to
// the active config file.
func (s *Store) Update(patch *types.Config, persist bool) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trial := clone(s.runtime)
	if trial == nil {
		trial = &types.Config{}
	}
	Merge(trial, patch)

	snap, err := buildSnapshot(s.version+1, Default(), s.fileEnv, s.fileFlag, s.dotenv, s.env, trial)
	if err != nil {
		return nil, err
	}

	if persist {
		path := s.WatchPath()
		if path == "" {
			return nil, fmt.Errorf("no configuration file to persist to")
		}
		if err := saveFile(snap.merged, path); err != nil {
			return nil, err
		}
	}

	s.runtime = trial
	s.version++
	s.snap.Store(snap)
	return snap, nil
}

// buildSnapshot merges the layers in order, resolves scalars and
// compiles the policy ruleset. Any validation failure aborts the
// whole build.
func buildSnapshot(version uint64, layers ...*types.Config) (*Snapshot, error) {
	merged := &types.Config{}
	for _, layer := range layers {
		Merge(merged, layer)
	}

	sec := merged.Security
	security := SecuritySettings{
		SessionTimeout:            time.Duration(intOr(sec.SessionTimeout, 0)) * time.Second,
		MaxOutputSize:             intOr(sec.MaxOutputSize, 0),
		AllowUserConfirmation:     boolOr(sec.AllowUserConfirmation, true),
		RequireSessionID:          boolOr(sec.RequireSessionID, false),
		AllowCommandSeparators:    boolOr(sec.AllowCommandSeparators, true),
		AllowUnrecognizedCommands: boolOr(sec.AllowUnrecognizedCommands, false),
		CommandTimeout:            time.Duration(intOr(sec.CommandTimeout, 0)) * time.Second,
	}
	if security.SessionTimeout <= 0 {
		return nil, fmt.Errorf("security.session_timeout must be positive")
	}
	if security.MaxOutputSize <= 0 {
		return nil, fmt.Errorf("security.max_output_size must be positive")
	}
	if security.CommandTimeout <= 0 {
		return nil, fmt.Errorf("security.command_timeout must be positive")
	}

	output := OutputSettings{
		MaxSize: intOr(merged.Output.MaxSize, 0),
		Format:  merged.Output.Format,
	}
	if output.MaxSize < 0 {
		return nil, fmt.Errorf("output.max_size must not be negative")
	}
	if output.MaxSize == 0 {
		output.MaxSize = security.MaxOutputSize
	}
	switch output.Format {
	case "", "text":
		output.Format = "text"
	case "json":
	default:
		return nil, fmt.Errorf("output.format must be \"text\" or \"json\", got %q", output.Format)
	}

	separators := policy.NoSeparators()
	if security.AllowCommandSeparators {
		separators = policy.AllSeparators()
	}
	rules, err := policy.Compile(merged.Commands, policy.Options{
		Separators:            separators,
		AllowUnrecognized:     security.AllowUnrecognizedCommands,
		AllowUserConfirmation: security.AllowUserConfirmation,
	})
	if err != nil {
		return nil, fmt.Errorf("commands: %w", err)
	}

	return &Snapshot{
		Version: version,
		Server: ServerSettings{
			Name:        merged.Server.Name,
			Version:     merged.Server.Version,
			Description: merged.Server.Description,
			LogLevel:    merged.Server.LogLevel,
		},
		Security: security,
		Commands: merged.Commands,
		Output:   output,
		Rules:    rules,
		merged:   merged,
	}, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// loadFile parses one configuration file; YAML by extension, JSONC
// otherwise. A file explicitly named must exist.
func loadFile(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := &types.Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// saveFile writes the document in the format matching the extension.
func saveFile(cfg *types.Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
