// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🌐 RemoteConfig selects remote mode: items come from one store folder and
// results are published into another.
type RemoteConfig struct {
	Backend        string `json:"backend,omitempty" yaml:"backend,omitempty" hcl:"backend,optional"`
	InputFolderID  string `json:"input_folder_id" yaml:"input_folder_id" hcl:"input_folder_id"`
	OutputFolderID string `json:"output_folder_id" yaml:"output_folder_id" hcl:"output_folder_id"`
}

// 💻 LocalConfig selects local mode: a directory or zip archive in, a
// directory out.
type LocalConfig struct {
	InputPath  string `json:"input_path" yaml:"input_path" hcl:"input_path"`
	OutputPath string `json:"output_path" yaml:"output_path" hcl:"output_path"`
}

// 📊 SheetConfig wires the optional tracking sheet: a CSV worksheet living in
// a remote store folder, keyed by item id.
type SheetConfig struct {
	FolderID     string `json:"folder_id" yaml:"folder_id" hcl:"folder_id"`
	Worksheet    string `json:"worksheet,omitempty" yaml:"worksheet,omitempty" hcl:"worksheet,optional"`
	IDColumn     string `json:"id_column,omitempty" yaml:"id_column,omitempty" hcl:"id_column,optional"`
	ResultColumn string `json:"result_column,omitempty" yaml:"result_column,omitempty" hcl:"result_column,optional"`
}

// ⚙️ ProcessingConfig holds the run parameters.
type ProcessingConfig struct {
	// Operations names the registered operations to run, in order.
	Operations []string `json:"operations,omitempty" yaml:"operations,omitempty" hcl:"operations,optional"`

	// SamplesPerOperation is each operation's per-item repeat target.
	SamplesPerOperation int `json:"samples_per_operation,omitempty" yaml:"samples_per_operation,omitempty" hcl:"samples_per_operation,optional"`

	// Seed drives randomized operation parameters.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty" hcl:"seed,optional"`

	// MaxFiles caps how many unprocessed items one run pulls in. Nil means
	// unbounded.
	MaxFiles *int `json:"max_files,omitempty" yaml:"max_files,omitempty" hcl:"max_files,optional"`

	// Extensions filters candidate items by name, e.g. "*.jpg".
	Extensions []string `json:"extensions,omitempty" yaml:"extensions,omitempty" hcl:"extensions,optional"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Remote     *RemoteConfig     `json:"remote,omitempty" yaml:"remote,omitempty" hcl:"remote,block"`
	Local      *LocalConfig      `json:"local,omitempty" yaml:"local,omitempty" hcl:"local,block"`
	Sheet      *SheetConfig      `json:"sheet,omitempty" yaml:"sheet,omitempty" hcl:"sheet,block"`
	Processing *ProcessingConfig `json:"processing,omitempty" yaml:"processing,omitempty" hcl:"processing,block"`
	TempDir    string            `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty" hcl:"temp_dir,optional"`
}

// 🎯 Load loads the configuration from a file, then applies environment
// overrides (BATCHRC_*), defaults, and validation. Precedence: environment >
// file > defaults; CLI flags are layered on top by the caller.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		logger.Debug().Str("path", path).Msg("loading configuration")
		p := GetParser(path)
		if p == nil {
			return nil, errors.Errorf("no parser found for file: %s", path)
		}
		cfg, err = p.Parse(ctx, data)
		if err != nil {
			return nil, errors.Errorf("parsing config: %w", err)
		}
	case os.IsNotExist(err):
		logger.Debug().Str("path", path).Msg("no config file, using environment and defaults")
	default:
		return nil, errors.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv(ctx)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🌱 applyEnv overlays BATCHRC_* environment variables onto the config.
func (cfg *Config) applyEnv(ctx context.Context) {
	logger := zerolog.Ctx(ctx)

	lookup := func(key string) (string, bool) {
		v, ok := os.LookupEnv("BATCHRC_" + key)
		if ok {
			logger.Debug().Str("variable", "BATCHRC_"+key).Msg("using environment override")
		}
		return v, ok
	}

	if v, ok := lookup("INPUT_FOLDER_ID"); ok {
		cfg.ensureRemote().InputFolderID = v
	}
	if v, ok := lookup("OUTPUT_FOLDER_ID"); ok {
		cfg.ensureRemote().OutputFolderID = v
	}
	if v, ok := lookup("REMOTE_BACKEND"); ok {
		cfg.ensureRemote().Backend = v
	}
	if v, ok := lookup("LOCAL_INPUT_PATH"); ok {
		cfg.ensureLocal().InputPath = v
	}
	if v, ok := lookup("LOCAL_OUTPUT_PATH"); ok {
		cfg.ensureLocal().OutputPath = v
	}
	if v, ok := lookup("TEMP_DIR"); ok {
		cfg.TempDir = v
	}
	if v, ok := lookup("MAX_FILES"); ok {
		if strings.EqualFold(v, "none") {
			cfg.ensureProcessing().MaxFiles = nil
		} else if n, err := strconv.Atoi(v); err == nil {
			cfg.ensureProcessing().MaxFiles = &n
		}
	}
	if v, ok := lookup("OPERATIONS"); ok {
		cfg.ensureProcessing().Operations = splitList(v)
	}
	if v, ok := lookup("SHEET_FOLDER_ID"); ok {
		cfg.ensureSheet().FolderID = v
	}
	if v, ok := lookup("SHEET_WORKSHEET"); ok {
		cfg.ensureSheet().Worksheet = v
	}
	if v, ok := lookup("SHEET_ID_COLUMN"); ok {
		cfg.ensureSheet().IDColumn = v
	}
	if v, ok := lookup("SHEET_RESULT_COLUMN"); ok {
		cfg.ensureSheet().ResultColumn = v
	}
}

func (cfg *Config) ensureRemote() *RemoteConfig {
	if cfg.Remote == nil {
		cfg.Remote = &RemoteConfig{}
	}
	return cfg.Remote
}

func (cfg *Config) ensureLocal() *LocalConfig {
	if cfg.Local == nil {
		cfg.Local = &LocalConfig{}
	}
	return cfg.Local
}

func (cfg *Config) ensureSheet() *SheetConfig {
	if cfg.Sheet == nil {
		cfg.Sheet = &SheetConfig{}
	}
	return cfg.Sheet
}

func (cfg *Config) ensureProcessing() *ProcessingConfig {
	if cfg.Processing == nil {
		cfg.Processing = &ProcessingConfig{}
	}
	return cfg.Processing
}

// 🌿 applyDefaults fills unset fields with built-in defaults.
func (cfg *Config) applyDefaults() {
	if cfg.TempDir == "" {
		cfg.TempDir = "./temp_processing"
	}

	p := cfg.ensureProcessing()
	if p.SamplesPerOperation == 0 {
		p.SamplesPerOperation = 2
	}
	if p.Seed == 0 {
		p.Seed = 42
	}
	if len(p.Extensions) == 0 {
		p.Extensions = []string{"*.jpg", "*.jpeg", "*.png"}
	}

	if cfg.Remote != nil && cfg.Remote.Backend == "" {
		cfg.Remote.Backend = "github"
	}

	if cfg.Sheet != nil {
		if cfg.Sheet.Worksheet == "" {
			cfg.Sheet.Worksheet = "tracking.csv"
		}
		if cfg.Sheet.IDColumn == "" {
			cfg.Sheet.IDColumn = "A"
		}
		if cfg.Sheet.ResultColumn == "" {
			cfg.Sheet.ResultColumn = "E"
		}
	}
}

// 🔍 Validate checks if the configuration is valid
func (cfg *Config) Validate() error {
	if cfg.IsRemoteMode() && cfg.IsLocalMode() {
		return errors.New("cannot use both remote and local modes; set either remote.input_folder_id or local.input_path, not both")
	}
	if !cfg.IsRemoteMode() && !cfg.IsLocalMode() {
		return errors.New("must specify an input source: remote.input_folder_id or local.input_path")
	}

	if cfg.IsRemoteMode() && cfg.Remote.OutputFolderID == "" {
		return errors.New("remote.output_folder_id is required in remote mode")
	}

	if cfg.IsLocalMode() {
		if _, err := os.Stat(cfg.Local.InputPath); err != nil {
			return errors.Errorf("local input path does not exist: %s", cfg.Local.InputPath)
		}
		if cfg.Local.OutputPath == "" {
			return errors.New("local.output_path is required in local mode")
		}
	}

	if p := cfg.Processing; p != nil {
		if p.SamplesPerOperation < 1 {
			return errors.Errorf("samples_per_operation must be positive, got %d", p.SamplesPerOperation)
		}
		if p.MaxFiles != nil && *p.MaxFiles < 1 {
			return errors.Errorf("max_files must be positive, got %d", *p.MaxFiles)
		}
	}

	cfg.TempDir = filepath.Clean(cfg.TempDir)
	return nil
}

// 🌐 IsRemoteMode checks if using the remote store mode.
func (cfg *Config) IsRemoteMode() bool {
	return cfg.Remote != nil && cfg.Remote.InputFolderID != ""
}

// 💻 IsLocalMode checks if using local mode.
func (cfg *Config) IsLocalMode() bool {
	return cfg.Local != nil && cfg.Local.InputPath != ""
}

// 📂 InputDir is where input items are materialized for the run. A local
// input directory is used in place.
func (cfg *Config) InputDir() string {
	if cfg.IsLocalMode() {
		if info, err := os.Stat(cfg.Local.InputPath); err == nil && info.IsDir() {
			return cfg.Local.InputPath
		}
	}
	return filepath.Join(cfg.TempDir, "input")
}

// 📂 OutputDir is where item artifact directories and the state table live.
func (cfg *Config) OutputDir() string {
	if cfg.IsLocalMode() && cfg.Local.OutputPath != "" {
		return cfg.Local.OutputPath
	}
	return filepath.Join(cfg.TempDir, "output")
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	if cfg.IsRemoteMode() {
		return fmt.Sprintf("remote(%s): %s -> %s", cfg.Remote.Backend, cfg.Remote.InputFolderID, cfg.Remote.OutputFolderID)
	}
	if cfg.IsLocalMode() {
		return fmt.Sprintf("local: %s -> %s", cfg.Local.InputPath, cfg.Local.OutputPath)
	}
	return "unconfigured"
}

// splitList splits a comma-separated env value into trimmed parts.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// 🔧 JSONParser implements the Parser interface for JSON files
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

func (p *JSONParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".json")
}

func (p *JSONParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	return &cfg, nil
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

func init() {
	Register(&HCLParser{})
}

func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	var cfg Config
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	return &cfg, nil
}
