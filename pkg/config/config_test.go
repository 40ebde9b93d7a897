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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:     "valid_remote_yaml",
			filename: ".batchrc.yaml",
			config: `
remote:
  input_folder_id: owner/repo@main:input
  output_folder_id: owner/repo@main:output
processing:
  operations:
    - hflip
    - blur
  samples_per_operation: 3
  seed: 7
  max_files: 10
  extensions:
    - "*.png"
sheet:
  folder_id: owner/repo@main:sheet
temp_dir: /tmp/batchrc-test
`,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsRemoteMode(), "should be remote mode")
				assert.Equal(t, "github", cfg.Remote.Backend, "backend should default to github")
				assert.Equal(t, "owner/repo@main:input", cfg.Remote.InputFolderID, "input folder should match")
				assert.Equal(t, []string{"hflip", "blur"}, cfg.Processing.Operations, "operations should match")
				assert.Equal(t, 3, cfg.Processing.SamplesPerOperation, "samples should match")
				assert.Equal(t, int64(7), cfg.Processing.Seed, "seed should match")
				require.NotNil(t, cfg.Processing.MaxFiles, "max_files should be set")
				assert.Equal(t, 10, *cfg.Processing.MaxFiles, "max_files should match")
				assert.Equal(t, []string{"*.png"}, cfg.Processing.Extensions, "extensions should match")
				assert.Equal(t, "tracking.csv", cfg.Sheet.Worksheet, "worksheet should default")
				assert.Equal(t, "A", cfg.Sheet.IDColumn, "id column should default")
				assert.Equal(t, "E", cfg.Sheet.ResultColumn, "result column should default")
			},
		},
		{
			name:     "valid_local_json",
			filename: ".batchrc.json",
			config:   `{"local": {"input_path": "INPUT_DIR", "output_path": "OUTPUT_DIR"}}`,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsLocalMode(), "should be local mode")
				assert.False(t, cfg.IsRemoteMode(), "should not be remote mode")
				assert.Equal(t, 2, cfg.Processing.SamplesPerOperation, "samples should default to 2")
				assert.Equal(t, int64(42), cfg.Processing.Seed, "seed should default to 42")
				assert.Nil(t, cfg.Processing.MaxFiles, "max_files should default to unbounded")
				assert.Equal(t, []string{"*.jpg", "*.jpeg", "*.png"}, cfg.Processing.Extensions, "extensions should default to images")
			},
		},
		{
			name:     "valid_hcl",
			filename: ".batchrc.hcl",
			config: `
temp_dir = "/tmp/batchrc-test"

remote {
  input_folder_id  = "owner/repo@main:input"
  output_folder_id = "owner/repo@main:output"
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsRemoteMode(), "should be remote mode")
				assert.Equal(t, "/tmp/batchrc-test", cfg.TempDir, "temp dir should match")
			},
		},
		{
			name:     "both_modes",
			filename: ".batchrc.yaml",
			config: `
remote:
  input_folder_id: owner/repo@main:input
  output_folder_id: owner/repo@main:output
local:
  input_path: INPUT_DIR
  output_path: OUTPUT_DIR
`,
			wantErr:     true,
			errContains: "cannot use both",
		},
		{
			name:        "no_mode",
			filename:    ".batchrc.yaml",
			config:      `temp_dir: /tmp/batchrc-test`,
			wantErr:     true,
			errContains: "must specify an input source",
		},
		{
			name:     "remote_without_output",
			filename: ".batchrc.yaml",
			config: `
remote:
  input_folder_id: owner/repo@main:input
`,
			wantErr:     true,
			errContains: "output_folder_id is required",
		},
		{
			name:     "local_input_missing",
			filename: ".batchrc.yaml",
			config: `
local:
  input_path: /does/not/exist
  output_path: OUTPUT_DIR
`,
			wantErr:     true,
			errContains: "does not exist",
		},
		{
			name:     "zero_samples_rejected",
			filename: ".batchrc.yaml",
			config: `
remote:
  input_folder_id: owner/repo@main:input
  output_folder_id: owner/repo@main:output
processing:
  samples_per_operation: -1
`,
			wantErr:     true,
			errContains: "samples_per_operation must be positive",
		},
		{
			name:     "unknown_yaml_field",
			filename: ".batchrc.yaml",
			config: `
remote:
  input_folder_id: owner/repo@main:input
  output_folder_id: owner/repo@main:output
unexpected_field: true
`,
			wantErr:     true,
			errContains: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)

			inputDir := t.TempDir()
			outputDir := t.TempDir()
			cfgText := strings.ReplaceAll(tt.config, "INPUT_DIR", inputDir)
			cfgText = strings.ReplaceAll(cfgText, "OUTPUT_DIR", outputDir)

			path := writeConfig(t, tt.filename, cfgText)
			cfg, err := Load(ctx, path)

			if tt.wantErr {
				require.Error(t, err, "load should fail")
				assert.Contains(t, err.Error(), tt.errContains, "error should explain the problem")
				return
			}

			require.NoError(t, err, "load should succeed")
			require.NotNil(t, cfg)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoad_MissingFileUsesEnvironment(t *testing.T) {
	ctx := testContext(t)

	inputDir := t.TempDir()
	t.Setenv("BATCHRC_LOCAL_INPUT_PATH", inputDir)
	t.Setenv("BATCHRC_LOCAL_OUTPUT_PATH", t.TempDir())

	cfg, err := Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file should fall back to environment")
	assert.True(t, cfg.IsLocalMode())
	assert.Equal(t, inputDir, cfg.Local.InputPath)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	ctx := testContext(t)

	path := writeConfig(t, ".batchrc.yaml", `
remote:
  input_folder_id: owner/repo@main:file-input
  output_folder_id: owner/repo@main:output
processing:
  max_files: 5
`)

	t.Setenv("BATCHRC_INPUT_FOLDER_ID", "owner/repo@main:env-input")
	t.Setenv("BATCHRC_MAX_FILES", "none")
	t.Setenv("BATCHRC_OPERATIONS", "hflip, blur")

	cfg, err := Load(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, "owner/repo@main:env-input", cfg.Remote.InputFolderID, "environment should win over the file")
	assert.Nil(t, cfg.Processing.MaxFiles, "MAX_FILES=none should clear the cap")
	assert.Equal(t, []string{"hflip", "blur"}, cfg.Processing.Operations, "comma list should be split and trimmed")
}

func TestConfig_Dirs(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	local := &Config{
		Local:   &LocalConfig{InputPath: inputDir, OutputPath: outputDir},
		TempDir: "/tmp/batchrc-test",
	}
	assert.Equal(t, inputDir, local.InputDir(), "local directory input should be used in place")
	assert.Equal(t, outputDir, local.OutputDir(), "local output should be used directly")

	remoteCfg := &Config{
		Remote:  &RemoteConfig{InputFolderID: "in", OutputFolderID: "out"},
		TempDir: "/tmp/batchrc-test",
	}
	assert.Equal(t, filepath.Join("/tmp/batchrc-test", "input"), remoteCfg.InputDir(), "remote items materialize under temp")
	assert.Equal(t, filepath.Join("/tmp/batchrc-test", "output"), remoteCfg.OutputDir(), "remote output stages under temp")
}

func TestGetParser(t *testing.T) {
	assert.IsType(t, &YAMLParser{}, GetParser("config.yaml"), "yaml should resolve")
	assert.IsType(t, &YAMLParser{}, GetParser("config.yml"), "yml should resolve")
	assert.IsType(t, &JSONParser{}, GetParser("config.json"), "json should resolve")
	assert.IsType(t, &HCLParser{}, GetParser("config.hcl"), "hcl should resolve")
	assert.Nil(t, GetParser("config.toml"), "unknown extension should not resolve")
}
