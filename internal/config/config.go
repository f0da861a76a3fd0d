/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML (or TOML) file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in" toml:"telemetry_opt_in"`
	CrashDir       string `yaml:"crash_dir" toml:"crash_dir"` // where crash reports go; empty = user cache dir
}

type CorpusConfig struct {
	InputDir    string   `yaml:"input_dir" toml:"input_dir"`
	OutputDir   string   `yaml:"output_dir" toml:"output_dir"`
	OutputFile  string   `yaml:"output_file" toml:"output_file"`
	Format      string   `yaml:"format" toml:"format"` // "tsv" | "csv" | "jsonl"
	Columns     []string `yaml:"columns" toml:"columns"`
	Characters  []string `yaml:"characters" toml:"characters"` // empty keeps everyone
	ASCIIOnly   bool     `yaml:"ascii_only" toml:"ascii_only"`
	Concurrency int      `yaml:"concurrency" toml:"concurrency"`
}

// DocumentConfig names one screenplay of a batch. Match is the case-insensitive
// file name fragment used to locate it and defaults to Name.
type DocumentConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Match   string `yaml:"match" toml:"match"`
	Profile string `yaml:"profile" toml:"profile"`
}

type ProfileConfig struct {
	Cue            string            `yaml:"cue" toml:"cue"` // "relaxed" | "strict"
	StartGate      bool              `yaml:"start_gate" toml:"start_gate"`
	WatchNames     []string          `yaml:"watch_names" toml:"watch_names"`
	Aliases        map[string]string `yaml:"aliases" toml:"aliases"`
	FuzzyAliases   bool              `yaml:"fuzzy_aliases" toml:"fuzzy_aliases"`
	FuzzyThreshold float64           `yaml:"fuzzy_threshold" toml:"fuzzy_threshold"`
	NoisePolicy    string            `yaml:"noise_policy" toml:"noise_policy"` // "end_turn" | "skip"
	ExtraNoise     []string          `yaml:"extra_noise" toml:"extra_noise"`
}

type FilterConfig struct {
	Enabled  bool     `yaml:"enabled" toml:"enabled"`
	MinWords int      `yaml:"min_words" toml:"min_words"`
	Terms    []string `yaml:"terms" toml:"terms"`
}

type SamplingConfig struct {
	Target  int    `yaml:"target" toml:"target"`
	Seed    uint64 `yaml:"seed" toml:"seed"`
	GroupBy string `yaml:"group_by" toml:"group_by"` // "document" | "character"
	Output  string `yaml:"output" toml:"output"`
}

type AnnotationConfig struct {
	LabelFixes map[string]string `yaml:"label_fixes" toml:"label_fixes"`
}

type IndexConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"` // empty = <output_dir>/corpus.sqlite
}

type BackendConfig struct {
	DSN       string `yaml:"dsn" toml:"dsn"`
	TimeoutMs int    `yaml:"timeout_ms" toml:"timeout_ms"`
	// Password is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	Source bool   `yaml:"source" toml:"source"`
	File   string `yaml:"file" toml:"file"`
}

type AppConfig struct {
	ConfigVersion int                      `yaml:"config_version" toml:"config_version"`
	General       GeneralConfig            `yaml:"general" toml:"general"`
	Corpus        CorpusConfig             `yaml:"corpus" toml:"corpus"`
	Documents     []DocumentConfig         `yaml:"documents" toml:"documents"`
	Profiles      map[string]ProfileConfig `yaml:"profiles" toml:"profiles"`
	Filter        FilterConfig             `yaml:"filter" toml:"filter"`
	Sampling      SamplingConfig           `yaml:"sampling" toml:"sampling"`
	Annotation    AnnotationConfig         `yaml:"annotation" toml:"annotation"`
	Index         IndexConfig              `yaml:"index" toml:"index"`
	Backend       BackendConfig            `yaml:"backend" toml:"backend"`
	Logging       LoggingConfig            `yaml:"logging" toml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Corpus: CorpusConfig{
			InputDir:    "data/processed",
			OutputDir:   "data/out",
			OutputFile:  "speech_acts.tsv",
			Format:      "tsv",
			Columns:     []string{"character", "speech_id", "text"},
			Concurrency: runtime.NumCPU(),
		},
		Profiles: map[string]ProfileConfig{
			"strict": {
				Cue:        "relaxed",
				StartGate:  true,
				WatchNames: append([]string(nil), defaultWatchNames...),
				ExtraNoise: []string{`HARRY POTTER.*PT\.`},
			},
			"permissive": {
				Cue:     "strict",
				Aliases: copyMap(defaultAliases),
			},
		},
		Filter:     FilterConfig{Enabled: false, MinWords: 3, Terms: append([]string(nil), defaultTerms...)},
		Sampling:   SamplingConfig{Target: 100, Seed: 42, GroupBy: "document", Output: "annotation_dataset.csv"},
		Annotation: AnnotationConfig{LabelFixes: map[string]string{"Infromative": "Informative"}},
		Index:      IndexConfig{Enabled: false},
		Backend:    BackendConfig{DSN: "", TimeoutMs: 15000},
		Logging:    LoggingConfig{Level: "info", Format: "auto", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "SCT_CONFIG"
	EnvInputDir         = "SCT_INPUT_DIR"
	EnvOutputDir        = "SCT_OUTPUT_DIR"
	EnvConcurrency      = "SCT_CONCURRENCY"
	EnvIndexPath        = "SCT_INDEX_PATH"
	EnvBackendDSN       = "SCT_DATABASE_DSN"
	EnvBackendTimeoutMs = "SCT_DATABASE_TIMEOUT_MS"
	EnvTelemetryOptIn   = "SCT_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SCT_LOG_LEVEL"
	EnvLogFormat = "SCT_LOG_FORMAT"
	EnvLogSource = "SCT_LOG_SOURCE"
	EnvLogFile   = "SCT_LOG_FILE"
)

// ConfigPath returns the per-user config file path. SCT_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ScriptTurns")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ScriptTurns")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "scriptturns")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also loads the database password from the keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit file. An empty path falls back to ConfigPath,
// where a missing file is not an error; an explicit path must exist.
func LoadFrom(path string) (AppConfig, string, error) {
	cfg := Defaults()
	explicit := path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return cfg, "", err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg, err := decode(path, data)
		if err != nil {
			return cfg, "", fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read config: %w", err)
	}
	applyEnvOverrides(&cfg)
	// password from keyring
	pw, _ := tokenStore.Get(keyringService, keyringPassword)
	return cfg, pw, nil
}

func decode(path string, data []byte) (AppConfig, error) {
	var c AppConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return c, toml.Unmarshal(data, &c)
	}
	return c, yaml.Unmarshal(data, &c)
}

// Save writes the config to path (ConfigPath when empty) and persists the
// database password into the OS keyring (if non-empty).
func Save(path string, cfg AppConfig, password string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := Encode(path, cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := tokenStore.Set(keyringService, keyringPassword, password); err != nil {
			return err
		}
	}
	return nil
}

// Encode renders cfg as TOML for .toml paths and YAML otherwise.
func Encode(path string, cfg AppConfig) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Marshal(cfg)
	}
	return yaml.Marshal(cfg)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.General.CrashDir) != "" {
		dst.General.CrashDir = strings.TrimSpace(src.General.CrashDir)
	}
	// corpus
	if src.Corpus.InputDir != "" {
		dst.Corpus.InputDir = src.Corpus.InputDir
	}
	if src.Corpus.OutputDir != "" {
		dst.Corpus.OutputDir = src.Corpus.OutputDir
	}
	if src.Corpus.OutputFile != "" {
		dst.Corpus.OutputFile = src.Corpus.OutputFile
	}
	if strings.TrimSpace(src.Corpus.Format) != "" {
		dst.Corpus.Format = strings.ToLower(strings.TrimSpace(src.Corpus.Format))
	}
	if len(src.Corpus.Columns) > 0 {
		dst.Corpus.Columns = src.Corpus.Columns
	}
	if len(src.Corpus.Characters) > 0 {
		dst.Corpus.Characters = src.Corpus.Characters
	}
	dst.Corpus.ASCIIOnly = src.Corpus.ASCIIOnly
	if src.Corpus.Concurrency > 0 {
		dst.Corpus.Concurrency = src.Corpus.Concurrency
	}
	if len(src.Documents) > 0 {
		dst.Documents = src.Documents
	}
	// a profile from the file replaces the built-in of the same name as a whole
	for name, p := range src.Profiles {
		if dst.Profiles == nil {
			dst.Profiles = map[string]ProfileConfig{}
		}
		dst.Profiles[name] = p
	}
	// filter
	dst.Filter.Enabled = src.Filter.Enabled
	if src.Filter.MinWords > 0 {
		dst.Filter.MinWords = src.Filter.MinWords
	}
	if len(src.Filter.Terms) > 0 {
		dst.Filter.Terms = src.Filter.Terms
	}
	// sampling
	if src.Sampling.Target > 0 {
		dst.Sampling.Target = src.Sampling.Target
	}
	if src.Sampling.Seed != 0 {
		dst.Sampling.Seed = src.Sampling.Seed
	}
	if strings.TrimSpace(src.Sampling.GroupBy) != "" {
		dst.Sampling.GroupBy = strings.ToLower(strings.TrimSpace(src.Sampling.GroupBy))
	}
	if src.Sampling.Output != "" {
		dst.Sampling.Output = src.Sampling.Output
	}
	for k, v := range src.Annotation.LabelFixes {
		if dst.Annotation.LabelFixes == nil {
			dst.Annotation.LabelFixes = map[string]string{}
		}
		dst.Annotation.LabelFixes[k] = v
	}
	// index and database
	dst.Index.Enabled = src.Index.Enabled
	if src.Index.Path != "" {
		dst.Index.Path = src.Index.Path
	}
	if src.Backend.DSN != "" {
		dst.Backend.DSN = src.Backend.DSN
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvInputDir)); v != "" {
		cfg.Corpus.InputDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOutputDir)); v != "" {
		cfg.Corpus.OutputDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvConcurrency)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Corpus.Concurrency = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndexPath)); v != "" {
		cfg.Index.Path = v
		cfg.Index.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendDSN)); v != "" {
		cfg.Backend.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

var envKeys = map[string]string{
	"corpus.input_dir":         EnvInputDir,
	"corpus.output_dir":        EnvOutputDir,
	"corpus.concurrency":       EnvConcurrency,
	"index.path":               EnvIndexPath,
	"backend.dsn":              EnvBackendDSN,
	"backend.timeout_ms":       EnvBackendTimeoutMs,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Timeout returns the database timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// IndexPath resolves the sqlite index location.
func (c AppConfig) IndexPath() string {
	if c.Index.Path != "" {
		return c.Index.Path
	}
	return filepath.Join(c.Corpus.OutputDir, "corpus.sqlite")
}

// OutputPath resolves the batch corpus file.
func (c AppConfig) OutputPath() string {
	if filepath.IsAbs(c.Corpus.OutputFile) {
		return c.Corpus.OutputFile
	}
	return filepath.Join(c.Corpus.OutputDir, c.Corpus.OutputFile)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
