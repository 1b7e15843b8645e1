// Package config resolves tradingflow settings from command-line flags,
// environment variables and a settings file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Setting names. They are the flag keys accepted by Resolve, the file keys,
// and (upper-cased, prefixed with TRADINGFLOW_) the environment variables.
const (
	KeyQuickModel      = "quick_model"
	KeyDeepModel       = "deep_model"
	KeyMaxDebateRounds = "max_debate_rounds"
	KeyMaxRiskRounds   = "max_risk_discuss_rounds"
	KeyAnalysts        = "selected_analysts"
	KeyOTLPEndpoint    = "otlp_endpoint"
)

// EnvPrefix prefixes every environment variable read by Resolve.
const EnvPrefix = "TRADINGFLOW_"

// EnvConfig overrides the settings file location.
const EnvConfig = EnvPrefix + "CONFIG"

// Settings are the knobs shared by the CLI commands.
type Settings struct {
	QuickModel      string   `json:"quick_model,omitempty" yaml:"quick_model,omitempty"`
	DeepModel       string   `json:"deep_model,omitempty" yaml:"deep_model,omitempty"`
	MaxDebateRounds int      `json:"max_debate_rounds,omitempty" yaml:"max_debate_rounds,omitempty"`
	MaxRiskRounds   int      `json:"max_risk_discuss_rounds,omitempty" yaml:"max_risk_discuss_rounds,omitempty"`
	Analysts        []string `json:"selected_analysts,omitempty" yaml:"selected_analysts,omitempty"`
	OTLPEndpoint    string   `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Settings {
	return Settings{
		QuickModel:      "gpt-4o-mini",
		DeepModel:       "o4-mini",
		MaxDebateRounds: 1,
		MaxRiskRounds:   1,
		Analysts:        []string{"market", "social", "news", "fundamentals"},
	}
}

// Resolve builds Settings. Priority: flags > env vars > settings file >
// defaults. flags maps setting names to raw values; empty values are
// ignored so unset CLI flags can be passed straight through.
func Resolve(flags map[string]string) (Settings, error) {
	s := Defaults()

	// 1. Settings file (lowest priority)
	file, err := loadFile()
	if err != nil {
		return Settings{}, err
	}
	if file != nil {
		s.merge(*file)
	}

	// 2. Environment variables
	// Pattern: TRADINGFLOW_{KEY}, e.g. TRADINGFLOW_QUICK_MODEL
	for _, key := range Keys() {
		val, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(key))
		if !ok || val == "" {
			continue
		}
		if err := s.set(key, val); err != nil {
			return Settings{}, fmt.Errorf("environment %s%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}
	}

	// 3. Flags (highest priority)
	for key, val := range flags {
		if val == "" {
			continue
		}
		if err := s.set(key, val); err != nil {
			return Settings{}, fmt.Errorf("flag %s: %w", key, err)
		}
	}

	return s, nil
}

// Keys lists the setting names.
func Keys() []string {
	return []string{KeyQuickModel, KeyDeepModel, KeyMaxDebateRounds, KeyMaxRiskRounds, KeyAnalysts, KeyOTLPEndpoint}
}

// merge copies the set fields of o into s.
func (s *Settings) merge(o Settings) {
	if o.QuickModel != "" {
		s.QuickModel = o.QuickModel
	}
	if o.DeepModel != "" {
		s.DeepModel = o.DeepModel
	}
	if o.MaxDebateRounds > 0 {
		s.MaxDebateRounds = o.MaxDebateRounds
	}
	if o.MaxRiskRounds > 0 {
		s.MaxRiskRounds = o.MaxRiskRounds
	}
	if len(o.Analysts) > 0 {
		s.Analysts = append([]string(nil), o.Analysts...)
	}
	if o.OTLPEndpoint != "" {
		s.OTLPEndpoint = o.OTLPEndpoint
	}
}

func (s *Settings) set(key, val string) error {
	switch key {
	case KeyQuickModel:
		s.QuickModel = val
	case KeyDeepModel:
		s.DeepModel = val
	case KeyMaxDebateRounds:
		n, err := rounds(val)
		if err != nil {
			return err
		}
		s.MaxDebateRounds = n
	case KeyMaxRiskRounds:
		n, err := rounds(val)
		if err != nil {
			return err
		}
		s.MaxRiskRounds = n
	case KeyAnalysts:
		var list []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		s.Analysts = list
	case KeyOTLPEndpoint:
		s.OTLPEndpoint = val
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

func rounds(val string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("invalid round count %q: %w", val, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("round count must be at least 1, got %d", n)
	}
	return n, nil
}

// FilePath returns the settings file Resolve reads: $TRADINGFLOW_CONFIG, or
// ~/.tradingflow/config.yaml, or ~/.tradingflow/config.json if only that
// one exists. It returns "" when no home directory can be determined.
func FilePath() string {
	if path := os.Getenv(EnvConfig); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".tradingflow")
	yamlPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	jsonPath := filepath.Join(dir, "config.json")
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}
	return yamlPath
}

// loadFile reads the settings file. Returns nil, nil if it doesn't exist.
func loadFile() (*Settings, error) {
	path := FilePath()
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path from well-known config location
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	default:
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &s, nil
}
