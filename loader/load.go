package loader

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/petal-labs/tradingflow/compiler"
	"github.com/petal-labs/tradingflow/workflow"
)

// Load reads a configuration file. The format follows the extension.
func Load(path string) (*workflow.Configuration, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return Parse(data, DetectFormat(path))
}

// LoadAndValidate loads a configuration and validates it. A configuration
// with error diagnostics is returned together with a *DiagnosticError so
// callers can still show it.
func LoadAndValidate(path string, opts ...compiler.ValidateOption) (*workflow.Configuration, []workflow.Diagnostic, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	diags := compiler.Validate(cfg, opts...)
	if workflow.HasErrors(diags) {
		return cfg, diags, &DiagnosticError{Diagnostics: diags}
	}
	return cfg, diags, nil
}

// Parse decodes a configuration from data.
func Parse(data []byte, format Format) (*workflow.Configuration, error) {
	if err := DetectConfiguration(data, format); err != nil {
		return nil, err
	}

	jsonData, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}

	var cfg workflow.Configuration
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return &cfg, nil
}

// Marshal encodes cfg. JSON output is indented.
func Marshal(cfg *workflow.Configuration, format Format) ([]byte, error) {
	if cfg == nil {
		return nil, workflow.ErrNilConfiguration
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	if format == FormatYAML {
		return jsonToYAML(data)
	}
	return append(data, '\n'), nil
}

// Save writes cfg to path in the format its extension selects.
func Save(path string, cfg *workflow.Configuration) error {
	data, err := Marshal(cfg, DetectFormat(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { // #nosec G306 -- configurations are not secret
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	return nil
}

// toJSON converts data to JSON bytes, handling YAML conversion.
func toJSON(data []byte, format Format) ([]byte, error) {
	if format == FormatYAML {
		return yamlToJSON(data)
	}
	return data, nil
}

// DiagnosticError wraps validation diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []workflow.Diagnostic
}

func (e *DiagnosticError) Error() string {
	errs := workflow.Errors(e.Diagnostics)
	if len(errs) == 1 {
		return fmt.Sprintf("validation error: %s", errs[0].Message)
	}
	return fmt.Sprintf("%d validation errors (first: %s)", len(errs), errs[0].Message)
}
