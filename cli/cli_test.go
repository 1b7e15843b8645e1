package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/petal-labs/tradingflow/compiler"
	"github.com/petal-labs/tradingflow/config"
	"github.com/petal-labs/tradingflow/engine"
	"github.com/petal-labs/tradingflow/loader"
	"github.com/petal-labs/tradingflow/workflow"
)

// newTestRoot creates a fresh cobra root command wired to all subcommands.
// Each test gets an isolated command tree to avoid shared state.
func newTestRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "tradingflow",
		SilenceUsage: true,
	}
	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewCompileCmd())
	root.AddCommand(NewDefaultCmd())
	root.AddCommand(NewNodeTypesCmd())
	return root
}

// executeCommand runs a cobra command with the given args and captures stdout/stderr.
func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeTestFile creates a temporary file with the given content and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// isolateSettings keeps the developer's own settings out of the tests.
func isolateSettings(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvConfig, filepath.Join(t.TempDir(), "none.yaml"))
	for _, key := range config.Keys() {
		t.Setenv(config.EnvPrefix+strings.ToUpper(key), "")
	}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	return exitErr.Code
}

const traderJSON = `{
  "name": "trader-only",
  "version": "1.0",
  "nodes": [
    {"id": "t", "type": "trader"}
  ],
  "edges": [
    {"id": "e1", "source": "entry", "target": "t", "type": "direct"},
    {"id": "e2", "source": "t", "target": "exit", "type": "direct"}
  ]
}`

// exitAsSourceJSON routes out of the exit sentinel.
const exitAsSourceJSON = `{
  "name": "broken",
  "version": "1.0",
  "nodes": [
    {"id": "t", "type": "trader"}
  ],
  "edges": [
    {"id": "e1", "source": "entry", "target": "t", "type": "direct"},
    {"id": "e2", "source": "t", "target": "exit", "type": "direct"},
    {"id": "e3", "source": "exit", "target": "t", "type": "direct"}
  ]
}`

// orphanJSON has a node nothing reaches.
const orphanJSON = `{
  "name": "orphan",
  "version": "1.0",
  "nodes": [
    {"id": "t", "type": "trader"},
    {"id": "bull", "type": "researcher", "config": {"agent_type": "bull_researcher"}}
  ],
  "edges": [
    {"id": "e1", "source": "entry", "target": "t", "type": "direct"},
    {"id": "e2", "source": "t", "target": "exit", "type": "direct"}
  ]
}`

// --- Validate command tests ---

func TestValidate_Valid(t *testing.T) {
	isolateSettings(t)
	path := writeTestFile(t, "trader.json", traderJSON)
	stdout, _, err := executeCommand(newTestRoot(), "validate", path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, "Valid!") {
		t.Errorf("expected 'Valid!' in output, got: %q", stdout)
	}
}

func TestValidate_ShowsDiagnostics(t *testing.T) {
	isolateSettings(t)
	path := writeTestFile(t, "broken.json", exitAsSourceJSON)
	stdout, _, err := executeCommand(newTestRoot(), "validate", path)
	if code := exitCode(t, err); code != exitValidation {
		t.Errorf("exit code = %d, want %d", code, exitValidation)
	}
	if !strings.Contains(stdout, "ERROR [WF-005]") {
		t.Errorf("expected WF-005 diagnostic, got: %q", stdout)
	}
	if !strings.Contains(stdout, "1 error, 0 warnings") {
		t.Errorf("expected summary line, got: %q", stdout)
	}
}

func TestValidate_JSONFormat(t *testing.T) {
	isolateSettings(t)
	path := writeTestFile(t, "trader.json", traderJSON)
	stdout, _, err := executeCommand(newTestRoot(), "validate", path, "--format", "json")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	// JSON format should produce a JSON array (even if empty)
	if strings.TrimSpace(stdout) != "[]" {
		t.Errorf("expected empty JSON array, got: %q", stdout)
	}
}

func TestValidate_StrictWarnings(t *testing.T) {
	isolateSettings(t)
	path := writeTestFile(t, "orphan.json", orphanJSON)

	stdout, _, err := executeCommand(newTestRoot(), "validate", path)
	if err != nil {
		t.Fatalf("warnings alone should pass, got: %v", err)
	}
	if !strings.Contains(stdout, "Valid! (1 warning)") {
		t.Errorf("expected warning summary, got: %q", stdout)
	}

	_, _, err = executeCommand(newTestRoot(), "validate", path, "--strict")
	if code := exitCode(t, err); code != exitValidation {
		t.Errorf("exit code = %d, want %d", code, exitValidation)
	}
}

func TestValidate_FileNotFound(t *testing.T) {
	isolateSettings(t)
	_, _, err := executeCommand(newTestRoot(), "validate", "/nonexistent/path.json")
	if code := exitCode(t, err); code != exitFileNotFound {
		t.Errorf("exit code = %d, want %d", code, exitFileNotFound)
	}
}

func TestValidate_Unparseable(t *testing.T) {
	isolateSettings(t)
	path := writeTestFile(t, "bad.json", `{"foo": "bar"}`)
	_, _, err := executeCommand(newTestRoot(), "validate", path)
	if code := exitCode(t, err); code != exitValidation {
		t.Errorf("exit code = %d, want %d", code, exitValidation)
	}
}

func TestValidate_EmitsEvents(t *testing.T) {
	isolateSettings(t)
	path := writeTestFile(t, "trader.json", traderJSON)

	ch := make(chan compiler.Event, 8)
	root := newTestRoot()
	root.SetContext(WithEventHandler(context.Background(), compiler.ChannelEventHandler(ch)))
	if _, _, err := executeCommand(root, "validate", path); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	close(ch)

	var kinds []compiler.EventKind
	for e := range ch {
		kinds = append(kinds, e.Kind)
	}
	if len(kinds) != 1 || kinds[0] != compiler.EventValidateFinished {
		t.Errorf("events = %v, want [validate.finished]", kinds)
	}
}

// --- Compile command tests ---

func TestCompile_JSON(t *testing.T) {
	isolateSettings(t)
	path := writeTestFile(t, "trader.json", traderJSON)
	stdout, _, err := executeCommand(newTestRoot(), "compile", path)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	var bp engine.Blueprint
	if err := json.Unmarshal([]byte(stdout), &bp); err != nil {
		t.Fatalf("output is not a blueprint: %v\n%s", err, stdout)
	}
	if len(bp.Nodes) != 1 || bp.Nodes[0] != "Trader" {
		t.Errorf("Nodes = %v, want [Trader]", bp.Nodes)
	}
	if len(bp.Edges) != 2 {
		t.Errorf("Edges = %v, want 2 transitions", bp.Edges)
	}
}

func TestCompile_TextToFile(t *testing.T) {
	isolateSettings(t)
	cfgPath := writeTestFile(t, "trader.yaml", `name: trader-only
version: "1.0"
nodes:
  - id: t
    type: trader
edges:
  - {id: e1, source: entry, target: t, type: direct}
  - {id: e2, source: t, target: exit, type: direct}
`)
	outPath := filepath.Join(t.TempDir(), "graph.txt")
	stdout, _, err := executeCommand(newTestRoot(), "compile", cfgPath, "--format", "text", "-o", outPath)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if stdout != "" {
		t.Errorf("expected nothing on stdout, got: %q", stdout)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(data), "Nodes (1):\n  Trader\n") {
		t.Errorf("unexpected text output:\n%s", data)
	}
}

func TestCompile_ValidationFailure(t *testing.T) {
	isolateSettings(t)
	path := writeTestFile(t, "broken.json", exitAsSourceJSON)
	_, stderr, err := executeCommand(newTestRoot(), "compile", path)
	if code := exitCode(t, err); code != exitValidation {
		t.Errorf("exit code = %d, want %d", code, exitValidation)
	}
	if !strings.Contains(stderr, "WF-005") {
		t.Errorf("expected diagnostics on stderr, got: %q", stderr)
	}
}

func TestCompile_CompileFailure(t *testing.T) {
	isolateSettings(t)
	path := writeTestFile(t, "broken.json", exitAsSourceJSON)
	_, _, err := executeCommand(newTestRoot(), "compile", path, "--skip-validate")
	if code := exitCode(t, err); code != exitCompile {
		t.Errorf("exit code = %d, want %d", code, exitCompile)
	}
	if !strings.Contains(err.Error(), "exit cannot be a source") {
		t.Errorf("error = %v", err)
	}
}

func TestCompile_DefaultWorkflow(t *testing.T) {
	isolateSettings(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "default.yaml")
	if _, _, err := executeCommand(newTestRoot(), "default", "-o", cfgPath, "--analysts", "market,news"); err != nil {
		t.Fatalf("default: %v", err)
	}

	stdout, _, err := executeCommand(newTestRoot(), "compile", cfgPath, "--debate-rounds", "2")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var bp engine.Blueprint
	if err := json.Unmarshal([]byte(stdout), &bp); err != nil {
		t.Fatalf("output is not a blueprint: %v", err)
	}
	for _, name := range []string{"Market Analyst", "News Analyst", "Risk Judge"} {
		found := false
		for _, n := range bp.Nodes {
			if n == name {
				found = true
			}
		}
		if !found {
			t.Errorf("node %q missing from %v", name, bp.Nodes)
		}
	}
}

// --- Default command tests ---

func TestDefault_StdoutFormats(t *testing.T) {
	isolateSettings(t)

	stdout, _, err := executeCommand(newTestRoot(), "default", "--analysts", "fundamentals", "--format", "json")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	cfg, err := loader.Parse([]byte(stdout), loader.FormatJSON)
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if cfg.Nodes[0].AgentType() != string(workflow.FundamentalsAnalyst) {
		t.Errorf("first node role = %q, want %q", cfg.Nodes[0].AgentType(), workflow.FundamentalsAnalyst)
	}

	stdout, _, err = executeCommand(newTestRoot(), "default")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	cfg, err = loader.Parse([]byte(stdout), loader.FormatYAML)
	if err != nil {
		t.Fatalf("parsing YAML output: %v", err)
	}
	if cfg.Name == "" || len(cfg.Nodes) == 0 {
		t.Errorf("unexpected configuration: %+v", cfg)
	}
}

func TestDefault_Errors(t *testing.T) {
	isolateSettings(t)

	_, _, err := executeCommand(newTestRoot(), "default", "--analysts", "astrology")
	if code := exitCode(t, err); code != exitValidation {
		t.Errorf("exit code = %d, want %d", code, exitValidation)
	}

	_, _, err = executeCommand(newTestRoot(), "default", "--tier", "huge")
	if code := exitCode(t, err); code != exitValidation {
		t.Errorf("exit code = %d, want %d", code, exitValidation)
	}
}

func TestDefault_SettingsFromEnv(t *testing.T) {
	isolateSettings(t)
	t.Setenv("TRADINGFLOW_SELECTED_ANALYSTS", "news")

	stdout, _, err := executeCommand(newTestRoot(), "default", "--format", "json")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	cfg, err := loader.Parse([]byte(stdout), loader.FormatJSON)
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if cfg.Nodes[0].AgentType() != string(workflow.NewsAnalyst) {
		t.Errorf("first node role = %q, want %q", cfg.Nodes[0].AgentType(), workflow.NewsAnalyst)
	}
}

// --- Node types command tests ---

func TestNodeTypes_Text(t *testing.T) {
	stdout, _, err := executeCommand(newTestRoot(), "node-types")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	for _, want := range []string{"TYPE", "analyst", "risk_analyst", "market_analyst"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestNodeTypes_NamesJSON(t *testing.T) {
	stdout, _, err := executeCommand(newTestRoot(), "node-types", "--names", "--format", "json")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	var entries []struct {
		Type        string `json:"type"`
		Role        string `json:"role"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Role == "research_manager" && e.DisplayName == "Research Manager" {
			found = true
		}
	}
	if !found {
		t.Errorf("research_manager entry missing: %s", stdout)
	}
}
