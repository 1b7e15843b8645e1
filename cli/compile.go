package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/petal-labs/tradingflow/engine"
	"github.com/petal-labs/tradingflow/workflow"
)

// NewCompileCmd creates the "compile" subcommand.
func NewCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Dry-run compile a workflow configuration and print the graph",
		Long: "Compile a workflow configuration against placeholder agents and print the\n" +
			"resulting graph: registered nodes, direct transitions and conditional routes.",
		Args: cobra.ExactArgs(1),
		RunE: runCompile,
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().String("format", "json", "Output format: text | json")
	cmd.Flags().Bool("pretty", true, "Pretty-print JSON output")
	cmd.Flags().Bool("skip-validate", false, "Compile without running the validator first")
	addSettingsFlags(cmd)

	return cmd
}

// runCompile implements the compile pipeline:
//
//	load → validate (unless --skip-validate) → blueprint → engine compile
//	→ serialize → write output
func runCompile(cmd *cobra.Command, args []string) error {
	stderr := cmd.ErrOrStderr()
	stdout := cmd.OutOrStdout()

	format, _ := cmd.Flags().GetString("format")
	pretty, _ := cmd.Flags().GetBool("pretty")
	skipValidate, _ := cmd.Flags().GetBool("skip-validate")
	outputPath, _ := cmd.Flags().GetString("output")

	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}

	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	// Step 1: Load
	cfg, err := loadConfiguration(args[0])
	if err != nil {
		return err
	}

	c := newCompiler(cmd, s)

	// Step 2: Validate
	if !skipValidate {
		diags := c.Validate(cfg)
		if workflow.HasErrors(diags) {
			printDiagnosticsText(stderr, workflow.Errors(diags))
			return exitError(exitValidation, "validation failed with %d %s",
				len(workflow.Errors(diags)), pluralize("error", len(workflow.Errors(diags))))
		}
	}

	// Step 3: Compile into an inspectable blueprint, then into the engine's
	// own graph so engine-side checks run too.
	bp, err := c.Blueprint(cmd.Context(), cfg)
	if err != nil {
		return exitError(exitCompile, "compilation failed: %s", err)
	}
	if _, err := c.Compile(cmd.Context(), cfg); err != nil {
		return exitError(exitCompile, "compilation failed: %s", err)
	}

	// Step 4: Serialize
	var data []byte
	switch {
	case format == "text":
		data = blueprintText(bp)
	case pretty:
		data, err = json.MarshalIndent(bp, "", "  ")
	default:
		data, err = json.Marshal(bp)
	}
	if err != nil {
		return fmt.Errorf("serializing graph: %w", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	// Step 5: Write to --output or stdout
	return writeOutput(stdout, outputPath, data)
}

// blueprintText renders a blueprint as an indented listing.
func blueprintText(bp *engine.Blueprint) []byte {
	var out []byte
	out = fmt.Appendf(out, "Nodes (%d):\n", len(bp.Nodes))
	for _, n := range bp.Nodes {
		out = fmt.Appendf(out, "  %s\n", n)
	}
	out = fmt.Appendf(out, "Edges (%d):\n", len(bp.Edges))
	for _, e := range bp.Edges {
		out = fmt.Appendf(out, "  %s -> %s\n", e.From, e.To)
	}
	if len(bp.Conditionals) > 0 {
		out = fmt.Appendf(out, "Conditionals (%d):\n", len(bp.Conditionals))
		for _, c := range bp.Conditionals {
			out = fmt.Appendf(out, "  %s\n", c.From)
			results := make([]string, 0, len(c.PathMap))
			for r := range c.PathMap {
				results = append(results, r)
			}
			sort.Strings(results)
			for _, r := range results {
				out = fmt.Appendf(out, "    %s => %s\n", r, c.PathMap[r])
			}
		}
	}
	return out
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path != "" {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		return nil
	}
	if _, err := stdout.Write(data); err != nil {
		return fmt.Errorf("writing to stdout: %w", err)
	}
	return nil
}
