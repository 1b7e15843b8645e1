package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petal-labs/tradingflow/defaults"
	"github.com/petal-labs/tradingflow/loader"
	"github.com/petal-labs/tradingflow/workflow"
)

// NewDefaultCmd creates the "default" subcommand.
func NewDefaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "default",
		Short: "Generate the default trading workflow configuration",
		Args:  cobra.NoArgs,
		RunE:  runDefault,
	}

	cmd.Flags().StringP("output", "o", "", "Output file path; format follows the extension (default: stdout)")
	cmd.Flags().String("format", "yaml", "Output format for stdout: yaml | json")
	cmd.Flags().StringSlice("analysts", nil, "Analysts to include: market, social, news, fundamentals")
	cmd.Flags().String("tier", string(workflow.TierQuick), "Model tier for analysts: quick | deep")
	addSettingsFlags(cmd)

	return cmd
}

func runDefault(cmd *cobra.Command, _ []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	formatName, _ := cmd.Flags().GetString("format")
	tierName, _ := cmd.Flags().GetString("tier")

	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	analysts, err := defaults.AnalystsFromStrings(s.Analysts)
	if err != nil {
		return exitError(exitValidation, "%s", err)
	}
	tier, ok := workflow.ParseModelTier(tierName)
	if !ok {
		return exitError(exitValidation, "unknown model tier %q", tierName)
	}

	cfg, err := defaults.Generate(analysts,
		defaults.WithDebateRounds(s.MaxDebateRounds),
		defaults.WithRiskRounds(s.MaxRiskRounds),
		defaults.WithTier(tier),
	)
	if err != nil {
		return exitError(exitValidation, "%s", err)
	}

	if outputPath != "" {
		if err := loader.Save(outputPath, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d nodes, %d edges)\n", outputPath, len(cfg.Nodes), len(cfg.Edges))
		return nil
	}

	format, err := loader.ParseFormat(formatName)
	if err != nil {
		return err
	}
	data, err := loader.Marshal(cfg, format)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), "", data)
}
