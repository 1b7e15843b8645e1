package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/tradingflow/registry"
)

// NewNodeTypesCmd creates the "node-types" subcommand.
func NewNodeTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node-types",
		Short: "List node types, their roles and the display names they compile to",
		Args:  cobra.NoArgs,
		RunE:  runNodeTypes,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("names", false, "List the (type, role) display name table instead")

	return cmd
}

func runNodeTypes(cmd *cobra.Command, _ []string) error {
	format, _ := cmd.Flags().GetString("format")
	names, _ := cmd.Flags().GetBool("names")
	reg := registry.Global()

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if names {
			return enc.Encode(reg.DisplayTable())
		}
		return enc.Encode(reg.All())
	}
	if format != "text" {
		return fmt.Errorf("unknown format %q", format)
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	if names {
		fmt.Fprintln(writer, "TYPE\tROLE\tDISPLAY_NAME")
		for _, e := range reg.DisplayTable() {
			role := e.Role
			if role == "" {
				role = "-"
			}
			fmt.Fprintf(writer, "%s\t%s\t%s\n", e.Type, role, e.DisplayName)
		}
		return writer.Flush()
	}

	fmt.Fprintln(writer, "TYPE\tCATEGORY\tTIER\tROLES")
	for _, def := range reg.All() {
		roles := make([]string, 0, len(def.Roles))
		for _, r := range def.Roles {
			roles = append(roles, r.Role)
		}
		rolesText := strings.Join(roles, ",")
		if rolesText == "" {
			rolesText = "-"
		}
		tier := string(def.Tier)
		if tier == "" {
			tier = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", def.Type, def.Category, tier, rolesText)
	}
	return writer.Flush()
}
