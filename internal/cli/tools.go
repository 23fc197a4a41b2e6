package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	acmcp "github.com/mmarqueti/activecampaign-mcp-server/internal/mcp"
)

var toolsFormat string

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().StringVarP(&toolsFormat, "format", "o", "yaml", "Output format: yaml, json")
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool catalog with input schemas",
	RunE:  runTools,
}

func runTools(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(acmcp.Catalog(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	switch toolsFormat {
	case "json":
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	case "yaml":
		// Round-trip through a generic value so YAML keys follow the JSON names.
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("decode catalog: %w", err)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q (use yaml or json)", toolsFormat)
	}
}
