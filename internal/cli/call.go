package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(callCmd)
}

var callCmd = &cobra.Command{
	Use:   "call <tool> [json-args]",
	Short: "Run one tool call and print its text result",
	Example: `  activecampaign-mcp call get_contact_by_email '{"email":"maria@example.com"}'
  activecampaign-mcp call get_contact_tracking_logs '{"contactId":"42","limit":10}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	raw := json.RawMessage(`{}`)
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("arguments are not valid JSON: %s", args[1])
		}
		raw = json.RawMessage(args[1])
	}

	srv, err := newServer()
	if err != nil {
		return err
	}
	defer startTracing()()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res := srv.Call(ctx, args[0], raw)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Text())
	return err
}
