package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mmarqueti/activecampaign-mcp-server/internal/activecampaign"
)

const doctorTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and ActiveCampaign connectivity",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), doctorTimeout)
	defer cancel()

	checks := runChecks(ctx, nil)
	if printChecks(cmd.OutOrStdout(), checks) {
		return errors.New("doctor found issues")
	}
	return nil
}

// runChecks inspects the loaded configuration and, when credentials are
// present, probes the API. doer overrides the HTTP client in tests.
func runChecks(ctx context.Context, doer activecampaign.HTTPDoer) []checkResult {
	var checks []checkResult

	// 1. Binary location and version.
	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{label: "binary", ok: true, detail: fmt.Sprintf("%s (v%s)", execPath, version)})
	} else {
		checks = append(checks, checkResult{label: "binary", ok: false, detail: "cannot determine executable path"})
	}

	// 2. Config file. Optional, so a missing file still passes.
	if _, err := os.Stat(configPath); err == nil {
		checks = append(checks, checkResult{label: "config file", ok: true, detail: configPath})
	} else {
		checks = append(checks, checkResult{label: "config file", ok: true, detail: "not found, using environment"})
	}

	// 3. Credentials.
	urlOK := cfg.API.URL != ""
	keyOK := cfg.API.Key != ""
	checks = append(checks, presence("API URL", urlOK, cfg.API.URL, "export ACTIVECAMPAIGN_API_URL=https://<account>.api-us1.com"))
	checks = append(checks, presence("API key", keyOK, "set", "export ACTIVECAMPAIGN_API_KEY=<token>"))
	if !urlOK || !keyOK {
		return checks
	}

	// 4. Upstream reachability and token validity.
	api := apiConfig(cfg)
	api.HTTPClient = doer
	client, err := activecampaign.New(api)
	if err != nil {
		return append(checks, checkResult{label: "API", ok: false, detail: err.Error()})
	}
	start := time.Now()
	fields, err := client.ListFields(ctx)
	if err != nil {
		fix := "check the account URL and network access"
		var te *activecampaign.TransportError
		if errors.As(err, &te) && (te.Status == 401 || te.Status == 403) {
			fix = "regenerate the API key under Settings > Developer"
		}
		return append(checks, checkResult{label: "API", ok: false, detail: err.Error(), fix: fix})
	}
	return append(checks, checkResult{
		label:  "API",
		ok:     true,
		detail: fmt.Sprintf("reachable in %s (%d custom fields)", time.Since(start).Round(time.Millisecond), len(fields)),
	})
}

func presence(label string, ok bool, detail, fix string) checkResult {
	if !ok {
		return checkResult{label: label, ok: false, detail: "missing", fix: fix}
	}
	return checkResult{label: label, ok: true, detail: detail}
}

// printChecks writes one line per check and reports whether any failed.
func printChecks(w io.Writer, checks []checkResult) bool {
	hasFailures := false
	for _, c := range checks {
		mark := color.GreenString("\u2713")
		if !c.ok {
			mark = color.RedString("\u2717")
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-14s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w)
	if hasFailures {
		fmt.Fprintln(w, color.YellowString("Some checks failed. Apply the suggested fixes."))
	} else {
		fmt.Fprintln(w, "All checks passed.")
	}
	return hasFailures
}
