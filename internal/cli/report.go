package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/peerguard/pkg/report"
)

// reportCommand reads back stored evaluation reports.
func (c *CLI) reportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show stored evaluation reports",
	}

	cmd.AddCommand(c.reportListCommand())
	cmd.AddCommand(c.reportLatestCommand())

	return cmd
}

func (c *CLI) reportListCommand() *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			reports, err := ws.reports.List(cmd.Context())
			if err != nil {
				return err
			}
			if limit > 0 && len(reports) > limit {
				reports = reports[:limit]
			}
			if asJSON {
				return writeJSON(reports)
			}
			if len(reports) == 0 {
				printInfo("No reports yet")
				printNextStep("Create one with", appName+" check")
				return nil
			}
			for _, r := range reports {
				printReportLine(r)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n reports")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print reports as JSON")

	return cmd
}

func (c *CLI) reportLatestCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := c.openWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			defer ws.Close()

			r, err := ws.reports.Latest(cmd.Context())
			if err != nil {
				return err
			}
			if r == nil {
				printInfo("No reports yet")
				return nil
			}
			if asJSON {
				return writeJSON(r)
			}
			printReport(r)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	return cmd
}

func printReportLine(r *report.Report) {
	status := StyleSuccess.Render("ok")
	switch {
	case r.Partial:
		status = StyleWarning.Render("partial")
	case r.Blocking() && len(r.Actions) == 0:
		status = StyleError.Render("blocking")
	}
	fmt.Printf("%s  %-8s %s\n",
		StyleDim.Render(r.Timestamp),
		status,
		StyleDim.Render(fmt.Sprintf("%d conflicts, %d findings, %d actions", len(r.Conflicts), len(r.Findings), len(r.Actions))))
}

func printReport(r *report.Report) {
	fmt.Println(StyleTitle.Render(r.ProjectName))
	printKeyValue("Run", r.RunID)
	printKeyValue("Timestamp", r.Timestamp)
	printKeyValue("Conflicts", strconv.Itoa(len(r.Conflicts)))
	printKeyValue("Findings", strconv.Itoa(len(r.Findings)))
	printKeyValue("Actions", strconv.Itoa(len(r.Actions)))
	if r.SkippedLookups > 0 {
		printKeyValue("Skipped", strconv.Itoa(r.SkippedLookups))
	}
	for _, cf := range r.Conflicts {
		printWarning("%s@%s requires %s (%s)", cf.Package, cf.DeclaredRange, cf.RequiredReactVersion, cf.Severity)
	}
	printIssues(r.Issues)
	for _, rec := range r.Recommendations {
		printInfo("%s", rec.Message)
	}
	for _, a := range r.Actions {
		printSuccess("%s %s", StyleDim.Render(string(a.Kind)), a.Description)
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
