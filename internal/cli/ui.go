package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/peerguard/pkg/conflict"
	"github.com/matzehuels/peerguard/pkg/logscan"
	"github.com/matzehuels/peerguard/pkg/pipeline"
	"github.com/matzehuels/peerguard/pkg/remediate"
	"github.com/matzehuels/peerguard/pkg/report"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for package names.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for blocking conflicts and failures.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Evaluation Output
// =============================================================================

// printResult prints everything a pipeline run found and did.
func printResult(res *pipeline.Result) {
	if res.State == pipeline.StateUnchanged {
		printInfo("%s", res)
		return
	}

	printConflicts(res.Conflicts)
	if res.Analysis != nil {
		printFindings(res.Analysis.AllFindings())
	}
	if res.Report != nil {
		printIssues(res.Report.Issues)
		printRecommendations(res.Report.Recommendations, len(res.Actions) > 0)
	}
	printActions(res.Actions)
	if res.RemediationErr != nil {
		printWarning("some fixes could not be applied: %v", res.RemediationErr)
	}

	switch {
	case res.Partial:
		printWarning("%s", res)
	case res.Unresolved():
		printError("%s", res)
	default:
		printSuccess("%s", res)
	}
	printStatsLine(res.Stats)
	if res.ReportPath != "" {
		printFile(res.ReportPath)
	}
}

func printConflicts(records []conflict.Record) {
	for _, r := range records {
		style := StyleWarning
		if r.Severity == conflict.SeverityBlocking {
			style = StyleError
		}
		fmt.Printf("%s %s %s\n",
			style.Render(string(r.Severity)),
			StyleHighlight.Render(r.Package+"@"+r.DeclaredRange),
			StyleDim.Render("requires peer "+r.RequiredPeerRange+", project declares "+r.SubjectRange))
	}
}

func printFindings(findings []logscan.Finding) {
	for _, f := range findings {
		first, _, _ := strings.Cut(f.Evidence, "\n")
		printWarning("%s at line %d", f.Kind, f.Line)
		printDetail("%s", first)
	}
}

func printIssues(issues []string) {
	for _, issue := range issues {
		printWarning("%s", issue)
	}
}

func printRecommendations(recs []report.Recommendation, applied bool) {
	if applied {
		return
	}
	for _, r := range recs {
		printInfo("%s", r.Message)
	}
	if len(recs) > 0 {
		printNextStep("Apply with", appName+" fix")
	}
}

func printActions(actions []remediate.Action) {
	for _, a := range actions {
		printSuccess("%s %s", StyleDim.Render(string(a.Kind)), a.Description)
	}
}

// printStatsLine prints lookup counts and timings on a single dim line.
func printStatsLine(s pipeline.Stats) {
	parts := []string{
		fmt.Sprintf("%d checked", s.Checked),
	}
	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.Skipped))
	}
	parts = append(parts, s.TotalTime.Round(time.Millisecond).String())

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Println(line)
}
