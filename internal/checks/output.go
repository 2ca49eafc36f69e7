package checks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var statusColors = map[Status]color.Attribute{
	StatusPass:  color.FgGreen,
	StatusWarn:  color.FgYellow,
	StatusFail:  color.FgRed,
	StatusError: color.FgMagenta,
	StatusSkip:  color.FgBlue,
}

func statusLabel(s Status, useColor bool) string {
	c := color.New(statusColors[s], color.Bold)
	if useColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(strings.ToUpper(string(s)))
}

// WriteText renders the report as a summary table followed by the
// findings of every check that did not pass.
func WriteText(w io.Writer, report *Report, useColor bool) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Checks for %s\n\n", report.Path)

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Check", "Status", "Message"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, r := range report.Results {
		table.Append([]string{r.ID, statusLabel(r.Status, useColor), r.Message})
	}
	table.Render()

	for _, r := range report.Results {
		if len(r.Findings) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "\n%s %s:\n", statusLabel(r.Status, useColor), r.ID)
		for _, f := range r.Findings {
			fmt.Fprintf(&buf, "  - %s\n", f)
		}
	}

	s := report.Summary
	fmt.Fprintf(&buf, "\n%d checks: %d passed, %d warned, %d failed, %d errors, %d skipped\n",
		s.Total, s.Passed, s.Warned, s.Failed, s.Errors, s.Skipped)

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode check report: %w", err)
	}
	return nil
}
