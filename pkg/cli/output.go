// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objwatch.
//
// go-objwatch is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jeremyhahn/go-objwatch/pkg/cleanup"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/driver"
	"github.com/jeremyhahn/go-objwatch/pkg/pipeline"
	"github.com/jeremyhahn/go-objwatch/pkg/report"
	"github.com/jeremyhahn/go-objwatch/pkg/sizing"
)

// OutputFormat defines the output format type.
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
)

// OperationResult holds the result of an operation.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// FormatOperationResult formats an operation result in the specified format.
func FormatOperationResult(result *OperationResult, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(result)
	case FormatTable:
		return formatResultTable(result)
	default:
		return formatResultText(result)
	}
}

// FormatError formats an error message in the specified format.
func FormatError(err error, format OutputFormat) string {
	result := &OperationResult{
		Success: false,
		Error:   err.Error(),
	}
	return FormatOperationResult(result, format)
}

func formatResultText(result *OperationResult) string {
	if result.Success {
		if result.Message != "" {
			return result.Message + "\n"
		}
		return "Operation completed successfully\n"
	}
	return fmt.Sprintf("Error: %s\n", result.Error)
}

func formatResultTable(result *OperationResult) string {
	status, body := "SUCCESS", result.Message
	if !result.Success {
		status, body = "FAILED", result.Error
	}

	output := "┌────────────────────────────────────────────────────────┐\n"
	output += "│ Operation Result                                       │\n"
	output += "├────────────────────────────────────────────────────────┤\n"
	output += fmt.Sprintf("│ Status: %-46s │\n", status)
	if body != "" {
		for _, line := range wrapText(body, 54) {
			output += fmt.Sprintf("│ %-54s │\n", line)
		}
	}
	output += "└────────────────────────────────────────────────────────┘\n"
	return output
}

func formatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": \"failed to marshal JSON: %s\"}\n", err)
	}
	return string(data) + "\n"
}

// FormatIngestResult formats a processed batch.
func FormatIngestResult(res pipeline.Result, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(res)
	case FormatTable:
		output := formatRecordsTable(res.Records)
		for _, outcome := range res.Outcomes {
			output += describeOutcome(outcome) + "\n"
		}
		return output
	}

	output := fmt.Sprintf("Appended %d record(s)", len(res.Records))
	if len(res.Skipped) > 0 {
		output += fmt.Sprintf(", skipped %d malformed notification(s)", len(res.Skipped))
	}
	output += "\n"
	for _, rec := range res.Records {
		output += fmt.Sprintf("  %s: %s in %d object(s) at %s\n",
			rec.BucketName, formatSize(rec.TotalSize), rec.ObjectCount, formatTimestamp(rec.Timestamp))
	}
	for _, s := range res.Skipped {
		output += fmt.Sprintf("  skipped #%d: %s\n", s.Index, s.Reason)
	}
	for _, outcome := range res.Outcomes {
		output += describeOutcome(outcome) + "\n"
	}
	return output
}

// FormatSizeResult formats the live size of a bucket.
func FormatSizeResult(bucket string, summary sizing.Summary, format OutputFormat) string {
	if format == FormatJSON {
		return formatJSON(map[string]any{
			"bucket":       bucket,
			"total_size":   summary.TotalSize,
			"object_count": summary.ObjectCount,
		})
	}
	return fmt.Sprintf("%s: %s in %d object(s)\n", bucket, formatSize(summary.TotalSize), summary.ObjectCount)
}

// FormatOutcome formats a cleanup evaluation.
func FormatOutcome(outcome *cleanup.Outcome, format OutputFormat) string {
	if format == FormatJSON {
		return formatJSON(outcome)
	}
	return describeOutcome(outcome) + "\n"
}

func describeOutcome(o *cleanup.Outcome) string {
	switch o.Kind {
	case cleanup.BelowThreshold:
		return fmt.Sprintf("%s: %d bytes within threshold %d", o.Bucket, o.TotalSize, o.Threshold)
	case cleanup.Evicted:
		return fmt.Sprintf("%s: %d bytes over threshold %d, deleted %s (%d bytes)",
			o.Bucket, o.TotalSize, o.Threshold, o.Event.DeletedKey, o.Event.SizeAtDeletion)
	case cleanup.RaceLoss:
		return fmt.Sprintf("%s: %s was already deleted", o.Bucket, o.Event.DeletedKey)
	case cleanup.NoEligibleVictim:
		return fmt.Sprintf("%s: %d bytes over threshold %d, nothing eligible to delete",
			o.Bucket, o.TotalSize, o.Threshold)
	default:
		return fmt.Sprintf("%s: %s", o.Bucket, o.Kind)
	}
}

// FormatRecords formats a range of size records.
func FormatRecords(bucket string, records []common.SizeRecord, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(map[string]any{
			"bucket":  bucket,
			"count":   len(records),
			"records": records,
		})
	case FormatTable:
		return formatRecordsTable(records)
	default:
		return formatRecordsText(bucket, records)
	}
}

func formatRecordsText(bucket string, records []common.SizeRecord) string {
	if len(records) == 0 {
		return fmt.Sprintf("No records found for %s\n", bucket)
	}

	var output string
	output += fmt.Sprintf("Found %d record(s) for %s:\n\n", len(records), bucket)
	for _, rec := range records {
		output += fmt.Sprintf("%s  %10d bytes  %d object(s)\n",
			formatTimestamp(rec.Timestamp), rec.TotalSize, rec.ObjectCount)
	}
	return output
}

func formatRecordsTable(records []common.SizeRecord) string {
	if len(records) == 0 {
		return "No records found\n"
	}

	var output string
	output += "┌──────────────────────┬──────────────────────┬──────────────┬─────────┐\n"
	output += "│ Bucket               │ Time                 │ Size         │ Objects │\n"
	output += "├──────────────────────┼──────────────────────┼──────────────┼─────────┤\n"
	for _, rec := range records {
		output += fmt.Sprintf("│ %-20s │ %-20s │ %-12s │ %7d │\n",
			truncate(rec.BucketName, 20), formatTimestamp(rec.Timestamp), formatSize(rec.TotalSize), rec.ObjectCount)
	}
	output += "└──────────────────────┴──────────────────────┴──────────────┴─────────┘\n"
	output += fmt.Sprintf("Total: %d record(s)\n", len(records))
	return output
}

// FormatMaxResult formats the largest record. A nil record means none exist.
func FormatMaxResult(rec *common.SizeRecord, format OutputFormat) string {
	if format == FormatJSON {
		if rec == nil {
			return formatJSON(map[string]any{"max_size": 0, "empty": true})
		}
		return formatJSON(rec)
	}
	if rec == nil {
		return "No records found\n"
	}
	return fmt.Sprintf("Largest: %s at %d bytes (%d object(s)) on %s\n",
		rec.BucketName, rec.TotalSize, rec.ObjectCount, formatTimestamp(rec.Timestamp))
}

// FormatReport formats a size history report.
func FormatReport(rep *report.Report, format OutputFormat) string {
	if format == FormatJSON {
		return formatJSON(rep)
	}

	var output string
	output += fmt.Sprintf("Size history for %s from %s to %s\n",
		rep.Bucket, formatTimestamp(rep.From), formatTimestamp(rep.To))
	if rep.Empty {
		output += "  no records in window\n"
	}
	for _, p := range rep.Points {
		output += fmt.Sprintf("  %s  %d bytes\n", formatTimestamp(p.Timestamp), p.TotalSize)
	}
	output += fmt.Sprintf("All-time max: %d bytes\n", rep.MaxSize)
	return output
}

// FormatDriverSummary formats a finished driver run.
func FormatDriverSummary(summary *driver.Summary, format OutputFormat) string {
	if format == FormatJSON {
		return formatJSON(summary)
	}

	var output string
	for i, step := range summary.Steps {
		output += fmt.Sprintf("Step %d: wrote %s (%d bytes)\n", i+1, step.Key, step.Size)
		for _, rec := range step.Result.Records {
			output += fmt.Sprintf("  recorded %d bytes in %d object(s)\n", rec.TotalSize, rec.ObjectCount)
		}
		for _, outcome := range step.Result.Outcomes {
			output += "  " + describeOutcome(outcome) + "\n"
		}
	}
	if summary.Report != nil {
		output += FormatReport(summary.Report, format)
	}
	return output
}

func formatTimestamp(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

// formatSize formats a byte size into a human-readable string.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// wrapText wraps text to fit within maxWidth characters.
func wrapText(text string, maxWidth int) []string {
	if len(text) <= maxWidth {
		return []string{text}
	}

	// Check if text has no spaces - need to hard wrap
	if !strings.Contains(text, " ") {
		var lines []string
		for len(text) > maxWidth {
			lines = append(lines, text[:maxWidth])
			text = text[maxWidth:]
		}
		if len(text) > 0 {
			lines = append(lines, text)
		}
		return lines
	}

	// Text has spaces - wrap at word boundaries
	var lines []string
	var currentLine string
	for _, word := range strings.Fields(text) {
		if len(currentLine) == 0 {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= maxWidth {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if len(currentLine) > 0 {
		lines = append(lines, currentLine)
	}
	return lines
}
