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
	"errors"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-objwatch/pkg/aggregator"
	"github.com/jeremyhahn/go-objwatch/pkg/cleanup"
	"github.com/jeremyhahn/go-objwatch/pkg/common"
	"github.com/jeremyhahn/go-objwatch/pkg/pipeline"
	"github.com/jeremyhahn/go-objwatch/pkg/report"
	"github.com/jeremyhahn/go-objwatch/pkg/sizing"
)

func TestFormatOperationResult(t *testing.T) {
	ok := &OperationResult{Success: true, Message: "done"}
	if got := FormatOperationResult(ok, FormatText); got != "done\n" {
		t.Errorf("text = %q", got)
	}
	if got := FormatOperationResult(ok, FormatTable); !strings.Contains(got, "SUCCESS") {
		t.Errorf("table missing status: %s", got)
	}

	var decoded OperationResult
	if err := json.Unmarshal([]byte(FormatOperationResult(ok, FormatJSON)), &decoded); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if !decoded.Success || decoded.Message != "done" {
		t.Errorf("json round trip = %+v", decoded)
	}
}

func TestFormatError(t *testing.T) {
	err := errors.New("bucket is required")
	if got := FormatError(err, FormatText); got != "Error: bucket is required\n" {
		t.Errorf("text = %q", got)
	}
	if got := FormatError(err, FormatTable); !strings.Contains(got, "FAILED") {
		t.Errorf("table missing status: %s", got)
	}
}

func TestFormatIngestResult(t *testing.T) {
	res := pipeline.Result{
		Records: []common.SizeRecord{common.NewSizeRecord("b1", 0, 47, 2), common.NewSizeRecord("b1", 0, 19, 1)},
		Skipped: []aggregator.Skipped{{Index: 1, Reason: "key is required"}},
		Outcomes: []*cleanup.Outcome{{
			Kind: cleanup.Evicted, Bucket: "b1", TotalSize: 47, Threshold: 20,
			Event: &common.EvictionEvent{DeletedKey: "assignment2.txt", SizeAtDeletion: 28},
		}},
	}

	out := FormatIngestResult(res, FormatText)
	for _, want := range []string{"Appended 2 record(s)", "skipped 1", "key is required", "deleted assignment2.txt (28 bytes)"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if out := FormatIngestResult(res, FormatTable); !strings.Contains(out, "Total: 2 record(s)") {
		t.Errorf("table output:\n%s", out)
	}
}

func TestFormatOutcome(t *testing.T) {
	tests := []struct {
		outcome *cleanup.Outcome
		want    string
	}{
		{&cleanup.Outcome{Kind: cleanup.BelowThreshold, Bucket: "b1", TotalSize: 19, Threshold: 20}, "within threshold"},
		{&cleanup.Outcome{Kind: cleanup.NoEligibleVictim, Bucket: "b1", TotalSize: 30, Threshold: 20}, "nothing eligible"},
		{&cleanup.Outcome{Kind: cleanup.RaceLoss, Bucket: "b1", Event: &common.EvictionEvent{DeletedKey: "a.txt"}}, "already deleted"},
	}
	for _, tt := range tests {
		if got := FormatOutcome(tt.outcome, FormatText); !strings.Contains(got, tt.want) {
			t.Errorf("FormatOutcome(%s) = %q, want substring %q", tt.outcome.Kind, got, tt.want)
		}
	}
}

func TestFormatRecords(t *testing.T) {
	if got := FormatRecords("b1", nil, FormatText); got != "No records found for b1\n" {
		t.Errorf("empty text = %q", got)
	}

	records := []common.SizeRecord{common.NewSizeRecord("b1", 1700000000, 19, 1)}
	if got := FormatRecords("b1", records, FormatText); !strings.Contains(got, "2023-11-14T22:13:20Z") {
		t.Errorf("text missing timestamp:\n%s", got)
	}

	var decoded struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(FormatRecords("b1", records, FormatJSON)), &decoded); err != nil {
		t.Fatalf("json output invalid: %v", err)
	}
	if decoded.Count != 1 {
		t.Errorf("json count = %d", decoded.Count)
	}
}

func TestFormatMaxResult(t *testing.T) {
	if got := FormatMaxResult(nil, FormatText); got != "No records found\n" {
		t.Errorf("empty = %q", got)
	}
	if got := FormatMaxResult(nil, FormatJSON); !strings.Contains(got, `"empty": true`) {
		t.Errorf("empty json = %q", got)
	}
	rec := common.NewSizeRecord("b1", 0, 47, 2)
	if got := FormatMaxResult(&rec, FormatText); !strings.Contains(got, "47 bytes") {
		t.Errorf("text = %q", got)
	}
}

func TestFormatReport(t *testing.T) {
	rep := &report.Report{Bucket: "b1", Points: []report.Point{}, Empty: true}
	out := FormatReport(rep, FormatText)
	if !strings.Contains(out, "no records in window") || !strings.Contains(out, "All-time max: 0 bytes") {
		t.Errorf("empty report:\n%s", out)
	}
}

func TestFormatSizeResult(t *testing.T) {
	got := FormatSizeResult("b1", sizing.Summary{TotalSize: 2048, ObjectCount: 3}, FormatText)
	if got != "b1: 2.0 KiB in 3 object(s)\n" {
		t.Errorf("FormatSizeResult() = %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.0 KiB",
		1536:            "1.5 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for in, want := range tests {
		if got := formatSize(in); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("short", 10); len(got) != 1 {
		t.Errorf("wrapText short = %v", got)
	}
	if got := wrapText("aaaaaaaaaabbbbb", 10); len(got) != 2 || got[0] != "aaaaaaaaaa" {
		t.Errorf("wrapText hard = %v", got)
	}
	if got := wrapText("one two three four", 9); len(got) != 3 {
		t.Errorf("wrapText words = %v", got)
	}
}
