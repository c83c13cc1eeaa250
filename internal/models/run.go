package models

import (
	"sort"
	"time"
)

// SourceFileInfo is the lineage of one raw bordereaux file in a run.
type SourceFileInfo struct {
	Path      string `json:"-"`
	Name      string `json:"name"`
	CarrierID string `json:"carrier_id"`
	Checksum  string `json:"checksum"`
	RowCount  int    `json:"row_count"`
	Status    string `json:"status"`
}

// StageCount is one (stage, rule, count) cell of the exceptions rollup.
type StageCount struct {
	Stage string `json:"stage"`
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// RunReport summarizes one pipeline run for logging, the exceptions summary
// deliverable, and the run registry.
type RunReport struct {
	RunID            string           `json:"run_id"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
	AsOfDate         time.Time        `json:"as_of_date"`
	InputFingerprint string           `json:"input_fingerprint"`
	Files            []SourceFileInfo `json:"files"`

	RecordsIn          int `json:"records_in"`
	RecordsNormalized  int `json:"records_normalized"`
	RecordsZipResolved int `json:"records_zip_resolved"`
	RecordsTractMapped int `json:"records_tract_mapped"`
	RecordsEnriched    int `json:"records_enriched"`
	JournalLines       int `json:"journal_lines"`
	ZipSummaries       int `json:"zip_summaries"`
	ExceptionCount     int `json:"exception_count"`
}

// ExceptionRollup counts exceptions per (stage, rule), ordered by stage then
// rule for deterministic output.
func ExceptionRollup(exceptions []ExceptionRecord) []StageCount {
	type key struct{ stage, rule string }
	counts := make(map[key]int)
	for _, e := range exceptions {
		counts[key{e.Stage, e.Rule}]++
	}
	rollup := make([]StageCount, 0, len(counts))
	for k, n := range counts {
		rollup = append(rollup, StageCount{Stage: k.stage, Rule: k.rule, Count: n})
	}
	sort.Slice(rollup, func(i, j int) bool {
		if rollup[i].Stage != rollup[j].Stage {
			return rollup[i].Stage < rollup[j].Stage
		}
		return rollup[i].Rule < rollup[j].Rule
	})
	return rollup
}
