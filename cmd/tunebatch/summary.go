package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	batchapp "github.com/alexisbeaulieu97/tunebatch/internal/application/batch"
)

type summaryDocument struct {
	JobID      string        `yaml:"job_id"`
	Pipeline   string        `yaml:"pipeline"`
	Total      int           `yaml:"total"`
	Processed  int           `yaml:"processed"`
	Passed     int           `yaml:"passed"`
	Warning    int           `yaml:"warning"`
	Failed     int           `yaml:"failed"`
	Skipped    int           `yaml:"skipped"`
	PassRate   float64       `yaml:"pass_rate"`
	Accuracy   *float64      `yaml:"average_accuracy,omitempty"`
	Output     int64         `yaml:"output_bytes"`
	Elapsed    string        `yaml:"elapsed"`
	StopReason string        `yaml:"stop_reason,omitempty"`
	Files      []fileSummary `yaml:"files"`
}

type fileSummary struct {
	Path           string   `yaml:"path"`
	Classification string   `yaml:"classification"`
	Steps          string   `yaml:"steps"`
	Accuracy       *float64 `yaml:"accuracy,omitempty"`
	Duration       string   `yaml:"duration"`
	Errors         []string `yaml:"errors,omitempty"`
	Notes          []string `yaml:"notes,omitempty"`
}

func buildSummaryDocument(name string, report *batchapp.Report) summaryDocument {
	s := report.Summary
	doc := summaryDocument{
		JobID:      report.JobID,
		Pipeline:   name,
		Total:      s.Total,
		Processed:  s.Processed,
		Passed:     s.Passed,
		Warning:    s.Warning,
		Failed:     s.Failed,
		Skipped:    s.Skipped,
		PassRate:   s.PassRate,
		Output:     s.OutputBytes,
		Elapsed:    s.Elapsed.Round(time.Millisecond).String(),
		StopReason: s.StopReason,
	}
	if s.AccuracySamples > 0 {
		avg := s.AverageAccuracy
		doc.Accuracy = &avg
	}
	for _, res := range report.Results {
		doc.Files = append(doc.Files, fileSummary{
			Path:           res.Path,
			Classification: string(res.Classification),
			Steps:          fmt.Sprintf("%d/%d", res.StepsCompleted, res.TotalSteps),
			Accuracy:       res.Accuracy,
			Duration:       res.Duration.Round(time.Millisecond).String(),
			Errors:         res.Errors,
			Notes:          res.Notes,
		})
	}
	return doc
}

func writeSummary(path, name string, report *batchapp.Report) error {
	data, err := yaml.Marshal(buildSummaryDocument(name, report))
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
