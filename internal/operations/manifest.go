package operations

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"cotcli/internal/exporter"
	"cotcli/internal/validation"
)

// RunStatus is the final state of a run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Manifest records what a run read, how each step went and what it wrote.
type Manifest struct {
	RunID      string            `json:"run_id"`
	Status     RunStatus         `json:"status"`
	Error      string            `json:"error,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	DurationMS int64             `json:"duration_ms"`
	Inputs     ManifestInputs    `json:"inputs"`
	Stages     []StageExecution  `json:"stages"`
	Outputs    []exporter.Output `json:"outputs"`
	QA         QASummary         `json:"qa"`
}

// ManifestInputs describes the input files.
type ManifestInputs struct {
	Canonical       string `json:"canonical"`
	CanonicalDigest string `json:"canonical_blake2b_256,omitempty"`
	Markets         string `json:"markets"`
	MarketCount     int    `json:"market_count"`
	RowsBefore      int    `json:"rows_before_filter"`
	RowsAfter       int    `json:"rows_after_filter"`
}

// StageExecution tracks one step of the run.
type StageExecution struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Status     StepStatus `json:"status"`
	Rows       int        `json:"rows"`
	DurationMS int64      `json:"duration_ms"`
	Error      string     `json:"error,omitempty"`
}

// QASummary counts findings per severity.
type QASummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

func summarize(r *validation.Report) QASummary {
	return QASummary{
		Errors:   r.Count(validation.SeverityError),
		Warnings: r.Count(validation.SeverityWarn),
		Infos:    r.Count(validation.SeverityInfo),
	}
}

// finish stamps the end time and outcome.
func (m *Manifest) finish(err error) {
	m.FinishedAt = time.Now().UTC()
	m.DurationMS = m.FinishedAt.Sub(m.StartedAt).Milliseconds()
	m.Status = RunStatusSucceeded
	if err != nil {
		m.Status = RunStatusFailed
		m.Error = err.Error()
	}
}

// Render writes the manifest as indented JSON.
func (m *Manifest) Render(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Output returns the recorded output with the given name.
func (m *Manifest) Output(name string) (exporter.Output, bool) {
	for _, o := range m.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return exporter.Output{}, false
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}
