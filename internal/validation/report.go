package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "cotcli/internal/errors"
)

// Severity classifies a QA finding.
type Severity string

const (
	SeverityError Severity = "ERROR"
	SeverityWarn  Severity = "WARN"
	SeverityInfo  Severity = "INFO"
)

// Report collects QA findings for one run. Errors fail the run; warnings and
// infos are only reported.
type Report struct {
	Errors   []string
	Warnings []string
	Infos    []string
}

// Errorf records a fatal finding.
func (r *Report) Errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Warnf records a warning.
func (r *Report) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Infof records an informational finding.
func (r *Report) Infof(format string, args ...any) {
	r.Infos = append(r.Infos, fmt.Sprintf(format, args...))
}

// HasErrors reports whether any fatal finding was recorded.
func (r *Report) HasErrors() bool { return len(r.Errors) > 0 }

// Count returns the number of findings of a severity.
func (r *Report) Count(s Severity) int {
	switch s {
	case SeverityError:
		return len(r.Errors)
	case SeverityWarn:
		return len(r.Warnings)
	case SeverityInfo:
		return len(r.Infos)
	}
	return 0
}

// Lines renders the findings, errors first, then infos, then warnings.
func (r *Report) Lines() []string {
	lines := make([]string, 0, len(r.Errors)+len(r.Infos)+len(r.Warnings))
	for _, e := range r.Errors {
		lines = append(lines, string(SeverityError)+": "+e)
	}
	for _, i := range r.Infos {
		lines = append(lines, string(SeverityInfo)+": "+i)
	}
	for _, w := range r.Warnings {
		lines = append(lines, string(SeverityWarn)+": "+w)
	}
	return lines
}

// String is the report file body: one line per finding, or "OK".
func (r *Report) String() string {
	lines := r.Lines()
	if len(lines) == 0 {
		return "OK"
	}
	return strings.Join(lines, "\n")
}

// Err returns a validation error summarizing the fatal findings, or nil.
func (r *Report) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return apperrors.NewAppValidationError(
		fmt.Sprintf("compute validations failed (%d errors): %s", len(r.Errors), r.Errors[0])).
		WithContext("errors", r.Errors)
}

// Log emits every finding at its own level.
func (r *Report) Log(logger *slog.Logger) {
	for _, e := range r.Errors {
		logger.Error("validation failed", slog.String("finding", e))
	}
	for _, w := range r.Warnings {
		logger.Warn("qa warning", slog.String("finding", w))
	}
	for _, i := range r.Infos {
		logger.Info("qa info", slog.String("finding", i))
	}
}

// WriteFile replaces the report at path.
func (r *Report) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".qa-*")
	if err != nil {
		return apperrors.NewStorageError("create qa report", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(r.String()); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("write qa report", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("close qa report", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageError("replace qa report", err)
	}
	return nil
}
