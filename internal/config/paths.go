package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Well-known file names inside the compute output directory.
const (
	ManifestFile = "manifest.json"
	QAReportFile = "qa_report.txt"
	WorkbookFile = "market_views.xlsx"
	TableExt     = ".csv"
)

// Paths contains every resolved file system location a run touches.
type Paths struct {
	Root       string
	Canonical  string
	Markets    string
	ComputeDir string
	LockFile   string
	QAReport   string
	Manifest   string
	Workbook   string
}

// Resolve turns the configured paths into absolute ones. Relative entries
// resolve against Root; the lock file resolves against the compute
// directory.
func (p PathsConfig) Resolve() (*Paths, error) {
	root := p.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", p.Root, err)
	}

	under := func(base, path string) string {
		if filepath.IsAbs(path) {
			return filepath.Clean(path)
		}
		return filepath.Join(base, path)
	}

	computeDir := under(root, p.ComputeDir)
	lockFile := p.LockFile
	if lockFile == "" {
		lockFile = ".pipeline.lock"
	}
	return &Paths{
		Root:       root,
		Canonical:  under(root, p.Canonical),
		Markets:    under(root, p.Markets),
		ComputeDir: computeDir,
		LockFile:   under(computeDir, lockFile),
		QAReport:   filepath.Join(computeDir, QAReportFile),
		Manifest:   filepath.Join(computeDir, ManifestFile),
		Workbook:   filepath.Join(computeDir, WorkbookFile),
	}, nil
}

// TablePath returns the output path of a named table.
func (p *Paths) TablePath(table string) string {
	return filepath.Join(p.ComputeDir, table+TableExt)
}

// EnsureDirectories creates the compute output directory.
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.ComputeDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", p.ComputeDir, err)
	}
	return nil
}

// LogPathResolution logs all resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("resolved paths",
		slog.String("root", p.Root),
		slog.String("canonical", p.Canonical),
		slog.String("markets", p.Markets),
		slog.String("compute_dir", p.ComputeDir),
		slog.String("lock_file", p.LockFile))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
