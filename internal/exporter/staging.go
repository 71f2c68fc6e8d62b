package exporter

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "cotcli/internal/errors"
	"cotcli/internal/frame"
)

// TableExt is the file extension of exported tables.
const TableExt = ".csv"

// Output describes one staged file.
type Output struct {
	Name    string `json:"name"`
	File    string `json:"file"`
	Rows    int    `json:"rows"`
	Bytes   int64  `json:"bytes"`
	BLAKE2b string `json:"blake2b_256"`
}

// Staging collects the files of one run before they are published.
type Staging struct {
	outDir string
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	files []string
	done  bool
}

// NewStaging creates a private staging directory under outDir.
func NewStaging(outDir string, logger *slog.Logger) (*Staging, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, apperrors.NewStorageError(fmt.Sprintf("create output directory %s", outDir), err)
	}
	dir := filepath.Join(outDir, ".staging-"+uuid.New().String())
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, apperrors.NewStorageError("create staging directory", err)
	}
	return &Staging{
		outDir: outDir,
		dir:    dir,
		logger: logger.With("component", "exporter"),
	}, nil
}

// Dir returns the staging directory.
func (s *Staging) Dir() string { return s.dir }

// track registers a staged file name. Commit order follows staging order
// for each call; files written concurrently by one call are ordered by
// argument position.
func (s *Staging) track(names ...string) {
	s.mu.Lock()
	s.files = append(s.files, names...)
	s.mu.Unlock()
}

// WriteTables renders every frame as <name>.csv concurrently and returns
// the outputs in argument order.
func (s *Staging) WriteTables(ctx context.Context, frames ...*frame.Frame) ([]Output, error) {
	outputs := make([]Output, len(frames))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range frames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := s.writeTable(f)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	names := make([]string, len(outputs))
	for i, o := range outputs {
		names[i] = o.File
		s.logger.InfoContext(ctx, "staged table",
			slog.String("table", o.Name),
			slog.Int("rows", o.Rows),
			slog.Int64("bytes", o.Bytes))
	}
	s.track(names...)
	return outputs, nil
}

func (s *Staging) writeTable(f *frame.Frame) (Output, error) {
	file := f.Name() + TableExt
	out, err := s.writeFile(file, f.Name(), f.Len(), f.WriteCSV)
	if err != nil {
		return Output{}, apperrors.NewStorageError(fmt.Sprintf("write table %s", f.Name()), err)
	}
	return out, nil
}

// WriteFile stages an arbitrary file produced by render.
func (s *Staging) WriteFile(file string, rows int, render func(io.Writer) error) (Output, error) {
	out, err := s.writeFile(file, file, rows, render)
	if err != nil {
		return Output{}, apperrors.NewStorageError(fmt.Sprintf("write %s", file), err)
	}
	s.track(file)
	return out, nil
}

func (s *Staging) writeFile(file, name string, rows int, render func(io.Writer) error) (Output, error) {
	fh, err := os.Create(filepath.Join(s.dir, file))
	if err != nil {
		return Output{}, err
	}
	defer fh.Close()

	h := newDigest()
	var n countingWriter
	buf := bufio.NewWriter(io.MultiWriter(fh, h, &n))
	if err := render(buf); err != nil {
		return Output{}, err
	}
	if err := buf.Flush(); err != nil {
		return Output{}, err
	}
	if err := fh.Close(); err != nil {
		return Output{}, err
	}
	return Output{
		Name:    name,
		File:    file,
		Rows:    rows,
		Bytes:   n.n,
		BLAKE2b: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Commit moves every staged file into the output directory and removes the
// staging directory. It stops at the first failed rename. Files renamed
// before the failure stay published; they are listed in the error's
// "published" context, and the files after it, the metrics table included,
// keep their previous versions.
func (s *Staging) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return apperrors.NewStorageError("staging already finished", nil)
	}
	for i, file := range s.files {
		if err := os.Rename(filepath.Join(s.dir, file), filepath.Join(s.outDir, file)); err != nil {
			published := append([]string(nil), s.files[:i]...)
			s.logger.Error("snapshot partially published",
				slog.String("failed", file),
				slog.Any("published", published),
				slog.String("error", err.Error()))
			return apperrors.NewStorageError(fmt.Sprintf("publish %s", file), err).
				WithContext("published", published)
		}
	}
	s.done = true
	s.logger.Info("snapshot published",
		slog.String("dir", s.outDir),
		slog.Int("files", len(s.files)))
	return os.RemoveAll(s.dir)
}

// Abort discards the staging directory. It is a no-op after Commit.
func (s *Staging) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	return os.RemoveAll(s.dir)
}
