// Package extsort sorts a file of length-framed byte records into a new
// file under a caller-supplied total order, spilling sorted runs to disk and
// merging them with a tournament tree when the input exceeds the in-memory
// run size.
package extsort

import (
	"fmt"
	"io"
	"iter"

	"github.com/charmbracelet/log"
	"github.com/google/btree"

	"github.com/bastiangx/termspill/internal/logger"
	"github.com/bastiangx/termspill/internal/loser"
	"github.com/bastiangx/termspill/internal/utils"
	"github.com/bastiangx/termspill/pkg/recordio"
)

// DefaultRunSize is the number of records accumulated in memory before a
// run is flushed to disk.
const DefaultRunSize = 131072

// Options configures a sort.
type Options struct {
	// RunSize caps the records held in memory per run. Defaults to
	// DefaultRunSize.
	RunSize int

	// TempDir receives intermediate run files. Empty means the OS temp
	// dir.
	TempDir string

	// Logger for run spill and merge progress. Defaults to a package
	// logger.
	Logger *log.Logger
}

func (o *Options) withDefaults() Options {
	opts := Options{}
	if o != nil {
		opts = *o
	}
	if opts.RunSize <= 0 {
		opts.RunSize = DefaultRunSize
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("extsort")
	}
	return opts
}

// runItem keeps one record in the in-memory run. The insertion sequence
// breaks ties between records that compare equal, so duplicate entries
// survive the btree (which otherwise replaces equal items).
type runItem struct {
	rec []byte
	seq uint64
}

// Sort reads length-framed records from inputPath and writes them to
// outputPath in the order given by cmp. Records equal under cmp keep no
// particular relative order. Intermediate run files are always removed,
// whether the sort succeeds or fails. An empty input yields an empty output
// file.
func Sort(inputPath, outputPath string, cmp func(a, b []byte) int, opts *Options) error {
	o := opts.withDefaults()

	in, err := recordio.OpenReader(inputPath)
	if err != nil {
		return fmt.Errorf("extsort: failed to open input: %w", err)
	}
	defer in.Close()

	less := func(a, b runItem) bool {
		if c := cmp(a.rec, b.rec); c != 0 {
			return c < 0
		}
		return a.seq < b.seq
	}

	var (
		run      = btree.NewG(2, less)
		runPaths []string
		seq      uint64
		total    int
	)
	defer func() {
		for _, p := range runPaths {
			if rmErr := utils.RemoveIfExists(p); rmErr != nil {
				o.Logger.Warnf("Failed to remove run file %s: %v", p, rmErr)
			}
		}
	}()

	for {
		rec, readErr := in.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("extsort: failed to read input record: %w", readErr)
		}
		run.ReplaceOrInsert(runItem{rec: rec, seq: seq})
		seq++
		total++

		if run.Len() >= o.RunSize {
			path, flushErr := flushRun(run, o.TempDir)
			if flushErr != nil {
				return flushErr
			}
			runPaths = append(runPaths, path)
			o.Logger.Debugf("Spilled run %d (%d records)", len(runPaths), run.Len())
			run = btree.NewG(2, less)
		}
	}

	// Common case: everything fit in one run, write it straight out.
	if len(runPaths) == 0 {
		o.Logger.Debugf("Sorting %d records in memory", total)
		return writeRun(run, outputPath)
	}

	if run.Len() > 0 {
		path, flushErr := flushRun(run, o.TempDir)
		if flushErr != nil {
			return flushErr
		}
		runPaths = append(runPaths, path)
		o.Logger.Debugf("Spilled final run %d (%d records)", len(runPaths), run.Len())
	}

	o.Logger.Debugf("Merging %d runs (%d records)", len(runPaths), total)
	return mergeRuns(runPaths, outputPath, cmp)
}

// writeRun streams one in-memory run to path in ascending order.
func writeRun(run *btree.BTreeG[runItem], path string) error {
	w, err := recordio.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("extsort: failed to create run file: %w", err)
	}

	var writeErr error
	run.Ascend(func(item runItem) bool {
		if writeErr = w.Append(item.rec); writeErr != nil {
			return false
		}
		return true
	})
	if writeErr != nil {
		w.Close()
		return fmt.Errorf("extsort: failed to write run record: %w", writeErr)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("extsort: failed to close run file: %w", err)
	}
	return nil
}

func flushRun(run *btree.BTreeG[runItem], tempDir string) (string, error) {
	path, err := utils.TempFile(tempDir, "termspill-run-*.bin")
	if err != nil {
		return "", fmt.Errorf("extsort: failed to provision run file: %w", err)
	}
	if err := writeRun(run, path); err != nil {
		utils.RemoveIfExists(path)
		return "", err
	}
	return path, nil
}

// runSequence adapts a run file to a loser.Sequence. A read failure ends
// the sequence early and is kept in err for the caller to surface after the
// merge.
type runSequence struct {
	path string
	err  error
}

func (s *runSequence) All() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		r, err := recordio.OpenReader(s.path)
		if err != nil {
			s.err = err
			return
		}
		defer r.Close()
		for {
			rec, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				s.err = err
				return
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// mergeRuns merges the sorted run files into outputPath. nil stands in as
// the exhausted-sequence sentinel; real records are never nil since the
// reader returns non-nil slices even for empty frames.
func mergeRuns(runPaths []string, outputPath string, cmp func(a, b []byte) int) error {
	sequences := make([]loser.Sequence[[]byte], 0, len(runPaths))
	runs := make([]*runSequence, 0, len(runPaths))
	for _, p := range runPaths {
		rs := &runSequence{path: p}
		runs = append(runs, rs)
		sequences = append(sequences, rs)
	}

	less := func(a, b []byte) bool {
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return cmp(a, b) < 0
	}

	w, err := recordio.OpenWriter(outputPath)
	if err != nil {
		return fmt.Errorf("extsort: failed to create output: %w", err)
	}

	var writeErr error
	tree := loser.New(sequences, nil, less)
	for rec := range tree.All() {
		if writeErr = w.Append(rec); writeErr != nil {
			break
		}
	}
	if writeErr != nil {
		w.Close()
		return fmt.Errorf("extsort: failed to write merged record: %w", writeErr)
	}
	for _, rs := range runs {
		if rs.err != nil {
			w.Close()
			return fmt.Errorf("extsort: failed to read run %s: %w", rs.path, rs.err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("extsort: failed to close output: %w", err)
	}
	return nil
}
