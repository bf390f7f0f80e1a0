package extsort_test

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastiangx/termspill/pkg/extsort"
	"github.com/bastiangx/termspill/pkg/recordio"
)

func writeInput(t *testing.T, path string, records [][]byte) {
	t.Helper()
	w, err := recordio.OpenWriter(path)
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, w.Append(rec))
	}
	require.NoError(t, w.Close())
}

func readOutput(t *testing.T, path string) [][]byte {
	t.Helper()
	r, err := recordio.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var got [][]byte
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return got
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		name    string
		records [][]byte
		runSize int
		want    [][]byte
	}{
		{
			name:    "single run",
			records: [][]byte{[]byte("pear"), []byte("apple"), []byte("fig")},
			want:    [][]byte{[]byte("apple"), []byte("fig"), []byte("pear")},
		},
		{
			name:    "run size forces spills",
			records: [][]byte{[]byte("e"), []byte("d"), []byte("c"), []byte("b"), []byte("a")},
			runSize: 2,
			want:    [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")},
		},
		{
			name:    "duplicates preserved across runs",
			records: [][]byte{[]byte("b"), []byte("a"), []byte("b"), []byte("a"), []byte("b")},
			runSize: 2,
			want:    [][]byte{[]byte("a"), []byte("a"), []byte("b"), []byte("b"), []byte("b")},
		},
		{
			name:    "already sorted",
			records: [][]byte{[]byte("a"), []byte("b"), []byte("c")},
			want:    [][]byte{[]byte("a"), []byte("b"), []byte("c")},
		},
		{
			name:    "empty input yields empty output",
			records: [][]byte{},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			inPath := filepath.Join(dir, "in.bin")
			outPath := filepath.Join(dir, "out.bin")
			writeInput(t, inPath, tt.records)

			tmpDir := t.TempDir()
			opts := &extsort.Options{RunSize: tt.runSize, TempDir: tmpDir}
			require.NoError(t, extsort.Sort(inPath, outPath, bytes.Compare, opts))

			assert.Equal(t, tt.want, readOutput(t, outPath))

			// Intermediate run files never outlive the sort.
			leftovers, err := filepath.Glob(filepath.Join(tmpDir, "termspill-run-*"))
			require.NoError(t, err)
			assert.Empty(t, leftovers)
		})
	}
}

func TestSortLargeInput(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.bin")
	outPath := filepath.Join(dir, "out.bin")

	var records [][]byte
	for i := 999; i >= 0; i-- {
		records = append(records, []byte(fmt.Sprintf("term-%04d", i)))
	}
	writeInput(t, inPath, records)

	opts := &extsort.Options{RunSize: 64, TempDir: t.TempDir()}
	require.NoError(t, extsort.Sort(inPath, outPath, bytes.Compare, opts))

	got := readOutput(t, outPath)
	require.Len(t, got, 1000)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, bytes.Compare(got[i-1], got[i]), 0,
			"output out of order at %d", i)
	}
}

func TestSortMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := extsort.Sort(filepath.Join(dir, "nope.bin"), filepath.Join(dir, "out.bin"), bytes.Compare, nil)
	assert.Error(t, err)
}
