package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"msfcomp/internal/config"
	"msfcomp/internal/record"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestScanReader(t *testing.T) {
	input := "id A /x 1 /;\r\n" +
		"\n" +
		"   \n" +
		"id B /x 1\n" +
		"id C /y -2.5 /z word /;\n"

	s := New(config.DefaultConfig())
	var got []Result
	stats, err := s.ScanReader(context.Background(), "stdin", strings.NewReader(input), func(r Result) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, err)

	want := Stats{Total: 3, Valid: 2, Invalid: 1, Blank: 2}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Line)
	assert.True(t, got[0].Valid())
	assert.Equal(t, "A", got[0].Record.ID())

	assert.Equal(t, 4, got[1].Line)
	assert.False(t, got[1].Valid())
	assert.True(t, errors.Is(got[1].Err, record.ErrMalformed))
	assert.Nil(t, got[1].Record)

	assert.Equal(t, 5, got[2].Line)
	assert.Equal(t, "stdin", got[2].Source)
	v, _ := got[2].Record.Get("/y")
	assert.Equal(t, "-2.5", v)
}

func TestScanReader_HandlerErrorStops(t *testing.T) {
	s := New(config.DefaultConfig())
	stop := errors.New("stop")
	calls := 0
	_, err := s.ScanReader(context.Background(), "in", strings.NewReader("id A /x 1 /;\nid B /x 1 /;\n"), func(Result) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestScanReader_Cancelled(t *testing.T) {
	s := New(config.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ScanReader(ctx, "in", strings.NewReader("id A /x 1 /;\n"), func(Result) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanReader_LineTooLong(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Input.MaxLineBytes = 64
	s := New(cfg)

	long := "id A /x " + strings.Repeat("9", 100) + " /;\n"
	_, err := s.ScanReader(context.Background(), "in", strings.NewReader(long), func(Result) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in: read after line 0")
}

func TestScanFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 6; i++ {
		content := fmt.Sprintf("id F%d /n %d /;\nbad line\n", i, i)
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("f%d.msf", i), content))
	}

	cfg := config.DefaultConfig()
	cfg.Scan.Workers = 3
	s := New(cfg)

	var ids []string
	stats, err := s.ScanFiles(context.Background(), paths, func(r Result) error {
		if r.Valid() {
			ids = append(ids, r.Record.ID())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 12, Valid: 6, Invalid: 6}, stats)

	sort.Strings(ids)
	assert.Equal(t, []string{"F0", "F1", "F2", "F3", "F4", "F5"}, ids)
}

func TestScanFiles_MissingFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "ok.msf", "id A /x 1 /;\n")

	s := New(config.DefaultConfig())
	_, err := s.ScanFiles(context.Background(), []string{good, filepath.Join(dir, "missing.msf")}, func(Result) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.msf")
}

func TestCollect(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.msf", "id A /x 1 /;\nid B /;\nid C /x 2 /;\n")

	s := New(config.DefaultConfig())
	results, stats, err := s.Collect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	require.Len(t, results, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{results[0].Line, results[1].Line, results[2].Line})
	assert.False(t, results[1].Valid())
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "sub/b.msf", "")
	a := writeFile(t, dir, "a.msf", "")
	writeFile(t, dir, "notes.txt", "")
	explicit := writeFile(t, t.TempDir(), "explicit.txt", "")

	got, err := ExpandPaths([]string{dir, explicit}, config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, explicit}, got)

	_, err = ExpandPaths([]string{filepath.Join(dir, "nope")}, config.DefaultConfig())
	assert.Error(t, err)
}
