// Package scan sources record lines from files and streams and runs them
// through the record parser.
package scan

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"msfcomp/internal/config"
	"msfcomp/internal/logging"
	"msfcomp/internal/record"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of parsing one non-blank line.
type Result struct {
	Source string // file path or stream name
	Line   int    // 1-based physical line number
	Text   string
	Record *record.Record // nil when Err is set
	Err    error
}

// Valid reports whether the line parsed.
func (r Result) Valid() bool {
	return r.Err == nil && r.Record != nil
}

// Stats counts lines seen by a scan.
type Stats struct {
	Total   int `json:"total" yaml:"total"`
	Valid   int `json:"valid" yaml:"valid"`
	Invalid int `json:"invalid" yaml:"invalid"`
	Blank   int `json:"blank" yaml:"blank"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Total += other.Total
	s.Valid += other.Valid
	s.Invalid += other.Invalid
	s.Blank += other.Blank
}

// Handler receives each result. Returning an error stops the scan.
type Handler func(Result) error

// Scanner reads record lines.
type Scanner struct {
	maxLineBytes int
	workers      int
}

// New creates a scanner from configuration.
func New(cfg *config.Config) *Scanner {
	s := &Scanner{maxLineBytes: cfg.Input.MaxLineBytes, workers: cfg.Scan.Workers}
	if s.maxLineBytes <= 0 {
		s.maxLineBytes = bufio.MaxScanTokenSize
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

// ScanReader parses every line of r, calling fn for each non-blank line.
func (s *Scanner) ScanReader(ctx context.Context, source string, r io.Reader, fn Handler) (Stats, error) {
	var stats Stats

	sc := bufio.NewScanner(r)
	initial := 64 * 1024
	if initial > s.maxLineBytes {
		initial = s.maxLineBytes
	}
	sc.Buffer(make([]byte, 0, initial), s.maxLineBytes)

	line := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			stats.Blank++
			logging.ScanDebug("%s:%d blank, skipped", source, line)
			continue
		}

		stats.Total++
		res := Result{Source: source, Line: line, Text: text}
		rec, err := record.Parse(text)
		if err != nil {
			stats.Invalid++
			res.Err = err
			logging.ParseDebug("%s:%d rejected: %v", source, line, err)
		} else {
			stats.Valid++
			res.Record = rec
		}

		if err := fn(res); err != nil {
			return stats, err
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("%s: read after line %d: %w", source, line, err)
	}
	return stats, nil
}

// ScanFile opens path and scans it.
func (s *Scanner) ScanFile(ctx context.Context, path string, fn Handler) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	timer := logging.StartTimer(logging.CategoryScan, "scan "+path)
	stats, err := s.ScanReader(ctx, path, f, fn)
	timer.Stop()
	if err == nil {
		logging.Scan("%s: %d records, %d valid, %d invalid", path, stats.Total, stats.Valid, stats.Invalid)
	}
	return stats, err
}

// ScanFiles scans paths concurrently, bounded by the configured worker
// count. fn is never called concurrently. The first error cancels the
// remaining files.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string, fn Handler) (Stats, error) {
	var (
		mu    sync.Mutex
		total Stats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, p := range paths {
		path := p
		g.Go(func() error {
			stats, err := s.ScanFile(gctx, path, func(r Result) error {
				mu.Lock()
				defer mu.Unlock()
				return fn(r)
			})
			mu.Lock()
			total.Add(stats)
			mu.Unlock()
			if err != nil {
				logging.ScanWarn("scan of %s failed: %v", path, err)
			}
			return err
		})
	}

	err := g.Wait()
	return total, err
}

// Collect scans a single file and returns all results in line order.
func (s *Scanner) Collect(ctx context.Context, path string) ([]Result, Stats, error) {
	var results []Result
	stats, err := s.ScanFile(ctx, path, func(r Result) error {
		results = append(results, r)
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return results, stats, nil
}

// ExpandPaths replaces each directory in paths by the record files below it.
// Plain file arguments are kept as given regardless of extension.
func ExpandPaths(paths []string, cfg *config.Config) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && cfg.HasRecordExtension(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", p, err)
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}
