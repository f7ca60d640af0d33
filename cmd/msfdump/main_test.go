package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"msfcomp/internal/config"
	"msfcomp/internal/scan"
	"msfcomp/internal/store"
)

func TestDumpDBOutput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "records.db")

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	var results []scan.Result
	s := scan.New(config.DefaultConfig())
	_, err = s.ScanReader(context.Background(), "a.msf", strings.NewReader("id A /x 1 /y name /;\n"), func(r scan.Result) error {
		results = append(results, r)
		return nil
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if _, err := st.SaveBatch(context.Background(), "a.msf", results); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	var dumpErr error
	output := captureStdout(func() {
		dumpErr = dumpDB(dbPath, 5)
	})
	if dumpErr != nil {
		t.Fatalf("dumpDB failed: %v", dumpErr)
	}

	for _, want := range []string{
		"Tables: [batches fields records",
		"=== records ===",
		"raw=id A /x 1 /y name /;",
		"Total records: 1",
		"Total fields: 3",
		"Total batches: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func captureStdout(fn func()) string {
	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	fn()

	_ = w.Close()
	os.Stdout = orig
	out := <-done
	_ = r.Close()
	return out
}
