package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"msfcomp/internal/config"
	"msfcomp/internal/scan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "db", "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func results(t *testing.T, source, content string) []scan.Result {
	t.Helper()
	var out []scan.Result
	s := scan.New(config.DefaultConfig())
	_, err := s.ScanReader(context.Background(), source, strings.NewReader(content), func(r scan.Result) error {
		out = append(out, r)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestSaveBatch(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	res := results(t, "a.msf", "id A /x 1 /y 2.5 /;\nnot a record\nid B /z w /;\n")
	b, err := st.SaveBatch(ctx, "a.msf", res)
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, 2, b.Valid)
	assert.Equal(t, 1, b.Invalid)

	records, fields, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, records)
	assert.Equal(t, 5, fields) // A: id,/x,/y  B: id,/z

	recs, err := st.RecordsByID(ctx, "A")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	v, ok := recs[0].Get("/y")
	require.True(t, ok)
	assert.Equal(t, "2.5", v)
}

func TestRecordsByID_AcrossBatches(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.SaveBatch(ctx, "one.msf", results(t, "one.msf", "id A /v 1 /;\n"))
	require.NoError(t, err)
	_, err = st.SaveBatch(ctx, "two.msf", results(t, "two.msf", "id A /v 2 /;\n"))
	require.NoError(t, err)

	recs, err := st.RecordsByID(ctx, "A")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	first, _ := recs[0].Get("/v")
	second, _ := recs[1].Get("/v")
	assert.Equal(t, "1", first)
	assert.Equal(t, "2", second)

	none, err := st.RecordsByID(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReplaceSource(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := st.SaveBatch(ctx, "a.msf", results(t, "a.msf", "id A /v 1 /;\nid B /v 1 /;\n"))
	require.NoError(t, err)
	_, err = st.SaveBatch(ctx, "keep.msf", results(t, "keep.msf", "id K /v 1 /;\n"))
	require.NoError(t, err)

	b, err := st.ReplaceSource(ctx, "a.msf", results(t, "a.msf", "id C /v 3 /;\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Valid)

	batches, err := st.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, b.ID, batches[0].ID, "newest batch first")

	recs, err := st.RecordsByID(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, recs)

	records, fields, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, records)
	assert.Equal(t, 4, fields)
}

func TestDeleteSource(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := st.SaveBatch(ctx, "a.msf", results(t, "a.msf", "id A /v 1 /;\n"))
		require.NoError(t, err)
	}

	n, err := st.DeleteSource(ctx, "a.msf")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, fields, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, records)
	assert.Zero(t, fields)

	n, err = st.DeleteSource(ctx, "a.msf")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	_, err = st.SaveBatch(ctx, "a.msf", results(t, "a.msf", "id A /v 1 /;\n"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()
	assert.Equal(t, path, st.Path())

	batches, err := st.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "a.msf", batches[0].Source)
	assert.False(t, batches[0].CreatedAt.IsZero())
}
