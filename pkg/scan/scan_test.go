package scan

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgdeps/internal/testutil"
	"github.com/leapstack-labs/pgdeps/pkg/core"
)

func TestRun(t *testing.T) {
	res, err := Run(testutil.OrderSchema(), Options{Workers: 2, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	_, err = uuid.Parse(res.ID)
	require.NoError(t, err, "scan id must be a uuid")
	assert.False(t, res.Started.IsZero())
	assert.False(t, res.Finished.Before(res.Started))
	assert.Equal(t, len(testutil.OrderSchema()), res.Catalog.Len())
	assert.Equal(t, res.Catalog.Len(), res.Graph.NodeCount())
	assert.Same(t, res.Catalog, res.Graph.Catalog())

	sum := res.Summary()
	assert.Equal(t, res.ID, sum.ScanID)
	assert.Equal(t, res.Graph.EdgeCount(), sum.Edges)
	assert.Equal(t, 0, sum.Cycles)
	assert.Equal(t, 8, sum.ByKind[core.KindTable])
}

func TestRun_IDsAreUnique(t *testing.T) {
	a, err := Run(testutil.OrderSchema(), Options{})
	require.NoError(t, err)
	b, err := Run(testutil.OrderSchema(), Options{})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Graph.Edges(), b.Graph.Edges())
}

func TestRun_Duplicate(t *testing.T) {
	rows := append(testutil.OrderSchema(), core.RawObject{Schema: "TEST", Name: "Orders", Kind: "table"})

	_, err := Run(rows, Options{})
	var dup *core.DuplicateObjectError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, testutil.ID("orders", core.KindTable), dup.ID)
}

func TestRun_Cycles(t *testing.T) {
	res, err := Run(testutil.RecursiveOrderSchema(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary().Cycles)
}

func TestRun_Logging(t *testing.T) {
	logger, rec := testutil.NewRecordingLogger()

	res, err := Run(testutil.OrderSchema(), Options{Logger: logger})
	require.NoError(t, err)

	done, ok := rec.Find("scan complete")
	require.True(t, ok)
	assert.Equal(t, slog.LevelInfo, done.Level)
	assert.Equal(t, res.ID, done.Attrs["scan_id"])
	assert.Equal(t, int64(res.Graph.NodeCount()), done.Attrs["objects"])
	assert.Equal(t, int64(res.Graph.EdgeCount()), done.Attrs["edges"])

	built, ok := rec.Find("dependency graph built")
	require.True(t, ok)
	assert.Equal(t, res.ID, built.Attrs["scan_id"], "build logs carry the scan id")

	logger, rec = testutil.NewRecordingLogger()
	rows := append(testutil.OrderSchema(), core.RawObject{Schema: "test", Name: "orders", Kind: "table"})
	_, err = Run(rows, Options{Logger: logger})
	require.Error(t, err)

	failed, ok := rec.Find("catalog ingest failed")
	require.True(t, ok)
	assert.Equal(t, slog.LevelError, failed.Level)
	assert.Contains(t, err.Error(), failed.Attrs["scan_id"])
}
