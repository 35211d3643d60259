// Package scan runs one catalog snapshot through ingest and graph
// construction and stamps the result with an id.
package scan

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/pgdeps/pkg/catalog"
	"github.com/leapstack-labs/pgdeps/pkg/core"
	"github.com/leapstack-labs/pgdeps/pkg/depgraph"
	"github.com/leapstack-labs/pgdeps/pkg/extract"
)

// Options configures a scan.
type Options struct {
	// Workers bounds parallel extraction. Zero uses GOMAXPROCS.
	Workers int
	// Extractor replaces the heuristic extractor when set.
	Extractor extract.Extractor
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Result is one completed scan. It is never modified; rescanning produces a
// new Result.
type Result struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Catalog  *catalog.Catalog
	Graph    *depgraph.Graph
}

// Duration returns how long the scan took.
func (r *Result) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Summary counts what a scan found.
type Summary struct {
	ScanID     string                  `json:"scan_id"`
	Objects    int                     `json:"objects"`
	Edges      int                     `json:"edges"`
	Unresolved int                     `json:"unresolved"`
	Cycles     int                     `json:"cycles"`
	ByKind     map[core.ObjectKind]int `json:"by_kind"`
	Duration   string                  `json:"duration"`
}

// Summary reports counts for the scan.
func (r *Result) Summary() Summary {
	return Summary{
		ScanID:     r.ID,
		Objects:    r.Graph.NodeCount(),
		Edges:      r.Graph.EdgeCount(),
		Unresolved: len(r.Graph.AllUnresolved()),
		Cycles:     len(r.Graph.DetectCycles()),
		ByKind:     r.Catalog.CountByKind(),
		Duration:   r.Duration().Round(time.Millisecond).String(),
	}
}

// Run ingests rows and builds the dependency graph.
func Run(rows []core.RawObject, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	res := &Result{ID: uuid.New().String(), Started: time.Now()}
	logger = logger.With("scan_id", res.ID)
	logger.Debug("starting scan", "rows", len(rows))

	cat, err := catalog.Ingest(rows)
	if err != nil {
		logger.Error("catalog ingest failed", "error", err)
		return nil, fmt.Errorf("scan %s: %w", res.ID, err)
	}
	res.Catalog = cat

	buildOpts := []depgraph.Option{
		depgraph.WithWorkers(opts.Workers),
		depgraph.WithLogger(logger),
	}
	if opts.Extractor != nil {
		buildOpts = append(buildOpts, depgraph.WithExtractor(opts.Extractor))
	}
	res.Graph = depgraph.Build(cat, buildOpts...)
	res.Finished = time.Now()

	logger.Info("scan complete",
		"objects", res.Graph.NodeCount(),
		"edges", res.Graph.EdgeCount(),
		"unresolved", len(res.Graph.AllUnresolved()),
		"duration", res.Duration().Round(time.Millisecond))
	return res, nil
}
