package depgraph

import (
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/pgdeps/pkg/catalog"
	"github.com/leapstack-labs/pgdeps/pkg/core"
	"github.com/leapstack-labs/pgdeps/pkg/extract"
)

type options struct {
	extractor extract.Extractor
	workers   int
	logger    *slog.Logger
}

// Option configures Build.
type Option func(*options)

// WithExtractor replaces the default heuristic extractor.
func WithExtractor(e extract.Extractor) Option {
	return func(o *options) {
		if e != nil {
			o.extractor = e
		}
	}
}

// WithWorkers bounds the number of objects extracted concurrently.
// Values below 1 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Build extracts the references of every catalog object and assembles the
// graph. Extraction runs in parallel, each worker writing only its own
// result slot; the fold into the graph happens afterwards on one goroutine.
func Build(cat *catalog.Catalog, opts ...Option) *Graph {
	o := options{
		extractor: extract.Heuristic{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	objects := cat.Objects()
	results := make([]extract.Result, len(objects))

	var eg errgroup.Group
	eg.SetLimit(o.workers)
	for i, obj := range objects {
		eg.Go(func() error {
			results[i] = o.extractor.Extract(obj, cat)
			return nil
		})
	}
	_ = eg.Wait() // workers never fail

	g := newGraph(cat, cat.IDs())
	unresolved := 0
	for i, res := range results {
		from := objects[i].ID
		dangling := res.Unresolved
		for _, ref := range res.References {
			to, ok := g.index[ref.Target]
			if !ok {
				o.logger.Warn("extractor returned a target outside the catalog",
					"object", from.Key(), "target", ref.Target.Key())
				dangling = addDangling(dangling, ref.Target)
				continue
			}
			g.addEdge(i, to, core.KindsOf(ref.Kind))
		}
		g.unresolved[i] = dangling
		unresolved += len(dangling)
		if len(dangling) > 0 {
			o.logger.Debug("unresolved references", "object", from.Key(), "count", len(dangling))
		}
	}
	g.seal()

	o.logger.Info("dependency graph built",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"unresolved", unresolved,
		"workers", o.workers)
	return g
}

// addDangling records a reference to an object the catalog does not hold.
// The extractor's own entries are left untouched.
func addDangling(list []extract.Unresolved, target core.ObjectID) []extract.Unresolved {
	text := target.Qualified()
	for _, u := range list {
		if u.Text == text && u.Reason == extract.ReasonUnknown {
			return list
		}
	}
	out := make([]extract.Unresolved, len(list), len(list)+1)
	copy(out, list)
	return append(out, extract.Unresolved{Text: text, Reason: extract.ReasonUnknown})
}
