// Package filament extracts the geometric skeleton of the cosmic web: a
// proximity graph linking every galaxy pair closer than a configured
// radius, plus a solidification step that turns the skeleton into a
// renderable triangle-quad mesh.
package filament

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/cosmoweb/catalog"
	"github.com/hupe1980/cosmoweb/spatial"
)

// Edge is an undirected link between two catalog indices. The invariant
// A < B holds for every stored edge, which is what makes deduplication and
// equality checks trivial.
type Edge struct {
	A        int
	B        int
	Distance float64
}

// Stats summarizes the built graph. A degenerate graph (no edges, or one
// component per point) is not an error; these numbers exist so the caller
// can tune the linking radius.
type Stats struct {
	EdgeCount  int
	Components int
	MeanDegree float64
}

// Graph is a proximity graph over a catalog's point indices. It is
// immutable after Build returns.
type Graph struct {
	Edges []Edge
	Stats Stats
}

// Options contains configuration options for graph construction.
type Options struct {
	// Parallelism bounds the number of concurrent neighbor-query workers.
	Parallelism int
}

// DefaultOptions contains the default graph construction configuration.
var DefaultOptions = Options{
	Parallelism: runtime.GOMAXPROCS(0),
}

// Build links every unordered pair of catalog points within linkingRadius
// of each other. Edges are found by one radius query per point, keeping
// only neighbors with a larger index so each pair appears exactly once and
// self matches are dropped. The result is sorted by (A, B) and therefore
// deterministic regardless of parallelism.
func Build(ctx context.Context, c *catalog.Catalog, linkingRadius float64, optFns ...func(o *Options)) (*Graph, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Parallelism < 1 {
		return nil, fmt.Errorf("filament: parallelism must be at least 1, got %d", opts.Parallelism)
	}
	if linkingRadius <= 0 {
		return nil, fmt.Errorf("filament: linking radius must be positive, got %g", linkingRadius)
	}

	ix, err := spatial.Build(c)
	if err != nil {
		return nil, err
	}

	n := c.Len()
	workers := opts.Parallelism
	if workers > n {
		workers = n
	}
	partials := make([][]Edge, workers)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			var edges []Edge
			lo := w * chunk
			hi := min(lo+chunk, n)
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				for _, nb := range ix.Radius(c.Point(i), linkingRadius) {
					if nb.Index <= i {
						continue
					}
					edges = append(edges, Edge{A: i, B: nb.Index, Distance: nb.Distance})
				}
			}
			partials[w] = edges
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var edges []Edge
	for _, part := range partials {
		edges = append(edges, part...)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})

	return &Graph{
		Edges: edges,
		Stats: Stats{
			EdgeCount:  len(edges),
			Components: componentCount(n, edges),
			MeanDegree: meanDegree(n, edges),
		},
	}, nil
}

func meanDegree(n int, edges []Edge) float64 {
	if n == 0 {
		return 0
	}
	return 2 * float64(len(edges)) / float64(n)
}

// componentCount runs union-find over the edge set. Isolated points each
// count as their own component.
func componentCount(n int, edges []Edge) int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]] // path halving
			x = parent[x]
		}
		return x
	}
	count := n
	for _, e := range edges {
		ra, rb := find(e.A), find(e.B)
		if ra != rb {
			parent[ra] = rb
			count--
		}
	}
	return count
}
