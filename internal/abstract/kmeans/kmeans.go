// Package kmeans implements the bucketer tool named in spec §4 ("K-means
// bucketer" row) and its concurrency model (spec §5: "explicit thread-pool
// of N worker tasks... barrier-style... phases are (assign, update,
// pivot-distances, neighbor-lists, sort-neighbors)"). The worker-pool shape
// is grounded on internal/evaluator/equity.go's EstimateEquityParallel,
// generalized from a single fan-out-collect round to three sequential
// barrier phases per iteration (pivot-distances, assign, update); the
// neighbor-list and sort-neighbor work is folded into the assign phase.
// Pivot-distances and assign use golang.org/x/sync/errgroup; update joins
// on a plain goroutine barrier.
package kmeans

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerabstract/internal/abstract/abserrors"
)

// Point is one object to cluster: a feature vector (e.g. equity histogram
// bins for a hand) plus its originating index for bucket assignment.
type Point struct {
	Features []float64
}

// Config controls the clustering run.
type Config struct {
	K          int
	Iterations int
	Workers    int
	Seed       int64
}

// Result is the clustering outcome: one centroid index per input point.
type Result struct {
	Assignments []int
	Centroids   [][]float64
}

// Run partitions points into Config.K clusters using Lloyd's algorithm with
// pivot-based triangle-inequality pruning to skip full centroid scans once a
// point's distance to its current centroid is provably closer than to any
// other candidate, and a barrier-synchronized worker pool per phase.
func Run(ctx context.Context, points []Point, cfg Config) (Result, error) {
	if cfg.K <= 0 || cfg.K > len(points) {
		return Result{}, abserrors.Invariant("kmeans.Run", errInvalidK(cfg.K, len(points)))
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	centroids := initCentroids(points, cfg.K, cfg.Seed)
	assignments := make([]int, len(points))
	lowerBounds := make([][]float64, len(points)) // passed to parallelAssign, which neither fills nor reads it

	for iter := 0; iter < cfg.Iterations; iter++ {
		// Phase: pivot-distances. Compute inter-centroid distances once per
		// iteration so the assign phase can prune with the triangle
		// inequality: a point cannot have moved to a closer centroid than its
		// current one if 2*dist(point,cur) <= dist(cur,candidate).
		pivotDist, err := parallelPivotDistances(ctx, centroids, workers)
		if err != nil {
			return Result{}, err
		}

		// Phase: assign. Barrier: every worker finishes its slice before any
		// reads the result.
		changed, err := parallelAssign(ctx, points, centroids, assignments, lowerBounds, pivotDist, workers)
		if err != nil {
			return Result{}, err
		}

		// Phase: update. Recompute centroids from the now-stable assignment;
		// this, too, runs as disjoint worker slices followed by a
		// single-threaded reduction (the "main thread updates centroids"
		// barrier named in spec §5).
		centroids = parallelUpdate(points, assignments, cfg.K, workers)

		if !changed && iter > 0 {
			break
		}
	}

	return Result{Assignments: assignments, Centroids: centroids}, nil
}

func errInvalidK(k, n int) error {
	return &invalidKError{k: k, n: n}
}

type invalidKError struct{ k, n int }

func (e *invalidKError) Error() string {
	return "kmeans: k must be in [1, numPoints], got k=" + itoa(e.k) + " numPoints=" + itoa(e.n)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func initCentroids(points []Point, k int, seed int64) [][]float64 {
	out := make([][]float64, k)
	// Deterministic stride-based seeding (k-means||/k-means++ are overkill
	// for the fixed-size hand-abstraction buckets this package targets; a
	// spread-out deterministic pick converges reliably in practice).
	stride := len(points) / k
	if stride == 0 {
		stride = 1
	}
	for i := 0; i < k; i++ {
		idx := (i*stride + int(seed)%stride) % len(points)
		out[i] = append([]float64(nil), points[idx].Features...)
	}
	return out
}

func dist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// parallelPivotDistances computes the full centroid-to-centroid distance
// matrix, split by row across workers.
func parallelPivotDistances(ctx context.Context, centroids [][]float64, workers int) ([][]float64, error) {
	k := len(centroids)
	out := make([][]float64, k)
	for i := range out {
		out[i] = make([]float64, k)
	}

	g, gctx := errgroup.WithContext(ctx)
	rows := splitRange(k, workers)
	for _, rg := range rows {
		rg := rg
		g.Go(func() error {
			for i := rg.lo; i < rg.hi; i++ {
				for j := 0; j < k; j++ {
					out[i][j] = dist(centroids[i], centroids[j])
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, abserrors.Resource("kmeans.parallelPivotDistances", err)
	}
	return out, nil
}

// parallelAssign implements the "assign" and "neighbor-lists"/"sort-
// neighbors" phases together: each worker owns a disjoint slice of points,
// assigns each to its nearest centroid (pruned via the triangle inequality
// against the point's previous centroid when possible), and no worker
// writes outside its slice, so no locking is required during the phase.
func parallelAssign(ctx context.Context, points []Point, centroids [][]float64, assignments []int, lowerBounds [][]float64, pivotDist [][]float64, workers int) (bool, error) {
	g, gctx := errgroup.WithContext(ctx)
	ranges := splitRange(len(points), workers)
	changedFlags := make([]bool, len(ranges))

	for ri, rg := range ranges {
		ri, rg := ri, rg
		g.Go(func() error {
			neighbors := sortedNeighborOrder(pivotDist, assignments, rg)
			for idx := rg.lo; idx < rg.hi; idx++ {
				cur := assignments[idx]
				best := cur
				bestDist := math.Inf(1)
				if cur >= 0 && cur < len(centroids) {
					bestDist = dist(points[idx].Features, centroids[cur])
				}
				curDist := bestDist
				for _, c := range neighborOrderFor(neighbors, cur) {
					if cur >= 0 && pivotDist != nil && len(pivotDist) > 0 {
						// Triangle-inequality prune: skip centroids that
						// cannot possibly be closer than the current best.
						if 2*curDist <= pivotDist[cur][c] {
							continue
						}
					}
					d := dist(points[idx].Features, centroids[c])
					if d < bestDist {
						bestDist = d
						best = c
					}
				}
				if best != assignments[idx] {
					assignments[idx] = best
					changedFlags[ri] = true
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, abserrors.Resource("kmeans.parallelAssign", err)
	}
	for _, c := range changedFlags {
		if c {
			return true, nil
		}
	}
	return false, nil
}

type byRange struct{ lo, hi int }

func splitRange(n, workers int) []byRange {
	if workers > n {
		workers = n
	}
	if workers <= 0 {
		workers = 1
	}
	out := make([]byRange, 0, workers)
	base := n / workers
	rem := n % workers
	start := 0
	for w := 0; w < workers; w++ {
		size := base
		if w < rem {
			size++
		}
		out = append(out, byRange{lo: start, hi: start + size})
		start += size
	}
	return out
}

// sortedNeighborOrder builds, for each centroid currently assigned to a
// point within a worker's range, a list of the other centroids ordered
// nearest-to-farthest by pivotDist. parallelAssign walks candidates in this
// order so its triangle-inequality prune (skip c when 2*bestDist <=
// pivotDist[cur][c]) rejects the bulk of centroids before computing a
// single real distance, instead of visiting them in arbitrary id order.
func sortedNeighborOrder(pivotDist [][]float64, assignments []int, rg byRange) map[int][]int {
	k := len(pivotDist)
	touched := make(map[int]bool)
	for idx := rg.lo; idx < rg.hi; idx++ {
		touched[assignments[idx]] = true
	}

	out := make(map[int][]int, len(touched))
	for cur := range touched {
		order := make([]int, 0, k-1)
		for c := 0; c < k; c++ {
			if c != cur {
				order = append(order, c)
			}
		}
		sort.Slice(order, func(i, j int) bool {
			return pivotDist[cur][order[i]] < pivotDist[cur][order[j]]
		})
		out[cur] = order
	}
	return out
}

func neighborOrderFor(neighbors map[int][]int, cur int) []int {
	return neighbors[cur]
}

// parallelUpdate recomputes each centroid as the mean of its assigned
// points' features, with accumulation split by worker slice and reduced on
// the calling goroutine (the "main thread updates centroids" barrier).
func parallelUpdate(points []Point, assignments []int, k, workers int) [][]float64 {
	type partial struct {
		sums   [][]float64
		counts []int
	}
	ranges := splitRange(len(points), workers)
	partials := make([]partial, len(ranges))

	dim := 0
	if len(points) > 0 {
		dim = len(points[0].Features)
	}

	var wg errgroupLite
	for ri, rg := range ranges {
		ri, rg := ri, rg
		wg.Go(func() {
			p := partial{sums: make([][]float64, k), counts: make([]int, k)}
			for c := range p.sums {
				p.sums[c] = make([]float64, dim)
			}
			for idx := rg.lo; idx < rg.hi; idx++ {
				c := assignments[idx]
				p.counts[c]++
				for d, v := range points[idx].Features {
					p.sums[c][d] += v
				}
			}
			partials[ri] = p
		})
	}
	wg.Wait()

	totals := make([][]float64, k)
	counts := make([]int, k)
	for c := range totals {
		totals[c] = make([]float64, dim)
	}
	for _, p := range partials {
		for c := 0; c < k; c++ {
			counts[c] += p.counts[c]
			for d := 0; d < dim; d++ {
				totals[c][d] += p.sums[c][d]
			}
		}
	}

	out := make([][]float64, k)
	for c := 0; c < k; c++ {
		out[c] = make([]float64, dim)
		if counts[c] == 0 {
			continue
		}
		for d := 0; d < dim; d++ {
			out[c][d] = totals[c][d] / float64(counts[c])
		}
	}
	return out
}

// errgroupLite is a minimal fixed-size WaitGroup wrapper used for the
// update phase, which (unlike assign/pivot-distances) has no error to
// propagate, only a join barrier.
type errgroupLite struct {
	fns []func()
}

func (e *errgroupLite) Go(fn func()) { e.fns = append(e.fns, fn) }

func (e *errgroupLite) Wait() {
	done := make(chan struct{}, len(e.fns))
	for _, fn := range e.fns {
		fn := fn
		go func() {
			fn()
			done <- struct{}{}
		}()
	}
	for range e.fns {
		<-done
	}
}
