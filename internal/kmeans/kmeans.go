package kmeans

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/viant/vec/search"
)

var (
	// ErrTooFewPoints is returned when there are fewer points than clusters.
	ErrTooFewPoints = errors.New("kmeans: fewer points than clusters")
	// ErrInvalidConfig is returned for non-positive K, iterations or restarts.
	ErrInvalidConfig = errors.New("kmeans: invalid config")
)

// Config controls a clustering run.
type Config struct {
	// K is the number of clusters.
	K int
	// MaxIterations bounds the Lloyd iterations per restart.
	MaxIterations int
	// Epsilon stops a restart once no centroid moves farther than this.
	Epsilon float64
	// Restarts is the number of independent initializations; the lowest
	// inertia wins, earlier restarts winning ties.
	Restarts int
	// Seed makes initialization reproducible.
	Seed uint64
}

// Result holds the winning clustering.
type Result struct {
	Centroids [][]float32
	// Counts is the total weight assigned to each centroid.
	Counts []int
	// Inertia is the weighted sum of squared distances to the assigned centroid.
	Inertia    float64
	Iterations int
	Restart    int
}

// Cluster partitions points (all of equal dimension) into cfg.K clusters.
// weights gives the multiplicity of each point; nil means 1 for every point.
func Cluster(ctx context.Context, points [][]float32, weights []int, cfg Config) (*Result, error) {
	if cfg.K < 1 || cfg.MaxIterations < 1 || cfg.Restarts < 1 || cfg.Epsilon < 0 {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidConfig, cfg)
	}
	if len(points) < cfg.K {
		return nil, fmt.Errorf("%w: %d < %d", ErrTooFewPoints, len(points), cfg.K)
	}
	if weights != nil && len(weights) != len(points) {
		return nil, fmt.Errorf("kmeans: %d weights for %d points", len(weights), len(points))
	}
	if weights == nil {
		weights = make([]int, len(points))
		for i := range weights {
			weights[i] = 1
		}
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	var best *Result
	for r := 0; r < cfg.Restarts; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := lloyd(ctx, points, weights, cfg, rng)
		if err != nil {
			return nil, err
		}
		res.Restart = r
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func lloyd(ctx context.Context, points [][]float32, weights []int, cfg Config, rng *rand.Rand) (*Result, error) {
	dim := len(points[0])
	centroids := make([][]float32, cfg.K)
	for c, p := range rng.Perm(len(points))[:cfg.K] {
		centroids[c] = append([]float32(nil), points[p]...)
	}

	labels := make([]int, len(points))
	dists := make([]float64, len(points))
	sums := make([][]float64, cfg.K)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	counts := make([]int, cfg.K)

	iter := 0
	for iter < cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iter++
		assign(points, centroids, labels, dists)

		for c := range sums {
			clear(sums[c])
			counts[c] = 0
		}
		for i, p := range points {
			c := labels[i]
			w := weights[i]
			for d, x := range p {
				sums[c][d] += float64(x) * float64(w)
			}
			counts[c] += w
		}

		shift := 0.0
		for c := range centroids {
			next := make([]float32, dim)
			if counts[c] == 0 {
				// Empty cluster: take over the point farthest from its centroid.
				far := farthest(dists)
				copy(next, points[far])
				dists[far] = 0
			} else {
				for d := range next {
					next[d] = float32(sums[c][d] / float64(counts[c]))
				}
			}
			if s := distance(centroids[c], next); s > shift {
				shift = s
			}
			centroids[c] = next
		}
		if shift <= cfg.Epsilon {
			break
		}
	}

	assign(points, centroids, labels, dists)
	res := &Result{Centroids: centroids, Counts: make([]int, cfg.K), Iterations: iter}
	for i := range points {
		res.Counts[labels[i]] += weights[i]
		res.Inertia += float64(weights[i]) * dists[i] * dists[i]
	}
	return res, nil
}

// assign labels every point with its nearest centroid, the lowest index
// winning ties, and records the distance.
func assign(points, centroids [][]float32, labels []int, dists []float64) {
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, center := range centroids {
			if d := distance(p, center); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i], dists[i] = best, bestDist
	}
}

func farthest(dists []float64) int {
	far := 0
	for i, d := range dists {
		if d > dists[far] {
			far = i
		}
	}
	return far
}

func distance(a, b []float32) float64 {
	return float64(search.Float32s(a).EuclideanDistance(b))
}
