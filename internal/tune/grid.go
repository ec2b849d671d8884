// Package tune searches controller constants by scoring every point of a
// grid, typically with a simulated run per point.
package tune

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	ErrBadGrid     = errors.New("tune: every parameter needs a name and a non-empty range")
	ErrNoCandidate = errors.New("tune: no grid point could be scored")
)

// Objective scores one parameter set. Lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64

	// Workers bounds how many points are scored at once. Zero or less
	// scores one at a time.
	Workers int
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, ErrBadGrid
	}
	for i, r := range ranges {
		if params[i] == "" || len(r) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadGrid, params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of points in the grid.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Points lists every combination, varying the last parameter fastest.
func (g *GridSearch) Points() []map[string]float64 {
	points := make([]map[string]float64, 0, g.Size())
	g.collect(0, make(map[string]float64, len(g.paramNames)), &points)
	return points
}

func (g *GridSearch) collect(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		point := make(map[string]float64, len(current))
		for k, v := range current {
			point[k] = v
		}
		*out = append(*out, point)
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		g.collect(depth+1, current, out)
	}
}

type Result struct {
	Params map[string]float64
	Score  float64
	Tried  int
	Failed int
}

// Search scores every point and returns the lowest. Points whose
// objective fails or returns NaN are counted and skipped. Ties keep the
// earlier point.
func (g *GridSearch) Search(ctx context.Context, obj Objective) (Result, error) {
	points := g.Points()
	scores := make([]float64, len(points))
	errs := make([]error, len(points))

	workers := g.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, p := range points {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, params map[string]float64) {
			defer wg.Done()
			defer func() { <-sem }()
			scores[idx], errs[idx] = obj(ctx, params)
		}(i, p)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Score: math.Inf(1), Tried: len(points)}
	for i, p := range points {
		if errs[i] == nil && math.IsNaN(scores[i]) {
			errs[i] = errors.New("objective returned NaN")
		}
		if errs[i] != nil {
			res.Failed++
			log.WithError(errs[i]).WithField("params", p).Debug("grid point failed")
			continue
		}
		if scores[i] < res.Score {
			res.Score = scores[i]
			res.Params = p
		}
	}
	if res.Params == nil {
		return res, ErrNoCandidate
	}
	return res, nil
}
