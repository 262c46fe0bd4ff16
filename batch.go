package plem

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SiteResult is the outcome of one single-site estimate in a batch.
type SiteResult struct {
	Site        *Site
	Frequencies GenotypeFrequencies
	Err         error
}

// PairResult is the outcome of one pairwise estimate in a batch.
type PairResult struct {
	Pair Pair
	LD   LD
	Err  error
}

// EstimateSites runs EstimateSiteFrequency for every site on at most workers
// goroutines (GOMAXPROCS if workers <= 0). Results are in the same order as
// sites. A failing site only sets its own Err. Sites that have not started
// when ctx is done get ctx.Err().
func EstimateSites(ctx context.Context, sites []*Site, workers int) []SiteResult {
	results := make([]SiteResult, len(sites))
	g := newPool(workers)
	for i, site := range sites {
		i, site := i, site
		g.Go(func() error {
			results[i].Site = site
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Frequencies, results[i].Err = EstimateSiteFrequency(site)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// EstimatePairs runs EstimatePairLD for every pair on at most workers
// goroutines, with the same ordering and failure rules as EstimateSites.
func EstimatePairs(ctx context.Context, pairs []Pair, workers int) []PairResult {
	results := make([]PairResult, len(pairs))
	g := newPool(workers)
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			results[i].Pair = pair
			if err := ctx.Err(); err != nil {
				results[i].LD.R = Undefined
				results[i].Err = err
				return nil
			}
			results[i].LD, results[i].Err = EstimatePairLD(pair.A, pair.B)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// newPool returns an errgroup whose goroutines never fail: per-unit errors are
// recorded in the results, so one bad site cannot cancel the others.
func newPool(workers int) *errgroup.Group {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)
	return g
}
