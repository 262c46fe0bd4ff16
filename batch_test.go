package plem

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEstimateSitesKeepsOrderAndIsolatesFailures(t *testing.T) {
	sites := []*Site{
		testSite("1", 1, 2, repeat(homClass2, 4)...),
		testSite("1", 2, 1, repeat(homClass2, 4)...),
		testSite("1", 3, 2, repeat(noCall, 4)...),
		testSite("1", 4, 2, repeat(homClass0, 4)...),
		{Chromosome: "1", Position: 5, Alleles: []string{"A", "T"}, NSamples: 4},
	}

	for _, workers := range []int{0, 1, 3, 16} {
		results := EstimateSites(context.Background(), sites, workers)
		if len(results) != len(sites) {
			t.Fatalf("Got %d results for %d sites", len(results), len(sites))
		}
		for i, r := range results {
			if r.Site != sites[i] {
				t.Errorf("workers=%d: result %d belongs to %v, expected %v", workers, i, r.Site, sites[i])
			}
		}

		expectedErrs := []error{nil, ErrInsufficientAlleles, ErrNoInformativeSamples, nil, ErrMissingLikelihoodField}
		for i, expected := range expectedErrs {
			if expected == nil && results[i].Err != nil {
				t.Errorf("workers=%d: site %d failed: %v", workers, i, results[i].Err)
			} else if expected != nil && !errors.Is(results[i].Err, expected) {
				t.Errorf("workers=%d: site %d got %v, expected %v", workers, i, results[i].Err, expected)
			}
		}

		if math.Abs(results[0].Frequencies[2]-1) > 1e-9 || math.Abs(results[3].Frequencies[0]-1) > 1e-9 {
			t.Errorf("workers=%d: unexpected frequencies %v / %v", workers, results[0].Frequencies, results[3].Frequencies)
		}
	}
}

func TestEstimateSitesMatchesSequential(t *testing.T) {
	var sites []*Site
	for i := 0; i < 40; i++ {
		q := byte(i * 5)
		sites = append(sites, testSite("2", uint32(i), 2,
			[]byte{0, q, 2 * q},
			[]byte{q, 0, q},
			[]byte{2 * q, q, 0},
			[]byte{0, 10, q},
		))
	}

	results := EstimateSites(context.Background(), sites, 4)
	for i, site := range sites {
		expected, expectedErr := EstimateSiteFrequency(site)
		got := results[i]
		if (expectedErr == nil) != (got.Err == nil) {
			t.Fatalf("Site %d: got error %v, sequential error %v", i, got.Err, expectedErr)
		}
		if diff := cmp.Diff(expected, got.Frequencies); diff != "" {
			t.Errorf("Site %d differs from the sequential estimate (-sequential +batch):\n%s", i, diff)
		}
	}
}

func TestEstimatePairs(t *testing.T) {
	pls := [][]byte{homClass2, homClass2, homClass0, homClass0}
	a := testSite("1", 1, 2, pls...)
	b := testSite("1", 2, 2, pls...)
	short := testSite("1", 3, 2, pls[:3]...)

	results := EstimatePairs(context.Background(), []Pair{{a, b}, {b, short}, {a, a}}, 2)
	if len(results) != 3 {
		t.Fatalf("Got %d results, expected 3", len(results))
	}
	if results[0].Err != nil || math.Abs(results[0].LD.R-1) > 1e-6 {
		t.Errorf("Pair 0: got %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrSampleCountMismatch) || results[1].LD.Defined() {
		t.Errorf("Pair 1: got %+v, expected a sample count mismatch", results[1])
	}
	if results[2].Pair.A != a || results[2].Err != nil {
		t.Errorf("Pair 2: got %+v", results[2])
	}
}

func TestEstimateSitesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := EstimateSites(ctx, []*Site{testSite("1", 1, 2, homClass2)}, 1)
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("Got %v, expected context.Canceled", results[0].Err)
	}

	pairs := EstimatePairs(ctx, []Pair{{testSite("1", 1, 2, homClass2), testSite("1", 2, 2, homClass2)}}, 1)
	if !errors.Is(pairs[0].Err, context.Canceled) || pairs[0].LD.Defined() {
		t.Errorf("Got %+v, expected context.Canceled and an undefined r", pairs[0])
	}
}
