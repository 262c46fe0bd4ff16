package plem

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// GenotypeFrequencies is the population frequency of each genotype class at
// one site, in Triple class order. The three values sum to 1.
type GenotypeFrequencies [3]float64

// AlleleFrequency is the frequency of the allele whose copy number is the
// class index, i.e. (g[1] + 2*g[2]) / 2. With standard PL ordering this is
// the reference allele frequency.
func (g GenotypeFrequencies) AlleleFrequency() float64 {
	return (g[1] + 2*g[2]) / 2
}

// EstimateSiteFrequency estimates the genotype frequencies at site by EM over
// the samples' genotype likelihoods. The EM is seeded from the hard calls of
// the informative samples and stops after MaxIterations rounds or once no
// class moves by more than Epsilon.
func EstimateSiteFrequency(site *Site) (GenotypeFrequencies, error) {
	if site.NAlleles() < 2 {
		return GenotypeFrequencies{}, siteError(site, ErrInsufficientAlleles)
	}

	triples, err := DecodeSite(site)
	if err != nil {
		return GenotypeFrequencies{}, siteError(site, err)
	}

	g, err := estimateGenotypeFrequencies(triples, nil)
	if err != nil {
		return GenotypeFrequencies{}, siteError(site, err)
	}

	return g, nil
}

// estimateGenotypeFrequencies runs the single-site EM. If observe is not nil
// it is called with the seed and then with the vector after every round.
func estimateGenotypeFrequencies(triples []Triple, observe func(GenotypeFrequencies)) (GenotypeFrequencies, error) {
	g, err := seedGenotypeFrequencies(triples)
	if err != nil {
		return g, err
	}
	if observe != nil {
		observe(g)
	}

	for i := 0; i < MaxIterations; i++ {
		next := genotypeRound(g, triples)
		delta := floats.Distance(next[:], g[:], math.Inf(1))
		g = next
		if observe != nil {
			observe(g)
		}
		if delta < Epsilon {
			break
		}
	}

	return g, nil
}

// seedGenotypeFrequencies counts the best-supported class of every
// informative sample. Uninformative samples are left out of both the counts
// and the total.
func seedGenotypeFrequencies(triples []Triple) (GenotypeFrequencies, error) {
	var counts [3]int
	total := 0
	for _, t := range triples {
		if !t.Informative() {
			continue
		}
		counts[t.best()]++
		total++
	}
	if total == 0 {
		return GenotypeFrequencies{}, ErrNoInformativeSamples
	}

	var g GenotypeFrequencies
	for k := range g {
		g[k] = float64(counts[k]) / float64(total)
	}

	return g, nil
}

// genotypeRound is one EM update: the new frequency of each class is the mean
// over samples of that class's posterior probability under g.
func genotypeRound(g GenotypeFrequencies, triples []Triple) GenotypeFrequencies {
	var next GenotypeFrequencies
	used := 0
	for _, t := range triples {
		posterior := [3]float64{t[0] * g[0], t[1] * g[1], t[2] * g[2]}
		sum := floats.Sum(posterior[:])
		if sum == 0 {
			// Only reachable through underflow; the sample carries no weight.
			continue
		}
		for k := range next {
			next[k] += posterior[k] / sum
		}
		used++
	}
	if used == 0 {
		return g
	}
	for k := range next {
		next[k] /= float64(used)
	}

	return next
}
