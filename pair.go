package plem

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Undefined is the value of LD.R when the correlation cannot be computed,
// for instance because one of the sites is monomorphic.
const Undefined = -1.0

// HaplotypeFrequencies holds the frequency of the four two-site haplotypes.
// Bit 1 of the index is the allele at site A and bit 0 the allele at site B,
// so index 0 carries neither counted allele and index 3 carries both.
type HaplotypeFrequencies [4]float64

// LD is the result of a pairwise estimate.
type LD struct {
	Haplotypes HaplotypeFrequencies

	// D is the linkage disequilibrium coefficient f0*f3 - f1*f2.
	D float64

	// R is the correlation coefficient |D| / sqrt(pA*qA*pB*qB), in [0,1], or
	// Undefined.
	R float64
}

// Defined reports whether R holds a correlation.
func (ld LD) Defined() bool {
	return ld.R != Undefined
}

// R2 is the squared correlation, or Undefined.
func (ld LD) R2() float64 {
	if !ld.Defined() {
		return Undefined
	}
	return ld.R * ld.R
}

// genotypeA and genotypeB give the genotype class implied at site A and site B
// by the unordered haplotype pair {k,h}.
func genotypeA(k, h int) int { return (k >> 1 & 1) + (h >> 1 & 1) }
func genotypeB(k, h int) int { return (k & 1) + (h & 1) }

// EstimatePairLD estimates two-site haplotype frequencies by EM from the
// genotype likelihoods of the samples at a and b, and derives D and r from
// them. Samples are paired by index, so both sites must list samples in the
// same order.
func EstimatePairLD(a, b *Site) (LD, error) {
	if a.NSamples != b.NSamples {
		return LD{R: Undefined}, siteError(b, ErrSampleCountMismatch)
	}
	for _, site := range []*Site{a, b} {
		if site.NAlleles() < 2 {
			return LD{R: Undefined}, siteError(site, ErrInsufficientAlleles)
		}
	}

	pa, err := DecodeSite(a)
	if err != nil {
		return LD{R: Undefined}, siteError(a, err)
	}
	pb, err := DecodeSite(b)
	if err != nil {
		return LD{R: Undefined}, siteError(b, err)
	}

	f := estimateHaplotypeFrequencies(pa, pb, nil)
	if len(pa) == 0 {
		return LD{Haplotypes: f, R: Undefined}, nil
	}

	return linkage(f, len(pa)), nil
}

// estimateHaplotypeFrequencies runs the two-site EM from a uniform start. If
// observe is not nil it is called with the start and after every round.
func estimateHaplotypeFrequencies(pa, pb []Triple, observe func(HaplotypeFrequencies)) HaplotypeFrequencies {
	f := HaplotypeFrequencies{0.25, 0.25, 0.25, 0.25}
	if observe != nil {
		observe(f)
	}
	if len(pa) == 0 {
		return f
	}

	for i := 0; i < MaxIterations; i++ {
		next := haplotypeRound(f, pa, pb)
		delta := floats.Distance(next[:], f[:], math.Inf(1))
		f = next
		if observe != nil {
			observe(f)
		}
		if delta < Epsilon {
			break
		}
	}

	return f
}

// haplotypeRound is one EM update. For every sample, each ordered pair of
// haplotypes (k,h) is weighted by f[k]*f[h] times the likelihood of the
// genotypes it implies at both sites; each haplotype's expected copy count is
// accumulated from both positions of the pair and divided by 2n.
func haplotypeRound(f HaplotypeFrequencies, pa, pb []Triple) HaplotypeFrequencies {
	var next HaplotypeFrequencies
	used := 0
	for i := range pa {
		la, lb := &pa[i], &pb[i]

		var sum float64
		for k := 0; k < 4; k++ {
			for h := 0; h < 4; h++ {
				sum += f[k] * f[h] * la[genotypeA(k, h)] * lb[genotypeB(k, h)]
			}
		}
		if sum == 0 {
			continue
		}

		for k := 0; k < 4; k++ {
			var tmp float64
			for h := 0; h < 4; h++ {
				tmp += f[h] * (la[genotypeA(h, k)]*lb[genotypeB(h, k)] + la[genotypeA(k, h)]*lb[genotypeB(k, h)])
			}
			next[k] += f[k] * tmp / sum
		}
		used++
	}
	if used == 0 {
		return f
	}
	for k := range next {
		next[k] /= float64(2 * used)
	}

	return next
}

// linkage derives D and r from converged haplotype frequencies estimated from
// n samples. An allele frequency within half a haplotype copy (1/(4n)) of 0
// or 1 cannot be told apart from a monomorphic site by the EM, so it is
// treated as exactly 0 or 1.
func linkage(f HaplotypeFrequencies, n int) LD {
	tolerance := 1 / float64(4*n)
	pA := snap(f[0]+f[1], tolerance)
	pB := snap(f[0]+f[2], tolerance)
	qA, qB := 1-pA, 1-pB

	ld := LD{
		Haplotypes: f,
		D:          f[0]*f[3] - f[1]*f[2],
	}

	r := math.Sqrt(ld.D * ld.D / (pA * pB * qA * qB))
	if math.IsNaN(r) || math.IsInf(r, 0) {
		r = Undefined
	} else if r > 1 {
		// Rounding can push a perfect correlation a hair past 1.
		r = 1
	}
	ld.R = r

	return ld
}

func snap(p, tolerance float64) float64 {
	switch {
	case p < tolerance:
		return 0
	case p > 1-tolerance:
		return 1
	}
	return p
}
