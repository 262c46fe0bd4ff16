// Package plem estimates genotype frequencies at a single site, and haplotype
// frequencies plus linkage disequilibrium between two sites, from per-sample
// phred-scaled genotype likelihoods (the VCF "PL" field) using
// Expectation-Maximization. Hard genotype calls are never required: every
// sample contributes through its full likelihood triple.
//
// The estimators are pure functions of their input sites and are safe to call
// from concurrent goroutines. EstimateSites and EstimatePairs run many
// independent estimates on a bounded pool of goroutines.
package plem

const (
	// MaxIterations bounds the number of EM rounds for every estimate. When it
	// is reached, the last computed vector is returned as-is.
	MaxIterations = 50

	// Epsilon is the convergence threshold on the largest absolute per-class
	// change between two successive EM rounds.
	Epsilon = 1e-5
)
