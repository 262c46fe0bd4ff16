package plem

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientAlleles is returned when a site reports fewer than two
	// alleles. Frequencies are meaningless at a monomorphic or empty site.
	ErrInsufficientAlleles = errors.New("site has fewer than 2 alleles")

	// ErrMissingLikelihoodField is returned when a site carries no per-sample
	// genotype likelihood (PL) field.
	ErrMissingLikelihoodField = errors.New("site has no genotype likelihood field")

	// ErrMalformedLikelihoodField is returned when the PL field is present but
	// its stride or length cannot hold three likelihoods for every sample.
	ErrMalformedLikelihoodField = errors.New("genotype likelihood field is malformed")

	// ErrNoInformativeSamples is returned when every sample's likelihoods are
	// flat, leaving nothing to seed the EM with.
	ErrNoInformativeSamples = errors.New("no sample has informative genotype likelihoods")

	// ErrSampleCountMismatch is returned when the two sites of a pair do not
	// have the same number of samples.
	ErrSampleCountMismatch = errors.New("sites have different sample counts")
)

// SiteError associates an estimation failure with the site that caused it.
// Use errors.Is against the Err* values to find out what went wrong.
type SiteError struct {
	Site *Site
	Err  error
}

func (e *SiteError) Error() string {
	if e.Site == nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Site, e.Err)
}

func (e *SiteError) Unwrap() error {
	return e.Err
}

func siteError(site *Site, err error) error {
	return &SiteError{Site: site, Err: err}
}
