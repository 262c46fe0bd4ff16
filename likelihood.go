package plem

import (
	"fmt"
	"math"
)

// phredToProbability maps a phred-scaled likelihood byte Q to 10^(-Q/10). It is
// filled once at package initialization and never written again.
var phredToProbability [256]float64

func init() {
	for q := range phredToProbability {
		phredToProbability[q] = math.Pow(10, -float64(q)/10)
	}
}

// PhredToProbability returns the linear-scale likelihood for a phred-scaled
// value.
func PhredToProbability(q uint8) float64 {
	return phredToProbability[q]
}

// Triple holds one sample's genotype likelihoods on a linear scale, indexed by
// genotype class. The class order is the reverse of the PL storage order: PL
// byte 2 becomes class 0 and PL byte 0 becomes class 2.
type Triple [3]float64

// Informative reports whether the triple can discriminate between genotypes.
// A sample with PL 0,0,0 (typically no coverage) decodes to all ones and is
// not informative.
func (t Triple) Informative() bool {
	return t[0] != 1 || t[1] != 1 || t[2] != 1
}

// best returns the class with the largest likelihood. Ties go to the later
// class.
func (t Triple) best() int {
	which := 1
	if t[0] > t[1] {
		which = 0
	}
	if t[which] > t[2] {
		return which
	}
	return 2
}

// Decode converts the first three PL bytes of one sample into a Triple. It
// panics if pl holds fewer than three bytes; DecodeSite validates the field
// before calling it.
func Decode(pl []byte) Triple {
	return Triple{
		phredToProbability[pl[2]],
		phredToProbability[pl[1]],
		phredToProbability[pl[0]],
	}
}

// DecodeSite decodes the PL field of every sample at site, in sample order.
func DecodeSite(site *Site) ([]Triple, error) {
	field, ok := site.Field(FieldPL)
	if !ok {
		return nil, ErrMissingLikelihoodField
	}
	if field.Stride < 3 {
		return nil, fmt.Errorf("%w: stride %d is smaller than 3", ErrMalformedLikelihoodField, field.Stride)
	}
	if field.Len() < site.NSamples {
		return nil, fmt.Errorf("%w: holds %d records for %d samples", ErrMalformedLikelihoodField, field.Len(), site.NSamples)
	}

	triples := make([]Triple, site.NSamples)
	for i := range triples {
		triples[i] = Decode(field.record(i))
	}

	return triples, nil
}
