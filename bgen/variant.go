package bgen

import (
	"math"

	"github.com/carbocation/plem"
)

type Allele string

func (a Allele) String() string {
	return string(a)
}

type Variant struct {
	ID            string
	RSID          string
	Chromosome    string
	Position      uint32
	NAlleles      uint16
	Alleles       []Allele
	Probabilities *Probability

	// FileStartPosition is the offset at which this variant's block begins.
	FileStartPosition int64
}

// Site converts the variant into a plem.Site. Genotype probabilities become
// phred-scaled likelihoods relative to the most probable genotype, so the
// best genotype always has PL 0. Missing and non-diploid samples get an all
// zero, uninformative PL record.
func (v *Variant) Site() *plem.Site {
	site := &plem.Site{
		ID:         v.ID,
		RSID:       v.RSID,
		Chromosome: v.Chromosome,
		Position:   v.Position,
	}
	for _, a := range v.Alleles {
		site.Alleles = append(site.Alleles, a.String())
	}

	if v.Probabilities == nil || v.NAlleles < 1 {
		return site
	}

	K := int(v.NAlleles)
	stride := K * (K + 1) / 2
	samples := v.Probabilities.SampleProbabilities
	site.NSamples = len(samples)

	data := make([]byte, stride*len(samples))
	for i, sp := range samples {
		probs, ok := sp.genotypeProbabilities(K, v.Probabilities.Phased)
		if !ok {
			continue
		}
		probabilitiesToPL(probs, data[i*stride:(i+1)*stride])
	}
	site.SetField(plem.FieldPL, &plem.SampleField{Stride: stride, Data: data})

	return site
}

// probabilitiesToPL fills pl with round(-10*log10(p/pmax)), capped at 255.
// An all-zero probability vector leaves pl at zero.
func probabilitiesToPL(probs []float64, pl []byte) {
	pmax := 0.0
	for _, p := range probs {
		if p > pmax {
			pmax = p
		}
	}
	if pmax == 0 {
		return
	}

	for k, p := range probs {
		if p <= 0 {
			pl[k] = 255
			continue
		}
		q := math.Round(-10 * math.Log10(p/pmax))
		if q > 255 {
			q = 255
		}
		pl[k] = byte(q)
	}
}
